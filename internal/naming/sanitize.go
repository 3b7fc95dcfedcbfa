package naming

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// illegalChars are characters not allowed in filenames on common filesystems.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00]`)

// multiSpace matches multiple consecutive spaces.
var multiSpace = regexp.MustCompile(`\s+`)

// multiDot matches multiple consecutive dots.
var multiDot = regexp.MustCompile(`\.{2,}`)

// reservedNames are Windows device names that cannot be used as file or
// directory names regardless of extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// sanitizeValue scrubs a substituted template value so it can never alter
// path structure: separators and other illegal characters become spaces.
func sanitizeValue(v string) string {
	return illegalChars.ReplaceAllString(v, " ")
}

// SanitizeSegment cleans a single path segment for safe filesystem use.
func SanitizeSegment(name string) string {
	// Normalize so lookalike sequences compare and sort consistently.
	name = norm.NFC.String(name)

	// Strip control and zero-width format characters.
	name = strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.Cc, unicode.Cf) {
			return -1
		}
		return r
	}, name)

	name = illegalChars.ReplaceAllString(name, " ")

	// Collapse multiple dots to single dot
	name = multiDot.ReplaceAllString(name, ".")

	// Collapse multiple spaces to single space
	name = multiSpace.ReplaceAllString(name, " ")

	// Trim leading/trailing whitespace and dots
	name = strings.Trim(name, " .")

	if reservedNames[strings.ToUpper(name)] {
		name = "_" + name
	}

	return name
}

// cleanPath sanitizes each segment of a rendered path and collapses empty
// segments so the result never contains doubled separators.
func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		part = SanitizeSegment(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, "/")
}

// ValidatePath ensures the path is within the expected root directory.
// Returns ErrPathTraversal if the path would escape the root.
func ValidatePath(path, expectedRoot string) error {
	// Clean both paths to resolve any . or .. components
	cleanPath := filepath.Clean(path)
	cleanRoot := filepath.Clean(expectedRoot)

	// Ensure root ends with separator for prefix check
	if !strings.HasSuffix(cleanRoot, string(filepath.Separator)) {
		cleanRoot += string(filepath.Separator)
	}

	// Path must start with root (or be exactly root without trailing slash)
	if cleanPath != filepath.Clean(expectedRoot) && !strings.HasPrefix(cleanPath, cleanRoot) {
		return ErrPathTraversal
	}

	return nil
}

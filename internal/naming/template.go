// Package naming turns per-item metadata into sanitized relative paths.
// Templates are parsed once into a closed set of nodes and validated against
// a fixed per-scope field vocabulary; rendering is pure and never touches the
// filesystem.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultAlbumTemplate and DefaultPlaylistTemplate are used when the config
// does not override them.
const (
	DefaultAlbumTemplate    = "{album.artist}/{album.title} ({album.year})/{item.number:2} - {item.title}{item.explicit:shortparens}"
	DefaultPlaylistTemplate = "Playlists/{playlist.title}/{playlist.index:2} - {item.artist} - {item.title}"
)

const defaultDateFormat = "%Y-%m-%d"

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldNumber
	fieldDate
	fieldExplicit
)

// scopeFields is the full placeholder vocabulary. Anything outside it fails
// Parse with ErrUnknownVariable.
var scopeFields = map[string]map[string]fieldKind{
	"item": {
		"id":       fieldText,
		"title":    fieldText,
		"artist":   fieldText,
		"artists":  fieldText,
		"number":   fieldNumber,
		"volume":   fieldNumber,
		"duration": fieldNumber,
		"explicit": fieldExplicit,
	},
	"album": {
		"id":       fieldText,
		"title":    fieldText,
		"artist":   fieldText,
		"artists":  fieldText,
		"date":     fieldDate,
		"year":     fieldText, // fixed %Y rendering, takes no format
		"release":  fieldText,
		"explicit": fieldExplicit,
	},
	"playlist": {
		"id":      fieldText,
		"title":   fieldText,
		"index":   fieldNumber,
		"created": fieldDate,
	},
}

// placeholderPattern matches {scope.field} or {scope.field:format}.
var placeholderPattern = regexp.MustCompile(`\{(\w+)\.(\w+)(?::([^{}]+))?\}`)

type placeholder struct {
	scope  string
	field  string
	format string
	kind   fieldKind
}

// node is either a literal chunk or a placeholder, never both.
type node struct {
	literal string
	ph      *placeholder
}

// Template is a parsed, validated path template.
type Template struct {
	src   string
	nodes []node
}

// String returns the template source.
func (t *Template) String() string { return t.src }

// Parse validates a template against the placeholder vocabulary and returns
// its compiled form. All unknown-variable detection happens here, never at
// render time.
func Parse(template string) (*Template, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("empty template")
	}

	var nodes []node
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		if m[0] > last {
			lit := template[last:m[0]]
			if err := checkLiteral(lit); err != nil {
				return nil, err
			}
			nodes = append(nodes, node{literal: lit})
		}
		ph := &placeholder{
			scope: template[m[2]:m[3]],
			field: template[m[4]:m[5]],
		}
		if m[6] >= 0 {
			ph.format = template[m[6]:m[7]]
		}

		fields, ok := scopeFields[ph.scope]
		if !ok {
			return nil, fmt.Errorf("%w: {%s.%s}", ErrUnknownVariable, ph.scope, ph.field)
		}
		kind, ok := fields[ph.field]
		if !ok {
			return nil, fmt.Errorf("%w: {%s.%s}", ErrUnknownVariable, ph.scope, ph.field)
		}
		ph.kind = kind
		if err := checkFormat(ph); err != nil {
			return nil, err
		}
		nodes = append(nodes, node{ph: ph})
		last = m[1]
	}
	if last < len(template) {
		lit := template[last:]
		if err := checkLiteral(lit); err != nil {
			return nil, err
		}
		nodes = append(nodes, node{literal: lit})
	}

	return &Template{src: template, nodes: nodes}, nil
}

// checkLiteral rejects stray braces, which indicate a malformed or unknown
// placeholder the pattern did not recognize.
func checkLiteral(lit string) error {
	if i := strings.IndexAny(lit, "{}"); i >= 0 {
		// Show the offending run up to the next separator for context.
		frag := lit[i:]
		if j := strings.IndexByte(frag, '/'); j > 0 {
			frag = frag[:j]
		}
		return fmt.Errorf("%w: %q", ErrUnknownVariable, frag)
	}
	return nil
}

func checkFormat(ph *placeholder) error {
	if ph.format == "" {
		return nil
	}
	switch ph.kind {
	case fieldDate:
		return nil // strftime spec, passed through
	case fieldNumber:
		if _, err := strconv.Atoi(ph.format); err != nil {
			return fmt.Errorf("bad pad width %q in {%s.%s}", ph.format, ph.scope, ph.field)
		}
		return nil
	case fieldExplicit:
		if ph.format != "short" && ph.format != "shortparens" {
			return fmt.Errorf("bad explicit variant %q in {%s.%s}", ph.format, ph.scope, ph.field)
		}
		return nil
	default:
		return fmt.Errorf("{%s.%s} does not take a format", ph.scope, ph.field)
	}
}

// Render substitutes context values and sanitizes the result into a relative
// path. Identical inputs always produce identical output.
func (t *Template) Render(ctx Context) string {
	var b strings.Builder
	for _, n := range t.nodes {
		if n.ph == nil {
			b.WriteString(n.literal)
			continue
		}
		// Values are scrubbed before assembly so a slash inside a title can
		// never introduce a path separator.
		b.WriteString(sanitizeValue(n.ph.render(ctx)))
	}
	return cleanPath(b.String())
}

// Render is a one-shot Parse plus Render for callers holding a template
// string, such as config validation and the template CLI.
func Render(template string, ctx Context) (string, error) {
	t, err := Parse(template)
	if err != nil {
		return "", err
	}
	return t.Render(ctx), nil
}

func (ph *placeholder) render(ctx Context) string {
	switch ph.scope {
	case "item":
		return ph.renderItem(ctx.Item)
	case "album":
		return ph.renderAlbum(ctx.Album)
	case "playlist":
		return ph.renderPlaylist(ctx.Playlist)
	}
	return ""
}

func (ph *placeholder) renderItem(it Item) string {
	switch ph.field {
	case "id":
		return it.ID
	case "title":
		return it.Title
	case "artist":
		return primaryArtist(it.Artists)
	case "artists":
		return joinArtists(it.Artists)
	case "number":
		return formatNumber(it.Number, ph.format)
	case "volume":
		return formatNumber(it.Volume, ph.format)
	case "duration":
		return formatNumber(it.Duration, ph.format)
	case "explicit":
		return formatExplicit(it.Explicit, ph.format)
	}
	return ""
}

func (ph *placeholder) renderAlbum(al Album) string {
	switch ph.field {
	case "id":
		return al.ID
	case "title":
		return al.Title
	case "artist":
		return primaryArtist(al.Artists)
	case "artists":
		return joinArtists(al.Artists)
	case "date":
		return formatDate(al.Date, ph.format)
	case "year":
		return formatDate(al.Date, "%Y")
	case "release":
		return strings.ToLower(al.RecordType)
	case "explicit":
		return formatExplicit(al.Explicit, ph.format)
	}
	return ""
}

func (ph *placeholder) renderPlaylist(pl Playlist) string {
	switch ph.field {
	case "id":
		return pl.ID
	case "title":
		return pl.Title
	case "index":
		return formatNumber(pl.Index, ph.format)
	case "created":
		return formatDate(pl.Created, ph.format)
	}
	return ""
}

func formatNumber(v int, format string) string {
	if format == "" {
		return strconv.Itoa(v)
	}
	width, _ := strconv.Atoi(format) // validated at parse
	return fmt.Sprintf("%0*d", width, v)
}

func formatDate(t time.Time, format string) string {
	if t.IsZero() {
		return ""
	}
	if format == "" {
		format = defaultDateFormat
	}
	return strftime.Format(format, t)
}

func formatExplicit(flagged bool, variant string) string {
	if !flagged {
		return ""
	}
	switch variant {
	case "short":
		return "E"
	case "shortparens":
		return " (E)"
	default:
		return "explicit"
	}
}

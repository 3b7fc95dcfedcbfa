// internal/naming/sanitize_test.go
package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Track Name", "Track Name"},
		{"path separators", "Track/Name\\Here", "Track Name Here"},
		{"path traversal", "../../../etc/passwd", "etc passwd"},
		{"double dots", "Track..Name", "Track.Name"},
		{"illegal chars", "Track: The *Best* <One>", "Track The Best One"},
		{"null bytes", "Track\x00Name", "TrackName"},
		{"zero width join", "Tra‍ck", "Track"},
		{"multiple spaces", "Track   Name", "Track Name"},
		{"leading/trailing", "  .Track Name.  ", "Track Name"},
		{"question mark", "What?", "What"},
		{"pipe", "This|That", "This That"},
		{"quotes", `Track "Name"`, "Track Name"},
		{"windows reserved", "CON", "_CON"},
		{"windows reserved lower", "aux", "_aux"},
		{"reserved inside name", "CONCERT", "CONCERT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSegment(tt.input)
			assert.Equal(t, tt.want, got, "SanitizeSegment(%q)", tt.input)
		})
	}
}

func TestSanitizeSegment_NFC(t *testing.T) {
	// Decomposed e + combining acute normalizes to the precomposed form.
	decomposed := "Café"
	assert.Equal(t, "Café", SanitizeSegment(decomposed))
}

func TestValidatePath(t *testing.T) {
	root := "/music"

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"inside root", "/music/Daft Punk/Discovery/01 - One More Time.flac", false},
		{"exactly root", "/music", false},
		{"escapes with dotdot", "/music/../etc/passwd", true},
		{"sibling prefix", "/music2/album/track.flac", true},
		{"outside root", "/tmp/track.flac", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, root)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathTraversal)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

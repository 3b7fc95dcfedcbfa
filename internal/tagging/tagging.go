// Package tagging embeds metadata frames in finished audio files.
package tagging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
)

// Metadata is the frame set written to a finished track.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Track  int
	Disc   int
	Year   string // four digits, empty when the release date is unknown
}

// Tagger writes metadata to a file on disk.
type Tagger interface {
	Tag(path string, m Metadata) error
}

// ID3 writes ID3v2 frames to .mp3 files. Files with any other extension
// are left untouched.
type ID3 struct {
	log *slog.Logger
}

// NewID3 creates an ID3 tagger.
func NewID3(log *slog.Logger) *ID3 {
	return &ID3{log: log.With("component", "tagging")}
}

// Tag opens the file, replaces the title, artist, album, track number,
// disc number, and year frames, and saves it in place.
func (t *ID3) Tag(path string, m Metadata) error {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = tag.Close() }()

	tag.SetTitle(m.Title)
	tag.SetArtist(m.Artist)
	tag.SetAlbum(m.Album)
	if m.Track > 0 {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(m.Track))
	}
	if m.Disc > 0 {
		tag.AddTextFrame("TPOS", id3v2.EncodingUTF8, strconv.Itoa(m.Disc))
	}
	if m.Year != "" {
		tag.AddTextFrame("TYER", id3v2.EncodingUTF8, m.Year)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags for %s: %w", filepath.Base(path), err)
	}

	t.log.Debug("tagged file", "path", path, "title", m.Title, "artist", m.Artist)
	return nil
}

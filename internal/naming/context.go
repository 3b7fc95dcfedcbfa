package naming

import (
	"strings"
	"time"
)

// Context carries the metadata a template draws from. Only the scopes a
// template actually references need to be populated.
type Context struct {
	Item     Item
	Album    Album
	Playlist Playlist
}

// Item is the track being written.
type Item struct {
	ID       string
	Title    string
	Artists  []string // ordered credits, first is primary
	Number   int
	Volume   int
	Explicit bool
	Duration int // seconds
}

// Album is the release the item belongs to. Zero-valued for tracks without
// album context.
type Album struct {
	ID         string
	Title      string
	Artists    []string
	Date       time.Time // zero renders as empty
	RecordType string    // catalog casing, rendered lower case
	Explicit   bool
}

// Playlist is the playlist an item was reached through.
type Playlist struct {
	ID      string
	Title   string
	Index   int // 1-based position in the playlist
	Created time.Time
}

func joinArtists(artists []string) string {
	return strings.Join(artists, ", ")
}

func primaryArtist(artists []string) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0]
}

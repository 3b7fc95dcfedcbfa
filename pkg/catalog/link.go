package catalog

import (
	"errors"
	"fmt"
	"regexp"
)

// linkBase is the public listen URL prefix used when formatting links
// for export files.
const linkBase = "https://listen.example-music.net"

// ErrBadLink indicates a URL that does not point at a known catalog
// resource.
var ErrBadLink = errors.New("unrecognized catalog link")

// LinkKind identifies the resource a catalog link points at.
type LinkKind string

// Link kinds recognized by ParseLink.
const (
	LinkArtist   LinkKind = "artist"
	LinkAlbum    LinkKind = "album"
	LinkTrack    LinkKind = "track"
	LinkPlaylist LinkKind = "playlist"
)

// Link is a parsed catalog URL.
type Link struct {
	Kind LinkKind
	ID   string
}

var (
	// Numeric resources tolerate an optional path segment between the
	// kind and the ID (country or vanity slugs in shared links).
	itemLinkRE     = regexp.MustCompile(`/(artist|album|track)/(?:[^/?#]+/)?(\d+)`)
	playlistLinkRE = regexp.MustCompile(`/playlist/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`)
)

// ParseLink extracts the resource kind and ID from a catalog share URL.
func ParseLink(raw string) (*Link, error) {
	if m := playlistLinkRE.FindStringSubmatch(raw); m != nil {
		return &Link{Kind: LinkPlaylist, ID: m[1]}, nil
	}
	if m := itemLinkRE.FindStringSubmatch(raw); m != nil {
		return &Link{Kind: LinkKind(m[1]), ID: m[2]}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrBadLink, raw)
}

// FormatLink renders the canonical share URL for a catalog resource,
// the inverse of ParseLink. Used when exporting resolved targets.
func FormatLink(kind LinkKind, id string) string {
	return fmt.Sprintf("%s/%s/%s", linkBase, kind, id)
}

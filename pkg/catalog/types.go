// Package catalog provides a client for the remote music catalog API.
package catalog

import "time"

// Artist represents a catalog artist.
type Artist struct {
	ID   string
	Name string
}

// Album represents a catalog album, EP, single, or compilation.
type Album struct {
	ID          string
	Title       string
	ArtistID    string
	ArtistName  string
	Artists     []string
	ReleaseDate time.Time
	RecordType  string // ALBUM, EP, SINGLE, COMPILATION
	TrackCount  int
	Explicit    bool
}

// Track represents a single catalog track.
type Track struct {
	ID         string
	Title      string
	AlbumID    string
	AlbumTitle string
	Artists    []string
	Number     int
	Volume     int
	Explicit   bool
	Duration   int // seconds
	Qualities  []string
}

// Playlist represents a user-visible catalog playlist.
type Playlist struct {
	ID         string // 36-character UUID
	Title      string
	TrackCount int
	Created    time.Time
}

// SearchResults holds one page of mixed search results.
type SearchResults struct {
	Artists []Artist
	Albums  []Album
	Tracks  []Track
}

// tokenResponse is the auth token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// artistResponse is the get artist API response.
type artistResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// albumResponse is the wire form of an album.
type albumResponse struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	ReleaseDate    string `json:"releaseDate"` // YYYY-MM-DD
	Type           string `json:"type"`
	NumberOfTracks int    `json:"numberOfTracks"`
	Explicit       bool   `json:"explicit"`
	Artist         struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
	Artists []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
}

// albumsPageResponse is one page of an artist's album listing.
type albumsPageResponse struct {
	Limit              int             `json:"limit"`
	Offset             int             `json:"offset"`
	TotalNumberOfItems int             `json:"totalNumberOfItems"`
	Items              []albumResponse `json:"items"`
}

// trackResponse is the wire form of a track.
type trackResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	TrackNumber  int    `json:"trackNumber"`
	VolumeNumber int    `json:"volumeNumber"`
	Duration     int    `json:"duration"`
	Explicit     bool   `json:"explicit"`
	AudioQuality string `json:"audioQuality"`
	Album        struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"album"`
	Artists []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	MediaMetadata struct {
		Tags []string `json:"tags"`
	} `json:"mediaMetadata"`
}

// tracksPageResponse is one page of an album's track listing.
type tracksPageResponse struct {
	Limit              int             `json:"limit"`
	Offset             int             `json:"offset"`
	TotalNumberOfItems int             `json:"totalNumberOfItems"`
	Items              []trackResponse `json:"items"`
}

// playlistResponse is the get playlist API response.
type playlistResponse struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	NumberOfTracks int    `json:"numberOfTracks"`
	Created        string `json:"created"`
}

// playlistItemsResponse is one page of a playlist's item listing. Items
// carry a type discriminator; non-track entries (videos) are skipped.
type playlistItemsResponse struct {
	Limit              int `json:"limit"`
	Offset             int `json:"offset"`
	TotalNumberOfItems int `json:"totalNumberOfItems"`
	Items              []struct {
		Type string        `json:"type"`
		Item trackResponse `json:"item"`
	} `json:"items"`
}

// searchResponse is the search API response.
type searchResponse struct {
	Artists struct {
		Items []artistResponse `json:"items"`
	} `json:"artists"`
	Albums struct {
		Items []albumResponse `json:"items"`
	} `json:"albums"`
	Tracks struct {
		Items []trackResponse `json:"items"`
	} `json:"tracks"`
}

// playbackResponse is the track playback info API response.
type playbackResponse struct {
	TrackID      int64    `json:"trackId"`
	AudioQuality string   `json:"audioQuality"`
	URLs         []string `json:"urls"`
}

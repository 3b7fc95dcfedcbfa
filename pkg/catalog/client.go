package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.example-music.net/v1"
	defaultCountry = "US"

	// releasePageSize is the page size for artist album listings,
	// itemPageSize for track and playlist item listings.
	releasePageSize = 50
	itemPageSize    = 100

	// tokenMargin is subtracted from the reported token lifetime so a
	// token is refreshed before the service starts rejecting it.
	tokenMargin = 60 * time.Second

	// streamTimeout bounds a single media transfer end to end.
	streamTimeout = 10 * time.Minute
)

// Sentinel errors for catalog API responses.
var (
	ErrNotFound     = errors.New("catalog item not found")
	ErrUnauthorized = errors.New("unauthorized: invalid or expired credentials")
	ErrRateLimited  = errors.New("rate limited: too many requests")
	ErrUnavailable  = errors.New("catalog service unavailable")
)

// Client is a catalog API client with OAuth-style token refresh.
type Client struct {
	clientID     string
	refreshToken string
	baseURL      string
	country      string
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	maxWait      time.Duration
	log          *slog.Logger

	// Access token management (thread-safe)
	mu      sync.RWMutex
	token   string
	expires time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "catalog")
	}
}

// WithCountry sets the country code sent with every catalog request.
func WithCountry(country string) Option {
	return func(c *Client) {
		if country != "" {
			c.country = country
		}
	}
}

// WithLimiter installs a shared rate limiter gating all outbound requests.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMaxWait bounds how long a request may queue on the rate limiter
// before failing with ErrRateLimited. Zero means wait indefinitely.
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) {
		c.maxWait = d
	}
}

// New creates a new catalog API client.
func New(clientID, refreshToken string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		refreshToken: refreshToken,
		baseURL:      defaultBaseURL,
		country:      defaultCountry,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{
			Timeout: streamTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks on the shared rate limiter, if one is configured. Queue
// time beyond maxWait fails with ErrRateLimited rather than stalling
// the worker indefinitely.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	waitCtx := ctx
	if c.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.maxWait)
		defer cancel()
	}
	if err := c.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimited
	}
	return nil
}

// authenticate exchanges the refresh token for a fresh access token.
func (c *Client) authenticate(ctx context.Context) error {
	body := map[string]string{
		"client_id":     c.clientID,
		"refresh_token": c.refreshToken,
		"grant_type":    "refresh_token",
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh failed: %s", resp.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	if tok.AccessToken == "" {
		return errors.New("token response missing access token")
	}

	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime > tokenMargin {
		lifetime -= tokenMargin
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.expires = time.Now().Add(lifetime)
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debug("authenticated with catalog", "expires_in", tok.ExpiresIn)
	}

	return nil
}

// ensureToken ensures we hold an unexpired access token, refreshing if
// necessary.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.RLock()
	valid := c.token != "" && time.Now().Before(c.expires)
	c.mu.RUnlock()

	if !valid {
		return c.authenticate(ctx)
	}
	return nil
}

// doRequest performs an authenticated request, handling token refresh on 401.
func (c *Client) doRequest(ctx context.Context, method, endpoint string) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	resp, err := c.doAuthenticatedRequest(ctx, method, endpoint)
	if err != nil {
		return nil, err
	}

	// If unauthorized, refresh token and retry once
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()

		if c.log != nil {
			c.log.Debug("access token expired, refreshing")
		}

		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()

		if err := c.authenticate(ctx); err != nil {
			return nil, err
		}

		return c.doAuthenticatedRequest(ctx, method, endpoint)
	}

	return resp, nil
}

// doAuthenticatedRequest performs a single authenticated request.
func (c *Client) doAuthenticatedRequest(ctx context.Context, method, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	return resp, nil
}

// endpoint builds a request path with the client's country code applied.
func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("countryCode", c.country)
	return path + "?" + params.Encode()
}

// Artist fetches artist metadata by catalog ID.
func (c *Client) Artist(ctx context.Context, id string) (*Artist, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.endpoint("/artists/"+url.PathEscape(id), nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		if c.log != nil && errors.Is(err, ErrNotFound) {
			c.log.Debug("artist not found", "id", id)
		}
		return nil, err
	}

	var artistResp artistResponse
	if err := json.NewDecoder(resp.Body).Decode(&artistResp); err != nil {
		return nil, fmt.Errorf("decode artist response: %w", err)
	}

	return toArtist(artistResp), nil
}

// ArtistReleases fetches an artist's full discography, paging through
// the album and EP/single listings and deduplicating releases that
// appear under both filters.
func (c *Client) ArtistReleases(ctx context.Context, artistID string) ([]Album, error) {
	start := time.Now()

	var albums []Album
	seen := make(map[string]struct{})
	pages := 0

	for _, filter := range []string{"ALBUMS", "EPSANDSINGLES"} {
		offset := 0
		for {
			params := url.Values{}
			params.Set("filter", filter)
			params.Set("limit", strconv.Itoa(releasePageSize))
			params.Set("offset", strconv.Itoa(offset))

			endpoint := c.endpoint("/artists/"+url.PathEscape(artistID)+"/albums", params)
			resp, err := c.doRequest(ctx, http.MethodGet, endpoint)
			if err != nil {
				return nil, err
			}

			if err := c.checkResponse(resp); err != nil {
				resp.Body.Close()
				return nil, err
			}

			var page albumsPageResponse
			if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
				resp.Body.Close()
				return nil, fmt.Errorf("decode albums response: %w", err)
			}
			resp.Body.Close()

			for _, item := range page.Items {
				album := toAlbum(item)
				if _, ok := seen[album.ID]; ok {
					continue
				}
				seen[album.ID] = struct{}{}
				albums = append(albums, *album)
			}

			offset += len(page.Items)
			pages++
			if len(page.Items) == 0 || offset >= page.TotalNumberOfItems {
				break
			}

			// Safety limit to prevent infinite loops
			if pages > 100 {
				if c.log != nil {
					c.log.Warn("hit pagination limit", "artist_id", artistID, "pages", pages)
				}
				return albums, nil
			}
		}
	}

	if c.log != nil {
		c.log.Debug("fetched artist releases", "artist_id", artistID, "count", len(albums), "pages", pages, "duration_ms", time.Since(start).Milliseconds())
	}

	return albums, nil
}

// Album fetches album metadata by catalog ID.
func (c *Client) Album(ctx context.Context, id string) (*Album, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.endpoint("/albums/"+url.PathEscape(id), nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		if c.log != nil && errors.Is(err, ErrNotFound) {
			c.log.Debug("album not found", "id", id)
		}
		return nil, err
	}

	var albumResp albumResponse
	if err := json.NewDecoder(resp.Body).Decode(&albumResp); err != nil {
		return nil, fmt.Errorf("decode album response: %w", err)
	}

	return toAlbum(albumResp), nil
}

// AlbumTracks fetches all tracks of an album in catalog order, handling
// pagination automatically.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]Track, error) {
	var tracks []Track
	offset := 0

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(itemPageSize))
		params.Set("offset", strconv.Itoa(offset))

		endpoint := c.endpoint("/albums/"+url.PathEscape(albumID)+"/tracks", params)
		resp, err := c.doRequest(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, err
		}

		if err := c.checkResponse(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}

		var page tracksPageResponse
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode tracks response: %w", err)
		}
		resp.Body.Close()

		for _, item := range page.Items {
			tracks = append(tracks, *toTrack(item))
		}

		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.TotalNumberOfItems {
			break
		}
	}

	return tracks, nil
}

// Track fetches track metadata by catalog ID.
func (c *Client) Track(ctx context.Context, id string) (*Track, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.endpoint("/tracks/"+url.PathEscape(id), nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return nil, err
	}

	var trackResp trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&trackResp); err != nil {
		return nil, fmt.Errorf("decode track response: %w", err)
	}

	return toTrack(trackResp), nil
}

// Playlist fetches playlist metadata by UUID.
func (c *Client) Playlist(ctx context.Context, id string) (*Playlist, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.endpoint("/playlists/"+url.PathEscape(id), nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		if c.log != nil && errors.Is(err, ErrNotFound) {
			c.log.Debug("playlist not found", "id", id)
		}
		return nil, err
	}

	var playlistResp playlistResponse
	if err := json.NewDecoder(resp.Body).Decode(&playlistResp); err != nil {
		return nil, fmt.Errorf("decode playlist response: %w", err)
	}

	return &Playlist{
		ID:         playlistResp.UUID,
		Title:      playlistResp.Title,
		TrackCount: playlistResp.NumberOfTracks,
		Created:    parseTimestamp(playlistResp.Created),
	}, nil
}

// PlaylistTracks fetches a playlist's current track membership in
// playlist order. Non-track items (videos) are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	var tracks []Track
	offset := 0

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(itemPageSize))
		params.Set("offset", strconv.Itoa(offset))

		endpoint := c.endpoint("/playlists/"+url.PathEscape(playlistID)+"/items", params)
		resp, err := c.doRequest(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, err
		}

		if err := c.checkResponse(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}

		var page playlistItemsResponse
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode playlist items response: %w", err)
		}
		resp.Body.Close()

		for _, item := range page.Items {
			if item.Type != "track" {
				continue
			}
			tracks = append(tracks, *toTrack(item.Item))
		}

		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.TotalNumberOfItems {
			break
		}
	}

	return tracks, nil
}

// Search performs a mixed search across artists, albums, and tracks.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResults, error) {
	start := time.Now()

	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("types", "ARTISTS,ALBUMS,TRACKS")

	resp, err := c.doRequest(ctx, http.MethodGet, c.endpoint("/search", params))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return nil, err
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := &SearchResults{}
	for _, item := range searchResp.Artists.Items {
		results.Artists = append(results.Artists, *toArtist(item))
	}
	for _, item := range searchResp.Albums.Items {
		results.Albums = append(results.Albums, *toAlbum(item))
	}
	for _, item := range searchResp.Tracks.Items {
		results.Tracks = append(results.Tracks, *toTrack(item))
	}

	if c.log != nil {
		c.log.Debug("search completed", "query", query,
			"artists", len(results.Artists), "albums", len(results.Albums), "tracks", len(results.Tracks),
			"duration_ms", time.Since(start).Milliseconds())
	}

	return results, nil
}

// TrackStream opens the media stream for a track at the given quality
// tier. The caller owns the returned body and must close it.
func (c *Client) TrackStream(ctx context.Context, trackID, quality string) (io.ReadCloser, error) {
	params := url.Values{}
	params.Set("audioquality", quality)

	endpoint := c.endpoint("/tracks/"+url.PathEscape(trackID)+"/playbackinfo", params)
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	var playback playbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&playback); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("decode playback response: %w", err)
	}
	resp.Body.Close()

	if len(playback.URLs) == 0 {
		return nil, fmt.Errorf("playback info for track %s has no stream URL", trackID)
	}

	// The media transfer counts against the shared limiter too.
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playback.URLs[0], nil)
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}

	streamResp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if streamResp.StatusCode != http.StatusOK {
		streamResp.Body.Close()
		return nil, fmt.Errorf("%w: stream returned %s", ErrUnavailable, streamResp.Status)
	}

	if c.log != nil {
		c.log.Debug("opened track stream", "track_id", trackID, "quality", playback.AudioQuality)
	}

	return streamResp.Body, nil
}

// checkResponse checks the HTTP response for errors and returns appropriate sentinel errors.
func (c *Client) checkResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	default:
		return fmt.Errorf("catalog API error: %s", resp.Status)
	}
}

func toArtist(a artistResponse) *Artist {
	return &Artist{
		ID:   strconv.FormatInt(a.ID, 10),
		Name: a.Name,
	}
}

func toAlbum(a albumResponse) *Album {
	album := &Album{
		ID:         strconv.FormatInt(a.ID, 10),
		Title:      a.Title,
		RecordType: a.Type,
		TrackCount: a.NumberOfTracks,
		Explicit:   a.Explicit,
	}
	if a.ReleaseDate != "" {
		album.ReleaseDate, _ = time.Parse("2006-01-02", a.ReleaseDate)
	}
	if a.Artist.Name != "" {
		album.ArtistID = strconv.FormatInt(a.Artist.ID, 10)
		album.ArtistName = a.Artist.Name
	}
	for _, artist := range a.Artists {
		album.Artists = append(album.Artists, artist.Name)
	}
	// Single-artist payloads sometimes omit the artists array.
	if album.ArtistName == "" && len(album.Artists) > 0 {
		album.ArtistID = strconv.FormatInt(a.Artists[0].ID, 10)
		album.ArtistName = album.Artists[0]
	}
	if len(album.Artists) == 0 && album.ArtistName != "" {
		album.Artists = []string{album.ArtistName}
	}
	return album
}

func toTrack(t trackResponse) *Track {
	track := &Track{
		ID:        strconv.FormatInt(t.ID, 10),
		Title:     t.Title,
		Number:    t.TrackNumber,
		Volume:    t.VolumeNumber,
		Explicit:  t.Explicit,
		Duration:  t.Duration,
		Qualities: t.MediaMetadata.Tags,
	}
	if t.Album.ID != 0 {
		track.AlbumID = strconv.FormatInt(t.Album.ID, 10)
		track.AlbumTitle = t.Album.Title
	}
	for _, artist := range t.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}
	// Older payloads report a single quality field instead of tags.
	if len(track.Qualities) == 0 && t.AudioQuality != "" {
		track.Qualities = []string{t.AudioQuality}
	}
	return track
}

// parseTimestamp parses the catalog's timestamp format, accepting both
// RFC 3339 and the legacy millisecond offset form.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000-0700"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

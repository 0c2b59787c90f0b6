// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	defaultRateLimit = 10.0
	membershipLimit  = 100
	membershipFields = "items(added_at,track(uri)),next"
)

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	URI     string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// Owner of a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       Owner  `json:"owner"`
	Public      bool   `json:"public"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

// SpotifyPlaylistItem represents a track within a playlist context.
//
// Track is nil for entries whose track is no longer available.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistItems is the field-limited playlist tracks page.
type SpotifyPlaylistItems struct {
	Items []SpotifyPlaylistItem `json:"items"`
	Next  *string               `json:"next"`
}

type spotifyArtistSearch struct {
	Artists struct {
		Items []SpotifyArtist `json:"items"`
	} `json:"artists"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	BaseURL    string        // Defaults to the public Web API
	HTTPClient *http.Client  // Base client; its transport is wrapped with the bearer token
	RateLimit  float64       // Requests per second, 0 means the default
	PageSize   int           // Saved-track page size, 1-50
	Timeout    time.Duration // Per-request timeout, 0 means none
	Logger     *log.Logger
}

// SpotifyService implements the [Catalog] interface for Spotify Web API interactions.
type SpotifyService struct {
	baseURL    string
	username   string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify catalog client from "username" and "oauth-token" credentials.
func NewSpotifyService(credentials map[string]string, opts SpotifyOpts) (*SpotifyService, error) {
	username, ok := credentials["username"]
	if !ok || username == "" {
		return nil, fmt.Errorf("%w: missing username", shared.ErrMissingCredentials)
	}

	token, ok := credentials["oauth-token"]
	if !ok || token == "" {
		return nil, fmt.Errorf("%w: missing oauth-token", shared.ErrMissingCredentials)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.PageSize <= 0 || opts.PageSize > shared.MaxPageSize {
		opts.PageSize = shared.MaxPageSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	client.Timeout = opts.Timeout

	return &SpotifyService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		username:   username,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		pageSize:   opts.PageSize,
		logger:     opts.Logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// resolve turns an endpoint or a pagination cursor into an absolute URL.
//
// Cursors must point back at the configured API so the bearer token never leaves it.
func (s *SpotifyService) resolve(endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if !strings.HasPrefix(endpoint, s.baseURL+"/") {
			return "", fmt.Errorf("%w: cursor %q is outside %s", shared.ErrInvalidInput, endpoint, s.baseURL)
		}
		return endpoint, nil
	}
	return s.baseURL + endpoint, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, op, method, endpoint string, body, result any) error {
	apiURL, err := s.resolve(endpoint)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug("catalog request", "op", op, "method", method, "url", apiURL)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		catalogErr := &CatalogError{Op: op, StatusCode: resp.StatusCode}
		var errBody spotifyErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			catalogErr.Message = errBody.Error.Message
		}
		return catalogErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}

	return nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 || limit > shared.MaxPageSize {
		limit = shared.MaxPageSize
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, "listRecentlySaved", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// RecentlySaved returns up to count saved track URIs, most recent first.
func (s *SpotifyService) RecentlySaved(ctx context.Context, count int) ([]models.TrackID, error) {
	if count <= 0 {
		return []models.TrackID{}, nil
	}

	ids := make([]models.TrackID, 0, count)
	offset := 0

	for len(ids) < count {
		limit := min(count-len(ids), s.pageSize)
		page, err := s.SavedTracks(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.URI == "" || len(ids) == count {
				continue
			}
			ids = append(ids, models.TrackID(item.Track.URI))
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return ids, nil
}

// ScanLibrary walks every saved track, page by page, following the "next" cursor until it is exhausted.
func (s *SpotifyService) ScanLibrary(ctx context.Context, fn PageFunc) error {
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=0", s.pageSize)
	pages := 0

	for endpoint != "" {
		var response SpotifyPaginatedTracks
		if err := s.doRequest(ctx, "scanLibrary", http.MethodGet, endpoint, nil, &response); err != nil {
			return err
		}
		pages++

		page := make([]models.SavedTrack, 0, len(response.Items))
		for _, item := range response.Items {
			if item.Track.URI == "" {
				continue
			}
			track, err := toSavedTrack(item)
			if err != nil {
				return fmt.Errorf("scanLibrary: %w", err)
			}
			page = append(page, track)
		}

		if err := fn(page); err != nil {
			return err
		}

		endpoint = ""
		if response.Next != nil {
			endpoint = *response.Next
		}
	}

	s.logger.Debug("library scan complete", "pages", pages)
	return nil
}

func toSavedTrack(item SpotifySavedTrack) (models.SavedTrack, error) {
	addedAt, err := parseAddedAt(item.AddedAt)
	if err != nil {
		return models.SavedTrack{}, err
	}

	artistIDs := make([]string, 0, len(item.Track.Artists))
	for _, artist := range item.Track.Artists {
		if artist.ID != "" {
			artistIDs = append(artistIDs, artist.ID)
		}
	}

	return models.SavedTrack{
		ID:          models.TrackID(item.Track.URI),
		Name:        item.Track.Name,
		ArtistIDs:   artistIDs,
		ReleaseDate: item.Track.Album.ReleaseDate,
		AddedAt:     addedAt,
	}, nil
}

// parseAddedAt parses an RFC 3339 added_at timestamp. Very old playlist entries carry none and get the zero time.
func parseAddedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: added_at %q", shared.ErrInvalidInput, s)
	}
	return t, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, endpoint string) (*SpotifyPaginatedPlaylists, error) {
	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, "listPlaylistNames", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Playlists lists every playlist owned by the account, in listing order.
//
// Followed playlists owned by other users are skipped.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.PlaylistSummary, error) {
	var all []models.PlaylistSummary
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=0", shared.MaxPageSize)

	for endpoint != "" {
		response, err := s.UserPlaylists(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		for _, p := range response.Items {
			if p.Owner.ID != "" && p.Owner.ID != s.username {
				continue
			}
			all = append(all, models.PlaylistSummary{ID: p.ID, Name: p.Name})
		}

		endpoint = ""
		if response.Next != nil {
			endpoint = *response.Next
		}
	}

	return all, nil
}

// PlaylistNames maps playlist names to ids. When two owned playlists share a name the first listed wins.
func (s *SpotifyService) PlaylistNames(ctx context.Context) (map[string]string, error) {
	playlists, err := s.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(playlists))
	for _, p := range playlists {
		if existing, ok := names[p.Name]; ok {
			s.logger.Warn("duplicate playlist name", "name", p.Name, "kept", existing, "ignored", p.ID)
			continue
		}
		names[p.Name] = p.ID
	}
	return names, nil
}

// PlaylistMembership lists a playlist's tracks with their added_at times, fetching only those fields.
func (s *SpotifyService) PlaylistMembership(ctx context.Context, playlistID string) ([]models.MembershipRecord, error) {
	q := url.Values{}
	q.Set("fields", membershipFields)
	q.Set("limit", strconv.Itoa(membershipLimit))
	q.Set("offset", "0")
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), q.Encode())

	records := []models.MembershipRecord{}
	unavailable := 0
	for endpoint != "" {
		var response SpotifyPlaylistItems
		if err := s.doRequest(ctx, "listPlaylistMembership", http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			if item.Track == nil || item.Track.URI == "" {
				unavailable++
				continue
			}
			addedAt, err := parseAddedAt(item.AddedAt)
			if err != nil {
				return nil, fmt.Errorf("listPlaylistMembership: %w", err)
			}
			records = append(records, models.MembershipRecord{
				TrackID:  models.TrackID(item.Track.URI),
				AddedAt:  addedAt,
				Position: len(records),
			})
		}

		endpoint = ""
		if response.Next != nil {
			endpoint = *response.Next
		}
	}

	if unavailable > 0 {
		s.logger.Warn("playlist has unavailable entries that cannot be reconciled",
			"playlist", playlistID, "skipped", unavailable, "kept", len(records))
	}
	return records, nil
}

// CreatePlaylist creates a playlist owned by the configured user and returns its id.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, visibility models.Visibility) (string, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      visibility == models.Public,
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(s.username))

	var created SpotifySimplePlaylist
	if err := s.doRequest(ctx, "createPlaylist", http.MethodPost, endpoint, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: createPlaylist returned no id", shared.ErrAPIRequest)
	}
	return created.ID, nil
}

func checkBatch(op string, ids []models.TrackID) error {
	if len(ids) > shared.MaxBatchSize {
		return fmt.Errorf("%w: %s accepts at most %d tracks, got %d", shared.ErrInvalidInput, op, shared.MaxBatchSize, len(ids))
	}
	return nil
}

// AddTracks appends one batch of tracks to a playlist.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, ids []models.TrackID) error {
	if err := checkBatch("addTracks", ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = string(id)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, "addTracks", http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}

// RemoveTracks removes one batch of tracks from a playlist.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) error {
	if err := checkBatch("removeTracks", ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	type trackRef struct {
		URI string `json:"uri"`
	}
	tracks := make([]trackRef, len(ids))
	for i, id := range ids {
		tracks[i] = trackRef{URI: string(id)}
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, "removeTracks", http.MethodDelete, endpoint, map[string]any{"tracks": tracks}, nil)
}

// SearchArtist returns the id of the first search result for name.
//
// Same-named artists are indistinguishable here: whichever the catalog ranks first wins.
func (s *SpotifyService) SearchArtist(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("type", "artist")
	q.Set("limit", "1")

	var response spotifyArtistSearch
	if err := s.doRequest(ctx, "searchArtist", http.MethodGet, "/search?"+q.Encode(), nil, &response); err != nil {
		return "", err
	}

	if len(response.Artists.Items) == 0 {
		return "", fmt.Errorf("%w: %q", shared.ErrArtistNotFound, name)
	}
	return response.Artists.Items[0].ID, nil
}

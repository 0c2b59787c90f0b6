package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
	tu "github.com/desertthunder/mixsync/internal/testing"
)

var testCredentials = map[string]string{
	"username":    "alice",
	"oauth-token": "test_token",
}

func newTestService(t *testing.T, handler http.Handler) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials, SpotifyOpts{
		BaseURL:   server.URL + "/v1",
		RateLimit: 1000,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv, server
}

// savedTracksHandler serves n saved tracks as spotify:track:tN, newest first, honouring limit/offset.
func savedTracksHandler(t *testing.T, n int, requests *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			*requests++
		}
		if r.URL.Path != "/v1/me/tracks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit > 50 {
			t.Errorf("limit %d exceeds page size", limit)
		}

		page := SpotifyPaginatedTracks{Total: n, Limit: limit, Offset: offset}
		for i := offset; i < offset+limit && i < n; i++ {
			page.Items = append(page.Items, SpotifySavedTrack{
				AddedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
				Track: SpotifyTrack{
					URI:     fmt.Sprintf("spotify:track:t%d", i),
					Name:    fmt.Sprintf("Track %d", i),
					Artists: []SpotifyArtist{{ID: fmt.Sprintf("art%d", i%3)}},
					Album:   SpotifyAlbum{ReleaseDate: fmt.Sprintf("%d-05-01", 1990+i)},
				},
			})
		}
		if offset+limit < n {
			next := fmt.Sprintf("http://%s/v1/me/tracks?limit=%d&offset=%d", r.Host, limit, offset+limit)
			page.Next = &next
		}

		json.NewEncoder(w).Encode(page)
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials, SpotifyOpts{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
			if srv.pageSize != 50 {
				t.Errorf("expected default page size 50, got %d", srv.pageSize)
			}
		})

		t.Run("Missing Username", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"oauth-token": "tok"}, SpotifyOpts{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Token", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"username": "alice"}, SpotifyOpts{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Clamps Page Size", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials, SpotifyOpts{PageSize: 500})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.pageSize != 50 {
				t.Errorf("expected page size clamped to 50, got %d", srv.pageSize)
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials, SpotifyOpts{})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ Catalog = srv
	})

	t.Run("Bearer Token", func(t *testing.T) {
		var gotAuth string
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]any{"artists": map[string]any{"items": []map[string]string{{"id": "a1"}}}})
		}))

		if _, err := srv.SearchArtist(context.Background(), "X"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAuth != "Bearer test_token" {
			t.Errorf("expected bearer header, got %q", gotAuth)
		}
	})

	t.Run("RecentlySaved", func(t *testing.T) {
		t.Run("takes exactly count across pages", func(t *testing.T) {
			requests := 0
			srv, _ := newTestService(t, savedTracksHandler(t, 200, &requests))

			ids, err := srv.RecentlySaved(context.Background(), 120)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(ids) != 120 {
				t.Fatalf("expected 120 ids, got %d", len(ids))
			}
			if ids[0] != "spotify:track:t0" || ids[119] != "spotify:track:t119" {
				t.Errorf("expected recency order, got first=%s last=%s", ids[0], ids[119])
			}
			if requests != 3 {
				t.Errorf("expected 3 requests, got %d", requests)
			}
		})

		t.Run("smaller library is not an error", func(t *testing.T) {
			srv, _ := newTestService(t, savedTracksHandler(t, 7, nil))

			ids, err := srv.RecentlySaved(context.Background(), 20)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(ids) != 7 {
				t.Errorf("expected 7 ids, got %d", len(ids))
			}
		})

		t.Run("zero count makes no request", func(t *testing.T) {
			requests := 0
			srv, _ := newTestService(t, savedTracksHandler(t, 7, &requests))

			ids, err := srv.RecentlySaved(context.Background(), 0)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(ids) != 0 || requests != 0 {
				t.Errorf("expected no ids and no requests, got %d ids %d requests", len(ids), requests)
			}
		})
	})

	t.Run("ScanLibrary", func(t *testing.T) {
		t.Run("follows cursor until exhausted", func(t *testing.T) {
			srv, _ := newTestService(t, savedTracksHandler(t, 120, nil))

			var pages []int
			total := 0
			err := srv.ScanLibrary(context.Background(), func(page []models.SavedTrack) error {
				pages = append(pages, len(page))
				total += len(page)
				return nil
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if total != 120 {
				t.Errorf("expected 120 tracks, got %d", total)
			}
			if len(pages) != 3 || pages[0] != 50 || pages[2] != 20 {
				t.Errorf("unexpected page sizes %v", pages)
			}
		})

		t.Run("maps track fields", func(t *testing.T) {
			srv, _ := newTestService(t, savedTracksHandler(t, 1, nil))

			var got models.SavedTrack
			err := srv.ScanLibrary(context.Background(), func(page []models.SavedTrack) error {
				got = page[0]
				return nil
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.ID != "spotify:track:t0" {
				t.Errorf("expected uri id, got %s", got.ID)
			}
			if len(got.ArtistIDs) != 1 || got.ArtistIDs[0] != "art0" {
				t.Errorf("unexpected artist ids %v", got.ArtistIDs)
			}
			if got.ReleaseDate != "1990-05-01" {
				t.Errorf("unexpected release date %s", got.ReleaseDate)
			}
			if got.AddedAt.IsZero() {
				t.Error("expected added_at to be parsed")
			}
		})

		t.Run("callback error stops scan", func(t *testing.T) {
			requests := 0
			srv, _ := newTestService(t, savedTracksHandler(t, 120, &requests))

			stop := errors.New("stop")
			err := srv.ScanLibrary(context.Background(), func(page []models.SavedTrack) error {
				return stop
			})
			if !errors.Is(err, stop) {
				t.Errorf("expected callback error, got %v", err)
			}
			if requests != 1 {
				t.Errorf("expected scan to stop after 1 request, got %d", requests)
			}
		})

		t.Run("rejects foreign cursor", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next := "https://evil.example.com/v1/me/tracks?offset=50"
				json.NewEncoder(w).Encode(SpotifyPaginatedTracks{Next: &next})
			}))

			err := srv.ScanLibrary(context.Background(), func([]models.SavedTrack) error { return nil })
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("PlaylistNames", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/me/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			if r.URL.Query().Get("offset") == "0" {
				next := fmt.Sprintf("http://%s/v1/me/playlists?limit=50&offset=50", r.Host)
				json.NewEncoder(w).Encode(SpotifyPaginatedPlaylists{
					Items: []SpotifySimplePlaylist{
						{ID: "p1", Name: "Recents", Owner: Owner{ID: "alice"}},
						{ID: "p2", Name: "Followed", Owner: Owner{ID: "bob"}},
					},
					Next: &next,
				})
				return
			}
			json.NewEncoder(w).Encode(SpotifyPaginatedPlaylists{
				Items: []SpotifySimplePlaylist{
					{ID: "p3", Name: "Decades", Owner: Owner{ID: "alice"}},
					{ID: "p4", Name: "Recents", Owner: Owner{ID: "alice"}},
				},
			})
		}))

		names, err := srv.PlaylistNames(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(names) != 2 {
			t.Fatalf("expected 2 owned names, got %v", names)
		}
		if names["Recents"] != "p1" {
			t.Errorf("expected first listed Recents to win, got %s", names["Recents"])
		}
		if names["Decades"] != "p3" {
			t.Errorf("expected Decades from second page, got %s", names["Decades"])
		}
		if _, ok := names["Followed"]; ok {
			t.Error("expected playlists owned by others to be skipped")
		}
	})

	t.Run("PlaylistMembership", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/playlists/pl1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("fields") != membershipFields {
				t.Errorf("expected field-limited fetch, got %q", r.URL.Query().Get("fields"))
			}

			if r.URL.Query().Get("offset") == "0" {
				q := url.Values{}
				q.Set("fields", membershipFields)
				q.Set("limit", "100")
				q.Set("offset", "100")
				next := fmt.Sprintf("http://%s/v1/playlists/pl1/tracks?%s", r.Host, q.Encode())
				json.NewEncoder(w).Encode(SpotifyPlaylistItems{
					Items: []SpotifyPlaylistItem{
						{AddedAt: "2024-01-02T00:00:00Z", Track: &SpotifyTrack{URI: "spotify:track:a"}},
						{AddedAt: "2024-01-01T00:00:00Z", Track: nil},
					},
					Next: &next,
				})
				return
			}
			w.Write([]byte(`{"items":[{"added_at":"2024-01-03T00:00:00Z","track":{"uri":"spotify:track:b"}}],"next":null}`))
		}))
		logs := &bytes.Buffer{}
		srv.logger = shared.NewLogger(logs)

		records, err := srv.PlaylistMembership(context.Background(), "pl1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].TrackID != "spotify:track:a" || records[0].Position != 0 {
			t.Errorf("unexpected first record %+v", records[0])
		}
		if records[1].TrackID != "spotify:track:b" || records[1].Position != 1 {
			t.Errorf("unexpected second record %+v", records[1])
		}
		if !records[1].AddedAt.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected added_at %v", records[1].AddedAt)
		}
		if !strings.Contains(logs.String(), "unavailable entries") || !strings.Contains(logs.String(), "skipped=1") {
			t.Errorf("expected a warning about the unavailable entry, got %q", logs.String())
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		var body map[string]any
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.URL.Path != "/v1/users/alice/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(SpotifySimplePlaylist{ID: "new1"})
		}))

		id, err := srv.CreatePlaylist(context.Background(), "Recents", "Recently added music", models.Private)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "new1" {
			t.Errorf("expected id new1, got %s", id)
		}
		if body["name"] != "Recents" || body["description"] != "Recently added music" || body["public"] != false {
			t.Errorf("unexpected request body %v", body)
		}
	})

	t.Run("AddTracks", func(t *testing.T) {
		t.Run("posts uris", func(t *testing.T) {
			var body struct {
				URIs []string `json:"uris"`
			}
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/v1/playlists/pl1/tracks" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				json.NewDecoder(r.Body).Decode(&body)
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"snapshot_id":"s1"}`))
			}))

			err := srv.AddTracks(context.Background(), "pl1", []models.TrackID{"spotify:track:a", "spotify:track:b"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(body.URIs) != 2 || body.URIs[1] != "spotify:track:b" {
				t.Errorf("unexpected uris %v", body.URIs)
			}
		})

		t.Run("rejects oversized batch", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}))

			ids := make([]models.TrackID, 101)
			err := srv.AddTracks(context.Background(), "pl1", ids)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("empty batch is a no-op", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}))

			if err := srv.AddTracks(context.Background(), "pl1", nil); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	})

	t.Run("RemoveTracks", func(t *testing.T) {
		var raw []byte
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("expected DELETE, got %s", r.Method)
			}
			raw, _ = io.ReadAll(r.Body)
			w.Write([]byte(`{"snapshot_id":"s2"}`))
		}))

		err := srv.RemoveTracks(context.Background(), "pl1", []models.TrackID{"spotify:track:a"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(raw) != `{"tracks":[{"uri":"spotify:track:a"}]}` {
			t.Errorf("unexpected body %s", raw)
		}
	})

	t.Run("SearchArtist", func(t *testing.T) {
		t.Run("first result wins", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("q") != "Nina Simone" || q.Get("type") != "artist" || q.Get("limit") != "1" {
					t.Errorf("unexpected query %v", q)
				}
				w.Write([]byte(`{"artists":{"items":[{"id":"first"},{"id":"second"}]}}`))
			}))

			id, err := srv.SearchArtist(context.Background(), "Nina Simone")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if id != "first" {
				t.Errorf("expected first, got %s", id)
			}
		})

		t.Run("no results", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"artists":{"items":[]}}`))
			}))

			_, err := srv.SearchArtist(context.Background(), "Nobody")
			if !errors.Is(err, shared.ErrArtistNotFound) {
				t.Errorf("expected ErrArtistNotFound, got %v", err)
			}
		})
	})

	t.Run("Errors", func(t *testing.T) {
		t.Run("non-success status is a CatalogError", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":{"status":403,"message":"Insufficient client scope"}}`))
			}))

			err := srv.AddTracks(context.Background(), "pl1", []models.TrackID{"spotify:track:a"})

			var catalogErr *CatalogError
			if !errors.As(err, &catalogErr) {
				t.Fatalf("expected CatalogError, got %v", err)
			}
			if catalogErr.StatusCode != http.StatusForbidden {
				t.Errorf("expected status 403, got %d", catalogErr.StatusCode)
			}
			if catalogErr.Op != "addTracks" {
				t.Errorf("expected op addTracks, got %s", catalogErr.Op)
			}
			if catalogErr.Message != "Insufficient client scope" {
				t.Errorf("unexpected message %q", catalogErr.Message)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected CatalogError to unwrap to ErrAPIRequest")
			}
		})

		t.Run("non-JSON error body", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream down"))
			}))

			_, err := srv.PlaylistNames(context.Background())

			var catalogErr *CatalogError
			if !errors.As(err, &catalogErr) {
				t.Fatalf("expected CatalogError, got %v", err)
			}
			if !strings.Contains(err.Error(), "status 502") {
				t.Errorf("expected status in message, got %v", err)
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials, SpotifyOpts{
				BaseURL:    "http://example.com/v1",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))},
				RateLimit:  1000,
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = srv.SearchArtist(context.Background(), "X")
			if err == nil || !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("body read failure", func(t *testing.T) {
			response := &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       &tu.FCloser{},
			}
			srv, err := NewSpotifyService(testCredentials, SpotifyOpts{
				BaseURL:    "http://example.com/v1",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(response, nil)},
				RateLimit:  1000,
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = srv.SearchArtist(context.Background(), "X")
			if err == nil || !strings.Contains(err.Error(), "read failed") {
				t.Errorf("expected read error, got %v", err)
			}
		})

		t.Run("malformed response body", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			}))

			_, err := srv.SearchArtist(context.Background(), "X")
			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})

		t.Run("cancelled context", func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := srv.SearchArtist(ctx, "X"); err == nil {
				t.Error("expected error for cancelled context")
			}
		})
	})
}

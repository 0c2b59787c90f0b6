// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

// ErrMock is returned by [MockCatalog] for injected failures without an explicit error.
var ErrMock = errors.New("mock catalog failure")

type failure struct {
	call int // 1-based call to fail on, 0 fails every call
	err  error
}

// MockPlaylist is a playlist held by [MockCatalog].
type MockPlaylist struct {
	ID          string
	Name        string
	Description string
	Visibility  models.Visibility
	Owner       string
	Records     []models.MembershipRecord
}

// MockCatalog is an in-memory test double for [services.Catalog].
//
// Library is ordered most recently saved first. Added tracks are stamped with Clock, which advances a minute per call.
type MockCatalog struct {
	mu sync.Mutex

	Library   []models.SavedTrack
	PageSize  int
	Artists   map[string]string // artist name to id
	Username  string
	Clock     time.Time
	playlists []*MockPlaylist
	nextID    int
	failures  map[string]failure

	Calls       map[string]int
	AddBatches  [][]models.TrackID
	RemBatches  [][]models.TrackID
	Created     []string
	ScannedPage int
}

// NewMockCatalog returns a catalog holding library, most recent first.
func NewMockCatalog(library ...models.SavedTrack) *MockCatalog {
	return &MockCatalog{
		Library:  library,
		PageSize: 50,
		Artists:  map[string]string{},
		Username: "tester",
		Clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		failures: map[string]failure{},
		Calls:    map[string]int{},
	}
}

// Track builds a saved track with the given release date and artists.
func Track(id, releaseDate string, artistIDs ...string) models.SavedTrack {
	return models.SavedTrack{ID: models.TrackID(id), Name: id, ReleaseDate: releaseDate, ArtistIDs: artistIDs}
}

// IDs converts strings to track ids.
func IDs(ids ...string) []models.TrackID {
	out := make([]models.TrackID, len(ids))
	for i, id := range ids {
		out[i] = models.TrackID(id)
	}
	return out
}

// Fail makes op fail on its nth call (1-based), or on every call when n is 0. A nil err means [ErrMock].
func (m *MockCatalog) Fail(op string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = ErrMock
	}
	m.failures[op] = failure{call: n, err: err}
}

// AddPlaylist seeds a playlist owned by the account and returns its id. Tracks get ascending added_at times.
func (m *MockCatalog) AddPlaylist(name string, tracks ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.newPlaylist(name, "", models.Private)
	for _, id := range tracks {
		p.Records = append(p.Records, models.MembershipRecord{
			TrackID:  models.TrackID(id),
			AddedAt:  m.tick(),
			Position: len(p.Records),
		})
	}
	return p.ID
}

// AddForeignPlaylist seeds a followed playlist owned by someone else.
func (m *MockCatalog) AddForeignPlaylist(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.newPlaylist(name, "", models.Private)
	p.Owner = "someone-else"
	return p.ID
}

// Playlist returns the playlist with id, or nil.
func (m *MockCatalog) Playlist(id string) *MockPlaylist {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

// Members returns the track ids currently in playlist id, in order.
func (m *MockCatalog) Members(id string) []models.TrackID {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.find(id)
	if p == nil {
		return nil
	}
	out := make([]models.TrackID, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.TrackID
	}
	return out
}

func (m *MockCatalog) newPlaylist(name, description string, visibility models.Visibility) *MockPlaylist {
	m.nextID++
	p := &MockPlaylist{
		ID:          fmt.Sprintf("pl%d", m.nextID),
		Name:        name,
		Description: description,
		Visibility:  visibility,
		Owner:       m.Username,
	}
	m.playlists = append(m.playlists, p)
	return p
}

func (m *MockCatalog) find(id string) *MockPlaylist {
	for _, p := range m.playlists {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *MockCatalog) tick() time.Time {
	m.Clock = m.Clock.Add(time.Minute)
	return m.Clock
}

// call records op and returns the injected failure for this call, if any.
func (m *MockCatalog) call(op string) error {
	m.Calls[op]++
	f, ok := m.failures[op]
	if !ok {
		return nil
	}
	if f.call == 0 || f.call == m.Calls[op] {
		return f.err
	}
	return nil
}

func (m *MockCatalog) RecentlySaved(ctx context.Context, count int) ([]models.TrackID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("listRecentlySaved"); err != nil {
		return nil, err
	}

	ids := []models.TrackID{}
	for _, t := range m.Library {
		if len(ids) >= count {
			break
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (m *MockCatalog) ScanLibrary(ctx context.Context, fn func(page []models.SavedTrack) error) error {
	size := m.PageSize
	if size <= 0 {
		size = 50
	}

	for start := 0; start < len(m.Library); start += size {
		m.mu.Lock()
		err := m.call("scanLibrary")
		m.ScannedPage++
		m.mu.Unlock()
		if err != nil {
			return err
		}

		end := min(start+size, len(m.Library))
		page := make([]models.SavedTrack, end-start)
		copy(page, m.Library[start:end])
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockCatalog) PlaylistNames(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("listPlaylistNames"); err != nil {
		return nil, err
	}

	names := map[string]string{}
	for _, p := range m.playlists {
		if p.Owner != m.Username {
			continue
		}
		if _, ok := names[p.Name]; !ok {
			names[p.Name] = p.ID
		}
	}
	return names, nil
}

func (m *MockCatalog) PlaylistMembership(ctx context.Context, playlistID string) ([]models.MembershipRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("listPlaylistMembership"); err != nil {
		return nil, err
	}

	p := m.find(playlistID)
	if p == nil {
		return nil, fmt.Errorf("%w: no playlist %s", ErrMock, playlistID)
	}
	out := make([]models.MembershipRecord, len(p.Records))
	copy(out, p.Records)
	return out, nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, name, description string, visibility models.Visibility) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("createPlaylist"); err != nil {
		return "", err
	}

	p := m.newPlaylist(name, description, visibility)
	m.Created = append(m.Created, p.ID)
	return p.ID, nil
}

func (m *MockCatalog) AddTracks(ctx context.Context, playlistID string, ids []models.TrackID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("addTracks"); err != nil {
		return err
	}

	p := m.find(playlistID)
	if p == nil {
		return fmt.Errorf("%w: no playlist %s", ErrMock, playlistID)
	}
	m.AddBatches = append(m.AddBatches, append([]models.TrackID(nil), ids...))
	for _, id := range ids {
		p.Records = append(p.Records, models.MembershipRecord{TrackID: id, AddedAt: m.tick()})
	}
	reindex(p)
	return nil
}

func (m *MockCatalog) RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("removeTracks"); err != nil {
		return err
	}

	p := m.find(playlistID)
	if p == nil {
		return fmt.Errorf("%w: no playlist %s", ErrMock, playlistID)
	}
	m.RemBatches = append(m.RemBatches, append([]models.TrackID(nil), ids...))

	drop := make(map[models.TrackID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := p.Records[:0]
	for _, r := range p.Records {
		if !drop[r.TrackID] {
			kept = append(kept, r)
		}
	}
	p.Records = kept
	reindex(p)
	return nil
}

func reindex(p *MockPlaylist) {
	for i := range p.Records {
		p.Records[i].Position = i
	}
}

func (m *MockCatalog) SearchArtist(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("searchArtist"); err != nil {
		return "", err
	}

	id, ok := m.Artists[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", shared.ErrArtistNotFound, name)
	}
	return id, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteFile writes content to name inside a fresh temp dir and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + string(os.PathSeparator) + name
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

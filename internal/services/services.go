// package services defines interface Catalog for interacting with the remote music catalog
package services

import (
	"context"

	"github.com/desertthunder/mixsync/internal/models"
)

// PageFunc receives one page of saved tracks during a library scan. Returning an error stops the scan.
type PageFunc = func(page []models.SavedTrack) error

// Catalog defines the operations consumed from a music catalog provider.
type Catalog interface {
	// RecentlySaved returns up to count saved track ids, most recently saved first.
	// Fewer ids are returned when the library is smaller.
	RecentlySaved(ctx context.Context, count int) ([]models.TrackID, error)

	// ScanLibrary walks the whole saved-track library, calling fn with each page until the cursor is exhausted.
	ScanLibrary(ctx context.Context, fn PageFunc) error

	// PlaylistNames maps the names of playlists owned by the account to their ids.
	PlaylistNames(ctx context.Context) (map[string]string, error)

	// PlaylistMembership lists the tracks in a playlist in fetch order.
	PlaylistMembership(ctx context.Context, playlistID string) ([]models.MembershipRecord, error)

	// CreatePlaylist creates a playlist and returns its id.
	CreatePlaylist(ctx context.Context, name, description string, visibility models.Visibility) (string, error)

	// AddTracks appends at most [shared.MaxBatchSize] tracks to a playlist.
	AddTracks(ctx context.Context, playlistID string, ids []models.TrackID) error

	// RemoveTracks removes at most [shared.MaxBatchSize] tracks from a playlist.
	RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) error

	// SearchArtist returns the id of the first artist matching name.
	SearchArtist(ctx context.Context, name string) (string, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

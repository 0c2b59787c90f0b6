// package models defines the data model for rule-driven playlists
package models

import (
	"fmt"
	"time"
)

// TrackID is an opaque, globally unique track identifier (a catalog track URI).
type TrackID string

// SavedTrack is a track in the user's saved library.
type SavedTrack struct {
	ID          TrackID
	Name        string
	ArtistIDs   []string
	ReleaseDate string // "2006", "2006-03" or "2006-03-14"
	AddedAt     time.Time
}

// MembershipRecord describes one track currently in a playlist.
type MembershipRecord struct {
	TrackID  TrackID
	AddedAt  time.Time
	Position int // Index in fetch order
}

// Visibility of a playlist on the account.
type Visibility int

const (
	Private Visibility = iota
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

// ParseVisibility maps "public"/"private" (or empty, meaning private) to a [Visibility].
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "private":
		return Private, nil
	case "public":
		return Public, nil
	default:
		return Private, fmt.Errorf("unknown visibility %q", s)
	}
}

// PlaylistDescriptor identifies the playlist a rule writes into.
//
// Name is the idempotency key: RemoteID is assigned by the catalog on first creation and re-resolved by name afterwards.
type PlaylistDescriptor struct {
	Name        string
	Description string
	Visibility  Visibility
	RemoteID    string
}

// Exists reports whether the playlist has been resolved to a remote playlist.
func (d PlaylistDescriptor) Exists() bool {
	return d.RemoteID != ""
}

// PlaylistSummary is a playlist owned by the account, as listed by the catalog.
type PlaylistSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

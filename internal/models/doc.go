// Package models defines the domain types shared by the rule resolver, the reconciler and the catalog client.
//
//   - [TrackID] : opaque catalog identifier for a track, compared by exact string match
//   - [TrackSet] : insertion-ordered set of [TrackID]
//   - [SavedTrack] : a library entry as seen during a full library scan
//   - [MembershipRecord] : one entry of a playlist, with the time it was added
//   - [PlaylistDescriptor] : the playlist a rule writes into, keyed by name
//
// Ordering inside a [TrackSet] carries no meaning for reconciliation.
// It only keeps batches and CLI output stable between runs.
package models

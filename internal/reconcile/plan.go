// package reconcile computes and applies the changes that bring a playlist to its target membership
package reconcile

import (
	"sort"

	"github.com/desertthunder/mixsync/internal/models"
)

// Plan is the change set for one playlist. ToAdd and ToRemove never share an id.
type Plan struct {
	ToAdd    []models.TrackID `json:"to_add"`
	ToRemove []models.TrackID `json:"to_remove"`
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Diff returns the ids in target missing from current, in target order.
func Diff(target, current models.TrackSet) []models.TrackID {
	return target.Difference(current)
}

// Members collapses membership records into a set, keeping the first occurrence of each track.
func Members(records []models.MembershipRecord) (models.TrackSet, []models.MembershipRecord) {
	var set models.TrackSet
	unique := make([]models.MembershipRecord, 0, len(records))
	for _, r := range records {
		if set.Add(r.TrackID) {
			unique = append(unique, r)
		}
	}
	return set, unique
}

// Compute plans the changes that move current toward target.
//
// With window > 0 the playlist is bounded: after adding the missing tracks, the oldest entries by AddedAt
// are evicted until it holds at most window entries. Ties on AddedAt go to the earlier Position.
// Removal is by track id and drops every copy of a duplicated track, so eviction may go below the window.
// Targets larger than the window only contribute their first window tracks.
// A window of 0 or less leaves existing tracks alone.
func Compute(target models.TrackSet, current []models.MembershipRecord, window int) Plan {
	currentSet, unique := Members(current)
	plan := Plan{
		ToAdd:    Diff(target, currentSet),
		ToRemove: []models.TrackID{},
	}
	if window <= 0 {
		return plan
	}
	if len(plan.ToAdd) > window {
		plan.ToAdd = plan.ToAdd[:window]
	}

	numRemove := len(current) + len(plan.ToAdd) - window
	if numRemove <= 0 {
		return plan
	}

	copies := make(map[models.TrackID]int, len(unique))
	for _, r := range current {
		copies[r.TrackID]++
	}

	oldest := make([]models.MembershipRecord, len(unique))
	copy(oldest, unique)
	sort.SliceStable(oldest, func(i, j int) bool {
		if !oldest[i].AddedAt.Equal(oldest[j].AddedAt) {
			return oldest[i].AddedAt.Before(oldest[j].AddedAt)
		}
		return oldest[i].Position < oldest[j].Position
	})

	removed := 0
	for _, r := range oldest {
		if removed >= numRemove {
			break
		}
		plan.ToRemove = append(plan.ToRemove, r.TrackID)
		removed += copies[r.TrackID]
	}
	return plan
}

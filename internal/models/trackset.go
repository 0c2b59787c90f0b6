package models

// TrackSet is a set of [TrackID] that remembers insertion order.
//
// The zero value is an empty set ready to use.
type TrackSet struct {
	ids   []TrackID
	index map[TrackID]struct{}
}

// NewTrackSet builds a set from ids, dropping duplicates.
func NewTrackSet(ids ...TrackID) TrackSet {
	var s TrackSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s *TrackSet) Add(id TrackID) bool {
	if s.index == nil {
		s.index = make(map[TrackID]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Has reports whether id is in the set.
func (s TrackSet) Has(id TrackID) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of ids.
func (s TrackSet) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the ids in insertion order.
func (s TrackSet) IDs() []TrackID {
	out := make([]TrackID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Difference returns the ids of s not present in other, in insertion order.
func (s TrackSet) Difference(other TrackSet) []TrackID {
	out := []TrackID{}
	for _, id := range s.ids {
		if !other.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

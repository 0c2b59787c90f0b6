// package rules turns playlist rule definitions into target track sets
package rules

import "fmt"

// Kind enumerates the rule variants.
type Kind int

const (
	KindRecency Kind = iota
	KindArtistSet
	KindDateRange
	kindCount
)

// Kinds lists every rule kind.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) String() string {
	switch k {
	case KindRecency:
		return "Recency"
	case KindArtistSet:
		return "ArtistSet"
	case KindDateRange:
		return "DateRange"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Rule is a membership rule. The variants are [RecencyRule], [ArtistSetRule] and [DateRangeRule].
type Rule interface {
	Kind() Kind
	// Window is the membership bound, or 0 when the rule is unbounded.
	Window() int
	fmt.Stringer
	sealed()
}

// RecencyRule keeps the WindowSize most recently saved tracks.
type RecencyRule struct {
	WindowSize int
}

func (RecencyRule) Kind() Kind       { return KindRecency }
func (r RecencyRule) Window() int    { return r.WindowSize }
func (RecencyRule) sealed()          {}
func (r RecencyRule) String() string { return fmt.Sprintf("last %d saved tracks", r.WindowSize) }

// ArtistSetRule collects every saved track by any of ArtistNames.
type ArtistSetRule struct {
	ArtistNames []string
}

func (ArtistSetRule) Kind() Kind  { return KindArtistSet }
func (ArtistSetRule) Window() int { return 0 }
func (ArtistSetRule) sealed()     {}
func (r ArtistSetRule) String() string {
	return fmt.Sprintf("saved tracks by %d artist(s)", len(r.ArtistNames))
}

// DateRangeRule collects every saved track released between YearStart and YearEnd, inclusive.
type DateRangeRule struct {
	YearStart int
	YearEnd   int
}

func (DateRangeRule) Kind() Kind  { return KindDateRange }
func (DateRangeRule) Window() int { return 0 }
func (DateRangeRule) sealed()     {}
func (r DateRangeRule) String() string {
	return fmt.Sprintf("saved tracks released %d-%d", r.YearStart, r.YearEnd)
}

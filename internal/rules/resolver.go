package rules

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/services"
	"github.com/desertthunder/mixsync/internal/shared"
)

// yearPattern matches the first four-digit year in 1000-3999 not embedded in a longer digit run.
var yearPattern = regexp.MustCompile(`(?:^|[^0-9])([1-3][0-9]{3})(?:[^0-9]|$)`)

// ReleaseYear extracts the release year from a catalog release date such as "2006", "2006-03" or "2006-03-14".
func ReleaseYear(date string) (int, error) {
	m := yearPattern.FindStringSubmatch(date)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", shared.ErrInvalidReleaseDate, date)
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", shared.ErrInvalidReleaseDate, date)
	}
	return year, nil
}

// Resolver computes the target track set of a [Rule] from the catalog.
type Resolver struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewResolver creates a resolver. A nil logger discards output.
func NewResolver(catalog services.Catalog, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve returns the tracks rule selects. Any catalog failure aborts with no partial result.
func (r *Resolver) Resolve(ctx context.Context, rule Rule) (models.TrackSet, error) {
	switch rule := rule.(type) {
	case RecencyRule:
		return r.recency(ctx, rule)
	case ArtistSetRule:
		return r.artistSet(ctx, rule)
	case DateRangeRule:
		return r.dateRange(ctx, rule)
	default:
		return models.TrackSet{}, fmt.Errorf("%w: unsupported rule %T", shared.ErrInvalidRule, rule)
	}
}

func (r *Resolver) recency(ctx context.Context, rule RecencyRule) (models.TrackSet, error) {
	ids, err := r.catalog.RecentlySaved(ctx, rule.WindowSize)
	if err != nil {
		return models.TrackSet{}, err
	}
	if len(ids) < rule.WindowSize {
		r.logger.Debug("library smaller than window", "window", rule.WindowSize, "saved", len(ids))
	}
	return models.NewTrackSet(ids...), nil
}

func (r *Resolver) artistSet(ctx context.Context, rule ArtistSetRule) (models.TrackSet, error) {
	wanted := make(map[string]bool, len(rule.ArtistNames))
	for _, name := range rule.ArtistNames {
		id, err := r.catalog.SearchArtist(ctx, name)
		if err != nil {
			return models.TrackSet{}, err
		}
		r.logger.Debug("resolved artist", "name", name, "id", id)
		wanted[id] = true
	}

	return r.scan(ctx, func(acc models.TrackSet, track models.SavedTrack) (models.TrackSet, error) {
		for _, artistID := range track.ArtistIDs {
			if wanted[artistID] {
				acc.Add(track.ID)
				break
			}
		}
		return acc, nil
	})
}

func (r *Resolver) dateRange(ctx context.Context, rule DateRangeRule) (models.TrackSet, error) {
	return r.scan(ctx, func(acc models.TrackSet, track models.SavedTrack) (models.TrackSet, error) {
		year, err := ReleaseYear(track.ReleaseDate)
		if err != nil {
			return acc, fmt.Errorf("track %s: %w", track.ID, err)
		}
		if rule.YearStart <= year && year <= rule.YearEnd {
			acc.Add(track.ID)
		}
		return acc, nil
	})
}

type step func(acc models.TrackSet, track models.SavedTrack) (models.TrackSet, error)

// scan folds every saved track into an accumulator threaded through the page callback.
func (r *Resolver) scan(ctx context.Context, fn step) (models.TrackSet, error) {
	var acc models.TrackSet
	scanned := 0

	err := r.catalog.ScanLibrary(ctx, func(page []models.SavedTrack) error {
		for _, track := range page {
			next, err := fn(acc, track)
			if err != nil {
				return err
			}
			acc = next
		}
		scanned += len(page)
		return nil
	})
	if err != nil {
		return models.TrackSet{}, err
	}

	r.logger.Debug("library scanned", "tracks", scanned, "matched", acc.Len())
	return acc, nil
}

package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

// Writer is the part of the catalog an [Applier] mutates.
type Writer interface {
	AddTracks(ctx context.Context, playlistID string, ids []models.TrackID) error
	RemoveTracks(ctx context.Context, playlistID string, ids []models.TrackID) error
}

// ApplyResult lists what the catalog confirmed.
type ApplyResult struct {
	Removed []models.TrackID `json:"removed"`
	Added   []models.TrackID `json:"added"`
	Batches int              `json:"batches"`
}

// PartialApplyError reports a plan that failed after some batches were already applied.
//
// Removed and Added were confirmed. Attempted is the batch that failed; its outcome on the catalog is unknown.
// Skipped were never sent.
type PartialApplyError struct {
	Op        string
	Removed   []models.TrackID
	Added     []models.TrackID
	Attempted []models.TrackID
	Skipped   []models.TrackID
	Err       error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("%s failed after %d removed and %d added (%d attempted, %d skipped): %v",
		e.Op, len(e.Removed), len(e.Added), len(e.Attempted), len(e.Skipped), e.Err)
}

func (e *PartialApplyError) Unwrap() []error {
	return []error{shared.ErrPartialApply, e.Err}
}

// Details renders the breakdown of a partial apply, one line per group.
func (e *PartialApplyError) Details() string {
	var b strings.Builder
	group := func(label string, ids []models.TrackID) {
		fmt.Fprintf(&b, "%s (%d):", label, len(ids))
		for _, id := range ids {
			fmt.Fprintf(&b, " %s", id)
		}
		b.WriteString("\n")
	}
	group("removed", e.Removed)
	group("added", e.Added)
	group("attempted", e.Attempted)
	group("skipped", e.Skipped)
	return b.String()
}

// Batches splits ids into consecutive chunks of at most size.
func Batches(ids []models.TrackID, size int) [][]models.TrackID {
	if size <= 0 {
		size = shared.MaxBatchSize
	}
	var out [][]models.TrackID
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}

// Applier writes a [Plan] to the catalog in bounded batches, removals first.
type Applier struct {
	writer    Writer
	batchSize int
	logger    *log.Logger
}

// NewApplier creates an applier. batchSize outside 1-100 means 100.
func NewApplier(w Writer, batchSize int, logger *log.Logger) *Applier {
	if batchSize <= 0 || batchSize > shared.MaxBatchSize {
		batchSize = shared.MaxBatchSize
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Applier{writer: w, batchSize: batchSize, logger: logger}
}

type batchFunc func(ctx context.Context, playlistID string, ids []models.TrackID) error

// Apply removes then adds the plan's tracks on playlistID.
//
// A failing batch stops everything after it, including the adds when a removal fails.
func (a *Applier) Apply(ctx context.Context, playlistID string, plan Plan) (*ApplyResult, error) {
	result := &ApplyResult{Removed: []models.TrackID{}, Added: []models.TrackID{}}

	removeBatches := Batches(plan.ToRemove, a.batchSize)
	addBatches := Batches(plan.ToAdd, a.batchSize)

	if i, err := a.run(ctx, "removeTracks", playlistID, removeBatches, a.writer.RemoveTracks, &result.Removed, result); err != nil {
		return result, a.fail("removeTracks", err, result, removeBatches[i], append(flatten(removeBatches[i+1:]), plan.ToAdd...))
	}
	if i, err := a.run(ctx, "addTracks", playlistID, addBatches, a.writer.AddTracks, &result.Added, result); err != nil {
		return result, a.fail("addTracks", err, result, addBatches[i], flatten(addBatches[i+1:]))
	}

	return result, nil
}

// run sends batches in order, returning the index of the failing batch.
func (a *Applier) run(ctx context.Context, op, playlistID string, batches [][]models.TrackID, fn batchFunc, confirmed *[]models.TrackID, result *ApplyResult) (int, error) {
	for i, batch := range batches {
		if err := fn(ctx, playlistID, batch); err != nil {
			a.logger.Error("batch failed", "op", op, "playlist", playlistID, "batch", i+1, "of", len(batches), "error", err)
			return i, err
		}
		*confirmed = append(*confirmed, batch...)
		result.Batches++
		a.logger.Debug("batch applied", "op", op, "playlist", playlistID, "batch", i+1, "of", len(batches), "tracks", len(batch))
	}
	return 0, nil
}

func (a *Applier) fail(op string, err error, result *ApplyResult, attempted, skipped []models.TrackID) error {
	if result.Batches == 0 {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &PartialApplyError{
		Op:        op,
		Removed:   result.Removed,
		Added:     result.Added,
		Attempted: attempted,
		Skipped:   skipped,
		Err:       err,
	}
}

func flatten(batches [][]models.TrackID) []models.TrackID {
	out := []models.TrackID{}
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

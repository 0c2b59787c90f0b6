package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/reconcile"
	"github.com/desertthunder/mixsync/internal/rules"
	"github.com/desertthunder/mixsync/internal/services"
	"github.com/desertthunder/mixsync/internal/shared"
)

// SyncResult describes one rule run.
type SyncResult struct {
	RunID    string                    `json:"run_id"`
	RuleID   int                       `json:"rule_id"`
	Rule     string                    `json:"rule"`
	Kind     string                    `json:"kind"`
	Playlist models.PlaylistDescriptor `json:"playlist"`
	Target   int                       `json:"target"`  // Size of the resolved target set
	Current  int                       `json:"current"` // Tracks in the playlist before applying
	Plan     reconcile.Plan            `json:"plan"`
	Applied  *reconcile.ApplyResult    `json:"applied,omitempty"` // nil for dry runs
	DryRun   bool                      `json:"dry_run"`
}

// SyncEngine defines the rule sync operations.
type SyncEngine interface {
	// Run converges the playlist of rule ruleID with its target set.
	Run(ctx context.Context, ruleID int, progress chan<- ProgressUpdate) (*SyncResult, error)

	// Plan computes what Run would change without writing to the catalog.
	Plan(ctx context.Context, ruleID int, progress chan<- ProgressUpdate) (*SyncResult, error)

	// RunAll runs every rule in definition order and stops at the first error.
	RunAll(ctx context.Context, progress chan<- ProgressUpdate) ([]*SyncResult, error)
}

// EngineOpts configures a [PlaylistEngine].
type EngineOpts struct {
	BatchSize int // Tracks per add/remove call, at most 100
	Logger    *log.Logger
}

// PlaylistEngine implements SyncEngine over a catalog and a rule registry.
type PlaylistEngine struct {
	registry *rules.Registry
	catalog  services.Catalog
	resolver *rules.Resolver
	applier  *reconcile.Applier
	logger   *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine.
func NewPlaylistEngine(catalog services.Catalog, registry *rules.Registry, opts EngineOpts) *PlaylistEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}
	return &PlaylistEngine{
		registry: registry,
		catalog:  catalog,
		resolver: rules.NewResolver(catalog, opts.Logger),
		applier:  reconcile.NewApplier(catalog, opts.BatchSize, opts.Logger),
		logger:   opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run converges one rule's playlist.
func (e *PlaylistEngine) Run(ctx context.Context, ruleID int, progress chan<- ProgressUpdate) (*SyncResult, error) {
	return e.sync(ctx, ruleID, false, progress)
}

// Plan is a dry run of [PlaylistEngine.Run].
func (e *PlaylistEngine) Plan(ctx context.Context, ruleID int, progress chan<- ProgressUpdate) (*SyncResult, error) {
	return e.sync(ctx, ruleID, true, progress)
}

// RunAll runs every rule in definition order.
func (e *PlaylistEngine) RunAll(ctx context.Context, progress chan<- ProgressUpdate) ([]*SyncResult, error) {
	if e.registry == nil {
		return nil, fmt.Errorf("%w: rule registry not initialized", shared.ErrServiceUnavailable)
	}

	defs := e.registry.Definitions()
	results := make([]*SyncResult, 0, len(defs))
	for i, def := range defs {
		e.sendProgress(progress, ruleStartedUpdate(i+1, len(defs), def))

		result, err := e.Run(ctx, def.ID, progress)
		if err != nil {
			return results, fmt.Errorf("rule %d (%s): %w", def.ID, def.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *PlaylistEngine) sync(ctx context.Context, ruleID int, dryRun bool, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if e.catalog == nil || e.registry == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	result := &SyncResult{RunID: shared.GenerateID(), RuleID: ruleID, DryRun: dryRun}
	logger := shared.WithLogger(e.logger, "run", result.RunID, "rule", ruleID)

	e.sendProgress(progress, lookupUpdate(ruleID, dryRun))

	var (
		rule rules.Rule
		desc models.PlaylistDescriptor
		err  error
	)
	if dryRun {
		rule, desc, err = e.registry.Peek(ctx, ruleID)
	} else {
		rule, desc, err = e.registry.Lookup(ctx, ruleID)
	}
	if err != nil {
		return nil, err
	}
	result.Rule = rule.String()
	result.Kind = rule.Kind().String()
	result.Playlist = desc
	logger.Info("rule loaded", "kind", result.Kind, "playlist", desc.Name, "id", desc.RemoteID)

	e.sendProgress(progress, resolveUpdate(rule))
	target, err := e.resolver.Resolve(ctx, rule)
	if err != nil {
		return nil, err
	}
	result.Target = target.Len()
	e.sendProgress(progress, resolvedUpdate(target.Len()))

	var current []models.MembershipRecord
	if desc.Exists() {
		e.sendProgress(progress, membershipUpdate(desc))
		current, err = e.catalog.PlaylistMembership(ctx, desc.RemoteID)
		if err != nil {
			return nil, err
		}
	}
	result.Current = len(current)

	result.Plan = reconcile.Compute(target, current, rule.Window())
	e.sendProgress(progress, planUpdate(result.Plan))
	logger.Info("plan computed", "target", result.Target, "current", result.Current,
		"add", len(result.Plan.ToAdd), "remove", len(result.Plan.ToRemove))

	if dryRun {
		return result, nil
	}

	applied, err := e.applier.Apply(ctx, desc.RemoteID, result.Plan)
	result.Applied = applied
	if err != nil {
		return result, err
	}

	e.sendProgress(progress, appliedUpdate(desc, applied))
	logger.Info("playlist synced", "added", len(applied.Added), "removed", len(applied.Removed), "batches", applied.Batches)
	return result, nil
}

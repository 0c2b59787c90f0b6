package tasks

import (
	"fmt"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/reconcile"
	"github.com/desertthunder/mixsync/internal/rules"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	LookupRule Phase = iota
	ResolveTracks
	FetchMembership
	ComputePlan
	ApplyPlan
	RunRule
)

func (p Phase) String() string {
	switch p {
	case LookupRule:
		return "lookup_rule"
	case ResolveTracks:
		return "resolve_tracks"
	case FetchMembership:
		return "fetch_membership"
	case ComputePlan:
		return "compute_plan"
	case ApplyPlan:
		return "apply_plan"
	case RunRule:
		return "run_rule"
	default:
		return ""
	}
}

func lookupUpdate(ruleID int, dryRun bool) ProgressUpdate {
	msg := fmt.Sprintf("Looking up rule %d...", ruleID)
	if dryRun {
		msg = fmt.Sprintf("Looking up rule %d (dry run)...", ruleID)
	}
	return ProgressUpdate{Phase: LookupRule, Step: 1, Total: 1, Message: msg}
}

func ruleStartedUpdate(step, total int, def rules.Definition) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RunRule,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, def.Name),
		Data:    def,
	}
}

func resolveUpdate(rule rules.Rule) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Resolving %s...", rule),
		Data:    rule,
	}
}

func resolvedUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolved %d target tracks", n),
	}
}

func membershipUpdate(desc models.PlaylistDescriptor) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMembership,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching current tracks of %s...", desc.Name),
		Data:    desc,
	}
}

func planUpdate(plan reconcile.Plan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ComputePlan,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d to add, %d to remove", len(plan.ToAdd), len(plan.ToRemove)),
		Data:    plan,
	}
}

func appliedUpdate(desc models.PlaylistDescriptor, applied *reconcile.ApplyResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyPlan,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s: added %d, removed %d", desc.Name, len(applied.Added), len(applied.Removed)),
		Data:    applied,
	}
}

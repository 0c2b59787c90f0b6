package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/desertthunder/mixsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// selection reads --rule/--all. Exactly one must be given.
func selection(cmd *cli.Command) (int, bool, error) {
	all := cmd.Bool("all")
	hasRule := cmd.IsSet("rule")

	switch {
	case all && hasRule:
		return 0, false, fmt.Errorf("%w: use either --rule or --all", shared.ErrInvalidArgument)
	case !all && !hasRule:
		return 0, false, fmt.Errorf("%w: --rule or --all is required", shared.ErrMissingArgument)
	}
	return int(cmd.Int("rule")), all, nil
}

// progressPrinter writes updates to the output until the returned channel is closed; done closes after the last write.
func (r *Runner) progressPrinter() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.RunRule:
				r.writePlain("\n%s\n", formatter.Styles.Title(update.Message))
			case tasks.ApplyPlan:
				r.writePlain("%s %s\n", formatter.Styles.OK("✓"), update.Message)
			default:
				r.writePlain("  %s\n", formatter.Styles.Muted(update.Message))
			}
		}
	}()

	return progressCh, done
}

// Sync runs one rule or all of them.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	ruleID, all, err := selection(cmd)
	if err != nil {
		return err
	}

	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	r.logger.Info("starting sync", "rule", ruleID, "all", all)

	progressCh, done := r.progressPrinter()
	var results []*tasks.SyncResult
	if all {
		results, err = engine.RunAll(ctx, progressCh)
	} else {
		var result *tasks.SyncResult
		result, err = engine.Run(ctx, ruleID, progressCh)
		if result != nil && err == nil {
			results = append(results, result)
		}
	}
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writeSummary(results)
	return nil
}

func (r *Runner) writeSummary(results []*tasks.SyncResult) {
	r.writePlainln("")
	r.writePlainHeader("Sync Complete!")
	for _, result := range results {
		added, removed := 0, 0
		if result.Applied != nil {
			added, removed = len(result.Applied.Added), len(result.Applied.Removed)
		}
		r.writePlain("%s: %s %s (%d target tracks)\n", result.Playlist.Name,
			formatter.Styles.Added(fmt.Sprintf("+%d", added)),
			formatter.Styles.Removed(fmt.Sprintf("-%d", removed)),
			result.Target)
	}
}

// Plan prints what sync would change.
func (r *Runner) Plan(ctx context.Context, cmd *cli.Command) error {
	ruleID, all, err := selection(cmd)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if _, err := formatter.Render(nil, format); err != nil {
		return err
	}

	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	ids := []int{ruleID}
	if all {
		defs, err := r.definitions()
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, def := range defs {
			ids = append(ids, def.ID)
		}
	}

	results := make([]*tasks.SyncResult, 0, len(ids))
	for _, id := range ids {
		result, err := engine.Plan(ctx, id, nil)
		if err != nil {
			return err
		}
		results = append(results, result)
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(results, format, path); err != nil {
			return err
		}
		r.logger.Info("plan written", "path", path, "format", format)
		r.writePlain("%s Plan saved to: %s\n", formatter.Styles.OK("✓"), path)
		return nil
	}

	data, err := formatter.Render(results, format)
	if err != nil {
		return err
	}
	if err := r.writePlain("%s", data); err != nil {
		return err
	}
	if !strings.HasSuffix(string(data), "\n") {
		return r.writePlain("\n")
	}
	return nil
}

package main

import (
	"context"
	"sort"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/urfave/cli/v3"
)

// Rules lists the rule definitions.
func (r *Runner) Rules(ctx context.Context, cmd *cli.Command) error {
	defs, err := r.definitions()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(defs, true)
	}

	r.writePlainHeader("Rules")
	return r.writePlain("%s", formatter.RulesText(defs))
}

// Playlists lists the playlists owned by the account, sorted by name.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalogService()
	if err != nil {
		return err
	}

	names, err := catalog.PlaylistNames(ctx)
	if err != nil {
		return err
	}

	playlists := make([]models.PlaylistSummary, 0, len(names))
	for name, id := range names {
		playlists = append(playlists, models.PlaylistSummary{ID: id, Name: name})
	}
	sort.Slice(playlists, func(i, j int) bool { return playlists[i].Name < playlists[j].Name })

	r.logger.Debug("listed playlists", "count", len(playlists))

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Playlists")
	return r.writePlain("%s", formatter.PlaylistsText(playlists))
}

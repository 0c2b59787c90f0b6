// package formatter renders sync plans and results to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/rules"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/desertthunder/mixsync/internal/tasks"
)

// Format names accepted by [Render].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Formats lists the names accepted by [Render].
var Formats = []string{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// Render converts results to the named format.
func Render(results []*tasks.SyncResult, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "txt":
		return ExportToText(results)
	case FormatMarkdown, "md":
		return ExportToMarkdown(results)
	case FormatCSV:
		return ExportToCSV(results)
	case FormatJSON:
		return ExportToJSON(results)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// ExportToCSV writes one row per planned change with columns: Rule, Playlist, PlaylistID, Action, TrackID
func ExportToCSV(results []*tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rule", "Playlist", "PlaylistID", "Action", "TrackID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range results {
		rows := func(action string, ids []models.TrackID) error {
			for _, id := range ids {
				record := []string{strconv.Itoa(r.RuleID), r.Playlist.Name, r.Playlist.RemoteID, action, string(id)}
				if err := writer.Write(record); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
			return nil
		}
		if err := rows("remove", r.Plan.ToRemove); err != nil {
			return nil, err
		}
		if err := rows("add", r.Plan.ToAdd); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func playlistLabel(d models.PlaylistDescriptor) string {
	if !d.Exists() {
		return d.Name + " (new)"
	}
	return d.Name
}

// ExportToMarkdown converts results to a Markdown report, one section per rule
func ExportToMarkdown(results []*tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	for i, r := range results {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("# %s\n\n", playlistLabel(r.Playlist)))

		if r.Playlist.Description != "" {
			buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", r.Playlist.Description))
		}

		buf.WriteString(fmt.Sprintf("**Rule**: %d (%s)\n", r.RuleID, r.Rule))
		buf.WriteString(fmt.Sprintf("**Visibility**: %s\n", shared.VisibilityString(r.Playlist.Visibility == models.Public)))
		buf.WriteString(fmt.Sprintf("**Tracks**: %d target, %d current\n\n", r.Target, r.Current))

		if r.Plan.Empty() {
			buf.WriteString("Already in sync.\n")
			continue
		}

		if len(r.Plan.ToRemove) > 0 {
			buf.WriteString("## Remove\n\n")
			for _, id := range r.Plan.ToRemove {
				buf.WriteString(fmt.Sprintf("- `%s`\n", id))
			}
			buf.WriteString("\n")
		}
		if len(r.Plan.ToAdd) > 0 {
			buf.WriteString("## Add\n\n")
			for _, id := range r.Plan.ToAdd {
				buf.WriteString(fmt.Sprintf("- `%s`\n", id))
			}
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts results to plain text
func ExportToText(results []*tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	for _, r := range results {
		buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlistLabel(r.Playlist)))
		buf.WriteString(fmt.Sprintf("Rule: %d (%s)\n", r.RuleID, r.Rule))
		buf.WriteString(fmt.Sprintf("Target: %d, Current: %d\n", r.Target, r.Current))
		buf.WriteString(fmt.Sprintf("Add: %d, Remove: %d\n", len(r.Plan.ToAdd), len(r.Plan.ToRemove)))

		for _, id := range r.Plan.ToRemove {
			buf.WriteString(fmt.Sprintf("  - %s\n", id))
		}
		for _, id := range r.Plan.ToAdd {
			buf.WriteString(fmt.Sprintf("  + %s\n", id))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts results to indented JSON
func ExportToJSON(results []*tasks.SyncResult) ([]byte, error) {
	if results == nil {
		results = []*tasks.SyncResult{}
	}
	return shared.MarshalJSON(results, true)
}

// WriteExport renders results in format and writes them to path.
func WriteExport(results []*tasks.SyncResult, format, path string) error {
	data, err := Render(results, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// RulesText lists rule definitions, one per line: id, type, name and visibility
func RulesText(defs []rules.Definition) []byte {
	var buf bytes.Buffer
	for _, def := range defs {
		visibility := def.Visibility
		if visibility == "" {
			visibility = models.Private.String()
		}
		buf.WriteString(fmt.Sprintf("%3d  %-12s  %s (%s)\n", def.ID, def.Type, def.Name, visibility))
	}
	return buf.Bytes()
}

// PlaylistsText lists playlists, one per line
func PlaylistsText(playlists []models.PlaylistSummary) []byte {
	var buf bytes.Buffer
	for _, p := range playlists {
		buf.WriteString(fmt.Sprintf("%s  %s\n", p.ID, p.Name))
	}
	return buf.Bytes()
}

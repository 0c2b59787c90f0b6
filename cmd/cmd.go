// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/urfave/cli/v3"
)

func ruleSelectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "rule",
			Aliases: []string{"r"},
			Usage:   "Rule ID from the rules file",
		},
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Every rule, in file order",
		},
	}
}

// syncCommand converges playlists with their rules
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Bring rule playlists in line with their rules",
		Flags:  ruleSelectionFlags(),
		Action: r.Sync,
	}
}

// planCommand shows what sync would change
func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show the changes sync would make without applying them",
		Flags: append(ruleSelectionFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
				Value:   formatter.FormatText,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the plan to a file instead of stdout",
			},
		),
		Action: r.Plan,
	}
}

// rulesCommand lists rule definitions
func rulesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "List rule definitions",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Rules,
	}
}

// playlistsCommand lists the account's playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists owned by the account",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Playlists,
	}
}

// setupCommand writes starter config, rules and credentials files
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml, a starter rules file and a credentials template",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite the rules file if it exists",
			},
		},
		Action: r.Setup,
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/rules"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/urfave/cli/v3"
)

var starterRules = []rules.Definition{
	{
		ID:   1,
		Type: "recents",
		Name: "Recents",
		Desc: "Recently added music",
		Data: map[string]any{"size": rules.DefaultRecencySize},
	},
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeNewFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Setup creates the config file from the template, then a starter rules file and a credentials template next to it.
//
// Existing files are kept, except the rules file with --force.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath

	if fileExists(configPath) {
		r.logger.Info("config file exists, keeping it", "path", configPath)
	} else {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	r.config = config

	rulesPath := r.resolvePath(config.Rules.Path)
	if fileExists(rulesPath) && !cmd.Bool("force") {
		r.logger.Info("rules file exists, keeping it", "path", rulesPath)
	} else {
		data, err := shared.MarshalJSON(starterRules, true)
		if err != nil {
			return err
		}
		if err := writeNewFile(rulesPath, append(data, '\n'), 0644); err != nil {
			return err
		}
		r.logger.Info("rules file created", "path", rulesPath)
	}

	credsPath := r.resolvePath(config.Credentials.Path)
	if _, err := os.Stat(credsPath); errors.Is(err, fs.ErrNotExist) {
		data, err := shared.MarshalJSON(shared.Credentials{}, true)
		if err != nil {
			return err
		}
		if err := writeNewFile(credsPath, append(data, '\n'), 0600); err != nil {
			return err
		}
		r.logger.Info("credentials template created", "path", credsPath)
	}

	r.writePlain("%s Setup complete\n", formatter.Styles.OK("✓"))
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in username and oauth-token in %s\n", credsPath)
	r.writePlain("2. Edit the rules in %s\n", rulesPath)
	r.writePlain("3. Run 'mixsync plan --all' to preview, then 'mixsync sync --all'\n")
	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/spf13/cobra"
)

// addStateFlags registers the flags locating the checkpoint.
// crawl and status share them.
func addStateFlags(cmd *cobra.Command) {
	cmd.Flags().String("state-backend", config.DefaultStateBackend,
		"Checkpoint backend: json or sqlite")
	cmd.Flags().String("state", "",
		"JSON checkpoint file (default: checkpoint.json in the data directory)")
	cmd.Flags().String("db-dir", "",
		"SQLite database directory (default: the data directory)")
}

// loadConfig builds a Config from defaults, the config file and the flags
// that were set explicitly, in that order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	cfg.ConfigFilePath = getConfigFlag(cmd)

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}

	if err := overrideString(cmd, "state-backend", &cfg.StateBackend); err != nil {
		return nil, err
	}
	if err := overrideString(cmd, "state", &cfg.StateFile); err != nil {
		return nil, err
	}
	if err := overrideString(cmd, "db-dir", &cfg.DBDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config flag from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// overrideString copies the flag value into dst when the flag was set.
func overrideString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// overrideInt copies the flag value into dst when the flag was set.
func overrideInt(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// overrideDuration copies the flag value into dst when the flag was set.
func overrideDuration(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

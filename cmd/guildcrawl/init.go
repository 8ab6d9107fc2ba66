package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/state"
	"github.com/spf13/cobra"
)

//go:embed templates/guildcrawl.yaml
var configTemplate embed.FS

const (
	// configFileName is the default configuration file name.
	configFileName = config.DefaultConfigFile

	templatePath = "templates/guildcrawl.yaml"
)

// errConfigExists is returned when init would overwrite a file without -f.
var errConfigExists = errors.New("configuration file already exists")

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new guildcrawl configuration file",
		Long: `Initialize creates a new .guildcrawl configuration file in the current directory.

The generated file includes:
- Seed list and API key file locations
- Rate limits and retry policy with their default values
- Documentation for all available options

Examples:
  # Create .guildcrawl in current directory
  guildcrawl init

  # Create config file at a specific path
  guildcrawl init -o myconfig.yaml

  # Force overwrite existing file
  guildcrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeConfigTemplate(outputPath, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to set:")
	fmt.Fprintln(out, "  - seed_file and key_file")
	fmt.Fprintln(out, "  - rate limits for each endpoint")
	fmt.Fprintln(out, "  - the state backend (json or sqlite)")
	fmt.Fprintf(out, "\nState, log and output default to %s\n", config.XDGDataDir())
	fmt.Fprintf(out, "Start crawling with: %s crawl --config %s\n", config.AppName, outputPath)

	return nil
}

// writeConfigTemplate writes the embedded template to path. An existing
// file is only replaced when force is set; a directory never is.
func writeConfigTemplate(path string, force bool) error {
	// Refuse to clobber an existing file or a directory
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("%s is a directory", path)
	case err == nil && !force:
		return fmt.Errorf("%w: %s (use -f to overwrite)", errConfigExists, path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write through a temporary file and rename
	if err := state.WriteFileAtomic(path, content); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

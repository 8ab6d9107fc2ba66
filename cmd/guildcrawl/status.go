package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/crawl"
	"github.com/nao1215/guildcrawl/internal/model"
	"github.com/nao1215/guildcrawl/internal/report"
	"github.com/nao1215/guildcrawl/internal/seed"
	"github.com/nao1215/guildcrawl/internal/state"
	"github.com/spf13/cobra"
)

// recentRuns is the number of runs listed by status for the SQLite backend.
const recentRuns = 10

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show crawl progress from the last checkpoint",
		Long: `Status reads the checkpoint and reports how far the crawl got: the resume
cursor, entries finished out of order, visited groups and collected ids.

With the SQLite backend the most recent runs are listed as well.

Examples:
  # Human-readable status
  guildcrawl status

  # Compare against the seed list to show remaining entries
  guildcrawl status --seeds names.txt

  # Markdown report written to a file
  guildcrawl status --markdown -o status.md`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	addStateFlags(cmd)
	cmd.Flags().StringP("seeds", "s", "",
		"Seed list used to compute remaining entries (default: total recorded in the checkpoint)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := overrideString(cmd, "seeds", &cfg.SeedFile); err != nil {
		return err
	}
	if err := cfg.ValidateState(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	jsonReport, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownReport, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonReport && markdownReport {
		return errors.New("conflicting report formats: --json and --markdown cannot be used together")
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	seedTotal := 0
	if cfg.SeedFile != "" && cmd.Flags().Changed("seeds") {
		seeds, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		seedTotal = len(seeds)
	}

	status, err := buildStatusReport(contextOf(cmd), cfg, seedTotal)
	if err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		// Create/overwrite the output file with secure permissions (0600)
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case jsonReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}
	_, err = writer.Write(status)
	return err
}

// buildStatusReport loads the checkpoint and, for SQLite, the run history.
// A missing state file yields a "not started" report; status never creates
// an empty database as a side effect.
func buildStatusReport(ctx context.Context, cfg *config.Config, seedTotal int) (*model.StatusReport, error) {
	location := cfg.StateLocation()
	if _, err := os.Stat(location); os.IsNotExist(err) {
		return model.NewStatusReport(location, nil, seedTotal), nil
	}

	store, db, err := crawl.OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	cp, err := store.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNoCheckpoint):
		cp = nil
	case err != nil:
		return nil, err
	}

	status := model.NewStatusReport(location, cp, seedTotal)
	if db == nil {
		return status, nil
	}

	runs, err := db.ListRuns(ctx, recentRuns)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		status.Runs = append(status.Runs, model.RunSummary{
			ID:             run.ID.String(),
			StartedAt:      run.StartedAt,
			FinishedAt:     run.FinishedAt,
			Status:         run.Status,
			ProcessedCount: run.ProcessedCount,
			CollectedIDs:   run.CollectedIDs,
		})
	}
	return status, nil
}

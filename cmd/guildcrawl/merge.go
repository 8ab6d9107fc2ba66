package main

import (
	"fmt"
	"strings"

	"github.com/nao1215/guildcrawl/internal/report"
	"github.com/nao1215/guildcrawl/internal/seed"
	"github.com/spf13/cobra"
)

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <file> [file...]",
		Short: "Merge name lists into one sorted seed list",
		Long: `Merge reads one or more name lists, normalizes every name the same way the
crawl does, and writes their union sorted and without duplicates.

Examples:
  # Print the merged list
  guildcrawl merge forum.txt scraped.txt

  # Write the merged list to a file
  guildcrawl merge forum.txt scraped.txt -o names.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMergeCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Write the merged list to this file instead of stdout")

	return cmd
}

// runMergeCmd executes the merge command.
func runMergeCmd(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	names, err := seed.Merge(args...)
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
		return err
	}

	if err := report.WriteLines(outputPath, names); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Merged %d files into %s (%d names)\n", len(args), outputPath, len(names))
	return nil
}

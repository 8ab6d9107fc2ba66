package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/guildcrawl/internal/crawl"
	"github.com/nao1215/guildcrawl/internal/fetch"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitCircuitOpen = 2
	exitInterrupted = 130
)

// NewRootCmd creates the root command for guildcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guildcrawl",
		Short: "Resumable crawler for group memberships",
		Long: `guildcrawl starts from a list of player names, resolves each name to an
identity, looks up the group that identity belongs to and collects every
member id of every group it finds.

Requests are rate limited per endpoint. Sustained throttling trips a circuit
breaker that stops the crawl. Progress is checkpointed after every name, so an
interrupted crawl resumes where it stopped.

Exit codes:
  0    crawl complete
  1    error (configuration, seed file, storage)
  2    circuit breaker open; checkpoint saved
  130  interrupted; checkpoint saved`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .guildcrawl in current or home directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the code matching its error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, fetch.ErrCircuitOpen):
		return exitCircuitOpen
	case errors.Is(err, crawl.ErrInterrupted):
		return exitInterrupted
	default:
		return exitError
	}
}

// Package cli implements the patentlens command-line tool: operator access
// to job status, reports, pipeline runs and trigger recovery.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	JSONOutput bool
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "patentlens",
		Short:         "PatentLens: prior-art disclosure analysis",
		Long:          "PatentLens analyzes a patent specification against a set of prior-art\nreferences and reports, per inventive feature, whether the references\ndisclose or suggest it.",
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.BoolVar(&opts.JSONOutput, "json", false, "print results as JSON")

	cmd.AddCommand(
		NewStatusCmd(opts),
		NewReportCmd(opts),
		NewAnalyzeCmd(opts),
		NewTriggerCmd(opts),
		NewDeleteCmd(opts),
	)
	return cmd
}

// Execute runs the CLI and returns the exit error, if any.
func Execute() error {
	return NewRootCommand().Execute()
}

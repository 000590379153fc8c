package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/patentlens/patentlens/internal/domain/job"
)

// NewStatusCmd builds the `patentlens status <job-id>` command.
func NewStatusCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			repo, err := env.openRepository()
			if err != nil {
				return err
			}
			j, err := repo.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), j, opts.JSONOutput)
		},
	}
}

func printStatus(w io.Writer, j *job.Job, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"id":             j.ID,
			"title":          j.Title,
			"status":         j.Status(),
			"failure_reason": j.FailureReason,
			"references":     len(j.References),
			"created_at":     j.CreatedAt,
		})
	}
	fmt.Fprintf(w, "Job:        %s\n", j.ID)
	fmt.Fprintf(w, "Title:      %s\n", j.Title)
	fmt.Fprintf(w, "Status:     %s\n", j.Status())
	fmt.Fprintf(w, "References: %d\n", len(j.References))
	fmt.Fprintf(w, "Created:    %s\n", j.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if j.FailureReason != "" {
		fmt.Fprintf(w, "Failure:    %s\n", j.FailureReason)
	}
	return nil
}

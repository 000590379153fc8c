package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/patentlens/patentlens/internal/domain/job"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// NewReportCmd builds the `patentlens report <job-id>` command.
func NewReportCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <job-id>",
		Short: "Print a completed job's disclosure report",
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
			return printReport(cmd.OutOrStdout(), j, opts.JSONOutput)
		},
	}
}

func printReport(w io.Writer, j *job.Job, asJSON bool) error {
	if j.Failed {
		return apperrors.New(apperrors.ErrCodeJobFailed, "analysis failed").
			WithDetail(j.FailureReason)
	}
	if !j.Completed {
		return apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("report is not ready: job is %s", j.Status()))
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"job_id":   j.ID,
			"title":    j.Title,
			"analyses": j.Analyses,
		})
	}

	fmt.Fprintf(w, "Disclosure report for %q (%s)\n\n", j.Title, j.ID)
	for _, a := range j.Analyses {
		fmt.Fprintf(w, "%d. %s\n", a.Position+1, a.Feature)
		fmt.Fprintf(w, "   %s\n", a.Analysis)
		if a.Source != "" {
			fmt.Fprintf(w, "   Sources: %s\n", a.Source)
		}
		fmt.Fprintln(w)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patentlens/patentlens/internal/application/jobs"
	"github.com/patentlens/patentlens/internal/infrastructure/messaging/kafka"
	miniostore "github.com/patentlens/patentlens/internal/infrastructure/storage/minio"
)

// NewDeleteCmd builds the `patentlens delete <job-id>` command: the
// administrative removal of a job in any state, uploaded files included.
func NewDeleteCmd(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Remove a job and its uploaded files (administrative)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deletion is irreversible; re-run with --yes to confirm")
			}

			env, err := openEnvironment(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			repo, err := env.openRepository()
			if err != nil {
				return err
			}
			docs, err := miniostore.NewDocumentStore(env.cfg.MinIO, env.logger)
			if err != nil {
				return err
			}
			producer := kafka.NewProducer(env.cfg.Kafka, "patentlens-cli", env.logger)
			defer producer.Close()

			svc, err := jobs.NewService(jobs.Deps{
				Repo:    repo,
				Files:   docs,
				Trigger: producer,
				Logger:  env.logger,
			})
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: job %s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

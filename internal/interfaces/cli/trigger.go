package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patentlens/patentlens/internal/infrastructure/messaging/kafka"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// NewTriggerCmd builds the `patentlens trigger <job-id>` command.  It
// re-emits the payment-confirmed event for a paid job whose original
// trigger was lost (e.g. the publish after payment failed).  Completed and
// failed jobs are refused; the worker would drop the event anyway, but
// refusing here gives the operator an immediate answer.
func NewTriggerCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <job-id>",
		Short: "Re-emit the pipeline trigger for a paid job",
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
			if j.Terminal() {
				return apperrors.New(apperrors.ErrCodeJobStateInvalid,
					fmt.Sprintf("job is %s; nothing to trigger", j.Status()))
			}
			if !j.Paid {
				return apperrors.New(apperrors.ErrCodeJobNotPaid, "job is not paid")
			}

			producer := kafka.NewProducer(env.cfg.Kafka, "patentlens-cli", env.logger)
			defer producer.Close()

			if err := producer.PublishPaymentConfirmed(cmd.Context(), j.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: trigger re-emitted for job %s\n", j.ID)
			return nil
		},
	}
}

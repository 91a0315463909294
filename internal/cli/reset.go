package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewResetEligibilityCommand creates the reset-eligibility command.
func NewResetEligibilityCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-eligibility <participant-id>",
		Short: "Clear a participant's lifetime binary eligibility",
		Long: `Administrative reset of the one-time eligibility flag. The participant must
unlock again (and is paid the eligibility bonus again) before earning binary income.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, rootOpts.Config)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ResetEligibility(ctx, args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to reset eligibility", err)
			}
			slog.Info("Eligibility reset", "participant_id", args[0])
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reset eligibility of %s\n", args[0])
			return err
		},
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Date string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the settlement ledger of a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeReport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "settlement date YYYY-MM-DD (default today)")

	return cmd
}

func writeReport(cmd *cobra.Command, opts *ReportOptions) error {
	ctx := cmd.Context()
	date, err := parseDay(opts.Date)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	settlements, err := store.ListDailySettlements(ctx, date)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list settlements", err)
	}
	credits, err := store.ListSponsorCredits(ctx, date)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sponsor credits", err)
	}

	day := report.NewDay(models.FormatDate(date), settlements, credits)
	if opts.Format == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), day)
	}
	return report.WriteText(cmd.OutOrStdout(), day)
}

package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/binarypay/internal/engine"
	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/report"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Date        string
	SubtreeRoot string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Settle one date",
		Long: `Run the settlement batch for a date (default: today, UTC).

Participants already settled for the date are skipped, so a failed or
interrupted run can simply be repeated. A run that finds the date locked by
another run exits successfully without doing anything.

Example:
  binarypay run --date 2030-05-10
  binarypay run --date 2030-05-10 --subtree 6f1c... --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettlement(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "settlement date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.SubtreeRoot, "subtree", "", "only settle this participant and its placement descendants")

	return cmd
}

func runSettlement(cmd *cobra.Command, opts *RunOptions) error {
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

	e, closeLock, err := newEngine(ctx, opts.Config, store)
	if err != nil {
		return err
	}
	defer closeLock()

	summary, err := e.Run(ctx, date, engine.RunOptions{SubtreeRoot: opts.SubtreeRoot})
	if errors.Is(err, engine.ErrRunInProgress) {
		slog.Info("Settlement already running, nothing to do", "run_date", models.FormatDate(date))
		return nil
	}
	if err != nil && summary == nil {
		return WrapExitError(ExitCommandError, "settlement run failed", err)
	}

	view := report.NewSummary(summary)
	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if werr := report.WriteJSON(out, view); werr != nil {
			return werr
		}
	} else if werr := report.WriteSummary(out, view); werr != nil {
		return werr
	}

	if err != nil {
		return WrapExitError(ExitFailure, "settlement run interrupted", err)
	}
	if summary.Status == models.RunPartial {
		return NewExitError(ExitFailure, "settlement run finished with failures; run again to retry")
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/binarypay/internal/calculator"
	"github.com/mmynk/binarypay/internal/report"
	"github.com/mmynk/binarypay/internal/service"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Input calculator.DayInput
}

// NewResolveCommand creates the resolve command, a dry calculator for one day.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one day from counts without touching the database",
		Long: `Apply the configured plan to carry-forwards and today's joins.

Example:
  binarypay resolve --left-joins 30 --right-joins 30 --eligible`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveDay(cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.Input.LeftCarry, "left-carry", 0, "left carry-forward before today")
	cmd.Flags().Int64Var(&opts.Input.RightCarry, "right-carry", 0, "right carry-forward before today")
	cmd.Flags().Int64Var(&opts.Input.LeftJoins, "left-joins", 0, "left joins today")
	cmd.Flags().Int64Var(&opts.Input.RightJoins, "right-joins", 0, "right joins today")
	cmd.Flags().BoolVar(&opts.Input.AlreadyEligible, "eligible", false, "participant is already eligible")

	return cmd
}

func resolveDay(cmd *cobra.Command, opts *ResolveOptions) error {
	in := opts.Input
	res, err := calculator.Resolve(opts.Config.Plan, in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return report.WriteJSON(out, service.PreviewDayResponse{
			LeftCarry:         in.LeftCarry,
			RightCarry:        in.RightCarry,
			LeftJoins:         in.LeftJoins,
			RightJoins:        in.RightJoins,
			AlreadyEligible:   in.AlreadyEligible,
			Unlocked:          res.Unlocked,
			EligibilityBonus:  res.EligibilityBonus,
			Pairs:             res.PayablePairs,
			BinaryIncome:      res.BinaryIncome,
			FlashoutUnits:     res.FlashoutUnits,
			FlashoutAmount:    res.FlashoutAmount,
			WashedPairs:       res.WashedPairs,
			LeftCarryAfter:    res.LeftCarryAfter,
			RightCarryAfter:   res.RightCarryAfter,
			SponsorMirrorBase: res.SponsorMirrorBase,
		})
	}

	_, err = fmt.Fprintf(out, `eligible          %t (unlocked today: %t)
eligibility bonus %s
binary            %d pairs, %s
flashout          %d units, %s
washed            %d pairs
carry forward     %d/%d
sponsor mirror    %s
`,
		res.BinaryEligible, res.Unlocked,
		res.EligibilityBonus.StringFixed(2),
		res.PayablePairs, res.BinaryIncome.StringFixed(2),
		res.FlashoutUnits, res.FlashoutAmount.StringFixed(2),
		res.WashedPairs,
		res.LeftCarryAfter, res.RightCarryAfter,
		res.SponsorMirrorBase.StringFixed(2),
	)
	return err
}

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/binarypay/internal/engine"
	"github.com/mmynk/binarypay/internal/models"
)

// legacyRow is one daily settlement as exported by older deployments, which did
// not enforce one row per participant and date.
type legacyRow struct {
	ID                  string          `yaml:"id"`
	ParticipantID       string          `yaml:"participant_id"`
	Date                string          `yaml:"date"`
	LeftJoins           int64           `yaml:"left_joins"`
	RightJoins          int64           `yaml:"right_joins"`
	LeftCarryBefore     int64           `yaml:"left_carry_before"`
	RightCarryBefore    int64           `yaml:"right_carry_before"`
	LeftCarryAfter      int64           `yaml:"left_carry_after"`
	RightCarryAfter     int64           `yaml:"right_carry_after"`
	EligibilityUnlocked bool            `yaml:"eligibility_unlocked"`
	EligibilityBonus    decimal.Decimal `yaml:"eligibility_bonus"`
	Pairs               int64           `yaml:"pairs"`
	BinaryIncome        decimal.Decimal `yaml:"binary_income"`
	FlashoutUnits       int64           `yaml:"flashout_units"`
	FlashoutAmount      decimal.Decimal `yaml:"flashout_amount"`
	WashedPairs         int64           `yaml:"washed_pairs"`
	SponsorIncome       decimal.Decimal `yaml:"sponsor_income"`
	CreatedAt           int64           `yaml:"created_at"`
}

func (r legacyRow) toModel() (*models.DailySettlement, error) {
	if r.ParticipantID == "" {
		return nil, fmt.Errorf("row %q: participant_id is required", r.ID)
	}
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("row %q: %w", r.ID, err)
	}
	d := &models.DailySettlement{
		ID:                  r.ID,
		ParticipantID:       r.ParticipantID,
		Date:                date,
		LeftJoins:           r.LeftJoins,
		RightJoins:          r.RightJoins,
		LeftCarryBefore:     r.LeftCarryBefore,
		RightCarryBefore:    r.RightCarryBefore,
		LeftCarryAfter:      r.LeftCarryAfter,
		RightCarryAfter:     r.RightCarryAfter,
		EligibilityUnlocked: r.EligibilityUnlocked,
		EligibilityBonus:    r.EligibilityBonus,
		Pairs:               r.Pairs,
		BinaryIncome:        r.BinaryIncome,
		FlashoutUnits:       r.FlashoutUnits,
		FlashoutAmount:      r.FlashoutAmount,
		WashedPairs:         r.WashedPairs,
		SponsorIncome:       r.SponsorIncome,
		CreatedAt:           r.CreatedAt,
	}
	d.RecomputeTotal()
	return d, nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import legacy daily settlements, keeping the latest row per participant and date",
		Long: `Load a YAML list of daily settlement rows. Duplicate (participant, date) rows
are reduced to the most recently created one before writing; rows already in
the database are replaced only by newer ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importSettlements(cmd, rootOpts, args[0])
		},
	}
}

func importSettlements(cmd *cobra.Command, opts *RootOptions, path string) error {
	ctx := cmd.Context()
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import file", err)
	}
	var raw []legacyRow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return WrapExitError(ExitCommandError, "failed to parse import file", err)
	}

	rows := make([]*models.DailySettlement, 0, len(raw))
	for _, r := range raw {
		d, err := r.toModel()
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid import row", err)
		}
		rows = append(rows, d)
	}

	kept, discarded := engine.ReconcileDuplicates(rows)
	for _, d := range discarded {
		slog.Warn("Discarding duplicate settlement row",
			"id", d.ID,
			"participant_id", d.ParticipantID,
			"settlement_date", models.FormatDate(d.Date),
			"created_at", d.CreatedAt,
		)
	}

	store, err := openStore(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	written, err := store.ImportDailySettlements(ctx, kept)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to import settlements", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %s, %s discarded as duplicates\n",
		plural(written, "row"), plural(len(discarded), "row"))
	return err
}

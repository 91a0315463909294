package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/storage"
)

const settlementColumns = `id, participant_id, settlement_date, left_joins, right_joins,
	left_carry_before, right_carry_before, left_carry_after, right_carry_after,
	eligibility_unlocked, eligibility_bonus, pairs, binary_income, flashout_units,
	flashout_amount, washed_pairs, sponsor_income, total, created_at`

const settlementPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

func scanSettlement(row rowScanner) (*models.DailySettlement, error) {
	d := &models.DailySettlement{}
	var date string
	err := row.Scan(
		&d.ID,
		&d.ParticipantID,
		&date,
		&d.LeftJoins,
		&d.RightJoins,
		&d.LeftCarryBefore,
		&d.RightCarryBefore,
		&d.LeftCarryAfter,
		&d.RightCarryAfter,
		&d.EligibilityUnlocked,
		&d.EligibilityBonus,
		&d.Pairs,
		&d.BinaryIncome,
		&d.FlashoutUnits,
		&d.FlashoutAmount,
		&d.WashedPairs,
		&d.SponsorIncome,
		&d.Total,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if d.Date, err = models.ParseDate(date); err != nil {
		return nil, err
	}
	return d, nil
}

func settlementArgs(d *models.DailySettlement) []any {
	return []any{
		d.ID, d.ParticipantID, models.FormatDate(d.Date), d.LeftJoins, d.RightJoins,
		d.LeftCarryBefore, d.RightCarryBefore, d.LeftCarryAfter, d.RightCarryAfter,
		d.EligibilityUnlocked, d.EligibilityBonus, d.Pairs, d.BinaryIncome, d.FlashoutUnits,
		d.FlashoutAmount, d.WashedPairs, d.SponsorIncome, d.Total, d.CreatedAt,
	}
}

// GetDailySettlement retrieves the row for (participant, date).
func (t *txn) GetDailySettlement(ctx context.Context, participantID string, date time.Time) (*models.DailySettlement, error) {
	row := t.queryRow(ctx,
		"SELECT "+settlementColumns+" FROM daily_settlements WHERE participant_id = ? AND settlement_date = ?",
		participantID, models.FormatDate(date),
	)
	d, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: settlement for %s on %s", storage.ErrNotFound, participantID, models.FormatDate(date))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily settlement: %w", err)
	}
	return d, nil
}

// CreateDailySettlement inserts d unless the (participant, date) row exists.
func (t *txn) CreateDailySettlement(ctx context.Context, d *models.DailySettlement) (bool, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = t.now().Unix()
	}

	res, err := t.exec(ctx,
		"INSERT INTO daily_settlements ("+settlementColumns+") VALUES ("+settlementPlaceholders+`)
		 ON CONFLICT (participant_id, settlement_date) DO NOTHING`,
		settlementArgs(d)...,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert daily settlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read inserted rows: %w", err)
	}
	return n == 1, nil
}

// UpdateDailySettlementSponsor writes sponsor income and total of an existing row.
func (t *txn) UpdateDailySettlementSponsor(ctx context.Context, d *models.DailySettlement) error {
	res, err := t.exec(ctx,
		"UPDATE daily_settlements SET sponsor_income = ?, total = ? WHERE id = ?",
		d.SponsorIncome, d.Total, d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update daily settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: settlement %s", storage.ErrNotFound, d.ID)
	}
	return nil
}

// ListDailySettlements retrieves all rows for date.
func (s *Store) ListDailySettlements(ctx context.Context, date time.Time) ([]*models.DailySettlement, error) {
	rows, err := s.query(ctx,
		"SELECT "+settlementColumns+" FROM daily_settlements WHERE settlement_date = ? ORDER BY participant_id",
		models.FormatDate(date),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.DailySettlement
	for rows.Next() {
		d, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily settlement: %w", err)
		}
		settlements = append(settlements, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily settlements: %w", err)
	}
	return settlements, nil
}

// ImportDailySettlements upserts legacy rows. An incoming row replaces the stored one
// only when it was created later (ties broken by the larger ID), so duplicates
// resolve to the most recent record regardless of import order.
func (s *Store) ImportDailySettlements(ctx context.Context, rows []*models.DailySettlement) (int, error) {
	written := 0
	err := s.inTx(ctx, func(q queries) error {
		for _, d := range rows {
			if d.ID == "" {
				d.ID = uuid.New().String()
			}
			if d.CreatedAt == 0 {
				d.CreatedAt = q.now().Unix()
			}
			res, err := q.exec(ctx,
				"INSERT INTO daily_settlements ("+settlementColumns+") VALUES ("+settlementPlaceholders+`)
				 ON CONFLICT (participant_id, settlement_date) DO UPDATE SET
				     id = excluded.id,
				     left_joins = excluded.left_joins,
				     right_joins = excluded.right_joins,
				     left_carry_before = excluded.left_carry_before,
				     right_carry_before = excluded.right_carry_before,
				     left_carry_after = excluded.left_carry_after,
				     right_carry_after = excluded.right_carry_after,
				     eligibility_unlocked = excluded.eligibility_unlocked,
				     eligibility_bonus = excluded.eligibility_bonus,
				     pairs = excluded.pairs,
				     binary_income = excluded.binary_income,
				     flashout_units = excluded.flashout_units,
				     flashout_amount = excluded.flashout_amount,
				     washed_pairs = excluded.washed_pairs,
				     sponsor_income = excluded.sponsor_income,
				     total = excluded.total,
				     created_at = excluded.created_at
				 WHERE excluded.created_at > daily_settlements.created_at
				    OR (excluded.created_at = daily_settlements.created_at AND excluded.id > daily_settlements.id)`,
				settlementArgs(d)...,
			)
			if err != nil {
				return fmt.Errorf("failed to import daily settlement: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read imported rows: %w", err)
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

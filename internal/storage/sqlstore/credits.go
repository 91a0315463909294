package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/binarypay/internal/models"
)

// CreateSponsorCredit inserts c unless the (receiver, child, date) credit exists.
func (t *txn) CreateSponsorCredit(ctx context.Context, c *models.SponsorCredit) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = t.now().Unix()
	}

	res, err := t.exec(ctx,
		`INSERT INTO sponsor_credits (id, receiver_id, child_id, settlement_date, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (receiver_id, child_id, settlement_date) DO NOTHING`,
		c.ID, c.ReceiverID, c.ChildID, models.FormatDate(c.Date), c.Amount, c.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert sponsor credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read inserted rows: %w", err)
	}
	return n == 1, nil
}

// ListSponsorCredits retrieves all credits for date.
func (s *Store) ListSponsorCredits(ctx context.Context, date time.Time) ([]*models.SponsorCredit, error) {
	rows, err := s.query(ctx,
		`SELECT id, receiver_id, child_id, settlement_date, amount, created_at
		 FROM sponsor_credits WHERE settlement_date = ? ORDER BY receiver_id, child_id`,
		models.FormatDate(date),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sponsor credits: %w", err)
	}
	defer rows.Close()

	var credits []*models.SponsorCredit
	for rows.Next() {
		c := &models.SponsorCredit{}
		var day string
		if err := rows.Scan(&c.ID, &c.ReceiverID, &c.ChildID, &day, &c.Amount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sponsor credit: %w", err)
		}
		if c.Date, err = models.ParseDate(day); err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sponsor credits: %w", err)
	}
	return credits, nil
}

package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/binarypay/internal/models"
)

// AcquireRunLock clears a stale lock for date and tries to insert a fresh one, in a
// single transaction. The primary key on run_date makes the insert the test-and-set.
func (s *Store) AcquireRunLock(ctx context.Context, date time.Time, owner string, staleAfter time.Duration) (bool, error) {
	now := s.now()
	acquired := false

	err := s.inTx(ctx, func(q queries) error {
		if staleAfter > 0 {
			_, err := q.exec(ctx,
				"DELETE FROM run_locks WHERE run_date = ? AND acquired_at < ?",
				models.FormatDate(date), now.Add(-staleAfter).Unix(),
			)
			if err != nil {
				return fmt.Errorf("failed to clear stale run lock: %w", err)
			}
		}

		res, err := q.exec(ctx,
			`INSERT INTO run_locks (run_date, owner, acquired_at) VALUES (?, ?, ?)
			 ON CONFLICT (run_date) DO NOTHING`,
			models.FormatDate(date), owner, now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run lock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read inserted rows: %w", err)
		}
		acquired = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// ReleaseRunLock deletes the lock for date if owner holds it.
func (s *Store) ReleaseRunLock(ctx context.Context, date time.Time, owner string) error {
	_, err := s.exec(ctx,
		"DELETE FROM run_locks WHERE run_date = ? AND owner = ?",
		models.FormatDate(date), owner,
	)
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

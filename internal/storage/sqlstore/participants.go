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

const participantColumns = `id, name, sponsor_id, parent_id, side, joined_on, active, binary_eligible,
	lifetime_pairs, left_carry, right_carry, pending_left, pending_right,
	eligibility_income, binary_income, sponsor_income, flashout_wallet, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	p := &models.Participant{}
	var sponsorID, parentID, side sql.NullString
	var joinedOn string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&sponsorID,
		&parentID,
		&side,
		&joinedOn,
		&p.Active,
		&p.BinaryEligible,
		&p.LifetimePairs,
		&p.LeftCarry,
		&p.RightCarry,
		&p.PendingLeft,
		&p.PendingRight,
		&p.EligibilityIncome,
		&p.BinaryIncome,
		&p.SponsorIncome,
		&p.FlashoutWallet,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SponsorID = sponsorID.String
	p.ParentID = parentID.String
	p.Side = models.Side(side.String)
	if p.JoinedOn, err = models.ParseDate(joinedOn); err != nil {
		return nil, err
	}
	return p, nil
}

func (q queries) getParticipant(ctx context.Context, id, lock string) (*models.Participant, error) {
	row := q.queryRow(ctx, "SELECT "+participantColumns+" FROM participants WHERE id = ?"+lock, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: participant %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (q queries) listParticipants(ctx context.Context, query string, args ...any) ([]*models.Participant, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// ListActiveParticipants returns active participants joined on or before asOf.
func (s *Store) ListActiveParticipants(ctx context.Context, asOf time.Time) ([]*models.Participant, error) {
	return s.listParticipants(ctx,
		"SELECT "+participantColumns+` FROM participants
		 WHERE active = ? AND joined_on <= ?
		 ORDER BY joined_on, id`,
		true, models.FormatDate(asOf),
	)
}

// ListSubtree returns the root and its placement descendants.
func (s *Store) ListSubtree(ctx context.Context, rootID string, asOf time.Time) ([]*models.Participant, error) {
	if _, err := s.GetParticipant(ctx, rootID); err != nil {
		return nil, err
	}
	return s.listParticipants(ctx,
		`WITH RECURSIVE subtree(id) AS (
			SELECT id FROM participants WHERE id = ?
			UNION ALL
			SELECT p.id FROM participants p JOIN subtree s ON p.parent_id = s.id
		)
		SELECT `+participantColumns+` FROM participants
		WHERE id IN (SELECT id FROM subtree) AND active = ? AND joined_on <= ?
		ORDER BY joined_on, id`,
		rootID, true, models.FormatDate(asOf),
	)
}

// CreateParticipant validates the placement and inserts the participant.
func (s *Store) CreateParticipant(ctx context.Context, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := s.now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.JoinedOn.IsZero() {
		p.JoinedOn = models.Day(s.now())
	}
	p.PendingLeft, p.PendingRight = 0, 0

	return s.inTx(ctx, func(q queries) error {
		if p.ParentID == "" {
			var roots int
			if err := q.queryRow(ctx, "SELECT COUNT(*) FROM participants WHERE parent_id IS NULL").Scan(&roots); err != nil {
				return fmt.Errorf("failed to count roots: %w", err)
			}
			if roots > 0 {
				return fmt.Errorf("%w: tree already has a root", storage.ErrConflict)
			}
			p.Side = ""
		} else {
			if _, err := models.ParseSide(string(p.Side)); err != nil {
				return err
			}
			if _, err := q.getParticipant(ctx, p.ParentID, ""); err != nil {
				return err
			}
			var taken int
			err := q.queryRow(ctx,
				"SELECT COUNT(*) FROM participants WHERE parent_id = ? AND side = ?",
				p.ParentID, string(p.Side),
			).Scan(&taken)
			if err != nil {
				return fmt.Errorf("failed to check placement slot: %w", err)
			}
			if taken > 0 {
				return fmt.Errorf("%w: %s leg of %s is taken", storage.ErrConflict, p.Side, p.ParentID)
			}
		}

		if p.SponsorID != "" {
			if _, err := q.getParticipant(ctx, p.SponsorID, ""); err != nil {
				return err
			}
		}

		_, err := q.exec(ctx,
			"INSERT INTO participants ("+participantColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, nullString(p.SponsorID), nullString(p.ParentID), nullString(string(p.Side)),
			models.FormatDate(p.JoinedOn), p.Active, p.BinaryEligible, p.LifetimePairs,
			p.LeftCarry, p.RightCarry, p.PendingLeft, p.PendingRight, p.EligibilityIncome, p.BinaryIncome,
			p.SponsorIncome, p.FlashoutWallet, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return q.addPendingJoin(ctx, p.ParentID, p.Side)
	})
}

// addPendingJoin walks the placement chain upward from parentID, adding one pending
// join to each ancestor on the leg the new participant sits in.
func (q queries) addPendingJoin(ctx context.Context, parentID string, side models.Side) error {
	for parentID != "" {
		column := "pending_left"
		if side == models.SideRight {
			column = "pending_right"
		}
		if _, err := q.exec(ctx,
			"UPDATE participants SET "+column+" = "+column+" + 1 WHERE id = ?", parentID,
		); err != nil {
			return fmt.Errorf("failed to record pending join: %w", err)
		}

		var next, nextSide sql.NullString
		err := q.queryRow(ctx, "SELECT parent_id, side FROM participants WHERE id = ?", parentID).Scan(&next, &nextSide)
		if err != nil {
			return fmt.Errorf("failed to read placement parent: %w", err)
		}
		parentID, side = next.String, models.Side(nextSide.String)
	}
	return nil
}

// UpdateParticipantState writes the lifetime fields of p.
func (t *txn) UpdateParticipantState(ctx context.Context, p *models.Participant) error {
	p.UpdatedAt = t.now().Unix()
	res, err := t.exec(ctx,
		`UPDATE participants
		 SET binary_eligible = ?, lifetime_pairs = ?, left_carry = ?, right_carry = ?,
		     pending_left = ?, pending_right = ?,
		     eligibility_income = ?, binary_income = ?, sponsor_income = ?, flashout_wallet = ?,
		     updated_at = ?
		 WHERE id = ?`,
		p.BinaryEligible, p.LifetimePairs, p.LeftCarry, p.RightCarry,
		p.PendingLeft, p.PendingRight,
		p.EligibilityIncome, p.BinaryIncome, p.SponsorIncome, p.FlashoutWallet,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: participant %s", storage.ErrNotFound, p.ID)
	}
	return nil
}

// ResetEligibility clears the lifetime eligibility flag.
func (s *Store) ResetEligibility(ctx context.Context, participantID string) error {
	res, err := s.exec(ctx,
		"UPDATE participants SET binary_eligible = ?, updated_at = ? WHERE id = ?",
		false, s.now().Unix(), participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset eligibility: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: participant %s", storage.ErrNotFound, participantID)
	}
	return nil
}

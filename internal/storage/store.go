// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/binarypay/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("storage: conflict")
)

// Store defines the persistence contract of the settlement engine.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the engine.
type Store interface {
	Reader

	// CreateParticipant enrolls a participant in the placement tree and, in the same
	// transaction, adds a pending join to every placement ancestor on the matching
	// leg. The ID is generated when empty. Returns ErrConflict when the placement slot
	// is taken or a second root is added, ErrNotFound when the parent or sponsor
	// does not exist.
	CreateParticipant(ctx context.Context, p *models.Participant) error

	// ResetEligibility administratively clears the lifetime eligibility flag.
	ResetEligibility(ctx context.Context, participantID string) error

	// ImportDailySettlements loads legacy rows, keeping the most recently created
	// row per (participant, date).
	ImportDailySettlements(ctx context.Context, rows []*models.DailySettlement) (int, error)

	// InTx runs fn inside one transaction. The transaction commits when fn returns
	// nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	RunLocker

	// Close releases any resources held by the store.
	Close() error
}

// Reader is the read side, used outside transactions for reporting.
type Reader interface {
	// GetParticipant returns ErrNotFound when the participant does not exist.
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)

	// ListActiveParticipants returns active participants that joined on or before asOf,
	// ordered by join date then ID.
	ListActiveParticipants(ctx context.Context, asOf time.Time) ([]*models.Participant, error)

	// ListSubtree returns the active root and its placement descendants joined on or before asOf.
	ListSubtree(ctx context.Context, rootID string, asOf time.Time) ([]*models.Participant, error)

	// ListDailySettlements returns every settlement row for date.
	ListDailySettlements(ctx context.Context, date time.Time) ([]*models.DailySettlement, error)

	// ListSponsorCredits returns every sponsor credit for date.
	ListSponsorCredits(ctx context.Context, date time.Time) ([]*models.SponsorCredit, error)
}

// Tx is the per-participant atomic unit of work.
type Tx interface {
	// GetParticipant reads a participant and locks it for the rest of the transaction.
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)

	// UpdateParticipantState writes the lifetime fields: eligibility, pairs,
	// carry-forwards, pending joins and balances.
	UpdateParticipantState(ctx context.Context, p *models.Participant) error

	// GetDailySettlement returns ErrNotFound when no row exists.
	GetDailySettlement(ctx context.Context, participantID string, date time.Time) (*models.DailySettlement, error)

	// CreateDailySettlement inserts the row unless one already exists for
	// (participant, date). created reports whether a row was inserted.
	CreateDailySettlement(ctx context.Context, d *models.DailySettlement) (created bool, err error)

	// UpdateDailySettlementSponsor writes the sponsor income and total of an existing row.
	UpdateDailySettlementSponsor(ctx context.Context, d *models.DailySettlement) error

	// CreateSponsorCredit inserts the credit unless one already exists for
	// (receiver, child, date). created reports whether a row was inserted.
	CreateSponsorCredit(ctx context.Context, c *models.SponsorCredit) (created bool, err error)
}

// RunLocker guards a full batch run of one settlement date.
type RunLocker interface {
	// AcquireRunLock atomically takes the lock for date on behalf of owner.
	// A lock older than staleAfter is cleared first. acquired is false when
	// another owner holds a fresh lock.
	AcquireRunLock(ctx context.Context, date time.Time, owner string, staleAfter time.Duration) (acquired bool, err error)

	// ReleaseRunLock removes the lock if owner still holds it.
	ReleaseRunLock(ctx context.Context, date time.Time, owner string) error
}

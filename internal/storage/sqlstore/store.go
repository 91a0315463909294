// Package sqlstore implements storage.Store on database/sql for SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store over an open *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	queries
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created/updated timestamps and lock ages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New wraps db and runs migrations.
func New(ctx context.Context, db *sql.DB, d Dialect, opts ...Option) (*Store, error) {
	s := &Store{db: db, dialect: d, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.queries = queries{db: db, d: d, now: s.now}

	if err := runMigrations(ctx, db, d); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// DB returns the underlying sql.DB for metrics and diagnostics.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn in a transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.inTx(ctx, func(q queries) error {
		return fn(&txn{queries: q})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(q queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(queries{db: tx, d: s.dialect, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queries holds the statements shared by the store and its transactions.
type queries struct {
	db  dbtx
	d   Dialect
	now func() time.Time
}

func (q queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.d.Rebind(query), args...)
}

func (q queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.d.Rebind(query), args...)
}

func (q queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.d.Rebind(query), args...)
}

// txn is the storage.Tx handed to InTx callbacks.
type txn struct {
	queries
}

var _ storage.Tx = (*txn)(nil)

// GetParticipant reads and locks the participant row.
func (t *txn) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	return t.getParticipant(ctx, id, t.d.LockRow)
}

// GetParticipant reads a participant without locking.
func (s *Store) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	return s.getParticipant(ctx, id, "")
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

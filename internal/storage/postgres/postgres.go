// Package postgres opens the PostgreSQL-backed settlement store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mmynk/binarypay/internal/storage/sqlstore"
)

// New connects to dsn through pgx and runs migrations.
func New(ctx context.Context, dsn string, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := sqlstore.New(ctx, db, sqlstore.Postgres, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

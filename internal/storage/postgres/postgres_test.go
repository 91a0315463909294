package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/binarypay/internal/models"
)

// Runs only against a real server: POSTGRES_TEST_DSN=postgres://... go test ./internal/storage/postgres
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	date := time.Date(2031, 1, 2, 0, 0, 0, 0, time.UTC)
	acquired, err := store.AcquireRunLock(ctx, date, "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	again, err := store.AcquireRunLock(ctx, date, "owner-b", time.Minute)
	require.NoError(t, err)
	require.False(t, again, "second owner must not take a fresh lock")

	require.NoError(t, store.ReleaseRunLock(ctx, date, "owner-a"))

	rows, err := store.ListDailySettlements(ctx, date)
	require.NoError(t, err)
	for _, r := range rows {
		require.Equal(t, models.FormatDate(date), models.FormatDate(r.Date))
	}
}

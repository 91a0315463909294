// Package scheduler triggers the daily settlement run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/binarypay/internal/engine"
	"github.com/mmynk/binarypay/internal/models"
)

// Runner runs one settlement date.
type Runner interface {
	Run(ctx context.Context, date time.Time, opts engine.RunOptions) (*models.RunSummary, error)
}

// Scheduler runs the orchestrator once a day at a fixed UTC minute.
type Scheduler struct {
	runner    Runner
	hour      int
	minute    int
	dayOffset int

	mu      sync.Mutex
	lastRun time.Time
}

// New constructs a Scheduler. dailyAt is "HH:MM" in UTC; the settled date is the
// current UTC date plus dayOffset days (usually -1 to close out yesterday).
func New(runner Runner, dailyAt string, dayOffset int) (*Scheduler, error) {
	hour, minute, err := parseDailyAt(dailyAt)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		runner:    runner,
		hour:      hour,
		minute:    minute,
		dayOffset: dayOffset,
	}, nil
}

// Start begins the scheduler loop. It returns when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}
	slog.Info("Scheduler started", "daily_at", fmt.Sprintf("%02d:%02d", s.hour, s.minute), "day_offset", s.dayOffset)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick runs the settlement when now is the scheduled minute and today has not run
// yet. It reports whether a run was started.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) bool {
	now = now.UTC()
	if now.Hour() != s.hour || now.Minute() != s.minute {
		return false
	}

	today := models.Day(now)
	s.mu.Lock()
	if s.lastRun.Equal(today) {
		s.mu.Unlock()
		return false
	}
	s.lastRun = today
	s.mu.Unlock()

	date := today.AddDate(0, 0, s.dayOffset)
	summary, err := s.runner.Run(ctx, date, engine.RunOptions{})
	switch {
	case errors.Is(err, engine.ErrRunInProgress):
		slog.Info("Scheduled settlement skipped, run in progress", "run_date", models.FormatDate(date))
	case err != nil:
		slog.Error("Scheduled settlement failed", "run_date", models.FormatDate(date), "error", err)
	default:
		slog.Info("Scheduled settlement finished",
			"run_date", models.FormatDate(date),
			"status", summary.Status,
			"settled", summary.Settled,
			"failed", summary.Failed,
		)
	}
	return true
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid daily_at %q: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}

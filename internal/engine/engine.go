// Package engine runs the daily settlement batch: it resolves every participant's
// day, applies the result atomically per participant and routes sponsor mirrors.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/binarypay/internal/calculator"
	"github.com/mmynk/binarypay/internal/metrics"
	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/plan"
	"github.com/mmynk/binarypay/internal/storage"
)

const (
	DefaultWorkers    = 4
	DefaultStaleAfter = 10 * time.Minute
)

// Engine is the settlement orchestrator.
type Engine struct {
	store      storage.Store
	locker     storage.RunLocker
	plan       plan.Plan
	workers    int
	staleAfter time.Duration
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the store's run lock, e.g. with a Redis lock shared by
// several instances.
func WithLocker(l storage.RunLocker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithWorkers bounds the number of participants settled concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithStaleAfter sets the age after which a held run lock is force-released.
func WithStaleAfter(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.staleAfter = d
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over store using the compensation plan p.
func New(store storage.Store, p plan.Plan, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:      store,
		locker:     store,
		plan:       p,
		workers:    DefaultWorkers,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Plan returns the compensation plan the engine settles with.
func (e *Engine) Plan() plan.Plan {
	return e.plan
}

// RunOptions narrows a run.
type RunOptions struct {
	// SubtreeRoot restricts the run to this participant and its placement descendants.
	SubtreeRoot string
}

// Run settles date for every active participant.
//
// Phase one resolves and applies each participant in its own transaction, consuming
// the joins enrolled below it since its last settlement; a participant that already
// has a row for date is skipped and keeps its pending joins for the next date. Phase two routes each
// child's sponsor mirror in its own transaction. A failing participant is recorded
// in the summary and does not stop the batch. When another run holds the lock the
// summary has status RunConflict and the error is ErrRunInProgress.
func (e *Engine) Run(ctx context.Context, date time.Time, opts RunOptions) (*models.RunSummary, error) {
	date, err := e.checkDate(date)
	if err != nil {
		return nil, err
	}

	start := e.now()
	summary := &models.RunSummary{
		RunID:            uuid.New().String(),
		RunDate:          date,
		EligibilityBonus: decimal.Zero,
		BinaryIncome:     decimal.Zero,
		FlashoutAmount:   decimal.Zero,
		SponsorIncome:    decimal.Zero,
	}
	log := slog.With("run_id", summary.RunID, "run_date", models.FormatDate(date))

	acquired, err := e.locker.AcquireRunLock(ctx, date, summary.RunID, e.staleAfter)
	if err != nil {
		metrics.ObserveRun(metrics.ResultError, e.now().Sub(start))
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		log.Info("Settlement run skipped, lock held by another run")
		summary.Status = models.RunConflict
		metrics.ObserveRun(metrics.ResultConflict, e.now().Sub(start))
		return summary, ErrRunInProgress
	}
	defer func() {
		if err := e.locker.ReleaseRunLock(context.WithoutCancel(ctx), date, summary.RunID); err != nil {
			log.Error("Failed to release run lock", "error", err)
		}
	}()

	log.Info("Settlement run started", "subtree_root", opts.SubtreeRoot)

	var participants []*models.Participant
	if opts.SubtreeRoot != "" {
		participants, err = e.store.ListSubtree(ctx, opts.SubtreeRoot, date)
	} else {
		participants, err = e.store.ListActiveParticipants(ctx, date)
	}
	if err != nil {
		metrics.ObserveRun(metrics.ResultError, e.now().Sub(start))
		return nil, err
	}
	summary.Participants = len(participants)

	// a subtree run only settles its own members; receivers above it wait for a wider run
	var members map[string]bool
	if opts.SubtreeRoot != "" {
		members = make(map[string]bool, len(participants))
		for _, p := range participants {
			members[p.ID] = true
		}
	}

	t := &tally{summary: summary}
	e.forEach(ctx, participants, func(ctx context.Context, p *models.Participant) {
		t.settled(e.settle(ctx, p.ID, date))
	})
	if ctx.Err() == nil {
		e.forEach(ctx, participants, func(ctx context.Context, p *models.Participant) {
			t.routed(e.route(ctx, p.ID, date, members))
		})
	}

	summary.Duration = e.now().Sub(start)
	summary.Status = models.RunCompleted
	if summary.Failed > 0 || summary.RouteFailures > 0 || ctx.Err() != nil {
		summary.Status = models.RunPartial
	}
	metrics.ObserveRun(string(summary.Status), summary.Duration)

	log.Info("Settlement run finished",
		"status", summary.Status,
		"participants", summary.Participants,
		"settled", summary.Settled,
		"already_settled", summary.AlreadySettled,
		"failed", summary.Failed,
		"credits_issued", summary.CreditsIssued,
		"credits_forfeited", summary.CreditsForfeited,
		"route_failures", summary.RouteFailures,
		"duration", summary.Duration,
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("settlement run interrupted: %w", err)
	}
	return summary, nil
}

func (e *Engine) checkDate(date time.Time) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	date = models.Day(date)
	if date.After(models.Day(e.now())) {
		return time.Time{}, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, models.FormatDate(date))
	}
	return date, nil
}

// forEach runs fn for each participant on at most e.workers goroutines. Cancelling
// ctx stops new units from starting; started units finish their transaction.
func (e *Engine) forEach(ctx context.Context, participants []*models.Participant, fn func(context.Context, *models.Participant)) {
	var g errgroup.Group
	g.SetLimit(e.workers)
	unit := context.WithoutCancel(ctx)

	for _, p := range participants {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(unit, p)
			return nil
		})
	}
	_ = g.Wait()
}

type settleResult struct {
	participantID string
	day           *models.DailySettlement
	already       bool
	err           error
}

// settle resolves and applies one participant's day in a single transaction.
func (e *Engine) settle(ctx context.Context, participantID string, date time.Time) settleResult {
	res := settleResult{participantID: participantID}

	res.err = e.store.InTx(ctx, func(tx storage.Tx) error {
		p, err := tx.GetParticipant(ctx, participantID)
		if err != nil {
			return err
		}

		_, err = tx.GetDailySettlement(ctx, participantID, date)
		if err == nil {
			res.already = true
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		left, right := p.PendingLeft, p.PendingRight
		day, err := calculator.Resolve(e.plan, dayInput(p))
		if err != nil {
			return err
		}

		row := &models.DailySettlement{
			ParticipantID:       participantID,
			Date:                date,
			LeftJoins:           left,
			RightJoins:          right,
			LeftCarryBefore:     p.LeftCarry,
			RightCarryBefore:    p.RightCarry,
			LeftCarryAfter:      day.LeftCarryAfter,
			RightCarryAfter:     day.RightCarryAfter,
			EligibilityUnlocked: day.Unlocked,
			EligibilityBonus:    day.EligibilityBonus,
			Pairs:               day.PayablePairs,
			BinaryIncome:        day.BinaryIncome,
			FlashoutUnits:       day.FlashoutUnits,
			FlashoutAmount:      day.FlashoutAmount,
			WashedPairs:         day.WashedPairs,
			SponsorIncome:       decimal.Zero,
		}
		row.RecomputeTotal()

		created, err := tx.CreateDailySettlement(ctx, row)
		if err != nil {
			return err
		}
		if !created {
			res.already = true
			return nil
		}

		p.BinaryEligible = day.BinaryEligible
		p.LifetimePairs += day.PayablePairs
		p.LeftCarry = day.LeftCarryAfter
		p.RightCarry = day.RightCarryAfter
		p.PendingLeft, p.PendingRight = 0, 0
		p.EligibilityIncome = p.EligibilityIncome.Add(day.EligibilityBonus)
		p.BinaryIncome = p.BinaryIncome.Add(day.BinaryIncome)
		p.FlashoutWallet = p.FlashoutWallet.Add(day.FlashoutAmount)
		if err := tx.UpdateParticipantState(ctx, p); err != nil {
			return err
		}

		res.day = row
		return nil
	})
	if res.err != nil {
		res.day = nil
		res.already = false
	}
	return res
}

type routeResult struct {
	childID string
	RouteResult
	err error
}

// route applies one child's sponsor mirror in a single transaction. members is the
// participant set of a subtree run and nil for a full run.
func (e *Engine) route(ctx context.Context, childID string, date time.Time, members map[string]bool) routeResult {
	res := routeResult{childID: childID}

	res.err = e.store.InTx(ctx, func(tx storage.Tx) error {
		child, err := tx.GetParticipant(ctx, childID)
		if err != nil {
			return err
		}
		day, err := tx.GetDailySettlement(ctx, childID, date)
		if errors.Is(err, storage.ErrNotFound) {
			res.Outcome = OutcomeChildUnsettled
			return nil
		}
		if err != nil {
			return err
		}

		rr, err := Route(ctx, tx, child, day.MirrorBase(), date)
		if errors.Is(err, ErrReceiverUnsettled) && members != nil && !members[rr.ReceiverID] {
			res.RouteResult = RouteResult{Outcome: OutcomeReceiverOutsideRun, ReceiverID: rr.ReceiverID, Amount: decimal.Zero}
			return nil
		}
		res.RouteResult = rr
		return err
	})
	return res
}

// Preview resolves what participantID's next settlement would pay on date, without
// writing anything.
func (e *Engine) Preview(ctx context.Context, participantID string, date time.Time) (calculator.DayInput, calculator.DayResult, error) {
	var in calculator.DayInput
	var out calculator.DayResult

	if _, err := e.checkDate(date); err != nil {
		return in, out, err
	}

	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		p, err := tx.GetParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		in = dayInput(p)
		out, err = calculator.Resolve(e.plan, in)
		return err
	})
	return in, out, err
}

// dayInput takes the joins enrolled since p's last settlement as today's joins.
func dayInput(p *models.Participant) calculator.DayInput {
	return calculator.DayInput{
		LeftCarry:       p.LeftCarry,
		RightCarry:      p.RightCarry,
		LeftJoins:       p.PendingLeft,
		RightJoins:      p.PendingRight,
		AlreadyEligible: p.BinaryEligible,
	}
}

// tally folds unit results into the summary.
type tally struct {
	mu      sync.Mutex
	summary *models.RunSummary
}

func (t *tally) settled(r settleResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.summary

	switch {
	case r.err != nil:
		s.Failed++
		s.Failures = append(s.Failures, models.ParticipantFailure{
			ParticipantID: r.participantID,
			Phase:         "settle",
			Error:         r.err.Error(),
		})
		metrics.IncParticipant(metrics.OutcomeFailed)
		slog.Error("Failed to settle participant", "participant_id", r.participantID, "error", r.err)
	case r.already:
		s.AlreadySettled++
		metrics.IncParticipant(metrics.OutcomeAlreadySettled)
		slog.Debug("Participant already settled", "participant_id", r.participantID)
	default:
		s.Settled++
		s.EligibilityBonus = s.EligibilityBonus.Add(r.day.EligibilityBonus)
		s.BinaryIncome = s.BinaryIncome.Add(r.day.BinaryIncome)
		s.FlashoutAmount = s.FlashoutAmount.Add(r.day.FlashoutAmount)
		metrics.IncParticipant(metrics.OutcomeSettled)
		metrics.AddPayout(metrics.CategoryEligibilityBonus, r.day.EligibilityBonus)
		metrics.AddPayout(metrics.CategoryBinary, r.day.BinaryIncome)
		metrics.AddPayout(metrics.CategoryFlashout, r.day.FlashoutAmount)
	}
}

func (t *tally) routed(r routeResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.summary

	if r.err != nil {
		s.RouteFailures++
		s.Failures = append(s.Failures, models.ParticipantFailure{
			ParticipantID: r.childID,
			Phase:         "route",
			Error:         r.err.Error(),
		})
		metrics.IncSponsorCredit(metrics.ResultError)
		slog.Error("Failed to route sponsor credit", "participant_id", r.childID, "error", r.err)
		return
	}

	metrics.IncSponsorCredit(string(r.Outcome))
	switch {
	case r.Outcome == OutcomeCredited:
		s.CreditsIssued++
		s.SponsorIncome = s.SponsorIncome.Add(r.Amount)
		metrics.AddPayout(metrics.CategorySponsor, r.Amount)
	case r.Outcome.Forfeited():
		s.CreditsForfeited++
		slog.Info("Sponsor credit forfeited", "participant_id", r.childID, "receiver_id", r.ReceiverID, "outcome", r.Outcome)
	case r.Outcome == OutcomeReceiverOutsideRun:
		s.CreditsSkipped++
		slog.Info("Sponsor credit deferred, receiver outside subtree run", "participant_id", r.childID, "receiver_id", r.ReceiverID)
	default:
		s.CreditsSkipped++
	}
}

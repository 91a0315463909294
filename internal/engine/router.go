package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/storage"
)

// RouteOutcome classifies what happened to one child's sponsor mirror.
type RouteOutcome string

const (
	OutcomeCredited        RouteOutcome = "credited"
	OutcomeAlreadyCredited RouteOutcome = "already_credited"
	// OutcomeNoSponsor and OutcomeReceiverIneligible forfeit the amount.
	OutcomeNoSponsor          RouteOutcome = "no_sponsor"
	OutcomeReceiverIneligible RouteOutcome = "receiver_ineligible"
	OutcomeNothingToMirror    RouteOutcome = "nothing_to_mirror"
	// OutcomeChildUnsettled means the child has no settlement row for the date.
	OutcomeChildUnsettled RouteOutcome = "child_unsettled"
	// OutcomeReceiverOutsideRun defers the credit of a subtree run whose receiver sits
	// above the subtree and is not settled yet. A run covering the receiver routes it.
	OutcomeReceiverOutsideRun RouteOutcome = "receiver_outside_run"
)

// Forfeited reports whether the outcome is a defined forfeit rather than a skip.
func (o RouteOutcome) Forfeited() bool {
	return o == OutcomeNoSponsor || o == OutcomeReceiverIneligible
}

// RouteResult is the outcome of routing one child's mirror base.
type RouteResult struct {
	Outcome    RouteOutcome
	ReceiverID string
	Amount     decimal.Decimal
}

// ParticipantGetter reads a participant by ID.
type ParticipantGetter interface {
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
}

// ResolveReceiver returns the participant who receives child's sponsor mirror, or ""
// when the child has no sponsor. A sponsor who is also the placement parent passes
// the credit one generation up, to the parent's own sponsor when there is one.
func ResolveReceiver(ctx context.Context, g ParticipantGetter, child *models.Participant) (string, error) {
	if child.SponsorID == "" {
		return "", nil
	}
	if child.SponsorID != child.ParentID {
		return child.SponsorID, nil
	}

	parent, err := g.GetParticipant(ctx, child.ParentID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve receiver for %s: %w", child.ID, err)
	}
	if parent.SponsorID != "" {
		return parent.SponsorID, nil
	}
	return child.SponsorID, nil
}

// Route credits base from child to its resolved receiver for date.
//
// At most one credit exists per (receiver, child, date); routing the same child again
// is a no-op. The receiver must be active and lifetime-eligible and already hold a settlement row
// for date, whose sponsor income and total are updated together with the receiver's
// lifetime balance. Without that row the error wraps ErrReceiverUnsettled and the
// result still names the receiver.
func Route(ctx context.Context, tx storage.Tx, child *models.Participant, base decimal.Decimal, date time.Time) (RouteResult, error) {
	res := RouteResult{Amount: decimal.Zero}
	if !base.IsPositive() {
		res.Outcome = OutcomeNothingToMirror
		return res, nil
	}

	receiverID, err := ResolveReceiver(ctx, tx, child)
	if err != nil {
		return RouteResult{}, err
	}
	res.ReceiverID = receiverID
	if receiverID == "" {
		res.Outcome = OutcomeNoSponsor
		return res, nil
	}

	receiver, err := tx.GetParticipant(ctx, receiverID)
	if err != nil {
		return RouteResult{}, fmt.Errorf("failed to load receiver: %w", err)
	}
	if !receiver.Active || !receiver.BinaryEligible {
		res.Outcome = OutcomeReceiverIneligible
		return res, nil
	}

	day, err := tx.GetDailySettlement(ctx, receiverID, date)
	if errors.Is(err, storage.ErrNotFound) {
		return res, fmt.Errorf("%w: %s on %s", ErrReceiverUnsettled, receiverID, models.FormatDate(date))
	}
	if err != nil {
		return RouteResult{}, err
	}

	created, err := tx.CreateSponsorCredit(ctx, &models.SponsorCredit{
		ReceiverID: receiverID,
		ChildID:    child.ID,
		Date:       date,
		Amount:     base,
	})
	if err != nil {
		return RouteResult{}, err
	}
	if !created {
		res.Outcome = OutcomeAlreadyCredited
		return res, nil
	}

	day.SponsorIncome = day.SponsorIncome.Add(base)
	day.RecomputeTotal()
	if err := tx.UpdateDailySettlementSponsor(ctx, day); err != nil {
		return RouteResult{}, err
	}

	receiver.SponsorIncome = receiver.SponsorIncome.Add(base)
	if err := tx.UpdateParticipantState(ctx, receiver); err != nil {
		return RouteResult{}, err
	}

	res.Outcome = OutcomeCredited
	res.Amount = base
	return res, nil
}

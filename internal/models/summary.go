package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus describes how an orchestrator run ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	// RunPartial means at least one participant or route failed; a rerun picks them up.
	RunPartial RunStatus = "partial"
	// RunConflict means another run held the lock; nothing was attempted.
	RunConflict RunStatus = "conflict"
)

// ParticipantFailure identifies one participant whose unit of work rolled back.
type ParticipantFailure struct {
	ParticipantID string
	Phase         string
	Error         string
}

// RunSummary is the operator-facing outcome of one settlement run.
type RunSummary struct {
	RunID   string
	RunDate time.Time
	Status  RunStatus

	Participants   int
	Settled        int
	AlreadySettled int
	Failed         int

	CreditsIssued    int
	CreditsSkipped   int
	CreditsForfeited int
	RouteFailures    int

	EligibilityBonus decimal.Decimal
	BinaryIncome     decimal.Decimal
	FlashoutAmount   decimal.Decimal
	SponsorIncome    decimal.Decimal

	Duration time.Duration
	Failures []ParticipantFailure
}

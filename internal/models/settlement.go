package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySettlement is the ledger row of a single participant's settlement for one date.
// At most one exists per (ParticipantID, Date).
type DailySettlement struct {
	// ID is the unique identifier for the row (UUID format).
	ID string

	ParticipantID string

	// Date is the settlement day (UTC midnight).
	Date time.Time

	// Joins counted on each leg for Date.
	LeftJoins  int64
	RightJoins int64

	LeftCarryBefore  int64
	RightCarryBefore int64
	LeftCarryAfter   int64
	RightCarryAfter  int64

	// EligibilityUnlocked is true on the one day the lifetime flag flipped.
	EligibilityUnlocked bool
	EligibilityBonus    decimal.Decimal

	// Pairs is the number of pairs paid as binary income.
	Pairs        int64
	BinaryIncome decimal.Decimal

	FlashoutUnits  int64
	FlashoutAmount decimal.Decimal

	WashedPairs int64

	// SponsorIncome is the sum of mirror credits received for Date.
	SponsorIncome decimal.Decimal

	// Total is EligibilityBonus + BinaryIncome + FlashoutAmount + SponsorIncome.
	Total decimal.Decimal

	// CreatedAt is the Unix timestamp when the row was written.
	CreatedAt int64
}

// MirrorBase is the amount mirrored to the sponsor receiver: eligibility bonus plus
// binary income. Flashout never contributes.
func (d *DailySettlement) MirrorBase() decimal.Decimal {
	return d.EligibilityBonus.Add(d.BinaryIncome)
}

// RecomputeTotal refreshes Total from the income fields.
func (d *DailySettlement) RecomputeTotal() {
	d.Total = d.EligibilityBonus.Add(d.BinaryIncome).Add(d.FlashoutAmount).Add(d.SponsorIncome)
}

// SponsorCredit records a mirrored payment from a child's day result to its resolved
// upline receiver. Unique per (ReceiverID, ChildID, Date).
type SponsorCredit struct {
	// ID is the unique identifier for the credit (UUID format).
	ID string

	ReceiverID string
	ChildID    string
	Date       time.Time

	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the credit was recorded.
	CreatedAt int64
}

// RunLock is held while a full batch run for Date is in progress.
type RunLock struct {
	Date       time.Time
	Owner      string
	AcquiredAt int64
}

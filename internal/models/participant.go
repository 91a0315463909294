package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the leg a participant occupies under its placement parent.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ErrInvalidSide is returned for a placement side other than left or right.
var ErrInvalidSide = errors.New("invalid side")

// ParseSide converts user input into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLeft, SideRight:
		return Side(s), nil
	default:
		return "", fmt.Errorf("%w %q: must be left or right", ErrInvalidSide, s)
	}
}

// Participant is one node in the binary tree.
type Participant struct {
	// ID is the stable identifier for the participant (UUID format unless supplied).
	ID string

	// Name is the display name.
	Name string

	// SponsorID is the participant who receives sponsor-mirror credit for this one.
	// Empty when the participant has no sponsor.
	SponsorID string

	// ParentID is the placement parent, which determines left/right matching.
	// Empty only for the root of the tree.
	ParentID string

	// Side is the leg occupied under ParentID. Empty for the root.
	Side Side

	// JoinedOn is the UTC day the participant joined.
	JoinedOn time.Time

	// Active participants are settled by the daily run.
	Active bool

	// BinaryEligible is the lifetime one-time eligibility flag.
	// It moves false -> true once and only reverts through an administrative reset.
	BinaryEligible bool

	// LifetimePairs counts every pair paid as binary income.
	LifetimePairs int64

	// LeftCarry and RightCarry are the unmatched joins waiting for a pair.
	LeftCarry  int64
	RightCarry int64

	// PendingLeft and PendingRight count placement descendants enrolled on each leg
	// since the participant's last settlement. Enrollment raises them and the next
	// settlement consumes them as the day's joins.
	PendingLeft  int64
	PendingRight int64

	// Lifetime balances per income category.
	EligibilityIncome decimal.Decimal
	BinaryIncome      decimal.Decimal
	SponsorIncome     decimal.Decimal
	FlashoutWallet    decimal.Decimal

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// IsRoot reports whether the participant sits at the top of the placement tree.
func (p *Participant) IsRoot() bool {
	return p.ParentID == ""
}

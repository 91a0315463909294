// Package report renders settlement days and run summaries for operators.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/binarypay/internal/models"
)

// Settlement is the wire and report shape of a DailySettlement.
type Settlement struct {
	ID                  string          `json:"id"`
	ParticipantID       string          `json:"participant_id"`
	Date                string          `json:"date"`
	LeftJoins           int64           `json:"left_joins"`
	RightJoins          int64           `json:"right_joins"`
	LeftCarryBefore     int64           `json:"left_carry_before"`
	RightCarryBefore    int64           `json:"right_carry_before"`
	LeftCarryAfter      int64           `json:"left_carry_after"`
	RightCarryAfter     int64           `json:"right_carry_after"`
	EligibilityUnlocked bool            `json:"eligibility_unlocked"`
	EligibilityBonus    decimal.Decimal `json:"eligibility_bonus"`
	Pairs               int64           `json:"pairs"`
	BinaryIncome        decimal.Decimal `json:"binary_income"`
	FlashoutUnits       int64           `json:"flashout_units"`
	FlashoutAmount      decimal.Decimal `json:"flashout_amount"`
	WashedPairs         int64           `json:"washed_pairs"`
	SponsorIncome       decimal.Decimal `json:"sponsor_income"`
	Total               decimal.Decimal `json:"total"`
	CreatedAt           int64           `json:"created_at"`
}

// NewSettlement converts a ledger row.
func NewSettlement(d *models.DailySettlement) Settlement {
	return Settlement{
		ID:                  d.ID,
		ParticipantID:       d.ParticipantID,
		Date:                models.FormatDate(d.Date),
		LeftJoins:           d.LeftJoins,
		RightJoins:          d.RightJoins,
		LeftCarryBefore:     d.LeftCarryBefore,
		RightCarryBefore:    d.RightCarryBefore,
		LeftCarryAfter:      d.LeftCarryAfter,
		RightCarryAfter:     d.RightCarryAfter,
		EligibilityUnlocked: d.EligibilityUnlocked,
		EligibilityBonus:    d.EligibilityBonus,
		Pairs:               d.Pairs,
		BinaryIncome:        d.BinaryIncome,
		FlashoutUnits:       d.FlashoutUnits,
		FlashoutAmount:      d.FlashoutAmount,
		WashedPairs:         d.WashedPairs,
		SponsorIncome:       d.SponsorIncome,
		Total:               d.Total,
		CreatedAt:           d.CreatedAt,
	}
}

// Credit is the wire and report shape of a SponsorCredit.
type Credit struct {
	ID         string          `json:"id"`
	ReceiverID string          `json:"receiver_id"`
	ChildID    string          `json:"child_id"`
	Date       string          `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  int64           `json:"created_at"`
}

// NewCredit converts a sponsor credit.
func NewCredit(c *models.SponsorCredit) Credit {
	return Credit{
		ID:         c.ID,
		ReceiverID: c.ReceiverID,
		ChildID:    c.ChildID,
		Date:       models.FormatDate(c.Date),
		Amount:     c.Amount,
		CreatedAt:  c.CreatedAt,
	}
}

// Participant is the wire shape of a Participant.
type Participant struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	SponsorID         string          `json:"sponsor_id,omitempty"`
	ParentID          string          `json:"parent_id,omitempty"`
	Side              string          `json:"side,omitempty"`
	JoinedOn          string          `json:"joined_on"`
	Active            bool            `json:"active"`
	BinaryEligible    bool            `json:"binary_eligible"`
	LifetimePairs     int64           `json:"lifetime_pairs"`
	LeftCarry         int64           `json:"left_carry"`
	RightCarry        int64           `json:"right_carry"`
	PendingLeft       int64           `json:"pending_left"`
	PendingRight      int64           `json:"pending_right"`
	EligibilityIncome decimal.Decimal `json:"eligibility_income"`
	BinaryIncome      decimal.Decimal `json:"binary_income"`
	SponsorIncome     decimal.Decimal `json:"sponsor_income"`
	FlashoutWallet    decimal.Decimal `json:"flashout_wallet"`
}

// NewParticipant converts a participant.
func NewParticipant(p *models.Participant) Participant {
	return Participant{
		ID:                p.ID,
		Name:              p.Name,
		SponsorID:         p.SponsorID,
		ParentID:          p.ParentID,
		Side:              string(p.Side),
		JoinedOn:          models.FormatDate(p.JoinedOn),
		Active:            p.Active,
		BinaryEligible:    p.BinaryEligible,
		LifetimePairs:     p.LifetimePairs,
		LeftCarry:         p.LeftCarry,
		RightCarry:        p.RightCarry,
		PendingLeft:       p.PendingLeft,
		PendingRight:      p.PendingRight,
		EligibilityIncome: p.EligibilityIncome,
		BinaryIncome:      p.BinaryIncome,
		SponsorIncome:     p.SponsorIncome,
		FlashoutWallet:    p.FlashoutWallet,
	}
}

// Failure is one failed unit of a run.
type Failure struct {
	ParticipantID string `json:"participant_id"`
	Phase         string `json:"phase"`
	Error         string `json:"error"`
}

// Summary is the wire and report shape of a RunSummary.
type Summary struct {
	RunID            string          `json:"run_id"`
	RunDate          string          `json:"run_date"`
	Status           string          `json:"status"`
	Participants     int             `json:"participants"`
	Settled          int             `json:"settled"`
	AlreadySettled   int             `json:"already_settled"`
	Failed           int             `json:"failed"`
	CreditsIssued    int             `json:"credits_issued"`
	CreditsSkipped   int             `json:"credits_skipped"`
	CreditsForfeited int             `json:"credits_forfeited"`
	RouteFailures    int             `json:"route_failures"`
	EligibilityBonus decimal.Decimal `json:"eligibility_bonus"`
	BinaryIncome     decimal.Decimal `json:"binary_income"`
	FlashoutAmount   decimal.Decimal `json:"flashout_amount"`
	SponsorIncome    decimal.Decimal `json:"sponsor_income"`
	DurationMS       int64           `json:"duration_ms"`
	Failures         []Failure       `json:"failures"`
}

// NewSummary converts a run summary.
func NewSummary(s *models.RunSummary) Summary {
	out := Summary{
		RunID:            s.RunID,
		RunDate:          models.FormatDate(s.RunDate),
		Status:           string(s.Status),
		Participants:     s.Participants,
		Settled:          s.Settled,
		AlreadySettled:   s.AlreadySettled,
		Failed:           s.Failed,
		CreditsIssued:    s.CreditsIssued,
		CreditsSkipped:   s.CreditsSkipped,
		CreditsForfeited: s.CreditsForfeited,
		RouteFailures:    s.RouteFailures,
		EligibilityBonus: s.EligibilityBonus,
		BinaryIncome:     s.BinaryIncome,
		FlashoutAmount:   s.FlashoutAmount,
		SponsorIncome:    s.SponsorIncome,
		DurationMS:       s.Duration.Milliseconds(),
		Failures:         make([]Failure, 0, len(s.Failures)),
	}
	for _, f := range s.Failures {
		out.Failures = append(out.Failures, Failure(f))
	}
	return out
}

// Totals aggregates one day across all participants.
type Totals struct {
	Pairs            int64           `json:"pairs"`
	FlashoutUnits    int64           `json:"flashout_units"`
	WashedPairs      int64           `json:"washed_pairs"`
	EligibilityBonus decimal.Decimal `json:"eligibility_bonus"`
	BinaryIncome     decimal.Decimal `json:"binary_income"`
	FlashoutAmount   decimal.Decimal `json:"flashout_amount"`
	SponsorIncome    decimal.Decimal `json:"sponsor_income"`
	Total            decimal.Decimal `json:"total"`
}

// Day is the full ledger of one settlement date.
type Day struct {
	Date        string       `json:"date"`
	Settlements []Settlement `json:"settlements"`
	Credits     []Credit     `json:"credits"`
	Totals      Totals       `json:"totals"`
}

// NewDay builds the report for date from its ledger rows.
func NewDay(date string, settlements []*models.DailySettlement, credits []*models.SponsorCredit) Day {
	day := Day{
		Date:        date,
		Settlements: make([]Settlement, 0, len(settlements)),
		Credits:     make([]Credit, 0, len(credits)),
		Totals: Totals{
			EligibilityBonus: decimal.Zero,
			BinaryIncome:     decimal.Zero,
			FlashoutAmount:   decimal.Zero,
			SponsorIncome:    decimal.Zero,
			Total:            decimal.Zero,
		},
	}
	for _, d := range settlements {
		day.Settlements = append(day.Settlements, NewSettlement(d))
		t := &day.Totals
		t.Pairs += d.Pairs
		t.FlashoutUnits += d.FlashoutUnits
		t.WashedPairs += d.WashedPairs
		t.EligibilityBonus = t.EligibilityBonus.Add(d.EligibilityBonus)
		t.BinaryIncome = t.BinaryIncome.Add(d.BinaryIncome)
		t.FlashoutAmount = t.FlashoutAmount.Add(d.FlashoutAmount)
		t.SponsorIncome = t.SponsorIncome.Add(d.SponsorIncome)
		t.Total = t.Total.Add(d.Total)
	}
	for _, c := range credits {
		day.Credits = append(day.Credits, NewCredit(c))
	}
	return day
}

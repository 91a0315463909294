package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/binarypay/internal/report"
)

// RunSettlementRequest triggers a settlement run. Date defaults to today (UTC).
type RunSettlementRequest struct {
	Date        string `json:"date,omitempty"`
	SubtreeRoot string `json:"subtree_root,omitempty"`
}

type RunSettlementResponse struct {
	Summary report.Summary `json:"summary"`
}

type ListDailySettlementsRequest struct {
	Date string `json:"date"`
}

type ListDailySettlementsResponse struct {
	Settlements []report.Settlement `json:"settlements"`
}

type ListSponsorCreditsRequest struct {
	Date string `json:"date"`
}

type ListSponsorCreditsResponse struct {
	Credits []report.Credit `json:"credits"`
}

type GetParticipantRequest struct {
	ParticipantID string `json:"participant_id"`
}

type GetParticipantResponse struct {
	Participant report.Participant `json:"participant"`
}

// EnrollParticipantRequest places a new participant. ParentID and Side are empty for
// the root; JoinedOn defaults to today.
type EnrollParticipantRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	Side      string `json:"side,omitempty"`
	SponsorID string `json:"sponsor_id,omitempty"`
	JoinedOn  string `json:"joined_on,omitempty"`
}

type EnrollParticipantResponse struct {
	Participant report.Participant `json:"participant"`
}

type PreviewDayRequest struct {
	ParticipantID string `json:"participant_id"`
	Date          string `json:"date,omitempty"`
}

// PreviewDayResponse is what a run would settle for the participant, without writing.
type PreviewDayResponse struct {
	LeftCarry         int64           `json:"left_carry"`
	RightCarry        int64           `json:"right_carry"`
	LeftJoins         int64           `json:"left_joins"`
	RightJoins        int64           `json:"right_joins"`
	AlreadyEligible   bool            `json:"already_eligible"`
	Unlocked          bool            `json:"unlocked"`
	EligibilityBonus  decimal.Decimal `json:"eligibility_bonus"`
	Pairs             int64           `json:"pairs"`
	BinaryIncome      decimal.Decimal `json:"binary_income"`
	FlashoutUnits     int64           `json:"flashout_units"`
	FlashoutAmount    decimal.Decimal `json:"flashout_amount"`
	WashedPairs       int64           `json:"washed_pairs"`
	LeftCarryAfter    int64           `json:"left_carry_after"`
	RightCarryAfter   int64           `json:"right_carry_after"`
	SponsorMirrorBase decimal.Decimal `json:"sponsor_mirror_base"`
}

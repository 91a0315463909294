package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/binarypay/internal/plan"
)

// ErrNegativeCount is returned when a carry-forward or join count is negative.
var ErrNegativeCount = errors.New("calculator: negative count")

// DayInput is one participant's state going into a settlement day.
type DayInput struct {
	LeftCarry  int64
	RightCarry int64
	LeftJoins  int64
	RightJoins int64

	// AlreadyEligible is the lifetime flag before today.
	AlreadyEligible bool
}

// DayResult is the resolved outcome of one settlement day.
type DayResult struct {
	// Unlocked is true when eligibility flipped today.
	Unlocked         bool
	EligibilityBonus decimal.Decimal

	// LockedPairs is the qualifying pair consumed by the unlock. It earns nothing.
	LockedPairs int64

	PayablePairs int64
	BinaryIncome decimal.Decimal

	FlashoutUnits  int64
	FlashoutAmount decimal.Decimal

	WashedPairs int64

	LeftCarryAfter  int64
	RightCarryAfter int64

	// BinaryEligible is the lifetime flag after today.
	BinaryEligible bool

	// SponsorMirrorBase is EligibilityBonus + BinaryIncome. Flashout is excluded.
	SponsorMirrorBase decimal.Decimal
}

// MatchedPairs is every pair consumed today, paid or not.
func (r DayResult) MatchedPairs(p plan.Plan) int64 {
	return r.LockedPairs + r.PayablePairs + r.FlashoutUnits*p.FlashUnitSize + r.WashedPairs
}

// Resolve computes one day of binary settlement.
//
// Algorithm, on L = LeftCarry + LeftJoins and R = RightCarry + RightJoins:
//   - unlock (not yet eligible): needs a 1:2 or 2:1 structure; pays the bonus and
//     consumes one pair that earns nothing. Without an unlock, matched pairs wash.
//   - binary: min(L, R) pairs up to DailyPairCap, each worth PairValue
//   - flashout: surplus pairs in units of FlashUnitSize, up to FlashUnitDailyCap units
//   - washout: whatever matched pairs remain are forfeited
//   - carry: only the heavier leg's unmatched excess moves to tomorrow
func Resolve(p plan.Plan, in DayInput) (DayResult, error) {
	if in.LeftCarry < 0 || in.RightCarry < 0 || in.LeftJoins < 0 || in.RightJoins < 0 {
		return DayResult{}, fmt.Errorf("%w: carry=(%d,%d) joins=(%d,%d)",
			ErrNegativeCount, in.LeftCarry, in.RightCarry, in.LeftJoins, in.RightJoins)
	}
	if err := p.Validate(); err != nil {
		return DayResult{}, err
	}

	left := in.LeftCarry + in.LeftJoins
	right := in.RightCarry + in.RightJoins

	res := DayResult{
		EligibilityBonus: decimal.Zero,
		BinaryIncome:     decimal.Zero,
		FlashoutAmount:   decimal.Zero,
		BinaryEligible:   in.AlreadyEligible,
	}

	if !res.BinaryEligible {
		if !qualifies(left, right) {
			// no income before eligibility; matched pairs do not wait for it
			res.WashedPairs = min(left, right)
			res.LeftCarryAfter = left - res.WashedPairs
			res.RightCarryAfter = right - res.WashedPairs
			res.SponsorMirrorBase = decimal.Zero
			return res, nil
		}
		res.Unlocked = true
		res.BinaryEligible = true
		res.EligibilityBonus = p.EligibilityBonus
		res.LockedPairs = 1
		left--
		right--
	}

	matched := min(left, right)

	res.PayablePairs = min(matched, p.DailyPairCap)
	res.BinaryIncome = p.PairValue.Mul(decimal.NewFromInt(res.PayablePairs))
	matched -= res.PayablePairs

	res.FlashoutUnits = min(matched/p.FlashUnitSize, p.FlashUnitDailyCap)
	res.FlashoutAmount = p.FlashUnitValue.Mul(decimal.NewFromInt(res.FlashoutUnits))
	matched -= res.FlashoutUnits * p.FlashUnitSize

	res.WashedPairs = matched

	consumed := min(left, right)
	res.LeftCarryAfter = left - consumed
	res.RightCarryAfter = right - consumed

	res.SponsorMirrorBase = res.EligibilityBonus.Add(res.BinaryIncome)
	return res, nil
}

// qualifies reports whether the legs form the minimal 1:2 or 2:1 structure.
func qualifies(left, right int64) bool {
	return (left >= 1 && right >= 2) || (left >= 2 && right >= 1)
}

package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/binarypay/internal/plan"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		in           DayInput
		wantErr      bool
		validateFunc func(t *testing.T, r DayResult)
	}{
		{
			name: "unlock on 2:1 consumes one pair",
			in:   DayInput{LeftJoins: 2, RightJoins: 1},
			validateFunc: func(t *testing.T, r DayResult) {
				if !r.Unlocked || !r.BinaryEligible {
					t.Errorf("expected unlock, got unlocked=%v eligible=%v", r.Unlocked, r.BinaryEligible)
				}
				if !r.EligibilityBonus.Equal(dec(500)) {
					t.Errorf("bonus = %s, want 500", r.EligibilityBonus)
				}
				if r.PayablePairs != 0 || !r.BinaryIncome.IsZero() {
					t.Errorf("binary = %d pairs / %s, want none", r.PayablePairs, r.BinaryIncome)
				}
				if r.FlashoutUnits != 0 || r.WashedPairs != 0 {
					t.Errorf("flash=%d washed=%d, want 0/0", r.FlashoutUnits, r.WashedPairs)
				}
				if r.LeftCarryAfter != 1 || r.RightCarryAfter != 0 {
					t.Errorf("carry = (%d,%d), want (1,0)", r.LeftCarryAfter, r.RightCarryAfter)
				}
				if !r.SponsorMirrorBase.Equal(dec(500)) {
					t.Errorf("mirror base = %s, want 500", r.SponsorMirrorBase)
				}
			},
		},
		{
			name: "unlock on 1:2 then pays remaining pairs",
			in:   DayInput{LeftJoins: 3, RightJoins: 4},
			validateFunc: func(t *testing.T, r DayResult) {
				// one locked pair, then min(2,3)=2 payable
				if r.LockedPairs != 1 || r.PayablePairs != 2 {
					t.Errorf("locked=%d payable=%d, want 1/2", r.LockedPairs, r.PayablePairs)
				}
				if !r.BinaryIncome.Equal(dec(1000)) {
					t.Errorf("binary income = %s, want 1000", r.BinaryIncome)
				}
				if r.LeftCarryAfter != 0 || r.RightCarryAfter != 1 {
					t.Errorf("carry = (%d,%d), want (0,1)", r.LeftCarryAfter, r.RightCarryAfter)
				}
				if !r.SponsorMirrorBase.Equal(dec(1500)) {
					t.Errorf("mirror base = %s, want 1500", r.SponsorMirrorBase)
				}
			},
		},
		{
			name: "1:1 without eligibility washes the pair",
			in:   DayInput{LeftJoins: 1, RightJoins: 1},
			validateFunc: func(t *testing.T, r DayResult) {
				if r.Unlocked || r.BinaryEligible {
					t.Error("1:1 must not unlock eligibility")
				}
				if r.WashedPairs != 1 {
					t.Errorf("washed = %d, want 1", r.WashedPairs)
				}
				if r.LeftCarryAfter != 0 || r.RightCarryAfter != 0 {
					t.Errorf("carry = (%d,%d), want (0,0)", r.LeftCarryAfter, r.RightCarryAfter)
				}
				if !r.SponsorMirrorBase.IsZero() {
					t.Errorf("mirror base = %s, want 0", r.SponsorMirrorBase)
				}
			},
		},
		{
			name: "one-sided joins carry forward untouched",
			in:   DayInput{LeftCarry: 4, LeftJoins: 3},
			validateFunc: func(t *testing.T, r DayResult) {
				if r.BinaryEligible || r.WashedPairs != 0 {
					t.Errorf("eligible=%v washed=%d, want false/0", r.BinaryEligible, r.WashedPairs)
				}
				if r.LeftCarryAfter != 7 || r.RightCarryAfter != 0 {
					t.Errorf("carry = (%d,%d), want (7,0)", r.LeftCarryAfter, r.RightCarryAfter)
				}
			},
		},
		{
			name: "carry forward alone can unlock",
			in:   DayInput{LeftCarry: 2, RightCarry: 1},
			validateFunc: func(t *testing.T, r DayResult) {
				if !r.Unlocked {
					t.Error("expected carry-forward to unlock eligibility")
				}
				if r.LeftCarryAfter != 1 || r.RightCarryAfter != 0 {
					t.Errorf("carry = (%d,%d), want (1,0)", r.LeftCarryAfter, r.RightCarryAfter)
				}
			},
		},
		{
			name: "daily cap then washout",
			in:   DayInput{LeftJoins: 7, RightJoins: 7, AlreadyEligible: true},
			validateFunc: func(t *testing.T, r DayResult) {
				if r.PayablePairs != 5 || !r.BinaryIncome.Equal(dec(2500)) {
					t.Errorf("binary = %d / %s, want 5 / 2500", r.PayablePairs, r.BinaryIncome)
				}
				if r.FlashoutUnits != 0 {
					t.Errorf("flash units = %d, want 0", r.FlashoutUnits)
				}
				if r.WashedPairs != 2 {
					t.Errorf("washed = %d, want 2", r.WashedPairs)
				}
				if r.LeftCarryAfter != 0 || r.RightCarryAfter != 0 {
					t.Errorf("carry = (%d,%d), want (0,0)", r.LeftCarryAfter, r.RightCarryAfter)
				}
				if !r.EligibilityBonus.IsZero() {
					t.Errorf("bonus = %s, want 0 for already eligible", r.EligibilityBonus)
				}
			},
		},
		{
			name: "flashout absorbs surplus",
			in:   DayInput{LeftJoins: 30, RightJoins: 30, AlreadyEligible: true},
			validateFunc: func(t *testing.T, r DayResult) {
				if r.PayablePairs != 5 {
					t.Errorf("payable = %d, want 5", r.PayablePairs)
				}
				if r.FlashoutUnits != 5 || !r.FlashoutAmount.Equal(dec(5000)) {
					t.Errorf("flash = %d / %s, want 5 / 5000", r.FlashoutUnits, r.FlashoutAmount)
				}
				if r.WashedPairs != 0 {
					t.Errorf("washed = %d, want 0", r.WashedPairs)
				}
				if !r.SponsorMirrorBase.Equal(dec(2500)) {
					t.Errorf("mirror base = %s, want 2500 (flashout excluded)", r.SponsorMirrorBase)
				}
			},
		},
		{
			name: "flashout cap",
			in:   DayInput{LeftCarry: 100, LeftJoins: 100, RightJoins: 500, AlreadyEligible: true},
			validateFunc: func(t *testing.T, r DayResult) {
				// 200 matched: 5 paid, 9 units (45 pairs), 150 washed
				if r.FlashoutUnits != 9 {
					t.Errorf("flash units = %d, want 9", r.FlashoutUnits)
				}
				if r.WashedPairs != 150 {
					t.Errorf("washed = %d, want 150", r.WashedPairs)
				}
				if r.LeftCarryAfter != 0 || r.RightCarryAfter != 300 {
					t.Errorf("carry = (%d,%d), want (0,300)", r.LeftCarryAfter, r.RightCarryAfter)
				}
			},
		},
		{
			name: "zero joins and zero carry",
			in:   DayInput{AlreadyEligible: true},
			validateFunc: func(t *testing.T, r DayResult) {
				if r.MatchedPairs(plan.Default()) != 0 || !r.SponsorMirrorBase.IsZero() {
					t.Errorf("expected an all-zero day, got %+v", r)
				}
				if !r.BinaryEligible {
					t.Error("eligibility must persist")
				}
			},
		},
		{
			name:    "negative join count rejected",
			in:      DayInput{LeftJoins: -1},
			wantErr: true,
		},
		{
			name:    "negative carry rejected",
			in:      DayInput{RightCarry: -2, AlreadyEligible: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Resolve(plan.Default(), tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrNegativeCount) {
					t.Errorf("Resolve() error = %v, want ErrNegativeCount", err)
				}
				return
			}
			tt.validateFunc(t, r)
		})
	}
}

func TestResolveInvariants(t *testing.T) {
	p := plan.Default()
	maxBinary := p.MaxDailyBinary()

	for lc := int64(0); lc <= 12; lc += 3 {
		for rc := int64(0); rc <= 12; rc += 4 {
			for lj := int64(0); lj <= 70; lj += 7 {
				for rj := int64(0); rj <= 70; rj += 5 {
					for _, eligible := range []bool{false, true} {
						in := DayInput{LeftCarry: lc, RightCarry: rc, LeftJoins: lj, RightJoins: rj, AlreadyEligible: eligible}
						r, err := Resolve(p, in)
						if err != nil {
							t.Fatalf("Resolve(%+v) failed: %v", in, err)
						}

						left, right := lc+lj, rc+rj
						if got, want := r.MatchedPairs(p), min(left, right); got != want {
							t.Errorf("%+v: matched pairs = %d, want %d", in, got, want)
						}
						if left-r.LeftCarryAfter != right-r.RightCarryAfter {
							t.Errorf("%+v: legs consumed unevenly: carry=(%d,%d)", in, r.LeftCarryAfter, r.RightCarryAfter)
						}
						if min(r.LeftCarryAfter, r.RightCarryAfter) != 0 {
							t.Errorf("%+v: residual matched pairs in carry (%d,%d)", in, r.LeftCarryAfter, r.RightCarryAfter)
						}
						if r.BinaryIncome.GreaterThan(maxBinary) {
							t.Errorf("%+v: binary income %s exceeds cap", in, r.BinaryIncome)
						}
						if r.FlashoutUnits > p.FlashUnitDailyCap {
							t.Errorf("%+v: flash units %d exceed cap", in, r.FlashoutUnits)
						}
						if eligible && (!r.EligibilityBonus.IsZero() || !r.BinaryEligible || r.Unlocked) {
							t.Errorf("%+v: eligibility must be monotonic, got %+v", in, r)
						}
						if !r.SponsorMirrorBase.Equal(r.EligibilityBonus.Add(r.BinaryIncome)) {
							t.Errorf("%+v: mirror base %s != bonus + binary", in, r.SponsorMirrorBase)
						}
					}
				}
			}
		}
	}
}

func TestResolveUsesPlan(t *testing.T) {
	p := plan.Default()
	p.PairValue = dec(100)
	p.DailyPairCap = 2
	p.FlashUnitSize = 3
	p.FlashUnitValue = dec(50)
	p.FlashUnitDailyCap = 1

	r, err := Resolve(p, DayInput{LeftJoins: 10, RightJoins: 10, AlreadyEligible: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// 10 matched: 2 paid, 1 unit of 3, 5 washed
	if r.PayablePairs != 2 || !r.BinaryIncome.Equal(dec(200)) {
		t.Errorf("binary = %d / %s, want 2 / 200", r.PayablePairs, r.BinaryIncome)
	}
	if r.FlashoutUnits != 1 || !r.FlashoutAmount.Equal(dec(50)) {
		t.Errorf("flash = %d / %s, want 1 / 50", r.FlashoutUnits, r.FlashoutAmount)
	}
	if r.WashedPairs != 5 {
		t.Errorf("washed = %d, want 5", r.WashedPairs)
	}
}

func TestResolveRejectsInvalidPlan(t *testing.T) {
	p := plan.Default()
	p.FlashUnitSize = 0
	if _, err := Resolve(p, DayInput{}); !errors.Is(err, plan.ErrInvalidPlan) {
		t.Errorf("Resolve() error = %v, want ErrInvalidPlan", err)
	}
}

// Package plan holds the tunable constants of the binary compensation plan.
package plan

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidPlan is returned when a plan constant is out of range.
	ErrInvalidPlan = errors.New("plan: invalid value")
)

// Plan defines the resolver constants.
type Plan struct {
	// PairValue is paid per binary pair.
	PairValue decimal.Decimal `yaml:"pair_value"`
	// DailyPairCap limits the pairs paid as binary income per day.
	DailyPairCap int64 `yaml:"daily_pair_cap"`
	// EligibilityBonus is paid once, on the day eligibility unlocks.
	EligibilityBonus decimal.Decimal `yaml:"eligibility_bonus"`
	// FlashUnitSize is the number of surplus pairs forming one flashout unit.
	FlashUnitSize int64 `yaml:"flash_unit_size"`
	// FlashUnitValue is credited to the repurchase wallet per flashout unit.
	FlashUnitValue decimal.Decimal `yaml:"flash_unit_value"`
	// FlashUnitDailyCap limits flashout units per day.
	FlashUnitDailyCap int64 `yaml:"flash_unit_daily_cap"`
}

// Default returns the standard plan.
func Default() Plan {
	return Plan{
		PairValue:         decimal.NewFromInt(500),
		DailyPairCap:      5,
		EligibilityBonus:  decimal.NewFromInt(500),
		FlashUnitSize:     5,
		FlashUnitValue:    decimal.NewFromInt(1000),
		FlashUnitDailyCap: 9,
	}
}

// MaxDailyBinary is the most binary income a participant can earn in one day.
func (p Plan) MaxDailyBinary() decimal.Decimal {
	return p.PairValue.Mul(decimal.NewFromInt(p.DailyPairCap))
}

// Validate checks that every constant is usable by the resolver.
func (p Plan) Validate() error {
	if p.DailyPairCap < 0 {
		return fmt.Errorf("%w: daily_pair_cap must be >= 0, got %d", ErrInvalidPlan, p.DailyPairCap)
	}
	if p.FlashUnitSize <= 0 {
		return fmt.Errorf("%w: flash_unit_size must be > 0, got %d", ErrInvalidPlan, p.FlashUnitSize)
	}
	if p.FlashUnitDailyCap < 0 {
		return fmt.Errorf("%w: flash_unit_daily_cap must be >= 0, got %d", ErrInvalidPlan, p.FlashUnitDailyCap)
	}
	for name, v := range map[string]decimal.Decimal{
		"pair_value":        p.PairValue,
		"eligibility_bonus": p.EligibilityBonus,
		"flash_unit_value":  p.FlashUnitValue,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must be >= 0, got %s", ErrInvalidPlan, name, v)
		}
	}
	return nil
}

// Load reads a standalone plan file. Keys missing from the file keep their defaults.
func Load(path string) (Plan, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read plan file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse plan file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

/*
amounts.go - Currency breakdowns and rounding

PURPOSE:
  Prices an entry's hour split into three parallel bases: earned, cost,
  and profit (earned rate minus cost rate, which may legitimately go
  negative). All three are always computed so the display basis can be
  switched without re-running the report.

PRICING:
  rate           = minor units / 100
  regular        = regularHours x rate
  overtime base  = overtimeHours x rate            (straight time)
  tier-1 premium = tier1Hours x rate x (m - 1)
  tier-2 premium = tier2Hours x rate x (m2 - 1)
  total with OT  = regular + base + premiums
  overtime rate  = rate x m

ROUNDING:
  Currency rounds to 2 decimal places, hours to 4, half away from zero.
  Values get a small signed epsilon nudge before rounding to counter
  binary representation error (7.5 x 33.33 sits just below 249.975 as a
  float), then go through decimal.Decimal so the half-away-from-zero rule
  is exact. Non-finite inputs round to zero so one bad rate cannot
  corrupt a whole report.
*/
package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// Breakdown is the priced result for one basis.
type Breakdown struct {
	HourlyRate        float64 `json:"hourlyRate"`
	RegularAmount     float64 `json:"regularAmount"`
	OvertimeBase      float64 `json:"overtimeBase"`
	Tier1Premium      float64 `json:"tier1Premium"`
	Tier2Premium      float64 `json:"tier2Premium"`
	TotalWithOvertime float64 `json:"totalWithOvertime"`
	TotalWithoutOT    float64 `json:"totalWithoutOvertime"`
	OvertimeRate      float64 `json:"overtimeRate"`
}

// Rates carries an entry's hourly rates in minor currency units.
type Rates struct {
	Earned int64
	Cost   int64
}

// Amounts bundles the three bases.
type Amounts struct {
	Earned Breakdown
	Cost   Breakdown
	Profit Breakdown
}

// Price computes all three bases for an hour split, unrounded. Aggregation
// must consume unrounded values; per-entry display uses Rounded.
func Price(split HourSplit, rates Rates, multiplier, tier2Multiplier float64) Amounts {
	return Amounts{
		Earned: priceBasis(split, rates.Earned, multiplier, tier2Multiplier),
		Cost:   priceBasis(split, rates.Cost, multiplier, tier2Multiplier),
		Profit: priceBasis(split, rates.Earned-rates.Cost, multiplier, tier2Multiplier),
	}
}

func priceBasis(split HourSplit, minorRate int64, multiplier, tier2Multiplier float64) Breakdown {
	rate := float64(minorRate) / 100

	regular := split.Regular * rate
	base := split.Overtime * rate
	tier1 := split.Tier1 * rate * (multiplier - 1)
	tier2 := split.Tier2 * rate * (tier2Multiplier - 1)

	return Breakdown{
		HourlyRate:        rate,
		RegularAmount:     regular,
		OvertimeBase:      base,
		Tier1Premium:      tier1,
		Tier2Premium:      tier2,
		TotalWithOvertime: regular + base + tier1 + tier2,
		TotalWithoutOT:    regular,
		OvertimeRate:      rate * multiplier,
	}
}

// Primary selects the breakdown for the configured display basis.
func (a Amounts) Primary(basis AmountBasis) Breakdown {
	switch basis {
	case BasisCost:
		return a.Cost
	case BasisProfit:
		return a.Profit
	default:
		return a.Earned
	}
}

// Rounded returns the breakdown with every currency field rounded to two
// places. The hourly rates round too: they are derived values, not inputs.
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		HourlyRate:        RoundCurrency(b.HourlyRate),
		RegularAmount:     RoundCurrency(b.RegularAmount),
		OvertimeBase:      RoundCurrency(b.OvertimeBase),
		Tier1Premium:      RoundCurrency(b.Tier1Premium),
		Tier2Premium:      RoundCurrency(b.Tier2Premium),
		TotalWithOvertime: RoundCurrency(b.TotalWithOvertime),
		TotalWithoutOT:    RoundCurrency(b.TotalWithoutOT),
		OvertimeRate:      RoundCurrency(b.OvertimeRate),
	}
}

// =============================================================================
// ROUNDING
// =============================================================================

// RoundCurrency rounds to 2 decimal places, half away from zero.
func RoundCurrency(v float64) float64 { return roundPlaces(v, 2) }

// RoundHours rounds to 4 decimal places, half away from zero.
func RoundHours(v float64) float64 { return roundPlaces(v, 4) }

// roundEpsilon nudges values toward their intended decimal before rounding.
// A product like 7.5 x 33.33 lands just below 249.975 in binary; without the
// nudge it would round down instead of half away from zero.
const roundEpsilon = 1e-9

func roundPlaces(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v + math.Copysign(roundEpsilon, v)).Round(places).Float64()
	return f
}

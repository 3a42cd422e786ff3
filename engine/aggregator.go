/*
aggregator.go - Per-user accumulation and final ordering

PURPOSE:
  Folds per-entry analyses into the flat UserTotals record and the final
  Report. Accumulation runs on unrounded values; a single rounding pass at
  the end keeps repeated rounding from compounding. The billable split only
  applies to work-classified entries. Expected capacity accrues per day
  from EFFECTIVE capacity, so absent users with zero entries still show
  what the range was worth.
*/
package engine

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// accumulator carries one user's in-flight totals, unrounded.
type accumulator struct {
	totals UserTotals
}

// addEntry folds one priced entry into the totals.
func (a *accumulator) addEntry(split HourSplit, amounts Amounts, billable bool, basis AmountBasis) {
	t := &a.totals

	t.TotalHours += split.Hours
	t.RegularHours += split.Regular
	t.OvertimeHours += split.Overtime
	t.Tier1Hours += split.Tier1
	t.Tier2Hours += split.Tier2

	switch split.Kind {
	case KindBreak:
		t.BreakHours += split.Hours
	case KindPTO:
		t.VacationHours += split.Hours
	default:
		if billable {
			t.BillableHours += split.Hours
			t.BillableOvertimeHours += split.Overtime
		} else {
			t.NonBillableHours += split.Hours
			t.NonBillableOvertimeHours += split.Overtime
		}
	}

	addBasis(&t.Earned, amounts.Earned)
	addBasis(&t.Cost, amounts.Cost)
	addBasis(&t.Profit, amounts.Profit)
	t.PrimaryAmount += amounts.Primary(basis).TotalWithOvertime
}

func addBasis(t *BasisTotals, b Breakdown) {
	t.Regular += b.RegularAmount
	t.OvertimeBase += b.OvertimeBase
	t.Tier1Premium += b.Tier1Premium
	t.Tier2Premium += b.Tier2Premium
	t.TotalWithOvertime += b.TotalWithOvertime
	t.TotalWithoutOT += b.TotalWithoutOT
}

// addDay folds one day's context into the totals.
func (a *accumulator) addDay(meta DayMeta) {
	t := &a.totals
	t.ExpectedCapacity += meta.Capacity
	if meta.IsHoliday {
		t.HolidayDays++
		t.HolidayHours += meta.HolidayHours
	}
	if meta.IsTimeOff {
		t.TimeOffDays++
		t.TimeOffHours += meta.TimeOffHours
	}
}

// finalize applies the single rounding pass: hours to 4 places, currency
// to 2.
func (a *accumulator) finalize() UserTotals {
	t := a.totals

	t.TotalHours = RoundHours(t.TotalHours)
	t.RegularHours = RoundHours(t.RegularHours)
	t.OvertimeHours = RoundHours(t.OvertimeHours)
	t.Tier1Hours = RoundHours(t.Tier1Hours)
	t.Tier2Hours = RoundHours(t.Tier2Hours)
	t.BreakHours = RoundHours(t.BreakHours)
	t.VacationHours = RoundHours(t.VacationHours)
	t.BillableHours = RoundHours(t.BillableHours)
	t.NonBillableHours = RoundHours(t.NonBillableHours)
	t.BillableOvertimeHours = RoundHours(t.BillableOvertimeHours)
	t.NonBillableOvertimeHours = RoundHours(t.NonBillableOvertimeHours)
	t.ExpectedCapacity = RoundHours(t.ExpectedCapacity)
	t.HolidayHours = RoundHours(t.HolidayHours)
	t.TimeOffHours = RoundHours(t.TimeOffHours)

	t.Earned = roundBasis(t.Earned)
	t.Cost = roundBasis(t.Cost)
	t.Profit = roundBasis(t.Profit)
	t.PrimaryAmount = RoundCurrency(t.PrimaryAmount)

	return t
}

func roundBasis(t BasisTotals) BasisTotals {
	return BasisTotals{
		Regular:           RoundCurrency(t.Regular),
		OvertimeBase:      RoundCurrency(t.OvertimeBase),
		Tier1Premium:      RoundCurrency(t.Tier1Premium),
		Tier2Premium:      RoundCurrency(t.Tier2Premium),
		TotalWithOvertime: RoundCurrency(t.TotalWithOvertime),
		TotalWithoutOT:    RoundCurrency(t.TotalWithoutOT),
	}
}

// sortUsers orders the final result by display name, case- and
// locale-aware ascending, with user ID as the deterministic tiebreaker.
// The undetermined locale gives stable collation without tying the report
// to any one language.
func sortUsers(users []UserAnalysis) {
	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(users, func(i, j int) bool {
		switch c.CompareString(users[i].UserName, users[j].UserName) {
		case -1:
			return true
		case 1:
			return false
		}
		return users[i].UserID < users[j].UserID
	})
}

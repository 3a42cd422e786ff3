/*
Package export renders a finished report as CSV.

PURPOSE:
  One row per user per day plus a totals row per user. The report is
  consumed strictly read-only; export never recomputes anything.

FORMULA INJECTION:
  Spreadsheet applications execute cells starting with =, +, -, or @
  (and interpret leading tab/CR). Every text cell sourced from user data
  is prefixed with a single quote when it starts with one of those
  characters, so a user named "=HYPERLINK(...)" opens as text, not as a
  formula. Numeric cells are rendered by the exporter itself and bypass
  sanitization.
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/warp/overtime-engine/engine"
)

var header = []string{
	"user", "date", "capacity", "holiday", "time_off",
	"total_hours", "regular_hours", "overtime_hours", "tier1_hours", "tier2_hours",
	"break_hours", "vacation_hours", "amount",
}

// WriteCSV renders the report to w. Rows appear in the report's user order
// (sorted by display name) with each user's days in date order, followed by
// the user's totals row.
func WriteCSV(w io.Writer, report *engine.Report, basis engine.AmountBasis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, user := range report.Users {
		dates := make([]string, 0, len(user.Days))
		for d := range user.Days {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		for _, date := range dates {
			if err := cw.Write(dayRow(user, date, user.Days[date])); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
		if err := cw.Write(totalsRow(user)); err != nil {
			return fmt.Errorf("write csv totals: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func dayRow(user engine.UserAnalysis, date string, day *engine.DayData) []string {
	var total, regular, overtime, tier1, tier2, breaks, vacation, amount float64
	for _, er := range day.Entries {
		a := er.Analysis
		total += a.Hours
		regular += a.RegularHours
		overtime += a.OvertimeHours
		tier1 += a.Tier1Hours
		tier2 += a.Tier2Hours
		amount += a.PrimaryAmount
		switch a.Kind {
		case engine.KindBreak:
			breaks += a.Hours
		case engine.KindPTO:
			vacation += a.Hours
		}
	}

	return []string{
		Sanitize(user.UserName),
		date,
		hours(day.Meta.Capacity),
		flag(day.Meta.IsHoliday),
		flag(day.Meta.IsTimeOff),
		hours(engine.RoundHours(total)),
		hours(engine.RoundHours(regular)),
		hours(engine.RoundHours(overtime)),
		hours(engine.RoundHours(tier1)),
		hours(engine.RoundHours(tier2)),
		hours(engine.RoundHours(breaks)),
		hours(engine.RoundHours(vacation)),
		currency(engine.RoundCurrency(amount)),
	}
}

func totalsRow(user engine.UserAnalysis) []string {
	t := user.Totals
	return []string{
		Sanitize(user.UserName),
		"total",
		hours(t.ExpectedCapacity),
		strconv.Itoa(t.HolidayDays),
		strconv.Itoa(t.TimeOffDays),
		hours(t.TotalHours),
		hours(t.RegularHours),
		hours(t.OvertimeHours),
		hours(t.Tier1Hours),
		hours(t.Tier2Hours),
		hours(t.BreakHours),
		hours(t.VacationHours),
		currency(t.PrimaryAmount),
	}
}

func hours(v float64) string    { return strconv.FormatFloat(v, 'f', -1, 64) }
func currency(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func flag(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// Sanitize neutralizes spreadsheet formula injection in a text cell.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

package engine_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/engine"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func weekInput(entries []engine.TimeEntry) engine.Input {
	cfg := snapshotWith(defaultParams())
	cfg.Users = []engine.User{
		{ID: "u1", Name: "Ada"},
		{ID: "u2", Name: "Charles"},
	}
	return engine.Input{
		Entries: entries,
		Range:   engine.DateRange{Start: "2025-03-10", End: "2025-03-14"},
		Config:  cfg,
	}
}

func paidWork(id, userID, start, duration string) engine.TimeEntry {
	return engine.TimeEntry{
		ID: id, UserID: userID, Start: start, Duration: duration,
		Billable: true, EarnedRate: 4000, CostRate: 2500,
	}
}

// =============================================================================
// FULL-PASS BEHAVIOR
// =============================================================================

func TestAnalyze_EmptyRangeYieldsEmptyReport(t *testing.T) {
	// Callers may probe before a range is chosen; that is not an error.
	report := engine.Analyze(engine.Input{Config: snapshotWith(defaultParams())})
	require.NotNil(t, report)
	assert.Empty(t, report.Users)

	report = engine.Analyze(engine.Input{
		Range:  engine.DateRange{Start: "2025-03-10"},
		Config: snapshotWith(defaultParams()),
	})
	assert.Empty(t, report.Users)
}

func TestAnalyze_NilEntriesStillProducesCapacityRows(t *testing.T) {
	// GIVEN: two known users and no entries over a 5-day range
	// WHEN:  analyzing
	// THEN:  both users appear with expected capacity 5 x 8h and empty days

	report := engine.Analyze(weekInput(nil))

	require.Len(t, report.Users, 2)
	for _, u := range report.Users {
		assert.Equal(t, 40.0, u.Totals.ExpectedCapacity)
		assert.Len(t, u.Days, 5)
		assert.Equal(t, 0.0, u.Totals.TotalHours)
	}
}

func TestAnalyze_UsersSortedByNameCaseInsensitive(t *testing.T) {
	input := weekInput(nil)
	input.Config.Users = []engine.User{
		{ID: "u1", Name: "charles"},
		{ID: "u2", Name: "Ada"},
		{ID: "u3", Name: "Babbage"},
	}

	report := engine.Analyze(input)
	require.Len(t, report.Users, 3)
	assert.Equal(t, "Ada", report.Users[0].UserName)
	assert.Equal(t, "Babbage", report.Users[1].UserName)
	assert.Equal(t, "charles", report.Users[2].UserName)
}

func TestAnalyze_UserSortHandlesDiacritics(t *testing.T) {
	// GIVEN: a name starting with an accented letter
	// WHEN:  sorting the report
	// THEN:  collation places it with its base letter, not after "z"
	input := weekInput(nil)
	input.Config.Users = []engine.User{
		{ID: "u1", Name: "Zed"},
		{ID: "u2", Name: "Émile"},
		{ID: "u3", Name: "Ada"},
	}

	report := engine.Analyze(input)
	require.Len(t, report.Users, 3)
	assert.Equal(t, "Ada", report.Users[0].UserName)
	assert.Equal(t, "Émile", report.Users[1].UserName)
	assert.Equal(t, "Zed", report.Users[2].UserName)
}

func TestAnalyze_UnknownUserSynthesizedFromEntry(t *testing.T) {
	// GIVEN: an entry for a user missing from the configured list
	// WHEN:  analyzing
	// THEN:  a synthetic user appears carrying the entry's display name,
	//        and one with no embedded name gets the placeholder

	input := weekInput([]engine.TimeEntry{
		{ID: "e1", UserID: "ghost", UserName: "Zora", Start: "2025-03-10T08:00:00Z", Duration: "PT4H"},
		{ID: "e2", UserID: "anon", Start: "2025-03-10T09:00:00Z", Duration: "PT2H"},
	})

	report := engine.Analyze(input)
	require.Len(t, report.Users, 4)

	byID := map[string]engine.UserAnalysis{}
	for _, u := range report.Users {
		byID[u.UserID] = u
	}
	assert.Equal(t, "Zora", byID["ghost"].UserName)
	assert.Equal(t, 4.0, byID["ghost"].Totals.TotalHours)
	assert.Equal(t, engine.PlaceholderUserName, byID["anon"].UserName)
	assert.Equal(t, 2.0, byID["anon"].Totals.TotalHours)
}

func TestAnalyze_EntriesWithoutUsableDateAreSkipped(t *testing.T) {
	input := weekInput([]engine.TimeEntry{
		{ID: "bad", UserID: "u1", Start: "no-date", Duration: "PT4H"},
		paidWork("good", "u1", "2025-03-10T08:00:00Z", "PT4H"),
	})

	report := engine.Analyze(input)
	byID := map[string]engine.UserAnalysis{}
	for _, u := range report.Users {
		byID[u.UserID] = u
	}
	assert.Equal(t, 4.0, byID["u1"].Totals.TotalHours)
}

// =============================================================================
// CONSERVATION AND TOTALS
// =============================================================================

func TestAnalyze_RegularPlusOvertimeEqualsDuration(t *testing.T) {
	input := weekInput([]engine.TimeEntry{
		paidWork("e1", "u1", "2025-03-10T08:00:00Z", "PT5H"),
		paidWork("e2", "u1", "2025-03-10T14:00:00Z", "PT4H"),
		paidWork("e3", "u1", "2025-03-11T08:00:00Z", "PT10H30M"),
		{ID: "b1", UserID: "u1", Type: engine.TypeBreak, Start: "2025-03-11T12:00:00Z", Duration: "PT45M"},
	})

	report := engine.Analyze(input)
	byID := map[string]engine.UserAnalysis{}
	for _, u := range report.Users {
		byID[u.UserID] = u
	}
	u1 := byID["u1"]

	var sumRegular, sumOvertime float64
	for _, day := range u1.Days {
		for _, er := range day.Entries {
			assert.InDelta(t, er.Analysis.Hours, er.Analysis.RegularHours+er.Analysis.OvertimeHours, 1e-9)
			sumRegular += er.Analysis.RegularHours
			sumOvertime += er.Analysis.OvertimeHours
		}
	}
	assert.InDelta(t, u1.Totals.TotalHours, sumRegular+sumOvertime, 1e-6)
	assert.InDelta(t, u1.Totals.TotalHours, u1.Totals.RegularHours+u1.Totals.OvertimeHours, 1e-9)
}

func TestAnalyze_BillableSplitExcludesBreaksAndPTO(t *testing.T) {
	input := weekInput([]engine.TimeEntry{
		paidWork("w1", "u1", "2025-03-10T08:00:00Z", "PT6H"),
		{ID: "b1", UserID: "u1", Type: engine.TypeBreak, Billable: true, Start: "2025-03-10T12:00:00Z", Duration: "PT1H"},
		{ID: "p1", UserID: "u1", Type: engine.TypeTimeOffTimeEntry, Billable: true, Start: "2025-03-10T14:00:00Z", Duration: "PT2H"},
	})

	report := engine.Analyze(input)
	byID := map[string]engine.UserAnalysis{}
	for _, u := range report.Users {
		byID[u.UserID] = u
	}
	tot := byID["u1"].Totals

	assert.Equal(t, 6.0, tot.BillableHours)
	assert.Equal(t, 0.0, tot.NonBillableHours)
	assert.Equal(t, 1.0, tot.BreakHours)
	assert.Equal(t, 2.0, tot.VacationHours)
	assert.Equal(t, 9.0, tot.TotalHours)
}

func TestAnalyze_HolidayReducesExpectedCapacity(t *testing.T) {
	input := weekInput(nil)
	input.Config.Holidays[engine.CalendarKey("u1", "2025-03-12")] = engine.Holiday{
		UserID: "u1", DateKey: "2025-03-12", Name: "Founders Day",
	}

	report := engine.Analyze(input)
	byID := map[string]engine.UserAnalysis{}
	for _, u := range report.Users {
		byID[u.UserID] = u
	}

	assert.Equal(t, 32.0, byID["u1"].Totals.ExpectedCapacity)
	assert.Equal(t, 1, byID["u1"].Totals.HolidayDays)
	assert.Equal(t, 8.0, byID["u1"].Totals.HolidayHours)
	assert.Equal(t, 40.0, byID["u2"].Totals.ExpectedCapacity)
}

func TestAnalyze_PrimaryAmountFollowsDisplayBasis(t *testing.T) {
	entries := []engine.TimeEntry{paidWork("e1", "u1", "2025-03-10T08:00:00Z", "PT8H")}

	input := weekInput(entries)
	report := engine.Analyze(input)
	byID := map[string]engine.UserAnalysis{}
	for _, u := range report.Users {
		byID[u.UserID] = u
	}
	assert.Equal(t, 320.0, byID["u1"].Totals.PrimaryAmount) // earned by default

	input = weekInput(entries)
	input.Config.Params.AmountDisplay = engine.BasisProfit
	report = engine.Analyze(input)
	for _, u := range report.Users {
		if u.UserID == "u1" {
			assert.Equal(t, 120.0, u.Totals.PrimaryAmount) // (40-25) x 8
		}
	}
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestAnalyze_Idempotent(t *testing.T) {
	// GIVEN: a mixed workload with overtime, tiers, a holiday, and an
	//        unknown user
	// WHEN:  analyzing twice
	// THEN:  the serialized outputs are byte-identical

	build := func() engine.Input {
		input := weekInput([]engine.TimeEntry{
			paidWork("e1", "u1", "2025-03-10T08:00:00Z", "PT5H"),
			paidWork("e2", "u1", "2025-03-10T14:00:00Z", "PT4H30M"),
			paidWork("e3", "u2", "2025-03-11T08:00:00Z", "PT10H"),
			{ID: "e4", UserID: "ghost", UserName: "Zora", Start: "2025-03-12T08:00:00Z", Duration: "PT7H30M", EarnedRate: 3333},
		})
		input.Config.Params.Tier2ThresholdHours = 2
		input.Config.Holidays[engine.CalendarKey("u1", "2025-03-14")] = engine.Holiday{
			UserID: "u1", DateKey: "2025-03-14", Name: "Founders Day",
		}
		return input
	}

	first, err := json.Marshal(engine.Analyze(build()))
	require.NoError(t, err)
	second, err := json.Marshal(engine.Analyze(build()))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	entries := []engine.TimeEntry{
		paidWork("e2", "u1", "2025-03-10T14:00:00Z", "PT4H"),
		paidWork("e1", "u1", "2025-03-10T08:00:00Z", "PT5H"),
	}
	input := weekInput(entries)

	engine.Analyze(input)

	// The allocator sorts a copy; caller order must survive.
	assert.Equal(t, "e2", entries[0].ID)
	assert.Equal(t, "e1", entries[1].ID)
}

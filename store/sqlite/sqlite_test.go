package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *sqlite.Store, id, name string) {
	_, err := store.UpsertUser(context.Background(), engine.User{ID: id, Name: name})
	require.NoError(t, err)
}

// =============================================================================
// USERS, PROFILES, SETTINGS
// =============================================================================

func TestStore_UpsertUserGeneratesID(t *testing.T) {
	store := newTestStore(t)

	id, err := store.UpsertUser(context.Background(), engine.User{Name: "Ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)
}

func TestStore_SettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Defaults exist before any save.
	params, err := store.Params(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8.0, params.DailyThreshold)
	assert.Equal(t, 1.5, params.OvertimeMultiplier)

	params.Tier2ThresholdHours = 2
	params.AmountDisplay = engine.BasisProfit
	params.UseProfileCapacity = true
	require.NoError(t, store.SaveParams(ctx, params))

	loaded, err := store.Params(ctx)
	require.NoError(t, err)
	assert.Equal(t, params, loaded)
}

// =============================================================================
// OVERRIDES
// =============================================================================

func TestStore_OverrideRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1", "Ada")

	ov := engine.Override{
		Mode:   engine.OverrideWeekly,
		Values: engine.ParameterSet{Capacity: "7", Multiplier: "1.75"},
		Weekly: map[string]engine.ParameterSet{
			"friday": {Capacity: "4"},
		},
		Days: map[string]engine.ParameterSet{
			"2025-03-10": {Multiplier: "3"},
		},
	}
	require.NoError(t, store.SetOverride(ctx, "u1", ov))

	got, found, err := store.GetOverride(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ov, got)
}

func TestStore_SetOverrideReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1", "Ada")

	require.NoError(t, store.SetOverride(ctx, "u1", engine.Override{
		Mode:   engine.OverridePerDay,
		Values: engine.ParameterSet{Capacity: "6"},
		Days:   map[string]engine.ParameterSet{"2025-03-10": {Capacity: "2"}},
	}))
	require.NoError(t, store.SetOverride(ctx, "u1", engine.Override{
		Mode:   engine.OverrideGlobal,
		Values: engine.ParameterSet{Capacity: "9"},
	}))

	got, found, err := store.GetOverride(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, engine.OverrideGlobal, got.Mode)
	assert.Equal(t, "9", got.Values.Capacity)
	assert.Empty(t, got.Days)
}

// =============================================================================
// ENTRIES AND SNAPSHOT
// =============================================================================

func TestStore_EntriesInRangeBoundsInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertEntries(ctx, []engine.TimeEntry{
		{ID: "before", UserID: "u1", Start: "2025-03-09T23:00:00Z", Duration: "PT1H"},
		{ID: "first", UserID: "u1", Start: "2025-03-10T08:00:00Z", Duration: "PT1H"},
		{ID: "last", UserID: "u1", Start: "2025-03-12T23:59:00Z", Duration: "PT1H"},
		{ID: "after", UserID: "u1", Start: "2025-03-13T00:00:00Z", Duration: "PT1H"},
	}))

	entries, err := store.EntriesInRange(ctx, engine.DateRange{Start: "2025-03-10", End: "2025-03-12"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].ID)
	assert.Equal(t, "last", entries[1].ID)
}

func TestStore_ReportInputFeedsEngine(t *testing.T) {
	// GIVEN: a seeded workspace with a user, an override, a holiday, and
	//        entries
	// WHEN:  assembling report input and analyzing
	// THEN:  the engine sees the persisted configuration

	store := newTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "u1", "Ada")

	require.NoError(t, store.SaveParams(ctx, engine.CalculationParams{
		ApplyHolidays:      true,
		ApplyTimeOff:       true,
		DailyThreshold:     8,
		OvertimeMultiplier: 1.5,
		Tier2Multiplier:    2,
	}))
	require.NoError(t, store.SetOverride(ctx, "u1", engine.Override{
		Mode:   engine.OverrideGlobal,
		Values: engine.ParameterSet{Capacity: "6"},
	}))
	require.NoError(t, store.AddHoliday(ctx, engine.Holiday{
		UserID: "u1", DateKey: "2025-03-11", Name: "Founders Day",
	}))
	require.NoError(t, store.InsertEntries(ctx, []engine.TimeEntry{
		{ID: "e1", UserID: "u1", Start: "2025-03-10T08:00:00Z", Duration: "PT8H", EarnedRate: 4000},
	}))

	input, err := store.ReportInput(ctx, engine.DateRange{Start: "2025-03-10", End: "2025-03-11"})
	require.NoError(t, err)

	report := engine.Analyze(input)
	require.Len(t, report.Users, 1)
	u := report.Users[0]

	// Capacity override: 6h regular + 2h overtime on the worked day.
	assert.Equal(t, 6.0, u.Totals.RegularHours)
	assert.Equal(t, 2.0, u.Totals.OvertimeHours)
	// Holiday zeroes the second day: expected capacity is the 6h of day 1.
	assert.Equal(t, 6.0, u.Totals.ExpectedCapacity)
	assert.Equal(t, 1, u.Totals.HolidayDays)
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/api"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (http.Handler, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return api.NewRouter(api.NewHandler(store)), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// USERS AND OVERRIDES
// =============================================================================

func TestAPI_CreateAndListUsers(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/users", api.CreateUserRequest{ID: "u1", Name: "Ada"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []api.UserDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)
}

func TestAPI_CreateUserRequiresName(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/users", api.CreateUserRequest{ID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_OverrideRoundTrip(t *testing.T) {
	h, _ := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/users", api.CreateUserRequest{ID: "u1", Name: "Ada"})

	ov := engine.Override{
		Mode:   engine.OverridePerDay,
		Values: engine.ParameterSet{Multiplier: "1.75"},
		Days:   map[string]engine.ParameterSet{"2025-03-10": {Multiplier: "3"}},
	}
	rec := doJSON(t, h, http.MethodPut, "/api/users/u1/overrides", api.OverrideRequest{Override: ov})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/users/u1/overrides", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got engine.Override
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, engine.OverridePerDay, got.Mode)
	assert.Equal(t, "3", got.Days["2025-03-10"].Multiplier)
}

func TestAPI_OverrideForUnknownUserIs404(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPut, "/api/users/ghost/overrides", api.OverrideRequest{
		Override: engine.Override{Mode: engine.OverrideGlobal},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_OverrideRejectsUnknownMode(t *testing.T) {
	h, _ := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/users", api.CreateUserRequest{ID: "u1", Name: "Ada"})

	rec := doJSON(t, h, http.MethodPut, "/api/users/u1/overrides",
		api.OverrideRequest{Override: engine.Override{Mode: "hourly"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestAPI_SettingsValidation(t *testing.T) {
	h, _ := newTestServer(t)

	bad := engine.CalculationParams{DailyThreshold: 8, OvertimeMultiplier: 0.5, Tier2Multiplier: 2}
	rec := doJSON(t, h, http.MethodPut, "/api/settings", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	good := engine.CalculationParams{DailyThreshold: 8, OvertimeMultiplier: 1.5, Tier2Multiplier: 2}
	rec = doJSON(t, h, http.MethodPut, "/api/settings", good)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// CALENDARS
// =============================================================================

func TestAPI_HolidayRoundTrip(t *testing.T) {
	h, store := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/users", api.CreateUserRequest{ID: "u1", Name: "Ada"})

	rec := doJSON(t, h, http.MethodPost, "/api/holidays", api.HolidayRequest{
		UserID: "u1", Date: "2025-03-10", Name: "Foundation Day", ProjectID: "p1",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	hol, ok := snap.HolidayFor("u1", "2025-03-10")
	require.True(t, ok)
	assert.Equal(t, "Foundation Day", hol.Name)
	assert.Equal(t, "p1", hol.ProjectID)
}

func TestAPI_HolidayRejectsBadDate(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/holidays", api.HolidayRequest{
		UserID: "u1", Date: "March 10th", Name: "Foundation Day",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_TimeOffRoundTrip(t *testing.T) {
	h, store := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/users", api.CreateUserRequest{ID: "u1", Name: "Ada"})

	rec := doJSON(t, h, http.MethodPost, "/api/timeoff", api.TimeOffRequest{
		UserID: "u1", Date: "2025-03-11", IsFullDay: false, Hours: 3,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	off, ok := snap.TimeOffFor("u1", "2025-03-11")
	require.True(t, ok)
	assert.False(t, off.IsFullDay)
	assert.Equal(t, 3.0, off.Hours)
}

func TestAPI_TimeOffRejectsBadDate(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/timeoff", api.TimeOffRequest{
		UserID: "u1", Date: "tomorrow", IsFullDay: true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestAPI_ListEntriesInRange(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/entries", api.ImportEntriesRequest{
		Entries: []engine.TimeEntry{
			{ID: "e1", UserID: "u1", Start: "2025-03-10T08:00:00Z", Duration: "PT8H"},
			{ID: "e2", UserID: "u1", Start: "2025-03-12T08:00:00Z", Duration: "PT8H"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/entries?start=2025-03-10&end=2025-03-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []engine.TimeEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}

func TestAPI_ListEntriesRejectsBadRange(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/entries?start=March&end=2025-03-11", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func seedReportData(t *testing.T, h http.Handler) {
	doJSON(t, h, http.MethodPost, "/api/users", api.CreateUserRequest{ID: "u1", Name: "Ada"})
	rec := doJSON(t, h, http.MethodPost, "/api/entries", api.ImportEntriesRequest{
		Entries: []engine.TimeEntry{
			{ID: "e1", UserID: "u1", Start: "2025-03-10T08:00:00Z", Duration: "PT9H", EarnedRate: 4000, Billable: true},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RunReport(t *testing.T) {
	h, _ := newTestServer(t)
	seedReportData(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/reports", api.ReportRequest{
		Start: "2025-03-10", End: "2025-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var report engine.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Users, 1)
	assert.Equal(t, 8.0, report.Users[0].Totals.RegularHours)
	assert.Equal(t, 1.0, report.Users[0].Totals.OvertimeHours)
}

func TestAPI_ReportWithAbsentRangeIsEmptyNotError(t *testing.T) {
	h, _ := newTestServer(t)
	seedReportData(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/reports", api.ReportRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	var report engine.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Users)
}

func TestAPI_ReportCSV(t *testing.T) {
	h, _ := newTestServer(t)
	seedReportData(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/csv?start=2025-03-10&end=2025-03-10", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "user,date,"))
	assert.Contains(t, body, "Ada")
}

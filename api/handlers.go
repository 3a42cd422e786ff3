/*
handlers.go - HTTP handlers for the overtime report service

PURPOSE:
  Exposes workspace configuration and report generation over REST.
  Handlers parse and validate input, delegate to the store and the
  engine, and serialize results.

ENDPOINTS:
  Users:
    GET    /api/users                    List users
    POST   /api/users                    Create/update a user (+ profile)
    GET    /api/users/{id}/overrides     Get a user's override record
    PUT    /api/users/{id}/overrides     Replace a user's override record

  Data:
    GET    /api/entries?start=&end=      List stored entries in a range
    POST   /api/entries                  Bulk-import time entries
    POST   /api/holidays                 Record a holiday
    POST   /api/timeoff                  Record time off

  Settings:
    GET    /api/settings                 Read calculation parameters
    PUT    /api/settings                 Replace calculation parameters

  Reports:
    POST   /api/reports                  Run the analysis for a range
    GET    /api/reports/csv?start=&end=  Same analysis as CSV

ERROR HANDLING:
  Errors return the JSON envelope {error, detail}:
  - 400: missing/invalid input (bad range, bad JSON)
  - 404: unknown user
  - 500: storage failures

  Report computation itself has no failure modes for domain data: the
  engine degrades instead of erroring, so a report request only fails on
  input validation or storage.

SEE ALSO:
  - dto.go:    Request/response shapes
  - server.go: Router and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/export"
	"github.com/warp/overtime-engine/offload"
	"github.com/warp/overtime-engine/store/sqlite"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Runner offload.Runner
}

// NewHandler creates a handler. Report runs go through the offload runner
// so request goroutines stay responsive to the rest of the pool.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store, Runner: offload.Default()}
}

// =============================================================================
// USERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = UserDTO{ID: u.ID, Name: u.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	id, err := h.Store.UpsertUser(r.Context(), engine.User{ID: req.ID, Name: req.Name})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}

	if req.Capacity != nil || len(req.WorkingDays) > 0 {
		profile := engine.Profile{UserID: id, Capacity: req.Capacity, WorkingDays: req.WorkingDays}
		if err := h.Store.SaveProfile(r.Context(), profile); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save profile", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, UserDTO{ID: id, Name: req.Name})
}

func (h *Handler) GetOverrides(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ov, found, err := h.Store.GetOverride(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read overrides", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "No overrides for user", nil)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (h *Handler) PutOverrides(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	switch req.Override.Mode {
	case engine.OverrideGlobal, engine.OverrideWeekly, engine.OverridePerDay:
	default:
		writeError(w, http.StatusBadRequest, "Unknown override mode", fmt.Errorf("mode %q", req.Override.Mode))
		return
	}

	exists, err := h.Store.UserExists(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check user", err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Unknown user", fmt.Errorf("user %q", userID))
		return
	}

	if err := h.Store.SetOverride(r.Context(), userID, req.Override); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save overrides", err)
		return
	}
	writeJSON(w, http.StatusOK, req.Override)
}

// =============================================================================
// DATA IMPORT
// =============================================================================

func (h *Handler) ImportEntries(w http.ResponseWriter, r *http.Request) {
	var req ImportEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Store.InsertEntries(r.Context(), req.Entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to import entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(req.Entries)})
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	rng := engine.DateRange{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}
	if _, ok := engine.ParseDateKey(rng.Start); !ok {
		writeError(w, http.StatusBadRequest, "Invalid start date", fmt.Errorf("start %q", rng.Start))
		return
	}
	if _, ok := engine.ParseDateKey(rng.End); !ok {
		writeError(w, http.StatusBadRequest, "Invalid end date", fmt.Errorf("end %q", rng.End))
		return
	}

	entries, err := h.Store.EntriesInRange(r.Context(), rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	if entries == nil {
		entries = []engine.TimeEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) AddHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := engine.ParseDateKey(req.Date); !ok {
		writeError(w, http.StatusBadRequest, "Invalid date", fmt.Errorf("date %q", req.Date))
		return
	}
	err := h.Store.AddHoliday(r.Context(), engine.Holiday{
		UserID: req.UserID, DateKey: req.Date, Name: req.Name, ProjectID: req.ProjectID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddTimeOff(w http.ResponseWriter, r *http.Request) {
	var req TimeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := engine.ParseDateKey(req.Date); !ok {
		writeError(w, http.StatusBadRequest, "Invalid date", fmt.Errorf("date %q", req.Date))
		return
	}
	err := h.Store.AddTimeOff(r.Context(), engine.TimeOffInfo{
		UserID: req.UserID, DateKey: req.Date, IsFullDay: req.IsFullDay, Hours: req.Hours,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save time off", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTINGS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	params, err := h.Store.Params(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var params engine.CalculationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if params.OvertimeMultiplier < 1 || params.Tier2Multiplier < 1 ||
		params.DailyThreshold < 0 || params.Tier2ThresholdHours < 0 {
		writeError(w, http.StatusBadRequest, "Multipliers must be >= 1 and thresholds >= 0", nil)
		return
	}
	if err := h.Store.SaveParams(r.Context(), params); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// =============================================================================
// REPORTS
// =============================================================================

func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, _, err := h.computeReport(r, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	req := ReportRequest{
		Start:         r.URL.Query().Get("start"),
		End:           r.URL.Query().Get("end"),
		AmountDisplay: engine.AmountBasis(r.URL.Query().Get("display")),
	}

	report, basis, err := h.computeReport(r, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run report", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "overtime-"+req.Start+"-"+req.End+".csv"))
	if err := export.WriteCSV(w, report, basis); err != nil {
		// Headers are gone; nothing better to do than log via the
		// middleware's response record.
		return
	}
}

// computeReport loads the stored configuration, applies the per-request
// display basis, and runs the analysis through the offload runner. An
// absent range is not an error: the engine returns an empty report by
// contract.
func (h *Handler) computeReport(r *http.Request, req ReportRequest) (*engine.Report, engine.AmountBasis, error) {
	input, err := h.Store.ReportInput(r.Context(), engine.DateRange{Start: req.Start, End: req.End})
	if err != nil {
		return nil, "", err
	}
	if req.AmountDisplay != "" {
		input.Config.Params.AmountDisplay = req.AmountDisplay
	}
	basis := input.Config.Params.Basis()

	report, err := h.Runner.Run(r.Context(), input)
	if err != nil {
		return nil, "", err
	}
	return report, basis, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	dto := ErrorDTO{Error: msg}
	if err != nil {
		dto.Detail = err.Error()
	}
	writeJSON(w, status, dto)
}

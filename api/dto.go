/*
dto.go - Request/response structures for the HTTP API

PURPOSE:
  Decouples the engine's types from the external JSON contract. Engine
  output (Report, UserAnalysis) is already plain serializable data and is
  returned as-is; these types cover the write paths and the report
  request.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO:     Response types returned to clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import "github.com/warp/overtime-engine/engine"

// CreateUserRequest creates or updates a report subject, optionally with
// its profile.
type CreateUserRequest struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Capacity    *float64 `json:"capacity,omitempty"`
	WorkingDays []string `json:"workingDays,omitempty"`
}

// UserDTO is a user in API responses.
type UserDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OverrideRequest replaces a user's override record.
type OverrideRequest struct {
	Override engine.Override `json:"override"`
}

// ImportEntriesRequest bulk-imports time entries.
type ImportEntriesRequest struct {
	Entries []engine.TimeEntry `json:"entries"`
}

// HolidayRequest records a holiday for a user and date.
type HolidayRequest struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId,omitempty"`
}

// TimeOffRequest records time off for a user and date.
type TimeOffRequest struct {
	UserID    string  `json:"userId"`
	Date      string  `json:"date"`
	IsFullDay bool    `json:"isFullDay"`
	Hours     float64 `json:"hours,omitempty"`
}

// ReportRequest asks for an analysis over a date range. AmountDisplay,
// when set, overrides the stored display basis for this run only.
type ReportRequest struct {
	Start         string             `json:"start"`
	End           string             `json:"end"`
	AmountDisplay engine.AmountBasis `json:"amountDisplay,omitempty"`
}

// ErrorDTO is the JSON error envelope.
type ErrorDTO struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

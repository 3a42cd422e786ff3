/*
Package engine implements the overtime allocation and amount engine.

PURPOSE:
  This package contains the pure computation at the heart of a
  time-and-attendance report: it turns a flat, unordered list of time
  entries for many users over a date range into a per-user, per-day
  breakdown of regular vs. overtime hours, tiered overtime premiums,
  and earned/cost/profit amounts.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: One recorded interval (immutable input)
  - Override: Per-user configuration override with a mode discriminant
  - CalculationParams: Process-wide defaults and feature toggles
  - DayData/DayMeta: Per-user per-day results and context
  - UserAnalysis/UserTotals: The per-user output record

DESIGN PRINCIPLES:
  1. Purity: Analyze is a transformation (entries, config, range) -> report.
     No I/O, no ambient state, no clock reads.
  2. Determinism: identical input produces bit-identical output, including
     every rounded field. The only running state is the per-user overtime
     accumulator, reset at the start of every run.
  3. Graceful degradation: malformed domain data never panics; bad values
     are treated as absent or zero (see resolver.go and allocator.go).

USAGE:
  report := engine.Analyze(engine.Input{
      Entries: entries,
      Range:   engine.DateRange{Start: "2025-03-01", End: "2025-03-31"},
      Config:  snapshot,
  })

SEE ALSO:
  - resolver.go:   Override precedence chain
  - daycontext.go: Per-day capacity and holiday/time-off flags
  - allocator.go:  Tail attribution and tier splitting
  - amounts.go:    Currency breakdowns and rounding
  - aggregator.go: Per-user totals and final ordering
*/
package engine

// =============================================================================
// ENTRY TYPES - Classification input
// =============================================================================

// EntryType is the raw type tag carried by a time entry. An empty type means
// regular work.
type EntryType string

const (
	TypeWork             EntryType = "WORK"
	TypeBreak            EntryType = "BREAK"
	TypeHoliday          EntryType = "HOLIDAY"
	TypeHolidayTimeEntry EntryType = "HOLIDAY_TIME_ENTRY"
	TypeTimeOff          EntryType = "TIME_OFF"
	TypeTimeOffTimeEntry EntryType = "TIME_OFF_TIME_ENTRY"
)

// Kind is the engine's three-way classification of an entry.
type Kind string

const (
	KindWork  Kind = "work"
	KindBreak Kind = "break"
	KindPTO   Kind = "pto"
)

// Classify maps a raw entry type to its kind. Anything that is not a break
// or a holiday/time-off marker counts as work, including untyped entries.
func Classify(t EntryType) Kind {
	switch t {
	case TypeBreak:
		return KindBreak
	case TypeHoliday, TypeHolidayTimeEntry, TypeTimeOff, TypeTimeOffTimeEntry:
		return KindPTO
	default:
		return KindWork
	}
}

// =============================================================================
// TIME ENTRY - Immutable input record
// =============================================================================

// TimeEntry is one recorded interval. Start and End are ISO-8601 timestamps
// kept as strings: the allocator orders entries by a stable lexicographic
// comparison on Start, which for ISO timestamps is chronological order.
// Duration is an ISO-8601 duration ("PT7H30M"); when absent or unparseable
// it is derived from Start/End, and failing that treated as zero.
type TimeEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       string    `json:"start"`
	End         string    `json:"end,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Type        EntryType `json:"type,omitempty"`
	Billable    bool      `json:"billable"`

	// Rates in minor currency units (cents) per hour.
	EarnedRate int64 `json:"earnedRate"`
	CostRate   int64 `json:"costRate"`
}

// =============================================================================
// CONFIGURATION - Overrides, profiles, calendar facts
// =============================================================================

// Parameter identifies one of the four per-user, per-day tunables the
// resolver can produce.
type Parameter string

const (
	ParamCapacity        Parameter = "capacity"
	ParamMultiplier      Parameter = "multiplier"
	ParamTier2Threshold  Parameter = "tier2Threshold"
	ParamTier2Multiplier Parameter = "tier2Multiplier"
)

// OverrideMode selects which keyed values of an Override apply.
type OverrideMode string

const (
	OverrideGlobal OverrideMode = "global"
	OverrideWeekly OverrideMode = "weekly"
	OverridePerDay OverrideMode = "perDay"
)

// ParameterSet holds the four tunables as stored: strings, parsed on read.
// An empty string means "not set"; an unparseable string is treated the
// same way so a bad value never wins the precedence chain.
type ParameterSet struct {
	Capacity        string `json:"capacity,omitempty"`
	Multiplier      string `json:"multiplier,omitempty"`
	Tier2Threshold  string `json:"tier2Threshold,omitempty"`
	Tier2Multiplier string `json:"tier2Multiplier,omitempty"`
}

// Get returns the stored string for a parameter.
func (ps ParameterSet) Get(p Parameter) string {
	switch p {
	case ParamCapacity:
		return ps.Capacity
	case ParamMultiplier:
		return ps.Multiplier
	case ParamTier2Threshold:
		return ps.Tier2Threshold
	case ParamTier2Multiplier:
		return ps.Tier2Multiplier
	default:
		return ""
	}
}

// Override is a per-user configuration override. Mode decides whether the
// Days or Weekly map participates in resolution; Values is consulted for
// every mode as the user-level fallback.
//
// Weekly is keyed by lowercase English weekday name ("monday"); Days is
// keyed by "YYYY-MM-DD".
type Override struct {
	Mode   OverrideMode            `json:"mode"`
	Values ParameterSet            `json:"values"`
	Weekly map[string]ParameterSet `json:"weekly,omitempty"`
	Days   map[string]ParameterSet `json:"days,omitempty"`
}

// Profile is optional per-user capacity and working-day data, consulted only
// when the corresponding feature toggle is on.
type Profile struct {
	UserID   string   `json:"userId"`
	Capacity *float64 `json:"capacity,omitempty"`
	// WorkingDays lists lowercase weekday names. Empty means unknown, in
	// which case every day counts as working.
	WorkingDays []string `json:"workingDays,omitempty"`
}

// WorksOn reports whether the profile includes the given weekday. A profile
// with no working-day data works every day.
func (p Profile) WorksOn(weekday string) bool {
	if len(p.WorkingDays) == 0 {
		return true
	}
	for _, d := range p.WorkingDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// Holiday is a per-user, per-date holiday fact.
type Holiday struct {
	UserID    string `json:"userId"`
	DateKey   string `json:"date"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId,omitempty"`
}

// TimeOffInfo is a per-user, per-date time-off fact.
type TimeOffInfo struct {
	UserID    string  `json:"userId"`
	DateKey   string  `json:"date"`
	IsFullDay bool    `json:"isFullDay"`
	Hours     float64 `json:"hours,omitempty"`
}

// AmountBasis selects which of the three amount bases is surfaced as the
// primary amount.
type AmountBasis string

const (
	BasisEarned AmountBasis = "earned"
	BasisCost   AmountBasis = "cost"
	BasisProfit AmountBasis = "profit"
)

// CalculationParams are the process-wide defaults and feature toggles.
// Invariants: OvertimeMultiplier >= 1, Tier2Multiplier >= 1, thresholds >= 0.
type CalculationParams struct {
	UseProfileCapacity    bool `json:"useProfileCapacity"`
	UseProfileWorkingDays bool `json:"useProfileWorkingDays"`
	ApplyHolidays         bool `json:"applyHolidays"`
	ApplyTimeOff          bool `json:"applyTimeOff"`

	AmountDisplay AmountBasis `json:"amountDisplay,omitempty"`

	DailyThreshold      float64 `json:"dailyThreshold"`
	OvertimeMultiplier  float64 `json:"overtimeMultiplier"`
	Tier2ThresholdHours float64 `json:"tier2ThresholdHours"`
	Tier2Multiplier     float64 `json:"tier2Multiplier"`
}

// Basis returns the configured display basis, defaulting to earned.
func (p CalculationParams) Basis() AmountBasis {
	switch p.AmountDisplay {
	case BasisCost, BasisProfit:
		return p.AmountDisplay
	default:
		return BasisEarned
	}
}

// User identifies a known report subject.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is the explicit configuration snapshot the engine consumes. It is
// plain data so it can cross the offload boundary by serialization.
type Snapshot struct {
	Users     []User                 `json:"users"`
	Profiles  map[string]Profile     `json:"profiles,omitempty"`
	Holidays  map[string]Holiday     `json:"holidays,omitempty"` // key: userID + "|" + dateKey
	TimeOff   map[string]TimeOffInfo `json:"timeOff,omitempty"`  // key: userID + "|" + dateKey
	Overrides map[string]Override    `json:"overrides,omitempty"`
	Params    CalculationParams      `json:"params"`
}

// CalendarKey builds the lookup key for holiday and time-off maps.
func CalendarKey(userID, dateKey string) string { return userID + "|" + dateKey }

// HolidayFor looks up the holiday fact for a user and date.
func (s *Snapshot) HolidayFor(userID, dateKey string) (Holiday, bool) {
	h, ok := s.Holidays[CalendarKey(userID, dateKey)]
	return h, ok
}

// TimeOffFor looks up the time-off fact for a user and date.
func (s *Snapshot) TimeOffFor(userID, dateKey string) (TimeOffInfo, bool) {
	t, ok := s.TimeOff[CalendarKey(userID, dateKey)]
	return t, ok
}

// ProfileFor looks up a user profile.
func (s *Snapshot) ProfileFor(userID string) (Profile, bool) {
	p, ok := s.Profiles[userID]
	return p, ok
}

// OverrideFor looks up a user's override record.
func (s *Snapshot) OverrideFor(userID string) (Override, bool) {
	o, ok := s.Overrides[userID]
	return o, ok
}

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// DateRange is an inclusive range of "YYYY-MM-DD" date keys.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Input is the complete argument to Analyze.
type Input struct {
	Entries []TimeEntry `json:"entries"`
	Range   DateRange   `json:"range"`
	Config  Snapshot    `json:"config"`
}

// EntryAnalysis is the derived result attached to each processed entry.
type EntryAnalysis struct {
	Kind          Kind    `json:"kind"`
	Hours         float64 `json:"hours"`
	RegularHours  float64 `json:"regularHours"`
	OvertimeHours float64 `json:"overtimeHours"`
	Tier1Hours    float64 `json:"tier1Hours"`
	Tier2Hours    float64 `json:"tier2Hours"`

	Earned Breakdown `json:"earned"`
	Cost   Breakdown `json:"cost"`
	Profit Breakdown `json:"profit"`

	// PrimaryAmount is the total-with-overtime of the basis selected by
	// CalculationParams.AmountDisplay.
	PrimaryAmount float64 `json:"primaryAmount"`
}

// EntryResult pairs a source entry with its analysis. The source entry is
// carried unmodified.
type EntryResult struct {
	Entry    TimeEntry     `json:"entry"`
	Analysis EntryAnalysis `json:"analysis"`
}

// DayMeta is the per-user per-day context computed before allocation.
type DayMeta struct {
	Capacity         float64 `json:"capacity"` // effective, post-adjustment
	BaseCapacity     float64 `json:"baseCapacity"`
	IsHoliday        bool    `json:"isHoliday"`
	HolidayName      string  `json:"holidayName,omitempty"`
	HolidayProjectID string  `json:"holidayProjectId,omitempty"`
	IsNonWorking     bool    `json:"isNonWorking"`
	IsTimeOff        bool    `json:"isTimeOff"`
	HolidayHours     float64 `json:"holidayHours"`
	TimeOffHours     float64 `json:"timeOffHours"`
}

// DayData is the processed view of one user-day. Created for every date in
// the report range, including days with no entries.
type DayData struct {
	Entries []EntryResult `json:"entries,omitempty"`
	Meta    DayMeta       `json:"meta"`
}

// BasisTotals accumulates amounts for one basis across a user's entries.
type BasisTotals struct {
	Regular           float64 `json:"regular"`
	OvertimeBase      float64 `json:"overtimeBase"`
	Tier1Premium      float64 `json:"tier1Premium"`
	Tier2Premium      float64 `json:"tier2Premium"`
	TotalWithOvertime float64 `json:"totalWithOvertime"`
	TotalWithoutOT    float64 `json:"totalWithoutOvertime"`
}

// UserTotals is the flat accumulator record for one user.
type UserTotals struct {
	TotalHours    float64 `json:"totalHours"`
	RegularHours  float64 `json:"regularHours"`
	OvertimeHours float64 `json:"overtimeHours"`
	Tier1Hours    float64 `json:"tier1Hours"`
	Tier2Hours    float64 `json:"tier2Hours"`

	BreakHours    float64 `json:"breakHours"`
	VacationHours float64 `json:"vacationHours"` // PTO-classified entry hours

	BillableHours            float64 `json:"billableHours"`
	NonBillableHours         float64 `json:"nonBillableHours"`
	BillableOvertimeHours    float64 `json:"billableOvertimeHours"`
	NonBillableOvertimeHours float64 `json:"nonBillableOvertimeHours"`

	ExpectedCapacity float64 `json:"expectedCapacity"`
	HolidayDays      int     `json:"holidayDays"`
	HolidayHours     float64 `json:"holidayHours"`
	TimeOffDays      int     `json:"timeOffDays"`
	TimeOffHours     float64 `json:"timeOffHours"`

	Earned BasisTotals `json:"earned"`
	Cost   BasisTotals `json:"cost"`
	Profit BasisTotals `json:"profit"`

	PrimaryAmount float64 `json:"primaryAmount"`
}

// UserAnalysis is the per-user output record. Days maps date key to the
// day's data; JSON encoding orders map keys, so serialized output is stable.
type UserAnalysis struct {
	UserID   string              `json:"userId"`
	UserName string              `json:"userName"`
	Days     map[string]*DayData `json:"days"`
	Totals   UserTotals          `json:"totals"`
}

// Report is the full analysis, ordered by user display name.
type Report struct {
	Users []UserAnalysis `json:"users"`
}

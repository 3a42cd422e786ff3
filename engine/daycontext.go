/*
daycontext.go - Per-day capacity and calendar flags

PURPOSE:
  Computes, for one user on one calendar day, the day's effective capacity
  and its holiday / non-working / time-off flags. The adjustments are
  applied in a fixed order and are NOT mutually exclusive: a day can be a
  holiday and carry a time-off record at the same time, in which case both
  facts are reported but capacity is only zeroed once.

ORDER OF ADJUSTMENTS:
  1. Resolve base capacity (resolver.go)
  2. Non-working day per profile working-day set -> capacity 0
  3. Holiday -> capacity 0, HolidayHours = capacity before zeroing
  4. Time-off: full day -> capacity 0, TimeOffHours = pre-holiday capacity;
     partial -> capacity reduced by min(capacity, hours), TimeOffHours =
     recorded hours. Runs even when a holiday already zeroed capacity so
     the statistics still accrue, but never pushes capacity below zero.

FALLBACK DETECTION:
  When the holiday (resp. time-off) feature flag is OFF, the builder
  inspects the day's own entries for HOLIDAY / TIME_OFF type markers and
  applies a best-effort approximation of the same capacity effects. The
  fallback never runs when the flag is on: the authoritative record and
  the tagged entries describe the same fact and must not be counted twice.
  The two paths intentionally compute HolidayHours/TimeOffHours with
  slightly different formulas; see DESIGN.md.
*/
package engine

// DayBuilder computes DayMeta records for one run.
type DayBuilder struct {
	config   *Snapshot
	resolver *Resolver
}

// NewDayBuilder creates a builder over the given snapshot, sharing the
// run's resolver.
func NewDayBuilder(config *Snapshot, resolver *Resolver) *DayBuilder {
	return &DayBuilder{config: config, resolver: resolver}
}

// Build computes the day context for a user on a date. entries are the
// day's own entries, consulted only by the fallback type detection.
func (b *DayBuilder) Build(userID, dateKey string, entries []TimeEntry) DayMeta {
	params := b.config.Params

	meta := DayMeta{}
	capacity := b.resolver.Capacity(userID, dateKey)
	if capacity < 0 {
		capacity = 0
	}
	meta.BaseCapacity = capacity

	// Non-working day per profile.
	if params.UseProfileWorkingDays {
		if p, ok := b.config.ProfileFor(userID); ok && !p.WorksOn(WeekdayName(dateKey)) {
			meta.IsNonWorking = true
			capacity = 0
		}
	}

	// Holiday zeroing. HolidayHours records what the day would have been
	// worth, i.e. the capacity after the non-working adjustment but before
	// zeroing.
	preHoliday := capacity
	if params.ApplyHolidays {
		if h, ok := b.config.HolidayFor(userID, dateKey); ok {
			meta.IsHoliday = true
			meta.HolidayName = h.Name
			meta.HolidayProjectID = h.ProjectID
			meta.HolidayHours = capacity
			capacity = 0
		}
	}

	// Time-off. Runs even on an already-zeroed day so the hour statistics
	// accrue, but only ever reduces whatever capacity is left.
	if params.ApplyTimeOff {
		if t, ok := b.config.TimeOffFor(userID, dateKey); ok {
			meta.IsTimeOff = true
			if t.IsFullDay {
				meta.TimeOffHours = preHoliday
				capacity = 0
			} else {
				meta.TimeOffHours = t.Hours
				reduction := t.Hours
				if reduction > capacity {
					reduction = capacity
				}
				capacity -= reduction
			}
		}
	}

	// Entry-tag fallback, only for facts the authoritative path is not
	// covering.
	if !params.ApplyHolidays {
		if name, ok := taggedHoliday(entries); ok {
			meta.IsHoliday = true
			meta.HolidayName = name
			meta.HolidayHours = capacity
			capacity = 0
		}
	}
	if !params.ApplyTimeOff {
		if hours, ok := taggedTimeOff(entries); ok {
			meta.IsTimeOff = true
			meta.TimeOffHours = hours
			reduction := hours
			if reduction > capacity {
				reduction = capacity
			}
			capacity -= reduction
		}
	}

	if capacity < 0 {
		capacity = 0
	}
	meta.Capacity = capacity
	return meta
}

// taggedHoliday scans a day's entries for a holiday type marker.
func taggedHoliday(entries []TimeEntry) (string, bool) {
	for _, e := range entries {
		if e.Type == TypeHoliday || e.Type == TypeHolidayTimeEntry {
			return e.Description, true
		}
	}
	return "", false
}

// taggedTimeOff scans a day's entries for time-off markers and sums their
// durations. The fallback treats every tagged record as partial time-off;
// unlike the authoritative path it has no full-day flag to consult.
func taggedTimeOff(entries []TimeEntry) (float64, bool) {
	var hours float64
	found := false
	for _, e := range entries {
		if e.Type == TypeTimeOff || e.Type == TypeTimeOffTimeEntry {
			hours += EntryHours(e)
			found = true
		}
	}
	return hours, found
}

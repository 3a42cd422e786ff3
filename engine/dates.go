package engine

import (
	"strings"
	"time"
)

// =============================================================================
// DATE KEYS - "YYYY-MM-DD" handling, always UTC
// =============================================================================
// All date math parses keys in UTC. Resolving a weekday through the local
// timezone can shift the date across midnight and pick the wrong weekday
// override, so the local zone is never consulted.

const dateKeyLayout = "2006-01-02"

// ParseDateKey parses a "YYYY-MM-DD" key in UTC.
func ParseDateKey(key string) (time.Time, bool) {
	t, err := time.Parse(dateKeyLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WeekdayName returns the lowercase English weekday for a date key, or ""
// when the key does not parse.
func WeekdayName(key string) string {
	t, ok := ParseDateKey(key)
	if !ok {
		return ""
	}
	return strings.ToLower(t.Weekday().String())
}

// DateKeysInRange returns every date key from start to end inclusive, in
// chronological order. An unparseable or inverted range yields nil.
func DateKeysInRange(r DateRange) []string {
	start, ok := ParseDateKey(r.Start)
	if !ok {
		return nil
	}
	end, ok := ParseDateKey(r.End)
	if !ok {
		return nil
	}
	if end.Before(start) {
		return nil
	}

	var keys []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(dateKeyLayout))
	}
	return keys
}

// EntryDateKey derives the calendar day an entry belongs to from its start
// timestamp. Entries without a usable date are skipped by the engine.
func EntryDateKey(e TimeEntry) (string, bool) {
	if len(e.Start) < len(dateKeyLayout) {
		return "", false
	}
	key := e.Start[:len(dateKeyLayout)]
	if _, ok := ParseDateKey(key); !ok {
		return "", false
	}
	return key, true
}

// =============================================================================
// DURATIONS - ISO-8601 parsing with start/end fallback
// =============================================================================

// EntryHours resolves an entry's duration in hours. Order of preference:
// the ISO-8601 duration field, then the difference between parseable start
// and end timestamps. Anything else is zero; a bad duration must not poison
// the rest of the day.
func EntryHours(e TimeEntry) float64 {
	if h, ok := parseISODurationHours(e.Duration); ok {
		return h
	}
	if h, ok := hoursBetween(e.Start, e.End); ok {
		return h
	}
	return 0
}

func hoursBetween(start, end string) (float64, bool) {
	s, err := parseTimestamp(start)
	if err != nil {
		return 0, false
	}
	e, err := parseTimestamp(end)
	if err != nil {
		return 0, false
	}
	h := e.Sub(s).Hours()
	if h < 0 {
		return 0, false
	}
	return h, true
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	// Source systems frequently omit the zone designator.
	return time.Parse("2006-01-02T15:04:05", s)
}

// parseISODurationHours parses the PTnHnMnS subset of ISO-8601 durations
// that time-tracking sources emit (optionally with a day component, "P1DT2H").
func parseISODurationHours(s string) (float64, bool) {
	if s == "" || s[0] != 'P' {
		return 0, false
	}
	rest := s[1:]

	var hours float64
	inTime := false
	num := ""
	valid := false

	for _, c := range rest {
		switch {
		case c >= '0' && c <= '9' || c == '.':
			num += string(c)
		case c == 'T':
			inTime = true
			num = ""
		default:
			v, ok := parseFloat(num)
			if !ok {
				return 0, false
			}
			num = ""
			switch c {
			case 'D':
				hours += v * 24
			case 'H':
				if !inTime {
					return 0, false
				}
				hours += v
			case 'M':
				if !inTime {
					return 0, false // months are not supported
				}
				hours += v / 60
			case 'S':
				if !inTime {
					return 0, false
				}
				hours += v / 3600
			default:
				return 0, false
			}
			valid = true
		}
	}
	if num != "" {
		return 0, false // trailing number without a designator
	}
	return hours, valid
}

package export_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/export"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Ada Lovelace", "Ada Lovelace"},
		{"=HYPERLINK(\"http://evil\")", "'=HYPERLINK(\"http://evil\")"},
		{"+1-555", "'+1-555"},
		{"-cmd", "'-cmd"},
		{"@import", "'@import"},
		{"\tlead", "'\tlead"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, export.Sanitize(tt.input))
	}
}

func TestWriteCSV_RowsPerDayPlusTotals(t *testing.T) {
	// GIVEN: one user with a worked day and an empty day over a 2-day range
	// WHEN:  exporting
	// THEN:  header + two day rows + one totals row, day rows date-ordered

	report := engine.Analyze(engine.Input{
		Entries: []engine.TimeEntry{
			{ID: "e1", UserID: "u1", Start: "2025-03-10T08:00:00Z", Duration: "PT9H", EarnedRate: 4000, Billable: true},
		},
		Range: engine.DateRange{Start: "2025-03-10", End: "2025-03-11"},
		Config: engine.Snapshot{
			Users: []engine.User{{ID: "u1", Name: "=evil()"}},
			Params: engine.CalculationParams{
				DailyThreshold:     8,
				OvertimeMultiplier: 1.5,
				Tier2Multiplier:    2,
			},
		},
	})

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, report, engine.BasisEarned))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "user,date,"))
	assert.Contains(t, lines[1], "2025-03-10")
	assert.Contains(t, lines[2], "2025-03-11")
	assert.Contains(t, lines[3], "total")

	// The hostile user name is neutralized in every row.
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "'=evil()"), "line %q should be sanitized", line)
	}
}

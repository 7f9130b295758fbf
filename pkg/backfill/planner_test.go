package backfill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateFormat, s)
	require.NoError(t, err)
	return parsed.UTC()
}

func TestNewPlan(t *testing.T) {
	today := date(t, "2026-08-27")

	tests := []struct {
		name     string
		start    string
		end      string
		weekdays []time.Weekday
		want     []string
		wantErr  error
	}{
		{
			name:  "single date when start equals end",
			start: "2024-06-15",
			end:   "2024-06-15",
			want:  []string{"2024-06-15"},
		},
		{
			name:  "inclusive range in ascending order",
			start: "2024-06-01",
			end:   "2024-06-05",
			want:  []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", "2024-06-05"},
		},
		{
			name:  "spans a month boundary",
			start: "2024-06-29",
			end:   "2024-07-02",
			want:  []string{"2024-06-29", "2024-06-30", "2024-07-01", "2024-07-02"},
		},
		{
			name:  "spans the leap day",
			start: "2024-02-28",
			end:   "2024-03-01",
			want:  []string{"2024-02-28", "2024-02-29", "2024-03-01"},
		},
		{
			name:     "weekday filter keeps only mondays",
			start:    "2024-06-01",
			end:      "2024-06-30",
			weekdays: []time.Weekday{time.Monday},
			want:     []string{"2024-06-03", "2024-06-10", "2024-06-17", "2024-06-24"},
		},
		{
			name:     "multiple weekday filters union",
			start:    "2024-06-03",
			end:      "2024-06-09",
			weekdays: []time.Weekday{time.Monday, time.Friday},
			want:     []string{"2024-06-03", "2024-06-07"},
		},
		{
			name:     "weekday filter can yield an empty plan",
			start:    "2024-06-04",
			end:      "2024-06-06",
			weekdays: []time.Weekday{time.Sunday},
			want:     nil,
		},
		{
			name:    "start after end is rejected",
			start:   "2024-06-10",
			end:     "2024-06-01",
			wantErr: ErrStartAfterEnd,
		},
		{
			name:    "future end date is rejected",
			start:   "2026-08-26",
			end:     "2026-08-28",
			wantErr: ErrFutureDate,
		},
		{
			name:  "today itself is allowed",
			start: "2026-08-27",
			end:   "2026-08-27",
			want:  []string{"2026-08-27"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPlan(date(t, tt.start), date(t, tt.end), tt.weekdays, today)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, plan)
				return
			}

			require.NoError(t, err)
			var got []string
			for _, d := range plan {
				got = append(got, d.Format(DateFormat))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPlan_FutureDateFilteredOutByWeekday(t *testing.T) {
	// The only future date in the range falls on a filtered-out weekday, so
	// the plan never contains it and planning succeeds.
	today := date(t, "2024-06-07") // a Friday

	plan, err := NewPlan(date(t, "2024-06-03"), date(t, "2024-06-08"),
		[]time.Weekday{time.Monday, time.Friday}, today)
	require.NoError(t, err)

	got := make([]string, 0, len(plan))
	for _, d := range plan {
		got = append(got, d.Format(DateFormat))
	}
	assert.Equal(t, []string{"2024-06-03", "2024-06-07"}, got)
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Weekday
		wantErr bool
	}{
		{name: "lowercase", input: "monday", want: time.Monday},
		{name: "mixed case", input: "Friday", want: time.Friday},
		{name: "uppercase", input: "SUNDAY", want: time.Sunday},
		{name: "abbreviation is rejected", input: "mon", wantErr: true},
		{name: "empty string is rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := ParseWeekday(tt.input)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownWeekday)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, day)
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Run("canonical layout", func(t *testing.T) {
		d, err := ParseDate("2024-06-15")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-15", d.Format(DateFormat))
	})

	t.Run("rejects other layouts", func(t *testing.T) {
		for _, input := range []string{"06/15/2024", "2024-6-15", "20240615", "junk"} {
			_, err := ParseDate(input)
			assert.Error(t, err, "input %q", input)
		}
	})
}

func TestDay(t *testing.T) {
	stamp := time.Date(2024, 6, 15, 17, 42, 3, 999, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), Day(stamp))
}

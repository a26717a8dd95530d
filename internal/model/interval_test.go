package model

import (
	"errors"
	"testing"
	"time"

	"github.com/florin-app/florin/internal/common"
)

func TestParseInterval(t *testing.T) {
	for _, name := range []string{"hour", "day", "week", "month", "year"} {
		if _, err := ParseInterval(name); err != nil {
			t.Errorf("ParseInterval(%q) error = %v", name, err)
		}
	}

	_, err := ParseInterval("fortnight")
	if !errors.Is(err, common.ErrInvalidInterval) {
		t.Errorf("ParseInterval(fortnight) error = %v, want ErrInvalidInterval", err)
	}
}

func TestInterval_Truncate(t *testing.T) {
	// A Thursday afternoon.
	ref := time.Date(2026, 3, 19, 14, 35, 42, 0, time.UTC)

	tests := []struct {
		name     string
		interval Interval
		want     time.Time
	}{
		{
			name:     "hour",
			interval: IntervalHour,
			want:     time.Date(2026, 3, 19, 14, 0, 0, 0, time.UTC),
		},
		{
			name:     "day",
			interval: IntervalDay,
			want:     time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "week starts Monday",
			interval: IntervalWeek,
			want:     time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "month",
			interval: IntervalMonth,
			want:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "year",
			interval: IntervalYear,
			want:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.interval.Truncate(ref); !got.Equal(tt.want) {
				t.Errorf("Truncate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterval_TruncateWeekOnSunday(t *testing.T) {
	// A Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 3, 22, 10, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if got := IntervalWeek.Truncate(sunday); !got.Equal(want) {
		t.Errorf("Truncate() = %v, want %v", got, want)
	}
}

func TestInterval_Step(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := IntervalMonth.Step(start, 2); !got.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month Step(2) = %v", got)
	}
	if got := IntervalDay.Step(start, 1); !got.Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day Step(1) = %v", got)
	}
	if got := IntervalHour.Step(start, 3); !got.Equal(time.Date(2026, 2, 28, 21, 0, 0, 0, time.UTC)) {
		t.Errorf("hour Step(3) = %v", got)
	}
	if got := IntervalWeek.Step(start, 1); !got.Equal(time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week Step(1) = %v", got)
	}
	if got := IntervalYear.Step(start, 1); !got.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("year Step(1) = %v", got)
	}
}

func TestInterval_StepThenNextRoundTrips(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, iv := range []Interval{IntervalHour, IntervalDay, IntervalWeek, IntervalMonth, IntervalYear} {
		if got := iv.Next(iv.Step(start, 1)); !got.Equal(start) {
			t.Errorf("%s: Next(Step(1)) = %v, want %v", iv, got, start)
		}
	}
}

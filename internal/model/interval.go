package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/common"
)

// Interval is the width of a candlestick bucket.
type Interval string

// Recognized candlestick intervals.
const (
	IntervalHour  Interval = "hour"
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// ParseInterval converts a wire value into an Interval. Unrecognized names
// are rejected, never mapped to a fallback.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalHour, IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return Interval(s), nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrInvalidInterval, s)
	}
}

// Truncate returns the start of the bucket containing t. Hour and day
// truncate to the unit start, week truncates to the ISO week's first day
// (Monday), month to day 1 and year to January 1. All bucket math is in UTC.
func (i Interval) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch i {
	case IntervalHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case IntervalDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case IntervalWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case IntervalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case IntervalYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// Next returns the start of the bucket following the bucket starting at t.
func (i Interval) Next(t time.Time) time.Time {
	switch i {
	case IntervalHour:
		return t.Add(time.Hour)
	case IntervalDay:
		return t.AddDate(0, 0, 1)
	case IntervalWeek:
		return t.AddDate(0, 0, 7)
	case IntervalMonth:
		return t.AddDate(0, 1, 0)
	case IntervalYear:
		return t.AddDate(1, 0, 0)
	}
	return t
}

// Step moves a bucket start n buckets back.
func (i Interval) Step(t time.Time, n int) time.Time {
	switch i {
	case IntervalHour:
		return t.Add(-time.Duration(n) * time.Hour)
	case IntervalDay:
		return t.AddDate(0, 0, -n)
	case IntervalWeek:
		return t.AddDate(0, 0, -7*n)
	case IntervalMonth:
		return t.AddDate(0, -n, 0)
	case IntervalYear:
		return t.AddDate(-n, 0, 0)
	}
	return t
}

// Candlestick is an OHLCV summary of balance movement within one bucket.
// Timestamp is the bucket start. A bucket with no transactions reports
// open = high = low = close and zero volume.
type Candlestick struct {
	Timestamp time.Time
	Open      decimal.Decimal
	Close     decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    decimal.Decimal
}

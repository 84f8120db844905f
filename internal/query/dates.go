package query

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the date format of the filter inputs.
const DateLayout = "2006-01-02"

// isoLayout matches the browser's Date.toISOString output.
const isoLayout = "2006-01-02T15:04:05.000Z"

var ErrInvalidDate = errors.New("invalid date, use YYYY-MM-DD")

// StartOfDay returns 00:00:00.000 of date in loc.
func StartOfDay(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// EndOfDay returns 23:59:59.999 of date in loc.
func EndOfDay(date string, loc *time.Location) (time.Time, error) {
	t, err := StartOfDay(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc), nil
}

// InclusiveEndOfDay returns the last millisecond of date in loc as an absolute
// UTC timestamp string, so that an upper bound covers the whole day.
func InclusiveEndOfDay(date string, loc *time.Location) (string, error) {
	t, err := EndOfDay(date, loc)
	if err != nil {
		return "", err
	}
	return FormatISO(t), nil
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

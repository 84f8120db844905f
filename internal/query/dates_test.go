package query

import (
	"testing"
	"time"
)

func TestInclusiveEndOfDay(t *testing.T) {
	got, err := InclusiveEndOfDay("2024-03-15", art)
	if err != nil {
		t.Fatalf("end of day: %v", err)
	}
	// 23:59:59.999 at UTC-3 is 02:59:59.999 the next day in UTC.
	if want := "2024-03-16T02:59:59.999Z"; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	utc, err := InclusiveEndOfDay("2024-03-15", time.UTC)
	if err != nil {
		t.Fatalf("end of day utc: %v", err)
	}
	if want := "2024-03-15T23:59:59.999Z"; utc != want {
		t.Fatalf("got %s, want %s", utc, want)
	}
}

func TestEndOfDayBoundsTheWholeDay(t *testing.T) {
	end, err := EndOfDay("2024-03-15", art)
	if err != nil {
		t.Fatalf("end of day: %v", err)
	}
	bound := Clause{Field: FieldFechaCompra, Op: OpLTE, Values: []any{end}}

	if !bound.Matches(time.Date(2024, 3, 15, 10, 0, 0, 0, art)) {
		t.Error("a record on the selected day must be included")
	}
	if bound.Matches(time.Date(2024, 3, 16, 0, 0, 0, 0, art)) {
		t.Error("a record at midnight of the next day must be excluded")
	}
}

func TestStartOfDay(t *testing.T) {
	start, err := StartOfDay("2024-03-15", art)
	if err != nil {
		t.Fatalf("start of day: %v", err)
	}
	if !start.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, art)) {
		t.Errorf("got %v", start)
	}
	if _, err := StartOfDay("2024-13-01", art); err == nil {
		t.Error("expected invalid month to fail")
	}
	if _, err := InclusiveEndOfDay("", art); err == nil {
		t.Error("expected empty date to fail")
	}
}

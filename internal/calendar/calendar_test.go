package calendar

import (
	"testing"
	"time"

	"github.com/gitrdm/linebalancer/internal/plannererr"
)

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	return d
}

func TestBuildEmptyCalendar(t *testing.T) {
	_, _, err := Build(nil)
	if !plannererr.Is(err, plannererr.EmptyCalendar) {
		t.Fatalf("expected EmptyCalendar, got %v", err)
	}
}

func TestBuildSkipsZeroDurationShift(t *testing.T) {
	day := mustDay(t, "2025-03-03")
	shifts := []Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 8*time.Hour + 30*time.Second, OperatorCapacity: 2}, // under one minute: zero whole minutes
		{Day: day, StartTimeOfDay: 9 * time.Hour, EndTimeOfDay: 10 * time.Hour, OperatorCapacity: 1},
	}
	cal, warnings, err := Build(shifts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if len(cal.Intervals()) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(cal.Intervals()))
	}
}

func TestCompressRoundTrip(t *testing.T) {
	day := mustDay(t, "2025-03-03")
	shifts := []Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 2},
	}
	cal, _, err := Build(shifts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	iv := cal.Intervals()[0]
	for delta := 0; delta <= iv.CompEnd-iv.CompStart; delta++ {
		real := iv.RealStart.Add(time.Duration(delta) * time.Minute)
		got := cal.Compress(real)
		want := iv.CompStart + delta
		if got != want {
			t.Fatalf("Compress(%v) = %d, want %d", real, got, want)
		}
	}
}

func TestCompressGapSnapsForward(t *testing.T) {
	day := mustDay(t, "2025-03-03")
	shifts := []Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 12 * time.Hour, OperatorCapacity: 1},
		{Day: day, StartTimeOfDay: 13 * time.Hour, EndTimeOfDay: 17 * time.Hour, OperatorCapacity: 1},
	}
	cal, _, err := Build(shifts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	gapInstant := day.Add(12*time.Hour + 30*time.Minute)
	got := cal.Compress(gapInstant)
	want := cal.Intervals()[1].CompStart
	if got != want {
		t.Fatalf("Compress(gap) = %d, want %d", got, want)
	}
}

func TestCompressBeforeAndAfterCalendar(t *testing.T) {
	day := mustDay(t, "2025-03-03")
	shifts := []Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 1},
	}
	cal, _, err := Build(shifts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	before := day.Add(1 * time.Hour)
	if got := cal.Compress(before); got != 0 {
		t.Fatalf("Compress(before) = %d, want 0", got)
	}
	after := day.Add(20 * time.Hour)
	if got := cal.Compress(after); got != cal.TotalMinutes() {
		t.Fatalf("Compress(after) = %d, want %d", got, cal.TotalMinutes())
	}
}

func TestDecompressOutOfRange(t *testing.T) {
	day := mustDay(t, "2025-03-03")
	shifts := []Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 1},
	}
	cal, _, err := Build(shifts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = cal.Decompress(99999, ModeStart)
	if !plannererr.Is(err, plannererr.OutOfCalendarRange) {
		t.Fatalf("expected OutOfCalendarRange, got %v", err)
	}
}

func TestOvernightShift(t *testing.T) {
	day := mustDay(t, "2025-03-03")
	shifts := []Shift{
		{Day: day, StartTimeOfDay: 22 * time.Hour, EndTimeOfDay: 6 * time.Hour, OperatorCapacity: 1},
	}
	cal, _, err := Build(shifts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	iv := cal.Intervals()[0]
	wantEnd := day.AddDate(0, 0, 1).Add(6 * time.Hour)
	if !iv.RealEnd.Equal(wantEnd) {
		t.Fatalf("RealEnd = %v, want %v", iv.RealEnd, wantEnd)
	}
}

func TestWorkingDays(t *testing.T) {
	day := mustDay(t, "2025-03-03")
	day2 := mustDay(t, "2025-03-04")
	shifts := []Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 1},
		{Day: day2, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 1},
	}
	cal, _, err := Build(shifts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a := day.Add(8 * time.Hour)
	b := day2.Add(16 * time.Hour)
	got := cal.WorkingDays(a, b)
	if got < 1.9 || got > 2.1 {
		t.Fatalf("WorkingDays = %v, want ~2.0", got)
	}
}

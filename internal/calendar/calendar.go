// Package calendar compresses a discontinuous working-time calendar made
// of shift rows into a dense integer-minute axis, and provides the
// forward and inverse maps between the two time systems.
//
// A shift calendar is full of gaps: nights, weekends, maintenance
// windows. The scheduling model works entirely in compressed minutes so
// that a task's duration is never inflated by non-working time; this
// package is the only place that knows how to translate between the two.
package calendar

import (
	"sort"
	"time"

	"github.com/gitrdm/linebalancer/internal/plannererr"
)

// Shift is one input row: a calendar day, a time-of-day window, and the
// operator headcount available during that window. EndTimeOfDay <=
// StartTimeOfDay means the shift crosses midnight into the next day.
type Shift struct {
	Day              time.Time // normalized to midnight, local calendar day
	StartTimeOfDay   time.Duration
	EndTimeOfDay     time.Duration
	OperatorCapacity int
}

// CompressedInterval is one contiguous slice of working time: a real
// wall-clock window and its corresponding compressed-minute window.
type CompressedInterval struct {
	RealStart time.Time
	RealEnd   time.Time
	CompStart int
	CompEnd   int
	Capacity  int
}

// Calendar holds the compressed-interval sequence built from a set of
// shifts, plus the pure compress/decompress functions over it.
type Calendar struct {
	intervals []CompressedInterval
}

// Build sorts shifts by (day, start-of-day), resolves overnight shifts,
// skips zero/negative-duration shifts, and accumulates a contiguous
// compressed-minute sequence. Returns EmptyCalendar if no shift survives
// filtering.
//
// Mirrors the original comprimir_calendario loop: running total of
// minutes, one CompressedInterval appended per surviving shift, in
// sorted-input order.
func Build(shifts []Shift) (*Calendar, []string, error) {
	sorted := make([]Shift, len(shifts))
	copy(sorted, shifts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Day.Equal(sorted[j].Day) {
			return sorted[i].Day.Before(sorted[j].Day)
		}
		return sorted[i].StartTimeOfDay < sorted[j].StartTimeOfDay
	})

	var warnings []string
	intervals := make([]CompressedInterval, 0, len(sorted))
	acc := 0

	for _, s := range sorted {
		realStart := s.Day.Add(s.StartTimeOfDay)
		end := s.EndTimeOfDay
		realEnd := s.Day.Add(end)
		if end <= s.StartTimeOfDay {
			// overnight: end time-of-day is on the following day
			realEnd = s.Day.AddDate(0, 0, 1).Add(end)
		}

		durMin := int(realEnd.Sub(realStart).Minutes())
		if durMin <= 0 {
			warnings = append(warnings, "skipped zero/negative-duration shift on "+s.Day.Format("2006-01-02"))
			continue
		}

		intervals = append(intervals, CompressedInterval{
			RealStart: realStart,
			RealEnd:   realEnd,
			CompStart: acc,
			CompEnd:   acc + durMin,
			Capacity:  s.OperatorCapacity,
		})
		acc += durMin
	}

	if len(intervals) == 0 {
		return nil, warnings, plannererr.New(plannererr.EmptyCalendar, "calendar has zero working minutes after filtering %d shift(s)", len(shifts))
	}

	return &Calendar{intervals: intervals}, warnings, nil
}

// Intervals returns the compressed-interval sequence in compressed-time order.
func (c *Calendar) Intervals() []CompressedInterval {
	return c.intervals
}

// TotalMinutes returns the horizon in compressed minutes.
func (c *Calendar) TotalMinutes() int {
	if len(c.intervals) == 0 {
		return 0
	}
	return c.intervals[len(c.intervals)-1].CompEnd
}

// Compress maps a wall-clock instant to compressed minutes. Total: before
// the first interval returns 0, inside an interval returns the
// proportional offset, in a gap snaps forward to the next interval's
// start, and past the last interval returns the horizon.
func (c *Calendar) Compress(t time.Time) int {
	for _, iv := range c.intervals {
		if t.Before(iv.RealStart) {
			return iv.CompStart
		}
		if !t.Before(iv.RealStart) && t.Before(iv.RealEnd) {
			delta := int(t.Sub(iv.RealStart).Minutes())
			return iv.CompStart + delta
		}
	}
	return c.TotalMinutes()
}

// DecompressMode selects which half-open convention decompress uses at
// interval boundaries.
type DecompressMode int

const (
	// ModeStart treats intervals as [CompStart, CompEnd).
	ModeStart DecompressMode = iota
	// ModeEnd treats intervals as (CompStart, CompEnd].
	ModeEnd
)

// Decompress maps a compressed-minute value back to a wall-clock instant.
// Returns OutOfCalendarRange if comp falls outside every interval under
// the chosen mode's boundary convention.
func (c *Calendar) Decompress(comp int, mode DecompressMode) (time.Time, error) {
	for _, iv := range c.intervals {
		inRange := false
		switch mode {
		case ModeStart:
			inRange = comp >= iv.CompStart && comp < iv.CompEnd
		case ModeEnd:
			inRange = comp > iv.CompStart && comp <= iv.CompEnd
		}
		if inRange {
			return iv.RealStart.Add(time.Duration(comp-iv.CompStart) * time.Minute), nil
		}
	}
	return time.Time{}, plannererr.New(plannererr.OutOfCalendarRange, "compressed minute %d is out of calendar range", comp)
}

// WorkingDays returns the signed-free, always-nonnegative count of
// working days in [a, b], computed as the intersection of [a, b] with
// every CompressedInterval, in seconds, divided by the calendar's mean
// working seconds per calendar day. Returns 0 if b is before a.
//
// Mirrors calcular_dias_laborables's interval-intersection sweep rather
// than iterating day by day, since shifts may cross midnight.
func (c *Calendar) WorkingDays(a, b time.Time) float64 {
	if b.Before(a) {
		return 0
	}
	var totalSeconds float64
	for _, iv := range c.intervals {
		if iv.RealEnd.Before(a) || iv.RealEnd.Equal(a) || iv.RealStart.After(b) || iv.RealStart.Equal(b) {
			continue
		}
		start := iv.RealStart
		if a.After(start) {
			start = a
		}
		end := iv.RealEnd
		if b.Before(end) {
			end = b
		}
		if end.After(start) {
			totalSeconds += end.Sub(start).Seconds()
		}
	}
	perDay := c.AverageWorkingSecondsPerDay()
	if perDay == 0 {
		return 0
	}
	return totalSeconds / perDay
}

// AverageWorkingSecondsPerDay returns the mean working seconds per
// distinct calendar day represented in the compressed interval set.
func (c *Calendar) AverageWorkingSecondsPerDay() float64 {
	perDay := map[string]float64{}
	for _, iv := range c.intervals {
		key := iv.RealStart.Format("2006-01-02")
		perDay[key] += iv.RealEnd.Sub(iv.RealStart).Seconds()
	}
	if len(perDay) == 0 {
		return 0
	}
	var total float64
	for _, v := range perDay {
		total += v
	}
	return total / float64(len(perDay))
}

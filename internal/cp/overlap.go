// Package cp provides global constraints for constraint programming.
//
// This file implements a single builder helper, OverlapPresence, that wires
// up the is_present boolean for an optional interval task confined to a
// shift window. Rather than inline the "does [start, start+dur) intersect
// [windowStart, windowEnd)" test at every call site that needs an optional
// interval, callers go through NewOverlapPresence once per (task, shift)
// pair and get back a boolean variable plus the constraint that keeps it
// consistent with the task's start domain.
//
// Duration is itself an FD variable here, not a fixed constant: an OPERATIVE
// task's duration shrinks as its operators variable grows (the
// element-duration law in element.go), so the overlap test must reason over
// duration's current [min, max] bounds rather than a single value baked in
// at build time. Using a static upper bound (e.g. the operators=1 duration)
// would let Propagate force present=true for a shift the task's real,
// possibly-shorter interval never reaches.
package cp

import (
	"fmt"
)

// OverlapPresence reifies whether a task's interval [start, start+dur), with
// dur ranging over duration's current domain, can overlap a fixed half-open
// window [windowStart, windowEnd). It maintains a boolean variable (domain
// subset of {1,2}, 1=false/2=true) such that:
//
//   - if no (start, duration) combination admitted by their current domains
//     can overlap the window, the boolean is pruned to 1 (false)
//   - if every (start, duration) combination admitted by their current
//     domains overlaps the window, the boolean is pruned to 2 (true)
//   - if the boolean is bound to 2 (true), start's domain is restricted to
//     values for which some admissible duration still overlaps the window
//   - if the boolean is bound to 1 (false), start values for which every
//     admissible duration is guaranteed to overlap the window are removed
//     from start's domain, since present=false would be contradictory for
//     them
//
// This underlies optional-interval modeling for per-shift operator capacity:
// a task may or may not execute during a given shift, and the cumulative
// constraint over that shift only counts demand when is_present is true.
type OverlapPresence struct {
	start       *FDVariable
	duration    *FDVariable
	windowStart int
	windowEnd   int // exclusive
	present     *FDVariable
}

// NewOverlapPresence builds an OverlapPresence constraint for a task whose
// duration is itself an FD variable, confined to a shift window given as
// [windowStart, windowEnd).
func NewOverlapPresence(start *FDVariable, duration *FDVariable, windowStart, windowEnd int, present *FDVariable) (*OverlapPresence, error) {
	if start == nil {
		return nil, fmt.Errorf("NewOverlapPresence: start cannot be nil")
	}
	if duration == nil {
		return nil, fmt.Errorf("NewOverlapPresence: duration cannot be nil")
	}
	if present == nil {
		return nil, fmt.Errorf("NewOverlapPresence: present cannot be nil")
	}
	if windowEnd <= windowStart {
		return nil, fmt.Errorf("NewOverlapPresence: windowEnd (%d) must be greater than windowStart (%d)", windowEnd, windowStart)
	}
	return &OverlapPresence{
		start:       start,
		duration:    duration,
		windowStart: windowStart,
		windowEnd:   windowEnd,
		present:     present,
	}, nil
}

// Variables returns the start, duration, and boolean presence variables.
func (o *OverlapPresence) Variables() []*FDVariable {
	return []*FDVariable{o.start, o.duration, o.present}
}

// Type returns the constraint type identifier.
func (o *OverlapPresence) Type() string { return "OverlapPresence" }

// String returns a human-readable representation.
func (o *OverlapPresence) String() string {
	return fmt.Sprintf("OverlapPresence(start=%d, dur=%d, window=[%d,%d), present=%d)",
		o.start.ID(), o.duration.ID(), o.windowStart, o.windowEnd, o.present.ID())
}

// Propagate maintains the bidirectional consistency between start's domain,
// duration's domain, and the present boolean.
func (o *OverlapPresence) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	if solver == nil {
		return nil, fmt.Errorf("OverlapPresence.Propagate: nil solver")
	}
	startDom := solver.GetDomain(state, o.start.ID())
	if startDom == nil || startDom.Count() == 0 {
		return nil, fmt.Errorf("OverlapPresence.Propagate: start var %d has empty domain", o.start.ID())
	}
	durDom := solver.GetDomain(state, o.duration.ID())
	if durDom == nil || durDom.Count() == 0 {
		return nil, fmt.Errorf("OverlapPresence.Propagate: duration var %d has empty domain", o.duration.ID())
	}
	presentDom := solver.GetDomain(state, o.present.ID())
	if presentDom == nil || presentDom.Count() == 0 {
		return nil, fmt.Errorf("OverlapPresence.Propagate: present var %d has empty domain", o.present.ID())
	}

	cur := state
	// duration's domain follows this package's enc(real)=real+1 convention
	// (see domain.go), the same as every other finite domain here, but the
	// overlap test below needs the real span, not the encoded value: start
	// and the window bounds are encoded absolute positions, so an encoded
	// span would double-shift the arithmetic.
	durMin, durMax := durDom.Min()-1, durDom.Max()-1
	if durMin <= 0 {
		return nil, fmt.Errorf("OverlapPresence.Propagate: duration var %d must stay positive, min=%d", o.duration.ID(), durMin)
	}
	hi := o.windowEnd - 1

	// overlapsForSomeD: some admissible duration makes start s overlap the
	// window. Larger durations extend further, so the longest duration is
	// the most overlap-prone: use durMax.
	overlapsForSomeD := func(s int) bool {
		return s <= hi && s+durMax-1 >= o.windowStart
	}
	// overlapsForAllD: every admissible duration makes start s overlap the
	// window. Shorter durations extend the least, so overlap is guaranteed
	// for every duration in range only if it already holds at durMin.
	overlapsForAllD := func(s int) bool {
		return s <= hi && s+durMin-1 >= o.windowStart
	}

	anyOverlaps := false  // some (s, d) pair overlaps -> present could be true
	anyUncertain := false // some (s, d) pair avoids overlap -> present could be false
	for _, s := range startDom.ToSlice() {
		if overlapsForSomeD(s) {
			anyOverlaps = true
		}
		if !overlapsForAllD(s) {
			anyUncertain = true
		}
		if anyOverlaps && anyUncertain {
			break
		}
	}

	if !anyOverlaps {
		// No (start, duration) combination can overlap: present must be false.
		if presentDom.Has(2) && !presentDom.Has(1) {
			return nil, fmt.Errorf("OverlapPresence.Propagate: present var %d must be true but cannot overlap", o.present.ID())
		}
		nd := presentDom.Remove(2)
		if !nd.Equal(presentDom) {
			cur, _ = solver.SetDomain(cur, o.present.ID(), nd)
		}
		return cur, nil
	}
	if !anyUncertain {
		// Every (start, duration) combination overlaps: present must be true.
		if presentDom.Has(1) && !presentDom.Has(2) {
			return nil, fmt.Errorf("OverlapPresence.Propagate: present var %d must be false but always overlaps", o.present.ID())
		}
		nd := presentDom.Remove(1)
		if !nd.Equal(presentDom) {
			cur, _ = solver.SetDomain(cur, o.present.ID(), nd)
			presentDom = nd
		}
	}

	if presentDom.IsSingleton() {
		switch presentDom.SingletonValue() {
		case 2:
			// Restrict start to values for which some admissible duration
			// still overlaps the window.
			filtered := make([]int, 0, startDom.Count())
			for _, s := range startDom.ToSlice() {
				if overlapsForSomeD(s) {
					filtered = append(filtered, s)
				}
			}
			if len(filtered) == 0 {
				return nil, fmt.Errorf("OverlapPresence.Propagate: no start value overlaps window for task %d", o.start.ID())
			}
			if len(filtered) != startDom.Count() {
				nd := NewBitSetDomainFromValues(startDom.MaxValue(), filtered)
				cur, _ = solver.SetDomain(cur, o.start.ID(), nd)
			}
		case 1:
			// Restrict start to values for which overlap is not guaranteed
			// for every admissible duration; values where every duration
			// forces an overlap would contradict present=false.
			filtered := make([]int, 0, startDom.Count())
			for _, s := range startDom.ToSlice() {
				if !overlapsForAllD(s) {
					filtered = append(filtered, s)
				}
			}
			if len(filtered) == 0 {
				return nil, fmt.Errorf("OverlapPresence.Propagate: no start value stays outside window for task %d", o.start.ID())
			}
			if len(filtered) != startDom.Count() {
				nd := NewBitSetDomainFromValues(startDom.MaxValue(), filtered)
				cur, _ = solver.SetDomain(cur, o.start.ID(), nd)
			}
		}
	}

	return cur, nil
}

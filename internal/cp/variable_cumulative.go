// Package cp provides global constraints for constraint programming.
//
// This file implements VariableCumulative, the variable-demand,
// optionally-present counterpart to Cumulative. The station cumulative
// constraint (spec §4.4 item 2) has unit, fixed demand: its VERIFICATION
// subset (fixed durations) is served by the teacher's own Cumulative, and
// its OPERATIVE subset (variable durations) by VariableCumulative with a
// constant unit demand. The per-shift operator cumulative (spec
// §4.4 item 3) needs a demand that is itself a decision variable (the
// task's operator count) and an optional interval gated by an is_present
// boolean (see overlap.go), which Cumulative cannot express.
//
// Propagation strength: compulsory-part time-table filtering restricted
// to tasks that are definitely present (is_present forced to true, or no
// presence variable at all) and whose start/end bounds pin down a
// compulsory window. This is weaker than Cumulative's own filtering,
// which can additionally prune candidate start values for a fixed
// duration and demand; here, both duration and demand may still be
// unresolved variables, so VariableCumulative only raises an
// inconsistency once the guaranteed load in some time slot already
// exceeds capacity. It composes with station cumulative, precedence,
// and the element-duration relation to still reach a sound, complete
// search — it only forgoes some early pruning that a fixed-demand
// formulation gets for free.
package cp

import (
	"fmt"
)

// VariableCumulative enforces that, at every compressed-time instant,
// the sum of demands of tasks definitely occupying that instant does not
// exceed capacity. present[i] == nil means task i is always present
// (unconditional interval); otherwise it is an is_present boolean
// (domain subset of {1,2}) as built by OverlapPresence.
type VariableCumulative struct {
	starts   []*FDVariable
	ends     []*FDVariable
	demands  []*FDVariable
	present  []*FDVariable // may contain nils
	capacity int
}

// NewVariableCumulative builds a VariableCumulative constraint.
func NewVariableCumulative(starts, ends, demands, present []*FDVariable, capacity int) (*VariableCumulative, error) {
	n := len(starts)
	if n == 0 {
		return nil, fmt.Errorf("NewVariableCumulative: requires at least one task")
	}
	if len(ends) != n || len(demands) != n {
		return nil, fmt.Errorf("NewVariableCumulative: mismatched lengths (starts=%d, ends=%d, demands=%d)", n, len(ends), len(demands))
	}
	if present != nil && len(present) != n {
		return nil, fmt.Errorf("NewVariableCumulative: present must be nil or length %d", n)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("NewVariableCumulative: capacity must be > 0")
	}
	pres := make([]*FDVariable, n)
	if present != nil {
		copy(pres, present)
	}
	s := make([]*FDVariable, n)
	e := make([]*FDVariable, n)
	d := make([]*FDVariable, n)
	copy(s, starts)
	copy(e, ends)
	copy(d, demands)
	return &VariableCumulative{starts: s, ends: e, demands: d, present: pres, capacity: capacity}, nil
}

// Variables returns every variable touched by this constraint.
func (c *VariableCumulative) Variables() []*FDVariable {
	out := make([]*FDVariable, 0, 3*len(c.starts))
	out = append(out, c.starts...)
	out = append(out, c.ends...)
	out = append(out, c.demands...)
	for _, p := range c.present {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Type returns the constraint type identifier.
func (c *VariableCumulative) Type() string { return "VariableCumulative" }

// String returns a human-readable representation.
func (c *VariableCumulative) String() string {
	return fmt.Sprintf("VariableCumulative(n=%d, capacity=%d)", len(c.starts), c.capacity)
}

// Propagate checks the compulsory-part profile built from tasks that are
// definitely present, using each task's minimum guaranteed demand.
func (c *VariableCumulative) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	if solver == nil {
		return nil, fmt.Errorf("VariableCumulative.Propagate: nil solver")
	}
	n := len(c.starts)

	maxEnd := 0
	type window struct {
		present   bool
		cpStart   int
		cpEnd     int // inclusive
		demandMin int
	}
	windows := make([]window, n)

	for i := 0; i < n; i++ {
		startDom := solver.GetDomain(state, c.starts[i].ID())
		endDom := solver.GetDomain(state, c.ends[i].ID())
		demandDom := solver.GetDomain(state, c.demands[i].ID())
		if startDom == nil || endDom == nil || demandDom == nil {
			return nil, fmt.Errorf("VariableCumulative: task %d has a missing domain", i)
		}
		if startDom.Count() == 0 || endDom.Count() == 0 || demandDom.Count() == 0 {
			return nil, fmt.Errorf("VariableCumulative: task %d has an empty domain", i)
		}

		forcedAbsent := false
		forcedPresent := c.present[i] == nil
		if c.present[i] != nil {
			presDom := solver.GetDomain(state, c.present[i].ID())
			if presDom == nil || presDom.Count() == 0 {
				return nil, fmt.Errorf("VariableCumulative: task %d has a missing/empty presence domain", i)
			}
			if presDom.IsSingleton() {
				if presDom.SingletonValue() == 2 {
					forcedPresent = true
				} else {
					forcedAbsent = true
				}
			}
		}

		if endDom.Max()-1 > maxEnd {
			maxEnd = endDom.Max() - 1
		}

		if forcedAbsent || !forcedPresent {
			continue
		}

		cpStart := startDom.Max()
		cpEnd := endDom.Min() - 1
		windows[i] = window{present: cpStart <= cpEnd, cpStart: cpStart, cpEnd: cpEnd, demandMin: demandDom.Min()}
	}

	if maxEnd < 1 {
		return state, nil
	}
	profile := make([]int, maxEnd+1)
	for i := 0; i < n; i++ {
		w := windows[i]
		if !w.present || w.demandMin <= 0 {
			continue
		}
		start := w.cpStart
		if start < 1 {
			start = 1
		}
		end := w.cpEnd
		if end > maxEnd {
			end = maxEnd
		}
		for t := start; t <= end; t++ {
			profile[t] += w.demandMin
			if profile[t] > c.capacity {
				return nil, fmt.Errorf("VariableCumulative: capacity exceeded at t=%d (load=%d > %d)", t, profile[t], c.capacity)
			}
		}
	}

	return state, nil
}

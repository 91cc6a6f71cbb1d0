// Package cp provides global constraints for constraint programming.
//
// This file implements BoolSum, a bounds-consistent sum over reified boolean
// variables. It is the building block the scheduling layer uses to express
// "at least one of these booleans is true" disjunctions (station mutex,
// shift-overlap) without inlining ad-hoc OR logic at every call site.
package cp

import (
	"fmt"
)

// BoolSum constrains total = 1 + |{i : vars[i] = true}| over boolean
// variables with domain {1=false, 2=true}. The +1 offset keeps total within
// the engine's 1-indexed domains.
//
//   - Let lb = sum of per-var minimum contributions (1 if var must be true, else 0)
//   - Let ub = sum of per-var maximum contributions (1 if var may be true, else 0)
//   - Prune total to [lb+1, ub+1]
//   - For each var, using otherLb = lb - varMin and otherUb = ub - varMax:
//   - If (total.min-1) > otherUb  => var must be true (set to {2})
//   - If (total.max-1) < otherLb  => var must be false (set to {1})
type BoolSum struct {
	vars  []*FDVariable
	total *FDVariable // domain [1..n+1], representing count+1
}

// NewBoolSum creates a BoolSum constraint over boolean variables {1,2} and a total in [1..n+1].
func NewBoolSum(vars []*FDVariable, total *FDVariable) (*BoolSum, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("NewBoolSum: vars cannot be empty")
	}
	if total == nil {
		return nil, fmt.Errorf("NewBoolSum: total cannot be nil")
	}
	vs := make([]*FDVariable, len(vars))
	copy(vs, vars)
	return &BoolSum{vars: vs, total: total}, nil
}

// Variables returns all variables in the BoolSum constraint.
func (b *BoolSum) Variables() []*FDVariable {
	out := make([]*FDVariable, 0, len(b.vars)+1)
	out = append(out, b.vars...)
	out = append(out, b.total)
	return out
}

// Type returns the constraint type identifier.
func (b *BoolSum) Type() string { return "BoolSum" }

// String returns a human-readable representation.
func (b *BoolSum) String() string {
	ids := make([]int, len(b.vars))
	for i, v := range b.vars {
		ids[i] = v.ID()
	}
	return fmt.Sprintf("BoolSum(%v, total=%d)", ids, b.total.ID())
}

// Propagate enforces bounds consistency on the sum of boolean vars.
func (b *BoolSum) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	if solver == nil {
		return nil, fmt.Errorf("BoolSum.Propagate: nil solver")
	}

	boolDoms := make([]Domain, len(b.vars))
	for i, v := range b.vars {
		d := solver.GetDomain(state, v.ID())
		if d == nil || d.Count() == 0 {
			return nil, fmt.Errorf("BoolSum.Propagate: boolean var %d has empty domain", v.ID())
		}
		has1 := d.Has(1)
		has2 := d.Has(2)
		if d.Count() > 2 || (!has1 && !has2) {
			return nil, fmt.Errorf("BoolSum.Propagate: boolean var %d domain must be subset of {1,2}, got %s", v.ID(), d.String())
		}
		boolDoms[i] = d
	}
	totalDom := solver.GetDomain(state, b.total.ID())
	if totalDom == nil || totalDom.Count() == 0 {
		return nil, fmt.Errorf("BoolSum.Propagate: total var %d has empty domain", b.total.ID())
	}

	cur := state

	lb := 0
	ub := 0
	varMins := make([]int, len(b.vars))
	varMaxs := make([]int, len(b.vars))
	for i, d := range boolDoms {
		has1 := d.Has(1)
		has2 := d.Has(2)
		varMin := 0
		varMax := 0
		switch {
		case has2 && !has1:
			varMin, varMax = 1, 1
		case has2 && has1:
			varMin, varMax = 0, 1
		case !has2 && has1:
			varMin, varMax = 0, 0
		default:
			return nil, fmt.Errorf("BoolSum.Propagate: boolean var has invalid domain %s", d.String())
		}
		varMins[i] = varMin
		varMaxs[i] = varMax
		lb += varMin
		ub += varMax
	}

	newTotal := totalDom.RemoveBelow(lb + 1).RemoveAbove(ub + 1)
	if newTotal.Count() == 0 {
		return nil, fmt.Errorf("BoolSum.Propagate: total domain empty after pruning to [%d,%d] (had %s)", lb+1, ub+1, totalDom.String())
	}
	if !newTotal.Equal(totalDom) {
		cur, _ = solver.SetDomain(cur, b.total.ID(), newTotal)
		totalDom = newTotal
	}

	cmin := totalDom.Min() - 1
	cmax := totalDom.Max() - 1

	for i, v := range b.vars {
		otherLb := lb - varMins[i]
		otherUb := ub - varMaxs[i]

		newMin := varMins[i]
		if t := cmin - otherUb; t > newMin {
			newMin = t
		}
		newMax := varMaxs[i]
		if t := cmax - otherLb; t < newMax {
			newMax = t
		}

		d := boolDoms[i]
		if newMin > newMax {
			return nil, fmt.Errorf("BoolSum.Propagate: infeasible bounds for var %d", v.ID())
		}
		if newMin == 1 {
			if !d.Has(2) {
				return nil, fmt.Errorf("BoolSum.Propagate: var %d must be true, but domain %s lacks 2", v.ID(), d.String())
			}
			nd := d.Remove(1)
			if !nd.Equal(d) {
				cur, _ = solver.SetDomain(cur, v.ID(), nd)
				boolDoms[i] = nd
			}
			continue
		}
		if newMax == 0 {
			if !d.Has(1) {
				return nil, fmt.Errorf("BoolSum.Propagate: var %d must be false, but domain %s lacks 1", v.ID(), d.String())
			}
			nd := d.Remove(2)
			if !nd.Equal(d) {
				cur, _ = solver.SetDomain(cur, v.ID(), nd)
				boolDoms[i] = nd
			}
			continue
		}
	}

	return cur, nil
}

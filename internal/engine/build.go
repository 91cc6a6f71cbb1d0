package engine

import (
	"fmt"

	"github.com/gitrdm/linebalancer/internal/cp"
	"github.com/gitrdm/linebalancer/internal/taskgraph"
)

// buildVariables is the Variable Factory (spec.md §4.3). For each task it
// creates start/end/[duration/operators] variables with kind-specific
// domains, installs the element-duration relation for OPERATIVE tasks and
// the start+duration=end identity for both kinds, and bakes the
// material-release lower bound directly into a root task's start domain.
func (s *Session) buildVariables() error {
	full := cp.NewBitSetDomain(enc(s.horizon))

	for _, order := range s.graph.Orders {
		tasks := s.graph.Tasks[order.Reference]
		roots := map[int]bool{}
		for _, idx := range s.graph.RootIndices(order.Reference) {
			roots[idx] = true
		}
		materialComp := s.cal.Compress(order.MaterialReadyDate)

		for _, t := range tasks {
			key := taskKey{order.Reference, t.LocalIndex}

			var startDom cp.Domain = full
			if roots[t.LocalIndex] {
				startDom = startDom.RemoveBelow(enc(materialComp))
			}
			start := s.model.NewVariable(startDom)
			end := s.model.NewVariable(full)

			tv := &taskVars{task: t, start: start, end: end}

			switch t.Kind {
			case taskgraph.Operative:
				if err := s.buildOperativeTask(tv); err != nil {
					return err
				}
			default:
				if err := s.buildVerificationTask(tv); err != nil {
					return err
				}
			}

			s.order = append(s.order, key)
			s.tasks[key] = tv
		}
	}
	return nil
}

// buildOperativeTask wires operators/duration and the End = Start +
// Duration - 1 identity for one OPERATIVE task.
//
// D[k-1] = ⌈base_minutes/k⌉ for k ∈ [1, max_ops] is precomputed once
// (spec.md §9's re-architecture note) and addressed directly by the raw,
// unshifted operators value, since OPERATIVE's min_ops is always 1 — no
// index offset is needed. duration itself still uses the +1 domain-floor
// shift, since base_minutes = 0 forces duration ≡ 0 for every operator
// count (spec.md §4.4 edge case).
func (s *Session) buildOperativeTask(tv *taskVars) error {
	t := tv.task
	d := make([]int, t.MaxOps)
	minD, maxD := -1, -1
	for k := 1; k <= t.MaxOps; k++ {
		d[k-1] = ceilDiv(t.BaseMinutes, k)
		if minD == -1 || d[k-1] < minD {
			minD = d[k-1]
		}
		if maxD == -1 || d[k-1] > maxD {
			maxD = d[k-1]
		}
	}

	durDom := cp.NewBitSetDomain(enc(maxD)).RemoveBelow(enc(minD))
	duration := s.model.NewVariable(durDom)

	opsDom := cp.NewBitSetDomain(t.MaxOps).RemoveBelow(t.MinOps)
	operators := s.model.NewVariable(opsDom)

	encValues := make([]int, t.MaxOps)
	for k := 1; k <= t.MaxOps; k++ {
		encValues[k-1] = enc(d[k-1])
	}
	elem, err := cp.NewElementValues(operators, encValues, duration)
	if err != nil {
		return fmt.Errorf("engine: element-duration for %s/%d: %w", t.OrderRef, t.LocalIndex, err)
	}
	s.model.AddConstraint(elem)

	// enc(end) = enc(start) + enc(duration) - 1, expressed as a LinearSum
	// since the -1 bias is not a single src/offset pair: Arithmetic only
	// relates one source variable to one destination.
	sum, err := cp.NewLinearSum([]*cp.FDVariable{tv.start, duration, s.one}, []int{1, 1, -1}, tv.end)
	if err != nil {
		return fmt.Errorf("engine: interval identity for %s/%d: %w", t.OrderRef, t.LocalIndex, err)
	}
	s.model.AddConstraint(sum)

	tv.duration = duration
	tv.operators = operators
	return nil
}

// buildVerificationTask wires the fixed-duration identity for one
// VERIFICATION task: duration is a build-time constant, so End = Start +
// base_minutes reduces to a plain Arithmetic offset and no operators
// variable is created at all (operators ≡ 0 is implicit, never modeled).
func (s *Session) buildVerificationTask(tv *taskVars) error {
	t := tv.task
	durDom := cp.NewBitSetDomainFromValues(enc(t.BaseMinutes), []int{enc(t.BaseMinutes)})
	tv.duration = s.model.NewVariable(durDom)

	arith, err := cp.NewArithmetic(tv.start, tv.end, t.BaseMinutes)
	if err != nil {
		return fmt.Errorf("engine: interval identity for %s/%d: %w", t.OrderRef, t.LocalIndex, err)
	}
	s.model.AddConstraint(arith)
	return nil
}

// buildConstraints installs the five constraint families of spec.md §4.4,
// in the order the spec lists them.
func (s *Session) buildConstraints() error {
	if err := s.buildPrecedence(); err != nil {
		return err
	}
	if err := s.buildStationCumulative(); err != nil {
		return err
	}
	if err := s.buildOperatorCumulative(); err != nil {
		return err
	}
	// Material release is baked into start's initial domain in
	// buildVariables; nothing further to install here.
	if err := s.buildKindMutex(); err != nil {
		return err
	}
	return nil
}

// buildPrecedence installs end[a] ≤ start[b] for every precedence pair in
// every order (spec.md §4.4 item 1).
func (s *Session) buildPrecedence() error {
	for _, order := range s.graph.Orders {
		for _, p := range s.graph.Precedences[order.Reference] {
			a := s.taskVarsFor(order.Reference, p.PredecessorIndex)
			b := s.taskVarsFor(order.Reference, p.SuccessorIndex)
			ineq, err := cp.NewInequality(a.end, b.start, cp.LessEqual)
			if err != nil {
				return fmt.Errorf("engine: precedence in order %s: %w", order.Reference, err)
			}
			s.model.AddConstraint(ineq)
		}
	}
	return nil
}

// buildStationCumulative installs, per station, a unit-demand cumulative
// over every task's interval regardless of kind (spec.md §4.4 item 2).
//
// OPERATIVE durations are genuinely variable (they shrink with operator
// count), so that subset always goes through VariableCumulative. VERIFICATION
// durations are build-time constants, so that subset is split out and run
// through the teacher's fixed-duration Cumulative (or, when the station's
// capacity is exactly 1, the disjunctive NewNoOverlap special case) instead —
// a strictly tighter time-table filter than treating a constant as a
// degenerate variable domain. Splitting per kind this way is sound only
// because buildKindMutex already forbids an OPERATIVE and a VERIFICATION
// task on the same station from ever overlapping in time: each subset's
// cumulative independently bounds the shared station capacity, and since the
// two subsets never coexist at a given instant, enforcing each separately is
// equivalent to enforcing one constraint over the combined set.
func (s *Session) buildStationCumulative() error {
	type stationGroup struct {
		operative    []*taskVars
		verification []*taskVars
	}
	byStation := map[int]*stationGroup{}
	for _, key := range s.order {
		tv := s.tasks[key]
		g, ok := byStation[tv.task.StationID]
		if !ok {
			g = &stationGroup{}
			byStation[tv.task.StationID] = g
		}
		if tv.operators != nil {
			g.operative = append(g.operative, tv)
		} else {
			g.verification = append(g.verification, tv)
		}
	}

	for stationID, g := range byStation {
		st, ok := s.stationByID[stationID]
		if !ok {
			return fmt.Errorf("engine: task references unknown station %d", stationID)
		}

		if len(g.operative) > 0 {
			starts := make([]*cp.FDVariable, len(g.operative))
			ends := make([]*cp.FDVariable, len(g.operative))
			demands := make([]*cp.FDVariable, len(g.operative))
			for i, tv := range g.operative {
				starts[i] = tv.start
				ends[i] = tv.end
				demands[i] = s.one
			}
			vc, err := cp.NewVariableCumulative(starts, ends, demands, nil, st.Capacity)
			if err != nil {
				return fmt.Errorf("engine: station cumulative for station %d: %w", stationID, err)
			}
			s.model.AddConstraint(vc)
		}

		var fixedVerif []*taskVars
		for _, tv := range g.verification {
			if tv.task.BaseMinutes > 0 {
				fixedVerif = append(fixedVerif, tv)
			}
		}
		if len(fixedVerif) == 0 {
			continue
		}
		starts := make([]*cp.FDVariable, len(fixedVerif))
		durations := make([]int, len(fixedVerif))
		demands := make([]int, len(fixedVerif))
		for i, tv := range fixedVerif {
			starts[i] = tv.start
			durations[i] = tv.task.BaseMinutes
			demands[i] = 1
		}
		var fixed cp.PropagationConstraint
		var err error
		if st.Capacity == 1 {
			fixed, err = cp.NewNoOverlap(starts, durations)
		} else {
			fixed, err = cp.NewCumulative(starts, durations, demands, st.Capacity)
		}
		if err != nil {
			return fmt.Errorf("engine: verification station cumulative for station %d: %w", stationID, err)
		}
		s.model.AddConstraint(fixed)
	}
	return nil
}

// buildOperatorCumulative installs, per CompressedInterval (shift), an
// optional-interval cumulative over every OPERATIVE task whose interval
// may overlap that shift (spec.md §4.4 item 3). VERIFICATION tasks
// consume no operators and are never included.
func (s *Session) buildOperatorCumulative() error {
	var operative []*taskVars
	for _, key := range s.order {
		tv := s.tasks[key]
		if tv.operators != nil {
			operative = append(operative, tv)
		}
	}
	if len(operative) == 0 {
		return nil
	}

	for _, iv := range s.cal.Intervals() {
		if iv.Capacity <= 0 {
			continue
		}
		var starts, ends, demands, present []*cp.FDVariable
		for _, tv := range operative {
			t := tv.task
			if t.BaseMinutes <= 0 {
				// A zero-duration task never occupies any instant; leave
				// it out of this shift's cumulative (no presence variable
				// is created), since OverlapPresence rejects a
				// non-positive duration.
				continue
			}
			presentVar := s.model.NewVariable(cp.NewBitSetDomain(2))
			// tv.duration, not t.BaseMinutes: base_minutes is the duration at
			// operators=1, the maximum the element-duration law ever assigns
			// (duration = ceil(base_minutes/k) is non-increasing in k). A
			// fixed upper bound here would let OverlapPresence force
			// present=true for a shift a shorter, multi-operator interval
			// never actually reaches, inflating that shift's operator demand.
			op, err := cp.NewOverlapPresence(tv.start, tv.duration, enc(iv.CompStart), enc(iv.CompEnd), presentVar)
			if err != nil {
				return fmt.Errorf("engine: operator overlap for %s/%d: %w", t.OrderRef, t.LocalIndex, err)
			}
			s.model.AddConstraint(op)

			starts = append(starts, tv.start)
			ends = append(ends, tv.end)
			demands = append(demands, tv.operators)
			present = append(present, presentVar)
		}
		if len(starts) == 0 {
			continue
		}
		vc, err := cp.NewVariableCumulative(starts, ends, demands, present, iv.Capacity)
		if err != nil {
			return fmt.Errorf("engine: operator cumulative for interval [%d,%d): %w", iv.CompStart, iv.CompEnd, err)
		}
		s.model.AddConstraint(vc)
	}
	return nil
}

// buildKindMutex installs the same-station different-kind disjunction
// (spec.md §4.4 item 5) for every pair of tasks that share a station but
// differ in kind. Expressed via two reified Inequalities OR'd through a
// BoolSum rather than a bespoke constraint type — see DESIGN.md for why
// this composes cleanly on top of ReifiedConstraint's existing,
// sound negation handling for Inequality.
func (s *Session) buildKindMutex() error {
	type bucket struct {
		operative    []*taskVars
		verification []*taskVars
	}
	byStation := map[int]*bucket{}
	for _, key := range s.order {
		tv := s.tasks[key]
		b, ok := byStation[tv.task.StationID]
		if !ok {
			b = &bucket{}
			byStation[tv.task.StationID] = b
		}
		if tv.operators != nil {
			b.operative = append(b.operative, tv)
		} else {
			b.verification = append(b.verification, tv)
		}
	}

	for _, b := range byStation {
		for _, u := range b.operative {
			for _, v := range b.verification {
				if err := s.buildMutexPair(u, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Session) buildMutexPair(u, v *taskVars) error {
	before := s.model.NewVariable(cp.NewBitSetDomain(2))
	beforeIneq, err := cp.NewInequality(u.end, v.start, cp.LessEqual)
	if err != nil {
		return fmt.Errorf("engine: kind mutex: %w", err)
	}
	beforeReified, err := cp.NewReifiedConstraint(beforeIneq, before)
	if err != nil {
		return fmt.Errorf("engine: kind mutex: %w", err)
	}
	s.model.AddConstraint(beforeReified)

	after := s.model.NewVariable(cp.NewBitSetDomain(2))
	afterIneq, err := cp.NewInequality(v.end, u.start, cp.LessEqual)
	if err != nil {
		return fmt.Errorf("engine: kind mutex: %w", err)
	}
	afterReified, err := cp.NewReifiedConstraint(afterIneq, after)
	if err != nil {
		return fmt.Errorf("engine: kind mutex: %w", err)
	}
	s.model.AddConstraint(afterReified)

	total := s.model.NewVariable(cp.NewBitSetDomain(3).RemoveAtOrBelow(1))
	boolSum, err := cp.NewBoolSum([]*cp.FDVariable{before, after}, total)
	if err != nil {
		return fmt.Errorf("engine: kind mutex: %w", err)
	}
	s.model.AddConstraint(boolSum)
	return nil
}

// buildObjective installs the Objective Layer (spec.md §4.5): per-order
// tardiness folded into one weighted LinearSum, makespan via the
// lower-bound relaxation, and the final 10·sum_tardiness + makespan
// combination. See DESIGN.md's Open-Questions entry for why no
// MaxEquality/MultiplicationEquality constraint type is needed.
func (s *Session) buildObjective() error {
	minDay := s.cal.Intervals()[0].RealStart

	var tardinessVars []*cp.FDVariable
	var weights []int
	weightSum := 0

	for _, order := range s.graph.Orders {
		finals := s.graph.FinalIndices(order.Reference)
		if len(finals) == 0 {
			continue
		}

		endOrder := s.model.NewVariable(cp.NewBitSetDomain(enc(s.horizon)))
		for _, idx := range finals {
			tv := s.taskVarsFor(order.Reference, idx)
			ineq, err := cp.NewInequality(tv.end, endOrder, cp.LessEqual)
			if err != nil {
				return fmt.Errorf("engine: objective end_order for %s: %w", order.Reference, err)
			}
			s.model.AddConstraint(ineq)
		}

		dueComp := s.cal.Compress(order.DueDate)
		days := int(order.DueDate.Sub(minDay).Hours() / 24)
		weight := 1000 - days
		if weight < 1 {
			weight = 1
		}
		weightSum += weight

		tardiness := s.model.NewVariable(cp.NewBitSetDomain(enc(s.horizon)))
		auxMax := s.horizon + dueComp
		if auxMax < 0 {
			auxMax = 0
		}
		aux := s.model.NewVariable(cp.NewBitSetDomain(enc(auxMax)))
		arith, err := cp.NewArithmetic(tardiness, aux, dueComp)
		if err != nil {
			return fmt.Errorf("engine: tardiness aux for %s: %w", order.Reference, err)
		}
		s.model.AddConstraint(arith)

		boundIneq, err := cp.NewInequality(endOrder, aux, cp.LessEqual)
		if err != nil {
			return fmt.Errorf("engine: tardiness bound for %s: %w", order.Reference, err)
		}
		s.model.AddConstraint(boundIneq)

		tardinessVars = append(tardinessVars, tardiness)
		weights = append(weights, weight)
	}
	s.weightSum = weightSum

	maxSumTardinessRaw := 0
	for _, w := range weights {
		maxSumTardinessRaw += w * enc(s.horizon)
	}
	if maxSumTardinessRaw < 1 {
		maxSumTardinessRaw = 1
	}
	sumTardinessRaw := s.model.NewVariable(cp.NewBitSetDomain(maxSumTardinessRaw))
	linSum, err := cp.NewLinearSum(tardinessVars, weights, sumTardinessRaw)
	if err != nil {
		return fmt.Errorf("engine: weighted tardiness sum: %w", err)
	}
	s.model.AddConstraint(linSum)
	s.sumTardinessRaw = sumTardinessRaw

	makespan := s.model.NewVariable(cp.NewBitSetDomain(enc(s.horizon)))
	for _, key := range s.order {
		tv := s.tasks[key]
		ineq, err := cp.NewInequality(tv.end, makespan, cp.LessEqual)
		if err != nil {
			return fmt.Errorf("engine: makespan bound: %w", err)
		}
		s.model.AddConstraint(ineq)
	}
	s.makespanVar = makespan

	objMax := 10*maxSumTardinessRaw + enc(s.horizon)
	obj := s.model.NewVariable(cp.NewBitSetDomain(objMax))
	objSum, err := cp.NewLinearSum([]*cp.FDVariable{sumTardinessRaw, makespan}, []int{10, 1}, obj)
	if err != nil {
		return fmt.Errorf("engine: final objective: %w", err)
	}
	s.model.AddConstraint(objSum)
	s.objVar = obj

	return nil
}

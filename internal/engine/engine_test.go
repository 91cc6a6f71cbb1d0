package engine

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/gitrdm/linebalancer/internal/calendar"
	"github.com/gitrdm/linebalancer/internal/config"
	"github.com/gitrdm/linebalancer/internal/taskgraph"
)

func mustDT(t *testing.T, s string) time.Time {
	t.Helper()
	dt, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		t.Fatalf("parse datetime %q: %v", s, err)
	}
	return dt
}

// solveSession builds and solves a session against the default profile,
// failing the test on any non-feasible outcome, and returns the Result.
func solveSession(t *testing.T, shifts []calendar.Shift, orders []taskgraph.RawOrder, tasks []taskgraph.RawTask, stations []Station) *Result {
	t.Helper()
	cal, _, err := calendar.Build(shifts)
	if err != nil {
		t.Fatalf("calendar.Build: %v", err)
	}
	known := map[int]bool{}
	for _, st := range stations {
		known[st.ID] = true
	}
	graph, err := taskgraph.Build(orders, tasks, known)
	if err != nil {
		t.Fatalf("taskgraph.Build: %v", err)
	}
	sess, err := NewSession(cal, graph, stations, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	result, err := sess.Solve(context.Background(), config.DefaultProfile())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.Status != StatusOptimal && result.Status != StatusFeasible {
		t.Fatalf("expected OPTIMAL/FEASIBLE, got %s", result.Status)
	}
	return result
}

// S1 — Single task, single shift.
func TestScenarioSingleTaskSingleShift(t *testing.T) {
	g := NewWithT(t)

	shifts := []calendar.Shift{
		{Day: mustDT(t, "2025-03-03 00:00"), StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 2},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-04 00:00"), MaterialReadyDate: mustDT(t, "2025-03-03 00:00")},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 2, OperatorsMax: 2},
	}
	stations := []Station{{ID: 1, Name: "S1", Capacity: 1}}

	result := solveSession(t, shifts, orders, tasks, stations)

	g.Expect(result.ScheduledTasks).To(HaveLen(1))
	row := result.ScheduledTasks[0]
	g.Expect(row.Operators).To(Equal(2))
	g.Expect(row.DurationMin).To(Equal(60))
	g.Expect(row.CompStart).To(Equal(0))
	g.Expect(row.CompEnd).To(Equal(60))
	g.Expect(row.RealStartDT).To(Equal(mustDT(t, "2025-03-03 08:00")))
	g.Expect(row.RealEndDT).To(Equal(mustDT(t, "2025-03-03 09:00")))
	g.Expect(row.DeltaWorkingDays).To(BeNumerically("==", 0))
	// Single task, no tardiness: objective reduces to the makespan alone.
	g.Expect(result.Objective).To(Equal(60))
}

// S2 — Precedence across a shift boundary. The spec promises no tie-break
// on the schedule itself (spec.md §5), so this asserts the precedence and
// duration relationships an optimal solve must satisfy rather than a
// specific compressed timestamp.
func TestScenarioPrecedenceAcrossShiftBoundary(t *testing.T) {
	g := NewWithT(t)

	day := mustDT(t, "2025-03-03 00:00")
	shifts := []calendar.Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 12 * time.Hour, OperatorCapacity: 1},
		{Day: day, StartTimeOfDay: 13 * time.Hour, EndTimeOfDay: 17 * time.Hour, OperatorCapacity: 1},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-10 00:00"), MaterialReadyDate: day},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 3, OperatorsMax: 1},
		{ParentMaterial: "A", InternalID: 2, Predecessors: "1", StationID: 2, Kind: taskgraph.Operative, HoursOperator: 3, OperatorsMax: 1},
	}
	stations := []Station{{ID: 1, Name: "S1", Capacity: 1}, {ID: 2, Name: "S2", Capacity: 1}}

	result := solveSession(t, shifts, orders, tasks, stations)
	g.Expect(result.ScheduledTasks).To(HaveLen(2))

	var first, second ScheduledTask
	for _, row := range result.ScheduledTasks {
		if row.LocalIndex == 0 {
			first = row
		} else {
			second = row
		}
	}
	g.Expect(first.DurationMin).To(Equal(180))
	g.Expect(second.DurationMin).To(Equal(180))
	g.Expect(second.CompStart).To(BeNumerically(">=", first.CompEnd), "precedence must hold")
	g.Expect(first.CompStart).To(Equal(0), "the root task is free to start the moment material is ready")
}

// S3 — Operator-bound partitioning.
func TestScenarioOperatorBoundPartitioning(t *testing.T) {
	g := NewWithT(t)

	day := mustDT(t, "2025-03-03 00:00")
	shifts := []calendar.Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 2},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-10 00:00"), MaterialReadyDate: day},
		{Reference: "B", DueDate: mustDT(t, "2025-03-10 00:00"), MaterialReadyDate: day},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 4, OperatorsMax: 2},
		{ParentMaterial: "B", InternalID: 1, StationID: 2, Kind: taskgraph.Operative, HoursOperator: 4, OperatorsMax: 2},
	}
	stations := []Station{{ID: 1, Name: "S1", Capacity: 1}, {ID: 2, Name: "S2", Capacity: 1}}

	result := solveSession(t, shifts, orders, tasks, stations)
	makespan := 0
	for _, row := range result.ScheduledTasks {
		if row.CompEnd > makespan {
			makespan = row.CompEnd
		}
		g.Expect(row.Operators).To(BeNumerically(">=", 1))
		g.Expect(row.Operators).To(BeNumerically("<=", 2))
	}
	// Each order needs 240 operator-minutes whatever its operator count, and
	// at most 2 operators work at once, so the 480 operator-minutes take at
	// least 240 minutes: the optimal makespan is exactly 240.
	g.Expect(makespan).To(Equal(240))
	g.Expect(result.Objective).To(Equal(240))
}

// S4 — Material release bound.
func TestScenarioMaterialReleaseBound(t *testing.T) {
	g := NewWithT(t)

	day := mustDT(t, "2025-03-03 00:00")
	shifts := []calendar.Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 1},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-10 00:00"), MaterialReadyDate: mustDT(t, "2025-03-03 10:00")},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 1, OperatorsMax: 1},
	}
	stations := []Station{{ID: 1, Name: "S1", Capacity: 1}}

	result := solveSession(t, shifts, orders, tasks, stations)
	row := result.ScheduledTasks[0]
	g.Expect(row.CompStart).To(BeNumerically(">=", 120))
	g.Expect(row.CompEnd).To(BeNumerically(">=", 180))
}

// S5 — Kind mutex on a shared station.
func TestScenarioKindMutexSharedStation(t *testing.T) {
	g := NewWithT(t)

	day := mustDT(t, "2025-03-03 00:00")
	shifts := []calendar.Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 2},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-10 00:00"), MaterialReadyDate: day},
		{Reference: "B", DueDate: mustDT(t, "2025-03-10 00:00"), MaterialReadyDate: day},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 3, Kind: taskgraph.Operative, HoursOperator: 1, OperatorsMax: 1},
		{ParentMaterial: "B", InternalID: 1, StationID: 3, Kind: taskgraph.Verification, HoursVerification: 1},
	}
	stations := []Station{{ID: 3, Name: "S3", Capacity: 2}}

	result := solveSession(t, shifts, orders, tasks, stations)
	g.Expect(result.ScheduledTasks).To(HaveLen(2))

	var a, b ScheduledTask
	for _, row := range result.ScheduledTasks {
		if row.OrderRef == "A" {
			a = row
		} else {
			b = row
		}
	}
	disjoint := a.CompEnd <= b.CompStart || b.CompEnd <= a.CompStart
	g.Expect(disjoint).To(BeTrue(), "kind-mutex tasks must not overlap on the shared station")
}

// S6 — Weighted tardiness prioritisation. The shift is sized to exactly fit
// both one-hour tasks back to back (08:00-10:00, single operator), and A's
// due date falls precisely at the midpoint: running A second is the only
// way to incur any tardiness at all, so an optimal solve must run A first
// regardless of tie-breaking elsewhere.
func TestScenarioWeightedTardinessPrioritisation(t *testing.T) {
	g := NewWithT(t)

	day := mustDT(t, "2025-03-03 00:00")
	shifts := []calendar.Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 10 * time.Hour, OperatorCapacity: 1},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-03 09:00"), MaterialReadyDate: day},
		{Reference: "B", DueDate: mustDT(t, "2025-03-03 10:00"), MaterialReadyDate: day},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 1, OperatorsMax: 1},
		{ParentMaterial: "B", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 1, OperatorsMax: 1},
	}
	stations := []Station{{ID: 1, Name: "S1", Capacity: 1}}

	result := solveSession(t, shifts, orders, tasks, stations)

	var a, b ScheduledTask
	for _, row := range result.ScheduledTasks {
		if row.OrderRef == "A" {
			a = row
		} else {
			b = row
		}
	}
	g.Expect(a.CompStart).To(BeNumerically("<", b.CompStart), "the more urgent order must run first")
	g.Expect(result.Objective).To(Equal(120), "both tasks fit exactly within the shift with no tardiness")
}

// Regression: an OPERATIVE task's real duration shrinks with its assigned
// operator count (duration = ceil(base_minutes/operators)), so a shift's
// operator-cumulative presence test must reason over that shrinking bound,
// not the constant base_minutes (the operators=1, longest-possible duration).
// Shift two's single operator cannot host the two-operator assignment, but the
// task's shortest duration (two operators) never reaches shift two — only
// the unused, longest duration (one operator) would. A presence test pinned
// to base_minutes would see an unavoidable overlap with shift two for every
// feasible start and wrongly forbid the two-operator assignment, forcing a
// single operator, a 90-minute run, and 45 minutes of tardiness; the correct
// test recognizes shift two is irrelevant once two operators are used.
func TestScenarioOverlapPresenceUsesRealDuration(t *testing.T) {
	g := NewWithT(t)

	day := mustDT(t, "2025-03-03 00:00")
	shifts := []calendar.Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 9 * time.Hour, OperatorCapacity: 2},
		{Day: day, StartTimeOfDay: 9 * time.Hour, EndTimeOfDay: 10 * time.Hour, OperatorCapacity: 1},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-03 08:45"), MaterialReadyDate: day},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 1.5, OperatorsMax: 2},
	}
	stations := []Station{{ID: 1, Name: "S1", Capacity: 1}}

	result := solveSession(t, shifts, orders, tasks, stations)
	g.Expect(result.ScheduledTasks).To(HaveLen(1))
	row := result.ScheduledTasks[0]

	g.Expect(row.Operators).To(Equal(2), "only the two-operator assignment keeps the task inside shift one")
	g.Expect(row.DurationMin).To(Equal(45))
	g.Expect(row.CompEnd).To(BeNumerically("<=", 60), "the real (shorter) interval must stay clear of shift two")
	g.Expect(result.Objective).To(Equal(45), "zero tardiness: objective reduces to the makespan alone")
}

// Universal invariants 1 and 2 (spec.md §8), checked against a single
// OPERATIVE task whose operator count may be 1, 2 or 3.
func TestInvariantIntervalClosureAndElementDuration(t *testing.T) {
	g := NewWithT(t)

	day := mustDT(t, "2025-03-03 00:00")
	shifts := []calendar.Shift{
		{Day: day, StartTimeOfDay: 8 * time.Hour, EndTimeOfDay: 16 * time.Hour, OperatorCapacity: 3},
	}
	orders := []taskgraph.RawOrder{
		{Reference: "A", DueDate: mustDT(t, "2025-03-10 00:00"), MaterialReadyDate: day},
	}
	tasks := []taskgraph.RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: taskgraph.Operative, HoursOperator: 5, OperatorsMax: 3},
	}
	stations := []Station{{ID: 1, Name: "S1", Capacity: 1}}

	result := solveSession(t, shifts, orders, tasks, stations)
	row := result.ScheduledTasks[0]

	g.Expect(row.CompEnd).To(Equal(row.CompStart + row.DurationMin))

	baseMinutes := 300
	expectedDuration := (baseMinutes + row.Operators - 1) / row.Operators
	g.Expect(row.DurationMin).To(Equal(expectedDuration))
}

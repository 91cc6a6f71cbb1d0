package engine

import (
	"log"

	"github.com/gitrdm/linebalancer/internal/calendar"
	"github.com/gitrdm/linebalancer/internal/cp"
	"github.com/gitrdm/linebalancer/internal/taskgraph"
)

// taskKey identifies a task within its order's local index space.
type taskKey struct {
	orderRef   string
	localIndex int
}

// taskVars is the single value type standing in for the per-task dynamic
// attribute dictionary of the original model: every decision variable
// touching one task lives here, keyed by taskKey in Session.tasks.
//
// Domain convention: start/end/duration hold compressed minutes shifted
// by +1 (encoded value = real value + 1), since a Domain's values are
// strictly in [1, MaxValue] but start/duration/end can legitimately be
// zero. operators does NOT use this shift: it is never zero (VERIFICATION
// tasks carry a nil operators variable instead of a zero one), so its raw
// domain [1, max_ops] already indexes ElementValues' duration table
// directly.
type taskVars struct {
	task taskgraph.Task

	start     *cp.FDVariable
	end       *cp.FDVariable
	duration  *cp.FDVariable
	operators *cp.FDVariable // nil for VERIFICATION
}

// Session owns every value materialised for one scheduling solve: the
// calendar, the resolved task graph, the station set, and the CP model
// built over them. A Session is built once and consumed by exactly one
// solve; nothing here is shared across concurrent sessions (spec.md §5).
type Session struct {
	cal         *calendar.Calendar
	graph       *taskgraph.Graph
	stations    []Station
	stationByID map[int]Station

	model *cp.Model
	log   *log.Logger

	order   []taskKey
	tasks   map[taskKey]*taskVars
	horizon int

	one *cp.FDVariable // shared constant singleton {1}, used as the bias term in End = Start + Duration - 1 and as unit demand in station cumulative

	objVar          *cp.FDVariable
	sumTardinessRaw *cp.FDVariable
	makespanVar     *cp.FDVariable
	weightSum       int
}

// NewSession builds the full CP model for a solve: variables, constraints
// and objective, in that order (spec.md §4.3–§4.5). logger may be nil, in
// which case the session logs nothing (mirrors cp.ContextMonitor's
// optional-logger convention).
func NewSession(cal *calendar.Calendar, graph *taskgraph.Graph, stations []Station, logger *log.Logger) (*Session, error) {
	stationByID := make(map[int]Station, len(stations))
	for _, st := range stations {
		stationByID[st.ID] = st
	}

	s := &Session{
		cal:         cal,
		graph:       graph,
		stations:    stations,
		stationByID: stationByID,
		model:       cp.NewModel(),
		log:         logger,
		tasks:       make(map[taskKey]*taskVars),
	}

	s.horizon = s.computeHorizon()
	s.logf("engine: horizon=%d minutes across %d orders", s.horizon, len(graph.Orders))

	oneDom := cp.NewBitSetDomainFromValues(1, []int{1})
	s.one = s.model.NewVariable(oneDom)

	if err := s.buildVariables(); err != nil {
		return nil, err
	}
	if err := s.buildConstraints(); err != nil {
		return nil, err
	}
	if err := s.buildObjective(); err != nil {
		return nil, err
	}

	return s, nil
}

// logf writes a debug line if a logger was supplied; a no-op otherwise.
func (s *Session) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// computeHorizon returns H = Σ max(1, base_minutes_t) over every task
// (spec.md §4.5): a guaranteed upper bound on makespan even if every
// OPERATIVE task were scheduled with a single operator.
func (s *Session) computeHorizon() int {
	h := 0
	for _, order := range s.graph.Orders {
		for _, t := range s.graph.Tasks[order.Reference] {
			m := t.BaseMinutes
			if m < 1 {
				m = 1
			}
			h += m
		}
	}
	if h < 1 {
		h = 1
	}
	return h
}

// taskVarsFor looks up the variables for one resolved task. Panics if
// called before buildVariables has populated the map, which would be a
// bug in this package rather than bad input.
func (s *Session) taskVarsFor(orderRef string, localIndex int) *taskVars {
	tv, ok := s.tasks[taskKey{orderRef, localIndex}]
	if !ok {
		panic("engine: no variables built for task " + orderRef)
	}
	return tv
}

// ceilDiv returns ⌈a/b⌉ for a ≥ 0, b > 0.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// enc applies the +1 domain-floor shift: encoded(real) = real + 1.
func enc(real int) int { return real + 1 }

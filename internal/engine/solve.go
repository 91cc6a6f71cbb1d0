package engine

import (
	"context"
	"errors"

	"github.com/gitrdm/linebalancer/internal/config"
	"github.com/gitrdm/linebalancer/internal/cp"
	"github.com/gitrdm/linebalancer/internal/plannererr"
)

// Solve configures and invokes the CP solver (spec.md §4.6), then lifts
// the raw assignment back into a Result via the Solution Extractor
// (spec.md §4.7). On INFEASIBLE/UNKNOWN the returned Result carries empty
// tables and the status unchanged; callers must gate on Result.Status
// before reading any table (spec.md §7).
func (s *Session) Solve(ctx context.Context, profile config.SolverProfile) (*Result, error) {
	solver := cp.NewSolver(s.model)

	opts := []cp.OptimizeOption{cp.WithTimeLimit(profile.WallClockLimit.Duration)}
	if profile.Workers > 1 {
		opts = append(opts, cp.WithParallelWorkers(profile.Workers))
	}

	s.logf("engine: solving with wall_clock=%s workers=%d debug=%t",
		profile.WallClockLimit.Duration, profile.Workers, profile.Debug)

	assignment, objVal, err := solver.SolveOptimalWithOptions(ctx, s.objVar, true, opts...)

	switch {
	case err == nil && assignment == nil:
		s.logf("engine: solver proved infeasible")
		return &Result{Status: StatusInfeasible}, nil

	case err == nil:
		s.logf("engine: solver proved optimal, objective_raw=%d", objVal)
		return s.extract(assignment, s.realObjective(objVal), StatusOptimal)

	case errors.Is(err, context.DeadlineExceeded):
		if assignment == nil {
			s.logf("engine: wall-clock expired with no incumbent")
			return &Result{Status: StatusUnknown}, plannererr.Wrap(plannererr.SolverTimeout, err,
				"solver: wall-clock limit reached with no feasible incumbent")
		}
		s.logf("engine: wall-clock expired with incumbent objective_raw=%d", objVal)
		return s.extract(assignment, s.realObjective(objVal), StatusFeasible)

	case errors.Is(err, cp.ErrSearchLimitReached):
		if assignment == nil {
			return &Result{Status: StatusUnknown}, plannererr.Wrap(plannererr.SolverTimeout, err,
				"solver: search limit reached with no feasible incumbent")
		}
		return s.extract(assignment, s.realObjective(objVal), StatusFeasible)

	default:
		return &Result{Status: StatusUnknown}, plannererr.Wrap(plannererr.Infeasible, err, "solver: search aborted")
	}
}

// realObjective undoes the objective variable's encoded-space accounting
// (DESIGN.md): objVar was built entirely from +1-shifted quantities, so
// its raw value overshoots the true objective by 10·W+1, where W is the
// sum of every order's tardiness weight.
func (s *Session) realObjective(objVarValue int) int {
	return objVarValue - (10*s.weightSum + 1)
}

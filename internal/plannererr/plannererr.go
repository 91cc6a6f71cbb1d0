// Package plannererr defines the scheduling engine's error taxonomy as a
// propagation policy rather than a hierarchy of named error types: every
// failure the engine can produce carries one of a fixed set of kinds, and
// callers branch on the kind, not on the concrete Go type.
package plannererr

import "fmt"

// Kind classifies a planner error for propagation purposes.
type Kind int

const (
	// InvalidInput covers malformed task/order/calendar records detected
	// at build time: unreferenced predecessor id, cyclic precedence,
	// operators_max < 1 for an OPERATIVE task, unknown station_id.
	InvalidInput Kind = iota
	// EmptyCalendar means the compressed calendar has zero working
	// minutes; no model can be built over it.
	EmptyCalendar
	// OutOfCalendarRange means a compressed-time value fell outside every
	// CompressedInterval during decompression.
	OutOfCalendarRange
	// SolverTimeout means the wall-clock limit expired with no feasible
	// incumbent.
	SolverTimeout
	// Infeasible means the solver proved no schedule exists.
	Infeasible
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case EmptyCalendar:
		return "EmptyCalendar"
	case OutOfCalendarRange:
		return "OutOfCalendarRange"
	case SolverTimeout:
		return "SolverTimeout"
	case Infeasible:
		return "Infeasible"
	default:
		return "Unknown"
	}
}

// Fatal reports whether errors of this kind must abort the build (as
// opposed to surfacing as an empty-result status from the driver).
func (k Kind) Fatal() bool {
	switch k {
	case InvalidInput, EmptyCalendar:
		return true
	default:
		return false
	}
}

// Error is a kind-tagged planner error, optionally wrapping a cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a planner error with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a planner error wrapping a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var pe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			pe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return pe != nil && pe.Kind == kind
}

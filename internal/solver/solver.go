package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gas-valuation/internal/lp"
)

// ErrSolverFailure is returned when a solve ends infeasible or unbounded, or
// when the backend itself fails.
var ErrSolverFailure = errors.New("solver failure")

// Status is the outcome of a solve.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Infeasible
	Unbounded
	// Undefined means the solve stopped early with a feasible but unproven
	// assignment.
	Undefined
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case Undefined:
		return "Undefined"
	default:
		return "NotSolved"
	}
}

// HasValues reports whether a solution with this status carries values.
func (s Status) HasValues() bool { return s == Optimal || s == Undefined }

// Solution is what a Solver returns. Values maps variable name to value and
// is only set when Status.HasValues().
type Solution struct {
	Status    Status
	Objective float64
	Values    map[string]float64

	// Bound is the best proven bound on the objective; Gap the relative
	// distance between Bound and Objective.
	Bound   float64
	Gap     float64
	Nodes   int
	Elapsed time.Duration
}

// Err converts a terminal failure status into an error wrapping
// ErrSolverFailure. NotSolved and Undefined are left to the caller.
func (s *Solution) Err() error {
	switch s.Status {
	case Infeasible, Unbounded:
		return fmt.Errorf("%w: problem is %s", ErrSolverFailure, s.Status)
	default:
		return nil
	}
}

// Params are passed through to the backend.
type Params struct {
	// Controls is an opaque "controlId=value;controlId=value" string.
	Controls string
	// TimeLimit bounds the solve; zero means only the context deadline applies.
	TimeLimit time.Duration
	// MIPGap is the relative optimality gap at which the search stops.
	MIPGap float64
	// MaxNodes caps the branch-and-bound tree; zero means the backend default.
	MaxNodes int
}

// Solver solves a maximisation MILP.
type Solver interface {
	Solve(ctx context.Context, p *lp.Problem, params Params) (*Solution, error)
}

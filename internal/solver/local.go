package solver

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"gas-valuation/internal/lp"
)

// Defaults of the local backend. Each can be overridden through the control
// string (lp_tol, feas_tol, int_tol, max_nodes) or Params.
const (
	DefaultLPTol    = 1e-10
	DefaultFeasTol  = 1e-7
	DefaultIntTol   = 1e-6
	DefaultMIPGap   = 1e-6
	DefaultMaxNodes = 100000
)

// Local is an in-process MILP backend: depth-first branch-and-bound over LP
// relaxations solved with gonum's simplex after a light presolve. Relaxations
// gonum cannot finish are re-solved on a dense tableau.
type Local struct {
	log *logrus.Logger
}

func NewLocal(log *logrus.Logger) *Local {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Local{log: log}
}

type localSettings struct {
	lpTol, feasTol, intTol, gap float64
	maxNodes                    int
}

func (s *Local) settings(params Params) (localSettings, error) {
	cs, err := ParseControls(params.Controls)
	if err != nil {
		return localSettings{}, err
	}
	st := localSettings{gap: params.MIPGap, maxNodes: params.MaxNodes}
	if st.lpTol, err = lookupFloat(cs, "lp_tol", DefaultLPTol); err != nil {
		return st, err
	}
	if st.feasTol, err = lookupFloat(cs, "feas_tol", DefaultFeasTol); err != nil {
		return st, err
	}
	if st.intTol, err = lookupFloat(cs, "int_tol", DefaultIntTol); err != nil {
		return st, err
	}
	if st.gap <= 0 {
		if st.gap, err = lookupFloat(cs, "mip_gap", DefaultMIPGap); err != nil {
			return st, err
		}
	}
	if st.maxNodes <= 0 {
		n, err := lookupFloat(cs, "max_nodes", DefaultMaxNodes)
		if err != nil {
			return st, err
		}
		st.maxNodes = int(n)
	}
	for _, c := range cs {
		switch c.ID {
		case "lp_tol", "feas_tol", "int_tol", "mip_gap", "max_nodes":
		default:
			s.log.WithField("control", c.ID).Debug("control ignored by local solver")
		}
	}
	return st, nil
}

type bbNode struct {
	lo, up []float64
	// bound is the parent's relaxation objective (minimisation sense).
	bound float64
}

// Solve maximises p.Objective. A time limit or cancellation ends the search
// with Undefined (incumbent found) or NotSolved.
func (s *Local) Solve(ctx context.Context, p *lp.Problem, params Params) (*Solution, error) {
	start := time.Now()
	st, err := s.settings(params)
	if err != nil {
		return nil, err
	}
	if params.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.TimeLimit)
		defer cancel()
	}

	root, err := newRelaxation(p, st.feasTol, st.intTol)
	if err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"problem": p.Name, "vars": len(p.Vars), "rows": len(p.Constraints), "integers": p.NumIntegers()})
	log.Debug("branch-and-bound started")

	var (
		best      = math.Inf(1)
		incumbent []float64
		nodes     int
		fallbacks int
		stopped   bool
		stack     = []bbNode{{lo: root.lo, up: root.up, bound: math.Inf(-1)}}
	)
	// incomplete marks a search that skipped a failed node, so the incumbent
	// cannot be proven optimal.
	incomplete := false
	prune := func(bound float64) bool {
		if incumbent == nil {
			return false
		}
		return bound >= best-math.Max(st.feasTol, st.gap*math.Abs(best))
	}

	for len(stack) > 0 {
		if ctx.Err() != nil || nodes >= st.maxNodes {
			stopped = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if prune(nd.bound) {
			continue
		}
		nodes++

		res, err := root.clone(nd.lo, nd.up).solve(st.lpTol)
		if res.fallback {
			fallbacks++
		}
		if err != nil {
			if nodes == 1 {
				return nil, err
			}
			log.WithError(err).WithField("nodes", nodes).Warn("node relaxation failed, subtree skipped")
			incomplete = true
			continue
		}
		switch res.status {
		case lpInfeasible:
			continue
		case lpUnbounded:
			sol := &Solution{Status: Unbounded, Nodes: nodes, Elapsed: time.Since(start)}
			log.WithField("nodes", nodes).Warn("relaxation unbounded")
			return sol, nil
		}
		if prune(res.obj) {
			continue
		}

		j := mostFractional(res.x, root.integer, st.intTol)
		if j < 0 {
			best = res.obj
			incumbent = res.x
			log.WithFields(logrus.Fields{"objective": -best, "nodes": nodes}).Debug("new incumbent")
			continue
		}

		v := res.x[j]
		down := bbNode{lo: nd.lo, up: withBound(nd.up, j, math.Floor(v)), bound: res.obj}
		up := bbNode{lo: withBound(nd.lo, j, math.Ceil(v)), up: nd.up, bound: res.obj}
		// The child on the nearer side is explored first.
		if v-math.Floor(v) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	sol := &Solution{Nodes: nodes, Elapsed: time.Since(start)}
	bound := best
	if stopped {
		for _, nd := range stack {
			bound = math.Min(bound, nd.bound)
		}
	}
	switch {
	case incumbent != nil && !stopped && !incomplete:
		sol.Status = Optimal
	case incumbent != nil:
		sol.Status = Undefined
	case !stopped && !incomplete:
		sol.Status = Infeasible
	default:
		sol.Status = NotSolved
	}
	if incumbent != nil {
		sol.Values = roundValues(p, incumbent, st.intTol, st.feasTol)
		sol.Objective = p.Objective.Eval(sol.Values)
		// The relaxation minimises the negated objective.
		sol.Bound = -bound
		sol.Gap = math.Abs(sol.Bound-sol.Objective) / math.Max(1, math.Abs(sol.Objective))
		if v := p.Violations(sol.Values, 1e-5); len(v) > 0 {
			log.WithField("violations", v).Warn("solution violates constraints beyond tolerance")
		}
	}

	log.WithFields(logrus.Fields{
		"status":    sol.Status.String(),
		"objective": sol.Objective,
		"nodes":     nodes,
		"fallbacks": fallbacks,
		"elapsed":   sol.Elapsed,
	}).Info("solve finished")
	return sol, nil
}

// mostFractional returns the integer column farthest from integrality, or
// -1 when every integer column is integral.
func mostFractional(x []float64, integer []bool, tol float64) int {
	best, bestFrac := -1, tol
	for j, isInt := range integer {
		if !isInt {
			continue
		}
		f := math.Abs(x[j] - math.Round(x[j]))
		if f > bestFrac {
			best, bestFrac = j, f
		}
	}
	return best
}

func withBound(bounds []float64, j int, v float64) []float64 {
	out := append([]float64(nil), bounds...)
	out[j] = v
	return out
}

// roundValues snaps integers to the nearest integer and values within
// tolerance of a bound onto the bound.
func roundValues(p *lp.Problem, x []float64, intTol, feasTol float64) map[string]float64 {
	out := make(map[string]float64, len(p.Vars))
	for j, v := range p.Vars {
		xj := x[j]
		if v.IsInteger() && math.Abs(xj-math.Round(xj)) <= intTol {
			xj = math.Round(xj)
		}
		if xj < v.Lower && xj > v.Lower-feasTol*math.Max(1, math.Abs(v.Lower)) {
			xj = v.Lower
		}
		if xj > v.Upper && xj < v.Upper+feasTol*math.Max(1, math.Abs(v.Upper)) {
			xj = v.Upper
		}
		out[v.Name] = xj
	}
	return out
}

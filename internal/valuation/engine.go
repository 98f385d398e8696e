package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gas-valuation/internal/lp"
	"gas-valuation/internal/model"
	"gas-valuation/internal/solver"
)

// BigMWarnFraction is the share of an entity's big-M above which a solved
// position is reported.
const BigMWarnFraction = 1e-3

// CashPlaces is the number of decimal places values are rounded to.
const CashPlaces = 2

// ViolationTol is how far, in MWh or MW, a solved assignment may miss a
// constraint before it is reported.
const ViolationTol = 1e-4

type Engine struct {
	solver solver.Solver
	log    *logrus.Logger
}

func New(s solver.Solver, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if s == nil {
		s = solver.NewLocal(log)
	}
	return &Engine{solver: s, log: log}
}

// Run installs g on every entity of net, builds the problem, solves it and
// turns the assignment into a ledger.
func (e *Engine) Run(ctx context.Context, net *model.Network, g model.Grid, params solver.Params) (*Result, error) {
	if net == nil {
		return nil, errors.New("network is nil")
	}
	if err := net.SetDispatchGrid(g); err != nil {
		return nil, fmt.Errorf("network %q: %w", net.Name, err)
	}
	p, err := net.Build()
	if err != nil {
		return nil, fmt.Errorf("network %q: %w", net.Name, err)
	}
	log := e.log.WithFields(logrus.Fields{"network": net.Name, "vars": len(p.Vars), "rows": len(p.Constraints)})
	log.Info("problem built")

	sol, err := e.solver.Solve(ctx, p, params)
	if err != nil {
		return nil, fmt.Errorf("network %q: %w", net.Name, err)
	}
	if err := sol.Err(); err != nil {
		log.WithField("status", sol.Status.String()).Error("solve failed")
		return nil, fmt.Errorf("network %q: %w", net.Name, err)
	}

	res := &Result{
		Problem:   p.Name,
		Status:    sol.Status,
		Objective: sol.Objective,
		Value:     cash(sol.Objective),
		Bound:     sol.Bound,
		Gap:       sol.Gap,
		Nodes:     sol.Nodes,
		Elapsed:   sol.Elapsed,
		Values:    sol.Values,
	}
	if !sol.Status.HasValues() {
		log.WithField("status", sol.Status.String()).Warn("solve stopped without a feasible assignment")
		return res, nil
	}

	for _, nd := range net.Nodes() {
		rows, total := ledgerFor(nd, g, sol.Values)
		res.Ledger = append(res.Ledger, rows...)
		res.Entities = append(res.Entities, EntityValue{Entity: nd.Base().Name(), Kind: nd.Base().Kind(), Value: cash(total)})
	}
	if res.Violations = p.Violations(sol.Values, ViolationTol); len(res.Violations) > 0 {
		log.WithField("violations", res.Violations).Warn("assignment violates constraints")
	}
	res.Warnings = bigMWarnings(net, sol.Values)
	for _, w := range res.Warnings {
		log.WithFields(logrus.Fields{
			"entity":   w.Entity,
			"variable": w.Variable,
			"value":    w.Value,
			"big_m":    w.BigM,
		}).Warn("position close to big-M")
	}

	log.WithFields(logrus.Fields{
		"status":    sol.Status.String(),
		"objective": res.Value.String(),
		"nodes":     sol.Nodes,
		"elapsed":   sol.Elapsed,
	}).Info("valuation finished")
	return res, nil
}

// ledgerFor builds the rows of one entity and returns its objective total.
// Objective terms are attributed to the period of their variable.
func ledgerFor(nd model.Node, g model.Grid, values map[string]float64) ([]LedgerRow, float64) {
	b := nd.Base()
	n := g.N()
	at := func(vs []*lp.Var, t int) float64 {
		if t < 0 || t >= len(vs) {
			return 0
		}
		return values[vs[t].Name]
	}

	period := map[*lp.Var]int{}
	for _, grp := range b.Variables() {
		if grp.Scalar {
			continue
		}
		for t, v := range grp.Vars {
			period[v] = t
		}
	}
	perPeriod := make([]float64, n)
	total := 0.0
	for _, term := range b.Objective().Terms {
		v := term.Coef * values[term.Var.Name]
		total += v
		if t, ok := period[term.Var]; ok && t < n {
			perPeriod[t] += v
		}
	}

	rows := make([]LedgerRow, 0, n)
	cum := decimal.Zero
	for t := 0; t < n; t++ {
		row := LedgerRow{
			Index:         t,
			StartHours:    g.Start(t),
			DurationHours: g.Durations[t],
			Entity:        b.Name(),
			Kind:          b.Kind(),
			InFlowMWh:     at(b.InFlow(), t),
			OutFlowMWh:    at(b.OutFlow(), t),
		}
		switch b.Kind() {
		case model.KindStorage:
			s := nd.(*model.Storage)
			wgv := s.Params.WGV
			row.LevelStart = at(s.Level(), t)
			row.LevelEnd = at(s.Level(), t+1)
			row.Injection = at(s.Injection(), t)
			row.Release = at(s.Release(), t)
			row.Action = model.ActionFromStorage(row.Injection*wgv, row.Release*wgv)
		case model.KindStandardProduct:
			sp := nd.(*model.StandardProduct)
			row.LongMW = at(sp.LongPos(), t)
			row.ShortMW = at(sp.ShortPos(), t)
			row.Action = model.ActionFromTrade(row.OutFlowMWh, row.InFlowMWh)
		case model.KindTradeTranche:
			tr := nd.(*model.TradeTranche)
			row.SalesMW = at(tr.SalesPos(), t)
			row.PurchaseMW = at(tr.PurchasePos(), t)
			row.Action = model.ActionFromTrade(row.OutFlowMWh, row.InFlowMWh)
		default:
			row.Action = model.ActionFromFlow(row.InFlowMWh, row.OutFlowMWh)
		}
		row.Value = cash(perPeriod[t])
		cum = cum.Add(row.Value)
		row.CumValue = cum
		rows = append(rows, row)
	}
	return rows, total
}

// bigMWarnings lists proxy positions above BigMWarnFraction of their big-M.
func bigMWarnings(net *model.Network, values map[string]float64) []Warning {
	var out []Warning
	for _, sc := range net.SemiContinuous() {
		m := sc.BigM()
		for _, v := range sc.ProxyPositions() {
			x := values[v.Name]
			if x > BigMWarnFraction*m {
				out = append(out, Warning{Entity: sc.Base().Name(), Variable: v.Name, Value: x, BigM: m})
			}
		}
	}
	return out
}

func cash(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(CashPlaces)
}

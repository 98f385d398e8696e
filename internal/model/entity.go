package model

import (
	"fmt"
	"strings"

	"gas-valuation/internal/lp"
)

// Kind tags the five entity variants. Neighbour classification always goes
// through the tag.
type Kind int

const (
	KindEntity Kind = iota
	KindStorage
	KindMarket
	KindStandardProduct
	KindTradeTranche
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindMarket:
		return "market"
	case KindStandardProduct:
		return "standard_product"
	case KindTradeTranche:
		return "trade_tranche"
	default:
		return "entity"
	}
}

// Variable roles. They become the middle segment of every variable name.
const (
	RoleInFlow    = "iflow"
	RoleOutFlow   = "oflow"
	RoleLevel     = "lev_pct"
	RoleInjection = "q_inj_pct"
	RoleRelease   = "q_rel_pct"
	RoleLongPos   = "long_pos"
	RoleShortPos  = "shrt_pos"
	RoleSalesPos  = "sales_pos"
	RolePurchPos  = "purch_pos"
	RoleLongTrig  = "long_semi_cont_trig"
	RoleShortTrig = "shrt_semi_cont_trig"
	RolePurchTrig = "purch_semi_cont_trig"
	RoleSalesTrig = "sales_semi_cont_trig"
	RoleLongClip  = "long_clip_cnt"
	RoleShortClip = "shrt_clip_cnt"
	// RoleEdgeFlow prefixes the sink name of a link's flow series:
	// <src>_eflow_<snk>_<t>.
	RoleEdgeFlow = "eflow"
)

// Node is one vertex of the gas network. Construction runs in four phases:
// link, SetDispatchGrid, Materialise, Emit.
type Node interface {
	Base() *Entity
	SetDispatchGrid(g Grid) error
	Materialise(m *lp.Model) error
	Emit() error
}

// VarGroup is the set of variables an entity holds for one role.
type VarGroup struct {
	Role   string
	Vars   []*lp.Var
	Scalar bool
}

// Entity is the common part of every node: name, adjacency, in/out flows and
// the emitted model fragments.
type Entity struct {
	name string
	kind Kind
	self Node

	srcs []Node
	snks []Node

	grid    Grid
	hasGrid bool

	prefix       string
	model        *lp.Model
	inFlow       []*lp.Var
	outFlow      []*lp.Var
	edges        map[string][]*lp.Var
	groups       []VarGroup
	materialised bool

	constraints []lp.Constraint
	objective   lp.Expr
	emitted     bool
}

// NewEntity returns a plain node with only flow variables and adjacency rows.
func NewEntity(name string) (*Entity, error) {
	e := &Entity{}
	if err := e.init(name, KindEntity, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Entity) init(name string, kind Kind, self Node) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: entity name must be non-empty", ErrInvalidName)
	}
	e.name = name
	e.kind = kind
	e.self = self
	return nil
}

func (e *Entity) Base() *Entity { return e }
func (e *Entity) Name() string  { return e.name }
func (e *Entity) Kind() Kind    { return e.kind }

// Sources and Sinks return the adjacency lists in insertion order.
func (e *Entity) Sources() []Node { return append([]Node(nil), e.srcs...) }
func (e *Entity) Sinks() []Node   { return append([]Node(nil), e.snks...) }

// Grid returns the installed dispatch grid.
func (e *Entity) Grid() Grid { return e.grid }

func (e *Entity) InFlow() []*lp.Var  { return e.inFlow }
func (e *Entity) OutFlow() []*lp.Var { return e.outFlow }

// EdgeFlow returns the flow series of the link e -> snk. It is allocated when
// either end emits and is nil before that.
func (e *Entity) EdgeFlow(snk string) []*lp.Var { return e.edges[snk] }

// Variables returns every variable group in materialisation order.
func (e *Entity) Variables() []VarGroup { return e.groups }

// Constraints returns a copy of the emitted constraints.
func (e *Entity) Constraints() []lp.Constraint {
	return append([]lp.Constraint(nil), e.constraints...)
}

// Objective returns the entity's contribution to the maximised objective.
func (e *Entity) Objective() lp.Expr { return e.objective.Plus(lp.Expr{}) }

func (e *Entity) Emitted() bool { return e.emitted }

// AddSource links s upstream of e and mirrors the link on s. Re-adding the
// same node is a no-op; a different node with the same name is rejected.
func (e *Entity) AddSource(s Node) error {
	if err := e.checkLinkable(s); err != nil {
		return err
	}
	for _, x := range e.srcs {
		if x == s {
			return nil
		}
		if x.Base().name == s.Base().name {
			return fmt.Errorf("%w: %q already has a source named %q", ErrDuplicateName, e.name, s.Base().name)
		}
	}
	e.srcs = append(e.srcs, s)
	if err := s.Base().AddSink(e.self); err != nil {
		e.srcs = e.srcs[:len(e.srcs)-1]
		return err
	}
	return nil
}

// AddSink links k downstream of e and mirrors the link on k.
func (e *Entity) AddSink(k Node) error {
	if err := e.checkLinkable(k); err != nil {
		return err
	}
	for _, x := range e.snks {
		if x == k {
			return nil
		}
		if x.Base().name == k.Base().name {
			return fmt.Errorf("%w: %q already has a sink named %q", ErrDuplicateName, e.name, k.Base().name)
		}
	}
	e.snks = append(e.snks, k)
	if err := k.Base().AddSource(e.self); err != nil {
		e.snks = e.snks[:len(e.snks)-1]
		return err
	}
	return nil
}

func (e *Entity) checkLinkable(n Node) error {
	if n == nil || n.Base() == nil {
		return fmt.Errorf("%w: cannot link %q to a nil node", ErrPreconditionViolated, e.name)
	}
	if n.Base() == e {
		return fmt.Errorf("%w: cannot link %q to itself", ErrDuplicateName, e.name)
	}
	if e.emitted || n.Base().emitted {
		return fmt.Errorf("%w: cannot link %q after emission", ErrPreconditionViolated, e.name)
	}
	return nil
}

// SetDispatchGrid installs the dispatch grid. The grid cannot change once
// variables exist.
func (e *Entity) SetDispatchGrid(g Grid) error {
	if e.materialised {
		return fmt.Errorf("%w: %q: grid is fixed once variables are materialised", ErrPreconditionViolated, e.name)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%s: %w", e.name, err)
	}
	e.grid = Grid{Durations: append([]float64(nil), g.Durations...)}
	e.hasGrid = true
	return nil
}

// Materialise allocates in_flow and out_flow.
func (e *Entity) Materialise(m *lp.Model) error {
	if !e.hasGrid {
		return fmt.Errorf("%w: %q: dispatch grid not set", ErrPreconditionViolated, e.name)
	}
	if e.materialised {
		return fmt.Errorf("%w: %q already materialised; use a fresh prefix", ErrPreconditionViolated, e.name)
	}
	e.prefix = m.Prefix()
	e.model = m
	var err error
	if e.inFlow, err = e.series(m, RoleInFlow, e.grid.N(), lp.Continuous); err != nil {
		return err
	}
	if e.outFlow, err = e.series(m, RoleOutFlow, e.grid.N(), lp.Continuous); err != nil {
		return err
	}
	e.materialised = true
	return nil
}

func (e *Entity) series(m *lp.Model, role string, n int, kind lp.VarKind) ([]*lp.Var, error) {
	vs, err := m.NewSeries(e.name, role, n, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	e.groups = append(e.groups, VarGroup{Role: role, Vars: vs})
	return vs, nil
}

func (e *Entity) scalar(m *lp.Model, role string, kind lp.VarKind) (*lp.Var, error) {
	v, err := m.NewVar(e.name, role, -1, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	e.groups = append(e.groups, VarGroup{Role: role, Vars: []*lp.Var{v}, Scalar: true})
	return v, nil
}

// Emit appends the adjacency rows and zero-flow guards.
func (e *Entity) Emit() error {
	if err := e.beginEmit(); err != nil {
		return err
	}
	e.emitAdjacency()
	e.emitted = true
	return nil
}

func (e *Entity) beginEmit() error {
	if !e.materialised {
		return fmt.Errorf("%w: %q: variables not materialised", ErrPreconditionViolated, e.name)
	}
	if e.emitted {
		return fmt.Errorf("%w: %q already emitted", ErrPreconditionViolated, e.name)
	}
	for _, n := range e.neighbours() {
		b := n.Base()
		if !b.materialised {
			return fmt.Errorf("%w: %q: neighbour %q not materialised", ErrPreconditionViolated, e.name, b.name)
		}
		if b.model != e.model {
			return fmt.Errorf("%w: %q: neighbour %q belongs to another model", ErrPreconditionViolated, e.name, b.name)
		}
		if b.grid.N() != e.grid.N() {
			return fmt.Errorf("%w: %q has %d periods, neighbour %q has %d", ErrShapeMismatch, e.name, e.grid.N(), b.name, b.grid.N())
		}
	}
	for _, s := range e.srcs {
		if err := allocEdge(s.Base(), e); err != nil {
			return err
		}
	}
	for _, k := range e.snks {
		if err := allocEdge(e, k.Base()); err != nil {
			return err
		}
	}
	return nil
}

// allocEdge creates the flow series of src -> snk unless the other end
// already did.
func allocEdge(src, snk *Entity) error {
	if _, ok := src.edges[snk.name]; ok {
		return nil
	}
	vs, err := src.model.NewSeries(src.name, RoleEdgeFlow+"_"+snk.name, src.grid.N(), lp.Continuous)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	if src.edges == nil {
		src.edges = map[string][]*lp.Var{}
	}
	src.edges[snk.name] = vs
	return nil
}

// emitAdjacency ties the flows to the links: in_flow is the sum of the edge
// flows from the sources, out_flow the sum of the edge flows to the sinks.
// Every edge flow appears in exactly one of each, so gas is conserved along
// links. A side without links has zero flow.
func (e *Entity) emitAdjacency() {
	for t := 0; t < e.grid.N(); t++ {
		if len(e.srcs) == 0 {
			e.add("no_src", t, lp.VarExpr(e.inFlow[t], 1), lp.Equal, lp.Constant(0))
		} else {
			e.add("src_bal", t, e.inEdges(e.srcs, t), lp.Equal, lp.VarExpr(e.inFlow[t], 1))
		}
		if len(e.snks) == 0 {
			e.add("no_snk", t, lp.VarExpr(e.outFlow[t], 1), lp.Equal, lp.Constant(0))
		} else {
			e.add("snk_bal", t, e.outEdges(e.snks, t), lp.Equal, lp.VarExpr(e.outFlow[t], 1))
		}
	}
}

// inEdges sums the flows of srcs -> e in period t.
func (e *Entity) inEdges(srcs []Node, t int) lp.Expr {
	var x lp.Expr
	for _, s := range srcs {
		x.AddTerm(s.Base().edges[e.name][t], 1)
	}
	return x
}

// outEdges sums the flows of e -> snks in period t.
func (e *Entity) outEdges(snks []Node, t int) lp.Expr {
	var x lp.Expr
	for _, k := range snks {
		x.AddTerm(e.edges[k.Base().name][t], 1)
	}
	return x
}

// add appends lhs (sense) rhs named <prefix><entity>_<label>_<t>.
func (e *Entity) add(label string, t int, lhs lp.Expr, sense lp.Sense, rhs lp.Expr) {
	name := lp.VarName(e.prefix, e.name, label, t)
	e.constraints = append(e.constraints, lp.NewConstraint(name, lhs, sense, rhs))
}

func (e *Entity) neighbours() []Node {
	out := make([]Node, 0, len(e.srcs)+len(e.snks))
	out = append(out, e.srcs...)
	return append(out, e.snks...)
}

// HasNeighbours reports whether the entity is linked to anything.
func (e *Entity) HasNeighbours() bool { return len(e.srcs)+len(e.snks) > 0 }

// allNeighboursAre is false for an isolated entity.
func (e *Entity) allNeighboursAre(k Kind) bool {
	ns := e.neighbours()
	if len(ns) == 0 {
		return false
	}
	for _, n := range ns {
		if n.Base().kind != k {
			return false
		}
	}
	return true
}

// splitByKind partitions nodes into those of kind k and the rest, keeping order.
func splitByKind(nodes []Node, k Kind) (match, other []Node) {
	for _, n := range nodes {
		if n.Base().kind == k {
			match = append(match, n)
		} else {
			other = append(other, n)
		}
	}
	return match, other
}

// emitSplitBalance: gas arriving from k-typed sources covers what leaves for
// the other sinks, and gas leaving for k-typed sinks covers what arrives from
// the other sources, in every period of ts.
func (e *Entity) emitSplitBalance(k Kind, ts []int) {
	kSrcs, oSrcs := splitByKind(e.srcs, k)
	kSnks, oSnks := splitByKind(e.snks, k)
	for _, t := range ts {
		if len(kSrcs) > 0 && len(oSnks) > 0 {
			e.add("split_src_bal", t, e.inEdges(kSrcs, t), lp.GreaterEq, e.outEdges(oSnks, t))
		}
		if len(kSnks) > 0 && len(oSrcs) > 0 {
			e.add("split_snk_bal", t, e.outEdges(kSnks, t), lp.GreaterEq, e.inEdges(oSrcs, t))
		}
	}
}

func periods(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

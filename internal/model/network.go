package model

import (
	"fmt"

	"gas-valuation/internal/lp"
)

// SemiContinuous is implemented by entities whose traded positions are
// bounded by a big-M.
type SemiContinuous interface {
	Node
	BigM() float64
	ProxyPositions() []*lp.Var
}

// Network owns every entity of one problem instance. Adjacency lists inside
// the entities refer back into it; iteration is always in insertion order.
type Network struct {
	Name string

	prefix string
	nodes  []Node
	byName map[string]Node
	model  *lp.Model
}

// NewNetwork returns an empty network. prefix is prepended to every
// variable and constraint name and must differ between problem instances
// that reuse entities.
func NewNetwork(name, prefix string) *Network {
	return &Network{Name: name, prefix: prefix, byName: map[string]Node{}}
}

// Prefix is prepended to every variable and constraint name.
func (n *Network) Prefix() string { return n.prefix }

// Add registers nodes. Entity names must be unique within the network.
func (n *Network) Add(nodes ...Node) error {
	for _, nd := range nodes {
		if nd == nil || nd.Base() == nil {
			return fmt.Errorf("%w: nil node", ErrPreconditionViolated)
		}
		name := nd.Base().Name()
		if _, ok := n.byName[name]; ok {
			return fmt.Errorf("%w: network %q already has an entity named %q", ErrDuplicateName, n.Name, name)
		}
		n.byName[name] = nd
		n.nodes = append(n.nodes, nd)
	}
	return nil
}

// Node looks up an entity by name.
func (n *Network) Node(name string) (Node, bool) {
	nd, ok := n.byName[name]
	return nd, ok
}

// Nodes returns the entities in insertion order.
func (n *Network) Nodes() []Node { return append([]Node(nil), n.nodes...) }

// Link connects src -> snk by name.
func (n *Network) Link(src, snk string) error {
	a, ok := n.byName[src]
	if !ok {
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidName, src)
	}
	b, ok := n.byName[snk]
	if !ok {
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidName, snk)
	}
	return a.Base().AddSink(b)
}

// SetDispatchGrid installs g on every entity.
func (n *Network) SetDispatchGrid(g Grid) error {
	for _, nd := range n.nodes {
		if err := nd.SetDispatchGrid(g); err != nil {
			return err
		}
	}
	return nil
}

// Build materialises and emits every entity and assembles the problem.
func (n *Network) Build() (*lp.Problem, error) {
	if n.model != nil {
		return nil, fmt.Errorf("%w: network %q already built", ErrPreconditionViolated, n.Name)
	}
	if len(n.nodes) == 0 {
		return nil, fmt.Errorf("%w: network %q has no entities", ErrPreconditionViolated, n.Name)
	}
	m := lp.NewModel(n.prefix)
	for _, nd := range n.nodes {
		if err := nd.Materialise(m); err != nil {
			return nil, err
		}
	}
	for _, nd := range n.nodes {
		if err := nd.Emit(); err != nil {
			return nil, err
		}
	}
	n.model = m
	return Assemble(n.Name, m, n.nodes)
}

// Model returns the variable arena of the last Build, or nil before the
// network is built. Link flow series live there too.
func (n *Network) Model() *lp.Model { return n.model }

// SemiContinuous returns the products and tranches of the network.
func (n *Network) SemiContinuous() []SemiContinuous {
	var out []SemiContinuous
	for _, nd := range n.nodes {
		if sc, ok := nd.(SemiContinuous); ok {
			out = append(out, sc)
		}
	}
	return out
}

// Assemble concatenates the constraints of every node and sums their
// objective terms into one maximised expression.
func Assemble(name string, m *lp.Model, nodes []Node) (*lp.Problem, error) {
	p := &lp.Problem{Name: name, Vars: m.Vars()}
	var obj lp.Expr
	for _, nd := range nodes {
		b := nd.Base()
		if !b.Emitted() {
			return nil, fmt.Errorf("%w: %q has not emitted its model", ErrPreconditionViolated, b.Name())
		}
		p.Constraints = append(p.Constraints, b.constraints...)
		obj.AddExpr(b.objective, 1)
	}
	p.Objective = obj.Simplify()
	return p, nil
}

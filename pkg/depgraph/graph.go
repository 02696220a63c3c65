//go:generate mockgen -destination=./mocks/depgraph.go . CaskResolver,FormulaRegistry

// Package depgraph resolves the cask and formula dependencies of a cask into
// an install order.
package depgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/model"
)

// NodeKind tells casks and formulae apart.
type NodeKind int

const (
	NodeCask NodeKind = iota
	NodeFormula
)

func (k NodeKind) String() string {
	if k == NodeFormula {
		return "formula"
	}
	return "cask"
}

// Node is one package in the graph. Cask is set for cask nodes.
type Node struct {
	Kind NodeKind
	Name string
	Cask *model.Cask
}

func (n Node) key() string { return n.Kind.String() + ":" + n.Name }

func (n Node) String() string { return n.Name }

// CaskResolver loads dependency casks and reports their installed state.
type CaskResolver interface {
	Load(token string) (*model.Cask, error)
	IsInstalled(token string) bool
}

// FormulaRegistry answers questions about formulae.
type FormulaRegistry interface {
	// Dependencies returns the direct dependencies of a formula.
	Dependencies(ctx context.Context, name string) ([]string, error)
	IsInstalled(ctx context.Context, name string) bool
	// IsLinked reports whether the installed formula is the active one.
	IsLinked(ctx context.Context, name string) bool
}

// Graph memoizes the expansion of every node it has seen; one graph serves a
// whole install run.
type Graph struct {
	casks    CaskResolver
	formulae FormulaRegistry
	nodes    map[string]Node
	edges    map[string][]string
}

// New returns an empty graph.
func New(casks CaskResolver, formulae FormulaRegistry) *Graph {
	return &Graph{
		casks:    casks,
		formulae: formulae,
		nodes:    make(map[string]Node),
		edges:    make(map[string][]string),
	}
}

// Resolve returns the dependencies of root, each one before its dependents.
// Root itself is not part of the result.
func (g *Graph) Resolve(ctx context.Context, root *model.Cask) ([]Node, error) {
	start := Node{Kind: NodeCask, Name: root.Token, Cask: root}
	if err := g.expand(ctx, start); err != nil {
		return nil, err
	}

	components := g.strongComponents(start.key())
	var cycle []string
	for _, comp := range components {
		if len(comp) == 1 {
			if g.hasSelfEdge(comp[0]) {
				return nil, &errors.SelfDependencyError{Token: g.nodes[comp[0]].Name}
			}
			continue
		}
		if len(comp) > len(cycle) {
			cycle = comp
		}
	}
	if cycle != nil {
		members := make([]string, 0, len(cycle))
		for _, k := range cycle {
			if k != start.key() {
				members = append(members, g.nodes[k].Name)
			}
		}
		sort.Strings(members)
		return nil, &errors.CyclicDependencyError{Token: root.Token, Cycle: members}
	}

	order := make([]Node, 0, len(components))
	for _, comp := range components {
		if comp[0] != start.key() {
			order = append(order, g.nodes[comp[0]])
		}
	}
	return order, nil
}

// Missing returns the nodes that still need installing. A formula that is
// installed but not linked counts as missing.
func (g *Graph) Missing(ctx context.Context, nodes []Node) []Node {
	var missing []Node
	for _, n := range nodes {
		switch n.Kind {
		case NodeCask:
			if !g.casks.IsInstalled(n.Name) {
				missing = append(missing, n)
			}
		case NodeFormula:
			if !g.formulae.IsInstalled(ctx, n.Name) || !g.formulae.IsLinked(ctx, n.Name) {
				missing = append(missing, n)
			}
		}
	}
	return missing
}

func (g *Graph) expand(ctx context.Context, n Node) error {
	k := n.key()
	if _, seen := g.edges[k]; seen {
		return nil
	}
	g.nodes[k] = n

	deps, err := g.dependencies(ctx, n)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(deps))
	for _, d := range deps {
		keys = append(keys, d.key())
	}
	g.edges[k] = keys

	for _, d := range deps {
		if d.key() == k {
			continue
		}
		if err := g.expand(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) dependencies(ctx context.Context, n Node) ([]Node, error) {
	var deps []Node
	switch n.Kind {
	case NodeCask:
		for _, f := range n.Cask.DependsOn.Formulae {
			deps = append(deps, Node{Kind: NodeFormula, Name: f})
		}
		for _, token := range n.Cask.DependsOn.Casks {
			if token == n.Name {
				deps = append(deps, n)
				continue
			}
			if existing, ok := g.nodes[Node{Kind: NodeCask, Name: token}.key()]; ok {
				deps = append(deps, existing)
				continue
			}
			c, err := g.casks.Load(token)
			if err != nil {
				return nil, fmt.Errorf("dependency '%s' of '%s': %w", token, n.Name, err)
			}
			deps = append(deps, Node{Kind: NodeCask, Name: token, Cask: c})
		}
	case NodeFormula:
		names, err := g.formulae.Dependencies(ctx, n.Name)
		if err != nil {
			return nil, fmt.Errorf("dependencies of formula '%s': %w", n.Name, err)
		}
		for _, name := range names {
			deps = append(deps, Node{Kind: NodeFormula, Name: name})
		}
	}
	return deps, nil
}

func (g *Graph) hasSelfEdge(k string) bool {
	for _, e := range g.edges[k] {
		if e == k {
			return true
		}
	}
	return false
}

// strongComponents runs Tarjan's algorithm from root. Components come out
// in reverse topological order, so dependencies precede dependents.
func (g *Graph) strongComponents(root string) [][]string {
	var (
		index    = 0
		indices  = map[string]int{}
		lowlinks = map[string]int{}
		onStack  = map[string]bool{}
		stack    []string
		out      [][]string
	)

	var connect func(v string)
	connect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				connect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}

		if lowlinks[v] == indices[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			out = append(out, comp)
		}
	}
	connect(root)
	return out
}

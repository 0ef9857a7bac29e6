package graph

import (
	"github.com/vk/spacesd/internal/model"
)

// Node is a single vertex of the validated graph: one resource definition
// with its inheritance already merged.
type Node struct {
	ID model.ResourceID
	// Def is the original parsed definition.
	Def *model.Definition
	// Provider is the effective provider name after _use inheritance.
	Provider string
	// Attrs is the effective attribute mapping: own attributes merged over
	// inherited ones, manifest defaults applied. Placeholders remain
	// unresolved until execution.
	Attrs map[string]string

	deps       []model.ResourceID
	dependents []model.ResourceID
}

// Graph owns the full set of nodes and edges for one resolution unit.
type Graph struct {
	root  model.ResourceID
	nodes map[model.ResourceID]*Node
}

// Root returns the resource the closure was computed from.
func (g *Graph) Root() model.ResourceID {
	return g.root
}

// Node returns the node for the given ID, if it is part of the closure.
func (g *Graph) Node(id model.ResourceID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes in the closure.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// IDs returns all node IDs in ascending (kind, name) order.
func (g *Graph) IDs() []model.ResourceID {
	ids := make([]model.ResourceID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	model.SortIDs(ids)
	return ids
}

// Deps returns the direct dependencies of a node, sorted.
func (g *Graph) Deps(id model.ResourceID) []model.ResourceID {
	if n, ok := g.nodes[id]; ok {
		return n.deps
	}
	return nil
}

// Dependents returns the nodes directly depending on the given node, sorted.
func (g *Graph) Dependents(id model.ResourceID) []model.ResourceID {
	if n, ok := g.nodes[id]; ok {
		return n.dependents
	}
	return nil
}

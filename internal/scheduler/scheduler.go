// Package scheduler computes the deterministic execution order for a
// validated graph. It uses Kahn's algorithm processed in waves, so that all
// nodes eligible at the same depth form one "step"; ties within a step are
// broken by ascending (kind, name) order. Identical input always yields an
// identical plan.
package scheduler

import (
	"fmt"

	"github.com/vk/spacesd/internal/graph"
	"github.com/vk/spacesd/internal/model"
)

// Plan is the ordered execution sequence for one resolution run.
type Plan struct {
	// Order lists every node such that each dependency precedes its
	// dependents.
	Order []model.ResourceID
	steps [][]model.ResourceID
}

// Steps returns the wave grouping: step 1 holds all zero-dependency nodes,
// step 2 the nodes depending only on step-1 nodes, and so on.
func (p *Plan) Steps() [][]model.ResourceID {
	return p.steps
}

// Schedule produces a topological plan for the graph. The graph is cycle
// checked at build time, so a leftover here indicates a builder bug.
func Schedule(g *graph.Graph) (*Plan, error) {
	indegree := make(map[model.ResourceID]int, g.Len())
	for _, id := range g.IDs() {
		indegree[id] = len(g.Deps(id))
	}

	var wave []model.ResourceID
	for _, id := range g.IDs() {
		if indegree[id] == 0 {
			wave = append(wave, id)
		}
	}

	plan := &Plan{Order: make([]model.ResourceID, 0, g.Len())}
	for len(wave) > 0 {
		model.SortIDs(wave)
		plan.steps = append(plan.steps, wave)
		plan.Order = append(plan.Order, wave...)

		var next []model.ResourceID
		for _, id := range wave {
			for _, dep := range g.Dependents(id) {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		wave = next
	}

	if len(plan.Order) != g.Len() {
		return nil, fmt.Errorf("scheduler: %d of %d nodes unreachable in topological order",
			g.Len()-len(plan.Order), g.Len())
	}
	return plan, nil
}

package graph

import (
	"context"
	"fmt"

	"github.com/vk/spacesd/internal/ctxlog"
	"github.com/vk/spacesd/internal/model"
	"github.com/vk/spacesd/internal/registry"
)

// Build constructs the validated dependency graph for one resolution unit:
// the closure of definitions reachable from root. The registry may be nil,
// in which case provider-name resolution and manifest attribute validation
// are skipped (definitions must still carry a provider).
func Build(ctx context.Context, defs []*model.Definition, root model.ResourceID, reg *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.", "root", root.String(), "definitions", len(defs))

	byID := make(map[model.ResourceID]*model.Definition, len(defs))
	for _, def := range defs {
		if _, exists := byID[def.ID]; exists {
			return nil, &DuplicateResourceError{ID: def.ID}
		}
		byID[def.ID] = def
	}

	if _, ok := byID[root]; !ok {
		return nil, &UnknownResourceError{Ref: root}
	}

	g := &Graph{root: root, nodes: make(map[model.ResourceID]*Node)}

	// First pass: walk the closure, creating nodes and recording edges.
	queue := []model.ResourceID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, visited := g.nodes[id]; visited {
			continue
		}
		def := byID[id]
		node := &Node{ID: id, Def: def}
		g.nodes[id] = node

		seen := make(map[model.ResourceID]bool)
		for _, ref := range references(def) {
			if ref == id {
				return nil, &CycleError{Path: []model.ResourceID{id, id}}
			}
			if _, ok := byID[ref]; !ok {
				return nil, &UnknownResourceError{Ref: ref, Referrer: id}
			}
			if !seen[ref] {
				seen[ref] = true
				node.deps = append(node.deps, ref)
			}
			queue = append(queue, ref)
		}
		model.SortIDs(node.deps)
	}
	logger.Debug("Build: closure walk complete.", "nodes", len(g.nodes))

	// Second pass: reverse edges.
	for id, node := range g.nodes {
		for _, dep := range node.deps {
			g.nodes[dep].dependents = append(g.nodes[dep].dependents, id)
		}
	}
	for _, node := range g.nodes {
		model.SortIDs(node.dependents)
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	// Third pass: merge _use inheritance into effective attributes and
	// providers, then validate against the registry. Safe to recurse now
	// that the graph is proven acyclic.
	resolver := &effectiveResolver{graph: g}
	for _, id := range g.IDs() {
		node := g.nodes[id]
		attrs, providerName := resolver.resolve(id)
		node.Provider = providerName

		if providerName == "" {
			return nil, &UnresolvedProviderError{ID: id}
		}
		if reg != nil {
			if _, ok := reg.Resolve(providerName); !ok {
				return nil, &UnresolvedProviderError{ID: id, Provider: providerName}
			}
			attrs = reg.ApplyDefaults(providerName, attrs)
			if err := reg.ValidateAttrs(providerName, attrs); err != nil {
				return nil, fmt.Errorf("resource %s: %w", id.Bracket(), err)
			}
		}
		node.Attrs = attrs
	}

	// Fourth pass: every attribute reference must point at an attribute
	// that actually exists within the closure.
	for _, id := range g.IDs() {
		node := g.nodes[id]
		for _, value := range node.Attrs {
			for _, ref := range model.FindAttrRefs(value) {
				target, ok := g.nodes[ref.ID]
				if !ok {
					return nil, &UnknownResourceError{Ref: ref.ID, Referrer: id}
				}
				if _, ok := target.Attrs[ref.Attr]; !ok {
					return nil, &UnknownAttributeError{Ref: ref.ID, Attr: ref.Attr, Referrer: id}
				}
			}
		}
	}

	logger.Debug("Build: graph construction successful.", "nodes", len(g.nodes))
	return g, nil
}

// references collects every ID a definition depends on: _use targets,
// explicit requires, and attribute cross-references.
func references(def *model.Definition) []model.ResourceID {
	refs := make([]model.ResourceID, 0, len(def.Uses)+len(def.Requires))
	refs = append(refs, def.Uses...)
	refs = append(refs, def.Requires...)
	for _, value := range def.Attrs {
		for _, ref := range model.FindAttrRefs(value) {
			refs = append(refs, ref.ID)
		}
	}
	return refs
}

// effectiveResolver memoizes the ordered _use merge per node.
type effectiveResolver struct {
	graph    *Graph
	resolved map[model.ResourceID]*resolvedDef
}

type resolvedDef struct {
	attrs    map[string]string
	provider string
}

func (r *effectiveResolver) resolve(id model.ResourceID) (map[string]string, string) {
	if r.resolved == nil {
		r.resolved = make(map[model.ResourceID]*resolvedDef)
	}
	if cached, ok := r.resolved[id]; ok {
		return cached.attrs, cached.provider
	}

	def := r.graph.nodes[id].Def
	attrs := make(map[string]string, len(def.Attrs))
	for k, v := range def.Attrs {
		attrs[k] = v
	}
	providerName := def.Provider

	// Own values seeded first, then each _use in listed order: own wins,
	// and the first-listed _use wins over later ones on conflict.
	for _, use := range def.Uses {
		inheritedAttrs, inheritedProvider := r.resolve(use)
		model.MergeInherited(attrs, inheritedAttrs)
		if providerName == "" {
			providerName = inheritedProvider
		}
	}

	r.resolved[id] = &resolvedDef{attrs: attrs, provider: providerName}
	return attrs, providerName
}

// detectCycles runs a depth-first search with the classic three-color
// marking. Hitting an in-progress node closes a cycle; the full path is
// reconstructed for the error. Traversal order is sorted, so the reported
// witness is deterministic.
func (g *Graph) detectCycles() error {
	const (
		white = 0 // unvisited
		gray  = 1 // in progress
		black = 2 // done
	)
	color := make(map[model.ResourceID]int, len(g.nodes))
	var stack []model.ResourceID

	var visit func(id model.ResourceID) *CycleError
	visit = func(id model.ResourceID) *CycleError {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range g.nodes[id].deps {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				// Reconstruct the cycle from where dep first appears on
				// the stack through the current node, closing it at dep.
				var path []model.ResourceID
				for i, sid := range stack {
					if sid == dep {
						path = append(path, stack[i:]...)
						break
					}
				}
				path = append(path, dep)
				return &CycleError{Path: path}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

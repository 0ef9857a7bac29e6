package model

import "sort"

// Reserved attribute keys carried by the space file format. They configure
// the resolver itself and are never passed to providers.
const (
	ProviderKey = "_provider"
	UseKey      = "_use"
)

// Definition is one parsed resource definition. Attrs values may still
// contain $VAR and [kind name]:attr placeholders; those stay unresolved
// until the engine substitutes them right before provider invocation.
type Definition struct {
	ID       ResourceID
	Provider string
	Attrs    map[string]string
	Uses     []ResourceID
	Requires []ResourceID
}

// NewDefinition returns an empty definition for the given ID.
func NewDefinition(id ResourceID) *Definition {
	return &Definition{ID: id, Attrs: make(map[string]string)}
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	out := &Definition{
		ID:       d.ID,
		Provider: d.Provider,
		Attrs:    make(map[string]string, len(d.Attrs)),
		Uses:     append([]ResourceID(nil), d.Uses...),
		Requires: append([]ResourceID(nil), d.Requires...),
	}
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}
	return out
}

// MergeInherited copies attributes from an inherited definition into attrs,
// skipping keys already present. Processing order is the caller's concern:
// the target's own attributes are seeded first, then each _use reference in
// the order listed, so own values win and the first-listed _use wins over
// later ones on conflict.
func MergeInherited(attrs map[string]string, inherited map[string]string) {
	for k, v := range inherited {
		if _, ok := attrs[k]; !ok {
			attrs[k] = v
		}
	}
}

// SortIDs sorts a slice of resource IDs in ascending (kind, name) order.
func SortIDs(ids []ResourceID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

package graph

import (
	"fmt"
	"strings"

	"github.com/vk/spacesd/internal/model"
)

// DuplicateResourceError reports two definitions sharing one identifier.
type DuplicateResourceError struct {
	ID model.ResourceID
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource %s", e.ID.Bracket())
}

// UnknownResourceError reports a reference to an identifier that resolves
// to no definition. Referrer is zero when the root itself is unknown.
type UnknownResourceError struct {
	Ref      model.ResourceID
	Referrer model.ResourceID
}

func (e *UnknownResourceError) Error() string {
	if e.Referrer.IsZero() {
		return fmt.Sprintf("unknown resource %s", e.Ref.Bracket())
	}
	return fmt.Sprintf("unknown resource %s referenced by %s", e.Ref.Bracket(), e.Referrer.Bracket())
}

// UnknownAttributeError reports a cross-resource attribute reference naming
// an attribute the target definition does not carry.
type UnknownAttributeError struct {
	Ref      model.ResourceID
	Attr     string
	Referrer model.ResourceID
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("%s references unknown attribute %q of %s",
		e.Referrer.Bracket(), e.Attr, e.Ref.Bracket())
}

// UnresolvedProviderError reports a resource with no usable provider after
// _use inheritance: either none was set anywhere, or the name matches no
// registered implementation.
type UnresolvedProviderError struct {
	ID       model.ResourceID
	Provider string
}

func (e *UnresolvedProviderError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("resource %s has no provider", e.ID.Bracket())
	}
	return fmt.Sprintf("resource %s names unknown provider '%s'", e.ID.Bracket(), e.Provider)
}

// CycleError reports a dependency cycle. Path holds the full cycle in
// dependency order; the first and last entries are the same resource.
type CycleError struct {
	Path []model.ResourceID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.Bracket()
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

package model

import (
	"fmt"
	"strings"
)

// ResourceID is the composite key identifying one declared resource.
// Kind is the bracket tag ("package", "virtualenv", ...); Name is optional,
// so a single unqualified instance per kind is allowed.
type ResourceID struct {
	Kind string
	Name string
}

// ParseResourceID parses the inner text of a bracket reference, e.g.
// "package paramiko" or "virtualenv". Surrounding brackets, if present,
// are stripped first.
func ParseResourceID(s string) (ResourceID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimSpace(s)
	if s == "" {
		return ResourceID{}, fmt.Errorf("empty resource reference")
	}
	kind, name, _ := strings.Cut(s, " ")
	return ResourceID{Kind: kind, Name: strings.TrimSpace(name)}, nil
}

// String serializes the ID into its canonical form: "kind" or "kind name".
func (id ResourceID) String() string {
	if id.Name == "" {
		return id.Kind
	}
	return id.Kind + " " + id.Name
}

// Bracket returns the ID in its bracket reference form, e.g. "[env test]".
func (id ResourceID) Bracket() string {
	return "[" + id.String() + "]"
}

// Less orders IDs lexicographically by (kind, name). This is the tie-break
// rule the scheduler relies on for deterministic output.
func (id ResourceID) Less(other ResourceID) bool {
	if id.Kind != other.Kind {
		return id.Kind < other.Kind
	}
	return id.Name < other.Name
}

// IsZero reports whether the ID is the empty value.
func (id ResourceID) IsZero() bool {
	return id.Kind == "" && id.Name == ""
}

package model

import (
	"fmt"
	"regexp"
)

// refPattern matches cross-resource attribute references of the form
// "[kind name]:attr" embedded in attribute values.
var refPattern = regexp.MustCompile(`\[([^\[\]]+)\]:([A-Za-z_][A-Za-z0-9_]*)`)

// AttrRef is a cross-resource attribute reference found in an attribute value.
type AttrRef struct {
	ID   ResourceID
	Attr string
}

// FindAttrRefs extracts all cross-resource references from a value.
func FindAttrRefs(value string) []AttrRef {
	var refs []AttrRef
	for _, m := range refPattern.FindAllStringSubmatch(value, -1) {
		id, err := ParseResourceID(m[1])
		if err != nil {
			continue
		}
		refs = append(refs, AttrRef{ID: id, Attr: m[2]})
	}
	return refs
}

// ExpandAttrRefs replaces every cross-resource reference in value using fn.
// The first error from fn aborts the expansion.
func ExpandAttrRefs(value string, fn func(AttrRef) (string, error)) (string, error) {
	var expandErr error
	out := refPattern.ReplaceAllStringFunc(value, func(match string) string {
		if expandErr != nil {
			return match
		}
		sub := refPattern.FindStringSubmatch(match)
		id, err := ParseResourceID(sub[1])
		if err != nil {
			expandErr = fmt.Errorf("invalid reference %q: %w", match, err)
			return match
		}
		replacement, err := fn(AttrRef{ID: id, Attr: sub[2]})
		if err != nil {
			expandErr = err
			return match
		}
		return replacement
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

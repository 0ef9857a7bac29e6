package engine

import (
	"fmt"
	"os"

	"github.com/vk/spacesd/internal/model"
)

// resolveAttrs substitutes every placeholder in a node's effective
// attributes immediately before its provider is invoked: [kind name]:attr
// references take the referenced node's already-resolved value, then $VAR
// expands from the process environment. The graph builder has proven all
// references point at finalized upstream nodes by the time this runs.
func (e *Engine) resolveAttrs(id model.ResourceID, attrs map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(attrs))
	for key, value := range attrs {
		expanded, err := model.ExpandAttrRefs(value, func(ref model.AttrRef) (string, error) {
			state, ok := e.states[ref.ID]
			if !ok {
				return "", fmt.Errorf("reference %s:%s escapes the closure", ref.ID.Bracket(), ref.Attr)
			}
			select {
			case <-state.done:
			default:
				return "", fmt.Errorf("reference %s:%s is not finalized yet", ref.ID.Bracket(), ref.Attr)
			}
			val, ok := state.resolved[ref.Attr]
			if !ok {
				return "", fmt.Errorf("reference %s:%s has no resolved value", ref.ID.Bracket(), ref.Attr)
			}
			return val, nil
		})
		if err != nil {
			return nil, fmt.Errorf("attribute %q of %s: %w", key, id.Bracket(), err)
		}
		resolved[key] = os.Expand(expanded, os.Getenv)
	}
	return resolved, nil
}

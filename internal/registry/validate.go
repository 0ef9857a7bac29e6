package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/spacesd/internal/ctxlog"
	"github.com/vk/spacesd/internal/model"
)

// Validate performs a strict parity check between manifests and Go code:
// every registered provider must carry a manifest, and every manifest must
// have a matching Go implementation.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for name := range r.providers {
		if _, ok := r.manifests[name]; !ok {
			errs = append(errs, fmt.Sprintf("provider '%s': Go implementation registered without a manifest", name))
		}
	}
	for name := range r.manifests {
		if _, ok := r.providers[name]; !ok {
			errs = append(errs, fmt.Sprintf("provider '%s': manifest declared without a Go implementation", name))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validation passed.", "providers", len(r.providers))
	return nil
}

// ValidateAttrs checks a resource's attribute mapping against the named
// provider's manifest: unknown keys (unless the manifest is open), missing
// required inputs, and value convertibility to the declared cty type.
// Values still carrying $VAR or [kind name]:attr placeholders are only
// checked for presence; their type is unknowable until substitution.
func (r *Registry) ValidateAttrs(name string, attrs map[string]string) error {
	manifest, ok := r.manifests[name]
	if !ok {
		return fmt.Errorf("no manifest for provider '%s'", name)
	}

	if !manifest.Open {
		for key := range attrs {
			if _, ok := manifest.Inputs[key]; !ok {
				return fmt.Errorf("provider '%s' does not accept attribute %q", name, key)
			}
		}
	}

	for _, in := range manifest.Inputs {
		val, ok := attrs[in.Name]
		if !ok {
			if in.Required && !in.HasDefault {
				return fmt.Errorf("provider '%s' requires attribute %q", name, in.Name)
			}
			continue
		}
		if hasPlaceholders(val) {
			continue
		}
		if _, err := convert.Convert(cty.StringVal(val), in.Type); err != nil {
			return fmt.Errorf("attribute %q: value %q is not a valid %s: %w",
				in.Name, val, in.Type.FriendlyName(), err)
		}
	}
	return nil
}

// ApplyDefaults returns attrs extended with the manifest's default values
// for keys the definition left unset. The input map is not modified.
func (r *Registry) ApplyDefaults(name string, attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	manifest, ok := r.manifests[name]
	if !ok {
		return out
	}
	for _, in := range manifest.Inputs {
		if _, set := out[in.Name]; !set && in.HasDefault {
			out[in.Name] = in.Default
		}
	}
	return out
}

func hasPlaceholders(val string) bool {
	return strings.Contains(val, "$") || len(model.FindAttrRefs(val)) > 0
}

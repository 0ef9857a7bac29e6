// Package envvars provides process environment variable sets. Every
// attribute of the resource becomes one exported variable, so its manifest
// is open to arbitrary keys.
package envvars

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/vk/spacesd/internal/provider"
	"github.com/vk/spacesd/internal/registry"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the provider and its manifest with the registry.
func (m Module) Register(r *registry.Registry) {
	r.MustRegisterManifest("providers/envvars/manifest.hcl", manifestSrc)
	r.RegisterProvider("EnvProvider", &Provider{})
}

// Provider ensures the process environment carries the configured variables.
type Provider struct{}

// Ensure implements provider.Provider.
func (p *Provider) Ensure(ctx context.Context, attrs map[string]string) (*provider.Result, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exported := 0
	for _, k := range keys {
		if current, ok := os.LookupEnv(k); ok && current == attrs[k] {
			continue
		}
		if err := os.Setenv(k, attrs[k]); err != nil {
			return nil, fmt.Errorf("exporting %s: %w", k, err)
		}
		exported++
	}

	if exported == 0 {
		return &provider.Result{
			Outcome: provider.AlreadySatisfied,
			Detail:  fmt.Sprintf("%d variables already set", len(keys)),
		}, nil
	}
	return &provider.Result{
		Outcome: provider.Applied,
		Detail:  fmt.Sprintf("exported %d of %d variables", exported, len(keys)),
	}, nil
}

// Package pip provides Python package installation: pip show probes
// installed state, pip install converges.
package pip

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/vk/spacesd/internal/provider"
	"github.com/vk/spacesd/internal/registry"
	"github.com/vk/spacesd/internal/shell"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the provider and its manifest with the registry.
func (m Module) Register(r *registry.Registry) {
	r.MustRegisterManifest("providers/pip/manifest.hcl", manifestSrc)
	r.RegisterProvider("PipProvider", &Provider{})
}

// Provider ensures a Python package is installed, optionally pinned.
type Provider struct{}

// Ensure implements provider.Provider.
func (p *Provider) Ensure(ctx context.Context, attrs map[string]string) (*provider.Result, error) {
	name := attrs["name"]
	version := attrs["version"]

	if current, ok := p.probe(ctx, name); ok && (version == "" || current == version) {
		return &provider.Result{
			Outcome: provider.AlreadySatisfied,
			Detail:  fmt.Sprintf("%s %s installed", name, current),
		}, nil
	}

	args := installArgs(name, version)
	if _, err := shell.Run(ctx, args[0], args[1:]...); err != nil {
		return nil, fmt.Errorf("installing %s: %w", name, err)
	}
	return &provider.Result{
		Outcome: provider.Applied,
		Detail:  fmt.Sprintf("installed %s", requirement(name, version)),
	}, nil
}

// probe returns the installed version of the package, if any.
func (p *Provider) probe(ctx context.Context, name string) (string, bool) {
	out, err := shell.Run(ctx, "pip", "show", name)
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "Version:"); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", true
}

// installArgs builds the pip invocation for a requirement.
func installArgs(name, version string) []string {
	return []string{"pip", "install", requirement(name, version)}
}

func requirement(name, version string) string {
	if version == "" {
		return name
	}
	return name + "==" + version
}

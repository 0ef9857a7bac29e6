// Package syspkg provides system package installation via the Debian
// package toolchain: dpkg-query probes installed state, apt-get converges.
package syspkg

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
	r.MustRegisterManifest("providers/syspkg/manifest.hcl", manifestSrc)
	r.RegisterProvider("SysPkgProvider", &Provider{})
}

// Provider ensures a system package is installed, optionally pinned to a
// version.
type Provider struct{}

// Ensure implements provider.Provider.
func (p *Provider) Ensure(ctx context.Context, attrs map[string]string) (*provider.Result, error) {
	name := attrs["name"]
	version := attrs["version"]

	installed, current := p.probe(ctx, name)
	if installed && (version == "" || current == version) {
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
		Detail:  fmt.Sprintf("installed %s", spec(name, version)),
	}, nil
}

// probe reports whether the package is installed and at which version.
func (p *Provider) probe(ctx context.Context, name string) (bool, string) {
	status, err := shell.Run(ctx, "dpkg-query", "-W", "-f=${Status}", name)
	if err != nil || !strings.Contains(status, "install ok installed") {
		return false, ""
	}
	version, err := shell.Run(ctx, "dpkg-query", "-W", "-f=${Version}", name)
	if err != nil {
		return true, ""
	}
	return true, version
}

// installArgs builds the apt-get invocation for a package spec.
func installArgs(name, version string) []string {
	return []string{"apt-get", "install", "-y", spec(name, version)}
}

func spec(name, version string) string {
	if version == "" {
		return name
	}
	return name + "=" + version
}

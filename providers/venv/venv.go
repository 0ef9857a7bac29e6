// Package venv provides Python virtual environments: a directory with
// bin/activate counts as present, virtualenv creates it otherwise.
package venv

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

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
	r.MustRegisterManifest("providers/venv/manifest.hcl", manifestSrc)
	r.RegisterProvider("VirtualenvProvider", &Provider{})
}

// Provider ensures a virtualenv exists at the configured path.
type Provider struct{}

// Ensure implements provider.Provider.
func (p *Provider) Ensure(ctx context.Context, attrs map[string]string) (*provider.Result, error) {
	path := attrs["path"]

	if present(path) {
		return &provider.Result{
			Outcome: provider.AlreadySatisfied,
			Detail:  fmt.Sprintf("virtualenv at %s", path),
		}, nil
	}

	if _, err := shell.Run(ctx, "virtualenv", path); err != nil {
		return nil, fmt.Errorf("creating virtualenv at %s: %w", path, err)
	}
	return &provider.Result{
		Outcome: provider.Applied,
		Detail:  fmt.Sprintf("created virtualenv at %s", path),
	}, nil
}

// present reports whether path already holds a usable virtualenv.
func present(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(path, "bin", "activate"))
	return err == nil
}

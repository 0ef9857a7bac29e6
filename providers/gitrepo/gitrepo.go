// Package gitrepo provides git working copies: clone when the path is
// absent, leave an existing checkout untouched.
package gitrepo

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
	r.MustRegisterManifest("providers/gitrepo/manifest.hcl", manifestSrc)
	r.RegisterProvider("GitProvider", &Provider{})
}

// Provider ensures a git repository is cloned at the configured path.
type Provider struct{}

// Ensure implements provider.Provider.
func (p *Provider) Ensure(ctx context.Context, attrs map[string]string) (*provider.Result, error) {
	path := attrs["path"]
	origin := attrs["origin"]
	branch := attrs["branch"]

	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return &provider.Result{
			Outcome: provider.AlreadySatisfied,
			Detail:  fmt.Sprintf("repository at %s", path),
		}, nil
	}

	args := cloneArgs(origin, path, branch)
	if _, err := shell.Run(ctx, args[0], args[1:]...); err != nil {
		return nil, fmt.Errorf("cloning %s: %w", origin, err)
	}
	return &provider.Result{
		Outcome: provider.Applied,
		Detail:  fmt.Sprintf("cloned %s into %s", origin, path),
	}, nil
}

// cloneArgs builds the git clone invocation.
func cloneArgs(origin, path, branch string) []string {
	args := []string{"git", "clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	return append(args, origin, path)
}

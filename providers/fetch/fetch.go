// Package fetch provides HTTP artifact downloads: a file already present at
// the destination satisfies the resource, otherwise the URL is fetched.
package fetch

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"resty.dev/v3"

	"github.com/vk/spacesd/internal/provider"
	"github.com/vk/spacesd/internal/registry"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the provider and its manifest with the registry.
func (m Module) Register(r *registry.Registry) {
	r.MustRegisterManifest("providers/fetch/manifest.hcl", manifestSrc)
	r.RegisterProvider("FetchProvider", &Provider{})
}

// Provider downloads a URL to a destination path.
type Provider struct{}

// Ensure implements provider.Provider.
func (p *Provider) Ensure(ctx context.Context, attrs map[string]string) (*provider.Result, error) {
	url := attrs["url"]
	dest := attrs["dest"]

	if _, err := os.Stat(dest); err == nil {
		return &provider.Result{
			Outcome: provider.AlreadySatisfied,
			Detail:  fmt.Sprintf("artifact at %s", dest),
		}, nil
	}

	client := resty.New()
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		SetSaveResponse(true).
		SetOutputFileName(dest).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.IsError() {
		os.Remove(dest)
		return nil, fmt.Errorf("fetching %s: %s", url, resp.Status())
	}

	return &provider.Result{
		Outcome: provider.Applied,
		Detail:  fmt.Sprintf("fetched %s into %s", url, dest),
	}, nil
}

package registry

import (
	"fmt"
	"log/slog"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/spacesd/internal/provider"
)

// Module is the interface all provider packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Input is one declared input attribute from a provider manifest.
type Input struct {
	Name        string
	Type        cty.Type
	Required    bool
	Default     string
	HasDefault  bool
	Description string
}

// Manifest is the parsed, format-agnostic form of a provider's manifest.hcl.
type Manifest struct {
	Type        string
	Description string
	// Open providers accept arbitrary attribute keys (e.g. environment
	// variable sets); unknown-key validation is skipped for them.
	Open   bool
	Inputs map[string]*Input
}

// Registry holds the registered providers and manifests for one application
// instance.
type Registry struct {
	providers map[string]provider.Provider
	manifests map[string]*Manifest
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		providers: make(map[string]provider.Provider),
		manifests: make(map[string]*Manifest),
	}
}

// RegisterProvider registers a Go implementation under a provider name.
func (r *Registry) RegisterProvider(name string, p provider.Provider) {
	if _, exists := r.providers[name]; exists {
		panic(fmt.Sprintf("provider '%s' already registered", name))
	}
	slog.Debug("Registering provider.", "name", name)
	r.providers[name] = p
}

// Resolve returns the provider implementation registered under name.
func (r *Registry) Resolve(name string) (provider.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Manifest returns the parsed manifest registered under a provider name.
func (r *Registry) Manifest(name string) (*Manifest, bool) {
	m, ok := r.manifests[name]
	return m, ok
}

// Providers returns the names of all registered provider implementations.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

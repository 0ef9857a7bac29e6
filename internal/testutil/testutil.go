// Package testutil provides fake providers and definition builders shared
// by the engine, graph, and session tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/spacesd/internal/model"
	"github.com/vk/spacesd/internal/provider"
	"github.com/vk/spacesd/internal/registry"
)

// FakeProvider is a configurable provider.Provider that records every call.
type FakeProvider struct {
	mu    sync.Mutex
	calls []map[string]string

	// Result and Err configure the fixed response. Fn, when set, wins.
	Result *provider.Result
	Err    error
	Fn     func(ctx context.Context, attrs map[string]string) (*provider.Result, error)
	// Delay makes Ensure block, honoring ctx cancellation and deadlines.
	Delay time.Duration
}

// Ensure implements provider.Provider.
func (f *FakeProvider) Ensure(ctx context.Context, attrs map[string]string) (*provider.Result, error) {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	f.mu.Lock()
	f.calls = append(f.calls, copied)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Fn != nil {
		return f.Fn(ctx, attrs)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result != nil {
		return f.Result, nil
	}
	return &provider.Result{Outcome: provider.Applied, Detail: "applied"}, nil
}

// Calls returns a copy of the recorded attribute mappings, in call order.
func (f *FakeProvider) Calls() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.calls...)
}

// CallCount returns how many times Ensure ran.
func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// NewRegistry builds a registry holding the given fakes, each registered
// with a generated open manifest so attribute validation passes.
func NewRegistry(t *testing.T, fakes map[string]*FakeProvider) *registry.Registry {
	t.Helper()
	r := registry.New()
	for name, fake := range fakes {
		src := fmt.Sprintf("provider %q {\n  open = true\n}\n", name)
		require.NoError(t, r.RegisterManifest(name+".hcl", []byte(src)))
		r.RegisterProvider(name, fake)
	}
	require.NoError(t, r.Validate(context.Background()))
	return r
}

// MustID parses a resource identifier or fails the test.
func MustID(t *testing.T, s string) model.ResourceID {
	t.Helper()
	id, err := model.ParseResourceID(s)
	require.NoError(t, err)
	return id
}

// Def builds a definition with the given provider, attributes, and explicit
// requires references.
func Def(t *testing.T, id, providerName string, attrs map[string]string, requires ...string) *model.Definition {
	t.Helper()
	def := model.NewDefinition(MustID(t, id))
	def.Provider = providerName
	for k, v := range attrs {
		def.Attrs[k] = v
	}
	for _, req := range requires {
		def.Requires = append(def.Requires, MustID(t, req))
	}
	return def
}

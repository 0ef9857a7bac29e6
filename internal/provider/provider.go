// Package provider defines the capability contract every provider
// implementation must satisfy. A provider knows how to probe live system
// state for one resource kind and bring it into existence idempotently.
package provider

import "context"

// Outcome is a provider's report of what Ensure did.
type Outcome int

const (
	// Applied means the provider changed system state to satisfy the resource.
	Applied Outcome = iota
	// AlreadySatisfied means the probe found the target state in place and
	// nothing was executed.
	AlreadySatisfied
)

// Result carries the outcome of one Ensure call plus a human-readable detail
// line for the session report.
type Result struct {
	Outcome Outcome
	Detail  string
}

// Provider brings one resource into its desired state. Implementations must
// be idempotent: calling Ensure repeatedly with identical attributes must be
// safe, returning AlreadySatisfied once the state holds. Blocking work must
// respect ctx; the engine imposes a deadline per invocation.
type Provider interface {
	Ensure(ctx context.Context, attrs map[string]string) (*Result, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(ctx context.Context, attrs map[string]string) (*Result, error)

// Ensure implements Provider.
func (f Func) Ensure(ctx context.Context, attrs map[string]string) (*Result, error) {
	return f(ctx, attrs)
}

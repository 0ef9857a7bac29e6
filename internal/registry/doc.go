// Package registry provides the central glue for the provider system.
//
// The Registry stores the mapping between the provider names used in space
// files (e.g. "PipProvider") and the compiled Go implementations, together
// with the parsed HCL manifests each provider package embeds. On startup the
// registry is validated so that Go code and manifests stay in sync, and at
// graph-build time it checks resource attributes against the manifest's
// declared inputs, turning misconfiguration into load-time errors instead of
// runtime surprises.
package registry

// Package graph turns a set of resource definitions into a validated,
// directed dependency graph: the transitive closure reachable from a chosen
// root via requires declarations, _use inheritance, and cross-resource
// attribute references. All structural errors (duplicates, dangling
// references, unresolved providers, cycles) are caught here, before any
// provider runs.
package graph

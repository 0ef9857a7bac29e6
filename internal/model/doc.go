// Package model defines the in-memory representation of resource
// definitions: the (kind, name) identifier, the definition entity produced
// by the space file parser, and the attribute reference syntax shared by
// the graph builder and the execution engine.
package model

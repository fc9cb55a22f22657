// Package formula validates and normalizes raw upstream package records
// into the fixed Formula shape the rest of the simulator consumes.
//
// The upstream feed is heterogeneous JSON: optional dependency lists,
// nullable fields, and a deeply nested bottle block. Everything past this
// package works with the normalized Formula only.
package formula

// Package metadata fetches the upstream package feed and caches the raw
// payload locally with a time bound.
//
// The simulator core treats this package as an opaque synchronous data
// source: no retries, no partial payloads. A fetch either returns the
// complete record list (possibly from cache) or an error.
package metadata

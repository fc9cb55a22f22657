package formula

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MissingFieldError indicates an upstream record that lacks a required
// field. Normalization of the offending record is aborted; other records
// are unaffected.
type MissingFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record is missing required field %q", e.Field)
}

// Normalize converts one raw upstream record into a Formula.
//
// Contract:
//   - "name" is required; a missing or empty name yields *MissingFieldError.
//   - The three dependency lists default to empty when the source field is
//     absent, null, or not a list.
//   - Bottle tags are the keys of the stable bottle's files map, defaulting
//     to empty when the bottle block is absent.
//
// No deduplication or sorting happens here; the graph builder sorts later.
func Normalize(rec RawRecord) (Formula, error) {
	name, ok := rec["name"].(string)
	if !ok || name == "" {
		return Formula{}, &MissingFieldError{Field: "name"}
	}

	f := Formula{
		Name:        canonicalName(name),
		RuntimeDeps: stringList(rec["dependencies"]),
		BuildDeps:   stringList(rec["build_dependencies"]),
		TestDeps:    stringList(rec["test_dependencies"]),
		BottleTags:  bottleTags(rec),
	}
	return f, nil
}

// NormalizeAll normalizes every record, returning the normalized formulas
// and the per-record errors for records that could not be normalized.
// The two slices are independent: a record contributes to exactly one.
func NormalizeAll(recs []RawRecord) ([]Formula, []error) {
	formulas := make([]Formula, 0, len(recs))
	var errs []error
	for i, rec := range recs {
		f, err := Normalize(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		formulas = append(formulas, f)
	}
	return formulas, errs
}

// canonicalName NFC-normalizes a formula name so that visually identical
// names from different upstream encoders compare equal.
func canonicalName(s string) string {
	return norm.NFC.String(s)
}

// stringList coerces an untyped JSON value into a list of names.
// Anything that is not a list of strings yields an empty list.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, canonicalName(s))
		}
	}
	return out
}

// bottleTags extracts the platform tags from the nested
// bottle.stable.files map. Every absent level yields an empty set.
func bottleTags(rec RawRecord) []string {
	bottle, ok := rec["bottle"].(map[string]any)
	if !ok {
		return []string{}
	}
	stable, ok := bottle["stable"].(map[string]any)
	if !ok {
		return []string{}
	}
	files, ok := stable["files"].(map[string]any)
	if !ok {
		return []string{}
	}
	tags := make([]string, 0, len(files))
	for tag := range files {
		tags = append(tags, tag)
	}
	return tags
}

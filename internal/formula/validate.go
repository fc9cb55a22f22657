package formula

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Validation error codes (E200-E209).
const (
	// ErrSchemaBroken indicates the embedded schema failed to compile.
	ErrSchemaBroken = "E200"
	// ErrRecordInvalid indicates a record that does not unify with the schema.
	ErrRecordInvalid = "E201"
	// ErrRecordNotEncodable indicates a record that cannot be encoded as CUE.
	ErrRecordNotEncodable = "E202"
)

// ValidationError represents one schema violation in a raw record.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

var (
	schemaOnce  sync.Once
	schemaCtx   *cue.Context
	schemaValue cue.Value
	schemaErr   error
)

// recordSchema compiles the embedded schema once and caches the #Record
// definition. The same context must be reused for encoding records,
// since values from different CUE contexts cannot unify.
func recordSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling record schema: %w", err)
			return
		}
		schemaValue = v.LookupPath(cue.ParsePath("#Record"))
		if err := schemaValue.Err(); err != nil {
			schemaErr = fmt.Errorf("looking up #Record: %w", err)
		}
	})
	return schemaValue, schemaErr
}

// ValidateRecord checks a raw record against the embedded record schema.
// Returns all violations found (does not fail-fast); nil means valid.
//
// Validation is advisory: Normalize remains the hard contract, and callers
// may normalize unvalidated records. The schema exists to surface upstream
// shape drift early with a precise diagnostic instead of a silent default.
func ValidateRecord(rec RawRecord) []ValidationError {
	schema, err := recordSchema()
	if err != nil {
		return []ValidationError{{Message: err.Error(), Code: ErrSchemaBroken}}
	}

	val := schemaCtx.Encode(map[string]any(rec))
	if err := val.Err(); err != nil {
		return []ValidationError{{Message: err.Error(), Code: ErrRecordNotEncodable}}
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		errs := make([]ValidationError, 0, 1)
		for _, e := range cueerrors.Errors(err) {
			field := ""
			if path := e.Path(); len(path) > 0 {
				field = path[len(path)-1]
			}
			errs = append(errs, ValidationError{
				Field:   field,
				Message: e.Error(),
				Code:    ErrRecordInvalid,
			})
		}
		return errs
	}
	return nil
}

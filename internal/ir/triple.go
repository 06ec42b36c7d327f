package ir

import (
	"fmt"
	"strings"
)

// Triple is the portable representation of a callable.
//
// Field order matches the wire form produced by the reference JavaScript
// library, so encoding/json emits params, body, type, hash.
type Triple struct {
	Params []string `json:"params"`
	Body   string   `json:"body"`
	Type   Shape    `json:"type"`
	Hash   string   `json:"hash,omitempty"`
}

// Clone returns a deep copy of t.
func (t Triple) Clone() Triple {
	c := t
	if t.Params != nil {
		c.Params = make([]string, len(t.Params))
		copy(c.Params, t.Params)
	}
	return c
}

// Unhashed returns a deep copy of t with the hash field removed.
// This is the value a hash is computed over.
func (t Triple) Unhashed() Triple {
	c := t.Clone()
	c.Hash = ""
	return c
}

// Hashed reports whether t carries a hash. An empty Hash is the zero value,
// so an explicit empty hash reads as no hash.
func (t Triple) Hashed() bool {
	return t.Hash != ""
}

// fields returns t's encodable fields in wire order.
// Params is never emitted as null.
func (t Triple) fields() []field {
	params := t.Params
	if params == nil {
		params = []string{}
	}
	fs := []field{
		{"params", params},
		{"body", t.Body},
		{"type", string(t.Type)},
	}
	if t.Hash != "" {
		fs = append(fs, field{"hash", t.Hash})
	}
	return fs
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks t against the triple invariants.
// Returns all errors (not fail-fast).
func (t Triple) Validate() []ValidationError {
	var errs []ValidationError

	if !t.Type.Valid() {
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown type %q", t.Type),
		})
	}

	for i, p := range t.Params {
		if p == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("params[%d]", i),
				Message: "parameter name is empty",
			})
		}
	}

	if t.Hash != "" && !isLowerHex(t.Hash) {
		errs = append(errs, ValidationError{
			Field:   "hash",
			Message: "hash must be lowercase hex",
		})
	}

	return errs
}

func isLowerHex(s string) bool {
	return strings.Trim(s, "0123456789abcdef") == ""
}

// Package errs defines the structured error taxonomy shared by every stage of
// the serialize/deserialize pipeline.
//
// Callers branch on Kind, never on message text. Every wrapping error keeps
// its cause reachable through Unwrap so the full chain survives errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable failure category.
type Kind string

const (
	// KindType indicates serialize was handed something that is not callable.
	KindType Kind = "TYPE"

	// KindClassification indicates normalized source matched none of the shapes.
	KindClassification Kind = "CLASSIFICATION"

	// KindEncoding indicates canonical encoding of a triple failed.
	KindEncoding Kind = "ENCODING"

	// KindDigest indicates the digest provider failed.
	KindDigest Kind = "DIGEST"

	// KindSerialization wraps a hashing or extraction failure during serialize.
	KindSerialization Kind = "SERIALIZATION"

	// KindMissingHash indicates verification was requested on an unhashed triple.
	KindMissingHash Kind = "MISSING_HASH"

	// KindChecksum indicates the recomputed hash differs from the stored one.
	KindChecksum Kind = "CHECKSUM"

	// KindConstruction indicates the triple's type tag is not recognized.
	KindConstruction Kind = "CONSTRUCTION"

	// KindDeserialization wraps any other reconstruction failure.
	KindDeserialization Kind = "DESERIALIZATION"
)

// Error is the structured error type.
//
// Details carries diagnostic context (normalized source, computed and stored
// checksums, offending type). Message is for humans.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Detail returns a detail value, or "" when absent.
func (e *Error) Detail(key string) string {
	if e == nil || e.Details == nil {
		return ""
	}
	return e.Details[key]
}

// New creates an Error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an Error recording cause. A nil cause yields a plain New.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// NewType reports a non-callable argument of the given type name.
func NewType(typeName string) *Error {
	return &Error{
		Kind:    KindType,
		Message: "invalid argument type, must be a function",
		Details: map[string]string{"type": typeName},
	}
}

// NewClassification reports source text that matched no supported shape.
func NewClassification(source string) *Error {
	return &Error{
		Kind:    KindClassification,
		Message: "unsupported function format",
		Details: map[string]string{"source": source},
	}
}

// NewChecksum reports a hash mismatch, carrying both values.
func NewChecksum(computed, stored string) *Error {
	return &Error{
		Kind:    KindChecksum,
		Message: "checksum failed",
		Details: map[string]string{
			"computed": computed,
			"stored":   stored,
		},
	}
}

// NewConstruction reports an unrecognized type tag.
func NewConstruction(tag string) *Error {
	return &Error{
		Kind:    KindConstruction,
		Message: fmt.Sprintf("unexpected type %q", tag),
		Details: map[string]string{"type": tag},
	}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// IsKind reports whether the outermost *Error in err's chain has kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HasKind reports whether any *Error anywhere in err's chain has kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Passthrough reports whether err must propagate verbatim rather than be
// wrapped by a generic reconstruction error.
func Passthrough(err error) bool {
	switch KindOf(err) {
	case KindChecksum, KindConstruction, KindMissingHash:
		return true
	}
	return false
}

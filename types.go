package fnser

import (
	"github.com/roach88/fnser/internal/digest"
	"github.com/roach88/fnser/internal/errs"
	"github.com/roach88/fnser/internal/ir"
	"github.com/roach88/fnser/internal/jsrt"
)

// Data model.
type (
	Triple = ir.Triple
	Record = ir.Record
	Shape  = ir.Shape
	Func   = jsrt.Func
)

const (
	ShapeFunction           = ir.ShapeFunction
	ShapeAsyncFunction      = ir.ShapeAsyncFunction
	ShapeGenerator          = ir.ShapeGenerator
	ShapeAsyncGenerator     = ir.ShapeAsyncGenerator
	ShapeArrowFunction      = ir.ShapeArrowFunction
	ShapeAsyncArrowFunction = ir.ShapeAsyncArrowFunction
)

// DecodeRecord parses a JSON object produced by another implementation.
func DecodeRecord(data []byte) (Record, error) {
	return ir.DecodeRecord(data)
}

// RecordOf converts t to its record form.
func RecordOf(t Triple) Record {
	return ir.RecordOf(t)
}

// TripleFromRecord converts rec to a triple, failing as Deserialize would
// on an unknown type or malformed fields.
func TripleFromRecord(rec Record) (Triple, error) {
	return ir.TripleFromRecord(rec)
}

// Compile evaluates a function expression in a fresh runtime, yielding a
// value Serialize accepts.
func Compile(src string) (*Func, error) {
	return jsrt.Compile(src)
}

// Hashing building blocks.
type (
	Encoder  = ir.Encoder
	Provider = digest.Provider
	// DigestFunc adapts a function to Provider.
	DigestFunc = digest.Func
)

var (
	// JSONOrder is the default encoder.
	JSONOrder = ir.JSONOrder
	// RFC8785 encodes with sorted keys and NFC strings.
	RFC8785 = ir.RFC8785
)

// Errors.
type (
	Error = errs.Error
	Kind  = errs.Kind
)

const (
	KindType            = errs.KindType
	KindClassification  = errs.KindClassification
	KindEncoding        = errs.KindEncoding
	KindDigest          = errs.KindDigest
	KindSerialization   = errs.KindSerialization
	KindMissingHash     = errs.KindMissingHash
	KindChecksum        = errs.KindChecksum
	KindConstruction    = errs.KindConstruction
	KindDeserialization = errs.KindDeserialization
)

// IsKind reports whether the outermost structured error in err's chain has
// kind.
func IsKind(err error, kind Kind) bool { return errs.IsKind(err, kind) }

// HasKind reports whether any structured error in err's chain has kind.
func HasKind(err error, kind Kind) bool { return errs.HasKind(err, kind) }

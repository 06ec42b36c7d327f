package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/fnser/internal/errs"
)

// Record is a triple as handed over by an external producer: a decoded JSON
// object whose fields have not been checked yet.
type Record map[string]any

// DecodeRecord parses a JSON object into a Record.
// Numbers are kept as json.Number so integers survive unchanged.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("decode record: not a JSON object")
	}
	return rec, nil
}

// RecordOf converts a Triple to its Record form.
func RecordOf(t Triple) Record {
	params := make([]any, len(t.Params))
	for i, p := range t.Params {
		params[i] = p
	}
	rec := Record{
		"params": params,
		"body":   t.Body,
		"type":   string(t.Type),
	}
	if t.Hash != "" {
		rec["hash"] = t.Hash
	}
	return rec
}

// WithoutHash returns a shallow copy of r without the hash key.
func (r Record) WithoutHash() Record {
	c := make(Record, len(r))
	for k, v := range r {
		if k == "hash" {
			continue
		}
		c[k] = v
	}
	return c
}

// StoredHash returns the record's hash and whether the key is present.
// A non-string hash is rendered with %v so it can never match a digest.
func (r Record) StoredHash() (string, bool) {
	v, ok := r["hash"]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

// TripleFromRecord converts r into a Triple.
//
// A missing or unrecognized type fails with a construction error. Malformed
// params or body fail with a deserialization error.
func TripleFromRecord(r Record) (Triple, error) {
	tag, ok := r["type"].(string)
	if !ok {
		return Triple{}, errs.NewConstruction(fmt.Sprintf("%v", r["type"]))
	}
	shape := Shape(tag)
	if !shape.Valid() {
		return Triple{}, errs.NewConstruction(tag)
	}

	params, err := recordParams(r["params"])
	if err != nil {
		return Triple{}, errs.Wrap(errs.KindDeserialization, "failure deserializing", err)
	}

	body, ok := r["body"].(string)
	if !ok {
		return Triple{}, errs.Wrap(errs.KindDeserialization, "failure deserializing",
			fmt.Errorf("body must be a string, got %T", r["body"]))
	}

	hash, _ := r.StoredHash()
	return Triple{Params: params, Body: body, Type: shape, Hash: hash}, nil
}

func recordParams(v any) ([]string, error) {
	switch ps := v.(type) {
	case []string:
		out := make([]string, len(ps))
		copy(out, ps)
		return out, nil
	case []any:
		out := make([]string, len(ps))
		for i, p := range ps {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("params[%d] must be a string, got %T", i, p)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("params must be an array, got %T", v)
	}
}

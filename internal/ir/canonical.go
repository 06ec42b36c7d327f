package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Encoder deterministically encodes a value for hashing.
// Encoding must fail, never silently drop data, on values it cannot represent.
type Encoder interface {
	Name() string
	Encode(v any) ([]byte, error)
}

var (
	// JSONOrder produces compact JSON byte-compatible with JSON.stringify on
	// the reference library's triples: params, body, type, then hash.
	// Hashes computed with it interoperate with that library.
	JSONOrder Encoder = orderedEncoder{}

	// RFC8785 produces RFC 8785 canonical JSON: keys sorted by UTF-16 code
	// units and strings NFC normalized.
	RFC8785 Encoder = canonicalEncoder{}
)

// EncoderByName returns the encoder registered under name.
func EncoderByName(name string) (Encoder, error) {
	switch name {
	case "", "json":
		return JSONOrder, nil
	case "jcs", "rfc8785":
		return RFC8785, nil
	}
	return nil, fmt.Errorf("unknown encoder %q: must be one of json, jcs", name)
}

type orderedEncoder struct{}

func (orderedEncoder) Name() string { return "json" }

func (orderedEncoder) Encode(v any) ([]byte, error) {
	e := &encodeState{}
	if err := e.value(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type canonicalEncoder struct{}

func (canonicalEncoder) Name() string { return "jcs" }

func (canonicalEncoder) Encode(v any) ([]byte, error) {
	e := &encodeState{canonical: true}
	if err := e.value(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// MarshalCanonical produces RFC 8785 canonical JSON.
// This is the serialization used for content addressing.
func MarshalCanonical(v any) ([]byte, error) {
	return RFC8785.Encode(v)
}

type field struct {
	key   string
	value any
}

// wellKnown fixes the position of triple keys in JSON order.
var wellKnown = []string{"params", "body", "type", "hash"}

type encodeState struct {
	buf       bytes.Buffer
	canonical bool
	// path holds the identities of maps and slices being encoded, to detect
	// cycles.
	path map[uintptr]struct{}
}

func (e *encodeState) value(v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case Triple:
		return e.object(val.fields())
	case *Triple:
		if val == nil {
			return fmt.Errorf("null is forbidden in canonical JSON")
		}
		return e.object(val.fields())
	case Record:
		return e.mapValue(map[string]any(val))
	case map[string]any:
		return e.mapValue(val)
	case Shape:
		return e.str(string(val))
	case string:
		return e.str(val)
	case bool:
		e.buf.WriteString(strconv.FormatBool(val))
		return nil
	case int:
		e.buf.WriteString(strconv.Itoa(val))
		return nil
	case int64:
		e.buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return fmt.Errorf("non-integral number %s is forbidden in canonical JSON", val)
		}
		e.buf.WriteString(strconv.FormatInt(n, 10))
		return nil
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case []string:
		e.buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.str(s); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		e.buf.WriteByte(']')
		return nil
	case []any:
		return e.array(val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func (e *encodeState) array(arr []any) error {
	if len(arr) > 0 {
		id := reflect.ValueOf(arr).Pointer()
		if err := e.enter(id); err != nil {
			return err
		}
		defer e.leave(id)
	}

	e.buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.value(elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encodeState) mapValue(m map[string]any) error {
	if m == nil {
		return fmt.Errorf("null is forbidden in canonical JSON")
	}
	id := reflect.ValueOf(m).Pointer()
	if err := e.enter(id); err != nil {
		return err
	}
	defer e.leave(id)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	fs := make([]field, 0, len(m))
	if !e.canonical {
		for _, k := range wellKnown {
			if v, ok := m[k]; ok {
				fs = append(fs, field{k, v})
			}
		}
	}
	for _, k := range keys {
		if !e.canonical && slices.Contains(wellKnown, k) {
			continue
		}
		fs = append(fs, field{k, m[k]})
	}
	return e.object(fs)
}

func (e *encodeState) object(fs []field) error {
	if e.canonical {
		fs = slices.Clone(fs)
		slices.SortFunc(fs, func(a, b field) int { return compareKeysRFC8785(a.key, b.key) })
	}

	e.buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.str(f.key); err != nil {
			return fmt.Errorf("key %q: %w", f.key, err)
		}
		e.buf.WriteByte(':')
		if err := e.value(f.value); err != nil {
			return fmt.Errorf("value for key %q: %w", f.key, err)
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encodeState) enter(id uintptr) error {
	if e.path == nil {
		e.path = make(map[uintptr]struct{})
	}
	if _, ok := e.path[id]; ok {
		return fmt.Errorf("cyclic value is forbidden in canonical JSON")
	}
	e.path[id] = struct{}{}
	return nil
}

func (e *encodeState) leave(id uintptr) {
	delete(e.path, id)
}

// str writes s as a JSON string.
// Only control characters, backslash, and quote are escaped.
func (e *encodeState) str(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("invalid UTF-8 in string %q", s)
	}
	if e.canonical {
		s = norm.NFC.String(s)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	e.buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. Escape pairs are consumed
// whole, so an escaped backslash followed by "u2028" is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

// compareKeysRFC8785 orders strings by UTF-16 code units as RFC 8785
// requires. Go's native string order is by UTF-8 bytes, which differs for
// characters above U+FFFF.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fnser/internal/errs"
)

func TestShapeStrategies(t *testing.T) {
	tests := []struct {
		shape    Shape
		strategy Strategy
		async    bool
		arrow    bool
	}{
		{ShapeFunction, StrategyPlain, false, false},
		{ShapeArrowFunction, StrategyPlain, false, true},
		{ShapeAsyncFunction, StrategyAsync, true, false},
		{ShapeAsyncArrowFunction, StrategyAsync, true, true},
		{ShapeGenerator, StrategyGenerator, false, false},
		{ShapeAsyncGenerator, StrategyAsyncGenerator, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.shape), func(t *testing.T) {
			st, ok := tt.shape.Strategy()
			require.True(t, ok)
			assert.Equal(t, tt.strategy, st)
			assert.Equal(t, tt.async, tt.shape.Async())
			assert.Equal(t, tt.arrow, tt.shape.Arrow())
			assert.True(t, tt.shape.Valid())
		})
	}
}

func TestShapesDeclarationOrder(t *testing.T) {
	shapes := Shapes()
	require.Len(t, shapes, 6)
	assert.Equal(t, ShapeFunction, shapes[0])
	assert.Equal(t, ShapeAsyncArrowFunction, shapes[5])
}

func TestUnknownShape(t *testing.T) {
	_, ok := Shape("Bogus").Strategy()
	assert.False(t, ok)
	assert.False(t, Shape("").Valid())

	_, ok = ParseShape("function")
	assert.False(t, ok, "tags are case-sensitive")

	sh, ok := ParseShape("AsyncGenerator")
	assert.True(t, ok)
	assert.Equal(t, ShapeAsyncGenerator, sh)
}

func TestWithAsync(t *testing.T) {
	assert.Equal(t, ShapeAsyncFunction, ShapeFunction.WithAsync())
	assert.Equal(t, ShapeAsyncGenerator, ShapeGenerator.WithAsync())
	assert.Equal(t, ShapeAsyncArrowFunction, ShapeArrowFunction.WithAsync())
	assert.Equal(t, ShapeAsyncFunction, ShapeAsyncFunction.WithAsync())
}

func TestStrategyPrefix(t *testing.T) {
	assert.Equal(t, "function", StrategyPlain.Prefix())
	assert.Equal(t, "async function", StrategyAsync.Prefix())
	assert.Equal(t, "function*", StrategyGenerator.Prefix())
	assert.Equal(t, "async function*", StrategyAsyncGenerator.Prefix())
}

func TestTripleJSONFieldOrder(t *testing.T) {
	triple := Triple{Params: []string{"w"}, Body: "return w.trim();", Type: ShapeArrowFunction, Hash: "ff"}

	data, err := json.Marshal(triple)
	require.NoError(t, err)
	assert.Equal(t, `{"params":["w"],"body":"return w.trim();","type":"ArrowFunction","hash":"ff"}`, string(data))

	triple.Hash = ""
	data, err = json.Marshal(triple)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
}

func TestTripleUnhashedDoesNotAlias(t *testing.T) {
	original := Triple{Params: []string{"a"}, Body: "return a;", Type: ShapeFunction, Hash: "abc"}

	copied := original.Unhashed()
	copied.Params[0] = "mutated"

	assert.Equal(t, "a", original.Params[0])
	assert.Equal(t, "abc", original.Hash)
	assert.Empty(t, copied.Hash)
	assert.True(t, original.Hashed())
	assert.False(t, copied.Hashed())
}

func TestTripleValidate(t *testing.T) {
	valid := Triple{Params: []string{"a"}, Body: "", Type: ShapeFunction, Hash: "0a1b"}
	assert.Empty(t, valid.Validate())

	invalid := Triple{Params: []string{"a", ""}, Type: "Bogus", Hash: "XYZ"}
	errList := invalid.Validate()
	require.Len(t, errList, 3)
	assert.Equal(t, "type", errList[0].Field)
	assert.Equal(t, "params[1]", errList[1].Field)
	assert.Equal(t, "hash", errList[2].Field)
	assert.Contains(t, errList[0].Error(), "Bogus")
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"params":["a"],"body":"return a;","type":"Function","hash":"ab","n":12}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12"), rec["n"])

	hash, ok := rec.StoredHash()
	assert.True(t, ok)
	assert.Equal(t, "ab", hash)

	without := rec.WithoutHash()
	_, ok = without.StoredHash()
	assert.False(t, ok)
	_, ok = rec.StoredHash()
	assert.True(t, ok, "WithoutHash must not mutate the receiver")

	_, err = DecodeRecord([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = DecodeRecord([]byte(`null`))
	assert.Error(t, err)
}

func TestTripleFromRecord(t *testing.T) {
	triple, err := TripleFromRecord(Record{
		"params": []any{"x", "y"},
		"body":   "return x*y;",
		"type":   "ArrowFunction",
	})
	require.NoError(t, err)
	assert.Equal(t, Triple{Params: []string{"x", "y"}, Body: "return x*y;", Type: ShapeArrowFunction}, triple)
}

func TestTripleFromRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		kind errs.Kind
	}{
		{"unknown type", Record{"type": "Bogus", "params": []any{}, "body": ""}, errs.KindConstruction},
		{"missing type", Record{"params": []any{}, "body": ""}, errs.KindConstruction},
		{"numeric type", Record{"type": json.Number("3"), "params": []any{}, "body": ""}, errs.KindConstruction},
		{"params not array", Record{"type": "Function", "params": "a,b", "body": ""}, errs.KindDeserialization},
		{"param not string", Record{"type": "Function", "params": []any{json.Number("1")}, "body": ""}, errs.KindDeserialization},
		{"body not string", Record{"type": "Function", "params": []any{}, "body": true}, errs.KindDeserialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TripleFromRecord(tt.rec)
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestRecordOfRoundTrip(t *testing.T) {
	original := Triple{Params: []string{"a", "b"}, Body: "yield a;", Type: ShapeGenerator, Hash: "cafe"}

	back, err := TripleFromRecord(RecordOf(original))
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/store"
)

func newAssertionContext(t *testing.T, src string, hash bool) *AssertionContext {
	t.Helper()
	ctx := context.Background()
	codec := fnser.New()

	fn, err := fnser.Compile(src)
	require.NoError(t, err)
	triple, err := codec.Serialize(ctx, fn, fnser.SerializeOptions{Hash: hash})
	require.NoError(t, err)
	rebuilt, err := codec.Deserialize(ctx, triple, fnser.DeserializeOptions{})
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &AssertionContext{
		Ctx:    ctx,
		Codec:  codec,
		Store:  st,
		Name:   "subject",
		Triple: triple,
		Func:   rebuilt,
	}
}

func TestAssertRoundTrip(t *testing.T) {
	actx := newAssertionContext(t, "(a, b) => a - b", false)
	var events []TraceEvent
	actx.Record = func(ev TraceEvent) { events = append(events, ev) }

	assert.Empty(t, EvaluateAssertions([]Assertion{{Type: AssertRoundTrip}}, actx))
	require.Len(t, events, 1)
	assert.Equal(t, "Function", events[0].Shape)
}

func TestAssertRoundTrip_NoFunc(t *testing.T) {
	actx := newAssertionContext(t, "x => x", false)
	actx.Func = nil

	failures := EvaluateAssertions([]Assertion{{Type: AssertRoundTrip}}, actx)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "Assertion failed: round_trip")
}

func TestAssertRoundTrip_BodyDrift(t *testing.T) {
	actx := newAssertionContext(t, "x => x", false)
	actx.Triple.Body = "return x;"

	failures := EvaluateAssertions([]Assertion{{Type: AssertRoundTrip}}, actx)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "identical params and body")
}

func TestAssertTamperDetected(t *testing.T) {
	actx := newAssertionContext(t, "(a, b) => a - b", true)
	assert.Equal(t, "027de2e1e95af441f3fa2f25252f05488ab7bb6fe8657f81f9928f0f39768c15", actx.Triple.Hash)

	assert.Empty(t, EvaluateAssertions([]Assertion{{Type: AssertTamperDetected}}, actx))
}

func TestAssertTamperDetected_Unhashed(t *testing.T) {
	actx := newAssertionContext(t, "x => x", false)

	failures := EvaluateAssertions([]Assertion{{Type: AssertTamperDetected}}, actx)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "a hashed triple")
}

func TestAssertStored(t *testing.T) {
	actx := newAssertionContext(t, "x => x", true)

	assert.Empty(t, EvaluateAssertions([]Assertion{{Type: AssertStored}}, actx))

	entry, err := actx.Store.Resolve(actx.Ctx, "subject")
	require.NoError(t, err)
	assert.Equal(t, "f0b032b61526a396dd321036dbbeac15f096b35c174b1a5be64e23dfe2f3f49d", entry.Triple.Hash)
}

func TestAssertStored_InvalidTriple(t *testing.T) {
	actx := newAssertionContext(t, "x => x", false)
	actx.Triple.Type = "Bogus"

	failures := EvaluateAssertions([]Assertion{{Type: AssertStored}}, actx)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "put to succeed")
}

func TestEvaluateAssertions_Unknown(t *testing.T) {
	actx := newAssertionContext(t, "x => x", false)

	failures := EvaluateAssertions([]Assertion{{Type: "final_state"}}, actx)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "final_state")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: "stored", Expected: "a", Actual: "b"}
	assert.Equal(t, "Assertion failed: stored\n  Expected: a\n  Actual: b", err.Error())
}

package harness

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/store"
)

// AssertionContext carries what assertions may inspect or exercise.
type AssertionContext struct {
	Ctx    context.Context
	Codec  *fnser.Codec
	Store  *store.Store
	Name   string
	Triple fnser.Triple

	// Func is the rebuilt callable; nil for source_only scenarios.
	Func *fnser.Func

	// Record appends an event to the run's trace. May be nil.
	Record func(TraceEvent)
}

func (a *AssertionContext) record(ev TraceEvent) {
	if a.Record != nil {
		a.Record(ev)
	}
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRoundTrip:
		return assertRoundTrip(actx)
	case AssertTamperDetected:
		return assertTamperDetected(actx)
	case AssertStored:
		return assertStored(actx)
	default:
		return &AssertionError{Type: a.Type, Expected: "a known assertion type", Actual: a.Type}
	}
}

// assertRoundTrip re-serializes the rebuilt callable. The shape may change
// (arrows rebuild as plain functions) but params and body must not.
func assertRoundTrip(actx *AssertionContext) error {
	if actx.Func == nil {
		return &AssertionError{Type: AssertRoundTrip, Expected: "a rebuilt callable", Actual: "none"}
	}

	again, err := actx.Codec.Serialize(actx.Ctx, actx.Func, fnser.SerializeOptions{})
	if err != nil {
		return &AssertionError{Type: AssertRoundTrip, Expected: "re-serialization to succeed", Actual: err.Error()}
	}

	want := [2]any{actx.Triple.Params, actx.Triple.Body}
	got := [2]any{again.Params, again.Body}
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: "identical params and body",
			Actual:   fmt.Sprintf("(-want +got):\n%s", diff),
		}
	}

	actx.record(TraceEvent{Type: EventSerialize, Shape: string(again.Type)})
	return nil
}

// assertTamperDetected alters the body and expects verification to fail
// with CHECKSUM.
func assertTamperDetected(actx *AssertionContext) error {
	if !actx.Triple.Hashed() {
		return &AssertionError{Type: AssertTamperDetected, Expected: "a hashed triple", Actual: "no hash"}
	}

	tampered := actx.Triple.Clone()
	tampered.Body += "\n;"

	_, err := actx.Codec.Deserialize(actx.Ctx, tampered, fnser.DeserializeOptions{Hash: true})
	ev := TraceEvent{Type: EventDeserialize, Shape: string(tampered.Type), Hash: tampered.Hash}
	if err != nil {
		ev.Error = err.Error()
	}
	actx.record(ev)

	if !fnser.IsKind(err, fnser.KindChecksum) {
		return &AssertionError{
			Type:     AssertTamperDetected,
			Expected: "CHECKSUM error",
			Actual:   fmt.Sprintf("%v", err),
		}
	}
	return nil
}

// assertStored puts the triple in the store under the scenario name and
// reads it back by name.
func assertStored(actx *AssertionContext) error {
	entry, err := actx.Store.Put(actx.Ctx, actx.Triple)
	if err != nil {
		return &AssertionError{Type: AssertStored, Expected: "put to succeed", Actual: err.Error()}
	}
	if err := actx.Store.Tag(actx.Ctx, actx.Name, entry.CID); err != nil {
		return &AssertionError{Type: AssertStored, Expected: "tag to succeed", Actual: err.Error()}
	}

	got, err := actx.Store.Resolve(actx.Ctx, actx.Name)
	if err != nil {
		return &AssertionError{Type: AssertStored, Expected: "resolve to succeed", Actual: err.Error()}
	}
	actx.record(TraceEvent{Type: EventStore, Shape: string(got.Triple.Type), Hash: got.Triple.Hash})

	if diff := cmp.Diff(actx.Triple, got.Triple); diff != "" {
		return &AssertionError{
			Type:     AssertStored,
			Expected: "stored triple equal to serialized triple",
			Actual:   fmt.Sprintf("(-want +got):\n%s", diff),
		}
	}
	if !got.CID.Equals(entry.CID) {
		return &AssertionError{Type: AssertStored, Expected: entry.CID.String(), Actual: got.CID.String()}
	}
	return nil
}

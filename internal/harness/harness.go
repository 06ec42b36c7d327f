package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/store"
	"github.com/roach88/fnser/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and an isolated store.
type Harness struct {
	codec  *fnser.Codec
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	codec  *fnser.Codec
	logger *slog.Logger
}

// WithCodec runs scenarios through c instead of a default codec.
func WithCodec(c *fnser.Codec) Option {
	return func(rc *runConfig) { rc.codec = c }
}

// WithLogger sets the harness logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(rc *runConfig) { rc.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Serialize the source (compiled, or as text with source_only)
//  2. Compare the triple with expect
//  3. Rebuild the callable, verifying the hash when one is attached
//  4. Make the scenario's calls
//  5. Evaluate assertions
//
// The returned error reports harness failures; scenario failures are
// recorded in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	rc := runConfig{}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.logger == nil {
		rc.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if rc.codec == nil {
		rc.codec = fnser.New(fnser.WithLogger(rc.logger))
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		codec:  rc.codec,
		store:  st,
		clock:  testutil.NewDeterministicClock(0),
		logger: rc.logger.With("scenario", scenario.Name),
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	triple, err := h.serialize(ctx, scenario)
	if err != nil {
		result.addEvent(TraceEvent{Type: EventSerialize, Seq: h.clock.Next(), Error: err.Error()})
		result.AddError(fmt.Sprintf("serialize: %v", err))
		return result, nil
	}
	result.Triple = &triple
	result.addEvent(TraceEvent{
		Type:  EventSerialize,
		Seq:   h.clock.Next(),
		Shape: string(triple.Type),
		Hash:  triple.Hash,
	})

	if diff := cmp.Diff(scenario.Expect.Triple(), triple); diff != "" {
		result.AddError(fmt.Sprintf("triple mismatch (-want +got):\n%s", diff))
	}

	var fn *fnser.Func
	if !scenario.Options.SourceOnly {
		fn, err = h.codec.Deserialize(ctx, triple, fnser.DeserializeOptions{Hash: triple.Hashed()})
		ev := TraceEvent{Type: EventDeserialize, Seq: h.clock.Next(), Shape: string(triple.Type)}
		if err != nil {
			ev.Error = err.Error()
			result.addEvent(ev)
			result.AddError(fmt.Sprintf("deserialize: %v", err))
			return result, nil
		}
		result.addEvent(ev)

		if want := scenario.Expect.Source; want != "" && fn.Source() != want {
			result.AddError(fmt.Sprintf("source mismatch:\n  want: %q\n  got:  %q", want, fn.Source()))
		}

		for i, c := range scenario.Calls {
			h.call(ctx, fn, i, c, result)
		}
	}

	actx := &AssertionContext{
		Ctx:    ctx,
		Codec:  h.codec,
		Store:  h.store,
		Name:   scenario.Name,
		Triple: triple,
		Func:   fn,
		Record: func(ev TraceEvent) {
			ev.Seq = h.clock.Next()
			result.addEvent(ev)
		},
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"pass", result.Pass,
		"events", len(result.Trace),
		"seq", h.clock.Current())
	return result, nil
}

func (h *Harness) serialize(ctx context.Context, scenario *Scenario) (fnser.Triple, error) {
	opts := scenario.Options.SerializeOptions()
	if scenario.Options.SourceOnly {
		return h.codec.SerializeSource(ctx, scenario.Source, opts)
	}

	fn, err := fnser.Compile(scenario.Source)
	if err != nil {
		return fnser.Triple{}, fmt.Errorf("compile: %w", err)
	}
	return h.codec.Serialize(ctx, fn, opts)
}

func (h *Harness) call(ctx context.Context, fn *fnser.Func, i int, c Call, result *Result) {
	ev := TraceEvent{Type: EventCall, Seq: h.clock.Next(), Args: c.Args}

	var (
		got any
		err error
	)
	if c.Yields != nil {
		var values []any
		values, err = fn.Collect(ctx, c.Args...)
		got = values
	} else {
		got, err = fn.Invoke(ctx, c.Args...)
	}

	switch {
	case err != nil:
		ev.Error = err.Error()
		if c.Throws == "" {
			result.AddError(fmt.Sprintf("calls[%d]: unexpected error: %v", i, err))
		} else if !strings.Contains(err.Error(), c.Throws) {
			result.AddError(fmt.Sprintf("calls[%d]: error %q does not contain %q", i, err.Error(), c.Throws))
		}
	case c.Throws != "":
		result.AddError(fmt.Sprintf("calls[%d]: expected error containing %q, got %v", i, c.Throws, got))
	case c.Yields != nil:
		ev.Result = got
		if diff := cmp.Diff(normalizeValue(c.Yields), normalizeValue(got)); diff != "" {
			result.AddError(fmt.Sprintf("calls[%d]: yields mismatch (-want +got):\n%s", i, diff))
		}
	case c.Result != nil:
		ev.Result = got
		if diff := cmp.Diff(normalizeValue(c.Result), normalizeValue(got)); diff != "" {
			result.AddError(fmt.Sprintf("calls[%d]: result mismatch (-want +got):\n%s", i, diff))
		}
	default:
		ev.Result = got
	}

	result.addEvent(ev)
}

// normalizeValue maps numbers to float64 and containers to their generic
// forms, so YAML-decoded expectations compare with exported runtime values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

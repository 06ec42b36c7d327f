package harness

import "github.com/roach88/fnser"

// Trace event types.
const (
	EventSerialize   = "serialize"
	EventDeserialize = "deserialize"
	EventCall        = "call"
	EventStore       = "store"
)

// TraceEvent records one step of a run.
type TraceEvent struct {
	Type   string `json:"type"`
	Seq    int64  `json:"seq"`
	Shape  string `json:"shape,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Args   []any  `json:"args,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Triple is the serialized form, when serialization succeeded.
	Triple *fnser.Triple `json:"triple,omitempty"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

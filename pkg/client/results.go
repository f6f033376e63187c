package client

import (
	"fmt"
	"iter"
	"net/http"
	"net/url"
)

// OutcomeKind tells which fields of an Outcome are set.
type OutcomeKind int

const (
	// OutcomePending marks a slot that has not been written.
	OutcomePending OutcomeKind = iota

	// OutcomeResolved carries a transform result in Value.
	OutcomeResolved

	// OutcomeRaw carries the accepted response, body still readable.
	OutcomeRaw

	// OutcomeFatal carries the terminal error in Err.
	OutcomeFatal
)

// String returns the kind's name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResolved:
		return "resolved"
	case OutcomeRaw:
		return "raw"
	case OutcomeFatal:
		return "fatal"
	default:
		return "pending"
	}
}

// Outcome is the terminal result of one request.
type Outcome struct {
	Name string
	Kind OutcomeKind
	URL  *url.URL

	// StatusCode of the accepted response, or of the response that made
	// the request fatal. Zero when no response was received.
	StatusCode int

	// Value is the transform result for OutcomeResolved.
	Value any

	// Response is set for OutcomeRaw. The caller must close its body.
	Response *http.Response

	// Body holds the buffered body when the pipeline reads bodies.
	Body []byte

	// Err is set for OutcomeFatal.
	Err error

	// Attempts counts round trips, including the final one.
	Attempts int
}

func (o Outcome) fatal(err error) Outcome {
	o.Kind = OutcomeFatal
	o.Err = err
	o.Value = nil
	o.Response = nil
	return o
}

// Close closes the body of a raw outcome. It is safe on any outcome.
func (o Outcome) Close() error {
	if o.Response != nil && o.Response.Body != nil {
		return o.Response.Body.Close()
	}
	return nil
}

// Results holds one outcome per request, in request order.
type Results struct {
	batchID  string
	names    []string
	index    map[string]int
	outcomes []Outcome
}

func newResults(batchID string, names []string) *Results {
	r := &Results{
		batchID:  batchID,
		names:    names,
		index:    make(map[string]int, len(names)),
		outcomes: make([]Outcome, len(names)),
	}
	for i, n := range names {
		r.index[n] = i
	}
	return r
}

// set writes slot i. Each slot is written exactly once.
func (r *Results) set(i int, o Outcome) {
	if r.outcomes[i].Kind != OutcomePending {
		panic(fmt.Sprintf("client: outcome %q written twice", r.names[i]))
	}
	r.outcomes[i] = o
}

// BatchID identifies the batch in logs and store keys.
func (r *Results) BatchID() string {
	return r.batchID
}

// Len returns the number of outcomes.
func (r *Results) Len() int {
	return len(r.outcomes)
}

// Names returns request names in request order.
func (r *Results) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the outcome for name.
func (r *Results) Get(name string) (Outcome, bool) {
	i, ok := r.index[name]
	if !ok {
		return Outcome{}, false
	}
	return r.outcomes[i], true
}

// At returns the i-th outcome.
func (r *Results) At(i int) Outcome {
	return r.outcomes[i]
}

// All iterates outcomes in request order.
func (r *Results) All() iter.Seq2[string, Outcome] {
	return func(yield func(string, Outcome) bool) {
		for i, o := range r.outcomes {
			if !yield(r.names[i], o) {
				return
			}
		}
	}
}

// Values returns transform results in request order.
func (r *Results) Values() []any {
	out := make([]any, len(r.outcomes))
	for i, o := range r.outcomes {
		out[i] = o.Value
	}
	return out
}

// Close closes every raw response body.
func (r *Results) Close() error {
	var first error
	for _, o := range r.outcomes {
		if err := o.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

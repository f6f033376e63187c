package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/Sternrassler/batchhttp/pkg/pool"
	"github.com/Sternrassler/batchhttp/pkg/requestset"
	"github.com/Sternrassler/batchhttp/pkg/store"
)

// ErrDuplicateName is returned by MapSink when a name is written twice.
var ErrDuplicateName = errors.New("name already written")

// Exchange is what a transform sees for one accepted response.
type Exchange struct {
	// Response is the accepted response. Its body is open until the
	// transform returns.
	Response *http.Response

	// Pool is the pool the request ran on. Transforms may issue follow-up
	// requests through it with Client.RequestWithPool.
	Pool *pool.Pool

	// Request is the resolved descriptor.
	Request requestset.Descriptor

	// Client is the client running the batch.
	Client *Client

	// Attempts is the number of round trips it took.
	Attempts int
}

// TransformFunc maps an exchange to the value stored in the outcome.
type TransformFunc func(ctx context.Context, ex *Exchange) (any, error)

// TransformIntoFunc writes derived values into sink instead of returning one.
type TransformIntoFunc func(ctx context.Context, ex *Exchange, sink Sink) error

// Sink receives values written by a TransformIntoFunc.
type Sink interface {
	Put(ctx context.Context, name string, value any) error
}

var _ Sink = (*MapSink)(nil)
var _ Sink = (*store.Manager)(nil)

// Pipeline describes what happens to an accepted response. The zero value
// hands the raw response to the caller.
type Pipeline struct {
	// Transform computes a value per response. It wins over TransformInto.
	Transform TransformFunc

	// TransformInto writes into Sink. A nil Sink gets an in-memory MapSink.
	TransformInto TransformIntoFunc
	Sink          Sink

	// ReadBody buffers the full body into Outcome.Body before any transform
	// runs; the response body is restored for re-reading.
	ReadBody bool
}

// Returning is a pipeline that stores fn's result in each outcome.
func Returning(fn TransformFunc) Pipeline {
	return Pipeline{Transform: fn}
}

// Storing is a pipeline that lets fn write into sink.
func Storing(fn TransformIntoFunc, sink Sink) Pipeline {
	return Pipeline{TransformInto: fn, Sink: sink}
}

// ReadingBody is a pipeline that buffers bodies and returns raw responses.
func ReadingBody() Pipeline {
	return Pipeline{ReadBody: true}
}

func (p Pipeline) normalize() Pipeline {
	if p.Transform != nil {
		p.TransformInto = nil
		p.Sink = nil
	}
	if p.TransformInto != nil && p.Sink == nil {
		p.Sink = NewMapSink()
	}
	return p
}

// apply runs the pipeline over an accepted response.
func (p Pipeline) apply(ctx context.Context, ex *Exchange) Outcome {
	out := Outcome{
		Name:     ex.Request.Name,
		URL:      ex.Request.URL,
		Attempts: ex.Attempts,
	}

	if p.ReadBody {
		snap, err := store.ReadSnapshot(ex.Response)
		if err != nil {
			return out.fatal(&TransportError{Kind: ClassifyTransportError(err), URL: ex.Request.URL, Err: err})
		}
		out.Body = snap.Body
	}

	switch {
	case p.Transform != nil:
		v, err := p.Transform(ctx, ex)
		drain(ex.Response)
		if err != nil {
			return out.fatal(&TransformError{Name: ex.Request.Name, Err: err})
		}
		out.Kind = OutcomeResolved
		out.Value = v
		out.StatusCode = ex.Response.StatusCode

	case p.TransformInto != nil:
		err := p.TransformInto(ctx, ex, p.Sink)
		drain(ex.Response)
		if err != nil {
			return out.fatal(&TransformError{Name: ex.Request.Name, Err: err})
		}
		out.Kind = OutcomeResolved
		out.StatusCode = ex.Response.StatusCode

	default:
		out.Kind = OutcomeRaw
		out.Response = ex.Response
		out.StatusCode = ex.Response.StatusCode
	}

	return out
}

// drain consumes and closes the body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}

// MapSink is an in-memory Sink. Each name may be written once.
type MapSink struct {
	mu     sync.Mutex
	values map[string]any
	order  []string
}

// NewMapSink creates an empty sink.
func NewMapSink() *MapSink {
	return &MapSink{values: make(map[string]any)}
}

// Put stores value under name.
func (s *MapSink) Put(_ context.Context, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	s.values[name] = value
	s.order = append(s.order, name)
	return nil
}

// Get returns the value stored under name.
func (s *MapSink) Get(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of stored values.
func (s *MapSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Names returns stored names in write order.
func (s *MapSink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

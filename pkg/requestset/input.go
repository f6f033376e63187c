package requestset

import (
	"net/http"
	"net/url"
	"time"
)

// Input is the closed set of shapes a batch can be submitted as:
// Single, Sequence or Mapping.
type Input interface {
	isInput()
}

// Single is one target. It is keyed "0".
type Single string

// Sequence is an ordered list of values keyed by their position.
type Sequence []Value

// Targets builds a Sequence of bare targets.
func Targets(targets ...string) Sequence {
	seq := make(Sequence, len(targets))
	for i, t := range targets {
		seq[i] = Target(t)
	}
	return seq
}

// Mapping is an ordered list of named values.
type Mapping []Entry

// Entry is one named value of a Mapping.
type Entry struct {
	Name  string
	Value Value
}

func (Single) isInput()   {}
func (Sequence) isInput() {}
func (Mapping) isInput()  {}

// Value is the closed set of shapes one request can be given as:
// Target, Pair or Fields.
type Value interface {
	isValue()
}

// Target is a bare URL string.
type Target string

// Pair is a target with per-request options.
type Pair struct {
	Target  string
	Options Options
}

// Fields is a loosely typed options mapping, typically decoded from YAML or
// JSON. The "url" key is required. Recognized keys are "method", "headers",
// "body" and "timeout"; everything else is kept in Descriptor.Extra.
type Fields map[string]any

func (Target) isValue() {}
func (Pair) isValue()   {}
func (Fields) isValue() {}

// Options are per-request settings layered over the builder defaults.
type Options struct {
	Method  string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
	Extra   map[string]any
}

// Descriptor is the normalized form of one request.
type Descriptor struct {
	Name    string
	URL     *url.URL
	Method  string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
	Extra   map[string]any
}

// Set is the ordered result of Build.
type Set struct {
	items []Descriptor
	index map[string]int
}

// Len returns the number of descriptors.
func (s *Set) Len() int {
	return len(s.items)
}

// Names returns descriptor names in input order.
func (s *Set) Names() []string {
	names := make([]string, len(s.items))
	for i, d := range s.items {
		names[i] = d.Name
	}
	return names
}

// At returns the i-th descriptor.
func (s *Set) At(i int) Descriptor {
	return s.items[i]
}

// Get returns the descriptor with the given name.
func (s *Set) Get(name string) (Descriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return s.items[i], true
}

// Descriptors returns a copy of the descriptors in input order.
func (s *Set) Descriptors() []Descriptor {
	out := make([]Descriptor, len(s.items))
	copy(out, s.items)
	return out
}

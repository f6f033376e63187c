// Package urlresolve resolves request targets against an optional base URL.
package urlresolve

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedURL is returned when a target or base cannot be parsed.
var ErrMalformedURL = errors.New("malformed url")

// MalformedURLError carries the raw input that failed to parse.
type MalformedURLError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrMalformedURL, e.Raw, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedURLError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMalformedURL.
func (e *MalformedURLError) Is(target error) bool {
	return target == ErrMalformedURL
}

// Resolver joins relative targets onto a base URL.
// The zero value resolves every target as-is.
type Resolver struct {
	// Base is used for relative targets. It is only kept when absolute.
	Base *url.URL

	// Encoded keeps the caller's percent-encoding untouched. Some servers
	// reject canonicalized URLs, so canonicalization can be switched off.
	Encoded bool
}

// New creates a Resolver. A base that is empty, malformed or not absolute
// is silently dropped.
func New(base string, encoded bool) *Resolver {
	r := &Resolver{Encoded: encoded}
	if base == "" {
		return r
	}
	u, err := r.parse(base)
	if err != nil || !u.IsAbs() {
		return r
	}
	r.Base = u
	return r
}

// Resolve parses target and joins it onto the base when target is relative.
// Absolute targets are returned unchanged.
func (r *Resolver) Resolve(target string) (*url.URL, error) {
	u, err := r.parse(target)
	if err != nil {
		return nil, err
	}
	return r.ResolveURL(u), nil
}

// ResolveURL is Resolve for an already parsed target.
func (r *Resolver) ResolveURL(u *url.URL) *url.URL {
	if r == nil || r.Base == nil || !r.Base.IsAbs() || u.IsAbs() {
		return u
	}
	return r.Base.ResolveReference(u)
}

func (r *Resolver) parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &MalformedURLError{Raw: raw, Err: err}
	}
	if r == nil || !r.Encoded {
		canonicalize(u)
	}
	return u, nil
}

// Resolve is a convenience wrapper around New(base, encoded).Resolve(target).
func Resolve(target, base string, encoded bool) (*url.URL, error) {
	return New(base, encoded).Resolve(target)
}

// canonicalize drops the caller's path escaping in favour of Go's canonical
// form and escapes characters in the query that are not valid on the wire.
func canonicalize(u *url.URL) {
	u.RawPath = ""
	u.RawQuery = escapeQuery(u.RawQuery)
}

func escapeQuery(q string) string {
	var b strings.Builder
	for i := 0; i < len(q); i++ {
		c := q[i]
		if c <= ' ' || c >= 0x7f || c == '"' || c == '<' || c == '>' || c == '`' {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

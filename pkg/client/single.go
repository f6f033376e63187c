package client

import (
	"context"
	"net/http"

	"github.com/Sternrassler/batchhttp/pkg/pool"
	"github.com/Sternrassler/batchhttp/pkg/requestset"
)

// Request performs one request on a pool of its own. Config.Delay applies
// after success. A fatal outcome is returned together with its error.
//
// The pool is closed before Request returns; a raw response body stays
// readable, but set Pipeline.ReadBody when the body is needed after a long
// pause.
func (c *Client) Request(ctx context.Context, method, target string, opts requestset.Options) (Outcome, error) {
	p := c.OpenPool()
	defer p.Close()

	return c.RequestWithPool(ctx, p, method, target, opts)
}

// RequestWithPool is Request on a caller-owned pool. Transforms use it for
// follow-up requests through Exchange.Pool.
func (c *Client) RequestWithPool(ctx context.Context, p *pool.Pool, method, target string, opts requestset.Options) (Outcome, error) {
	if opts.Method == "" {
		opts.Method = method
	}

	set, err := c.builder.Build(requestset.Mapping{
		{Name: "0", Value: requestset.Pair{Target: target, Options: opts}},
	})
	if err != nil {
		return Outcome{Name: "0", Kind: OutcomeFatal, Err: err}, err
	}

	out := c.execute(ctx, p, set.At(0), c.config.Delay)
	if out.Kind == OutcomeFatal {
		return out, out.Err
	}
	return out, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, target string) (Outcome, error) {
	return c.Request(ctx, http.MethodGet, target, requestset.Options{})
}

// Head performs a HEAD request.
func (c *Client) Head(ctx context.Context, target string) (Outcome, error) {
	return c.Request(ctx, http.MethodHead, target, requestset.Options{})
}

// Post performs a POST request with body.
func (c *Client) Post(ctx context.Context, target, contentType string, body []byte) (Outcome, error) {
	opts := requestset.Options{Body: body}
	if contentType != "" {
		opts.Header = http.Header{"Content-Type": {contentType}}
	}
	return c.Request(ctx, http.MethodPost, target, opts)
}

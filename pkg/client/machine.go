package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/batchhttp/pkg/logging"
	"github.com/Sternrassler/batchhttp/pkg/pool"
	"github.com/Sternrassler/batchhttp/pkg/requestset"
)

// execute drives one request to a terminal outcome:
//
//	attempting -> evaluating -> succeeded
//	                         -> retrying -> attempting
//	                         -> fatal
//
// Transport failures outside the recoverable set, 4xx responses, transform
// errors, cancellation and a reached attempt ceiling are fatal. Everything else retries after the backoff delay.
func (c *Client) execute(ctx context.Context, p *pool.Pool, d requestset.Descriptor, postDelay time.Duration) Outcome {
	policy := c.config.Policy
	out := Outcome{Name: d.Name, URL: d.URL}

	for attempt := 1; ; attempt++ {
		out.Attempts = attempt

		if err := ctx.Err(); err != nil {
			return c.fail(ctx, out, cancelled(err))
		}

		resp, err := c.attempt(ctx, p, d)

		var reason string
		var retryErr error

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.fail(ctx, out, cancelled(ctxErr))
			}
			kind := ClassifyTransportError(err)
			tErr := &TransportError{Kind: kind, URL: d.URL, Err: err}
			if !policy.recoverable(kind) {
				return c.fail(ctx, out, tErr)
			}
			reason, retryErr = kind.String(), tErr
		} else {
			switch policy.evaluate(resp.StatusCode) {
			case verdictFatal:
				drain(resp)
				out.StatusCode = resp.StatusCode
				return c.fail(ctx, out, &ClientStatusError{StatusCode: resp.StatusCode, Method: d.Method, URL: d.URL})

			case verdictRetry:
				drain(resp)
				reason = strconv.Itoa(resp.StatusCode)
				retryErr = &RejectedStatusError{StatusCode: resp.StatusCode, URL: d.URL}

			default:
				return c.succeed(ctx, p, d, resp, attempt, postDelay)
			}
		}

		if policy.Backoff.Exhausted(attempt) {
			return c.fail(ctx, out, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, retryErr))
		}

		delay := policy.Backoff.Next(attempt)
		retriesTotal.WithLabelValues(reason).Inc()
		retryDelaySeconds.WithLabelValues(reason).Observe(delay.Seconds())

		c.diag(ctx, zerolog.WarnLevel).
			Str("name", d.Name).
			Str("url", redact(d.URL)).
			Int("attempt", attempt).
			Str("reason", reason).
			Dur("delay", delay).
			Err(retryErr).
			Msg("Retrying request")

		if err := sleep(ctx, delay); err != nil {
			return c.fail(ctx, out, cancelled(err))
		}
	}
}

// attempt performs one round trip. A per-request timeout bounds the whole
// exchange, body included; it is released when the body is closed.
func (c *Client) attempt(ctx context.Context, p *pool.Pool, d requestset.Descriptor) (*http.Response, error) {
	cancel := context.CancelFunc(func() {})
	if d.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
	}

	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL.String(), body)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header = d.Header.Clone()

	start := time.Now()
	resp, err := p.Do(req)
	requestDuration.WithLabelValues(d.Method).Observe(time.Since(start).Seconds())

	if err != nil {
		cancel()
		requestsTotal.WithLabelValues(d.Method, "error").Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues(d.Method, strconv.Itoa(resp.StatusCode)).Inc()

	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// succeed runs the pipeline over an accepted response.
func (c *Client) succeed(ctx context.Context, p *pool.Pool, d requestset.Descriptor, resp *http.Response, attempts int, postDelay time.Duration) Outcome {
	ex := &Exchange{
		Response: resp,
		Pool:     p,
		Request:  d,
		Client:   c,
		Attempts: attempts,
	}

	out := c.config.Pipeline.apply(ctx, ex)
	if out.Kind == OutcomeFatal {
		return c.fail(ctx, out, out.Err)
	}

	if postDelay > 0 {
		if err := sleep(ctx, postDelay); err != nil {
			out.Close()
			return c.fail(ctx, out, cancelled(err))
		}
	}

	c.diag(ctx, zerolog.DebugLevel).
		Str("name", d.Name).
		Str("url", redact(d.URL)).
		Int("status_code", resp.StatusCode).
		Int("attempts", attempts).
		Str("outcome", out.Kind.String()).
		Msg("Request succeeded")

	return out
}

// fail records a fatal outcome.
func (c *Client) fail(ctx context.Context, out Outcome, err error) Outcome {
	out = out.fatal(err)
	class := Class(err)
	fatalTotal.WithLabelValues(string(class)).Inc()

	level := zerolog.ErrorLevel
	if class == ErrorClassCancelled {
		level = zerolog.DebugLevel
	}
	c.diag(ctx, level).
		Str("name", out.Name).
		Str("url", redact(out.URL)).
		Int("attempts", out.Attempts).
		Str("error_class", string(class)).
		Err(err).
		Msg("Request failed")

	return out
}

// diag returns a log event on the batch logger carried by ctx, or nil (a
// no-op event) when quiet.
func (c *Client) diag(ctx context.Context, level zerolog.Level) *zerolog.Event {
	if c.config.Quiet {
		return nil
	}
	l := logging.FromContext(ctx, c.logger)
	return l.WithLevel(level)
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrContextCancelled, err)
}

// cancelBody releases the attempt's timeout when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

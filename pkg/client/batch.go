package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/batchhttp/pkg/logging"
	"github.com/Sternrassler/batchhttp/pkg/pool"
	"github.com/Sternrassler/batchhttp/pkg/requestset"
	"github.com/Sternrassler/batchhttp/pkg/store"
)

// postDelayMinBatch is the batch size above which Config.Delay applies.
const postDelayMinBatch = 2

// Batch runs every request in input concurrently on a pool it opens and
// closes itself. It returns once every request is terminal.
//
// On success the results hold one outcome per request in input order. If
// any request turns fatal, Batch returns the first fatal error and no
// results; raw responses already received are closed.
func (c *Client) Batch(ctx context.Context, input requestset.Input) (*Results, error) {
	set, err := c.builder.Build(input)
	if err != nil {
		return nil, err
	}

	p := c.OpenPool()
	defer p.Close()

	return c.run(ctx, p, set)
}

// BatchWithPool is Batch on a caller-owned pool. The pool is left open.
func (c *Client) BatchWithPool(ctx context.Context, p *pool.Pool, input requestset.Input) (*Results, error) {
	set, err := c.builder.Build(input)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, p, set)
}

// Run executes an already built set on p.
func (c *Client) Run(ctx context.Context, p *pool.Pool, set *requestset.Set) (*Results, error) {
	return c.run(ctx, p, set)
}

func (c *Client) run(ctx context.Context, p *pool.Pool, set *requestset.Set) (*Results, error) {
	batchID := uuid.NewString()
	ctx = store.WithBatch(ctx, batchID)

	logger := logging.ForBatch(c.logger, batchID, p.ID(), set.Len())
	ctx = logger.WithContext(ctx)

	start := time.Now()
	defer func() {
		batchDuration.Observe(time.Since(start).Seconds())
	}()
	batchSize.Observe(float64(set.Len()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var postDelay time.Duration
	if set.Len() > postDelayMinBatch {
		postDelay = c.config.Delay
	}

	var (
		firstErr error
		errOnce  sync.Once
		g        errgroup.Group
	)

	results := newResults(batchID, set.Names())

	for i := 0; i < set.Len(); i++ {
		d := set.At(i)
		g.Go(func() error {
			out := c.execute(runCtx, p, d, postDelay)
			results.set(i, out)

			if out.Kind == OutcomeFatal {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("request %q: %w", d.Name, out.Err)
					if c.config.FailFast {
						cancel()
					}
				})
			}
			return nil
		})
	}
	g.Wait()

	if firstErr != nil {
		results.Close()
		logger.Error().Err(firstErr).Dur("duration", time.Since(start)).Msg("Batch failed")
		return nil, firstErr
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("Batch completed")
	return results, nil
}

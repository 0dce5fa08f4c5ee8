package dataset

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when a dataset is forced after its Context was closed.
var ErrClosed = errors.New("dataset: context closed")

// Options sizes the worker pool of a Context.
type Options struct {
	// Workers bounds the number of partitions processed concurrently.
	// Zero means runtime.NumCPU().
	Workers int
	// Partitions is the number of partitions used for in-memory sources
	// and shuffles. Zero means Workers.
	Partitions int
}

// Context is the execution handle shared by every dataset built from it.
// Datasets are lazy; work only happens when a force operation (Collect,
// Count, Aggregate, AggregateByKey) runs on the Context's worker pool.
type Context struct {
	workers    int
	partitions int
	logger     *slog.Logger
	closed     atomic.Bool
}

// NewContext creates a compute context.
func NewContext(opts Options, logger *slog.Logger) *Context {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	partitions := opts.Partitions
	if partitions <= 0 {
		partitions = workers
	}
	logger.Debug("compute context started", "workers", workers, "partitions", partitions)
	return &Context{
		workers:    workers,
		partitions: partitions,
		logger:     logger,
	}
}

// Workers returns the concurrency limit.
func (c *Context) Workers() int { return c.workers }

// Partitions returns the default partition count.
func (c *Context) Partitions() int { return c.partitions }

// Close releases the context. Forcing any dataset afterwards fails with ErrClosed.
func (c *Context) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.logger.Debug("compute context closed")
	return nil
}

// run calls fn once per partition with at most c.workers calls in flight.
// The first error cancels the remaining partitions.
func (c *Context) run(ctx context.Context, n int, fn func(ctx context.Context, p int) error) error {
	if c.closed.Load() {
		return ErrClosed
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for p := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, p)
		})
	}
	return g.Wait()
}

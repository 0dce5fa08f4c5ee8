// Package dataset implements lazily evaluated, partitioned collections.
//
// A Dataset describes how to produce its records; building one with Map,
// Filter, FlatMap or a join does no work. Force operations (Collect, Count,
// Aggregate, AggregateByKey) open the sources and stream every partition
// through the fused per-record stages on the Context's worker pool. Joins
// add a shuffle boundary: their inputs are forced and hash-partitioned by
// key before any joined row is produced.
//
// Partition results are always merged in partition order, so forcing the
// same graph over the same input yields the same output.
package dataset

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// scanFunc pushes every record of partition p to emit, stopping at the
// first error.
type scanFunc[T any] func(ctx context.Context, p int, emit func(T) error) error

// plan is an opened dataset: a partition count and a way to scan each one.
type plan[T any] struct {
	parts int
	scan  scanFunc[T]
	close func() error
}

func (pl plan[T]) release() error {
	if pl.close == nil {
		return nil
	}
	return pl.close()
}

// Dataset is a lazy, partitioned collection of T.
type Dataset[T any] struct {
	dc   *Context
	name string
	open func(ctx context.Context) (plan[T], error)
}

// Name identifies the dataset in logs and errors.
func (d *Dataset[T]) Name() string { return d.name }

// Context returns the compute context the dataset runs on.
func (d *Dataset[T]) Context() *Context { return d.dc }

// Parallelize splits items into contiguous partitions. items must not be
// modified while the dataset is in use.
func Parallelize[T any](dc *Context, name string, items []T) *Dataset[T] {
	return &Dataset[T]{
		dc:   dc,
		name: name,
		open: func(_ context.Context) (plan[T], error) {
			parts := min(dc.partitions, len(items))
			return plan[T]{
				parts: parts,
				scan: func(_ context.Context, p int, emit func(T) error) error {
					lo, hi := p*len(items)/parts, (p+1)*len(items)/parts
					for _, it := range items[lo:hi] {
						if err := emit(it); err != nil {
							return err
						}
					}
					return nil
				},
			}, nil
		},
	}
}

// FlatMap applies fn to every record; fn may emit any number of outputs.
func FlatMap[T, U any](d *Dataset[T], name string, fn func(T, func(U) error) error) *Dataset[U] {
	return &Dataset[U]{
		dc:   d.dc,
		name: name,
		open: func(ctx context.Context) (plan[U], error) {
			in, err := d.open(ctx)
			if err != nil {
				return plan[U]{}, err
			}
			return plan[U]{
				parts: in.parts,
				close: in.close,
				scan: func(ctx context.Context, p int, emit func(U) error) error {
					return in.scan(ctx, p, func(t T) error {
						return fn(t, emit)
					})
				},
			}, nil
		},
	}
}

// Map applies fn to every record.
func Map[T, U any](d *Dataset[T], name string, fn func(T) (U, error)) *Dataset[U] {
	return FlatMap(d, name, func(t T, emit func(U) error) error {
		u, err := fn(t)
		if err != nil {
			return err
		}
		return emit(u)
	})
}

// Filter keeps the records for which keep returns true.
func Filter[T any](d *Dataset[T], name string, keep func(T) bool) *Dataset[T] {
	return FlatMap(d, name, func(t T, emit func(T) error) error {
		if !keep(t) {
			return nil
		}
		return emit(t)
	})
}

// execute opens d and scans every partition. prepare receives the
// partition count before any scan starts; sink returns the emit function
// for one partition and is called from that partition's goroutine.
func execute[T any](ctx context.Context, d *Dataset[T], prepare func(parts int), sink func(p int) func(T) error) (err error) {
	if d.dc.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	pl, err := d.open(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}
	defer func() {
		if cerr := pl.release(); cerr != nil && err == nil {
			err = fmt.Errorf("%s: release: %w", d.name, cerr)
		}
	}()

	prepare(pl.parts)
	err = d.dc.run(ctx, pl.parts, func(ctx context.Context, p int) error {
		return pl.scan(ctx, p, sink(p))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}

	d.dc.logger.Debug("dataset forced",
		"dataset", d.name,
		"partitions", pl.parts,
		"duration", time.Since(start),
	)
	return nil
}

// Collect forces d and returns its records in partition order.
func Collect[T any](ctx context.Context, d *Dataset[T]) ([]T, error) {
	var parts [][]T
	err := execute(ctx, d,
		func(n int) { parts = make([][]T, n) },
		func(p int) func(T) error {
			return func(t T) error {
				parts[p] = append(parts[p], t)
				return nil
			}
		},
	)
	if err != nil {
		return nil, err
	}
	return slices.Concat(parts...), nil
}

// Count forces d and returns its record count.
func Count[T any](ctx context.Context, d *Dataset[T]) (int64, error) {
	return Aggregate(ctx, d,
		func() int64 { return 0 },
		func(n int64, _ T) int64 { return n + 1 },
		func(a, b int64) int64 { return a + b },
	)
}

// Aggregate folds every partition with seq starting from zero() and combines
// the partition results with comb. comb must be associative; partitions are
// combined in order.
func Aggregate[T, A any](ctx context.Context, d *Dataset[T], zero func() A, seq func(A, T) A, comb func(A, A) A) (A, error) {
	var accs []A
	err := execute(ctx, d,
		func(n int) {
			accs = make([]A, n)
			for i := range accs {
				accs[i] = zero()
			}
		},
		func(p int) func(T) error {
			return func(t T) error {
				accs[p] = seq(accs[p], t)
				return nil
			}
		},
	)
	if err != nil {
		var none A
		return none, err
	}

	out := zero()
	for _, a := range accs {
		out = comb(out, a)
	}
	return out, nil
}

// AggregateByKey is Aggregate per key: each partition keeps a local map and
// the maps are merged after every partition finished.
func AggregateByKey[T, A any](ctx context.Context, d *Dataset[T], key func(T) string, zero func() A, seq func(A, T) A, comb func(A, A) A) (map[string]A, error) {
	var locals []map[string]A
	err := execute(ctx, d,
		func(n int) { locals = make([]map[string]A, n) },
		func(p int) func(T) error {
			local := make(map[string]A)
			locals[p] = local
			return func(t T) error {
				k := key(t)
				acc, ok := local[k]
				if !ok {
					acc = zero()
				}
				local[k] = seq(acc, t)
				return nil
			}
		},
	)
	if err != nil {
		return nil, err
	}

	out := make(map[string]A)
	for _, local := range locals {
		for k, v := range local {
			acc, ok := out[k]
			if !ok {
				acc = zero()
			}
			out[k] = comb(acc, v)
		}
	}
	return out, nil
}

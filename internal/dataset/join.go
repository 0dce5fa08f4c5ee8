package dataset

import (
	"context"

	"github.com/cespare/xxhash/v2"
)

// Index is a read-only lookup table shared by every partition of a
// broadcast join.
type Index[R any] interface {
	Lookup(key string) []R
}

// BroadcastJoin inner-joins left against a shared index. Every left record
// produces one output per record the index returns for its key; records
// without a match produce nothing.
func BroadcastJoin[L, R, O any](name string, left *Dataset[L], index Index[R], lkey func(L) string, combine func(L, R) O) *Dataset[O] {
	return FlatMap(left, name, func(l L, emit func(O) error) error {
		for _, r := range index.Lookup(lkey(l)) {
			if err := emit(combine(l, r)); err != nil {
				return err
			}
		}
		return nil
	})
}

// HashJoin inner-joins left and right on equal keys. Both inputs are forced
// and hash-partitioned by key into the context's partition count; each
// output partition then joins one bucket pair locally. Repeated keys on
// either side produce their full cross product.
func HashJoin[L, R, O any](name string, left *Dataset[L], right *Dataset[R], lkey func(L) string, rkey func(R) string, combine func(L, R) O) *Dataset[O] {
	dc := left.dc
	return &Dataset[O]{
		dc:   dc,
		name: name,
		open: func(ctx context.Context) (plan[O], error) {
			n := dc.partitions
			lb, err := shuffle(ctx, left, lkey, n)
			if err != nil {
				return plan[O]{}, err
			}
			rb, err := shuffle(ctx, right, rkey, n)
			if err != nil {
				return plan[O]{}, err
			}

			return plan[O]{
				parts: n,
				scan: func(_ context.Context, p int, emit func(O) error) error {
					table := make(map[string][]R, len(rb[p]))
					for _, r := range rb[p] {
						k := rkey(r)
						table[k] = append(table[k], r)
					}
					for _, l := range lb[p] {
						for _, r := range table[lkey(l)] {
							if err := emit(combine(l, r)); err != nil {
								return err
							}
						}
					}
					return nil
				},
			}, nil
		},
	}
}

// shuffle forces d and returns its records grouped into n buckets by key
// hash. Within a bucket, records keep partition order.
func shuffle[T any](ctx context.Context, d *Dataset[T], key func(T) string, n int) ([][]T, error) {
	var local [][][]T
	err := execute(ctx, d,
		func(parts int) { local = make([][][]T, parts) },
		func(p int) func(T) error {
			buckets := make([][]T, n)
			local[p] = buckets
			return func(t T) error {
				b := bucket(key(t), n)
				buckets[b] = append(buckets[b], t)
				return nil
			}
		},
	)
	if err != nil {
		return nil, err
	}

	out := make([][]T, n)
	for b := range out {
		for _, buckets := range local {
			out[b] = append(out[b], buckets[b]...)
		}
	}
	return out, nil
}

func bucket(key string, n int) int {
	return int(xxhash.Sum64String(key) % uint64(n))
}

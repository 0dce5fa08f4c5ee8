package domain

// Mean accumulates a running sum and count. Partial means computed on
// separate partitions combine with Merge in any order.
type Mean struct {
	Sum   int64
	Count int64
}

// Add folds one value into the accumulator.
func (m Mean) Add(v int) Mean {
	m.Sum += int64(v)
	m.Count++
	return m
}

// Merge combines two partial accumulators.
func (m Mean) Merge(o Mean) Mean {
	m.Sum += o.Sum
	m.Count += o.Count
	return m
}

// Value returns the arithmetic mean, or false when no value was added.
func (m Mean) Value() (float64, bool) {
	if m.Count == 0 {
		return 0, false
	}
	return float64(m.Sum) / float64(m.Count), true
}

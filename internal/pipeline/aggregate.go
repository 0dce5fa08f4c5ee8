package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
)

// MeansByKind forces joined once and returns the mean accumulator of every
// requested measurement kind that has at least one row.
func MeansByKind(ctx context.Context, joined *dataset.Dataset[domain.JoinedObservation], kinds []string) (map[string]domain.Mean, error) {
	wanted := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		wanted[k] = struct{}{}
	}

	selected := dataset.Filter(joined, "select kinds", func(j domain.JoinedObservation) bool {
		_, ok := wanted[j.Observation.Kind]
		return ok
	})

	return dataset.AggregateByKey(ctx, selected,
		func(j domain.JoinedObservation) string { return j.Observation.Kind },
		func() domain.Mean { return domain.Mean{} },
		func(m domain.Mean, j domain.JoinedObservation) domain.Mean { return m.Add(j.Observation.DegreesCelsius) },
		domain.Mean.Merge,
	)
}

// MeanTemperature returns the mean DegreesCelsius of the rows of one kind.
// It fails with domain.ErrNoData when no row matches.
func MeanTemperature(ctx context.Context, joined *dataset.Dataset[domain.JoinedObservation], kind string) (float64, error) {
	means, err := MeansByKind(ctx, joined, []string{kind})
	if err != nil {
		return 0, err
	}
	v, ok := means[kind].Value()
	if !ok {
		return 0, fmt.Errorf("%w for %s", domain.ErrNoData, kind)
	}
	return v, nil
}

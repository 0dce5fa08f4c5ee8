package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/couchcryptid/weather-stats/internal/observability"
)

// ErrTooManyMalformed is returned when the skip policy exceeds its bound.
var ErrTooManyMalformed = errors.New("too many malformed records")

// ParseOptions controls observation parsing.
type ParseOptions struct {
	SkipHeader bool
	// SkipMalformed drops unparseable lines instead of failing. At most
	// MaxMalformed lines may be dropped per dataset.
	SkipMalformed bool
	MaxMalformed  int
}

// Observations returns the lazily parsed, quality-filtered observations of
// every file matching pattern.
func Observations(dc *dataset.Context, pattern string, opts ParseOptions, logger *slog.Logger, metrics *observability.Metrics) (*dataset.Dataset[domain.WeatherObservation], error) {
	lines, err := dataset.TextFile(dc, pattern, dataset.TextOptions{SkipHeader: opts.SkipHeader})
	if err != nil {
		return nil, err
	}

	var malformed atomic.Int64
	parsed := dataset.FlatMap(lines, "parse observations", func(l dataset.Line, emit func(domain.WeatherObservation) error) error {
		obs, err := domain.ParseObservation(l.Text)
		if err != nil {
			err = fmt.Errorf("%s@%d: %w", l.Source, l.Offset, err)
			if !opts.SkipMalformed {
				return err
			}
			metrics.RecordsMalformed.Inc()
			if malformed.Add(1) > int64(opts.MaxMalformed) {
				return fmt.Errorf("%w: more than %d in %s", ErrTooManyMalformed, opts.MaxMalformed, pattern)
			}
			logger.Warn("skipping malformed observation", "error", err)
			return nil
		}
		metrics.RecordsParsed.Inc()
		return emit(obs)
	})

	return dataset.Filter(parsed, "quality filter", func(obs domain.WeatherObservation) bool {
		if domain.PassesQuality(obs) {
			return true
		}
		metrics.RecordsQualityDrop.Inc()
		return false
	}), nil
}

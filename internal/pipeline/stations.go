package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
)

// ErrDuplicateStation is returned when unique station identifiers are
// required and the station file repeats one.
var ErrDuplicateStation = errors.New("duplicate station identifier")

// StationOptions controls how the station file is loaded.
type StationOptions struct {
	SkipHeader    bool
	RequireUnique bool
}

// LoadStations parses the station file and builds the shared station index.
// Any malformed station line aborts the load.
func LoadStations(ctx context.Context, dc *dataset.Context, path string, opts StationOptions, logger *slog.Logger) (*domain.StationIndex, error) {
	lines, err := dataset.TextFile(dc, path, dataset.TextOptions{SkipHeader: opts.SkipHeader})
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}

	parsed := dataset.Map(lines, "parse stations", func(l dataset.Line) (domain.StationRecord, error) {
		rec, err := domain.ParseStation(l.Text)
		if err != nil {
			return rec, fmt.Errorf("%s@%d: %w", l.Source, l.Offset, err)
		}
		return rec, nil
	})

	records, err := dataset.Collect(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}

	idx := domain.NewStationIndex(records)
	if dups := idx.Duplicates(); len(dups) > 0 {
		sample := dups[:min(len(dups), 5)]
		if opts.RequireUnique {
			return nil, fmt.Errorf("%w: %d ids repeated (%s)", ErrDuplicateStation, len(dups), strings.Join(sample, ", "))
		}
		logger.Warn("duplicate station identifiers, joins emit one row per match",
			"count", len(dups),
			"sample", sample,
		)
	}
	return idx, nil
}

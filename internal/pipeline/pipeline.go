package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/couchcryptid/weather-stats/internal/observability"
)

// ReportLoader publishes finished year reports.
type ReportLoader interface {
	LoadReport(ctx context.Context, report domain.YearReport) error
}

// Options describes one batch run.
type Options struct {
	StationsPath string
	Stations     StationOptions

	// ObservationsFor returns the observation path or glob for a year.
	ObservationsFor func(year int) string
	Parse           ParseOptions

	Years        []int
	Kinds        []string
	JoinStrategy string
}

// Pipeline computes yearly temperature aggregates. The station index is
// loaded once and shared read-only by every year.
type Pipeline struct {
	dc      *dataset.Context
	opts    Options
	sink    ReportLoader
	out     io.Writer
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	stations *domain.StationIndex
	ready    atomic.Bool
}

// New creates a Pipeline. sink may be nil; reports are then only printed to out.
func New(dc *dataset.Context, opts Options, sink ReportLoader, out io.Writer, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	opts.Kinds = uniqueKinds(opts.Kinds)
	return &Pipeline{
		dc:      dc,
		opts:    opts,
		sink:    sink,
		out:     out,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the station index is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("station index not loaded yet")
	}
	return nil
}

// Stations returns the shared station index, loading it on first use.
func (p *Pipeline) Stations(ctx context.Context) (*domain.StationIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stations != nil {
		return p.stations, nil
	}

	start := time.Now()
	idx, err := LoadStations(ctx, p.dc, p.opts.StationsPath, p.opts.Stations, p.logger)
	if err != nil {
		return nil, err
	}
	p.stations = idx
	p.ready.Store(true)
	p.metrics.StationsLoaded.Set(float64(idx.Len()))
	p.logger.Info("stations loaded",
		"path", p.opts.StationsPath,
		"stations", idx.Len(),
		"duration", time.Since(start),
	)
	return idx, nil
}

// Run computes every configured year in order, printing each report and
// publishing it to the sink. The first error stops the run.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"years", len(p.opts.Years),
		"kinds", p.opts.Kinds,
		"join", p.opts.JoinStrategy,
		"workers", p.dc.Workers(),
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if _, err := p.Stations(ctx); err != nil {
		return err
	}

	for _, year := range p.opts.Years {
		report, err := p.YearStats(ctx, year)
		if err != nil {
			p.metrics.YearsProcessed.WithLabelValues("error").Inc()
			return fmt.Errorf("year %d: %w", year, err)
		}
		p.metrics.YearsProcessed.WithLabelValues("success").Inc()

		if err := p.printReport(report); err != nil {
			return fmt.Errorf("write year %d: %w", year, err)
		}
		if p.sink != nil {
			if err := p.sink.LoadReport(ctx, report); err != nil {
				return fmt.Errorf("publish year %d: %w", year, err)
			}
		}
	}

	p.logger.Info("pipeline finished", "years", len(p.opts.Years))
	return nil
}

// YearStats builds the graph for one year (parse, quality filter, join,
// group by kind) and forces it once. Requested kinds without rows are listed
// in the report's Missing field rather than reported as zero.
func (p *Pipeline) YearStats(ctx context.Context, year int) (domain.YearReport, error) {
	start := time.Now()

	idx, err := p.Stations(ctx)
	if err != nil {
		return domain.YearReport{}, err
	}

	obs, err := Observations(p.dc, p.opts.ObservationsFor(year), p.opts.Parse, p.logger, p.metrics)
	if err != nil {
		return domain.YearReport{}, err
	}
	joined, err := JoinStations(obs, idx, p.opts.JoinStrategy, p.metrics)
	if err != nil {
		return domain.YearReport{}, err
	}
	means, err := MeansByKind(ctx, joined, p.opts.Kinds)
	if err != nil {
		return domain.YearReport{}, err
	}

	var results []domain.AggregateResult
	var missing []string
	for _, kind := range p.opts.Kinds {
		acc := means[kind]
		v, ok := acc.Value()
		if !ok {
			missing = append(missing, kind)
			p.logger.Warn("no data for measurement kind", "year", year, "kind", kind)
			continue
		}
		results = append(results, domain.AggregateResult{Year: year, Kind: kind, Mean: v, Count: acc.Count})
		p.metrics.AggregateMean.WithLabelValues(strconv.Itoa(year), kind).Set(v)
	}

	p.metrics.YearDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("year aggregated",
		"year", year,
		"results", len(results),
		"missing", missing,
		"duration", time.Since(start),
	)
	return domain.NewYearReport(year, results, missing), nil
}

func (p *Pipeline) printReport(r domain.YearReport) error {
	if _, err := fmt.Fprintf(p.out, "\n%d\n====\n\n", r.Year); err != nil {
		return err
	}
	for _, kind := range p.opts.Kinds {
		var err error
		if res, ok := r.Result(kind); ok {
			_, err = fmt.Fprintf(p.out, "Average %s: %.1f\n", kind, res.Mean)
		} else {
			_, err = fmt.Fprintf(p.out, "Average %s: no data\n", kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func uniqueKinds(kinds []string) []string {
	seen := make(map[string]bool, len(kinds))
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Command validate checks a station table and its observation files before a
// run: it counts lines, malformed records, quality-flagged rows, duplicate
// station ids and observations whose station is unknown. With -expected it
// also recomputes the yearly aggregates and compares them with a reference
// file such as the expected.json written by genmock.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -stations data/stations.csv \
//	  -observations 'data/{year}.csv' -start 2000 -end 2001 \
//	  -expected data/expected.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/couchcryptid/weather-stats/internal/observability"
	"github.com/couchcryptid/weather-stats/internal/pipeline"
)

// maxListed bounds the per-phase error details printed.
const maxListed = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type flags struct {
	stations     string
	observations string
	start, end   int
	expected     string
	skipHeader   bool
}

func main() {
	var f flags
	flag.StringVar(&f.stations, "stations", "data/stations.csv", "station table")
	flag.StringVar(&f.observations, "observations", "data/"+config.YearPlaceholder+".csv", "observation path template")
	flag.IntVar(&f.start, "start", 2000, "first year")
	flag.IntVar(&f.end, "end", 2001, "end year (exclusive)")
	flag.StringVar(&f.expected, "expected", "", "optional JSON file of expected year reports")
	flag.BoolVar(&f.skipHeader, "skip-header", false, "files start with a header line")
	flag.Parse()

	if f.end <= f.start {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(context.Background(), f, os.Stdout))
}

// fileStats is accumulated per partition and merged.
type fileStats struct {
	lines, malformed, flagged, orphans int64
	samples                            []string
}

func (a fileStats) merge(b fileStats) fileStats {
	a.lines += b.lines
	a.malformed += b.malformed
	a.flagged += b.flagged
	a.orphans += b.orphans
	a.samples = append(a.samples, b.samples...)
	return a
}

func run(ctx context.Context, f flags, out io.Writer) int {
	logger := observability.NewLogger("warn", "text")
	dc := dataset.NewContext(dataset.Options{}, logger)
	defer dc.Close()

	fmt.Fprintln(out, "=== Weather Data Validation ===")
	fmt.Fprintln(out)

	stations, stationPhase := validateStations(ctx, dc, f, logger)
	phases := []*phase{stationPhase}
	if stations == nil {
		return report(out, phases)
	}

	years := make([]int, 0, f.end-f.start)
	for y := f.start; y < f.end; y++ {
		years = append(years, y)
	}
	pathFor := func(year int) string {
		return strings.ReplaceAll(f.observations, config.YearPlaceholder, strconv.Itoa(year))
	}
	phases = append(phases, validateObservations(ctx, dc, stations, years, pathFor, f.skipHeader))

	if f.expected != "" {
		phases = append(phases, validateExpected(ctx, dc, f, years, pathFor, logger))
	}
	return report(out, phases)
}

func validateStations(ctx context.Context, dc *dataset.Context, f flags, logger *slog.Logger) (*domain.StationIndex, *phase) {
	p := &phase{name: "Station table"}
	idx, err := pipeline.LoadStations(ctx, dc, f.stations, pipeline.StationOptions{SkipHeader: f.skipHeader}, logger)
	if err != nil {
		p.errorf("%v", err)
		return nil, p
	}
	p.notef("%d stations", idx.Len())
	if dups := idx.Duplicates(); len(dups) > 0 {
		p.errorf("%d duplicate station ids: %s", len(dups), strings.Join(dups[:min(len(dups), maxListed)], ", "))
	}
	return idx, p
}

func validateObservations(ctx context.Context, dc *dataset.Context, idx *domain.StationIndex, years []int, pathFor func(int) string, skipHeader bool) *phase {
	p := &phase{name: "Observation files"}
	for _, year := range years {
		lines, err := dataset.TextFile(dc, pathFor(year), dataset.TextOptions{SkipHeader: skipHeader})
		if err != nil {
			p.errorf("%d: %v", year, err)
			continue
		}
		st, err := dataset.Aggregate(ctx, lines,
			func() fileStats { return fileStats{} },
			func(s fileStats, l dataset.Line) fileStats {
				s.lines++
				obs, err := domain.ParseObservation(l.Text)
				switch {
				case err != nil:
					s.malformed++
					if len(s.samples) < maxListed {
						s.samples = append(s.samples, fmt.Sprintf("%s@%d: %v", l.Source, l.Offset, err))
					}
				case !domain.PassesQuality(obs):
					s.flagged++
				case len(idx.Lookup(obs.StationID)) == 0:
					s.orphans++
				}
				return s
			},
			fileStats.merge,
		)
		if err != nil {
			p.errorf("%d: %v", year, err)
			continue
		}
		p.notef("%d: %d lines, %d malformed, %d quality-flagged, %d unknown station", year, st.lines, st.malformed, st.flagged, st.orphans)
		for _, s := range st.samples[:min(len(st.samples), maxListed)] {
			p.errorf("%s", s)
		}
	}
	return p
}

func validateExpected(ctx context.Context, dc *dataset.Context, f flags, years []int, pathFor func(int) string, logger *slog.Logger) *phase {
	p := &phase{name: "Expected aggregates"}
	want, err := loadJSON[domain.YearReport](f.expected)
	if err != nil {
		p.errorf("load %s: %v", f.expected, err)
		return p
	}

	pl := pipeline.New(dc, pipeline.Options{
		StationsPath:    f.stations,
		Stations:        pipeline.StationOptions{SkipHeader: f.skipHeader},
		ObservationsFor: pathFor,
		Parse:           pipeline.ParseOptions{SkipHeader: f.skipHeader},
		Kinds:           []string{domain.KindMinTemperature, domain.KindMaxTemperature},
		JoinStrategy:    config.JoinBroadcast,
	}, nil, io.Discard, logger, observability.NewMetricsForTesting())

	for _, year := range years {
		got, err := pl.YearStats(ctx, year)
		if err != nil {
			p.errorf("%d: %v", year, err)
			continue
		}
		exp, ok := findReport(want, year)
		if !ok {
			p.errorf("%d: no expected report", year)
			continue
		}
		compareReports(p, exp, got)
	}
	return p
}

func compareReports(p *phase, want, got domain.YearReport) {
	for _, w := range want.Results {
		g, ok := got.Result(w.Kind)
		if !ok {
			p.errorf("%d %s: missing, want mean %.3f", want.Year, w.Kind, w.Mean)
			continue
		}
		if g.Count != w.Count || !floatEq(g.Mean, w.Mean) {
			p.errorf("%d %s: got mean %.6f over %d rows, want %.6f over %d", want.Year, w.Kind, g.Mean, g.Count, w.Mean, w.Count)
		}
	}
	for _, k := range want.Missing {
		if _, ok := got.Result(k); ok {
			p.errorf("%d %s: want no data", want.Year, k)
		}
	}
}

func findReport(reports []domain.YearReport, year int) (domain.YearReport, bool) {
	for _, r := range reports {
		if r.Year == year {
			return r, true
		}
	}
	return domain.YearReport{}, false
}

func report(out io.Writer, phases []*phase) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Fprintf(out, "      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("empty file")
	}
	return out, nil
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

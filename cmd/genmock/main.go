// Command genmock writes a deterministic synthetic data set for local runs: a
// station table, one observation file per year and an expected.json holding
// the year reports a correct run must produce.
//
// Usage:
//
//	go run ./cmd/genmock -out data -stations 50 -start 2000 -end 2002
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/jonboulle/clockwork"
)

var networks = []string{"AZ_ASOS", "CA_ASOS", "PA_ASOS", "TX_ASOS", "WA_ASOS"}

type options struct {
	outDir      string
	stations    int
	start, end  int
	seed        uint64
	flaggedRate float64
	orphanRate  float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.outDir, "out", "data", "output directory")
	flag.IntVar(&opts.stations, "stations", 50, "number of stations")
	flag.IntVar(&opts.start, "start", 2000, "first year")
	flag.IntVar(&opts.end, "end", 2001, "end year (exclusive)")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.Float64Var(&opts.flaggedRate, "flagged", 0.02, "fraction of observations with a quality flag")
	flag.Float64Var(&opts.orphanRate, "orphans", 0.01, "fraction of observations from unknown stations")
	flag.Parse()

	if opts.stations <= 0 || opts.end <= opts.start {
		flag.Usage()
		return fmt.Errorf("need -stations > 0 and -end > -start")
	}

	// Fixed clock for reproducible ComputedAt timestamps in expected.json.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	stations := genStations(rng, opts.stations)
	if err := writeLines(filepath.Join(opts.outDir, "stations.csv"), len(stations), func(i int) string {
		s := stations[i]
		return strings.Join([]string{s.StationID, s.Name, s.Lat, s.Lon, s.Elevation, s.BeginTimestamp, s.Network}, ",")
	}); err != nil {
		return err
	}
	log.Printf("stations: %d", len(stations))

	var reports []domain.YearReport
	for year := opts.start; year < opts.end; year++ {
		obs := genObservations(rng, stations, year, opts)
		path := filepath.Join(opts.outDir, strconv.Itoa(year)+".csv")
		if err := writeLines(path, len(obs), func(i int) string {
			o := obs[i]
			return strings.Join([]string{o.StationID, o.Date, o.Kind, strconv.Itoa(o.DegreesCelsius), o.MeasurementFlag, o.QualityFlag, o.SourceFlag, o.Time}, ",")
		}); err != nil {
			return err
		}
		report := expected(year, obs, stations)
		reports = append(reports, report)
		log.Printf("%d: %d observations", year, len(obs))
	}

	if err := writeJSON(filepath.Join(opts.outDir, "expected.json"), reports); err != nil {
		return fmt.Errorf("writing expected reports: %w", err)
	}
	return nil
}

func genStations(rng *rand.Rand, n int) []domain.StationRecord {
	out := make([]domain.StationRecord, n)
	for i := range out {
		out[i] = domain.StationRecord{
			StationID:      fmt.Sprintf("K%03d", i),
			Name:           fmt.Sprintf("Station %d", i),
			Lat:            strconv.FormatFloat(25+rng.Float64()*24, 'f', 4, 64),
			Lon:            strconv.FormatFloat(-124+rng.Float64()*57, 'f', 4, 64),
			Elevation:      strconv.Itoa(rng.IntN(3000)),
			BeginTimestamp: "1990-01-01",
			Network:        networks[rng.IntN(len(networks))],
		}
	}
	return out
}

// genObservations emits one TMIN and one TMAX row per station and day, plus
// occasional precipitation rows that the aggregation must ignore.
func genObservations(rng *rand.Rand, stations []domain.StationRecord, year int, opts options) []domain.WeatherObservation {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(1, 0, 0).Sub(first).Hours() / 24

	var out []domain.WeatherObservation
	for d := range int(days) {
		date := first.AddDate(0, 0, d).Format(time.DateOnly)
		for _, s := range stations {
			id := s.StationID
			if rng.Float64() < opts.orphanRate {
				id = "UNKNOWN" + strconv.Itoa(rng.IntN(10))
			}
			low := rng.IntN(40) - 20
			high := low + rng.IntN(20)
			for _, row := range []struct {
				kind  string
				value int
			}{
				{domain.KindMinTemperature, low},
				{domain.KindMaxTemperature, high},
			} {
				obs := domain.WeatherObservation{StationID: id, Date: date, Kind: row.kind, DegreesCelsius: row.value, Time: "0700"}
				if rng.Float64() < opts.flaggedRate {
					obs.QualityFlag = "X"
				}
				out = append(out, obs)
			}
			if rng.IntN(10) == 0 {
				out = append(out, domain.WeatherObservation{StationID: id, Date: date, Kind: "PRCP", DegreesCelsius: rng.IntN(50), SourceFlag: "7"})
			}
		}
	}
	return out
}

// expected computes the reference report without the dataset engine.
func expected(year int, obs []domain.WeatherObservation, stations []domain.StationRecord) domain.YearReport {
	idx := domain.NewStationIndex(stations)
	kinds := []string{domain.KindMinTemperature, domain.KindMaxTemperature}
	means := map[string]domain.Mean{}
	for _, o := range obs {
		if !domain.PassesQuality(o) {
			continue
		}
		for range idx.Lookup(o.StationID) {
			means[o.Kind] = means[o.Kind].Add(o.DegreesCelsius)
		}
	}

	var results []domain.AggregateResult
	var missing []string
	for _, k := range kinds {
		v, ok := means[k].Value()
		if !ok {
			missing = append(missing, k)
			continue
		}
		results = append(results, domain.AggregateResult{Year: year, Kind: k, Mean: v, Count: means[k].Count})
	}
	return domain.NewYearReport(year, results, missing)
}

func writeLines(path string, n int, line func(i int) string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for i := range n {
		if _, err := w.WriteString(line(i) + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

package domain

import (
	"errors"
	"time"
)

// Measurement kinds reported by the yearly run.
const (
	KindMinTemperature = "TMIN"
	KindMaxTemperature = "TMAX"
)

var (
	// ErrStationNotFound is returned when a station identifier has no
	// record in the station index.
	ErrStationNotFound = errors.New("station not found")

	// ErrNoData is returned when an aggregate is requested over zero rows.
	ErrNoData = errors.New("no data")
)

// WeatherObservation is one line of a yearly observation file.
type WeatherObservation struct {
	StationID       string `json:"station_id"`
	Date            string `json:"date"`
	Kind            string `json:"measurement_kind"`
	DegreesCelsius  int    `json:"degrees_celsius"`
	MeasurementFlag string `json:"measurement_flag,omitempty"`
	QualityFlag     string `json:"quality_flag,omitempty"`
	SourceFlag      string `json:"source_flag,omitempty"`
	Time            string `json:"time,omitempty"`
}

// StationRecord is one line of the station metadata file.
type StationRecord struct {
	StationID      string `json:"station_id"`
	Name           string `json:"station_name"`
	Lat            string `json:"lat"`
	Lon            string `json:"lon"`
	Elevation      string `json:"elevation"`
	BeginTimestamp string `json:"begin_timestamp"`
	Network        string `json:"network"`
}

// JoinedObservation pairs an observation with one matching station record.
// Both sides carry the station identifier; they are equal by construction.
type JoinedObservation struct {
	Observation WeatherObservation
	Station     StationRecord
}

// AggregateResult is the mean value of one measurement kind over one year.
type AggregateResult struct {
	Year  int     `json:"year"`
	Kind  string  `json:"measurement_kind"`
	Mean  float64 `json:"mean"`
	Count int64   `json:"count"`
}

// YearReport collects the aggregates computed for a single year.
type YearReport struct {
	Year       int               `json:"year"`
	Results    []AggregateResult `json:"results"`
	Missing    []string          `json:"missing,omitempty"` // requested kinds with no rows
	ComputedAt time.Time         `json:"computed_at"`
}

// NewYearReport builds a report stamped with the current time.
func NewYearReport(year int, results []AggregateResult, missing []string) YearReport {
	return YearReport{
		Year:       year,
		Results:    results,
		Missing:    missing,
		ComputedAt: clock.Now().UTC(),
	}
}

// Result returns the aggregate for kind, if present.
func (r YearReport) Result(kind string) (AggregateResult, bool) {
	for _, res := range r.Results {
		if res.Kind == kind {
			return res, true
		}
	}
	return AggregateResult{}, false
}

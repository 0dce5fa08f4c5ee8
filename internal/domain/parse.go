package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	observationFields = 8
	stationFields     = 7
	fieldSeparator    = ","
)

var (
	// ErrFieldCount marks a line whose column count does not match its record type.
	ErrFieldCount = errors.New("unexpected field count")

	// ErrTemperature marks an observation whose value column is not an integer.
	ErrTemperature = errors.New("invalid temperature value")
)

// ParseError describes a line that could not be turned into a record.
type ParseError struct {
	Record string // "observation" or "station"
	Line   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Record, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseObservation maps one observation line to a WeatherObservation by
// column position. The fourth column must be a plain integer.
func ParseObservation(line string) (WeatherObservation, error) {
	f, err := splitFields(line, observationFields)
	if err != nil {
		return WeatherObservation{}, &ParseError{Record: "observation", Line: line, Err: err}
	}

	degc, err := strconv.Atoi(strings.TrimSpace(f[3]))
	if err != nil {
		return WeatherObservation{}, &ParseError{
			Record: "observation",
			Line:   line,
			Err:    fmt.Errorf("%w: %q", ErrTemperature, f[3]),
		}
	}

	return WeatherObservation{
		StationID:       f[0],
		Date:            f[1],
		Kind:            f[2],
		DegreesCelsius:  degc,
		MeasurementFlag: f[4],
		QualityFlag:     f[5],
		SourceFlag:      f[6],
		Time:            f[7],
	}, nil
}

// ParseStation maps one station listing line to a StationRecord.
func ParseStation(line string) (StationRecord, error) {
	f, err := splitFields(line, stationFields)
	if err != nil {
		return StationRecord{}, &ParseError{Record: "station", Line: line, Err: err}
	}

	return StationRecord{
		StationID:      f[0],
		Name:           f[1],
		Lat:            f[2],
		Lon:            f[3],
		Elevation:      f[4],
		BeginTimestamp: f[5],
		Network:        f[6],
	}, nil
}

// splitFields splits line on commas and requires exactly n fields.
func splitFields(line string, n int) ([]string, error) {
	line = strings.TrimSuffix(line, "\r")
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), n)
	}
	return fields, nil
}

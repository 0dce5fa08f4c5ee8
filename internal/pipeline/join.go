package pipeline

import (
	"fmt"

	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/couchcryptid/weather-stats/internal/observability"
)

// JoinStations inner-joins observations with their station records.
// Observations without a station are dropped; a station id listed more than
// once yields one joined row per record.
//
// The broadcast strategy streams observations against the shared index; the
// shuffle strategy hash-partitions both sides by station id first. Both
// produce the same rows.
func JoinStations(obs *dataset.Dataset[domain.WeatherObservation], idx *domain.StationIndex, strategy string, metrics *observability.Metrics) (*dataset.Dataset[domain.JoinedObservation], error) {
	combine := func(o domain.WeatherObservation, s domain.StationRecord) domain.JoinedObservation {
		metrics.RowsJoined.Inc()
		return domain.JoinedObservation{Observation: o, Station: s}
	}
	obsKey := func(o domain.WeatherObservation) string { return o.StationID }

	switch strategy {
	case config.JoinBroadcast, "":
		return dataset.BroadcastJoin("join stations", obs, countingIndex{idx: idx, metrics: metrics}, obsKey, combine), nil
	case config.JoinShuffle:
		stations := dataset.Parallelize(obs.Context(), "stations", idx.Records())
		stationKey := func(s domain.StationRecord) string { return s.StationID }
		return dataset.HashJoin("join stations", obs, stations, obsKey, stationKey, combine), nil
	default:
		return nil, fmt.Errorf("unknown join strategy %q", strategy)
	}
}

// countingIndex records observations that find no station.
type countingIndex struct {
	idx     *domain.StationIndex
	metrics *observability.Metrics
}

func (c countingIndex) Lookup(id string) []domain.StationRecord {
	recs := c.idx.Lookup(id)
	if len(recs) == 0 {
		c.metrics.RecordsUnmatched.Inc()
	}
	return recs
}

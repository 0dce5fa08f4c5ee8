package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/couchcryptid/weather-stats/internal/observability"
	"github.com/couchcryptid/weather-stats/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinedFixture(t *testing.T, obs []domain.WeatherObservation, stations []domain.StationRecord) *dataset.Dataset[domain.JoinedObservation] {
	t.Helper()
	dc := newTestContext(t)
	joined, err := pipeline.JoinStations(
		dataset.Parallelize(dc, "observations", obs),
		domain.NewStationIndex(stations),
		config.JoinBroadcast,
		observability.NewMetricsForTesting(),
	)
	require.NoError(t, err)
	return joined
}

func TestMeanTemperature(t *testing.T) {
	var obs []domain.WeatherObservation
	for i := 1; i <= 100; i++ {
		obs = append(obs, domain.WeatherObservation{StationID: "KXYZ", Kind: domain.KindMaxTemperature, DegreesCelsius: i})
	}
	joined := joinedFixture(t, obs, []domain.StationRecord{{StationID: "KXYZ"}})

	mean, err := pipeline.MeanTemperature(context.Background(), joined, domain.KindMaxTemperature)
	require.NoError(t, err)
	assert.InDelta(t, 50.5, mean, 1e-9)
}

func TestMeanTemperature_NoRows(t *testing.T) {
	obs := []domain.WeatherObservation{{StationID: "KXYZ", Kind: domain.KindMaxTemperature, DegreesCelsius: 3}}
	joined := joinedFixture(t, obs, []domain.StationRecord{{StationID: "KXYZ"}})

	_, err := pipeline.MeanTemperature(context.Background(), joined, domain.KindMinTemperature)
	require.ErrorIs(t, err, domain.ErrNoData)
	assert.Contains(t, err.Error(), domain.KindMinTemperature)
}

func TestMeansByKind_IgnoresUnrequestedKinds(t *testing.T) {
	obs := []domain.WeatherObservation{
		{StationID: "KXYZ", Kind: domain.KindMinTemperature, DegreesCelsius: -4},
		{StationID: "KXYZ", Kind: "PRCP", DegreesCelsius: 12},
		{StationID: "KXYZ", Kind: domain.KindMinTemperature, DegreesCelsius: 2},
	}
	joined := joinedFixture(t, obs, []domain.StationRecord{{StationID: "KXYZ"}})

	means, err := pipeline.MeansByKind(context.Background(), joined, []string{domain.KindMinTemperature, domain.KindMaxTemperature})
	require.NoError(t, err)

	assert.NotContains(t, means, "PRCP")
	v, ok := means[domain.KindMinTemperature].Value()
	require.True(t, ok)
	assert.InDelta(t, -1.0, v, 1e-9)
	_, ok = means[domain.KindMaxTemperature].Value()
	assert.False(t, ok)
}

// --- locator ---

type mockGeocoder struct {
	calls []string
	place string
	err   error
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, lat, lon string) (string, error) {
	m.calls = append(m.calls, lat+","+lon)
	return m.place, m.err
}

func TestLocator_Locate(t *testing.T) {
	idx := domain.NewStationIndex([]domain.StationRecord{{StationID: "KXYZ", Lat: "40.0", Lon: "-75.0"}})
	geo := &mockGeocoder{place: "Philadelphia, PA, USA"}

	place, err := pipeline.NewLocator(idx, geo).Locate(context.Background(), "KXYZ")
	require.NoError(t, err)
	assert.Equal(t, "Philadelphia, PA, USA", place)
	assert.Equal(t, []string{"40.0,-75.0"}, geo.calls)
}

func TestLocator_UnknownStation(t *testing.T) {
	geo := &mockGeocoder{}
	_, err := pipeline.NewLocator(domain.NewStationIndex(nil), geo).Locate(context.Background(), "KNONE")
	require.ErrorIs(t, err, domain.ErrStationNotFound)
	assert.Empty(t, geo.calls, "no request for unknown stations")
}

func TestLocator_GeocoderError(t *testing.T) {
	idx := domain.NewStationIndex([]domain.StationRecord{{StationID: "KXYZ", Lat: "1", Lon: "2"}})
	errUpstream := errors.New("upstream down")

	_, err := pipeline.NewLocator(idx, &mockGeocoder{err: errUpstream}).Locate(context.Background(), "KXYZ")
	require.ErrorIs(t, err, errUpstream)
	assert.Contains(t, err.Error(), `"KXYZ"`)
}


func TestLoaders_StopAtFirstError(t *testing.T) {
	errFirst := errors.New("first failed")
	first := &mockSink{err: errFirst}
	second := &mockSink{}

	err := pipeline.Loaders{first, second}.LoadReport(context.Background(), domain.YearReport{Year: 2000})
	require.ErrorIs(t, err, errFirst)
	assert.Empty(t, second.reports)

	ok := &mockSink{}
	require.NoError(t, pipeline.Loaders{ok, second}.LoadReport(context.Background(), domain.YearReport{Year: 2000}))
	assert.Len(t, ok.reports, 1)
	assert.Len(t, second.reports, 1)
}

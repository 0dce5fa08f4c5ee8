package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-stats/internal/domain"
)

// Locator resolves station identifiers to place names.
type Locator struct {
	stations *domain.StationIndex
	geocoder domain.Geocoder
}

// NewLocator creates a Locator over a loaded station index.
func NewLocator(stations *domain.StationIndex, geocoder domain.Geocoder) *Locator {
	return &Locator{stations: stations, geocoder: geocoder}
}

// Locate returns the place name for stationID. Unknown stations fail with
// domain.ErrStationNotFound before any request is made.
func (l *Locator) Locate(ctx context.Context, stationID string) (string, error) {
	lat, lon, err := l.stations.Coordinates(stationID)
	if err != nil {
		return "", err
	}
	place, err := l.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return "", fmt.Errorf("locate station %q: %w", stationID, err)
	}
	return place, nil
}

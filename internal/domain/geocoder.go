package domain

import "context"

// Geocoder resolves station coordinates to a human-readable place name.
// Coordinates stay in the textual form found in the station file.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon string) (string, error)
}

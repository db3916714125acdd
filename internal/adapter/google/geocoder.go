// Package google resolves marker coordinates to place names with the Google
// Maps Geocoding API.
package google

import (
	"context"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// APIClient is the subset of *maps.Client used by Geocoder.
type APIClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Geocoder implements domain.Geocoder on top of the Google Maps client.
type Geocoder struct {
	client   APIClient
	language string
	log      *slog.Logger
}

// NewGeocoder wraps client.
func NewGeocoder(client APIClient, language string, log *slog.Logger) *Geocoder {
	return &Geocoder{client: client, language: language, log: log}
}

// placeTypes restricts results to settlement-level names.
var placeTypes = []string{"locality", "sublocality", "natural_feature"}

// ReverseGeocode returns the nearest locality for the coordinates. An empty
// response yields an empty result and no error.
func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	g.log.DebugContext(ctx, "reverse geocoding using Google Maps", "lat", lat, "lon", lon)

	req := &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: lat, Lng: lon},
		ResultType: placeTypes,
		Language:   g.language,
	}
	results, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("google reverse geocode: %w", err)
	}
	if len(results) == 0 {
		return domain.GeocodingResult{}, nil
	}

	r := results[0]
	out := domain.GeocodingResult{
		Lat:              r.Geometry.Location.Lat,
		Lon:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		PlaceName:        shortName(r.AddressComponents),
		Confidence:       confidence(r),
	}
	return out, nil
}

func shortName(components []maps.AddressComponent) string {
	for _, want := range placeTypes {
		for _, c := range components {
			for _, t := range c.Types {
				if t == want {
					return c.LongName
				}
			}
		}
	}
	if len(components) > 0 {
		return components[0].LongName
	}
	return ""
}

func confidence(r maps.GeocodingResult) float64 {
	if r.PartialMatch {
		return 0.5
	}
	switch r.Geometry.LocationType {
	case "ROOFTOP":
		return 1
	case "RANGE_INTERPOLATED":
		return 0.9
	case "GEOMETRIC_CENTER":
		return 0.8
	default:
		return 0.7
	}
}

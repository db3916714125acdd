// Package geocoding builds the configured reverse geocoder for marker tooltips.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"googlemaps.github.io/maps"

	"github.com/couchcryptid/snow-profile-map/internal/adapter/google"
	"github.com/couchcryptid/snow-profile-map/internal/adapter/mapbox"
	"github.com/couchcryptid/snow-profile-map/internal/domain"
	"github.com/couchcryptid/snow-profile-map/internal/observability"
)

// ProviderType names a geocoding backend.
type ProviderType string

const (
	// ProviderTypeNone disables geocoding.
	ProviderTypeNone ProviderType = ""
	// ProviderTypeMapbox uses the Mapbox Geocoding API.
	ProviderTypeMapbox ProviderType = "mapbox"
	// ProviderTypeGoogle uses the Google Maps Geocoding API.
	ProviderTypeGoogle ProviderType = "google"
)

// ProviderConfig holds configuration for creating a geocoder.
type ProviderConfig struct {
	Type     ProviderType
	APIKey   string // Mapbox token or Google API key
	Timeout  time.Duration
	Language string
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewProvider returns the geocoder for config.Type, or nil for ProviderTypeNone.
// Non-nil geocoders are instrumented when Metrics is set.
func NewProvider(config ProviderConfig) (domain.Geocoder, error) {
	var (
		g   domain.Geocoder
		err error
	)
	switch config.Type {
	case ProviderTypeNone:
		if config.Metrics != nil {
			config.Metrics.GeocodeEnabled.Set(0)
		}
		return nil, nil //nolint:nilnil // geocoding is optional
	case ProviderTypeMapbox:
		g, err = newMapboxProvider(config)
	case ProviderTypeGoogle:
		g, err = newGoogleProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.Metrics == nil {
		return g, nil
	}
	config.Metrics.GeocodeEnabled.Set(1)
	return NewInstrumented(g, string(config.Type), config.Metrics), nil
}

func newMapboxProvider(config ProviderConfig) (domain.Geocoder, error) {
	if config.APIKey == "" {
		return nil, errors.New("token is required for Mapbox provider")
	}
	var opts []mapbox.Option
	if config.Language != "" {
		opts = append(opts, mapbox.WithLanguage(config.Language))
	}
	return mapbox.NewClient(config.APIKey, config.Timeout, config.Logger, opts...), nil
}

func newGoogleProvider(config ProviderConfig) (domain.Geocoder, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	client, err := maps.NewClient(
		maps.WithAPIKey(config.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return google.NewGeocoder(client, config.Language, config.Logger), nil
}

// Instrumented records request outcomes and latency for a wrapped geocoder.
type Instrumented struct {
	next     domain.Geocoder
	provider string
	metrics  *observability.Metrics
}

// NewInstrumented wraps next.
func NewInstrumented(next domain.Geocoder, provider string, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{next: next, provider: provider, metrics: metrics}
}

// ReverseGeocode delegates to the wrapped geocoder.
func (i *Instrumented) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	start := time.Now()
	res, err := i.next.ReverseGeocode(ctx, lat, lon)
	i.metrics.GeocodeAPIDuration.WithLabelValues(i.provider).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case res.PlaceName == "" && res.FormattedAddress == "":
		outcome = "empty"
	}
	i.metrics.GeocodeRequests.WithLabelValues(i.provider, outcome).Inc()
	return res, err
}

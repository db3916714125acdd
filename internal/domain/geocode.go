package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlaceNames fills the tooltip label of markers whose record had no
// place name. If geocoder is nil or a lookup fails, the marker keeps an empty
// label (graceful degradation).
func EnrichWithPlaceNames(ctx context.Context, markers []Marker, geocoder Geocoder, logger *slog.Logger) []Marker {
	if geocoder == nil {
		return markers
	}

	for i := range markers {
		if markers[i].Label != "" {
			continue
		}
		if ctx.Err() != nil {
			return markers
		}

		result, err := geocoder.ReverseGeocode(ctx, markers[i].Lat(), markers[i].Lon())
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"profile_id", markers[i].ProfileID.String(),
				"lat", markers[i].Lat(),
				"lon", markers[i].Lon(),
				"error", err,
			)
			continue
		}

		switch {
		case result.PlaceName != "":
			markers[i].Label = result.PlaceName
		case result.FormattedAddress != "":
			markers[i].Label = result.FormattedAddress
		}
	}
	return markers
}

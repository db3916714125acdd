package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// MarkerBuilder turns decoded records into colored markers, with optional
// place-name enrichment for records that carry none.
type MarkerBuilder struct {
	rules    domain.Rules
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewMarkerBuilder creates a MarkerBuilder. Pass a nil geocoder to disable
// tooltip enrichment.
func NewMarkerBuilder(rules domain.Rules, geocoder domain.Geocoder, logger *slog.Logger) *MarkerBuilder {
	return &MarkerBuilder{
		rules:    rules,
		geocoder: geocoder,
		logger:   logger,
	}
}

// Build converts every record independently; a record that cannot be plotted
// is counted under its skip reason and never affects its siblings. Skips are
// logged at debug level only.
func (b *MarkerBuilder) Build(ctx context.Context, records []domain.ProfileRecord, now time.Time) ([]domain.Marker, map[domain.SkipReason]int) {
	markers := make([]domain.Marker, 0, len(records))
	skipped := make(map[domain.SkipReason]int)

	for i, rec := range records {
		m, reason := domain.BuildMarker(rec, now, b.rules)
		if reason != domain.SkipNone {
			skipped[reason]++
			b.logger.Debug("profile skipped",
				"index", i,
				"profil_id", rec.ProfileID.String(),
				"reason", string(reason),
			)
			continue
		}
		markers = append(markers, m)
	}

	markers = domain.EnrichWithPlaceNames(ctx, markers, b.geocoder, b.logger)
	return markers, skipped
}

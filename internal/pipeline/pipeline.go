// Package pipeline runs one load-build-write pass that turns the profile feed
// into a map page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
	"github.com/couchcryptid/snow-profile-map/internal/observability"
)

// Source loads the full profile list.
type Source interface {
	LoadProfiles(ctx context.Context) ([]domain.ProfileRecord, error)
	Location() string
}

// PageRenderer writes a map view as a document.
type PageRenderer interface {
	Render(w io.Writer, view domain.MapView) error
}

// Sink stores a rendered page, replacing any previous one.
type Sink interface {
	WritePage(ctx context.Context, render func(io.Writer) error) error
	Location() string
}

// Notifier announces a written map.
type Notifier interface {
	Notify(ctx context.Context, summary domain.RenderSummary) error
}

// MapSettings fixes the initial viewport of every rendered map.
type MapSettings struct {
	Center orb.Point // [lon, lat]
	Zoom   int
	Tiles  string
}

// Renderer orchestrates a render pass.
type Renderer struct {
	source   Source
	builder  *MarkerBuilder
	page     PageRenderer
	sink     Sink
	notifier Notifier
	settings MapSettings
	logger   *slog.Logger
	metrics  *observability.Metrics
	newRunID func() string
	ready    atomic.Bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithNotifier publishes a summary after every written map.
func WithNotifier(n Notifier) Option {
	return func(r *Renderer) { r.notifier = n }
}

// WithRunIDGenerator replaces the random run id source.
func WithRunIDGenerator(fn func() string) Option {
	return func(r *Renderer) { r.newRunID = fn }
}

// New creates a Renderer with the given stages and observability.
func New(src Source, builder *MarkerBuilder, page PageRenderer, sink Sink, settings MapSettings, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Renderer {
	r := &Renderer{
		source:   src,
		builder:  builder,
		page:     page,
		sink:     sink,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckReadiness returns nil once a map has been written.
func (r *Renderer) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no map written yet")
	}
	return nil
}

// Generate performs one render pass. A missing, unreadable or empty input is
// reported through the summary status with a nil error and leaves the output
// untouched. Only a failure to render or store the page returns an error.
func (r *Renderer) Generate(ctx context.Context) (domain.RenderSummary, error) {
	start := time.Now()
	now := domain.Now()

	summary := domain.RenderSummary{
		RunID:       r.newRunID(),
		InputPath:   r.source.Location(),
		GeneratedAt: now,
	}

	records, err := r.source.LoadProfiles(ctx)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProfilesNotFound):
			r.logger.Warn("no profiles file found", "path", r.source.Location())
			return r.finish(summary, domain.StatusInputMissing), nil
		case ctx.Err() != nil:
			return r.finish(summary, domain.StatusFailed), err
		default:
			r.logger.Error("failed to load profiles", "error", err)
			return r.finish(summary, domain.StatusLoadFailed), nil
		}
	}

	summary.Records = len(records)
	r.metrics.RecordsLoaded.Add(float64(len(records)))
	if len(records) == 0 {
		r.logger.Warn("no profiles to map", "path", r.source.Location())
		return r.finish(summary, domain.StatusNoProfiles), nil
	}

	markers, skipped := r.builder.Build(ctx, records, now)
	for reason, n := range skipped {
		r.metrics.RecordsSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
	if len(skipped) > 0 {
		summary.Skipped = skipped
	}

	view := domain.MapView{
		Center:  r.settings.Center,
		Zoom:    r.settings.Zoom,
		Tiles:   r.settings.Tiles,
		Markers: markers,
	}
	if err := r.sink.WritePage(ctx, func(w io.Writer) error {
		return r.page.Render(w, view)
	}); err != nil {
		return r.finish(summary, domain.StatusFailed), fmt.Errorf("write map %s: %w", r.sink.Location(), err)
	}

	summary.OutputPath = r.sink.Location()
	summary.Markers = len(markers)
	summary.Bounds = domain.MarkerBounds(markers)
	for _, m := range markers {
		if m.Color == domain.ColorBlue {
			summary.Recent++
		} else {
			summary.Older++
		}
	}

	r.metrics.MarkersRendered.WithLabelValues(string(domain.ColorBlue)).Add(float64(summary.Recent))
	r.metrics.MarkersRendered.WithLabelValues(string(domain.ColorGrey)).Add(float64(summary.Older))
	r.metrics.MarkersOnLatest.Set(float64(summary.Markers))
	r.metrics.LastSuccess.Set(float64(now.Unix()))
	r.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	r.ready.Store(true)

	r.logger.Info("map generated",
		"path", summary.OutputPath,
		"markers", summary.Markers,
		"recent", summary.Recent,
		"older", summary.Older,
	)

	summary = r.finish(summary, domain.StatusWritten)
	r.notify(ctx, summary)
	return summary, nil
}

func (r *Renderer) finish(summary domain.RenderSummary, status domain.Status) domain.RenderSummary {
	summary.Status = status
	r.metrics.Renders.WithLabelValues(string(status)).Inc()
	return summary
}

func (r *Renderer) notify(ctx context.Context, summary domain.RenderSummary) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, summary); err != nil {
		r.logger.Warn("render notification failed", "error", err, "run_id", summary.RunID)
		r.metrics.NotificationsPublished.WithLabelValues("error").Inc()
		return
	}
	r.metrics.NotificationsPublished.WithLabelValues("success").Inc()
}

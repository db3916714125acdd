package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/snow-profile-map/internal/adapter/geocoding"
	"github.com/couchcryptid/snow-profile-map/internal/adapter/htmlfile"
	"github.com/couchcryptid/snow-profile-map/internal/adapter/jsonfile"
	kafkaadapter "github.com/couchcryptid/snow-profile-map/internal/adapter/kafka"
	"github.com/couchcryptid/snow-profile-map/internal/adapter/leaflet"
	"github.com/couchcryptid/snow-profile-map/internal/config"
	"github.com/couchcryptid/snow-profile-map/internal/domain"
	"github.com/couchcryptid/snow-profile-map/internal/observability"
	"github.com/couchcryptid/snow-profile-map/internal/pipeline"
)

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if msg := err.Error(); msg != "" {
			_, _ = fmt.Fprintln(stderr, msg)
		}
		return 1
	}
	return 0
}

// app is the wired renderer plus the resources it owns.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	renderer *pipeline.Renderer
	closers  []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// newApp wires the file source, page renderer, file sink and the optional
// geocoder and Kafka notifier from cfg. Metrics register with reg.
func newApp(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*app, error) {
	metrics := observability.NewMetrics(reg)

	geocoder, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:     geocoding.ProviderType(cfg.GeocoderProvider),
		APIKey:   geocoderKey(cfg),
		Timeout:  cfg.GeocoderTimeout,
		Language: "de",
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create geocoder: %w", err)
	}
	if geocoder != nil {
		logger.Info("tooltip geocoding enabled", "provider", cfg.GeocoderProvider, "timeout", cfg.GeocoderTimeout)
	}

	a := &app{cfg: cfg, logger: logger}
	var opts []pipeline.Option
	if cfg.NotificationsEnabled() {
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		a.closers = append(a.closers, w)
		opts = append(opts, pipeline.WithNotifier(w))
		logger.Info("render notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	rules := domain.Rules{RecentWindow: cfg.RecentWindow, Location: cfg.Location}
	a.renderer = pipeline.New(
		jsonfile.NewSource(cfg.InputPath, logger),
		pipeline.NewMarkerBuilder(rules, geocoder, logger),
		leaflet.NewRenderer(),
		htmlfile.NewWriter(cfg.OutputPath, logger),
		pipeline.MapSettings{
			Center: orb.Point{cfg.CenterLongitude, cfg.CenterLatitude},
			Zoom:   cfg.ZoomLevel,
			Tiles:  cfg.TileLayer,
		},
		logger,
		metrics,
		opts...,
	)
	return a, nil
}

func geocoderKey(cfg *config.Config) string {
	switch cfg.GeocoderProvider {
	case config.GeocoderMapbox:
		return cfg.MapboxToken
	case config.GeocoderGoogle:
		return cfg.GoogleMapsAPIKey
	default:
		return ""
	}
}

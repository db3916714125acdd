package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Defaults for the Oberstdorf overview map.
const (
	DefaultCenterLatitude  = 47.4099
	DefaultCenterLongitude = 10.2797
	DefaultZoomLevel       = 11

	profilesFileName = "recent_profiles.json"
	mapFileName      = "map.html"
)

// Geocoder providers accepted in GEOCODER_PROVIDER.
const (
	GeocoderNone   = ""
	GeocoderMapbox = "mapbox"
	GeocoderGoogle = "google"
)

// Config holds all renderer settings, populated from environment variables.
type Config struct {
	InputPath       string
	OutputPath      string
	CenterLatitude  float64
	CenterLongitude float64
	ZoomLevel       int
	TileLayer       string
	RecentWindow    time.Duration
	Location        *time.Location

	LogLevel        string
	LogFormat       string
	MetricsTextfile string

	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Reverse geocoding for tooltip labels; disabled when GeocoderProvider is empty.
	GeocoderProvider string
	MapboxToken      string
	GoogleMapsAPIKey string
	GeocoderTimeout  time.Duration

	// Render notifications; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is honored but never overrides
// variables that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	centerLat, err := parseFloatEnv("CENTER_LATITUDE", DefaultCenterLatitude)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloatEnv("CENTER_LONGITUDE", DefaultCenterLongitude)
	if err != nil {
		return nil, err
	}

	zoom, err := strconv.Atoi(sharedcfg.EnvOrDefault("ZOOM_LEVEL", strconv.Itoa(DefaultZoomLevel)))
	if err != nil {
		return nil, errors.New("invalid ZOOM_LEVEL")
	}

	window, err := time.ParseDuration(sharedcfg.EnvOrDefault("RECENT_WINDOW", "24h"))
	if err != nil || window <= 0 {
		return nil, errors.New("invalid RECENT_WINDOW")
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("PROFILE_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_TIMEZONE: %w", err)
	}

	geocoderTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODER_TIMEOUT", "5s"))
	if err != nil || geocoderTimeout <= 0 {
		return nil, errors.New("invalid GEOCODER_TIMEOUT")
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")
	archiveDir := sharedcfg.EnvOrDefault("ARCHIVE_DIR", "archive")

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		InputPath:       sharedcfg.EnvOrDefault("INPUT_PATH", filepath.Join(dataDir, profilesFileName)),
		OutputPath:      sharedcfg.EnvOrDefault("OUTPUT_PATH", filepath.Join(archiveDir, "profiles", mapFileName)),
		CenterLatitude:  centerLat,
		CenterLongitude: centerLon,
		ZoomLevel:       zoom,
		TileLayer:       sharedcfg.EnvOrDefault("TILE_LAYER", "OpenStreetMap"),
		RecentWindow:    window,
		Location:        loc,

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderProvider: strings.ToLower(strings.TrimSpace(os.Getenv("GEOCODER_PROVIDER"))),
		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeocoderTimeout:  geocoderTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "profile-map-rendered"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that can also be changed after Load, e.g. by
// command-line flags.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return errors.New("INPUT_PATH must not be empty")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.New("OUTPUT_PATH must not be empty")
	}
	if c.CenterLatitude < -90 || c.CenterLatitude > 90 {
		return errors.New("CENTER_LATITUDE must be within [-90, 90]")
	}
	if c.CenterLongitude < -180 || c.CenterLongitude > 180 {
		return errors.New("CENTER_LONGITUDE must be within [-180, 180]")
	}
	if c.ZoomLevel < 0 || c.ZoomLevel > 20 {
		return errors.New("ZOOM_LEVEL must be within [0, 20]")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.New("LOG_FORMAT must be text or json")
	}
	switch c.GeocoderProvider {
	case GeocoderNone:
	case GeocoderMapbox:
		if c.MapboxToken == "" {
			return errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	case GeocoderGoogle:
		if c.GoogleMapsAPIKey == "" {
			return errors.New("GEOCODER_PROVIDER is google but GOOGLE_MAPS_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unsupported GEOCODER_PROVIDER %q", c.GeocoderProvider)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// NotificationsEnabled reports whether render summaries are published.
func (c *Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

// Package cli implements the profilemap command tree.
package cli

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/couchcryptid/snow-profile-map/internal/config"
	"github.com/couchcryptid/snow-profile-map/internal/observability"
)

type globalFlags struct {
	Input        string
	Output       string
	CenterLat    float64
	CenterLon    float64
	Zoom         int
	Tiles        string
	RecentWindow time.Duration
	LogLevel     string
	LogFormat    string
	Summary      string
}

// NewRootCommand builds the complete command tree. Without a subcommand the
// root renders the map once and exits.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "profilemap",
		Short:         "Render recent snow profiles as an interactive map.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Input, "input", "i", "", "Profiles JSON file (env INPUT_PATH).")
	pf.StringVarP(&flags.Output, "output", "o", "", "Map HTML file to write (env OUTPUT_PATH).")
	pf.Float64Var(&flags.CenterLat, "center-lat", config.DefaultCenterLatitude, "Map center latitude (env CENTER_LATITUDE).")
	pf.Float64Var(&flags.CenterLon, "center-lon", config.DefaultCenterLongitude, "Map center longitude (env CENTER_LONGITUDE).")
	pf.IntVar(&flags.Zoom, "zoom", config.DefaultZoomLevel, "Initial zoom level (env ZOOM_LEVEL).")
	pf.StringVar(&flags.Tiles, "tiles", "", "Tile layer name or URL template (env TILE_LAYER).")
	pf.DurationVar(&flags.RecentWindow, "recent-window", 0, "Age below which profiles are drawn blue (env RECENT_WINDOW).")
	pf.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL).")
	pf.StringVar(&flags.LogFormat, "log-format", "", "text or json (env LOG_FORMAT).")
	root.Flags().StringVar(&flags.Summary, "summary", "", "Print the run summary to stdout: json or yaml.")

	root.AddCommand(newServeCommand(flags))
	return root
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(fs *pflag.FlagSet, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if fs.Changed("input") {
		cfg.InputPath = flags.Input
	}
	if fs.Changed("output") {
		cfg.OutputPath = flags.Output
	}
	if fs.Changed("center-lat") {
		cfg.CenterLatitude = flags.CenterLat
	}
	if fs.Changed("center-lon") {
		cfg.CenterLongitude = flags.CenterLon
	}
	if fs.Changed("zoom") {
		cfg.ZoomLevel = flags.Zoom
	}
	if fs.Changed("tiles") {
		cfg.TileLayer = flags.Tiles
	}
	if fs.Changed("recent-window") {
		if flags.RecentWindow <= 0 {
			return nil, errors.New("--recent-window must be positive")
		}
		cfg.RecentWindow = flags.RecentWindow
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = flags.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRender(cmd *cobra.Command, flags *globalFlags) error {
	format, err := ParseSummaryFormat(flags.Summary)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd.Flags(), flags)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	reg := prometheus.NewRegistry()

	a, err := newApp(cfg, logger, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}()

	summary, renderErr := a.renderer.Generate(cmd.Context())

	if cfg.MetricsTextfile != "" {
		if err := observability.WriteTextfile(cfg.MetricsTextfile, reg); err != nil {
			logger.Warn("metrics textfile not written", "path", cfg.MetricsTextfile, "error", err)
		}
	}
	if err := WriteSummary(cmd.OutOrStdout(), summary, format); err != nil {
		return err
	}
	return renderErr
}

// Command validate checks a rendered map against the profiles file it was
// generated from: every plottable record must appear exactly once with the
// expected position, color, style and popup, and nothing else may be drawn.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -input data/recent_profiles.json \
//	  -map archive/profiles/map.html \
//	  -now "2024-01-10 12:00:00"
//
// Without -now the map file's modification time is used as the render time.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/snow-profile-map/internal/adapter/leaflet"
	"github.com/couchcryptid/snow-profile-map/internal/config"
	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

const coordEpsilon = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "", "path to the profiles JSON file")
	mapPath := flag.String("map", "", "path to the rendered map HTML")
	nowStr := flag.String("now", "", "render time in "+domain.DatumLayout+" (default: map mtime)")
	tz := flag.String("tz", "Local", "timezone of datum values")
	centerLat := flag.Float64("center-lat", config.DefaultCenterLatitude, "expected center latitude")
	centerLon := flag.Float64("center-lon", config.DefaultCenterLongitude, "expected center longitude")
	zoom := flag.Int("zoom", config.DefaultZoomLevel, "expected zoom level")
	flag.Parse()

	if *input == "" || *mapPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid -tz: %v\n", err)
		os.Exit(1)
	}

	opts := options{
		inputPath: *input,
		mapPath:   *mapPath,
		loc:       loc,
		centerLat: *centerLat,
		centerLon: *centerLon,
		zoom:      *zoom,
	}
	if *nowStr != "" {
		opts.now, err = time.ParseInLocation(domain.DatumLayout, *nowStr, loc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: invalid -now: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(run(opts))
}

type options struct {
	inputPath string
	mapPath   string
	now       time.Time
	loc       *time.Location
	centerLat float64
	centerLon float64
	zoom      int
}

func run(opts options) int {
	fmt.Println("=== Snow Profile Map Validation ===")
	fmt.Println()

	data, err := os.ReadFile(opts.inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read profiles: %v\n", err)
		return 1
	}
	records, err := domain.DecodeProfiles(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode profiles: %v\n", err)
		return 1
	}

	f, err := os.Open(opts.mapPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open map: %v\n", err)
		return 1
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: stat map: %v\n", err)
		return 1
	}
	page, err := leaflet.ReadPage(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read map: %v\n", err)
		return 1
	}

	if opts.now.IsZero() {
		opts.now = info.ModTime()
	}
	domain.SetClock(clockwork.NewFakeClockAt(opts.now))
	defer domain.SetClock(nil)

	rules := domain.Rules{RecentWindow: domain.DefaultRecentWindow, Location: opts.loc}
	var expected []domain.Marker
	skips := map[domain.SkipReason]int{}
	for _, rec := range records {
		m, reason := domain.BuildMarker(rec, domain.Now(), rules)
		if reason != domain.SkipNone {
			skips[reason]++
			continue
		}
		expected = append(expected, m)
	}

	phases := []*phase{
		validateMapSettings(page, opts),
		validateCoverage(page, expected),
		validateStyling(page, expected),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d input, %d plottable, %d drawn (skipped: %d coordinates, %d datum, %d invalid)\n",
		len(records), len(expected), len(page.Markers),
		skips[domain.SkipMissingCoordinates], skips[domain.SkipInvalidDatum], skips[domain.SkipInvalidRecord])

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println("All checks passed.")
	return 0
}

func validateMapSettings(page leaflet.Page, opts options) *phase {
	p := &phase{name: "Map settings (center, zoom, tiles)"}
	if math.Abs(page.CenterLat-opts.centerLat) > coordEpsilon || math.Abs(page.CenterLon-opts.centerLon) > coordEpsilon {
		p.errorf("center = (%f, %f), want (%f, %f)", page.CenterLat, page.CenterLon, opts.centerLat, opts.centerLon)
	}
	if page.Zoom != opts.zoom {
		p.errorf("zoom = %d, want %d", page.Zoom, opts.zoom)
	}
	if page.Tiles.URL == "" {
		p.errorf("no tile layer URL")
	}
	return p
}

func validateCoverage(page leaflet.Page, expected []domain.Marker) *phase {
	p := &phase{name: "Marker coverage (one per plottable record)"}
	if len(page.Markers) != len(expected) {
		p.errorf("drawn %d markers, want %d", len(page.Markers), len(expected))
	}
	n := min(len(page.Markers), len(expected))
	for i := range n {
		got, want := page.Markers[i], expected[i]
		if got.ProfileID != want.ProfileID.String() {
			p.errorf("marker %d: profile %q, want %q", i, got.ProfileID, want.ProfileID.String())
		}
		if math.Abs(got.Lat-want.Lat()) > coordEpsilon || math.Abs(got.Lon-want.Lon()) > coordEpsilon {
			p.errorf("marker %d (%s): at (%f, %f), want (%f, %f)", i, got.ProfileID, got.Lat, got.Lon, want.Lat(), want.Lon())
		}
	}
	return p
}

func validateStyling(page leaflet.Page, expected []domain.Marker) *phase {
	p := &phase{name: "Marker styling (color, radius, popup)"}
	n := min(len(page.Markers), len(expected))
	for i := range n {
		got, want := page.Markers[i], expected[i]
		if got.Color != string(want.Color) || got.FillColor != string(want.Color) {
			p.errorf("marker %d (%s): color %s/%s, want %s (age %s)", i, got.ProfileID, got.Color, got.FillColor, want.Color, want.Age.Round(time.Second))
		}
		if got.Radius != domain.MarkerRadius {
			p.errorf("marker %d: radius %d, want %d", i, got.Radius, domain.MarkerRadius)
		}
		if math.Abs(got.FillOpacity-domain.MarkerFillOpacity) > 1e-9 {
			p.errorf("marker %d: fill opacity %g, want %g", i, got.FillOpacity, domain.MarkerFillOpacity)
		}
		if got.PopupMaxWidth != domain.PopupMaxWidth {
			p.errorf("marker %d: popup max width %d, want %d", i, got.PopupMaxWidth, domain.PopupMaxWidth)
		}
		if got.Popup != want.PopupHTML() {
			p.errorf("marker %d: popup %q, want %q", i, got.Popup, want.PopupHTML())
		}
	}
	return p
}

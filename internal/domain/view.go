package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// TileLayerOpenStreetMap is the standard OpenStreetMap tile layer name.
const TileLayerOpenStreetMap = "OpenStreetMap"

// MapView is everything a page renderer needs to draw one map.
type MapView struct {
	Center  orb.Point // [lon, lat]
	Zoom    int
	Tiles   string
	Markers []Marker
}

// Status is the outcome of one render pass.
type Status string

const (
	StatusWritten      Status = "written"
	StatusInputMissing Status = "input_missing"
	StatusLoadFailed   Status = "load_failed"
	StatusNoProfiles   Status = "no_profiles"
	// StatusFailed is reported when the page could not be rendered or written.
	StatusFailed Status = "failed"
)

// RenderSummary describes one render pass. It is printed by the CLI on request
// and published to the notification topic after a successful write.
type RenderSummary struct {
	RunID       string             `json:"run_id" yaml:"run_id"`
	Status      Status             `json:"status" yaml:"status"`
	InputPath   string             `json:"input_path" yaml:"input_path"`
	OutputPath  string             `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Records     int                `json:"records" yaml:"records"`
	Markers     int                `json:"markers" yaml:"markers"`
	Recent      int                `json:"recent" yaml:"recent"`
	Older       int                `json:"older" yaml:"older"`
	Skipped     map[SkipReason]int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Bounds is [west, south, east, north] of the plotted markers.
	Bounds []float64 `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// MarkerBounds returns the bounding box of the markers as
// [west, south, east, north], or nil when there are none.
func MarkerBounds(markers []Marker) []float64 {
	if len(markers) == 0 {
		return nil
	}
	points := make(orb.MultiPoint, 0, len(markers))
	for _, m := range markers {
		points = append(points, m.Position)
	}
	b := points.Bound()
	return []float64{b.Left(), b.Bottom(), b.Right(), b.Top()}
}

// Package leaflet renders a profile map as a self-contained Leaflet HTML page.
//
// Markers are embedded as a GeoJSON FeatureCollection in a JSON data block and
// drawn client-side as circle markers, so the page can be read back with
// ReadPage.
package leaflet

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// LeafletVersion is the Leaflet release loaded from unpkg.
const LeafletVersion = "1.9.4"

// DefaultTitle is the document title of rendered maps.
const DefaultTitle = "Snow Profiles"

//go:embed template.html
var pageTemplate string

var page = template.Must(template.New("map").Parse(pageTemplate))

// Feature property keys.
const (
	propProfileID     = "profileId"
	propDatum         = "datum"
	propColor         = "color"
	propFillColor     = "fillColor"
	propFillOpacity   = "fillOpacity"
	propRadius        = "radius"
	propPopup         = "popup"
	propPopupMaxWidth = "popupMaxWidth"
	propTooltip       = "tooltip"
	propElevation     = "elevation"
	propAspect        = "aspect"
	propSlope         = "slope"
	propRegion        = "region"
)

// Renderer writes map pages. The zero value is not usable; use NewRenderer.
type Renderer struct {
	title string
	newID func() string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTitle overrides the document title.
func WithTitle(title string) Option {
	return func(r *Renderer) { r.title = title }
}

// WithIDGenerator replaces the random element id source, e.g. for golden output.
func WithIDGenerator(fn func() string) Option {
	return func(r *Renderer) { r.newID = fn }
}

// NewRenderer creates a page renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		title: DefaultTitle,
		newID: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pageData struct {
	Title          string
	LeafletVersion string
	MapID          string
	DataID         string
	Data           template.JS
}

// mapConfig is the JSON document embedded in the page.
type mapConfig struct {
	Center  [2]float64                 `json:"center"` // [lat, lon]
	Zoom    int                        `json:"zoom"`
	Tiles   TileSource                 `json:"tiles"`
	Markers *geojson.FeatureCollection `json:"markers"`
}

// Render writes the HTML page for view to w.
func (r *Renderer) Render(w io.Writer, view domain.MapView) error {
	tiles, err := ResolveTiles(view.Tiles)
	if err != nil {
		return fmt.Errorf("render map: %w", err)
	}

	cfg := mapConfig{
		Center:  [2]float64{view.Center.Lat(), view.Center.Lon()},
		Zoom:    view.Zoom,
		Tiles:   tiles,
		Markers: FeatureCollection(view.Markers),
	}
	// json.Marshal escapes <, > and & so the payload cannot close the script element.
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode map data: %w", err)
	}

	id := r.newID()
	data := pageData{
		Title:          r.title,
		LeafletVersion: LeafletVersion,
		MapID:          "map_" + id,
		DataID:         "profiles_" + id,
		Data:           template.JS(raw), //nolint:gosec // produced by json.Marshal with HTML escaping
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("execute map template: %w", err)
	}
	return nil
}

// FeatureCollection converts markers to GeoJSON point features carrying their
// style, popup and tooltip as properties.
func FeatureCollection(markers []domain.Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewFeature(m.Position)
		if m.ProfileID.IsSet() {
			f.ID = m.ProfileID.String()
		}
		f.Properties[propProfileID] = m.ProfileID.String()
		f.Properties[propDatum] = m.Datum
		f.Properties[propColor] = string(m.Color)
		f.Properties[propFillColor] = string(m.Color)
		f.Properties[propFillOpacity] = domain.MarkerFillOpacity
		f.Properties[propRadius] = domain.MarkerRadius
		f.Properties[propPopup] = m.PopupHTML()
		f.Properties[propPopupMaxWidth] = domain.PopupMaxWidth
		if m.Label != "" {
			f.Properties[propTooltip] = m.Label
		}
		for key, v := range map[string]string{
			propElevation: m.Elevation,
			propAspect:    m.Aspect,
			propSlope:     m.Slope,
			propRegion:    m.Region,
		} {
			if v != "" {
				f.Properties[key] = v
			}
		}
		fc.Append(f)
	}
	if b := domain.MarkerBounds(markers); b != nil {
		fc.BBox = geojson.NewBBox(orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}})
	}
	return fc
}

package leaflet

import (
	"fmt"
	"strings"
)

// TileSource describes a slippy-map tile layer.
type TileSource struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

var namedTiles = map[string]TileSource{
	"openstreetmap": {
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     19,
	},
	"opentopomap": {
		URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: `Map data: &copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors, <a href="https://opentopomap.org">OpenTopoMap</a> (CC-BY-SA)`,
		MaxZoom:     17,
	},
	"cartodbpositron": {
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
}

// ResolveTiles maps a tile layer name (case-insensitive) to its source. A
// value containing "{z}" is taken as a custom URL template.
func ResolveTiles(name string) (TileSource, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	if ts, ok := namedTiles[key]; ok {
		return ts, nil
	}
	if strings.Contains(name, "{z}") {
		return TileSource{URL: strings.TrimSpace(name), MaxZoom: 19}, nil
	}
	return TileSource{}, fmt.Errorf("unknown tile layer %q", name)
}

package leaflet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/paulmach/orb/geojson"
)

// ErrNoMapData is returned by ReadPage when the document has no embedded map data.
var ErrNoMapData = errors.New("no profile map data in page")

// Page is the map data recovered from a rendered document.
type Page struct {
	Title     string
	MapID     string
	CenterLat float64
	CenterLon float64
	Zoom      int
	Tiles     TileSource
	Markers   []PageMarker
}

// PageMarker is one circle marker as it appears in a rendered page.
type PageMarker struct {
	ProfileID     string
	Lat           float64
	Lon           float64
	Datum         string
	Color         string
	FillColor     string
	FillOpacity   float64
	Radius        int
	Popup         string
	PopupMaxWidth int
	Tooltip       string
	Elevation     string
	Aspect        string
	Slope         string
	Region        string
}

// ReadPage parses a page produced by Renderer.Render.
func ReadPage(r io.Reader) (Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}

	var (
		p       Page
		rawData string
		found   bool
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				p.Title = textContent(n)
			case atom.Div:
				if attr(n, "class") == "leaflet-map" {
					p.MapID = attr(n, "id")
				}
			case atom.Script:
				if attr(n, "data-role") == "profile-map" {
					rawData = textContent(n)
					found = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !found {
		return Page{}, ErrNoMapData
	}

	var cfg struct {
		Center  [2]float64      `json:"center"`
		Zoom    int             `json:"zoom"`
		Tiles   TileSource      `json:"tiles"`
		Markers json.RawMessage `json:"markers"`
	}
	if err := json.Unmarshal([]byte(rawData), &cfg); err != nil {
		return Page{}, fmt.Errorf("decode map data: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(cfg.Markers)
	if err != nil {
		return Page{}, fmt.Errorf("decode markers: %w", err)
	}

	p.CenterLat, p.CenterLon = cfg.Center[0], cfg.Center[1]
	p.Zoom = cfg.Zoom
	p.Tiles = cfg.Tiles
	p.Markers = make([]PageMarker, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt := f.Point()
		p.Markers = append(p.Markers, PageMarker{
			ProfileID:     f.Properties.MustString(propProfileID, ""),
			Lat:           pt.Lat(),
			Lon:           pt.Lon(),
			Datum:         f.Properties.MustString(propDatum, ""),
			Color:         f.Properties.MustString(propColor, ""),
			FillColor:     f.Properties.MustString(propFillColor, ""),
			FillOpacity:   f.Properties.MustFloat64(propFillOpacity, 0),
			Radius:        f.Properties.MustInt(propRadius, 0),
			Popup:         f.Properties.MustString(propPopup, ""),
			PopupMaxWidth: f.Properties.MustInt(propPopupMaxWidth, 0),
			Tooltip:       f.Properties.MustString(propTooltip, ""),
			Elevation:     f.Properties.MustString(propElevation, ""),
			Aspect:        f.Properties.MustString(propAspect, ""),
			Slope:         f.Properties.MustString(propSlope, ""),
			Region:        f.Properties.MustString(propRegion, ""),
		})
	}
	return p, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

package domain

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Color is the marker fill and stroke color.
type Color string

const (
	// ColorBlue marks profiles recorded within the recent window.
	ColorBlue Color = "blue"
	// ColorGrey marks older profiles.
	ColorGrey Color = "grey"
)

// Marker presentation constants shared by every rendered profile.
const (
	MarkerRadius      = 8
	MarkerFillOpacity = 0.7
	PopupMaxWidth     = 200
)

// AbsentProfileLink is the popup link of a record with an absent or null profil_id.
const AbsentProfileLink = "None.html"

// DefaultRecentWindow is the age below which a profile is drawn blue.
const DefaultRecentWindow = 24 * time.Hour

// SkipReason explains why a record produced no marker.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipInvalidRecord      SkipReason = "invalid_record"
	SkipMissingCoordinates SkipReason = "missing_coordinates"
	SkipInvalidDatum       SkipReason = "invalid_datum"
)

// Rules parameterize how records become markers.
type Rules struct {
	// RecentWindow is the exclusive upper bound on age for the blue bucket.
	RecentWindow time.Duration
	// Location interprets the zone-less datum values. Nil means time.Local.
	Location *time.Location
}

// DefaultRules returns the 24 hour window in the local zone.
func DefaultRules() Rules {
	return Rules{RecentWindow: DefaultRecentWindow, Location: time.Local}
}

// Marker is a plotted profile.
type Marker struct {
	ProfileID  ProfileID
	Position   orb.Point // [lon, lat]
	Datum      string    // raw, unparsed timestamp text shown in the popup
	RecordedAt time.Time
	Age        time.Duration
	Color      Color
	// Label is the tooltip text: the record's place name, or a geocoded one.
	Label     string
	Elevation string
	Aspect    string
	Slope     string
	Region    string
}

// Lat returns the marker latitude.
func (m Marker) Lat() float64 { return m.Position.Lat() }

// Lon returns the marker longitude.
func (m Marker) Lon() float64 { return m.Position.Lon() }

// Link returns the relative URL of the profile detail page. A record without
// an identifier links to "None.html", the page name the profile exporter has
// always produced for it.
func (m Marker) Link() string {
	if !m.ProfileID.IsSet() {
		return AbsentProfileLink
	}
	return m.ProfileID.String() + ".html"
}

// PopupHTML returns the popup body: a link to the profile page that opens in a
// new browsing context, labelled "View Profile" and the raw datum.
func (m Marker) PopupHTML() string {
	return fmt.Sprintf(
		`<a href="%s" target="_blank" style="font-size:14px; font-weight:bold;">View Profile<br>%s</a>`,
		html.EscapeString(m.Link()),
		html.EscapeString(m.Datum),
	)
}

// ClassifyAge picks the marker color for a profile of the given age. Negative
// ages (timestamps in the future) fall in the recent bucket.
func ClassifyAge(age, window time.Duration) Color {
	if age < window {
		return ColorBlue
	}
	return ColorGrey
}

// BuildMarker turns one record into a marker colored against now. The second
// return value is SkipNone on success, otherwise the reason the record is not
// plotted.
func BuildMarker(rec ProfileRecord, now time.Time, rules Rules) (Marker, SkipReason) {
	if !rec.Valid {
		return Marker{}, SkipInvalidRecord
	}
	if !rec.HasCoordinates() {
		return Marker{}, SkipMissingCoordinates
	}

	recordedAt, err := ParseDatum(rec.Datum, rules.Location)
	if err != nil {
		return Marker{}, SkipInvalidDatum
	}

	window := rules.RecentWindow
	if window <= 0 {
		window = DefaultRecentWindow
	}
	age := now.Sub(recordedAt)

	m := Marker{
		ProfileID:  rec.ProfileID,
		Position:   orb.Point{rec.Longitude.Value, rec.Latitude.Value},
		Datum:      *rec.Datum,
		RecordedAt: recordedAt,
		Age:        age,
		Color:      ClassifyAge(age, window),
		Label:      rec.PlaceName(),
		Aspect:     rec.AspectText(),
		Slope:      rec.SlopeText(),
		Region:     rec.Region(),
	}
	if rec.Elevation != nil {
		m.Elevation = strings.TrimSpace(rec.Elevation.String())
	}
	return m, SkipNone
}

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrProfilesNotFound is returned when the profiles file does not exist.
	ErrProfilesNotFound = errors.New("profiles file not found")
	// ErrProfilesUnreadable is returned when the profiles file exists but cannot be read.
	ErrProfilesUnreadable = errors.New("profiles file is unreadable")
	// ErrProfilesMalformed is returned when the profiles payload is not a JSON array.
	ErrProfilesMalformed = errors.New("profiles file is malformed")
)

// Coordinate is an optional latitude or longitude value.
//
// The upstream feed is loosely typed, so a coordinate may be absent, null,
// a number or a numeric string. Anything else decodes as an absent value
// instead of failing the whole document.
type Coordinate struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	*c = Coordinate{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil //nolint:nilerr // malformed strings are treated as missing
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil //nolint:nilerr // non-numeric strings are treated as missing
		}
		*c = Coordinate{Value: v, Set: true}
	case 't', 'f', '{', '[':
		// Booleans, objects and arrays carry no coordinate.
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil //nolint:nilerr // out-of-range numbers are treated as missing
		}
		*c = Coordinate{Value: v, Set: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// Truthy reports whether the coordinate is present and non-zero.
//
// A value of exactly 0 is indistinguishable from a missing one: records on the
// equator or the prime meridian are skipped like records without coordinates.
func (c Coordinate) Truthy() bool {
	return c.Set && c.Value != 0
}

// ProfileID is the opaque identifier of a snow profile. It is kept verbatim:
// strings are used as-is and numbers keep their JSON text, so 1234 links to
// "1234.html".
type ProfileID struct {
	raw string
	set bool
}

// NewProfileID returns a present identifier with the given text.
func NewProfileID(s string) ProfileID {
	return ProfileID{raw: s, set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ProfileID) UnmarshalJSON(data []byte) error {
	*p = ProfileID{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode profil_id: %w", err)
		}
		*p = ProfileID{raw: s, set: true}
		return nil
	}
	*p = ProfileID{raw: string(data), set: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p ProfileID) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("null"), nil
	}
	return json.Marshal(p.raw)
}

// String returns the identifier text, or the empty string when absent. See
// Marker.Link for how an absent identifier is linked.
func (p ProfileID) String() string {
	return p.raw
}

// IsSet reports whether the record carried a non-null identifier.
func (p ProfileID) IsSet() bool {
	return p.set
}

// ProfileRecord is one entry of recent_profiles.json as produced by the
// upstream profile fetcher. Only the fields the map needs are typed; the
// descriptive fields are optional and passed through to marker properties.
type ProfileRecord struct {
	Latitude  Coordinate `json:"latitude"`
	Longitude Coordinate `json:"longitude"`
	Datum     *string    `json:"datum,omitempty"`
	ProfileID ProfileID  `json:"profil_id"`

	Place      *string          `json:"ort,omitempty"`
	Elevation  *json.Number     `json:"seehoehe,omitempty"`
	Aspect     *json.RawMessage `json:"exposition,omitempty"`
	Slope      *json.RawMessage `json:"neigung,omitempty"`
	RegionName *string          `json:"region,omitempty"`

	// Valid is false when the array element could not be decoded as an object.
	// Such records are skipped like any other malformed record.
	Valid bool `json:"-"`
}

// AspectText returns "exposition" as display text: strings unquoted, numbers
// verbatim, "" when absent or null.
func (r ProfileRecord) AspectText() string { return rawText(r.Aspect) }

// SlopeText returns "neigung" as display text, like AspectText.
func (r ProfileRecord) SlopeText() string { return rawText(r.Slope) }

// Region returns the trimmed "region" value or "" when absent.
func (r ProfileRecord) Region() string {
	if r.RegionName == nil {
		return ""
	}
	return strings.TrimSpace(*r.RegionName)
}

func rawText(raw *json.RawMessage) string {
	if raw == nil {
		return ""
	}
	v := bytes.TrimSpace(*raw)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	if v[0] == '{' || v[0] == '[' {
		return ""
	}
	return string(v)
}

// HasCoordinates reports whether both coordinates are usable for plotting.
func (r ProfileRecord) HasCoordinates() bool {
	return r.Latitude.Truthy() && r.Longitude.Truthy()
}

// PlaceName returns the trimmed "ort" value or "" when absent.
func (r ProfileRecord) PlaceName() string {
	if r.Place == nil {
		return ""
	}
	return strings.TrimSpace(*r.Place)
}

// DecodeProfiles parses a recent_profiles.json payload.
//
// The document should be a JSON array. Empty documents (null, false, 0, "" and
// {}) decode to no records, like an empty array. Any other non-array is
// reported as ErrProfilesMalformed. Individual elements that fail to decode do
// not fail the document: they come back with Valid=false so the caller can
// skip them.
func DecodeProfiles(data []byte) ([]ProfileRecord, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && isEmptyDocument(data) {
			return []ProfileRecord{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrProfilesMalformed, err)
	}
	if elems == nil {
		// A literal null decodes to a nil slice without error.
		return []ProfileRecord{}, nil
	}

	records := make([]ProfileRecord, 0, len(elems))
	for _, elem := range elems {
		records = append(records, decodeRecord(elem))
	}
	return records, nil
}

// isEmptyDocument reports whether data is a JSON value with no content.
func isEmptyDocument(data []byte) bool {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	switch v := doc.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func decodeRecord(elem json.RawMessage) ProfileRecord {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ProfileRecord{}
	}

	var rec ProfileRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		// Salvage what we can: a wrongly typed descriptive field should not
		// hide an otherwise plottable profile.
		return decodeRecordFields(trimmed)
	}
	rec.Valid = true
	return rec
}

// decodeRecordFields decodes field by field, dropping the ones with the wrong type.
func decodeRecordFields(obj []byte) ProfileRecord {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return ProfileRecord{}
	}

	rec := ProfileRecord{Valid: true}
	_ = rec.Latitude.UnmarshalJSON(fields["latitude"])
	_ = rec.Longitude.UnmarshalJSON(fields["longitude"])
	if raw, ok := fields["profil_id"]; ok {
		_ = rec.ProfileID.UnmarshalJSON(raw)
	}
	rec.Datum = optionalString(fields["datum"])
	rec.Place = optionalString(fields["ort"])
	rec.RegionName = optionalString(fields["region"])
	rec.Aspect = optionalRaw(fields["exposition"])
	rec.Slope = optionalRaw(fields["neigung"])
	return rec
}

func optionalRaw(raw json.RawMessage) *json.RawMessage {
	if raw == nil {
		return nil
	}
	return &raw
}

func optionalString(raw json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

package domain

import (
	"errors"
	"fmt"
	"time"
)

// DatumLayout is the timestamp layout of the "datum" field: YYYY-MM-DD HH:mm:ss.
const DatumLayout = "2006-01-02 15:04:05"

// ErrMissingDatum is returned by ParseDatum for an absent timestamp.
var ErrMissingDatum = errors.New("datum is missing")

// ErrDatumLayout is returned by ParseDatum for a value longer or shorter than
// DatumLayout.
var ErrDatumLayout = errors.New("datum does not match " + DatumLayout)

// ParseDatum parses a profile timestamp with the exact DatumLayout. The feed
// carries no zone, so the wall-clock value is interpreted in loc (time.Local
// when nil). Values with fractional seconds or unpadded fields are rejected.
func ParseDatum(datum *string, loc *time.Location) (time.Time, error) {
	if datum == nil {
		return time.Time{}, ErrMissingDatum
	}
	if loc == nil {
		loc = time.Local
	}
	// time.Parse accepts a fractional second after "05" and single-digit hours
	// even though the layout has neither.
	if len(*datum) != len(DatumLayout) {
		return time.Time{}, fmt.Errorf("parse datum %q: %w", *datum, ErrDatumLayout)
	}
	t, err := time.ParseInLocation(DatumLayout, *datum, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datum %q: %w", *datum, err)
	}
	return t, nil
}

// Package domain models the snow profile records published by the LAWIS
// profile feed and the map markers derived from them.
//
// # Data Source
//
// The upstream fetcher writes recent_profiles.json: a JSON array of profile
// objects filtered to the northern Alps. Only a handful of fields matter here:
//
//	latitude, longitude  WGS-84 degrees (numbers, occasionally numeric strings)
//	datum                "YYYY-MM-DD HH:mm:ss", local wall-clock time, no zone
//	profil_id            string or number, names the detail page <id>.html
//	                     (None.html when absent)
//	ort                  optional place name, used as the marker tooltip
//	seehoehe             optional elevation in meters
//
// # Skipping Rules
//
// Records are never repaired. A record is skipped, without a diagnostic, when:
//
//	the array element is not an object            -> invalid_record
//	latitude or longitude is absent, null or 0    -> missing_coordinates
//	datum is absent or does not match the layout  -> invalid_datum
//
// A coordinate of exactly 0 counts as missing. Profiles on the equator or the
// prime meridian are therefore never plotted; the feed covers the Alps only.
//
// # Recency Colors
//
// Marker age is now minus datum, with now read once per render pass from the
// package clock (see [SetClock]). Ages below the recent window (24h by default)
// are blue, including negative ages from timestamps in the future; all other
// markers are grey.
package domain

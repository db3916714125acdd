// Command genmock writes a reproducible recent_profiles.json fixture around
// the map center. Besides valid profiles spread over the last few days it
// emits the malformed records the renderer must skip: zero and missing
// coordinates, unparsable timestamps and records without an identifier.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/recent_profiles.json \
//	  -count 40 \
//	  -now "2024-01-10 12:00:00"
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/snow-profile-map/internal/config"
	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// places near Oberstdorf used for the "ort" field.
var places = []string{
	"Nebelhorn", "Fellhorn", "Kanzelwand", "Söllereck", "Hoher Ifen",
	"Gaisalphorn", "Rubihorn", "Entschenkopf", "Walmendingerhorn", "Grünten",
}

var aspects = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the profiles JSON fixture")
	count := flag.Int("count", 40, "number of valid profiles")
	nowStr := flag.String("now", "2024-01-10 12:00:00", "reference time in "+domain.DatumLayout+" (UTC)")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *count < 0 {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	ref, err := time.ParseInLocation(domain.DatumLayout, *nowStr, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid -now: %w", err)
	}
	domain.SetClock(clockwork.NewFakeClockAt(ref))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, *seed^0x5eed))
	records := generate(rng, *count, domain.Now())

	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d records (%d valid) to %s", len(records), *count, *out)
	printStats(records, domain.Now())
	return nil
}

// fixture mirrors the upstream feed, including its loosely typed fields.
type fixture map[string]any

func generate(rng *rand.Rand, count int, now time.Time) []fixture {
	records := make([]fixture, 0, count+5)
	for i := range count {
		age := time.Duration(rng.Int64N(int64(96 * time.Hour)))
		rec := fixture{
			"latitude":   round(config.DefaultCenterLatitude+(rng.Float64()-0.5)*0.3, 5),
			"longitude":  round(config.DefaultCenterLongitude+(rng.Float64()-0.5)*0.4, 5),
			"datum":      now.Add(-age).Format(domain.DatumLayout),
			"ort":        places[rng.IntN(len(places))],
			"seehoehe":   1200 + rng.IntN(1200),
			"exposition": aspects[rng.IntN(len(aspects))],
			"neigung":    20 + rng.IntN(25),
			"region":     "Allgäuer Alpen",
		}
		// Every fifth identifier is numeric, as older feed exports are.
		if i%5 == 4 {
			rec["profil_id"] = 100000 + i
		} else {
			rec["profil_id"] = fmt.Sprintf("p-%04d", i)
		}
		records = append(records, rec)
	}

	records = append(records,
		fixture{"latitude": 0, "longitude": config.DefaultCenterLongitude, "datum": now.Format(domain.DatumLayout), "profil_id": "zero-lat"},
		fixture{"longitude": config.DefaultCenterLongitude, "datum": now.Format(domain.DatumLayout), "profil_id": "no-lat"},
		fixture{"latitude": config.DefaultCenterLatitude, "longitude": config.DefaultCenterLongitude, "datum": now.Format(time.RFC3339), "profil_id": "iso-datum"},
		fixture{"latitude": config.DefaultCenterLatitude, "longitude": config.DefaultCenterLongitude, "profil_id": "no-datum"},
		fixture{"latitude": config.DefaultCenterLatitude + 0.01, "longitude": config.DefaultCenterLongitude + 0.01, "datum": now.Add(-time.Hour).Format(domain.DatumLayout)},
	)
	return records
}

func round(v float64, places int) float64 {
	p := 1.0
	for range places {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func printStats(records []fixture, now time.Time) {
	data, err := json.Marshal(records)
	if err != nil {
		return
	}
	decoded, err := domain.DecodeProfiles(data)
	if err != nil {
		return
	}

	colors := map[domain.Color]int{}
	skips := map[domain.SkipReason]int{}
	rules := domain.Rules{RecentWindow: domain.DefaultRecentWindow, Location: time.UTC}
	for _, rec := range decoded {
		m, reason := domain.BuildMarker(rec, now, rules)
		if reason != domain.SkipNone {
			skips[reason]++
			continue
		}
		colors[m.Color]++
	}

	fmt.Println("\nMarkers by color:")
	fmt.Printf("  %-22s %d\n", domain.ColorBlue, colors[domain.ColorBlue])
	fmt.Printf("  %-22s %d\n", domain.ColorGrey, colors[domain.ColorGrey])
	fmt.Println("Skipped records:")
	for _, r := range []domain.SkipReason{domain.SkipMissingCoordinates, domain.SkipInvalidDatum, domain.SkipInvalidRecord} {
		fmt.Printf("  %-22s %d\n", r, skips[r])
	}
}

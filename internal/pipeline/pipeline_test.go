package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snow-profile-map/internal/adapter/htmlfile"
	"github.com/couchcryptid/snow-profile-map/internal/adapter/jsonfile"
	"github.com/couchcryptid/snow-profile-map/internal/adapter/leaflet"
	"github.com/couchcryptid/snow-profile-map/internal/domain"
	"github.com/couchcryptid/snow-profile-map/internal/observability"
	"github.com/couchcryptid/snow-profile-map/internal/pipeline"
)

// --- fakes ---

type memorySource struct {
	records []domain.ProfileRecord
	err     error
}

func (m *memorySource) LoadProfiles(ctx context.Context) ([]domain.ProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.records, m.err
}

func (m *memorySource) Location() string { return "mem://recent_profiles.json" }

func jsonSource(t *testing.T, payload string) *memorySource {
	t.Helper()
	records, err := domain.DecodeProfiles([]byte(payload))
	return &memorySource{records: records, err: err}
}

type memorySink struct {
	pages  []string
	err    error
	writes int
}

func (m *memorySink) WritePage(_ context.Context, render func(io.Writer) error) error {
	m.writes++
	if m.err != nil {
		return m.err
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	m.pages = append(m.pages, buf.String())
	return nil
}

func (m *memorySink) Location() string { return "mem://map.html" }

func (m *memorySink) lastPage(t *testing.T) leaflet.Page {
	t.Helper()
	require.NotEmpty(t, m.pages, "no page written")
	p, err := leaflet.ReadPage(bytes.NewReader([]byte(m.pages[len(m.pages)-1])))
	require.NoError(t, err)
	return p
}

type recordingNotifier struct {
	summaries []domain.RenderSummary
	err       error
}

func (n *recordingNotifier) Notify(_ context.Context, s domain.RenderSummary) error {
	n.summaries = append(n.summaries, s)
	return n.err
}

type stubGeocoder struct{ name string }

func (g stubGeocoder) ReverseGeocode(context.Context, float64, float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{PlaceName: g.name}, nil
}

// --- helpers ---

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	logs    *bytes.Buffer
	metrics *observability.Metrics
	sink    *memorySink
}

func useFakeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func testRules() domain.Rules {
	return domain.Rules{RecentWindow: domain.DefaultRecentWindow, Location: time.UTC}
}

func testSettings() pipeline.MapSettings {
	return pipeline.MapSettings{
		Center: orb.Point{10.2797, 47.4099},
		Zoom:   11,
		Tiles:  domain.TileLayerOpenStreetMap,
	}
}

func fixedID() string { return "fixed" }

func newRenderer(t *testing.T, src pipeline.Source, geocoder domain.Geocoder, opts ...pipeline.Option) (*pipeline.Renderer, *harness) {
	t.Helper()
	useFakeClock(t)
	h := &harness{
		logs:    &bytes.Buffer{},
		metrics: observability.NewMetricsForTesting(),
		sink:    &memorySink{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, nil))
	builder := pipeline.NewMarkerBuilder(testRules(), geocoder, logger)
	opts = append([]pipeline.Option{pipeline.WithRunIDGenerator(fixedID)}, opts...)
	r := pipeline.New(src, builder, leaflet.NewRenderer(leaflet.WithIDGenerator(fixedID)), h.sink, testSettings(), logger, h.metrics, opts...)
	return r, h
}

// --- tests ---

func TestGenerate_MissingInput(t *testing.T) {
	src := &memorySource{err: fmt.Errorf("%w: data/recent_profiles.json", domain.ErrProfilesNotFound)}
	r, h := newRenderer(t, src, nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInputMissing, summary.Status)
	assert.Zero(t, h.sink.writes)
	assert.Contains(t, h.logs.String(), "no profiles file found")
	assert.Contains(t, h.logs.String(), "path=mem://recent_profiles.json")
	assert.Error(t, r.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Renders.WithLabelValues("input_missing")), 0)
}

func TestGenerate_InvalidJSON(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `{"not": "a list"`), nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusLoadFailed, summary.Status)
	assert.Zero(t, h.sink.writes)
	assert.Contains(t, h.logs.String(), "failed to load profiles")
	assert.Contains(t, h.logs.String(), "error=")
}

func TestGenerate_Unreadable(t *testing.T) {
	src := &memorySource{err: fmt.Errorf("%w: permission denied", domain.ErrProfilesUnreadable)}
	r, h := newRenderer(t, src, nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLoadFailed, summary.Status)
	assert.Contains(t, h.logs.String(), "permission denied")
}

func TestGenerate_EmptyList(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[]`), nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusNoProfiles, summary.Status)
	assert.Zero(t, summary.Records)
	assert.Zero(t, h.sink.writes)
	assert.Contains(t, h.logs.String(), "no profiles to map")
}

func TestGenerate_EmptyDocuments(t *testing.T) {
	for _, doc := range []string{`null`, `{}`, `""`} {
		t.Run(doc, func(t *testing.T) {
			r, h := newRenderer(t, jsonSource(t, doc), nil)

			summary, err := r.Generate(context.Background())
			require.NoError(t, err)

			assert.Equal(t, domain.StatusNoProfiles, summary.Status)
			assert.Zero(t, h.sink.writes)
			assert.Contains(t, h.logs.String(), "no profiles to map")
		})
	}
}

func TestGenerate_SkipsRecordsWithoutCoordinates(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[
		{"latitude": 0, "longitude": 10.2, "datum": "2024-01-10 08:00:00", "profil_id": "zero-lat"},
		{"longitude": 10.2, "datum": "2024-01-10 08:00:00", "profil_id": "no-lat"},
		{"latitude": 47.4, "longitude": null, "datum": "2024-01-10 08:00:00", "profil_id": "null-lon"},
		{"latitude": 47.4, "longitude": 0, "datum": "2024-01-10 08:00:00", "profil_id": "zero-lon"},
		{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 08:00:00", "profil_id": "ok"}
	]`), nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWritten, summary.Status)
	assert.Equal(t, 5, summary.Records)
	assert.Equal(t, 1, summary.Markers)
	assert.Equal(t, map[domain.SkipReason]int{domain.SkipMissingCoordinates: 4}, summary.Skipped)

	page := h.sink.lastPage(t)
	require.Len(t, page.Markers, 1)
	assert.Equal(t, "ok", page.Markers[0].ProfileID)
	assert.NotContains(t, h.logs.String(), "profile skipped", "skips are debug-only")
	assert.InDelta(t, 4, testutil.ToFloat64(h.metrics.RecordsSkipped.WithLabelValues("missing_coordinates")), 0)
}

func TestGenerate_SkipsBadDatum(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[
		{"latitude": 47.4, "longitude": 10.2, "datum": "10.01.2024 08:00", "profil_id": "german-format"},
		{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10T08:00:00", "profil_id": "iso"},
		{"latitude": 47.4, "longitude": 10.2, "profil_id": "missing"},
		{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 11:00:00.123", "profil_id": "fractional"},
		{"latitude": 47.5, "longitude": 10.3, "datum": "2024-01-10 08:00:00", "profil_id": "ok"}
	]`), nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Markers)
	assert.Equal(t, 4, summary.Skipped[domain.SkipInvalidDatum])
	page := h.sink.lastPage(t)
	require.Len(t, page.Markers, 1)
	assert.Equal(t, "ok", page.Markers[0].ProfileID)
}

func TestGenerate_AllSkippedStillWritesMap(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[{"latitude": 0, "longitude": 0, "datum": "x"}]`), nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWritten, summary.Status)
	assert.Zero(t, summary.Markers)
	assert.Nil(t, summary.Bounds)
	assert.Empty(t, h.sink.lastPage(t).Markers)
}

func TestGenerate_ColoringLaw(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[
		{"latitude": 47.1, "longitude": 10.1, "datum": "2024-01-10 00:00:01", "profil_id": "fresh"},
		{"latitude": 47.2, "longitude": 10.2, "datum": "2024-01-08 12:00:00", "profil_id": "old"},
		{"latitude": 47.3, "longitude": 10.3, "datum": "2024-01-09 12:00:00", "profil_id": "exactly-24h"},
		{"latitude": 47.4, "longitude": 10.4, "datum": "2024-01-11 06:00:00", "profil_id": "future"}
	]`), nil)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	colors := map[string]string{}
	for _, m := range h.sink.lastPage(t).Markers {
		colors[m.ProfileID] = m.Color
	}
	assert.Equal(t, map[string]string{
		"fresh":       "blue",
		"old":         "grey",
		"exactly-24h": "grey",
		"future":      "blue",
	}, colors)
	assert.Equal(t, 2, summary.Recent)
	assert.Equal(t, 2, summary.Older)
	assert.Equal(t, []float64{10.1, 47.1, 10.4, 47.4}, summary.Bounds)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.MarkersRendered.WithLabelValues("blue")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.MarkersRendered.WithLabelValues("grey")), 0)
}

func TestGenerate_AbsentProfileID(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 08:00:00"}]`), nil)

	_, err := r.Generate(context.Background())
	require.NoError(t, err)

	page := h.sink.lastPage(t)
	require.Len(t, page.Markers, 1)
	assert.Contains(t, page.Markers[0].Popup, `href="None.html"`)
	assert.Empty(t, page.Markers[0].ProfileID)
}

func TestGenerate_Idempotent(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[
		{"latitude": 47.41, "longitude": 10.28, "datum": "2024-01-10 08:00:00", "profil_id": "abc123"},
		{"latitude": 47.2, "longitude": 10.2, "datum": "2024-01-01 08:00:00", "profil_id": 99}
	]`), nil)

	first, err := r.Generate(context.Background())
	require.NoError(t, err)
	second, err := r.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, h.sink.pages, 2)
	assert.Equal(t, h.sink.pages[0], h.sink.pages[1])
	assert.Equal(t, first, second)
}

func TestGenerate_WriteFailure(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 08:00:00"}]`), nil)
	h.sink.err = errors.New("read-only file system")

	summary, err := r.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only file system")
	assert.Equal(t, domain.StatusFailed, summary.Status)
	assert.NotContains(t, h.logs.String(), "map generated")
	assert.Error(t, r.CheckReadiness(context.Background()))
}

func TestGenerate_CancelledContext(t *testing.T) {
	r, _ := newRenderer(t, jsonSource(t, `[]`), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Generate(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_Notifies(t *testing.T) {
	n := &recordingNotifier{}
	r, _ := newRenderer(t, jsonSource(t, `[{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 08:00:00", "profil_id": "a"}]`), nil, pipeline.WithNotifier(n))

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, n.summaries, 1)
	assert.Equal(t, summary, n.summaries[0])
	assert.Equal(t, "fixed", n.summaries[0].RunID)
	assert.Equal(t, testNow, n.summaries[0].GeneratedAt)
}

func TestGenerate_NotifierFailureIsNotFatal(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	r, h := newRenderer(t, jsonSource(t, `[{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 08:00:00"}]`), nil, pipeline.WithNotifier(n))

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWritten, summary.Status)
	assert.Contains(t, h.logs.String(), "render notification failed")
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.NotificationsPublished.WithLabelValues("error")), 0)
}

func TestGenerate_NoNotificationWithoutMap(t *testing.T) {
	n := &recordingNotifier{}
	r, _ := newRenderer(t, jsonSource(t, `[]`), nil, pipeline.WithNotifier(n))

	_, err := r.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, n.summaries)
}

func TestGenerate_TooltipLabels(t *testing.T) {
	r, h := newRenderer(t, jsonSource(t, `[
		{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 08:00:00", "profil_id": "named", "ort": "Fellhorn"},
		{"latitude": 47.5, "longitude": 10.3, "datum": "2024-01-10 08:00:00", "profil_id": "unnamed"}
	]`), stubGeocoder{name: "Oberstdorf"})

	_, err := r.Generate(context.Background())
	require.NoError(t, err)

	tooltips := map[string]string{}
	for _, m := range h.sink.lastPage(t).Markers {
		tooltips[m.ProfileID] = m.Tooltip
	}
	assert.Equal(t, map[string]string{"named": "Fellhorn", "unnamed": "Oberstdorf"}, tooltips)
}

func TestCheckReadiness_AfterWrite(t *testing.T) {
	r, _ := newRenderer(t, jsonSource(t, `[{"latitude": 47.4, "longitude": 10.2, "datum": "2024-01-10 08:00:00"}]`), nil)
	require.Error(t, r.CheckReadiness(context.Background()))

	_, err := r.Generate(context.Background())
	require.NoError(t, err)
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

// TestGenerate_EndToEnd runs the file-backed stages: a single recent profile
// in a real input file ends up as one blue marker in a freshly created
// output directory.
func TestGenerate_EndToEnd(t *testing.T) {
	useFakeClock(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "data", "recent_profiles.json")
	output := filepath.Join(dir, "archive", "profiles", "map.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(input), 0o755))
	require.NoError(t, os.WriteFile(input, []byte(
		`[{"latitude": 47.41, "longitude": 10.28, "datum": "2024-01-10 08:00:00", "profil_id": "abc123"}]`,
	), 0o600))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r := pipeline.New(
		jsonfile.NewSource(input, logger),
		pipeline.NewMarkerBuilder(testRules(), nil, logger),
		leaflet.NewRenderer(),
		htmlfile.NewWriter(output, logger),
		testSettings(),
		logger,
		observability.NewMetricsForTesting(),
	)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWritten, summary.Status)
	assert.Equal(t, output, summary.OutputPath)
	assert.Contains(t, logs.String(), "map generated")
	assert.Contains(t, logs.String(), "path="+output)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	page, err := leaflet.ReadPage(f)
	require.NoError(t, err)

	assert.InDelta(t, 47.4099, page.CenterLat, 1e-9)
	assert.InDelta(t, 10.2797, page.CenterLon, 1e-9)
	assert.Equal(t, 11, page.Zoom)
	require.Len(t, page.Markers, 1)
	m := page.Markers[0]
	assert.Equal(t, "blue", m.Color)
	assert.InDelta(t, 47.41, m.Lat, 1e-9)
	assert.InDelta(t, 10.28, m.Lon, 1e-9)
	assert.Equal(t, 8, m.Radius)
	assert.InDelta(t, 0.7, m.FillOpacity, 1e-9)
	assert.Contains(t, m.Popup, `href="abc123.html"`)
	assert.Contains(t, m.Popup, `target="_blank"`)
	assert.Contains(t, m.Popup, "View Profile<br>2024-01-10 08:00:00")
}

func TestGenerate_EndToEnd_MissingFileLeavesNoOutput(t *testing.T) {
	useFakeClock(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "archive", "profiles", "map.html")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := pipeline.New(
		jsonfile.NewSource(filepath.Join(dir, "missing.json"), logger),
		pipeline.NewMarkerBuilder(testRules(), nil, logger),
		leaflet.NewRenderer(),
		htmlfile.NewWriter(output, logger),
		testSettings(),
		logger,
		observability.NewMetricsForTesting(),
	)

	summary, err := r.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInputMissing, summary.Status)
	assert.NoDirExists(t, filepath.Join(dir, "archive"))
}

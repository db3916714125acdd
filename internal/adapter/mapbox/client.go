// Package mapbox resolves marker coordinates to place names with the Mapbox
// Geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// DefaultBaseURL is the Mapbox places endpoint.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// DefaultLanguage matches the German place names used by the profile feed.
const DefaultLanguage = "de"

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 4 << 10

// StatusError is returned when Mapbox answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mapbox status %d: %s", e.Code, e.Body)
}

// Client looks up the place a profile was dug at. It implements domain.Geocoder.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	language   string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLanguage sets the language of returned place names. Empty lets Mapbox choose.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithBaseURL points the client at another places endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a Mapbox client with the given per-request timeout.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    DefaultBaseURL,
		language:   DefaultLanguage,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReverseGeocode returns the settlement nearest to a profile location. A
// location with no place nearby (open water, remote terrain) yields an empty
// result and no error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.placeURL(lat, lon), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("mapbox place lookup: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("mapbox place lookup at %.5f,%.5f: %w", lat, lon, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox place lookup at %.5f,%.5f: %w", lat, lon,
			&StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	var places placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode mapbox places: %w", err)
	}
	if len(places.Features) == 0 {
		c.logger.Debug("no place near profile", "lat", lat, "lon", lon)
		return domain.GeocodingResult{}, nil
	}
	return places.Features[0].result(), nil
}

// placeURL builds the reverse query. Mapbox takes lon,lat in the path and only
// honors limit together with a single type.
func (c *Client) placeURL(lat, lon float64) string {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("types", "place")
	q.Set("limit", "1")
	if c.language != "" {
		q.Set("language", c.language)
	}
	coord := strconv.FormatFloat(lon, 'f', 6, 64) + "," + strconv.FormatFloat(lat, 'f', 6, 64)
	return c.baseURL + "/" + coord + ".json?" + q.Encode()
}

type placesResponse struct {
	Features []placeFeature `json:"features"`
}

type placeFeature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

func (f placeFeature) result() domain.GeocodingResult {
	r := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		r.Lon, r.Lat = f.Center[0], f.Center[1]
	}
	return r
}

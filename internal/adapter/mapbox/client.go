package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// placeTypes restricts matches to things a fueling site can be named after.
const placeTypes = "poi,address,place,locality"

// ErrAPIStatus is returned when Mapbox answers with a non-200 status.
var ErrAPIStatus = errors.New("mapbox API error")

// ClientConfig configures a Client. Token is required.
type ClientConfig struct {
	Token   string
	Timeout time.Duration
	// Country limits results to ISO 3166 alpha-2 codes, comma separated ("sa,ae").
	Country string
	// BaseURL overrides the Mapbox endpoint.
	BaseURL string
}

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(cfg ClientConfig, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// ForwardGeocode resolves a site name to coordinates. A query with no match
// returns a zero result and no error.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	start := time.Now()
	result, err := c.lookup(ctx, query)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case !result.Found():
		outcome = "empty"
		c.logger.Debug("no geocoding match", "query", query)
	}
	c.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	return result, err
}

func (c *Client) requestURL(query string) string {
	params := url.Values{
		"access_token": {c.cfg.Token},
		"limit":        {"1"},
		"types":        {placeTypes},
		"autocomplete": {"false"},
	}
	if c.cfg.Country != "" {
		params.Set("country", strings.ToLower(c.cfg.Country))
	}
	return c.cfg.BaseURL + "/" + url.PathEscape(query) + ".json?" + params.Encode()
}

func (c *Client) lookup(ctx context.Context, query string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(query), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("forward geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, fmt.Errorf("%w: status %d: %s", ErrAPIStatus, resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(fc.Features) == 0 {
		return domain.GeocodingResult{}, nil
	}
	return fc.Features[0].result(), nil
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

func (f feature) result() domain.GeocodingResult {
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

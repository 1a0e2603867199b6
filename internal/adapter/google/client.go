package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/location-search/internal/observability"
)

// DefaultBaseURL is the Google Maps web services root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

const (
	endpointAutocomplete = "autocomplete"
	endpointDetails      = "details"
	endpointGeocode      = "geocode"
)

var endpointPaths = map[string]string{
	endpointAutocomplete: "/place/autocomplete/json",
	endpointDetails:      "/place/details/json",
	endpointGeocode:      "/geocode/json",
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string // defaults to DefaultBaseURL
	// Language is sent with autocomplete requests.
	Language string
	// ResolveLanguage is sent with details and reverse geocoding requests.
	ResolveLanguage string
	// Country restricts autocomplete to one ISO 3166-1 country when set.
	Country string
	Timeout time.Duration
	// RequestsPerSecond throttles all endpoints together. <= 0 disables it.
	RequestsPerSecond float64
}

// Client implements domain.Autocompleter and domain.Resolver using the
// Google Places and Geocoding APIs.
type Client struct {
	apiKey          string
	baseURL         string
	language        string
	resolveLanguage string
	country         string
	httpClient      *http.Client
	limiter         *rate.Limiter
	metrics         *observability.Metrics
	logger          *slog.Logger
}

// NewClient creates a Google Maps client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:          opts.APIKey,
		baseURL:         baseURL,
		language:        opts.Language,
		resolveLanguage: opts.ResolveLanguage,
		country:         opts.Country,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: newLimiter(opts.RequestsPerSecond),
		metrics: metrics,
		logger:  logger,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// get issues a GET against endpoint and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	fullURL := c.baseURL + endpointPaths[endpoint] + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("google request", "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("google API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// noteStatus logs quota exhaustion, which otherwise only shows up as a
// generic lookup failure.
func (c *Client) noteStatus(endpoint, status string) {
	if status == statusOverQueryLimit {
		c.logger.Warn("google quota exhausted", "endpoint", endpoint)
	}
}

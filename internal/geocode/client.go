// Package geocode resolves place names to coordinates through an external
// HTTP service. It lives outside the analysis engine: lookups are
// cancellable, rate limited, and degrade to "unknown" coordinates instead
// of failing an analysis.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"tabsight/internal/dataset"
	apperrors "tabsight/internal/errors"
)

// Coordinates is a resolved location. Unknown marks places the service
// could not resolve; their Latitude and Longitude are zero and must not be
// treated as a real position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Unknown   bool    `json:"unknown"`
}

const (
	defaultTimeout    = 5 * time.Second
	defaultRetryDelay = 2 * time.Second
	defaultRateLimit  = 1.0 // requests per second, polite default for public services
)

// LookupObserver receives the outcome of every completed lookup, mainly
// for metrics.
type LookupObserver func(unknown bool, duration time.Duration)

// Client queries a Nominatim-style search endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retryDelay time.Duration
	observer   LookupObserver
	logger     *slog.Logger
}

// ClientOption tunes a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryDelay sets the fixed pause before the single timeout retry.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.retryDelay = d }
}

// WithRateLimit overrides the outbound request rate.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithLookupObserver registers a callback invoked after every lookup that
// produced a verdict, unknown included.
func WithLookupObserver(fn LookupObserver) ClientOption {
	return func(c *Client) { c.observer = fn }
}

// NewClient builds a geocoding client for the given service base URL.
func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		retryDelay: defaultRetryDelay,
		logger:     logger.With(slog.String("component", "geocode")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup resolves one place name. On a timeout it retries exactly once
// after the fixed delay; a second timeout gives up and records the place as
// unknown rather than erroring. Context cancellation aborts immediately.
func (c *Client) Lookup(ctx context.Context, place string) (Coordinates, error) {
	start := time.Now()
	coords, err := c.lookup(ctx, place)
	if err == nil && c.observer != nil {
		c.observer(coords.Unknown, time.Since(start))
	}
	return coords, err
}

func (c *Client) lookup(ctx context.Context, place string) (Coordinates, error) {
	if place == "" {
		return Coordinates{}, apperrors.NewAppValidationError("place name is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Coordinates{}, err
	}

	coords, err := c.lookupOnce(ctx, place)
	if err == nil {
		return coords, nil
	}
	if !isTimeout(err) {
		return Coordinates{}, err
	}

	c.logger.WarnContext(ctx, "geocode lookup timed out, retrying once",
		slog.String("place", place),
		slog.Duration("delay", c.retryDelay),
	)
	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	}

	coords, err = c.lookupOnce(ctx, place)
	if err == nil {
		return coords, nil
	}
	if isTimeout(err) {
		c.logger.WarnContext(ctx, "geocode lookup timed out twice, recording unknown",
			slog.String("place", place),
		)
		return Coordinates{Unknown: true}, nil
	}
	return Coordinates{}, err
}

func (c *Client) lookupOnce(ctx context.Context, place string) (Coordinates, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.baseURL, url.QueryEscape(place))
	if c.apiKey != "" {
		endpoint += "&key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, apperrors.NewNetworkError("failed to build geocode request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, apperrors.NewNetworkError(
			fmt.Sprintf("geocode service returned status %d", resp.StatusCode), nil)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, apperrors.NewParsingError("failed to decode geocode response", err)
	}
	if len(results) == 0 {
		return Coordinates{Unknown: true}, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, apperrors.NewParsingError("invalid latitude in geocode response", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, apperrors.NewParsingError("invalid longitude in geocode response", err)
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// EnrichDataset appends "<place>_latitude" and "<place>_longitude" columns
// derived from a place-name column. Each distinct place is looked up once;
// unresolved places leave missing cells. Per-place failures are skipped
// with a warning, but a cancelled context aborts the whole enrichment.
func (c *Client) EnrichDataset(ctx context.Context, ds *dataset.Dataset, placeColumn string) error {
	col, ok := ds.Column(placeColumn)
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("column %q", placeColumn))
	}

	resolved := make(map[string]Coordinates)
	unknown := 0

	lats := make([]dataset.Value, col.Len())
	lons := make([]dataset.Value, col.Len())
	for i, v := range col.Values {
		if v.IsMissing() {
			lats[i] = dataset.MissingValue()
			lons[i] = dataset.MissingValue()
			continue
		}
		place := v.String()
		coords, seen := resolved[place]
		if !seen {
			var err error
			coords, err = c.Lookup(ctx, place)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.WarnContext(ctx, "geocode lookup failed, recording unknown",
					slog.String("place", place),
					slog.String("error", err.Error()),
				)
				coords = Coordinates{Unknown: true}
			}
			resolved[place] = coords
		}
		if coords.Unknown {
			unknown++
			lats[i] = dataset.MissingValue()
			lons[i] = dataset.MissingValue()
			continue
		}
		lats[i] = dataset.NumberValue(coords.Latitude)
		lons[i] = dataset.NumberValue(coords.Longitude)
	}

	if err := ds.AddColumn(dataset.NewColumn(placeColumn+"_latitude", dataset.KindFloat, lats)); err != nil {
		return err
	}
	if err := ds.AddColumn(dataset.NewColumn(placeColumn+"_longitude", dataset.KindFloat, lons)); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "dataset enriched with coordinates",
		slog.String("column", placeColumn),
		slog.Int("distinct_places", len(resolved)),
		slog.Int("unknown", unknown),
	)
	return nil
}

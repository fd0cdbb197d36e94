package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/observability"
)

// DefaultBaseURL is the public OSRM demo server's route service.
const DefaultBaseURL = "https://router.project-osrm.org/route/v1"

// codeOK is the success sentinel in OSRM response envelopes.
const codeOK = "Ok"

// StatusError is returned when the routing API answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("osrm API error: status %d: %s", e.Code, e.Body)
}

// Client implements domain.Router using the OSRM route service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OSRM routing client. An empty baseURL selects
// DefaultBaseURL and a non-positive timeout selects domain.DefaultRouteTimeout.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = domain.DefaultRouteTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Route requests the shortest road route between two points with full
// GeoJSON geometry and step maneuvers. Only the first candidate is used.
func (c *Client) Route(ctx context.Context, profile string, from, to domain.Coordinates) (_ domain.RoadRoute, err error) {
	start := time.Now()
	defer func() {
		c.metrics.OSRMAPIDuration.WithLabelValues(profile).Observe(time.Since(start).Seconds())
		c.metrics.OSRMRequests.WithLabelValues(profile, outcome(err)).Inc()
	}()

	// OSRM uses lng,lat order.
	coords := formatCoord(from) + ";" + formatCoord(to)
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(profile), coords)
	params := url.Values{
		"overview":   {"full"},
		"geometries": {"geojson"},
		"steps":      {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return domain.RoadRoute{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RoadRoute{}, fmt.Errorf("%s route request: %w", profile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.RoadRoute{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var osrmResp response
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		return domain.RoadRoute{}, fmt.Errorf("decode response: %w", err)
	}

	if osrmResp.Code != codeOK || len(osrmResp.Routes) == 0 {
		return domain.RoadRoute{}, fmt.Errorf("%w: code %q", domain.ErrNoRoute, osrmResp.Code)
	}

	c.logger.Debug("osrm route fetched",
		"profile", profile,
		"distance_m", osrmResp.Routes[0].Distance,
		"duration_s", osrmResp.Routes[0].Duration,
	)
	return osrmResp.Routes[0].toDomain()
}

func formatCoord(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isNoRoute(err):
		return "no_route"
	default:
		return "error"
	}
}

// Package snapmap is a thin client for the public Snap Map playlist API,
// the third-party source of round clues. The API is rate-limited and flaky,
// so every call goes through a client-side limiter and a circuit breaker.
package snapmap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/playperu/whereami/internal/metrics"
)

const DefaultURL = "https://ms.sc-jpl.com/web/getPlaylist"

// ErrGateway marks every failure talking to the map API: network errors,
// timeouts, rate limiting, bad status codes and undecodable envelopes.
var ErrGateway = errors.New("content gateway error")

// errCallerGone marks a request abandoned because the caller's context ended.
// The breaker does not count them.
var errCallerGone = errors.New("caller context done")

// maxBodyBytes caps how much of a playlist response is read.
const maxBodyBytes = 8 << 20

type Options struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*Playlist]
	logger  *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		url:     opts.URL,
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}

	const cbName = "snapmap"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	c.cb = gobreaker.NewCircuitBreaker[*Playlist](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return c
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type tileSetID struct {
	Flavor string `json:"flavor"`
	Epoch  int    `json:"epoch"`
	Type   int    `json:"type"`
}

type playlistRequest struct {
	RequestGeoPoint   geoPoint  `json:"requestGeoPoint"`
	ZoomLevel         int       `json:"zoomLevel"`
	TileSetID         tileSetID `json:"tileSetId"`
	RadiusMeters      int       `json:"radiusMeters"`
	MaximumFuzzRadius int       `json:"maximumFuzzRadius"`
}

type playlistResponse struct {
	Manifest   *Playlist `json:"manifest"`
	TotalCount int       `json:"totalCount"`
}

// FetchPlaylist returns the stories posted within radiusMeters of the point.
func (c *Client) FetchPlaylist(ctx context.Context, lat, lng float64, radiusMeters, zoom int) (*Playlist, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			metrics.GatewayRequests.WithLabelValues("cancelled").Inc()
			return nil, ctx.Err()
		}
		metrics.GatewayRequests.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: waiting for rate limiter: %v", ErrGateway, err)
	}

	pl, err := c.cb.Execute(func() (*Playlist, error) {
		pl, err := c.fetch(ctx, lat, lng, radiusMeters, zoom)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
		}
		return pl, err
	})
	if err != nil {
		if errors.Is(err, errCallerGone) {
			metrics.GatewayRequests.WithLabelValues("cancelled").Inc()
			return nil, ctx.Err()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.GatewayRequests.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		metrics.GatewayRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.GatewayRequests.WithLabelValues("ok").Inc()
	return pl, nil
}

func (c *Client) fetch(ctx context.Context, lat, lng float64, radiusMeters, zoom int) (*Playlist, error) {
	body, err := json.Marshal(playlistRequest{
		RequestGeoPoint: geoPoint{Lat: lat, Lon: lng},
		ZoomLevel:       zoom,
		TileSetID:       tileSetID{Flavor: "default", Epoch: 0, Type: 1},
		RadiusMeters:    radiusMeters,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: rate limited", ErrGateway)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status: %d", ErrGateway, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}

	var out playlistResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}

	pl := out.Manifest
	if pl == nil {
		pl = &Playlist{}
	}
	if pl.TotalCount == 0 {
		pl.TotalCount = out.TotalCount
	}

	c.logger.Debug("playlist fetched", "lat", lat, "lng", lng, "elements", pl.Count())
	return pl, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

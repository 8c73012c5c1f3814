package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/circuitbreaker"
	"streamgate/pkg/retry"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

// HTTPResolver looks up client IPs against an ip-api style JSON
// endpoint. Lookups are the only blocking network call on the
// admission path, so they are bounded by a short timeout, retried
// briefly, guarded by a circuit breaker and cached. Every failure mode
// degrades to domain.DefaultGeolocation() with an error instead of
// stalling admission.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	cache    *ttlcache.Cache[string, domain.GeolocationInfo]
	logger   *zap.SugaredLogger
}

type lookupResponse struct {
	Status     string  `json:"status"`
	Country    string  `json:"country"`
	Region     string  `json:"region"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timezone   string  `json:"timezone"`
}

func NewHTTPResolver(endpoint string, timeout, cacheTTL time.Duration, logger *zap.SugaredLogger) ports.GeolocationResolver {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, domain.GeolocationInfo](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, domain.GeolocationInfo](),
	)
	go cache.Start()

	retryCfg := retry.Config{
		Enabled:      true,
		MaxAttempts:  2,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       true,
	}

	return &HTTPResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig()),
		retryCfg: retryCfg,
		cache:    cache,
		logger:   logger,
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, ip string) (domain.GeolocationInfo, error) {
	if ip == "" {
		return domain.DefaultGeolocation(), domain.ErrGeolocationFailed
	}

	if item := r.cache.Get(ip); item != nil {
		return item.Value(), nil
	}

	var geo domain.GeolocationInfo
	err := r.breaker.Execute(ctx, func() error {
		return retry.Retry(ctx, r.retryCfg, func() error {
			resolved, err := r.lookup(ctx, ip)
			if err != nil {
				return err
			}
			geo = resolved
			return nil
		})
	})
	if err != nil {
		r.logger.Warnw("geolocation lookup degraded",
			"ip", ip,
			"error", err,
		)
		return domain.DefaultGeolocation(), domain.ErrGeolocationFailed
	}

	r.cache.Set(ip, geo, ttlcache.DefaultTTL)
	return geo, nil
}

func (r *HTTPResolver) lookup(ctx context.Context, ip string) (domain.GeolocationInfo, error) {
	url := fmt.Sprintf("%s/%s", r.endpoint, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.GeolocationInfo{}, fmt.Errorf("failed to build lookup request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.GeolocationInfo{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GeolocationInfo{}, fmt.Errorf("geolocation endpoint returned %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.GeolocationInfo{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if body.Status != "success" {
		return domain.GeolocationInfo{}, fmt.Errorf("geolocation lookup unsuccessful for %s", ip)
	}

	return domain.GeolocationInfo{
		Country:   body.Country,
		Region:    body.RegionName,
		City:      body.City,
		Latitude:  body.Lat,
		Longitude: body.Lon,
		Timezone:  body.Timezone,
	}, nil
}

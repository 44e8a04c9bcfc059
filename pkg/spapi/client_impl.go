// Copyright 2026 Amazon Connector Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package spapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// RealClient is the production SP-API client: HTTP + dual rate limiters +
// circuit breaker + synchronized token refresh + retry-with-backoff.
type RealClient struct {
	httpClient *http.Client
	baseURL    string
	tokens     *TokenManager
	limiters   *Limiters
	ordersCB   *Breaker
	itemsCB    *Breaker
	cfg        ClientConfig
	log        logr.Logger
}

// NewRealClient constructs a RealClient for one credential group/region.
func NewRealClient(cfg ClientConfig, tokens *TokenManager, log logr.Logger) *RealClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = SPAPIBaseURL(cfg.Region)
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 4
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 30 * time.Second
	}

	return &RealClient{
		httpClient: &http.Client{Timeout: cfg.ConnectTimeout + cfg.ReadTimeout},
		baseURL:    baseURL,
		tokens:     tokens,
		limiters: NewLimiters(
			orDefault(cfg.RateLimits.OrdersRatePerSecond, 0.0167),
			orDefaultInt(cfg.RateLimits.OrdersBurst, 20),
			orDefault(cfg.RateLimits.OrderItemsRatePerSecond, 0.5),
			orDefaultInt(cfg.RateLimits.OrderItemsBurst, 30),
		),
		ordersCB: NewBreaker("orders", BreakerConfig{
			FailureThreshold: uint32(orDefaultInt(cfg.RateLimits.FailureThreshold, 10)),
			RecoveryTimeout:  orDefaultDuration(cfg.RateLimits.RecoveryTimeout, 300*time.Second),
		}, log),
		itemsCB: NewBreaker("order-items", BreakerConfig{
			FailureThreshold: uint32(orDefaultInt(cfg.RateLimits.FailureThreshold, 10)),
			RecoveryTimeout:  orDefaultDuration(cfg.RateLimits.RecoveryTimeout, 300*time.Second),
		}, log),
		cfg: cfg,
		log: log.WithName("spapi-client"),
	}
}

func orDefault(v, d float64) float64 {
	if v == 0 {
		return d
	}
	return v
}

func orDefaultInt(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

func orDefaultDuration(v, d time.Duration) time.Duration {
	if v == 0 {
		return d
	}
	return v
}

// SPAPIBaseURL returns the base URL for a region code ("na" or "eu").
func SPAPIBaseURL(region string) string {
	switch region {
	case "eu":
		return "https://sellingpartnerapi-eu.amazon.com"
	default:
		return "https://sellingpartnerapi-na.amazon.com"
	}
}

func (c *RealClient) Limiters() *Limiters { return c.limiters }

// GetOrders implements Client.GetOrders.
func (c *RealClient) GetOrders(ctx context.Context, params url.Values) (*OrdersPage, error) {
	var page OrdersPage
	err := c.doWithRetry(ctx, "GET", "/orders/v0/orders", params, EndpointOrders, PriorityNormal, c.ordersCB, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetOrderItems implements Client.GetOrderItems.
func (c *RealClient) GetOrderItems(ctx context.Context, orderID string, nextToken string) (*OrderItemsPage, error) {
	params := url.Values{}
	if nextToken != "" {
		params.Set("NextToken", nextToken)
	}
	var page OrderItemsPage
	path := fmt.Sprintf("/orders/v0/orders/%s/orderItems", orderID)
	err := c.doWithRetry(ctx, "GET", path, params, EndpointOrderItems, PriorityHigh, c.itemsCB, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// doWithRetry implements the §4.3 retry envelope: up to MaxRetries attempts,
// delay = min(MaxDelay, BaseDelay*2^(attempt-1)) +/- jitter, scaled per
// error class, honoring Retry-After for rateLimited/serviceUnavailable.
func (c *RealClient) doWithRetry(ctx context.Context, method, path string, params url.Values, ep Endpoint, priority Priority, cb *Breaker, out interface{}) error {
	attempt := 0
	allowTokenRefresh := true

	operation := func() error {
		attempt++

		if err := c.limiters.Acquire(ctx, ep, priority); err != nil {
			return backoff.Permanent(err)
		}

		result, cbErr := cb.Call(func() (interface{}, error) {
			return c.doOnce(ctx, method, path, params, allowTokenRefresh, out)
		})
		_ = result
		if cbErr == nil {
			return nil
		}

		apiErr, ok := AsAPIError(cbErr)
		if !ok {
			return backoff.Permanent(cbErr)
		}

		if apiErr.Kind() == KindAuthFailed && allowTokenRefresh {
			// doOnce already attempted exactly one refresh-and-retry
			// internally; a second authFailed means refresh did not help.
			allowTokenRefresh = false
		}

		if !apiErr.Retryable() {
			return backoff.Permanent(apiErr)
		}
		if attempt >= c.cfg.MaxRetries {
			return backoff.Permanent(apiErr)
		}

		delay := c.retryDelay(attempt, apiErr)
		c.log.V(1).Info("retrying SP-API request", "path", path, "attempt", attempt, "kind", apiErr.Kind().String(), "delay", delay)

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		}

		return apiErr
	}

	// cenkalti/backoff drives the attempt loop; the delay itself is computed
	// by retryDelay above and slept inside operation(), so we hand backoff a
	// zero-wait constant strategy and rely on our own classification.
	bo := backoff.WithContext(&backoff.ZeroBackOff{}, ctx)
	return backoff.Retry(operation, bo)
}

func (c *RealClient) retryDelay(attempt int, apiErr *APIError) time.Duration {
	base := c.cfg.BaseDelay
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}

	switch apiErr.Kind() {
	case KindRateLimited:
		delay = time.Duration(float64(delay) * 1.5)
		if apiErr.RetryAfter > delay {
			delay = apiErr.RetryAfter
		}
	case KindServiceUnavailable:
		delay = time.Duration(float64(delay) * 2.0)
		if apiErr.RetryAfter > delay {
			delay = apiErr.RetryAfter
		}
	case KindAuthFailed:
		delay = time.Duration(float64(delay) * 2.0)
	}

	jitter := time.Duration(rand.Int63n(int64(delay) / 4 + 1))
	return delay + jitter - delay/8
}

// doOnce performs exactly one HTTP round trip and classifies the result.
// On 401/403 it performs exactly one synchronized token refresh and retries
// once with the refreshed token before surfacing authFailed.
func (c *RealClient) doOnce(ctx context.Context, method, path string, params url.Values, allowTokenRefresh bool, out interface{}) (interface{}, error) {
	resp, body, err := c.rawRequest(ctx, method, path, params)
	if err != nil {
		return nil, newAPIError(path, KindTransient, 0, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return nil, newAPIError(path, KindTransient, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err))
			}
		}
		return out, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if !allowTokenRefresh {
			return nil, newAPIError(path, KindAuthFailed, resp.StatusCode, 0, fmt.Errorf("authorization failed after refresh"))
		}
		if err := c.tokens.Refresh(ctx); err != nil {
			return nil, newAPIError(path, KindAuthFailed, resp.StatusCode, 0, err)
		}
		resp2, body2, err := c.rawRequest(ctx, method, path, params)
		if err != nil {
			return nil, newAPIError(path, KindTransient, 0, 0, err)
		}
		defer resp2.Body.Close()
		if resp2.StatusCode != http.StatusOK {
			return nil, newAPIError(path, KindAuthFailed, resp2.StatusCode, 0, fmt.Errorf("still unauthorized after token refresh"))
		}
		if out != nil {
			if err := json.Unmarshal(body2, out); err != nil {
				return nil, newAPIError(path, KindTransient, resp2.StatusCode, 0, fmt.Errorf("decode response: %w", err))
			}
		}
		return out, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newAPIError(path, KindRateLimited, resp.StatusCode, retryAfter(resp), fmt.Errorf("rate limited"))

	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, newAPIError(path, KindServiceUnavailable, resp.StatusCode, retryAfter(resp), fmt.Errorf("service unavailable"))

	case resp.StatusCode == http.StatusBadRequest:
		return nil, newAPIError(path, KindBadRequest, resp.StatusCode, 0, fmt.Errorf("bad request: %s", string(body)))

	case resp.StatusCode >= 500:
		return nil, newAPIError(path, KindServerError, resp.StatusCode, 0, fmt.Errorf("server error: %s", string(body)))

	default:
		return nil, newAPIError(path, KindTransient, resp.StatusCode, 0, fmt.Errorf("unexpected status: %s", string(body)))
	}
}

func (c *RealClient) rawRequest(ctx context.Context, method, path string, params url.Values) (*http.Response, []byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(nil))
	if err != nil {
		return nil, nil, err
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("x-amz-access-token", token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return resp, nil, err
	}
	// Re-wrap so callers' defer resp.Body.Close() remains valid.
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, body, nil
}

func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

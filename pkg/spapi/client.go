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
	"context"
	"net/url"
	"time"
)

// Client is the SP-API surface the fetcher depends on. RealClient is the
// production implementation; tests substitute a stub satisfying this
// interface instead of standing up an HTTP server.
type Client interface {
	// GetOrders calls GET /orders/v0/orders with the given query parameters.
	GetOrders(ctx context.Context, params url.Values) (*OrdersPage, error)

	// GetOrderItems calls GET /orders/v0/orders/{id}/orderItems.
	GetOrderItems(ctx context.Context, orderID string, nextToken string) (*OrderItemsPage, error)

	// Limiters exposes the underlying rate limiters so callers (the fetcher)
	// can consult WaitTime() when pacing batches.
	Limiters() *Limiters
}

// ClientConfig configures RealClient construction.
type ClientConfig struct {
	// Region selects the SP-API base URL ("na" or "eu").
	Region string
	// BaseURL overrides the region-derived base URL (used by tests).
	BaseURL string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	RateLimits BreakerAndRateConfig
}

// BreakerAndRateConfig bundles the tunables for both rate limiters and the
// circuit breaker, since both are constructed alongside the client.
type BreakerAndRateConfig struct {
	OrdersRatePerSecond     float64
	OrdersBurst             int
	OrderItemsRatePerSecond float64
	OrderItemsBurst         int

	FailureThreshold int
	RecoveryTimeout  time.Duration
}

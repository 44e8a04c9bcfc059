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
	"sync"
	"time"
)

// Priority biases how long a caller sleeps waiting for a token. High-priority
// callers (order-items batch workers racing a deadline) wait less; low
// priority callers wait more, leaving headroom for everyone else.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

func (p Priority) factor() float64 {
	switch p {
	case PriorityHigh:
		return 0.9
	case PriorityLow:
		return 1.2
	default:
		return 1.0
	}
}

// TokenBucket is a single-endpoint rate limiter: tokens refill continuously
// at Rate per second up to Burst, and each Acquire consumes one token,
// blocking the caller if none is available.
//
// All state is guarded by one mutex; there is no unbounded waiter queue,
// callers simply block on their own goroutine until a token frees up.
type TokenBucket struct {
	mu sync.Mutex

	rate  float64 // tokens per second
	burst float64 // bucket capacity

	tokens     float64
	lastRefill time.Time

	totalRequests     uint64
	throttledRequests uint64
}

// NewTokenBucket creates a bucket starting full.
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	return &TokenBucket{
		rate:       rate,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastRefill: time.Now(),
	}
}

func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastRefill = now
}

// Acquire blocks until one token is available (or ctx is done), then
// consumes it. priority biases the sleep duration when the bucket is empty.
func (b *TokenBucket) Acquire(ctx context.Context, priority Priority) error {
	for {
		b.mu.Lock()
		now := time.Now()
		b.refillLocked(now)
		b.totalRequests++

		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}

		wait := (1 - b.tokens) / b.rate
		wait *= priority.factor()
		b.throttledRequests++
		b.mu.Unlock()

		timer := time.NewTimer(time.Duration(wait * float64(time.Second)))
		select {
		case <-timer.C:
			// loop and try again
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// WaitTime returns the estimated number of seconds until the next token is
// available without consuming one. Zero if a token is available now.
func (b *TokenBucket) WaitTime() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	if b.tokens >= 1 {
		return 0
	}
	seconds := (1 - b.tokens) / b.rate
	return time.Duration(seconds * float64(time.Second))
}

// BucketStats is a point-in-time snapshot of a TokenBucket's counters.
type BucketStats struct {
	TotalRequests     uint64
	ThrottledRequests uint64
	CurrentTokens     float64
}

// Stats returns a snapshot of the bucket's counters.
func (b *TokenBucket) Stats() BucketStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	return BucketStats{
		TotalRequests:     b.totalRequests,
		ThrottledRequests: b.throttledRequests,
		CurrentTokens:     b.tokens,
	}
}

// Endpoint identifies which SP-API endpoint class a request belongs to, since
// each class has its own independent bucket.
type Endpoint int

const (
	EndpointOrders Endpoint = iota
	EndpointOrderItems
)

// Limiters bundles the two independent per-endpoint token buckets the spec
// requires. Token refresh must never traverse either bucket.
type Limiters struct {
	Orders     *TokenBucket
	OrderItems *TokenBucket
}

// NewLimiters constructs both buckets from the given rates and bursts. The
// configuration defaults are orders 0.0167 tok/s burst 20, order-items
// 0.5 tok/s burst 30.
func NewLimiters(ordersRate float64, ordersBurst int, itemsRate float64, itemsBurst int) *Limiters {
	return &Limiters{
		Orders:     NewTokenBucket(ordersRate, ordersBurst),
		OrderItems: NewTokenBucket(itemsRate, itemsBurst),
	}
}

// Acquire waits for a token on the bucket matching the endpoint.
func (l *Limiters) Acquire(ctx context.Context, ep Endpoint, priority Priority) error {
	switch ep {
	case EndpointOrderItems:
		return l.OrderItems.Acquire(ctx, priority)
	default:
		return l.Orders.Acquire(ctx, priority)
	}
}

// WaitTime returns the estimated wait for the bucket matching the endpoint.
func (l *Limiters) WaitTime(ep Endpoint) time.Duration {
	switch ep {
	case EndpointOrderItems:
		return l.OrderItems.WaitTime()
	default:
		return l.Orders.WaitTime()
	}
}

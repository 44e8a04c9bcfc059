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
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"
)

// Breaker wraps gobreaker.CircuitBreaker with the CLOSED -> OPEN -> HALF_OPEN
// state machine the spec describes: trip OPEN after FailureThreshold
// consecutive failures, probe again after RecoveryTimeout.
type Breaker struct {
	cb  *gobreaker.CircuitBreaker
	log logr.Logger
}

// BreakerConfig configures the trip/recovery thresholds.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker OPEN. Default 10.
	FailureThreshold uint32
	// RecoveryTimeout is how long the breaker stays OPEN before allowing a
	// single HALF_OPEN probe request through. Default 300s.
	RecoveryTimeout time.Duration
}

// NewBreaker constructs a Breaker named for logging/metrics purposes.
func NewBreaker(name string, cfg BreakerConfig, log logr.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 10
	}
	if cfg.RecoveryTimeout == 0 {
		cfg.RecoveryTimeout = 300 * time.Second
	}

	log = log.WithName("circuit-breaker").WithValues("breaker", name)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // allow exactly one probe request while HALF_OPEN
		Interval:    0, // never reset counts while CLOSED; only consecutive failures matter
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), log: log}
}

// Call executes fn guarded by the breaker. In the OPEN state it fails fast
// with ErrCircuitOpen without invoking fn at all.
func (b *Breaker) Call(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// State returns the current breaker state name (closed, open, half-open).
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Counts returns the breaker's internal request/failure counters.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_AcquireWithinBurst(t *testing.T) {
	b := NewTokenBucket(1.0, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Acquire(ctx, PriorityNormal))
	}

	stats := b.Stats()
	assert.Equal(t, uint64(5), stats.TotalRequests)
	assert.Equal(t, uint64(0), stats.ThrottledRequests)
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
	b := NewTokenBucket(50.0, 1)
	ctx := context.Background()

	require.NoError(t, b.Acquire(ctx, PriorityNormal))

	start := time.Now()
	require.NoError(t, b.Acquire(ctx, PriorityNormal))
	elapsed := time.Since(start)

	assert.Greater(t, elapsed, time.Duration(0))
	assert.Equal(t, uint64(1), b.Stats().ThrottledRequests)
}

func TestTokenBucket_ContextCancellation(t *testing.T) {
	b := NewTokenBucket(0.1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, b.Acquire(context.Background(), PriorityNormal))
	err := b.Acquire(ctx, PriorityNormal)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucket_WaitTimeZeroWhenFull(t *testing.T) {
	b := NewTokenBucket(1.0, 5)
	assert.Equal(t, time.Duration(0), b.WaitTime())
}

func TestPriorityFactor(t *testing.T) {
	assert.Less(t, PriorityHigh.factor(), PriorityNormal.factor())
	assert.Greater(t, PriorityLow.factor(), PriorityNormal.factor())
}

func TestLimiters_DefaultBuckets(t *testing.T) {
	l := NewLimiters(0.0167, 20, 0.5, 30)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, EndpointOrders, PriorityNormal))
	require.NoError(t, l.Acquire(ctx, EndpointOrderItems, PriorityHigh))

	assert.Equal(t, uint64(1), l.Orders.Stats().TotalRequests)
	assert.Equal(t, uint64(1), l.OrderItems.Stats().TotalRequests)
}

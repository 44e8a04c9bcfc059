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

package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/ahmar-js/amazon-connector/pkg/spapi"
)

const (
	minBatchSize         = 1
	maxBatchSize         = 30
	initialBatchSize     = 10
	batchFailureRateTrip = 0.10
)

type batchStats struct {
	retries   int
	finalSize int
}

// fetchOneOrderItems pages through GET /orders/v0/orders/{id}/orderItems for
// a single order, following its own NextToken.
func (f *Fetcher) fetchOneOrderItems(ctx context.Context, orderID string) ([]spapi.RawOrderItem, error) {
	var all []spapi.RawOrderItem
	nextToken := ""

	for {
		page, err := f.client.GetOrderItems(ctx, orderID, nextToken)
		if err != nil {
			return all, err
		}
		for i := range page.Payload.OrderItems {
			page.Payload.OrderItems[i].AmazonOrderID = orderID
		}
		all = append(all, page.Payload.OrderItems...)

		if page.Payload.NextToken == "" {
			return all, nil
		}
		nextToken = page.Payload.NextToken
	}
}

// adaptiveBatchFetch partitions orderIDs into batches whose size grows or
// shrinks based on observed failure rate, fanning out up to maxConcurrency
// concurrent order-item fetches per batch.
func (f *Fetcher) adaptiveBatchFetch(ctx context.Context, orderIDs []string) (map[string][]spapi.RawOrderItem, []string, batchStats) {
	items := make(map[string][]spapi.RawOrderItem, len(orderIDs))
	var failed []string

	batchSize := initialBatchSize
	consecutiveSuccesses := 0
	consecutiveBatchFailures := 0
	stats := batchStats{}

	for start := 0; start < len(orderIDs); start += batchSize {
		end := start + batchSize
		if end > len(orderIDs) {
			end = len(orderIDs)
		}
		batch := orderIDs[start:end]

		batchItems, batchFailed := f.runBatch(ctx, batch)
		for id, its := range batchItems {
			items[id] = its
		}
		failed = append(failed, batchFailed...)

		failureRate := float64(len(batchFailed)) / float64(len(batch))
		if failureRate >= batchFailureRateTrip {
			consecutiveBatchFailures++
			consecutiveSuccesses = 0
		} else {
			consecutiveSuccesses++
			consecutiveBatchFailures = 0
		}

		if consecutiveSuccesses >= 3 && batchSize < maxBatchSize {
			batchSize++
			consecutiveSuccesses = 0
			stats.retries++
		}
		if consecutiveBatchFailures >= 2 && batchSize > minBatchSize {
			batchSize--
			consecutiveBatchFailures = 0
			stats.retries++
		}

		sleep := f.interBatchSleep(failureRate)
		if sleep > 0 && end < len(orderIDs) {
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				stats.finalSize = batchSize
				return items, failed, stats
			}
		}
	}

	stats.finalSize = batchSize
	return items, failed, stats
}

// interBatchSleep returns the larger of a failure-rate penalty and the
// order-items bucket's current wait time, so the fetcher never outruns the
// rate limiter even when the adaptive batch size grows aggressively.
func (f *Fetcher) interBatchSleep(failureRate float64) time.Duration {
	penalty := time.Duration(failureRate*2) * time.Second
	waitTime := f.client.Limiters().WaitTime(spapi.EndpointOrderItems)
	if waitTime > penalty {
		return waitTime
	}
	return penalty
}

// runBatch fans out up to maxConcurrency concurrent order-item fetches for
// one batch of order IDs.
func (f *Fetcher) runBatch(ctx context.Context, batch []string) (map[string][]spapi.RawOrderItem, []string) {
	items := make(map[string][]spapi.RawOrderItem, len(batch))
	var failed []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, f.maxConcurrency)

	for _, orderID := range batch {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			its, err := f.fetchOneOrderItems(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, id)
				f.log.V(1).Info("order items fetch failed", "orderId", id, "error", err)
				return
			}
			items[id] = its
		}(orderID)
	}

	wg.Wait()
	return items, failed
}

// autoRetryLoop re-fetches failed order IDs in sub-batches half the size of
// the adaptive batch fetch's final batch size, up to 5 rounds with
// 60s*round backoff between rounds and a 30s pause between retry
// sub-batches within a round. Terminates on zero remaining failures or
// round exhaustion.
func (f *Fetcher) autoRetryLoop(ctx context.Context, failedOrders []string, lastBatchSize int) (map[string][]spapi.RawOrderItem, []string, int) {
	items := make(map[string][]spapi.RawOrderItem)
	remaining := append([]string{}, failedOrders...)

	retryBatchSize := lastBatchSize / 2
	if retryBatchSize < minBatchSize {
		retryBatchSize = minBatchSize
	}

	const maxRounds = 5
	round := 0

	for round = 1; round <= maxRounds && len(remaining) > 0; round++ {
		if round > 1 {
			roundBackoff := time.Duration(round) * 60 * time.Second
			select {
			case <-time.After(roundBackoff):
			case <-ctx.Done():
				return items, remaining, round - 1
			}
		}

		var stillFailed []string

		for start := 0; start < len(remaining); start += retryBatchSize {
			end := start + retryBatchSize
			if end > len(remaining) {
				end = len(remaining)
			}
			batch := remaining[start:end]

			batchItems, batchFailed := f.runBatch(ctx, batch)
			for id, its := range batchItems {
				items[id] = its
			}
			stillFailed = append(stillFailed, batchFailed...)

			if end < len(remaining) {
				select {
				case <-time.After(30 * time.Second):
				case <-ctx.Done():
					stillFailed = append(stillFailed, remaining[end:]...)
					return items, stillFailed, round
				}
			}
		}

		remaining = stillFailed
	}

	return items, remaining, round - 1
}

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

// Package fetcher paginates SP-API orders and fans out adaptive-batch
// order-item fetches for one marketplace-day, retrying failed orders until
// either 100% coverage or the retry budget is exhausted.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahmar-js/amazon-connector/pkg/spapi"
)

// Stats reports what happened during one fetchOrdersWithItems call.
type Stats struct {
	OrdersFetched   int
	ItemsFetched    int
	BatchRetries    int
	OrderRetryPass  int
	FinalBatchSize  int
}

// Result is the return value of Fetch: every order seen, its items (if the
// fetch eventually succeeded), and any orders that never yielded items.
type Result struct {
	Orders        []spapi.RawOrder
	ItemsByOrder  map[string][]spapi.RawOrderItem
	FailedOrders  []string
	Stats         Stats
}

// Fetcher drives one marketplace-day's order+item fetch against an
// spapi.Client.
type Fetcher struct {
	client spapi.Client
	log    logr.Logger

	maxConcurrency int
}

// New constructs a Fetcher over the given SP-API client.
func New(client spapi.Client, log logr.Logger) *Fetcher {
	return &Fetcher{client: client, log: log.WithName("fetcher"), maxConcurrency: 8}
}

// Fetch implements fetchOrdersWithItems(marketplace, startUtc, endUtc, maxOrders).
// marketplaceID is the Amazon marketplace ID (not the short code).
func (f *Fetcher) Fetch(ctx context.Context, marketplaceID string, startUTC, endUTC time.Time, maxOrders int) (*Result, error) {
	orders, err := f.fetchOrderPages(ctx, marketplaceID, startUTC, endUTC, maxOrders)
	if err != nil {
		return nil, fmt.Errorf("fetch orders page loop: %w", err)
	}

	result := &Result{
		Orders:       orders,
		ItemsByOrder: make(map[string][]spapi.RawOrderItem, len(orders)),
	}
	result.Stats.OrdersFetched = len(orders)

	if len(orders) == 0 {
		return result, nil
	}

	orderIDs := make([]string, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.AmazonOrderID
	}

	items, failed, batchStats := f.adaptiveBatchFetch(ctx, orderIDs)
	for id, its := range items {
		result.ItemsByOrder[id] = its
		result.Stats.ItemsFetched += len(its)
	}
	result.Stats.BatchRetries = batchStats.retries
	result.Stats.FinalBatchSize = batchStats.finalSize

	if len(failed) > 0 {
		recovered, stillFailed, rounds := f.autoRetryLoop(ctx, failed, batchStats.finalSize)
		for id, its := range recovered {
			result.ItemsByOrder[id] = its
			result.Stats.ItemsFetched += len(its)
		}
		result.FailedOrders = stillFailed
		result.Stats.OrderRetryPass = rounds
	}

	return result, nil
}

// fetchOrderPages implements the orders page loop: MaxResultsPerPage
// degrades through {100,50,20} on retry, following NextToken until absent
// or maxOrders is reached.
func (f *Fetcher) fetchOrderPages(ctx context.Context, marketplaceID string, startUTC, endUTC time.Time, maxOrders int) ([]spapi.RawOrder, error) {
	pageSizes := []int{100, 50, 20}
	var all []spapi.RawOrder
	nextToken := ""

	for {
		var page *spapi.OrdersPage
		var err error

		for attempt, size := range pageSizes {
			params := url.Values{}
			params.Set("MarketplaceIds", marketplaceID)
			params.Set("CreatedAfter", startUTC.Format(time.RFC3339))
			params.Set("CreatedBefore", endUTC.Format(time.RFC3339))
			for _, status := range spapi.OrderStatuses {
				params.Add("OrderStatuses", status)
			}
			params.Set("MaxResultsPerPage", strconv.Itoa(size))
			if nextToken != "" {
				params.Set("NextToken", nextToken)
			}

			page, err = f.client.GetOrders(ctx, params)
			if err == nil {
				break
			}
			f.log.V(1).Info("orders page fetch failed, degrading page size", "attempt", attempt, "pageSize", size, "error", err)
		}
		if err != nil {
			return all, err
		}

		all = append(all, page.Payload.Orders...)
		if maxOrders > 0 && len(all) >= maxOrders {
			return all[:maxOrders], nil
		}

		if page.Payload.NextToken == "" {
			return all, nil
		}
		nextToken = page.Payload.NextToken
	}
}

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
	"sync"
)

// MockClient is a test double for Client: callers enqueue canned responses
// or errors per method and MockClient plays them back in order, recording
// every call it received for later assertions.
type MockClient struct {
	mu sync.Mutex

	OrdersResponses     []*OrdersPage
	OrdersErrors        []error
	OrderItemsResponses map[string][]*OrderItemsPage
	OrderItemsErrors    map[string][]error

	OrdersCalls     []url.Values
	OrderItemsCalls []string

	limiters *Limiters
}

// NewMockClient creates an empty MockClient with default-sized limiters so
// code paths that call Limiters().WaitTime() still work in tests.
func NewMockClient() *MockClient {
	return &MockClient{
		OrderItemsResponses: make(map[string][]*OrderItemsPage),
		OrderItemsErrors:    make(map[string][]error),
		limiters:            NewLimiters(1000, 1000, 1000, 1000),
	}
}

func (m *MockClient) Limiters() *Limiters { return m.limiters }

// GetOrders returns the next queued orders page/error.
func (m *MockClient) GetOrders(_ context.Context, params url.Values) (*OrdersPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OrdersCalls = append(m.OrdersCalls, params)

	if len(m.OrdersErrors) > 0 {
		err := m.OrdersErrors[0]
		m.OrdersErrors = m.OrdersErrors[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(m.OrdersResponses) == 0 {
		return &OrdersPage{}, nil
	}
	resp := m.OrdersResponses[0]
	m.OrdersResponses = m.OrdersResponses[1:]
	return resp, nil
}

// GetOrderItems returns the next queued order-items page/error for orderID.
func (m *MockClient) GetOrderItems(_ context.Context, orderID string, _ string) (*OrderItemsPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OrderItemsCalls = append(m.OrderItemsCalls, orderID)

	if errs := m.OrderItemsErrors[orderID]; len(errs) > 0 {
		err := errs[0]
		m.OrderItemsErrors[orderID] = errs[1:]
		if err != nil {
			return nil, err
		}
	}
	pages := m.OrderItemsResponses[orderID]
	if len(pages) == 0 {
		return &OrderItemsPage{}, nil
	}
	page := pages[0]
	m.OrderItemsResponses[orderID] = pages[1:]
	return page, nil
}

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

// Package spapi implements a client for Amazon's Selling Partner API: dual
// per-endpoint rate limiting, a circuit breaker, synchronized LWA token
// refresh, and a retry envelope with backoff and jitter.
package spapi

import "encoding/json"

// RawOrder is an Amazon-shaped order record as returned by
// GET /orders/v0/orders, keyed by AmazonOrderId.
type RawOrder struct {
	AmazonOrderID     string          `json:"AmazonOrderId"`
	PurchaseDate      string          `json:"PurchaseDate"`
	OrderStatus       string          `json:"OrderStatus"`
	SalesChannel      string          `json:"SalesChannel"`
	FulfillmentChan   string          `json:"FulfillmentChannel"`
	MarketplaceID     string          `json:"MarketplaceId"`
	OrderTotal        json.RawMessage `json:"OrderTotal,omitempty"`
	ShipServiceLevel  string          `json:"ShipServiceLevel,omitempty"`
	ShippingAddress   json.RawMessage `json:"ShippingAddress,omitempty"`
	NumberOfItemsShip int             `json:"NumberOfItemsShipped,omitempty"`
	NumberOfItemsUnsh int             `json:"NumberOfItemsUnshipped,omitempty"`

	// Extra holds any additional fields SP-API returns that this struct does
	// not model explicitly, so the transformer can still surface them.
	Extra map[string]json.RawMessage `json:"-"`
}

// RawOrderItem is an Amazon-shaped order item as returned by
// GET /orders/v0/orders/{id}/orderItems. It is keyed by OrderItemId within
// its parent order.
type RawOrderItem struct {
	AmazonOrderID          string          `json:"-"` // stamped by the fetcher from the parent order
	OrderItemID            string          `json:"OrderItemId"`
	SellerSKU              string          `json:"SellerSKU"`
	Title                  string          `json:"Title,omitempty"`
	QuantityOrdered        int             `json:"QuantityOrdered"`
	QuantityShipped        int             `json:"QuantityShipped,omitempty"`
	ItemPrice              json.RawMessage `json:"ItemPrice,omitempty"`
	ShippingPrice          json.RawMessage `json:"ShippingPrice,omitempty"`
	ItemTax                json.RawMessage `json:"ItemTax,omitempty"`
	ShippingTax            json.RawMessage `json:"ShippingTax,omitempty"`
	ShippingDiscount       json.RawMessage `json:"ShippingDiscount,omitempty"`
	ShippingDiscountTax    json.RawMessage `json:"ShippingDiscountTax,omitempty"`
	PromotionDiscount      json.RawMessage `json:"PromotionDiscount,omitempty"`
	PromotionDiscountTax   json.RawMessage `json:"PromotionDiscountTax,omitempty"`
	CODFee                 json.RawMessage `json:"CODFee,omitempty"`
	CODFeeDiscount         json.RawMessage `json:"CODFeeDiscount,omitempty"`
}

// OrdersPage is the decoded payload of GET /orders/v0/orders.
type OrdersPage struct {
	Payload struct {
		Orders    []RawOrder `json:"Orders"`
		NextToken string     `json:"NextToken,omitempty"`
	} `json:"payload"`
}

// OrderItemsPage is the decoded payload of GET /orders/v0/orders/{id}/orderItems.
type OrderItemsPage struct {
	Payload struct {
		OrderItems []RawOrderItem `json:"OrderItems"`
		NextToken  string         `json:"NextToken,omitempty"`
	} `json:"payload"`
}

// OrderStatuses is the fixed set of statuses the fetcher requests.
var OrderStatuses = []string{"Shipped", "Unshipped", "PartiallyShipped", "Canceled", "Unfulfillable"}

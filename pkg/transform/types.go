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

// Package transform converts raw SP-API orders and order items for one
// marketplace-day into the two downstream shapes: an MSSQL operational
// record per order-item, and an AZURE record aggregated per (OrderId, SKU).
//
// The stages run as a sequence of pure functions over a typed slice of
// records rather than a dynamically-typed wide table: merge, split embedded
// currency fields, coerce numerics, convert timezones, compute VAT, map
// region/company, then project into each target shape.
package transform

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is an (amount, currency) pair materialized from a "<amount> <CCY>"
// embedded field, or defaulted per spec §4.5(b).
type Money struct {
	Amount       decimal.Decimal
	CurrencyCode string
}

// Joined is one merged (order, item) row — the outer join of RawOrder and
// RawOrderItem by AmazonOrderId, before any currency-split/VAT/timezone
// processing has run.
type Joined struct {
	AmazonOrderID    string
	OrderItemID      string
	PurchaseDate     time.Time
	PurchaseDateRaw  string
	OrderStatus      string
	SalesChannel     string
	FulfillmentChan  string
	MarketplaceID    string
	SellerSKU        string
	Title            string
	QuantityOrdered  int
	QuantityShipped  int

	ItemPrice            Money
	ShippingPrice        Money
	ItemTax              Money
	ShippingTax          Money
	ShippingDiscount     Money
	ShippingDiscountTax  Money
	PromotionDiscount    Money
	PromotionDiscountTax Money
	CODFee               Money
	CODFeeDiscount       Money
	OrderTotal           Money

	// PurchaseDateConversion is the local-timezone instant computed in the
	// timezone stage.
	PurchaseDateConversion time.Time
	TimezoneConversionOK   bool

	// VAT-stage outputs.
	PromotionalTax    decimal.Decimal
	VATPercent        decimal.Decimal
	Price             decimal.Decimal
	VAT               decimal.Decimal
	UnitPriceExVAT    decimal.Decimal
	ItemTotal         decimal.Decimal

	// Region-stage outputs.
	Region  string
	Country string
	Company string
	Channel string
}

// MssqlRecord is one per-order-item row in the MSSQL operational shape.
// Natural key: (AmazonOrderID, OrderItemID).
type MssqlRecord struct {
	AmazonOrderID            string
	OrderItemID              string
	PurchaseDate             time.Time
	PurchaseDateConversion   time.Time
	PurchaseDateMaterialized time.Time
	OrderStatus              string
	SalesChannel             string
	FulfillmentChannel       string
	MarketplaceID            string
	SKU                      string
	Title                    string
	Quantity                 int

	ItemSubtotal   decimal.Decimal // ItemPrice.Amount
	Promotion      decimal.Decimal // PromotionDiscount.Amount
	VAT            decimal.Decimal // ItemTax.Amount
	CalculatedVAT  decimal.Decimal // VAT (computed)
	UnitPriceIncl  decimal.Decimal // Price
	UnitPriceExcl  decimal.Decimal
	ItemTotal      decimal.Decimal
	CurrencyCode   string
	GrandTotal     decimal.Decimal

	Region  string
	Country string
	Company string
	Channel string
}

// AzureRecord is one aggregated row in the AZURE warehouse shape, grouped by
// (CleanDateTime, Date, OrderId, SKU, Type, Region, Country, SalesChannel,
// Channel, MarketplaceId, Company, CurrencyCode, FulfillmentChannel).
type AzureRecord struct {
	CleanDateTime      time.Time
	Date               time.Time
	OrderID            string
	SKU                string
	Type               string
	Region             string
	Country            string
	SalesChannel       string
	Channel            string
	MarketplaceID      string
	Company            string
	CurrencyCode       string
	FulfillmentChannel string

	Quantity       int
	ItemSubtotal   decimal.Decimal
	Promotion      decimal.Decimal
	VAT            decimal.Decimal
	CalculatedVAT  decimal.Decimal
	UnitPriceIncl  decimal.Decimal
	UnitPriceExcl  decimal.Decimal
	ItemTotal      decimal.Decimal
	Total          decimal.Decimal

	DataFetchDate time.Time
	GrandTotal    decimal.Decimal
	Title         string

	PerUnitPriceIncl decimal.Decimal
	PerUnitPriceExcl decimal.Decimal
}

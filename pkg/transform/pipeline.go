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

package transform

import (
	"fmt"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/ahmar-js/amazon-connector/pkg/spapi"
)

// ErrMissingOrderID is fatal for the whole transform: every order must carry
// an AmazonOrderId per spec §4.5 failure policy.
var ErrMissingOrderID = fmt.Errorf("missing required key AmazonOrderId/order_id")

// Pipeline runs the deterministic, order-sensitive transform stages of
// spec §4.5 for one marketplace-day.
type Pipeline struct {
	meta MarketplaceMeta
	log  logr.Logger
}

// New constructs a Pipeline for one marketplace.
func New(meta MarketplaceMeta, log logr.Logger) *Pipeline {
	return &Pipeline{meta: meta, log: log.WithName("transform")}
}

// Output bundles both projected shapes produced from one marketplace-day.
type Output struct {
	MSSQL []MssqlRecord
	Azure []AzureRecord
}

// Run executes merge (which also parses every money field) ->
// split-currency -> PurchaseDate parse -> timezone -> VAT -> region ->
// MSSQL projection -> AZURE projection, in that order.
func (p *Pipeline) Run(orders []spapi.RawOrder, itemsByOrder map[string][]spapi.RawOrderItem) (*Output, error) {
	joined, err := p.merge(orders, itemsByOrder)
	if err != nil {
		return nil, err
	}

	vatRate := vatRateFor(p.meta.VATRate)
	for i := range joined {
		j := &joined[i]
		p.splitCurrency(j)
		p.parsePurchaseDate(j)
		p.convertTimezone(j)
		applyVAT(j, vatRate, p.meta.Channel)
		applyRegion(j, p.meta)
	}

	mssql := projectMSSQL(joined)
	azure := projectAzure(mssql)

	return &Output{MSSQL: mssql, Azure: azure}, nil
}

// merge performs the outer join by AmazonOrderId: every item of an order
// becomes one Joined row; an order with no items still contributes one row
// (with a fallback composite OrderItemID) so the order itself is not lost.
func (p *Pipeline) merge(orders []spapi.RawOrder, itemsByOrder map[string][]spapi.RawOrderItem) ([]Joined, error) {
	var out []Joined

	for _, order := range orders {
		if order.AmazonOrderID == "" {
			return nil, ErrMissingOrderID
		}

		items := itemsByOrder[order.AmazonOrderID]
		if len(items) == 0 {
			out = append(out, p.joinRow(order, spapi.RawOrderItem{}, 0))
			continue
		}

		for idx, item := range items {
			out = append(out, p.joinRow(order, item, idx))
		}
	}

	return out, nil
}

func (p *Pipeline) joinRow(order spapi.RawOrder, item spapi.RawOrderItem, index int) Joined {
	orderItemID := item.OrderItemID
	if orderItemID == "" {
		// Open-question decision: fall back to a deterministic composite key
		// so the MSSQL natural key and dedup logic never collide on empty.
		orderItemID = order.AmazonOrderID + "#" + item.SellerSKU + "#" + strconv.Itoa(index)
	}

	return Joined{
		AmazonOrderID:   order.AmazonOrderID,
		OrderItemID:     orderItemID,
		PurchaseDateRaw: order.PurchaseDate,
		OrderStatus:     order.OrderStatus,
		SalesChannel:    order.SalesChannel,
		FulfillmentChan: order.FulfillmentChan,
		MarketplaceID:   order.MarketplaceID,
		SellerSKU:       item.SellerSKU,
		Title:           item.Title,
		QuantityOrdered: item.QuantityOrdered,
		QuantityShipped: item.QuantityShipped,

		ItemPrice:            parseMoneyJSON(item.ItemPrice),
		ShippingPrice:        parseMoneyJSON(item.ShippingPrice),
		ItemTax:              parseMoneyJSON(item.ItemTax),
		ShippingTax:          parseMoneyJSON(item.ShippingTax),
		ShippingDiscount:     parseMoneyJSON(item.ShippingDiscount),
		ShippingDiscountTax:  parseMoneyJSON(item.ShippingDiscountTax),
		PromotionDiscount:    parseMoneyJSON(item.PromotionDiscount),
		PromotionDiscountTax: parseMoneyJSON(item.PromotionDiscountTax),
		CODFee:               parseMoneyJSON(item.CODFee),
		CODFeeDiscount:       parseMoneyJSON(item.CODFeeDiscount),
		OrderTotal:           parseMoneyJSON(order.OrderTotal),
	}
}

// splitCurrency is a no-op beyond merge for fields that already arrive
// split via parseMoneyJSON; it exists as its own named stage to mirror
// spec §4.5(b) and is the seam where a future flat-string field would be
// wired in without touching merge.
func (p *Pipeline) splitCurrency(j *Joined) {}

func (p *Pipeline) parsePurchaseDate(j *Joined) {
	t, ok := ParsePurchaseDate(j.PurchaseDateRaw)
	if !ok {
		p.log.V(1).Info("unparseable PurchaseDate, leaving null", "orderId", j.AmazonOrderID, "raw", j.PurchaseDateRaw)
		return
	}
	j.PurchaseDate = t
}

func (p *Pipeline) convertTimezone(j *Joined) {
	if j.PurchaseDate.IsZero() {
		return
	}
	converted, ok := ConvertTimezone(j.PurchaseDate, p.meta.Code)
	if !ok {
		return
	}
	j.PurchaseDateConversion = converted
	j.TimezoneConversionOK = true
}

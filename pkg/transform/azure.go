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
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// azureKey is the AZURE shape's group-by key per spec §4.5(i).
type azureKey struct {
	cleanDateTime      time.Time
	date               time.Time
	orderID            string
	sku                string
	typ                string
	region             string
	country            string
	salesChannel       string
	channel            string
	marketplaceID      string
	company            string
	currencyCode       string
	fulfillmentChannel string
}

type azureAgg struct {
	key azureKey

	quantity      int
	itemSubtotal  decimal.Decimal
	promotion     decimal.Decimal
	vat           decimal.Decimal
	calculatedVAT decimal.Decimal
	itemTotal     decimal.Decimal
	total         decimal.Decimal // sum of per-row unit_price(vat_inclusive)
	unitPriceExcl decimal.Decimal

	// grandTotal, title and dataFetchDate are order-level, not item-level:
	// they're carried from the first row in the group rather than summed.
	grandTotal    decimal.Decimal
	title         string
	dataFetchDate time.Time
}

// cleanSKU trims and uppercases the SKU the way the AZURE shape requires
// before grouping, so whitespace and casing differences don't fragment a
// group.
func cleanSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// projectAzure builds the AZURE warehouse shape per spec §4.5(i): filter to
// shipped, Amazon-channel, nonzero-quantity rows with a nonzero per-item
// unit price (rows the VAT stage skipped carry zero); relabel Type "Shipped" -> "Order"; group by the natural AZURE key
// and sum the per-item numeric columns; then recompute the per-unit prices
// from the aggregated totals.
func projectAzure(rows []MssqlRecord) []AzureRecord {
	groups := make(map[azureKey]*azureAgg)
	order := make([]azureKey, 0, len(rows))

	for _, r := range rows {
		if r.OrderStatus != "Shipped" {
			continue
		}
		if r.SalesChannel == "Non-Amazon" {
			continue
		}
		if r.Quantity == 0 {
			continue
		}
		if r.UnitPriceIncl.IsZero() {
			continue
		}

		sku := cleanSKU(r.SKU)
		date := r.PurchaseDateMaterialized
		key := azureKey{
			cleanDateTime:      date,
			date:               time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
			orderID:            r.AmazonOrderID,
			sku:                sku,
			typ:                "Order", // Shipped relabeled to Order
			region:             r.Region,
			country:            r.Country,
			salesChannel:       r.SalesChannel,
			channel:            r.Channel,
			marketplaceID:      r.MarketplaceID,
			company:            r.Company,
			currencyCode:       r.CurrencyCode,
			fulfillmentChannel: r.FulfillmentChannel,
		}

		agg, ok := groups[key]
		if !ok {
			agg = &azureAgg{key: key, grandTotal: r.GrandTotal, title: r.Title, dataFetchDate: r.PurchaseDate}
			groups[key] = agg
			order = append(order, key)
		}

		agg.quantity += r.Quantity
		agg.itemSubtotal = agg.itemSubtotal.Add(r.ItemSubtotal)
		agg.promotion = agg.promotion.Add(r.Promotion)
		agg.vat = agg.vat.Add(r.VAT)
		agg.calculatedVAT = agg.calculatedVAT.Add(r.CalculatedVAT)
		agg.itemTotal = agg.itemTotal.Add(r.ItemTotal)
		agg.total = agg.total.Add(r.UnitPriceIncl)
		agg.unitPriceExcl = agg.unitPriceExcl.Add(r.UnitPriceExcl)
	}

	out := make([]AzureRecord, 0, len(order))
	for _, key := range order {
		agg := groups[key]

		rec := AzureRecord{
			CleanDateTime:      agg.key.cleanDateTime,
			Date:               agg.key.date,
			OrderID:            agg.key.orderID,
			SKU:                agg.key.sku,
			Type:               agg.key.typ,
			Region:             agg.key.region,
			Country:            agg.key.country,
			SalesChannel:       agg.key.salesChannel,
			Channel:            agg.key.channel,
			MarketplaceID:      agg.key.marketplaceID,
			Company:            agg.key.company,
			CurrencyCode:       agg.key.currencyCode,
			FulfillmentChannel: agg.key.fulfillmentChannel,

			Quantity:      agg.quantity,
			ItemSubtotal:  agg.itemSubtotal,
			Promotion:     agg.promotion,
			VAT:           agg.vat,
			CalculatedVAT: agg.calculatedVAT,
			UnitPriceIncl: agg.total,
			UnitPriceExcl: agg.unitPriceExcl,
			ItemTotal:     agg.itemTotal,
			Total:         agg.total,

			DataFetchDate: agg.dataFetchDate,
			GrandTotal:    agg.grandTotal,
			Title:         agg.title,
		}

		if agg.quantity > 0 {
			qty := decimal.NewFromInt(int64(agg.quantity))
			rec.PerUnitPriceIncl = rec.ItemSubtotal.Div(qty).Round(roundPlaces)
			rec.PerUnitPriceExcl = rec.ItemSubtotal.Sub(rec.CalculatedVAT).Div(qty).Round(roundPlaces)
		}

		out = append(out, rec)
	}

	return out
}

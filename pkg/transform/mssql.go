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

// projectMSSQL builds the MSSQL operational shape per spec §4.5(h): one row
// per order-item, with the VAT-stage fields renamed onto their destination
// columns, OrderStatus carried through unrenamed, and PurchaseDateMaterialized
// set to the converted local time (or the raw UTC purchase time when
// conversion failed).
func projectMSSQL(rows []Joined) []MssqlRecord {
	out := make([]MssqlRecord, 0, len(rows))

	for _, j := range rows {
		materialized := j.PurchaseDateConversion
		if !j.TimezoneConversionOK {
			materialized = j.PurchaseDate
		}

		out = append(out, MssqlRecord{
			AmazonOrderID:            j.AmazonOrderID,
			OrderItemID:              j.OrderItemID,
			PurchaseDate:             j.PurchaseDate,
			PurchaseDateConversion:   j.PurchaseDateConversion,
			PurchaseDateMaterialized: materialized,
			OrderStatus:              j.OrderStatus,
			SalesChannel:             j.SalesChannel,
			FulfillmentChannel:       j.FulfillmentChan,
			MarketplaceID:            j.MarketplaceID,
			SKU:                      j.SellerSKU,
			Title:                    j.Title,
			Quantity:                 j.QuantityOrdered,

			ItemSubtotal:  j.ItemPrice.Amount,
			Promotion:     j.PromotionDiscount.Amount,
			VAT:           j.ItemTax.Amount,
			CalculatedVAT: j.VAT,
			UnitPriceIncl: j.Price,
			UnitPriceExcl: j.UnitPriceExVAT,
			ItemTotal:     j.ItemTotal,
			CurrencyCode:  j.OrderTotal.CurrencyCode,
			GrandTotal:    j.OrderTotal.Amount,

			Region:  j.Region,
			Country: j.Country,
			Company: j.Company,
			Channel: j.Channel,
		})
	}

	return out
}

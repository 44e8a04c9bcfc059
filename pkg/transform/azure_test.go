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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseMssqlRow() MssqlRecord {
	purchase := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return MssqlRecord{
		AmazonOrderID:            "333-3333333-3333333",
		OrderItemID:              "i1",
		PurchaseDate:             purchase,
		PurchaseDateMaterialized: purchase,
		OrderStatus:              "Shipped",
		SalesChannel:             "Amazon.co.uk",
		FulfillmentChannel:       "AFN",
		MarketplaceID:            "A1F83G8C2ARO7P",
		SKU:                      "  sku-b  ",
		Title:                    "Widget",
		Quantity:                 1,
		ItemSubtotal:             decimal.RequireFromString("20.00"),
		VAT:                      decimal.RequireFromString("4.00"),
		CalculatedVAT:            decimal.RequireFromString("4.00"),
		UnitPriceIncl:            decimal.RequireFromString("20.00"),
		CurrencyCode:             "GBP",
		GrandTotal:               decimal.RequireFromString("48.04"),
		Region:                   "eu",
		Country:                  "UK",
		Company:                  "Acme EU Ltd",
		Channel:                  "Amazon",
	}
}

func TestProjectAzure_SKUIsTrimmedAndUppercased(t *testing.T) {
	row := baseMssqlRow()
	out := projectAzure([]MssqlRecord{row})
	require.Len(t, out, 1)
	assert.Equal(t, "SKU-B", out[0].SKU)
}

func TestProjectAzure_DataFetchDateIsRawPurchaseDate(t *testing.T) {
	row := baseMssqlRow()
	row.PurchaseDate = time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	row.PurchaseDateMaterialized = time.Date(2024, 6, 2, 0, 59, 0, 0, time.UTC)

	out := projectAzure([]MssqlRecord{row})
	require.Len(t, out, 1)
	assert.True(t, row.PurchaseDate.Equal(out[0].DataFetchDate))
	assert.False(t, out[0].DataFetchDate.IsZero())
}

func TestProjectAzure_ZeroUnitPriceIsExcluded(t *testing.T) {
	row := baseMssqlRow()
	row.UnitPriceIncl = decimal.Zero

	out := projectAzure([]MssqlRecord{row})
	assert.Empty(t, out)
}

func TestProjectAzure_TotalSumsPerRowUnitPriceIncl(t *testing.T) {
	row1 := baseMssqlRow()
	row1.OrderItemID = "i1"
	row1.UnitPriceIncl = decimal.RequireFromString("20.00")

	row2 := baseMssqlRow()
	row2.OrderItemID = "i2"
	row2.UnitPriceIncl = decimal.RequireFromString("20.00")

	out := projectAzure([]MssqlRecord{row1, row2})
	require.Len(t, out, 1)
	assert.True(t, decimal.RequireFromString("40.00").Equal(out[0].Total))
}

func TestProjectAzure_OrderStatusRenamedToType(t *testing.T) {
	row := baseMssqlRow()
	out := projectAzure([]MssqlRecord{row})
	require.Len(t, out, 1)
	assert.Equal(t, "Order", out[0].Type)
}

func TestProjectAzure_NonShippedExcluded(t *testing.T) {
	row := baseMssqlRow()
	row.OrderStatus = "Pending"
	out := projectAzure([]MssqlRecord{row})
	assert.Empty(t, out)
}

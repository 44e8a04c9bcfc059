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

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyVAT_S2Scenario(t *testing.T) {
	j := &Joined{
		SalesChannel:      "Amazon.co.uk",
		ItemPrice:         Money{Amount: decimal.RequireFromString("12.01")},
		PromotionDiscount: Money{Amount: decimal.RequireFromString("0")},
		ItemTax:           Money{Amount: decimal.RequireFromString("2.00")},
	}

	applyVAT(j, decimal.RequireFromString("0.20"), "Amazon.co.uk")

	assert.True(t, decimal.RequireFromString("12.01").Equal(j.Price))
	assert.True(t, decimal.RequireFromString("10.01").Equal(j.UnitPriceExVAT))
	assert.True(t, decimal.RequireFromString("12.01").Equal(j.ItemTotal))
}

func TestApplyVAT_ZeroItemTaxZeroesPromotionalTax(t *testing.T) {
	j := &Joined{
		SalesChannel:      "Amazon.co.uk",
		ItemPrice:         Money{Amount: decimal.RequireFromString("10.00")},
		PromotionDiscount: Money{Amount: decimal.RequireFromString("1.00")},
		ItemTax:           Money{Amount: decimal.Zero},
	}

	applyVAT(j, decimal.RequireFromString("0.20"), "Amazon.co.uk")

	assert.True(t, j.PromotionalTax.IsZero())
	assert.True(t, j.VAT.IsZero())
}

func TestApplyVAT_NonMatchingChannelSkipsUnlessNonAmazon(t *testing.T) {
	j := &Joined{SalesChannel: "Amazon.de", ItemPrice: Money{Amount: decimal.RequireFromString("10.00")}}
	applyVAT(j, decimal.RequireFromString("0.20"), "Amazon.co.uk")
	assert.True(t, j.Price.IsZero())

	j2 := &Joined{SalesChannel: "Non-Amazon", ItemPrice: Money{Amount: decimal.RequireFromString("10.00")}, ItemTax: Money{Amount: decimal.RequireFromString("1.00")}}
	applyVAT(j2, decimal.RequireFromString("0.20"), "Amazon.co.uk")
	assert.False(t, j2.Price.IsZero())
}

func TestApplyVAT_VATIdentity(t *testing.T) {
	j := &Joined{
		SalesChannel: "Amazon.de",
		ItemPrice:    Money{Amount: decimal.RequireFromString("50.00")},
		ItemTax:      Money{Amount: decimal.RequireFromString("7.98")},
	}
	applyVAT(j, decimal.RequireFromString("0.19"), "Amazon.de")

	sum := j.UnitPriceExVAT.Add(j.VAT)
	diff := sum.Sub(j.Price).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")))
}

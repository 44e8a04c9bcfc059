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
	"strconv"

	"github.com/shopspring/decimal"
)

// vatRateFor converts the marketplace's float64 VAT rate (as loaded from
// config) into a decimal.Decimal for exact arithmetic.
func vatRateFor(rate float64) decimal.Decimal {
	d, err := decimal.NewFromString(strconv.FormatFloat(rate, 'f', -1, 64))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// roundPlaces is the number of decimal places every computed VAT column is
// rounded to. shopspring/decimal's Round rounds half away from zero, which
// for the non-negative amounts here is equivalent to the half-up rounding
// the design notes standardize on (replacing the banker's-rounding the
// source system used).
const roundPlaces = 2

// applyVAT computes the VAT-stage columns for one joined row per spec
// §4.5(f). channel is the marketplace's Amazon sales channel label (e.g.
// "Amazon.co.uk"); VAT only applies when the row's SalesChannel matches it
// or equals "Non-Amazon".
func applyVAT(j *Joined, vatRate decimal.Decimal, channel string) {
	if j.SalesChannel != channel && j.SalesChannel != "Non-Amazon" {
		return
	}

	multiplier := decimal.NewFromInt(1).Add(vatRate)

	promotionalTax := j.PromotionDiscount.Amount.Mul(multiplier.Sub(decimal.NewFromInt(1)))

	var vatPercent decimal.Decimal
	if !j.ItemTax.Amount.IsZero() {
		vatPercent = vatRate.Div(multiplier)
	} else {
		vatPercent = decimal.Zero
		promotionalTax = decimal.Zero
	}

	price := j.ItemPrice.Amount.Add(promotionalTax)
	vat := price.Mul(vatPercent)

	var unitPriceExVAT decimal.Decimal
	if promotionalTax.IsZero() && j.PromotionDiscount.Amount.IsZero() {
		unitPriceExVAT = price.Sub(j.ItemTax.Amount)
	} else {
		unitPriceExVAT = price.Sub(vat)
	}

	itemTotal := price.Sub(j.PromotionDiscount.Amount).Sub(promotionalTax)

	j.PromotionalTax = promotionalTax.Round(roundPlaces)
	j.VATPercent = vatPercent
	j.Price = price.Round(roundPlaces)
	j.VAT = vat.Round(roundPlaces)
	j.UnitPriceExVAT = unitPriceExVAT.Round(roundPlaces)
	j.ItemTotal = itemTotal.Round(roundPlaces)
}

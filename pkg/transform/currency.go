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
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// currencyPattern matches "<amount> <CCY>" or "<amount><CCY>", with an
// optional leading minus sign and an optional 3-letter currency code.
var currencyPattern = regexp.MustCompile(`^\s*(-?[0-9]+(?:\.[0-9]+)?)\s*([A-Za-z]{3})?\s*$`)

// parseMoney splits a raw embedded-currency field per spec §4.5(b): if the
// field is "<amount> <CCY>" (or "<amount><CCY>"), materialize the amount and
// currency code; if only the amount is present, currency defaults to USD.
// Unparseable input defaults to 0.0/USD.
func parseMoney(raw string) Money {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Money{Amount: decimal.Zero, CurrencyCode: "USD"}
	}

	m := currencyPattern.FindStringSubmatch(raw)
	if m == nil {
		return Money{Amount: decimal.Zero, CurrencyCode: "USD"}
	}

	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return Money{Amount: decimal.Zero, CurrencyCode: "USD"}
	}

	ccy := strings.ToUpper(m[2])
	if ccy == "" {
		ccy = "USD"
	}

	return Money{Amount: amount, CurrencyCode: ccy}
}

// parseMoneyJSON handles a field that may arrive either already split as
// {"Amount": n, "CurrencyCode": "GBP"} or as the flat "<amount> <CCY>" form
// SP-API sometimes returns for legacy fields.
func parseMoneyJSON(raw json.RawMessage) Money {
	if len(raw) == 0 {
		return Money{Amount: decimal.Zero, CurrencyCode: "USD"}
	}

	var split struct {
		Amount       json.Number `json:"Amount"`
		CurrencyCode string      `json:"CurrencyCode"`
	}
	if err := json.Unmarshal(raw, &split); err == nil && (split.Amount != "" || split.CurrencyCode != "") {
		amount, err := decimal.NewFromString(string(split.Amount))
		if err != nil {
			amount = decimal.Zero
		}
		ccy := strings.ToUpper(split.CurrencyCode)
		if ccy == "" {
			ccy = "USD"
		}
		return Money{Amount: amount, CurrencyCode: ccy}
	}

	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return parseMoney(flat)
	}

	return Money{Amount: decimal.Zero, CurrencyCode: "USD"}
}

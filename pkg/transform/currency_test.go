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

func TestParseMoney_SplitsAmountAndCurrency(t *testing.T) {
	cases := []struct {
		raw      string
		wantAmt  string
		wantCCY  string
	}{
		{"12.01 GBP", "12.01", "GBP"},
		{"12.01GBP", "12.01", "GBP"},
		{"-5.50 EUR", "-5.50", "EUR"},
		{"0 GBP", "0", "GBP"},
		{"42.00", "42.00", "USD"},
		{"", "0", "USD"},
		{"garbage", "0", "USD"},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			m := parseMoney(tc.raw)
			want, _ := decimal.NewFromString(tc.wantAmt)
			assert.True(t, want.Equal(m.Amount), "amount: got %s want %s", m.Amount, want)
			assert.Equal(t, tc.wantCCY, m.CurrencyCode)
		})
	}
}

func TestParseMoneyJSON_SplitForm(t *testing.T) {
	m := parseMoneyJSON([]byte(`{"Amount": "12.01", "CurrencyCode": "GBP"}`))
	assert.Equal(t, "GBP", m.CurrencyCode)
	assert.True(t, decimal.RequireFromString("12.01").Equal(m.Amount))
}

func TestParseMoneyJSON_FlatForm(t *testing.T) {
	m := parseMoneyJSON([]byte(`"12.01 GBP"`))
	assert.Equal(t, "GBP", m.CurrencyCode)
	assert.True(t, decimal.RequireFromString("12.01").Equal(m.Amount))
}

func TestParseMoneyJSON_Empty(t *testing.T) {
	m := parseMoneyJSON(nil)
	assert.Equal(t, "USD", m.CurrencyCode)
	assert.True(t, decimal.Zero.Equal(m.Amount))
}

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

import "time"

// marketplaceZones maps a marketplace code to the IANA timezone its
// PurchaseDate_conversion is computed in.
var marketplaceZones = map[string]string{
	"UK": "Europe/London",
	"DE": "Europe/Paris",
	"IT": "Europe/Paris",
	"ES": "Europe/Paris",
	"FR": "Europe/Paris",
	"US": "America/Los_Angeles",
	"CA": "America/Los_Angeles",
}

// purchaseDateLayouts are the accepted input formats for PurchaseDate,
// tried in order; an unparseable value yields a zero time and ok=false.
var purchaseDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParsePurchaseDate parses PurchaseDate accepting the ISO variants SP-API
// emits: with/without a trailing Z, with/without fractional seconds, and the
// space-separated form. Unparseable input returns ok=false.
func ParsePurchaseDate(raw string) (time.Time, bool) {
	for _, layout := range purchaseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ConvertTimezone computes PurchaseDate_conversion for a marketplace per
// spec §4.5(e): UK -> Europe/London, EU -> Europe/Paris, US/CA ->
// America/Los_Angeles. DST transitions follow the IANA tzdata rules loaded
// by time.LoadLocation, which encode the correct last-Sunday-of-March/
// October European rules and the US rules alike — there's no manual DST
// arithmetic.
func ConvertTimezone(purchaseDateUTC time.Time, marketplaceCode string) (time.Time, bool) {
	zoneName, ok := marketplaceZones[marketplaceCode]
	if !ok {
		return time.Time{}, false
	}

	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return time.Time{}, false
	}

	return purchaseDateUTC.In(loc), true
}

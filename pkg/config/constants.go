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

package config

import "time"

// DefaultSeedLastRun is the high-water mark substituted for a marketplace
// that has never been fetched before.
const DefaultSeedLastRun = "2023-11-01T23:59:59Z"

// DefaultMarketplaceFetchDelay is the base delay the controller sleeps
// between dispatching one marketplace-day and picking the next one.
const DefaultMarketplaceFetchDelay = 120 * time.Second

// DefaultSameCredentialGroupDelay is the delay the controller uses instead
// of DefaultMarketplaceFetchDelay when the next candidate shares the
// credential group of the one just dispatched (see FetchController.Run).
const DefaultSameCredentialGroupDelay = 60 * time.Second

// DefaultFetchConnectTimeout bounds establishing the TCP/TLS connection to
// the SP-API endpoint.
const DefaultFetchConnectTimeout = 5 * time.Second

// DefaultFetchReadTimeout bounds waiting for a response body once connected.
const DefaultFetchReadTimeout = 60 * time.Second

// MarketplaceIDs maps each supported marketplace code to Amazon's marketplace ID.
var MarketplaceIDs = map[string]string{
	"US": "ATVPDKIKX0DER",
	"CA": "A2EUQ1WTGCTBG2",
	"UK": "A1F83G8C2ARO7P",
	"DE": "A1PA6795UKMFR9",
	"IT": "APJ6JRA9NG5V4",
	"ES": "A1RKKUPIHCS9HS",
	"FR": "A13V1IB3VIYZZH",
}

// VATRates holds the VAT rate for marketplaces that charge VAT. Marketplaces
// absent from this map (US, CA) have no VAT computation applied.
var VATRates = map[string]float64{
	"UK": 0.20,
	"DE": 0.19,
	"IT": 0.22,
	"ES": 0.21,
}

// Regions groups marketplaces into the two SP-API base-URL regions.
var Regions = map[string]string{
	"US": "na",
	"CA": "na",
	"UK": "eu",
	"DE": "eu",
	"IT": "eu",
	"ES": "eu",
	"FR": "eu",
}

// CompanyLabels is the human-readable company/channel label attached to
// transformed rows for each marketplace.
var CompanyLabels = map[string]string{
	"US": "Amazon.com",
	"CA": "Amazon.ca",
	"UK": "Amazon.co.uk",
	"DE": "Amazon.de",
	"IT": "Amazon.it",
	"ES": "Amazon.es",
	"FR": "Amazon.fr",
}

// SPAPIBaseURLs maps a region to its Selling Partner API base URL.
var SPAPIBaseURLs = map[string]string{
	"na": "https://sellingpartnerapi-na.amazon.com",
	"eu": "https://sellingpartnerapi-eu.amazon.com",
}

// LWATokenURL is the Login With Amazon token endpoint used for refresh-token
// grants.
const LWATokenURL = "https://api.amazon.com/auth/o2/token"

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

// MarketplaceMeta is the static per-marketplace configuration the region
// stage and VAT stage both need. It mirrors spec §3's Marketplace entity.
type MarketplaceMeta struct {
	Code          string
	MarketplaceID string
	Region        string // "na" or "eu"
	Company       string
	Channel       string // e.g. "Amazon.co.uk"
	VATRate       float64
}

// applyRegion assigns {Region, Country, Company, Channel='Amazon'} from the
// marketplace's own metadata per spec §4.5(g). The row's SalesChannel is not
// consulted, so every row of a marketplace-day gets the same values.
func applyRegion(j *Joined, meta MarketplaceMeta) {
	j.Region = meta.Region
	j.Country = meta.Code
	j.Company = meta.Company
	j.Channel = "Amazon"
}

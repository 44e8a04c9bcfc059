/*
Copyright 2026 Amazon Connector Contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

// Metric label name constants.
const (
	// LabelMarketplace identifies the marketplace code (UK, DE, US, ...).
	LabelMarketplace = "marketplace"

	// LabelCredentialGroup identifies the shared LWA application a
	// marketplace authenticates through.
	LabelCredentialGroup = "credential_group"

	// LabelEndpoint identifies the SP-API endpoint class a rate limiter or
	// circuit breaker guards: "orders" or "order_items".
	LabelEndpoint = "endpoint"

	// LabelSink identifies a downstream sink: "mssql" or "azure".
	LabelSink = "sink"

	// LabelStatus carries a dispatch/activity outcome: "dispatched", "busy",
	// "completed", "failed".
	LabelStatus = "status"

	// LabelDataType distinguishes what a freshness measurement covers, e.g.
	// "orders".
	LabelDataType = "data_type"
)

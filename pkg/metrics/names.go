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

// This file exports metric name constants for external consumers (a
// dashboard, an alerting rule) that need to reference the connector's
// metrics by name with compile-time safety.
//
// For label names, see labels.go.

// Controller health metrics.
const (
	// MetricConnectorRunning indicates the connector process is alive.
	// Type: Gauge. Labels: none.
	MetricConnectorRunning = "amazon_connector_running"

	// MetricDataFreshnessSeconds is the age, in seconds, of the most
	// recently written batch for a marketplace. Updated every second by a
	// background goroutine.
	// Type: Gauge. Labels: marketplace, data_type.
	MetricDataFreshnessSeconds = "amazon_connector_data_freshness_seconds"
)

// Controller dispatch metrics.
const (
	// MetricDispatchTotal counts Controller.Run outcomes by status.
	// Type: Counter. Labels: marketplace, status.
	MetricDispatchTotal = "amazon_connector_dispatch_total"

	// MetricFetchDurationSeconds measures one fetchForDay call's wall time.
	// Type: Histogram. Labels: marketplace.
	MetricFetchDurationSeconds = "amazon_connector_fetch_duration_seconds"
)

// Rate limiter and circuit breaker metrics.
const (
	// MetricRateLimiterWaitSeconds measures time spent blocked on a token
	// bucket acquire.
	// Type: Histogram. Labels: endpoint.
	MetricRateLimiterWaitSeconds = "amazon_connector_ratelimiter_wait_seconds"

	// MetricCircuitBreakerState reports the current breaker state
	// (0=closed, 1=half-open, 2=open).
	// Type: Gauge. Labels: endpoint.
	MetricCircuitBreakerState = "amazon_connector_circuit_breaker_state"

	// MetricCircuitBreakerTripsTotal counts breaker trips into the open
	// state.
	// Type: Counter. Labels: endpoint.
	MetricCircuitBreakerTripsTotal = "amazon_connector_circuit_breaker_trips_total"
)

// Writer metrics.
const (
	// MetricWriterRecordsSavedTotal counts records appended per sink.
	// Type: Counter. Labels: marketplace, sink.
	MetricWriterRecordsSavedTotal = "amazon_connector_writer_records_saved_total"

	// MetricWriterRecordsSkippedTotal counts records dropped by dedup per
	// sink.
	// Type: Counter. Labels: marketplace, sink.
	MetricWriterRecordsSkippedTotal = "amazon_connector_writer_records_skipped_total"

	// MetricWriterSinkSuccess reports whether the last write to a sink
	// succeeded (1) or failed (0).
	// Type: Gauge. Labels: marketplace, sink.
	MetricWriterSinkSuccess = "amazon_connector_writer_sink_success"
)

// Anomaly repair metrics.
const (
	// MetricAnomalyRowsDeletedTotal counts rows deleted by an anomaly
	// repair run.
	// Type: Counter. Labels: marketplace, sink.
	MetricAnomalyRowsDeletedTotal = "amazon_connector_anomaly_rows_deleted_total"
)

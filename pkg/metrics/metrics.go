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

// Package metrics provides Prometheus metrics for the Amazon SP-API
// ingestion pipeline: controller dispatch outcomes, rate limiter and
// circuit breaker behavior, writer throughput per sink, and data
// freshness.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the connector.
type Metrics struct {
	// lastUpdateTimes tracks when each marketplace's data was last written
	// successfully. Key format: "marketplace:data_type". The background
	// goroutine uses it to compute DataFreshness's age every second.
	lastUpdateTimes map[string]time.Time
	lastUpdateMu    sync.RWMutex

	stopCh chan struct{}

	// ConnectorRunning is set to 1 on startup; its disappearance from the
	// metrics endpoint indicates a crash.
	ConnectorRunning prometheus.Gauge

	// DataFreshness is the age in seconds since the last successful write
	// for a marketplace, refreshed once per second.
	// Labels: marketplace, data_type.
	DataFreshness *prometheus.GaugeVec

	// DispatchTotal counts Controller.Run outcomes.
	// Labels: marketplace, status.
	DispatchTotal *prometheus.CounterVec

	// FetchDuration measures one fetchForDay call's wall time.
	// Labels: marketplace.
	FetchDuration *prometheus.HistogramVec

	// RateLimiterWait measures time blocked on a token bucket acquire.
	// Labels: endpoint.
	RateLimiterWait *prometheus.HistogramVec

	// CircuitBreakerState reports 0=closed, 1=half-open, 2=open.
	// Labels: endpoint.
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerTrips counts transitions into the open state.
	// Labels: endpoint.
	CircuitBreakerTrips *prometheus.CounterVec

	// WriterRecordsSaved counts records appended per sink.
	// Labels: marketplace, sink.
	WriterRecordsSaved *prometheus.CounterVec

	// WriterRecordsSkipped counts records dropped by dedup per sink.
	// Labels: marketplace, sink.
	WriterRecordsSkipped *prometheus.CounterVec

	// WriterSinkSuccess reports the outcome of the last write per sink.
	// Labels: marketplace, sink.
	WriterSinkSuccess *prometheus.GaugeVec

	// AnomalyRowsDeleted counts rows removed by an anomaly repair run.
	// Labels: marketplace, sink.
	AnomalyRowsDeleted *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the provided
// registry and starts the background freshness-aging goroutine.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lastUpdateTimes: make(map[string]time.Time),
		stopCh:          make(chan struct{}),

		ConnectorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricConnectorRunning,
			Help: "Indicates whether the Amazon connector is running (1 = running)",
		}),

		DataFreshness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricDataFreshnessSeconds,
			Help: "Age of the most recently written batch, in seconds",
		}, []string{LabelMarketplace, LabelDataType}),

		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDispatchTotal,
			Help: "Count of Controller.Run outcomes by status",
		}, []string{LabelMarketplace, LabelStatus}),

		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricFetchDurationSeconds,
			Help:    "Wall time of one fetchForDay call",
			Buckets: []float64{1, 5, 15, 30, 60, 180, 600, 1800},
		}, []string{LabelMarketplace}),

		RateLimiterWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRateLimiterWaitSeconds,
			Help:    "Time spent blocked acquiring a rate limiter token",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{LabelEndpoint}),

		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricCircuitBreakerState,
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{LabelEndpoint}),

		CircuitBreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCircuitBreakerTripsTotal,
			Help: "Count of circuit breaker transitions into the open state",
		}, []string{LabelEndpoint}),

		WriterRecordsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricWriterRecordsSavedTotal,
			Help: "Count of records appended per sink",
		}, []string{LabelMarketplace, LabelSink}),

		WriterRecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricWriterRecordsSkippedTotal,
			Help: "Count of records dropped by dedup per sink",
		}, []string{LabelMarketplace, LabelSink}),

		WriterSinkSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricWriterSinkSuccess,
			Help: "Outcome of the last write per sink (1 = success, 0 = failure)",
		}, []string{LabelMarketplace, LabelSink}),

		AnomalyRowsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAnomalyRowsDeletedTotal,
			Help: "Count of rows removed by an anomaly repair run",
		}, []string{LabelMarketplace, LabelSink}),
	}

	reg.MustRegister(
		m.ConnectorRunning,
		m.DataFreshness,
		m.DispatchTotal,
		m.FetchDuration,
		m.RateLimiterWait,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
		m.WriterRecordsSaved,
		m.WriterRecordsSkipped,
		m.WriterSinkSuccess,
		m.AnomalyRowsDeleted,
	)

	go m.updateDataFreshnessLoop()

	return m
}

// RecordDispatch records one Controller.Run outcome.
func (m *Metrics) RecordDispatch(marketplace, status string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(marketplace, status).Inc()
	if status == "dispatched" {
		m.FetchDuration.WithLabelValues(marketplace).Observe(duration.Seconds())
	}
}

// RecordRateLimiterWait records time spent blocked on a token bucket.
func (m *Metrics) RecordRateLimiterWait(endpoint string, wait time.Duration) {
	m.RateLimiterWait.WithLabelValues(endpoint).Observe(wait.Seconds())
}

// RecordCircuitBreakerState reports the breaker's current state.
func (m *Metrics) RecordCircuitBreakerState(endpoint string, state float64) {
	m.CircuitBreakerState.WithLabelValues(endpoint).Set(state)
}

// RecordCircuitBreakerTrip records a transition into the open state.
func (m *Metrics) RecordCircuitBreakerTrip(endpoint string) {
	m.CircuitBreakerTrips.WithLabelValues(endpoint).Inc()
}

// RecordWriterResult records one sink's outcome for a marketplace-day write.
func (m *Metrics) RecordWriterResult(marketplace, sink string, saved, skipped int, success bool) {
	m.WriterRecordsSaved.WithLabelValues(marketplace, sink).Add(float64(saved))
	m.WriterRecordsSkipped.WithLabelValues(marketplace, sink).Add(float64(skipped))
	successValue := 0.0
	if success {
		successValue = 1.0
		m.MarkDataUpdated(marketplace, "orders")
	}
	m.WriterSinkSuccess.WithLabelValues(marketplace, sink).Set(successValue)
}

// RecordAnomalyRepair records rows deleted by an anomaly repair run.
func (m *Metrics) RecordAnomalyRepair(marketplace, sink string, rowsDeleted int) {
	if rowsDeleted > 0 {
		m.AnomalyRowsDeleted.WithLabelValues(marketplace, sink).Add(float64(rowsDeleted))
	}
}

// MarkDataUpdated marks that a marketplace's data was successfully written,
// resetting its freshness age to zero.
func (m *Metrics) MarkDataUpdated(marketplace, dataType string) {
	key := marketplace + ":" + dataType
	m.lastUpdateMu.Lock()
	m.lastUpdateTimes[key] = time.Now()
	m.lastUpdateMu.Unlock()
}

// updateDataFreshnessLoop runs in a background goroutine, updating every
// DataFreshness gauge once per second until Stop is called.
func (m *Metrics) updateDataFreshnessLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.updateAllDataFreshnessMetrics()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Metrics) updateAllDataFreshnessMetrics() {
	now := time.Now()

	m.lastUpdateMu.RLock()
	defer m.lastUpdateMu.RUnlock()

	for key, lastUpdate := range m.lastUpdateTimes {
		marketplace, dataType, ok := splitKey(key)
		if !ok {
			continue
		}
		age := now.Sub(lastUpdate).Seconds()
		m.DataFreshness.WithLabelValues(marketplace, dataType).Set(age)
	}
}

// splitKey splits a "marketplace:data_type" key into its two parts.
func splitKey(key string) (marketplace, dataType string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// Stop signals the background goroutine to stop updating metrics.
func (m *Metrics) Stop() {
	close(m.stopCh)
}

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

// Package writer implements the dual-sink append of one marketplace-day's
// transformed records into MSSQL and Azure SQL, per spec §4.6: shape check,
// intra-batch dedup, inter-batch dedup against already-persisted rows, type
// coercion, then a retrying bulk append. A failure in one sink never blocks
// the other.
package writer

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahmar-js/amazon-connector/pkg/metrics"
	"github.com/ahmar-js/amazon-connector/pkg/transform"
)

// SinkResult reports the outcome of one sink's append for a batch.
type SinkResult struct {
	Saved   int
	Skipped int
	Success bool
	Detail  string
}

// Report is the combined outcome of writing one batch to both sinks.
type Report struct {
	MSSQL             SinkResult
	Azure             SinkResult
	TotalRecordsSaved int
}

// PoolConfig carries the connection pool tuning spec §4.6 step 5 requires.
type PoolConfig struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPoolConfig returns the spec's pool_size=20, recycle=300s,
// timeout=60s defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    20,
		ConnMaxLifetime: 300 * time.Second,
		ConnectTimeout:  60 * time.Second,
	}
}

// Writer owns both sinks and dispatches a marketplace-day's output to each
// independently.
type Writer struct {
	mssql       *MssqlSink
	azure       *AzureSink
	log         logr.Logger
	marketplace string
	metrics     *metrics.Metrics
}

// New constructs a Writer over both already-opened sink databases.
func New(mssqlDB, azureDB *sql.DB, marketplaceSuffix string, pool PoolConfig, log logr.Logger) *Writer {
	configurePool(mssqlDB, pool)
	configurePool(azureDB, pool)

	return &Writer{
		mssql:       newMssqlSink(mssqlDB, marketplaceSuffix, log),
		azure:       newAzureSink(azureDB, log),
		log:         log.WithName("writer"),
		marketplace: marketplaceSuffix,
	}
}

// WithMetrics attaches a Metrics recorder; writer throughput and sink
// outcomes are reported after every Write call. Optional — a Writer with no
// Metrics attached behaves exactly as before.
func (w *Writer) WithMetrics(m *metrics.Metrics) *Writer {
	w.metrics = m
	return w
}

func configurePool(db *sql.DB, pool PoolConfig) {
	if db == nil {
		return
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxOpenConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
}

// Write appends out.MSSQL and out.Azure concurrently. Overall success is
// any(sinkSucceeded) per spec §4.6.
func (w *Writer) Write(ctx context.Context, out *transform.Output) Report {
	var report Report
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		report.MSSQL = w.mssql.Write(ctx, out.MSSQL)
	}()
	go func() {
		defer wg.Done()
		report.Azure = w.azure.Write(ctx, out.Azure)
	}()
	wg.Wait()

	report.TotalRecordsSaved = report.MSSQL.Saved + report.Azure.Saved

	if w.metrics != nil {
		w.metrics.RecordWriterResult(w.marketplace, "mssql", report.MSSQL.Saved, report.MSSQL.Skipped, report.MSSQL.Success)
		w.metrics.RecordWriterResult(w.marketplace, "azure", report.Azure.Saved, report.Azure.Skipped, report.Azure.Success)
	}

	return report
}

// Succeeded reports whether at least one sink succeeded, the signal the
// Controller uses to decide whether the high-water mark may advance.
func (r Report) Succeeded() bool {
	return r.MSSQL.Success || r.Azure.Success
}

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

package controller

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahmar-js/amazon-connector/pkg/config"
	"github.com/ahmar-js/amazon-connector/pkg/metrics"
	"github.com/ahmar-js/amazon-connector/pkg/progress"
)

const azureTable = "stg_tr_amazon_raw"

// AnomalyRepair implements the operator-triggered correction of spec §4.9:
// an earlier DST/timezone bug could leave a converted purchase date ahead of
// its source date. Repair deletes the offending rows per marketplace and
// rewinds the high-water mark so the Controller re-fetches that slice.
type AnomalyRepair struct {
	MSSQLDB  *sql.DB
	AzureDB  *sql.DB
	Progress *progress.Store
	Metrics  *metrics.Metrics // optional
	Log      logr.Logger
}

// RepairReport is the per-marketplace outcome spec §4.9 requires the
// operator-triggered run to emit.
type RepairReport struct {
	MarketplaceID    string
	RowsDeletedMSSQL int
	RowsDeletedAzure int
	NewLastRun       time.Time
}

// Repair runs the full anomaly-repair procedure for one marketplace.
func (a *AnomalyRepair) Repair(ctx context.Context, mp config.Marketplace) (RepairReport, error) {
	report := RepairReport{MarketplaceID: mp.Code}
	table := mssqlTableFor(mp.Code)
	region := mp.Region()

	log := a.Log.WithValues("marketplace", mp.Code)

	maxMssql, err := a.maxPurchaseDateMssql(ctx, table)
	if err != nil {
		return report, fmt.Errorf("max purchase date (mssql, %s): %w", mp.Code, err)
	}
	maxAzure, err := a.maxFetchDateAzure(ctx, region)
	if err != nil {
		return report, fmt.Errorf("max fetch date (azure, %s): %w", mp.Code, err)
	}

	anySucceeded := false

	mssqlCount, samples, err := a.sampleMssqlAnomalies(ctx, table, maxMssql)
	if err != nil {
		log.Error(err, "failed to sample mssql anomalies, skipping mssql deletion")
	} else if mssqlCount > 0 {
		for _, s := range samples {
			log.Info("anomalous mssql row", "sample", s)
		}
		deleted, err := a.deleteMssqlAnomalies(ctx, table, maxMssql)
		if err != nil {
			log.Error(err, "mssql anomaly deletion failed, aborting mssql repair for this marketplace")
		} else {
			report.RowsDeletedMSSQL = deleted
			anySucceeded = true
			a.recordRowsDeleted(mp.Code, "mssql", deleted)
		}
	}

	azureCount, azureSamples, err := a.sampleAzureAnomalies(ctx, region, maxAzure)
	if err != nil {
		log.Error(err, "failed to sample azure anomalies, skipping azure deletion")
	} else if azureCount > 0 {
		for _, s := range azureSamples {
			log.Info("anomalous azure row", "sample", s)
		}
		deleted, err := a.deleteAzureAnomalies(ctx, region, maxAzure)
		if err != nil {
			log.Error(err, "azure anomaly deletion failed, aborting azure repair for this marketplace")
		} else {
			report.RowsDeletedAzure = deleted
			anySucceeded = true
			a.recordRowsDeleted(mp.Code, "azure", deleted)
		}
	}

	if anySucceeded {
		newLastRun := time.Date(maxMssql.Year(), maxMssql.Month(), maxMssql.Day(), 23, 59, 59, 0, time.UTC).AddDate(0, 0, -1)
		if err := a.Progress.RewindLastRun(ctx, mp.Code, newLastRun); err != nil {
			return report, fmt.Errorf("rewind last run (%s): %w", mp.Code, err)
		}
		report.NewLastRun = newLastRun
	}

	return report, nil
}

func (a *AnomalyRepair) recordRowsDeleted(marketplace, sink string, rows int) {
	if a.Metrics != nil {
		a.Metrics.RecordAnomalyRepair(marketplace, sink, rows)
	}
}

func mssqlTableFor(code string) string {
	return "amazon_api_" + strings.ToLower(code)
}

func (a *AnomalyRepair) maxPurchaseDateMssql(ctx context.Context, table string) (time.Time, error) {
	var max sql.NullTime
	err := a.MSSQLDB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MAX(CAST(PurchaseDate AS DATE)) FROM %s`, table),
	).Scan(&max)
	if err != nil {
		return time.Time{}, err
	}
	return max.Time.UTC(), nil
}

func (a *AnomalyRepair) maxFetchDateAzure(ctx context.Context, region string) (time.Time, error) {
	var max sql.NullTime
	err := a.AzureDB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MAX(CAST(data_fetch_Date AS DATE)) FROM %s WHERE Region = ?`, azureTable),
		region,
	).Scan(&max)
	if err != nil {
		return time.Time{}, err
	}
	return max.Time.UTC(), nil
}

const anomalySampleLimit = 3

// sampleMssqlAnomalies counts and logs a sample of rows whose converted
// PurchaseDate_conversion exceeds the source max, per spec §4.9 step 2.
func (a *AnomalyRepair) sampleMssqlAnomalies(ctx context.Context, table string, maxDate time.Time) (int, []string, error) {
	var count int
	err := a.MSSQLDB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE CAST(PurchaseDate_conversion AS DATE) > ?`, table),
		maxDate,
	).Scan(&count)
	if err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	rows, err := a.MSSQLDB.QueryContext(ctx,
		fmt.Sprintf(`SELECT TOP %d AmazonOrderId, OrderItemId, PurchaseDate_conversion FROM %s WHERE CAST(PurchaseDate_conversion AS DATE) > ?`, anomalySampleLimit, table),
		maxDate,
	)
	if err != nil {
		return count, nil, err
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var orderID, itemID string
		var converted time.Time
		if err := rows.Scan(&orderID, &itemID, &converted); err != nil {
			return count, samples, err
		}
		samples = append(samples, fmt.Sprintf("%s/%s converted=%s", orderID, itemID, converted.Format(time.RFC3339)))
	}
	return count, samples, rows.Err()
}

func (a *AnomalyRepair) deleteMssqlAnomalies(ctx context.Context, table string, maxDate time.Time) (int, error) {
	tx, err := a.MSSQLDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE CAST(PurchaseDate_conversion AS DATE) > ?`, table),
		maxDate,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (a *AnomalyRepair) sampleAzureAnomalies(ctx context.Context, region string, maxDate time.Time) (int, []string, error) {
	var count int
	err := a.AzureDB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE Region = ? AND CAST(Date AS DATE) > ?`, azureTable),
		region, maxDate,
	).Scan(&count)
	if err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	rows, err := a.AzureDB.QueryContext(ctx,
		fmt.Sprintf(`SELECT TOP %d OrderId, SKU, Date FROM %s WHERE Region = ? AND CAST(Date AS DATE) > ?`, anomalySampleLimit, azureTable),
		region, maxDate,
	)
	if err != nil {
		return count, nil, err
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var orderID, sku string
		var date time.Time
		if err := rows.Scan(&orderID, &sku, &date); err != nil {
			return count, samples, err
		}
		samples = append(samples, fmt.Sprintf("%s/%s date=%s", orderID, sku, date.Format(time.RFC3339)))
	}
	return count, samples, rows.Err()
}

func (a *AnomalyRepair) deleteAzureAnomalies(ctx context.Context, region string, maxDate time.Time) (int, error) {
	tx, err := a.AzureDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE Region = ? AND CAST(Date AS DATE) > ?`, azureTable),
		region, maxDate,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

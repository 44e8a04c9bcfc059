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

package writer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/ahmar-js/amazon-connector/internal/controller"
	"github.com/ahmar-js/amazon-connector/pkg/transform"
)

// azureTable is the fixed Azure SQL staging table name spec §4.6 names.
const azureTable = "stg_tr_amazon_raw"

// AzureSink appends AzureRecord batches into the shared warehouse staging
// table.
type AzureSink struct {
	db  *sql.DB
	log logr.Logger
}

func newAzureSink(db *sql.DB, log logr.Logger) *AzureSink {
	return &AzureSink{db: db, log: log.WithName("azure-sink")}
}

func azureKeyOf(r transform.AzureRecord) string {
	return r.OrderID + "|" + r.SKU
}

// Write implements the per-sink procedure of spec §4.6 for the AZURE shape.
func (s *AzureSink) Write(ctx context.Context, records []transform.AzureRecord) SinkResult {
	if s.db == nil {
		return SinkResult{Success: false, Detail: "azure sink not configured"}
	}

	for _, r := range records {
		if r.OrderID == "" || r.SKU == "" {
			return SinkResult{Success: false, Detail: "shape check failed: missing OrderId/SKU"}
		}
	}

	deduped := dedupByKey(records, azureKeyOf)
	skipped := len(records) - len(deduped)

	existing, err := s.existingKeys(ctx, deduped)
	if err != nil {
		return SinkResult{Success: false, Skipped: skipped, Detail: fmt.Sprintf("inter-batch dedup query failed: %v", err)}
	}

	toInsert := filterOutKeys(deduped, azureKeyOf, existing)
	skipped += len(deduped) - len(toInsert)

	if len(toInsert) == 0 {
		return SinkResult{Success: true, Saved: 0, Skipped: skipped, Detail: "nothing new to insert"}
	}

	err = controller.RetryWithBackoff(ctx, retryConfig(), s.log, "azure append", func() error {
		return s.appendBatch(ctx, toInsert)
	})
	if err != nil {
		return SinkResult{Success: false, Skipped: skipped, Detail: err.Error()}
	}

	return SinkResult{Success: true, Saved: len(toInsert), Skipped: skipped}
}

func (s *AzureSink) existingKeys(ctx context.Context, records []transform.AzureRecord) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(records) == 0 {
		return existing, nil
	}

	orderIDSet := make(map[string]struct{})
	for _, r := range records {
		orderIDSet[r.OrderID] = struct{}{}
	}

	placeholders := make([]string, 0, len(orderIDSet))
	args := make([]interface{}, 0, len(orderIDSet))
	for id := range orderIDSet {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`SELECT OrderId, SKU FROM %s WHERE OrderId IN (%s)`,
		azureTable, strings.Join(placeholders, ","),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, sku string
		if err := rows.Scan(&orderID, &sku); err != nil {
			return nil, err
		}
		existing[orderID+"|"+sku] = struct{}{}
	}

	return existing, rows.Err()
}

func (s *AzureSink) appendBatch(ctx context.Context, records []transform.AzureRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			CleanDateTime, Date, OrderId, SKU, Type, Region, Country,
			SalesChannel, Channel, MarketplaceId, Company, CurrencyCode,
			FulfillmentChannel, Quantity, item_subtotal, promotion, vat,
			calculated_vat, unit_price, unit_price_ex_vat, item_total, Total,
			data_fetch_Date, grand_total, Title, per_unit_price, per_unit_price_ex_vat
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, azureTable))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			coerceNaiveUTC(r.CleanDateTime), coerceDateOnly(r.Date), r.OrderID, r.SKU, r.Type,
			r.Region, r.Country, r.SalesChannel, r.Channel, r.MarketplaceID, r.Company, r.CurrencyCode,
			r.FulfillmentChannel, coerceInt64(r.Quantity), coerceFloat64(r.ItemSubtotal), coerceFloat64(r.Promotion),
			coerceFloat64(r.VAT), coerceFloat64(r.CalculatedVAT), coerceFloat64(r.UnitPriceIncl),
			coerceFloat64(r.UnitPriceExcl), coerceFloat64(r.ItemTotal), coerceFloat64(r.Total),
			coerceDateOnly(r.DataFetchDate), coerceFloat64(r.GrandTotal), r.Title,
			coerceFloat64(r.PerUnitPriceIncl), coerceFloat64(r.PerUnitPriceExcl),
		)
		if err != nil {
			return fmt.Errorf("insert %s/%s: %w", r.OrderID, r.SKU, err)
		}
	}

	return tx.Commit()
}

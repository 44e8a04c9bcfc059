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
	"time"

	"github.com/go-logr/logr"

	"github.com/ahmar-js/amazon-connector/internal/controller"
	"github.com/ahmar-js/amazon-connector/pkg/transform"
)

// MssqlSink appends MssqlRecord batches into the per-marketplace operational
// table amazon_api_{marketplaceSuffix}.
type MssqlSink struct {
	db    *sql.DB
	table string
	log   logr.Logger
}

func newMssqlSink(db *sql.DB, marketplaceSuffix string, log logr.Logger) *MssqlSink {
	return &MssqlSink{
		db:    db,
		table: "amazon_api_" + marketplaceSuffix,
		log:   log.WithName("mssql-sink"),
	}
}

func mssqlKey(r transform.MssqlRecord) string {
	return r.AmazonOrderID + "|" + r.OrderItemID
}

// Write implements the full per-sink procedure of spec §4.6 for the MSSQL
// shape: shape check, intra-batch dedup, inter-batch dedup, coercion, then a
// retrying bulk append.
func (s *MssqlSink) Write(ctx context.Context, records []transform.MssqlRecord) SinkResult {
	if s.db == nil {
		return SinkResult{Success: false, Detail: "mssql sink not configured"}
	}

	for _, r := range records {
		if r.AmazonOrderID == "" || r.OrderItemID == "" {
			return SinkResult{Success: false, Detail: "shape check failed: missing AmazonOrderId/OrderItemId"}
		}
	}

	deduped := dedupByKey(records, mssqlKey)
	skipped := len(records) - len(deduped)

	existing, err := s.existingKeys(ctx, deduped)
	if err != nil {
		return SinkResult{Success: false, Skipped: skipped, Detail: fmt.Sprintf("inter-batch dedup query failed: %v", err)}
	}

	toInsert := filterOutKeys(deduped, mssqlKey, existing)
	skipped += len(deduped) - len(toInsert)

	if len(toInsert) == 0 {
		return SinkResult{Success: true, Saved: 0, Skipped: skipped, Detail: "nothing new to insert"}
	}

	err = controller.RetryWithBackoff(ctx, retryConfig(), s.log, "mssql append", func() error {
		return s.appendBatch(ctx, toInsert)
	})
	if err != nil {
		return SinkResult{Success: false, Skipped: skipped, Detail: err.Error()}
	}

	return SinkResult{Success: true, Saved: len(toInsert), Skipped: skipped}
}

// existingKeys queries already-persisted natural keys among the batch's
// AmazonOrderId set, per spec §4.6 step 3. A query failure must abort the
// sink rather than risk a duplicate insert.
func (s *MssqlSink) existingKeys(ctx context.Context, records []transform.MssqlRecord) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(records) == 0 {
		return existing, nil
	}

	orderIDSet := make(map[string]struct{})
	for _, r := range records {
		orderIDSet[r.AmazonOrderID] = struct{}{}
	}

	ids := make([]string, 0, len(orderIDSet))
	args := make([]interface{}, 0, len(orderIDSet))
	for id := range orderIDSet {
		ids = append(ids, "?")
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`SELECT AmazonOrderId, OrderItemId FROM %s WHERE AmazonOrderId IN (%s)`,
		s.table, strings.Join(ids, ","),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, itemID string
		if err := rows.Scan(&orderID, &itemID); err != nil {
			return nil, err
		}
		existing[orderID+"|"+itemID] = struct{}{}
	}

	return existing, rows.Err()
}

func (s *MssqlSink) appendBatch(ctx context.Context, records []transform.MssqlRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			AmazonOrderId, OrderItemId, PurchaseDate, PurchaseDate_conversion,
			PurchaseDate_Materialized, OrderStatus, SalesChannel, FulfillmentChannel,
			MarketplaceId, SKU, Title, Quantity, item_subtotal, promotion, vat,
			calculated_vat, unit_price, unit_price_ex_vat, item_total,
			CurrencyCode, grand_total, Region, Country, Company, Channel
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.AmazonOrderID, r.OrderItemID,
			coerceNaiveUTC(r.PurchaseDate), coerceNaiveUTC(r.PurchaseDateConversion),
			coerceDateOnly(r.PurchaseDateMaterialized), r.OrderStatus, r.SalesChannel, r.FulfillmentChannel,
			r.MarketplaceID, r.SKU, r.Title, coerceInt64(r.Quantity),
			coerceFloat64(r.ItemSubtotal), coerceFloat64(r.Promotion), coerceFloat64(r.VAT),
			coerceFloat64(r.CalculatedVAT), coerceFloat64(r.UnitPriceIncl), coerceFloat64(r.UnitPriceExcl),
			coerceFloat64(r.ItemTotal), r.CurrencyCode, coerceFloat64(r.GrandTotal),
			r.Region, r.Country, r.Company, r.Channel,
		)
		if err != nil {
			return fmt.Errorf("insert %s/%s: %w", r.AmazonOrderID, r.OrderItemID, err)
		}
	}

	return tx.Commit()
}

func retryConfig() controller.RetryConfig {
	return controller.RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
	}
}

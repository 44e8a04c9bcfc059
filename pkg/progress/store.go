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

// Package progress persists the per-marketplace high-water mark
// (marketplace_last_run) and the Activity ledger (activities) that
// together let the Controller resume a cooperative single-runner schedule
// across restarts, per spec §4.7.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-logr/logr"
)

// ErrNotFound is returned when no high-water row exists for a marketplace.
var ErrNotFound = errors.New("progress: marketplace high-water row not found")

// ErrStaleAdvance is returned when a compare-and-advance update observes a
// lastRun that has already moved past what the caller expected — a
// concurrent writer got there first, and this caller must skip advancing.
var ErrStaleAdvance = errors.New("progress: lastRun already advanced by another writer")

// Store is the SQL-backed MarketplaceHighWater table.
type Store struct {
	db  *sql.DB
	log logr.Logger
}

// New constructs a Store over an already-opened database.
func New(db *sql.DB, log logr.Logger) *Store {
	return &Store{db: db, log: log.WithName("progress")}
}

// GetLastRun returns the stored lastRun for a marketplace, or ErrNotFound if
// the marketplace has never run.
func (s *Store) GetLastRun(ctx context.Context, marketplaceID string) (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_run FROM marketplace_last_run WHERE marketplace_id = ?`, marketplaceID,
	).Scan(&lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return lastRun, nil
}

// GetNextWindow computes the next calendar-day fetch window per spec §4.7:
// the day after lastRun, 00:00:00Z..23:59:59Z. If the marketplace has never
// run, the window starts the day after seedLastRun.
func GetNextWindow(lastRun, seedLastRun time.Time) (startUTC, endUTC time.Time) {
	base := seedLastRun
	if !lastRun.IsZero() {
		base = lastRun
	}

	nextDay := base.UTC().AddDate(0, 0, 1)
	startUTC = time.Date(nextDay.Year(), nextDay.Month(), nextDay.Day(), 0, 0, 0, 0, time.UTC)
	endUTC = time.Date(nextDay.Year(), nextDay.Month(), nextDay.Day(), 23, 59, 59, 0, time.UTC)
	return startUTC, endUTC
}

// InRange reports whether a window start is still within the configured
// END_DATE, comparing calendar dates per spec §4.7.
func InRange(start, endDate time.Time) bool {
	s := start.UTC()
	e := endDate.UTC()
	sDate := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	eDate := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return !sDate.After(eDate)
}

// AdvanceLastRun performs a row-locked compare-and-advance: it only writes
// newLastRun if the row's current value still equals expectedPrevious. If a
// concurrent writer already moved it past that, this returns ErrStaleAdvance
// and makes no change, per the row-locking requirement in spec §4.7 and the
// shared-resource model in §5.
func (s *Store) AdvanceLastRun(ctx context.Context, marketplaceID string, expectedPrevious, newLastRun time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT last_run FROM marketplace_last_run WHERE marketplace_id = ?`, marketplaceID,
	).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !expectedPrevious.IsZero() {
			return ErrStaleAdvance
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO marketplace_last_run (marketplace_id, last_run) VALUES (?, ?)`,
			marketplaceID, newLastRun.UTC(),
		); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if !current.Valid && !expectedPrevious.IsZero() {
			return ErrStaleAdvance
		}
		if current.Valid && !current.Time.Equal(expectedPrevious) {
			return ErrStaleAdvance
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE marketplace_last_run SET last_run = ? WHERE marketplace_id = ?`,
			newLastRun.UTC(), marketplaceID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RewindLastRun force-sets lastRun without a compare-and-advance check, used
// exclusively by anomaly repair (C9) to rewind a marketplace past a
// previously mis-converted window.
func (s *Store) RewindLastRun(ctx context.Context, marketplaceID string, newLastRun time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE marketplace_last_run SET last_run = ? WHERE marketplace_id = ?`,
		newLastRun.UTC(), marketplaceID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO marketplace_last_run (marketplace_id, last_run) VALUES (?, ?)`,
			marketplaceID, newLastRun.UTC(),
		)
		return err
	}
	return nil
}

// HighWater is one marketplace's current progress row.
type HighWater struct {
	MarketplaceID string
	LastRun       time.Time // zero if never run
}

// ListAll returns every marketplace's high-water row, including
// marketplaces that have never run (LastRun zero), for the Controller's
// single-iteration candidate selection.
func (s *Store) ListAll(ctx context.Context, marketplaceIDs []string) ([]HighWater, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT marketplace_id, last_run FROM marketplace_last_run`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]time.Time, len(marketplaceIDs))
	for rows.Next() {
		var id string
		var lastRun time.Time
		if err := rows.Scan(&id, &lastRun); err != nil {
			return nil, err
		}
		known[id] = lastRun
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]HighWater, 0, len(marketplaceIDs))
	for _, id := range marketplaceIDs {
		out = append(out, HighWater{MarketplaceID: id, LastRun: known[id]})
	}
	return out, nil
}

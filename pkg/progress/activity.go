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

package progress

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActivityStatus is the lifecycle state of one Activity row.
type ActivityStatus string

const (
	ActivityInProgress ActivityStatus = "inProgress"
	ActivityCompleted  ActivityStatus = "completed"
	ActivityFailed     ActivityStatus = "failed"
)

// ErrAlreadyInProgress is returned when an Activity with the same
// (marketplaceId, activityType, status=inProgress) already exists — the
// unique-in-progress constraint spec §4.8 relies on to guarantee one
// in-flight fetchForDay per marketplace.
var ErrAlreadyInProgress = errors.New("progress: activity already in progress for marketplace")

// Activity is one row of the activities ledger.
type Activity struct {
	ActivityID    uuid.UUID
	MarketplaceID string
	ActivityType  string
	Status        ActivityStatus
	Detail        string
	MssqlSaved    bool
	AzureSaved    bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

// HasInProgress reports whether an in-progress Activity already exists for
// (marketplaceId, activityType), per spec §4.8's dispatch precondition.
func (s *Store) HasInProgress(ctx context.Context, marketplaceID, activityType string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE marketplace_id = ? AND activity_type = ? AND status = ?`,
		marketplaceID, activityType, ActivityInProgress,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// BeginActivity inserts a new inProgress Activity, enforcing the
// unique-in-progress constraint: if a concurrent caller already holds one
// for this (marketplaceId, activityType), this returns ErrAlreadyInProgress
// and inserts nothing.
func (s *Store) BeginActivity(ctx context.Context, marketplaceID, activityType string) (*Activity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE marketplace_id = ? AND activity_type = ? AND status = ?`,
		marketplaceID, activityType, ActivityInProgress,
	).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyInProgress
	}

	activity := &Activity{
		ActivityID:    uuid.New(),
		MarketplaceID: marketplaceID,
		ActivityType:  activityType,
		Status:        ActivityInProgress,
		StartedAt:     time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO activities (activity_id, marketplace_id, activity_type, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		activity.ActivityID.String(), activity.MarketplaceID, activity.ActivityType, activity.Status, activity.StartedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return activity, nil
}

// Complete closes out an Activity with its final status and the per-sink
// outcome booleans the writer reports (spec §4.6's "Activity ledger stores
// per-sink booleans ... and a human-readable detail").
func (s *Store) Complete(ctx context.Context, activityID uuid.UUID, status ActivityStatus, detail string, mssqlSaved, azureSaved bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE activities
		 SET status = ?, detail = ?, mssql_saved = ?, azure_saved = ?, finished_at = ?
		 WHERE activity_id = ?`,
		status, detail, mssqlSaved, azureSaved, time.Now().UTC(), activityID.String(),
	)
	return err
}

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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmar-js/amazon-connector/pkg/config"
	"github.com/ahmar-js/amazon-connector/pkg/progress"
)

func testConfig() *config.Config {
	return &config.Config{
		Marketplaces: []config.Marketplace{
			{Code: "UK", CredentialGroup: "eu-group", CompanyLabel: "Acme EU Ltd"},
			{Code: "DE", CredentialGroup: "eu-group", CompanyLabel: "Acme EU Ltd"},
		},
		CredentialGroups: map[string]config.CredentialGroup{
			"eu-group": {AppID: "app"},
		},
		SeedLastRun:                     "2023-11-01T23:59:59Z",
		EndDate:                         "2023-11-05T00:00:00Z",
		MarketplaceFetchDelaySeconds:    120,
		SameCredentialGroupDelaySeconds: 60,
	}
}

func TestFetchController_Run_CompletedWhenAllPastEndDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.EndDate = "2023-11-01T23:59:59Z" // already at seed, no window is in range

	mock.ExpectQuery("SELECT last_run FROM marketplace_last_run").
		WillReturnRows(sqlmock.NewRows([]string{"last_run"}))
	mock.ExpectQuery("SELECT last_run FROM marketplace_last_run").
		WillReturnRows(sqlmock.NewRows([]string{"last_run"}))

	fc := &FetchController{
		Config:   cfg,
		Progress: progress.New(db, logr.Discard()),
		Runtimes: map[string]*MarketplaceRuntime{},
		Log:      logr.Discard(),
	}

	result, err := fc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
}

func TestFetchController_Run_PicksEarliestCandidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()

	// UK has already run one day past seed; DE has never run, so DE's next
	// window (seed+1 day) sorts earlier than UK's (seed+2 days).
	ukLastRun := time.Date(2023, 11, 2, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery("SELECT last_run FROM marketplace_last_run").
		WillReturnRows(sqlmock.NewRows([]string{"last_run"}).AddRow(ukLastRun))
	mock.ExpectQuery("SELECT last_run FROM marketplace_last_run").
		WillReturnRows(sqlmock.NewRows([]string{"last_run"}))

	mock.ExpectQuery("SELECT COUNT.*FROM activities").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	fc := &FetchController{
		Config:   cfg,
		Progress: progress.New(db, logr.Discard()),
		Runtimes: map[string]*MarketplaceRuntime{},
		Log:      logr.Discard(),
	}

	result, err := fc.Run(context.Background())
	require.Error(t, err) // no runtime configured for DE, fetchForDay fails fast
	assert.Contains(t, err.Error(), "DE")
	_ = result
}

func TestFetchController_Run_BusyWhenActivityInProgress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.Marketplaces = cfg.Marketplaces[:1] // only UK

	mock.ExpectQuery("SELECT last_run FROM marketplace_last_run").
		WillReturnRows(sqlmock.NewRows([]string{"last_run"}))
	mock.ExpectQuery("SELECT COUNT.*FROM activities").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	fc := &FetchController{
		Config:   cfg,
		Progress: progress.New(db, logr.Discard()),
		Runtimes: map[string]*MarketplaceRuntime{},
		Log:      logr.Discard(),
	}

	result, err := fc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "busy", result.Status)
	assert.Equal(t, "UK", result.MarketplaceID)
}

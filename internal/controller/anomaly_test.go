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

func TestAnomalyRepair_Repair_DeletesAndRewinds(t *testing.T) {
	mssqlDB, mssqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer mssqlDB.Close()

	azureDB, azureMock, err := sqlmock.New()
	require.NoError(t, err)
	defer azureDB.Close()

	progressDB, progressMock, err := sqlmock.New()
	require.NoError(t, err)
	defer progressDB.Close()

	maxMssql := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	maxAzure := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	mssqlMock.ExpectQuery("SELECT MAX.*FROM amazon_api_uk").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(maxMssql))
	azureMock.ExpectQuery("SELECT MAX.*FROM stg_tr_amazon_raw").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(maxAzure))

	mssqlMock.ExpectQuery("SELECT COUNT.*FROM amazon_api_uk").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mssqlMock.ExpectQuery("SELECT TOP 3 AmazonOrderId").
		WillReturnRows(sqlmock.NewRows([]string{"AmazonOrderId", "OrderItemId", "PurchaseDate_conversion"}).
			AddRow("ORD-1", "1", time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)))
	mssqlMock.ExpectBegin()
	mssqlMock.ExpectExec("DELETE FROM amazon_api_uk").WillReturnResult(sqlmock.NewResult(0, 2))
	mssqlMock.ExpectCommit()

	azureMock.ExpectQuery("SELECT COUNT.*FROM stg_tr_amazon_raw").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	prev := time.Time{}
	progressMock.ExpectExec("UPDATE marketplace_last_run").WillReturnResult(sqlmock.NewResult(0, 1))
	_ = prev

	repair := &AnomalyRepair{
		MSSQLDB:  mssqlDB,
		AzureDB:  azureDB,
		Progress: progress.New(progressDB, logr.Discard()),
		Log:      logr.Discard(),
	}

	mp := config.Marketplace{Code: "UK", CredentialGroup: "eu-group", CompanyLabel: "Acme EU Ltd"}
	report, err := repair.Repair(context.Background(), mp)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RowsDeletedMSSQL)
	assert.Equal(t, 0, report.RowsDeletedAzure)
	assert.Equal(t, time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC), report.NewLastRun)

	assert.NoError(t, mssqlMock.ExpectationsWereMet())
	assert.NoError(t, azureMock.ExpectationsWereMet())
}

func TestAnomalyRepair_Repair_NoAnomaliesSkipsRewind(t *testing.T) {
	mssqlDB, mssqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer mssqlDB.Close()

	azureDB, azureMock, err := sqlmock.New()
	require.NoError(t, err)
	defer azureDB.Close()

	progressDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer progressDB.Close()

	maxDate := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	mssqlMock.ExpectQuery("SELECT MAX.*FROM amazon_api_de").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(maxDate))
	azureMock.ExpectQuery("SELECT MAX.*FROM stg_tr_amazon_raw").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(maxDate))
	mssqlMock.ExpectQuery("SELECT COUNT.*FROM amazon_api_de").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	azureMock.ExpectQuery("SELECT COUNT.*FROM stg_tr_amazon_raw").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	repair := &AnomalyRepair{
		MSSQLDB:  mssqlDB,
		AzureDB:  azureDB,
		Progress: progress.New(progressDB, logr.Discard()),
		Log:      logr.Discard(),
	}

	mp := config.Marketplace{Code: "DE", CredentialGroup: "eu-group", CompanyLabel: "Acme EU Ltd"}
	report, err := repair.Repair(context.Background(), mp)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RowsDeletedMSSQL)
	assert.Equal(t, 0, report.RowsDeletedAzure)
	assert.True(t, report.NewLastRun.IsZero())
}

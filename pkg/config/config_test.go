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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const baseYAML = `marketplaces:
  - code: "UK"
    credentialGroup: "eu-group"
    companyLabel: "Acme EU Ltd"
credentialGroups:
  eu-group:
    appId: "amzn1.application.test"
    clientSecretEnv: "EU_CLIENT_SECRET"
    refreshTokenEnv: "EU_REFRESH_TOKEN"
    credentialsFile: "/tmp/eu-credentials.json"
endDate: "2024-06-01T23:59:59Z"
database:
  controlPlaneDsn: "sqlserver://control"
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid minimal config",
			yaml: baseYAML,
		},
		{
			name: "valid config with multiple marketplaces sharing a credential group",
			yaml: baseYAML + `  - code: "DE"
    credentialGroup: "eu-group"
    companyLabel: "Acme DE GmbH"
`,
		},
		{
			name:    "empty config file",
			yaml:    ``,
			wantErr: true,
			errMsg:  "at least one marketplace must be configured",
		},
		{
			name: "no marketplaces configured",
			yaml: `marketplaces: []
endDate: "2024-06-01T23:59:59Z"
database:
  controlPlaneDsn: "sqlserver://control"
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`,
			wantErr: true,
			errMsg:  "at least one marketplace must be configured",
		},
		{
			name: "unknown marketplace code",
			yaml: `marketplaces:
  - code: "ZZ"
    credentialGroup: "eu-group"
    companyLabel: "Acme"
credentialGroups:
  eu-group:
    appId: "amzn1.application.test"
endDate: "2024-06-01T23:59:59Z"
database:
  controlPlaneDsn: "sqlserver://control"
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`,
			wantErr: true,
			errMsg:  "unknown marketplace code",
		},
		{
			name: "credential group not defined",
			yaml: `marketplaces:
  - code: "UK"
    credentialGroup: "missing-group"
    companyLabel: "Acme EU Ltd"
endDate: "2024-06-01T23:59:59Z"
database:
  controlPlaneDsn: "sqlserver://control"
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`,
			wantErr: true,
			errMsg:  `credentialGroup "missing-group" not defined`,
		},
		{
			name: "missing company label",
			yaml: `marketplaces:
  - code: "UK"
    credentialGroup: "eu-group"
credentialGroups:
  eu-group:
    appId: "amzn1.application.test"
endDate: "2024-06-01T23:59:59Z"
database:
  controlPlaneDsn: "sqlserver://control"
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`,
			wantErr: true,
			errMsg:  "companyLabel is required",
		},
		{
			name: "duplicate marketplace code",
			yaml: baseYAML + `  - code: "UK"
    credentialGroup: "eu-group"
    companyLabel: "Dup"
`,
			wantErr: true,
			errMsg:  "duplicate marketplace code",
		},
		{
			name: "missing end date",
			yaml: `marketplaces:
  - code: "UK"
    credentialGroup: "eu-group"
    companyLabel: "Acme EU Ltd"
credentialGroups:
  eu-group:
    appId: "amzn1.application.test"
database:
  controlPlaneDsn: "sqlserver://control"
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`,
			wantErr: true,
			errMsg:  "endDate is required",
		},
		{
			name: "invalid end date",
			yaml: `marketplaces:
  - code: "UK"
    credentialGroup: "eu-group"
    companyLabel: "Acme EU Ltd"
credentialGroups:
  eu-group:
    appId: "amzn1.application.test"
endDate: "not-a-date"
database:
  controlPlaneDsn: "sqlserver://control"
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`,
			wantErr: true,
			errMsg:  "invalid endDate",
		},
		{
			name: "missing control plane dsn",
			yaml: `marketplaces:
  - code: "UK"
    credentialGroup: "eu-group"
    companyLabel: "Acme EU Ltd"
credentialGroups:
  eu-group:
    appId: "amzn1.application.test"
endDate: "2024-06-01T23:59:59Z"
database:
  mssqlDsn: "sqlserver://mssql"
  azureDsn: "sqlserver://azure"
`,
			wantErr: true,
			errMsg:  "database.controlPlaneDsn is required",
		},
		{
			name: "invalid log level",
			yaml: baseYAML + `logLevel: invalid
`,
			wantErr: true,
			errMsg:  "invalid log level",
		},
		{
			name: "invalid YAML syntax",
			yaml: `marketplaces:
  - code: "UK
    credentialGroup: "eu-group"
`,
			wantErr: true,
			errMsg:  "failed to read config file", // Viper reports YAML parse errors as read errors
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			cfg, err := Load(path)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Load() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if cfg == nil {
				t.Fatal("Load() returned nil config")
			}
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for nonexistent file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %q, want error containing 'failed to read config file'", err.Error())
	}
}

func TestApplyDefaults(t *testing.T) {
	path := writeConfig(t, baseYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.SeedLastRun != DefaultSeedLastRun {
		t.Errorf("SeedLastRun = %q, want %q", cfg.SeedLastRun, DefaultSeedLastRun)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want 'info'", cfg.LogLevel)
	}
	if cfg.MetricsBindAddress != ":8080" {
		t.Errorf("MetricsBindAddress = %q, want ':8080'", cfg.MetricsBindAddress)
	}
	if cfg.HealthProbeBindAddress != ":8081" {
		t.Errorf("HealthProbeBindAddress = %q, want ':8081'", cfg.HealthProbeBindAddress)
	}
	if cfg.RateLimits.OrdersRatePerSecond != 0.0167 {
		t.Errorf("RateLimits.OrdersRatePerSecond = %v, want 0.0167", cfg.RateLimits.OrdersRatePerSecond)
	}
	if cfg.Database.PoolSize != 20 {
		t.Errorf("Database.PoolSize = %d, want 20", cfg.Database.PoolSize)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, baseYAML)

	vars := map[string]string{
		"AMZCONN_LOG_LEVEL":                 "debug",
		"AMZCONN_METRICS_BIND_ADDRESS":      ":9090",
		"AMZCONN_HEALTH_PROBE_BIND_ADDRESS": ":9091",
		"AMZCONN_SEED_LAST_RUN":             "2024-01-01T23:59:59Z",
	}
	for k, v := range vars {
		old := os.Getenv(k)
		os.Setenv(k, v)
		defer func(k, old string) { os.Setenv(k, old) }(k, old)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want 'debug' (from env)", cfg.LogLevel)
	}
	if cfg.MetricsBindAddress != ":9090" {
		t.Errorf("MetricsBindAddress = %q, want ':9090' (from env)", cfg.MetricsBindAddress)
	}
	if cfg.HealthProbeBindAddress != ":9091" {
		t.Errorf("HealthProbeBindAddress = %q, want ':9091' (from env)", cfg.HealthProbeBindAddress)
	}
	if cfg.SeedLastRun != "2024-01-01T23:59:59Z" {
		t.Errorf("SeedLastRun = %q, want override (from env)", cfg.SeedLastRun)
	}
}

func TestMarketplaceDerivedFields(t *testing.T) {
	mp := Marketplace{Code: "uk", CredentialGroup: "eu-group", CompanyLabel: "Acme EU Ltd"}

	if got := mp.MarketplaceID(); got != "A1F83G8C2ARO7P" {
		t.Errorf("MarketplaceID() = %q, want A1F83G8C2ARO7P", got)
	}
	if got := mp.Region(); got != "eu" {
		t.Errorf("Region() = %q, want eu", got)
	}
	if got := mp.Channel(); got != "Amazon.co.uk" {
		t.Errorf("Channel() = %q, want Amazon.co.uk", got)
	}
	if got := mp.VATRate(); got != 0.20 {
		t.Errorf("VATRate() = %v, want 0.20", got)
	}
}

func TestMarketplaceValidate(t *testing.T) {
	groups := map[string]CredentialGroup{"eu-group": {AppID: "app"}}

	tests := []struct {
		name    string
		mp      Marketplace
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid marketplace",
			mp:   Marketplace{Code: "UK", CredentialGroup: "eu-group", CompanyLabel: "Acme"},
		},
		{
			name:    "unknown code",
			mp:      Marketplace{Code: "ZZ", CredentialGroup: "eu-group", CompanyLabel: "Acme"},
			wantErr: true,
			errMsg:  "unknown marketplace code",
		},
		{
			name:    "missing credential group",
			mp:      Marketplace{Code: "UK", CompanyLabel: "Acme"},
			wantErr: true,
			errMsg:  "credentialGroup is required",
		},
		{
			name:    "undefined credential group",
			mp:      Marketplace{Code: "UK", CredentialGroup: "nope", CompanyLabel: "Acme"},
			wantErr: true,
			errMsg:  "not defined",
		},
		{
			name:    "missing company label",
			mp:      Marketplace{Code: "UK", CredentialGroup: "eu-group"},
			wantErr: true,
			errMsg:  "companyLabel is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mp.Validate(groups)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestGetters(t *testing.T) {
	cfg := &Config{
		EndDate:                         "2024-06-01T23:59:59Z",
		MarketplaceFetchDelaySeconds:    45,
		SameCredentialGroupDelaySeconds: 15,
	}

	if got := cfg.GetMarketplaceFetchDelay(); got.Seconds() != 45 {
		t.Errorf("GetMarketplaceFetchDelay() = %v, want 45s", got)
	}
	if got := cfg.GetSameCredentialGroupDelay(); got.Seconds() != 15 {
		t.Errorf("GetSameCredentialGroupDelay() = %v, want 15s", got)
	}

	zero := &Config{}
	if got := zero.GetMarketplaceFetchDelay(); got != DefaultMarketplaceFetchDelay {
		t.Errorf("GetMarketplaceFetchDelay() default = %v, want %v", got, DefaultMarketplaceFetchDelay)
	}
	if got := zero.GetSameCredentialGroupDelay(); got != DefaultSameCredentialGroupDelay {
		t.Errorf("GetSameCredentialGroupDelay() default = %v, want %v", got, DefaultSameCredentialGroupDelay)
	}
	if got := zero.GetSeedLastRun().Format("2006-01-02"); got != "2023-11-01" {
		t.Errorf("GetSeedLastRun() default = %v, want 2023-11-01", got)
	}
}

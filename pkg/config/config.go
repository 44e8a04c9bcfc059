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

// Package config provides configuration management for the Amazon SP-API
// ingestion pipeline.
//
// The pipeline requires configuration for:
//   - Marketplaces to ingest and the LWA credential group each belongs to
//   - Database connections for the control plane and the two downstream sinks
//   - Operational settings (seed/end dates, rate limits, timeouts)
//
// Configuration can be loaded from a YAML file or environment variables.
// Uses Viper for robust configuration management with automatic env binding.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete pipeline configuration.
type Config struct {
	// Marketplaces is the list of Amazon marketplaces to ingest.
	Marketplaces []Marketplace `yaml:"marketplaces"`

	// CredentialGroups maps a credential group name to its LWA application.
	// A marketplace's CredentialGroup field must reference a key here.
	CredentialGroups map[string]CredentialGroup `yaml:"credentialGroups"`

	// SeedLastRun is the high-water mark substituted for a marketplace that
	// has never completed a fetch. RFC3339, e.g. "2023-11-01T23:59:59Z".
	SeedLastRun string `yaml:"seedLastRun,omitempty"`

	// EndDate bounds how far the controller will advance. RFC3339.
	EndDate string `yaml:"endDate"`

	// MarketplaceFetchDelaySeconds is the base delay between dispatching
	// one marketplace-day and picking the next.
	MarketplaceFetchDelaySeconds int `yaml:"marketplaceFetchDelaySeconds,omitempty"`

	// SameCredentialGroupDelaySeconds is the delay used instead of the base
	// delay when the next candidate shares a credential group with the one
	// just dispatched.
	SameCredentialGroupDelaySeconds int `yaml:"sameCredentialGroupDelaySeconds,omitempty"`

	// FetchConnectTimeoutSeconds bounds establishing the SP-API connection.
	FetchConnectTimeoutSeconds int `yaml:"fetchConnectTimeoutSeconds,omitempty"`

	// FetchReadTimeoutSeconds bounds waiting for an SP-API response body.
	FetchReadTimeoutSeconds int `yaml:"fetchReadTimeoutSeconds,omitempty"`

	// RateLimits overrides the default per-endpoint token bucket settings.
	RateLimits RateLimitConfig `yaml:"rateLimits,omitempty"`

	// CircuitBreaker overrides the default circuit breaker thresholds.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker,omitempty"`

	// Database holds DSNs and pool settings for the control plane and the
	// two downstream sinks.
	Database DatabaseConfig `yaml:"database"`

	// LogLevel controls the verbosity of logs. One of: debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`

	// MetricsBindAddress is the address the Prometheus /metrics endpoint binds to.
	MetricsBindAddress string `yaml:"metricsBindAddress,omitempty"`

	// HealthProbeBindAddress is the address the health probe endpoint binds to.
	HealthProbeBindAddress string `yaml:"healthProbeBindAddress,omitempty"`
}

// Marketplace describes one Amazon marketplace to ingest.
type Marketplace struct {
	// Code is the short marketplace code, e.g. "UK", "DE", "US".
	Code string `yaml:"code"`

	// CredentialGroup names the entry in Config.CredentialGroups that holds
	// the LWA application used to call SP-API for this marketplace.
	CredentialGroup string `yaml:"credentialGroup"`

	// CompanyLabel is the legal entity the sale is booked under for this
	// marketplace (e.g. "Acme EU Ltd"). MarketplaceId, Region, Channel, and
	// VATRate are all derived from Code via the package-level lookup tables
	// and are not independently configurable.
	CompanyLabel string `yaml:"companyLabel"`
}

// MarketplaceID returns the Amazon marketplace ID for this marketplace's Code.
func (m *Marketplace) MarketplaceID() string {
	return MarketplaceIDs[strings.ToUpper(m.Code)]
}

// Region returns "na" or "eu" for this marketplace's Code.
func (m *Marketplace) Region() string {
	return Regions[strings.ToUpper(m.Code)]
}

// Channel returns the Amazon sales channel label (e.g. "Amazon.co.uk") this
// marketplace's orders carry in SalesChannel.
func (m *Marketplace) Channel() string {
	return CompanyLabels[strings.ToUpper(m.Code)]
}

// VATRate returns the VAT rate for this marketplace, or 0 for marketplaces
// that charge no VAT (US, CA).
func (m *Marketplace) VATRate() float64 {
	return VATRates[strings.ToUpper(m.Code)]
}

// CredentialGroup is one LWA application shared by one or more marketplaces.
type CredentialGroup struct {
	// AppID is the LWA client ID.
	AppID string `yaml:"appId"`

	// ClientSecretEnv names the environment variable holding the LWA client secret.
	ClientSecretEnv string `yaml:"clientSecretEnv"`

	// RefreshTokenEnv names the environment variable holding the LWA refresh token.
	RefreshTokenEnv string `yaml:"refreshTokenEnv"`

	// CredentialsFile is where the minted access token and its expiry are
	// persisted between refreshes (atomic write-then-rename).
	CredentialsFile string `yaml:"credentialsFile"`
}

// RateLimitConfig overrides the token bucket parameters for the two SP-API
// endpoint classes.
type RateLimitConfig struct {
	OrdersRatePerSecond     float64 `yaml:"ordersRatePerSecond,omitempty"`
	OrdersBurst             int     `yaml:"ordersBurst,omitempty"`
	OrderItemsRatePerSecond float64 `yaml:"orderItemsRatePerSecond,omitempty"`
	OrderItemsBurst         int     `yaml:"orderItemsBurst,omitempty"`
}

// CircuitBreakerConfig overrides the default trip/recovery thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold  int `yaml:"failureThreshold,omitempty"`
	RecoveryTimeoutS  int `yaml:"recoveryTimeoutSeconds,omitempty" mapstructure:"recoveryTimeoutSeconds"`
}

// DatabaseConfig holds the three SQL connections the pipeline needs.
type DatabaseConfig struct {
	// ControlPlaneDSN stores marketplace high-water marks and the activity ledger.
	ControlPlaneDSN string `yaml:"controlPlaneDsn"`

	// MSSQLDSN is the operational MSSQL sink (amazon_api_<marketplace> tables).
	MSSQLDSN string `yaml:"mssqlDsn"`

	// AzureDSN is the aggregated Azure SQL sink (stg_tr_amazon_raw table).
	AzureDSN string `yaml:"azureDsn"`

	// PoolSize is the number of pooled connections kept open per DSN.
	PoolSize int `yaml:"poolSize,omitempty"`

	// MaxOverflow is the number of additional connections allowed under load.
	MaxOverflow int `yaml:"maxOverflow,omitempty"`

	// RecycleSeconds forces a pooled connection to be replaced after this age.
	RecycleSeconds int `yaml:"recycleSeconds,omitempty"`

	// CheckoutTimeoutSeconds bounds how long a caller waits for a pooled connection.
	CheckoutTimeoutSeconds int `yaml:"checkoutTimeoutSeconds,omitempty"`
}

// Load loads configuration from a YAML file and validates it.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (AMZCONN_* prefix)
//  2. Configuration file values
//  3. Default values
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("seedLastRun", DefaultSeedLastRun)
	v.SetDefault("marketplaceFetchDelaySeconds", int(DefaultMarketplaceFetchDelay.Seconds()))
	v.SetDefault("sameCredentialGroupDelaySeconds", int(DefaultSameCredentialGroupDelay.Seconds()))
	v.SetDefault("fetchConnectTimeoutSeconds", int(DefaultFetchConnectTimeout.Seconds()))
	v.SetDefault("fetchReadTimeoutSeconds", int(DefaultFetchReadTimeout.Seconds()))
	v.SetDefault("logLevel", "info")
	v.SetDefault("metricsBindAddress", ":8080")
	v.SetDefault("healthProbeBindAddress", ":8081")
	v.SetDefault("rateLimits.ordersRatePerSecond", 0.0167)
	v.SetDefault("rateLimits.ordersBurst", 20)
	v.SetDefault("rateLimits.orderItemsRatePerSecond", 0.5)
	v.SetDefault("rateLimits.orderItemsBurst", 30)
	v.SetDefault("circuitBreaker.failureThreshold", 10)
	v.SetDefault("circuitBreaker.recoveryTimeoutSeconds", 300)
	v.SetDefault("database.poolSize", 20)
	v.SetDefault("database.maxOverflow", 10)
	v.SetDefault("database.recycleSeconds", 300)
	v.SetDefault("database.checkoutTimeoutSeconds", 60)

	v.SetEnvPrefix("AMZCONN")
	_ = v.BindEnv("seedLastRun", "AMZCONN_SEED_LAST_RUN")
	_ = v.BindEnv("endDate", "AMZCONN_END_DATE")
	_ = v.BindEnv("marketplaceFetchDelaySeconds", "AMZCONN_MARKETPLACE_FETCH_DELAY")
	_ = v.BindEnv("sameCredentialGroupDelaySeconds", "AMZCONN_SAME_CREDENTIAL_GROUP_DELAY")
	_ = v.BindEnv("fetchConnectTimeoutSeconds", "AMZCONN_FETCH_CONNECT_TIMEOUT")
	_ = v.BindEnv("fetchReadTimeoutSeconds", "AMZCONN_FETCH_READ_TIMEOUT")
	_ = v.BindEnv("logLevel", "AMZCONN_LOG_LEVEL")
	_ = v.BindEnv("metricsBindAddress", "AMZCONN_METRICS_BIND_ADDRESS")
	_ = v.BindEnv("healthProbeBindAddress", "AMZCONN_HEALTH_PROBE_BIND_ADDRESS")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if len(c.Marketplaces) == 0 {
		return fmt.Errorf("at least one marketplace must be configured")
	}

	seen := make(map[string]bool)
	for i, mp := range c.Marketplaces {
		if seen[mp.Code] {
			return fmt.Errorf("duplicate marketplace code: %s", mp.Code)
		}
		seen[mp.Code] = true

		if err := mp.Validate(c.CredentialGroups); err != nil {
			return fmt.Errorf("invalid marketplace at index %d: %w", i, err)
		}
	}

	if c.EndDate == "" {
		return fmt.Errorf("endDate is required")
	}
	if _, err := time.Parse(time.RFC3339, c.EndDate); err != nil {
		return fmt.Errorf("invalid endDate %q: %w", c.EndDate, err)
	}
	if c.SeedLastRun != "" {
		if _, err := time.Parse(time.RFC3339, c.SeedLastRun); err != nil {
			return fmt.Errorf("invalid seedLastRun %q: %w", c.SeedLastRun, err)
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.Database.ControlPlaneDSN == "" {
		return fmt.Errorf("database.controlPlaneDsn is required")
	}
	if c.Database.MSSQLDSN == "" {
		return fmt.Errorf("database.mssqlDsn is required")
	}
	if c.Database.AzureDSN == "" {
		return fmt.Errorf("database.azureDsn is required")
	}

	return nil
}

// Validate checks that the marketplace configuration is valid.
func (m *Marketplace) Validate(groups map[string]CredentialGroup) error {
	code := strings.ToUpper(strings.TrimSpace(m.Code))
	if _, ok := MarketplaceIDs[code]; !ok {
		return fmt.Errorf("unknown marketplace code %q", m.Code)
	}
	if m.CredentialGroup == "" {
		return fmt.Errorf("marketplace %s: credentialGroup is required", m.Code)
	}
	if _, ok := groups[m.CredentialGroup]; !ok {
		return fmt.Errorf("marketplace %s: credentialGroup %q not defined", m.Code, m.CredentialGroup)
	}
	if m.CompanyLabel == "" {
		return fmt.Errorf("marketplace %s: companyLabel is required", m.Code)
	}
	return nil
}

// GetSeedLastRun returns the parsed seed high-water mark, defaulting to
// DefaultSeedLastRun if unset.
func (c *Config) GetSeedLastRun() time.Time {
	raw := c.SeedLastRun
	if raw == "" {
		raw = DefaultSeedLastRun
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Validate() guarantees this never happens for a loaded config.
		t, _ = time.Parse(time.RFC3339, DefaultSeedLastRun)
	}
	return t.UTC()
}

// GetEndDate returns the parsed end date.
func (c *Config) GetEndDate() time.Time {
	t, _ := time.Parse(time.RFC3339, c.EndDate)
	return t.UTC()
}

// GetMarketplaceFetchDelay returns the base inter-dispatch delay.
func (c *Config) GetMarketplaceFetchDelay() time.Duration {
	if c.MarketplaceFetchDelaySeconds == 0 {
		return DefaultMarketplaceFetchDelay
	}
	return time.Duration(c.MarketplaceFetchDelaySeconds) * time.Second
}

// GetSameCredentialGroupDelay returns the shorter same-group inter-dispatch delay.
func (c *Config) GetSameCredentialGroupDelay() time.Duration {
	if c.SameCredentialGroupDelaySeconds == 0 {
		return DefaultSameCredentialGroupDelay
	}
	return time.Duration(c.SameCredentialGroupDelaySeconds) * time.Second
}

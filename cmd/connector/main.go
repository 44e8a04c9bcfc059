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

// Command connector runs the Amazon SP-API ingestion pipeline standalone: it
// builds one MarketplaceRuntime per configured marketplace, dispatches them
// through a single FetchController on a cooperative loop, and serves
// Prometheus metrics and health probes over plain HTTP.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ahmar-js/amazon-connector/internal/controller"
	"github.com/ahmar-js/amazon-connector/pkg/config"
	"github.com/ahmar-js/amazon-connector/pkg/fetcher"
	"github.com/ahmar-js/amazon-connector/pkg/metrics"
	"github.com/ahmar-js/amazon-connector/pkg/progress"
	"github.com/ahmar-js/amazon-connector/pkg/spapi"
	"github.com/ahmar-js/amazon-connector/pkg/transform"
	"github.com/ahmar-js/amazon-connector/pkg/writer"
)

var setupLog logr.Logger

func main() {
	var (
		configFile  string
		metricsAddr string
		probeAddr   string
		repair      bool
		devMode     bool
	)

	flag.StringVar(&configFile, "config", "/etc/amazon-connector/config.yaml",
		"Path to the pipeline configuration file.")
	flag.StringVar(&metricsAddr, "metrics-bind-address", "", "The address the metrics endpoint binds to. "+
		"Overrides the value from the config file when set.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", "", "The address the health probe endpoint binds to. "+
		"Overrides the value from the config file when set.")
	flag.BoolVar(&repair, "repair", false,
		"Run the anomaly-repair procedure for every configured marketplace once, then exit.")
	flag.BoolVar(&devMode, "dev", false, "Enable human-readable development logging instead of JSON.")
	flag.Parse()

	zapLogger := newZapLogger(devMode)
	defer zapLogger.Sync()
	log := zapr.NewLogger(zapLogger)
	setupLog = log.WithName("setup")

	cfg, err := config.Load(configFile)
	if err != nil {
		setupLog.Error(err, "unable to load configuration", "path", configFile)
		os.Exit(1)
	}
	if metricsAddr != "" {
		cfg.MetricsBindAddress = metricsAddr
	}
	if probeAddr != "" {
		cfg.HealthProbeBindAddress = probeAddr
	}

	controlDB, mssqlDB, azureDB, err := openDatabases(cfg)
	if err != nil {
		setupLog.Error(err, "unable to open database connections")
		os.Exit(1)
	}
	defer controlDB.Close()
	defer mssqlDB.Close()
	defer azureDB.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	defer m.Stop()
	m.ConnectorRunning.Set(1)

	progressStore := progress.New(controlDB, log)

	runtimes, tokenManagers, err := buildRuntimes(cfg, mssqlDB, azureDB, m, log)
	if err != nil {
		setupLog.Error(err, "unable to build marketplace runtimes")
		os.Exit(1)
	}
	health := spapi.NewHealthChecker(tokenManagers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if repair {
		runRepair(ctx, cfg, mssqlDB, azureDB, progressStore, m, log)
		return
	}

	fc := &controller.FetchController{
		Config:   cfg,
		Progress: progressStore,
		Runtimes: runtimes,
		Metrics:  m,
		Log:      log.WithName("controller"),
	}

	startHTTPServers(ctx, cfg, reg, health, log)

	setupLog.Info("starting dispatch loop", "marketplaces", len(cfg.Marketplaces))
	runDispatchLoop(ctx, fc, log)
	setupLog.Info("shutting down")
}

// newZapLogger builds the zap.Logger backing logr.Logger for the process,
// JSON-encoded in production and console-encoded under -dev.
func newZapLogger(dev bool) *zap.Logger {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		// zap.Config.Build only fails on a malformed config; the two
		// canned configs above never are. Fall back to a no-op logger
		// rather than panicking the whole process over logging setup.
		return zap.NewNop()
	}
	return zapLogger
}

// openDatabases opens the control-plane and both sink connections, applying
// the pool tuning spec §4.6 step 5 / §6 Configuration options require.
func openDatabases(cfg *config.Config) (control, mssql, azure *sql.DB, err error) {
	control, err = sql.Open("sqlserver", cfg.Database.ControlPlaneDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open control-plane db: %w", err)
	}
	mssql, err = sql.Open("sqlserver", cfg.Database.MSSQLDSN)
	if err != nil {
		control.Close()
		return nil, nil, nil, fmt.Errorf("open mssql sink db: %w", err)
	}
	azure, err = sql.Open("sqlserver", cfg.Database.AzureDSN)
	if err != nil {
		control.Close()
		mssql.Close()
		return nil, nil, nil, fmt.Errorf("open azure sink db: %w", err)
	}

	pool := writer.DefaultPoolConfig()
	if cfg.Database.PoolSize > 0 {
		pool.MaxOpenConns = cfg.Database.PoolSize + cfg.Database.MaxOverflow
	}
	if cfg.Database.RecycleSeconds > 0 {
		pool.ConnMaxLifetime = time.Duration(cfg.Database.RecycleSeconds) * time.Second
	}
	for _, db := range []*sql.DB{control, mssql, azure} {
		db.SetMaxOpenConns(pool.MaxOpenConns)
		db.SetMaxIdleConns(pool.MaxOpenConns)
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	return control, mssql, azure, nil
}

// buildRuntimes constructs one MarketplaceRuntime per configured
// marketplace: a TokenManager/RealClient sharing the marketplace's
// credential group, a Fetcher, a transform Pipeline, and a metrics-attached
// Writer.
func buildRuntimes(cfg *config.Config, mssqlDB, azureDB *sql.DB, m *metrics.Metrics, log logr.Logger) (map[string]*controller.MarketplaceRuntime, map[string]*spapi.TokenManager, error) {
	clients := make(map[string]*spapi.RealClient, len(cfg.CredentialGroups))
	tokenManagers := make(map[string]*spapi.TokenManager, len(cfg.CredentialGroups))
	runtimes := make(map[string]*controller.MarketplaceRuntime, len(cfg.Marketplaces))

	for _, mp := range cfg.Marketplaces {
		client, err := clientForGroup(cfg, mp, clients, tokenManagers, log)
		if err != nil {
			return nil, nil, fmt.Errorf("marketplace %s: %w", mp.Code, err)
		}

		pool := writer.DefaultPoolConfig()
		w := writer.New(mssqlDB, azureDB, mp.Code, pool, log).WithMetrics(m)

		meta := transform.MarketplaceMeta{
			Code:          mp.Code,
			MarketplaceID: mp.MarketplaceID(),
			Region:        mp.Region(),
			Company:       mp.CompanyLabel,
			Channel:       mp.Channel(),
			VATRate:       mp.VATRate(),
		}

		runtimes[mp.Code] = &controller.MarketplaceRuntime{
			Code:            mp.Code,
			MarketplaceID:   mp.MarketplaceID(),
			CredentialGroup: mp.CredentialGroup,
			Fetcher:         fetcher.New(client, log),
			Pipeline:        transform.New(meta, log),
			Writer:          w,
		}
	}

	return runtimes, tokenManagers, nil
}

// clientForGroup returns the shared RealClient for a marketplace's
// credential group, constructing it on first use — every marketplace in the
// same group shares one TokenManager and one pair of rate limiters/circuit
// breakers, per spec §4.1/§4.2.
func clientForGroup(cfg *config.Config, mp config.Marketplace, clients map[string]*spapi.RealClient, tokenManagers map[string]*spapi.TokenManager, log logr.Logger) (*spapi.RealClient, error) {
	if existing, ok := clients[mp.CredentialGroup]; ok {
		return existing, nil
	}

	group, ok := cfg.CredentialGroups[mp.CredentialGroup]
	if !ok {
		return nil, fmt.Errorf("credential group %q not configured", mp.CredentialGroup)
	}

	tokens, err := spapi.NewTokenManager(
		group.CredentialsFile,
		group.AppID,
		os.Getenv(group.ClientSecretEnv),
		os.Getenv(group.RefreshTokenEnv),
		config.LWATokenURL,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("token manager for credential group %s: %w", mp.CredentialGroup, err)
	}

	clientCfg := spapi.ClientConfig{
		Region:         mp.Region(),
		ConnectTimeout: time.Duration(cfg.FetchConnectTimeoutSeconds) * time.Second,
		ReadTimeout:    time.Duration(cfg.FetchReadTimeoutSeconds) * time.Second,
		RateLimits: spapi.BreakerAndRateConfig{
			OrdersRatePerSecond:     cfg.RateLimits.OrdersRatePerSecond,
			OrdersBurst:             cfg.RateLimits.OrdersBurst,
			OrderItemsRatePerSecond: cfg.RateLimits.OrderItemsRatePerSecond,
			OrderItemsBurst:         cfg.RateLimits.OrderItemsBurst,
			FailureThreshold:        cfg.CircuitBreaker.FailureThreshold,
			RecoveryTimeout:         time.Duration(cfg.CircuitBreaker.RecoveryTimeoutS) * time.Second,
		},
	}

	client := spapi.NewRealClient(clientCfg, tokens, log)
	clients[mp.CredentialGroup] = client
	tokenManagers[mp.CredentialGroup] = tokens
	return client, nil
}

// runDispatchLoop calls FetchController.Run repeatedly, sleeping
// DispatchResult.NextDelay between dispatches and backing off when the
// controller reports "completed" (every marketplace has caught up to
// EndDate), per spec §4.8.
func runDispatchLoop(ctx context.Context, fc *controller.FetchController, log logr.Logger) {
	const completedBackoff = 5 * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := fc.Run(ctx)
		if err != nil {
			log.Error(err, "dispatch iteration failed")
			sleep(ctx, completedBackoff)
			continue
		}

		switch result.Status {
		case "completed":
			log.Info("all marketplaces have caught up to the configured end date, idling")
			sleep(ctx, completedBackoff)
		case "busy":
			sleep(ctx, completedBackoff)
		default:
			log.Info("dispatched", "marketplace", result.MarketplaceID, "date", result.Date, "nextDelay", result.NextDelay)
			sleep(ctx, result.NextDelay)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// runRepair runs the anomaly-repair procedure of spec §4.9 for every
// configured marketplace once, logging each RepairReport, then returns.
func runRepair(ctx context.Context, cfg *config.Config, mssqlDB, azureDB *sql.DB, progressStore *progress.Store, m *metrics.Metrics, log logr.Logger) {
	repairer := &controller.AnomalyRepair{
		MSSQLDB:  mssqlDB,
		AzureDB:  azureDB,
		Progress: progressStore,
		Metrics:  m,
		Log:      log.WithName("anomaly-repair"),
	}

	for _, mp := range cfg.Marketplaces {
		report, err := repairer.Repair(ctx, mp)
		if err != nil {
			setupLog.Error(err, "repair failed", "marketplace", mp.Code)
			continue
		}
		setupLog.Info("repair complete",
			"marketplace", report.MarketplaceID,
			"rowsDeletedMSSQL", report.RowsDeletedMSSQL,
			"rowsDeletedAzure", report.RowsDeletedAzure,
			"newLastRun", report.NewLastRun,
		)
	}
}

// startHTTPServers brings up the Prometheus /metrics endpoint and a
// /healthz+/readyz probe endpoint, both plain net/http — the teacher's
// healthz.Handler is a controller-runtime type dropped per the ambient
// stack's dependency trim, so the same liveness/readiness contract is
// reimplemented directly here instead.
func startHTTPServers(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, health *spapi.HealthChecker, log logr.Logger) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.MetricsBindAddress, Handler: metricsMux}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// Liveness: the process itself is running. Credential problems are
		// a readiness concern, not a liveness one, so they never fail this.
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	healthMux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := health.Check(r); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	healthSrv := &http.Server{Addr: cfg.HealthProbeBindAddress, Handler: healthMux}

	go func() {
		log.Info("starting metrics server", "address", cfg.MetricsBindAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "metrics server failed")
		}
	}()
	go func() {
		log.Info("starting health probe server", "address", cfg.HealthProbeBindAddress)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "health probe server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		_ = healthSrv.Shutdown(shutdownCtx)
	}()
}

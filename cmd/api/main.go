package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-reconciler/internal/adapter"
	"github.com/feral-file/ff-reconciler/internal/api/server"
	"github.com/feral-file/ff-reconciler/internal/chain"
	"github.com/feral-file/ff-reconciler/internal/config"
	"github.com/feral-file/ff-reconciler/internal/facade"
	"github.com/feral-file/ff-reconciler/internal/logger"
	"github.com/feral-file/ff-reconciler/internal/messaging"
	"github.com/feral-file/ff-reconciler/internal/reconciler"
	"github.com/feral-file/ff-reconciler/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Chain-State Reconciler API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Connect to the chain RPC endpoint
	clock := adapter.NewClock()
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Chain.RPCURL))
	}
	defer ethClient.Close()

	chainReader, err := chain.NewEthereumReader(ethClient, chain.Config{
		MarketplaceAddress:   cfg.Chain.MarketplaceAddress,
		StartBlock:           cfg.Chain.StartBlock,
		RetryInitialInterval: cfg.Chain.RetryInitialInterval,
		RetryMaxAttempts:     uint64(cfg.Chain.RetryMaxAttempts),
		LogChunkSize:         cfg.Chain.LogChunkSize,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create chain reader", zap.Error(err))
	}
	defer chainReader.Close()
	logger.InfoCtx(ctx, "Connected to Ethereum RPC", zap.String("chain_id", string(cfg.Chain.ChainID)))

	// Connect to NATS when configured; the API publishes correction events
	// from the synchronous verification path
	var publisher messaging.Publisher = messaging.NewNopPublisher()
	if cfg.NATS.URL != "" {
		natsClient, err := messaging.NewNATSClient(messaging.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		if err := natsClient.EnsureStream(ctx); err != nil {
			logger.FatalCtx(ctx, "Failed to ensure NATS stream", zap.Error(err))
		}
		publisher = natsClient
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		logger.WarnCtx(ctx, "NATS not configured, correction events will not be published")
	}
	defer publisher.Close()

	// Wire the reconciler and the query facade
	rec := reconciler.New(dataStore, chainReader, publisher, clock, reconciler.Config{
		PendingStaleness: cfg.Reconciler.PendingStaleness,
		ConflictRetries:  cfg.Reconciler.ConflictRetries,
	})
	queryFacade := facade.New(dataStore, rec, clock, facade.Config{
		FreshnessThreshold: cfg.Reconciler.FreshnessThreshold,
	})

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Create and start server
	srv := server.New(serverConfig, dataStore, queryFacade, rec)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

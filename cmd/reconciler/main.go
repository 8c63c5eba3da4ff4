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
	"github.com/feral-file/ff-reconciler/internal/chain"
	"github.com/feral-file/ff-reconciler/internal/config"
	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/logger"
	"github.com/feral-file/ff-reconciler/internal/messaging"
	"github.com/feral-file/ff-reconciler/internal/reconciler"
	"github.com/feral-file/ff-reconciler/internal/store"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
	"github.com/feral-file/ff-reconciler/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	migrate    = flag.Bool("migrate", false, "Run schema migration and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadDaemonConfig(*configFile, *envPath)
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
			"service": "reconciler",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Chain-State Reconciler daemon")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	if *migrate {
		if err := db.AutoMigrate(&schema.NFTRecord{}, &schema.ReconciliationJob{}, &schema.Collection{}); err != nil {
			logger.FatalCtx(ctx, "Failed to migrate schema", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Schema migration complete")
		return
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}

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

	// Connect to NATS; the daemon both publishes corrections and consumes
	// webhook trigger messages
	var publisher messaging.Publisher = messaging.NewNopPublisher()
	var natsClient *messaging.NATSClient
	if cfg.NATS.URL != "" {
		natsClient, err = messaging.NewNATSClient(messaging.Config{
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
		logger.WarnCtx(ctx, "NATS not configured, webhook triggers disabled")
	}
	defer publisher.Close()

	// Wire the reconciler
	rec := reconciler.New(dataStore, chainReader, publisher, clock, reconciler.Config{
		PendingStaleness: cfg.Reconciler.PendingStaleness,
		ConflictRetries:  cfg.Reconciler.ConflictRetries,
	})

	// Start the sweep loop
	sweep := sweeper.NewReconcileSweeper(&sweeper.ReconcileSweeperConfig{
		CycleInterval:  cfg.Sweeper.CycleInterval,
		WorkerPoolSize: cfg.Sweeper.WorkerPoolSize,
	}, dataStore, rec, clock)

	errCh := make(chan error, 2)
	go func() {
		if err := sweep.Start(ctx); err != nil {
			errCh <- fmt.Errorf("sweeper stopped: %w", err)
		}
	}()

	// Consume webhook trigger messages
	if natsClient != nil {
		go func() {
			err := natsClient.SubscribeTriggers(ctx, func(msg *messaging.TriggerMessage) error {
				reason := msg.Reason
				if reason == "" {
					reason = domain.ReasonWebhook
				}
				job, err := rec.Reconcile(ctx, msg.Scope, reason)
				if err != nil {
					return err
				}
				logger.InfoCtx(ctx, "Trigger reconciliation finished",
					zap.String("jobID", job.ID),
					zap.String("contractAddress", msg.Scope.ContractAddress),
					zap.String("outcome", string(job.Outcome)))
				return nil
			})
			if err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("trigger subscriber stopped: %w", err)
			}
		}()
	}

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "daemon"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sweep.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, fmt.Errorf("failed to stop sweeper: %w", err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("Reconciler daemon stopped")
}

package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-reconciler/internal/adapter"
	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/logger"
	"github.com/feral-file/ff-reconciler/internal/reconciler"
	"github.com/feral-file/ff-reconciler/internal/store"
)

// ReconcileSweeperConfig holds configuration for the reconcile sweeper
type ReconcileSweeperConfig struct {
	CycleInterval  time.Duration // Time to sleep between sweep cycles
	WorkerPoolSize int           // Collections reconciled concurrently
}

// reconcileSweeper implements the Sweeper interface. Each cycle reconciles
// every enabled collection; collections are disjoint scopes, so they run
// concurrently on the worker pool.
type reconcileSweeper struct {
	config     *ReconcileSweeperConfig
	store      store.Store
	reconciler *reconciler.Reconciler
	clock      adapter.Clock
	pool       pond.Pool
	running    atomic.Bool
	stopChan   chan struct{}
	stoppedCh  chan struct{}
}

// NewReconcileSweeper creates a new reconcile sweeper
func NewReconcileSweeper(
	config *ReconcileSweeperConfig,
	st store.Store,
	r *reconciler.Reconciler,
	clock adapter.Clock,
) Sweeper {
	return &reconcileSweeper{
		config:     config,
		store:      st,
		reconciler: r,
		clock:      clock,
		stopChan:   make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *reconcileSweeper) Name() string {
	return "reconcile-sweeper"
}

// Start begins the sweeper's main loop
func (s *reconcileSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh) // Signal that we've stopped
	}()

	logger.InfoCtx(ctx, "Starting reconcile sweeper",
		zap.Duration("cycle_interval", s.config.CycleInterval),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Reconcile sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Reconcile sweeper stop requested")
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
			if !s.sleep(ctx, s.config.CycleInterval) {
				return nil // Interrupted during sleep
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *reconcileSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping reconcile sweeper")

	// Signal stop to the main loop
	close(s.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Reconcile sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Reconcile sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle reconciles every enabled collection once
func (s *reconcileSweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()

	collections, err := s.store.ListCollections(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list collections for sweep: %w", err)
	}
	if len(collections) == 0 {
		logger.InfoCtx(ctx, "No collections registered, skipping sweep cycle")
		return nil
	}

	logger.InfoCtx(ctx, "Starting sweep cycle", zap.Int("collections", len(collections)))

	// Fresh pool per cycle so StopAndWait acts as the cycle barrier
	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(len(collections)),
		pond.WithContext(ctx),
	)

	var corrections, failures atomic.Int64
	for _, collection := range collections {
		scope := domain.Scope{ContractAddress: collection.ContractAddress}
		s.pool.Submit(func() {
			job, err := s.reconciler.Reconcile(ctx, scope, domain.ReasonSweep)
			if err != nil {
				failures.Add(1)
				logger.ErrorCtx(ctx, fmt.Errorf("failed to reconcile collection: %w", err),
					zap.String("contractAddress", scope.ContractAddress))
				return
			}
			corrections.Add(int64(job.CorrectionsApplied))
			if job.Outcome != domain.OutcomeSuccess {
				failures.Add(1)
				logger.WarnCtx(ctx, "Sweep reconciliation did not fully succeed",
					zap.String("contractAddress", scope.ContractAddress),
					zap.String("jobID", job.ID),
					zap.String("outcome", string(job.Outcome)))
			}
		})
	}

	// Wait for all collections to complete
	s.pool.StopAndWait()

	logger.InfoCtx(ctx, "Sweep cycle complete",
		zap.Int("collections", len(collections)),
		zap.Int64("corrections_applied", corrections.Load()),
		zap.Int64("collections_failed", failures.Load()),
		zap.Duration("duration", s.clock.Since(startTime)),
	)

	return nil
}

// sleep waits for the given duration, returning false when interrupted by
// context cancellation or a stop request
func (s *reconcileSweeper) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	case <-s.clock.After(d):
		return true
	}
}

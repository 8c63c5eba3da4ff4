package facade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-reconciler/internal/adapter"
	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/logger"
	"github.com/feral-file/ff-reconciler/internal/reconciler"
	"github.com/feral-file/ff-reconciler/internal/store"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

// Config holds the facade tuning knobs
type Config struct {
	// FreshnessThreshold is how old a record's last_synced_at may be before
	// a verified read re-reconciles it. Defaults to 5 minutes.
	FreshnessThreshold time.Duration
}

// VerifiedRecord is a mirror record together with its freshness indicator.
// Stale is set when verification could not run and the caller is getting
// cached data older than the freshness threshold.
type VerifiedRecord struct {
	Record *schema.NFTRecord
	Stale  bool
}

// Facade serves marketplace read views. Listing reads come from the mirror
// only; verified single-token reads may synchronously reconcile first.
type Facade struct {
	store      store.Store
	reconciler *reconciler.Reconciler
	clock      adapter.Clock
	cfg        Config
}

// New creates a query facade over the mirror store and the reconciler
func New(s store.Store, r *reconciler.Reconciler, clock adapter.Clock, cfg Config) *Facade {
	if cfg.FreshnessThreshold == 0 {
		cfg.FreshnessThreshold = 5 * time.Minute
	}
	return &Facade{
		store:      s,
		reconciler: r,
		clock:      clock,
		cfg:        cfg,
	}
}

// ListActive retrieves records with an active listing, newest collections
// first. Reads only from the mirror and never blocks on the chain.
func (f *Facade) ListActive(ctx context.Context, contractAddress, category *string, limit, offset int) ([]*schema.NFTRecord, int64, error) {
	records, total, err := f.store.ListActive(ctx, contractAddress, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list active records: %w", err)
	}
	return records, total, nil
}

// GetVerified retrieves one record, re-reconciling it against the chain
// first when last_synced_at is older than the freshness threshold. When
// verification fails but a cached record exists, the cached record is
// returned with Stale set; stale-but-available beats unavailable. An error
// is returned only when no cached record exists at all.
func (f *Facade) GetVerified(ctx context.Context, contractAddress, tokenID string) (*VerifiedRecord, error) {
	record, err := f.store.GetRecord(ctx, contractAddress, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
	}

	if record != nil && f.clock.Since(record.LastSyncedAt) <= f.cfg.FreshnessThreshold {
		return &VerifiedRecord{Record: record}, nil
	}

	verified, err := f.reconciler.ReconcileToken(ctx, contractAddress, tokenID)
	if err == nil {
		return &VerifiedRecord{Record: verified}, nil
	}

	if record == nil {
		if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrTokenNotOnChain) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}

	logger.WarnCtx(ctx, "verification failed, serving cached record",
		zap.String("contractAddress", record.ContractAddress),
		zap.String("tokenID", record.TokenID),
		zap.Error(err))
	return &VerifiedRecord{Record: record, Stale: true}, nil
}

// Get retrieves one record from the mirror without verification
func (f *Facade) Get(ctx context.Context, contractAddress, tokenID string) (*schema.NFTRecord, error) {
	record, err := f.store.GetRecord(ctx, contractAddress, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
	}
	if record == nil {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

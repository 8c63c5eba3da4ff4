package reconciler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-reconciler/internal/adapter"
	"github.com/feral-file/ff-reconciler/internal/chain"
	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/logger"
	"github.com/feral-file/ff-reconciler/internal/messaging"
	"github.com/feral-file/ff-reconciler/internal/store"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

const enumerationPageSize = 500

// Config holds the reconciler tuning knobs
type Config struct {
	// PendingStaleness is how long a pending mint may stay unconfirmed on
	// chain before it is marked failed. Defaults to 15 minutes.
	PendingStaleness time.Duration
	// ConflictRetries is how many times a token is re-read and re-merged
	// after an optimistic-concurrency conflict. Defaults to 3.
	ConflictRetries int
}

// Reconciler brings the mirror store into agreement with on-chain truth.
// Invocations are stateless; overlapping runs for the same token are safe
// because the store's conditional upsert rejects writes based on stale reads.
type Reconciler struct {
	store     store.Store
	chain     chain.Reader
	publisher messaging.Publisher
	clock     adapter.Clock
	cfg       Config
}

// New creates a reconciler over the given store and chain boundaries
func New(s store.Store, reader chain.Reader, publisher messaging.Publisher, clock adapter.Clock, cfg Config) *Reconciler {
	if cfg.PendingStaleness == 0 {
		cfg.PendingStaleness = 15 * time.Minute
	}
	if cfg.ConflictRetries == 0 {
		cfg.ConflictRetries = 3
	}
	return &Reconciler{
		store:     s,
		chain:     reader,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
	}
}

// Reconcile runs one reconciliation job over the given scope and blocks
// until it finishes. Per-token failures are isolated into the job outcome;
// the job is failed as a whole only when the chain or the store is
// unreachable for the entire scope.
func (r *Reconciler) Reconcile(ctx context.Context, scope domain.Scope, reason domain.TriggerReason) (*schema.ReconciliationJob, error) {
	job, err := r.StartJob(ctx, scope, reason)
	if err != nil {
		return nil, err
	}
	r.RunJob(ctx, job)
	return job, nil
}

// StartJob validates the scope and persists a new job row. The job is not
// executed yet; callers pass it to RunJob, possibly on another goroutine.
func (r *Reconciler) StartJob(ctx context.Context, scope domain.Scope, reason domain.TriggerReason) (*schema.ReconciliationJob, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: invalid scope %s", domain.ErrInvariantViolation, scope.ContractAddress)
	}

	job := &schema.ReconciliationJob{
		ID:              ulid.MustNewDefault(r.clock.Now()).String(),
		ContractAddress: domain.NormalizeAddress(scope.ContractAddress),
		TokenIDs:        scope.TokenIDs,
		Reason:          reason,
		StartedAt:       r.clock.Now(),
	}
	if err := r.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
	}
	return job, nil
}

// RunJob executes a started job to completion, mutating it in place and
// recording the final outcome. Cancellation is cooperative between tokens;
// corrections already written stay in place.
func (r *Reconciler) RunJob(ctx context.Context, job *schema.ReconciliationJob) {
	contract := job.ContractAddress

	listings, err := r.chain.FetchListings(ctx, contract, 0)
	if err != nil {
		// Scope-level chain failure: no token in the scope is touched
		r.failJob(ctx, job, fmt.Errorf("failed to fetch listings for scope: %w", err))
		return
	}
	listingsByToken := indexListings(listings)

	tokenIDs := job.TokenIDs
	if len(tokenIDs) == 0 {
		tokenIDs, err = r.enumerateTokens(ctx, contract, listingsByToken)
		if err != nil {
			r.failJob(ctx, job, fmt.Errorf("failed to enumerate collection tokens: %w", err))
			return
		}
	}

	for _, tokenID := range tokenIDs {
		// Cooperative cancellation checkpoint between tokens
		if err := ctx.Err(); err != nil {
			r.failJob(ctx, job, fmt.Errorf("reconciliation cancelled: %w", err))
			return
		}

		job.TokensChecked++
		corrected, err := r.reconcileOne(ctx, job.ID, contract, tokenID, listingsByToken[tokenID])
		if err != nil {
			if errors.Is(err, domain.ErrMirrorUnavailable) {
				r.failJob(ctx, job, err)
				return
			}
			job.TokensFailed++
			logger.WarnCtx(ctx, "failed to reconcile token",
				zap.String("contractAddress", contract),
				zap.String("tokenID", tokenID),
				zap.Error(err))
			continue
		}
		if corrected {
			job.CorrectionsApplied++
		}
	}

	job.Outcome = domain.OutcomeSuccess
	if job.TokensFailed > 0 {
		job.Outcome = domain.OutcomePartialFailure
	}
	finishedAt := r.clock.Now()
	job.FinishedAt = &finishedAt
	if err := r.store.FinishJob(ctx, job); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to finish job: %w", err), zap.String("jobID", job.ID))
	}
}

// ReconcileToken synchronously reconciles a single token and returns the
// resulting mirror record. This is the verification path behind stale reads;
// it refreshes last_synced_at even when the mirror already agrees with the
// chain. Returns domain.ErrRecordNotFound when the token ends up with no
// mirror record at all.
func (r *Reconciler) ReconcileToken(ctx context.Context, contractAddress, tokenID string) (*schema.NFTRecord, error) {
	ref := domain.TokenRef{ContractAddress: contractAddress, TokenID: tokenID}
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: invalid token ref %s", domain.ErrInvariantViolation, ref)
	}
	contract := domain.NormalizeAddress(contractAddress)

	listings, err := r.chain.FetchListings(ctx, contract, 0)
	if err != nil {
		return nil, err
	}
	listingsByToken := indexListings(listings)

	corrected, err := r.reconcileOne(ctx, "", contract, tokenID, listingsByToken[tokenID])
	if err != nil {
		return nil, err
	}

	record, err := r.store.GetRecord(ctx, contract, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
	}
	if record == nil {
		return nil, domain.ErrRecordNotFound
	}

	if !corrected {
		// The mirror already agreed with the chain; refresh the verification
		// timestamp so the read is known fresh. Not counted as a correction.
		expected := record.SyncVersion
		record.LastSyncedAt = r.clock.Now()
		if err := r.store.UpsertRecord(ctx, record, expected); err != nil {
			if !errors.Is(err, domain.ErrMirrorConflict) {
				return nil, fmt.Errorf("failed to refresh record: %w", err)
			}
			// A concurrent writer got there first; its state is newer anyway
			record, err = r.store.GetRecord(ctx, contract, tokenID)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
			}
			if record == nil {
				return nil, domain.ErrRecordNotFound
			}
		}
	}

	return record, nil
}

// reconcileOne fetches chain truth for one token, merges it against the
// mirror and applies at most one corrective write. Optimistic-concurrency
// conflicts re-read and re-merge up to cfg.ConflictRetries times.
func (r *Reconciler) reconcileOne(ctx context.Context, jobID, contractAddress, tokenID string, chainListing *domain.ListingSnapshot) (bool, error) {
	snapshot, err := r.chain.FetchToken(ctx, contractAddress, tokenID)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenNotOnChain) {
			return false, err
		}
		snapshot = nil
	}

	for attempt := 0; attempt <= r.cfg.ConflictRetries; attempt++ {
		mirror, err := r.store.GetRecord(ctx, contractAddress, tokenID)
		if err != nil {
			return false, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
		}

		desired, changed := merge(mirror, snapshot, chainListing, r.clock.Now(), r.cfg.PendingStaleness)
		if len(changed) == 0 {
			return false, nil
		}

		expected := int64(-1)
		if mirror != nil {
			expected = mirror.SyncVersion
		}

		err = r.store.UpsertRecord(ctx, desired, expected)
		if err == nil {
			r.publishCorrection(ctx, jobID, desired, changed)
			return true, nil
		}
		if errors.Is(err, domain.ErrMirrorConflict) {
			// Another writer updated the record concurrently; re-read and
			// re-merge rather than overwriting its work
			continue
		}
		if errors.Is(err, domain.ErrInvariantViolation) {
			// Bad record content is a token-level failure, not a store outage
			return false, err
		}
		return false, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
	}

	return false, fmt.Errorf("%w: retries exhausted for %s:%s", domain.ErrMirrorConflict, contractAddress, tokenID)
}

// enumerateTokens builds the token set for a whole-collection scope: the
// union of every mirrored record and every token the marketplace has a
// listing for
func (r *Reconciler) enumerateTokens(ctx context.Context, contractAddress string, listingsByToken map[string]*domain.ListingSnapshot) ([]string, error) {
	seen := make(map[string]struct{})
	var tokenIDs []string

	for offset := 0; ; offset += enumerationPageSize {
		records, err := r.store.QueryByCollection(ctx, contractAddress, store.RecordFilter{IncludeBurned: true}, enumerationPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrMirrorUnavailable, err)
		}
		for _, record := range records {
			if _, ok := seen[record.TokenID]; !ok {
				seen[record.TokenID] = struct{}{}
				tokenIDs = append(tokenIDs, record.TokenID)
			}
		}
		if len(records) < enumerationPageSize {
			break
		}
	}

	for tokenID := range listingsByToken {
		if _, ok := seen[tokenID]; !ok {
			seen[tokenID] = struct{}{}
			tokenIDs = append(tokenIDs, tokenID)
		}
	}

	return tokenIDs, nil
}

func (r *Reconciler) publishCorrection(ctx context.Context, jobID string, record *schema.NFTRecord, changed []string) {
	event := &messaging.CorrectionEvent{
		EventID:         uuid.New().String(),
		JobID:           jobID,
		ContractAddress: record.ContractAddress,
		TokenID:         record.TokenID,
		ChangedFields:   changed,
		SyncVersion:     record.SyncVersion,
		Timestamp:       r.clock.Now(),
	}
	if err := r.publisher.PublishCorrection(ctx, event); err != nil {
		// Corrections are durable in the store; event delivery is best effort
		logger.WarnCtx(ctx, "failed to publish correction event",
			zap.String("contractAddress", record.ContractAddress),
			zap.String("tokenID", record.TokenID),
			zap.Error(err))
	}
}

// failJob records a scope-level failure. correctionsApplied stays at
// whatever was already written; for failures before the token loop it is 0.
func (r *Reconciler) failJob(ctx context.Context, job *schema.ReconciliationJob, cause error) {
	msg := cause.Error()
	job.Outcome = domain.OutcomeFailed
	job.Error = &msg
	finishedAt := r.clock.Now()
	job.FinishedAt = &finishedAt

	// The surrounding context may already be cancelled, which is often the
	// cause being recorded; the outcome write must still land
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.FinishJob(writeCtx, job); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to record job failure: %w", err), zap.String("jobID", job.ID))
	}
}

// indexListings maps listings by token id, preferring the active listing
// when a token has several and otherwise the one with the highest listing id
func indexListings(listings []domain.ListingSnapshot) map[string]*domain.ListingSnapshot {
	byToken := make(map[string]*domain.ListingSnapshot, len(listings))
	for i := range listings {
		listing := &listings[i]
		current, ok := byToken[listing.TokenID]
		if !ok {
			byToken[listing.TokenID] = listing
			continue
		}
		if current.Status == domain.ListingStatusActive {
			continue
		}
		if listing.Status == domain.ListingStatusActive || laterListingID(listing.ListingID, current.ListingID) {
			byToken[listing.TokenID] = listing
		}
	}
	return byToken
}

func laterListingID(a, b string) bool {
	ai, okA := new(big.Int).SetString(a, 10)
	bi, okB := new(big.Int).SetString(b, 10)
	if !okA || !okB {
		return a > b
	}
	return ai.Cmp(bi) > 0
}

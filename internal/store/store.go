package store

import (
	"context"

	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

// RecordFilter narrows collection queries
type RecordFilter struct {
	// MintStatus filters by mint status when non-empty
	MintStatus string
	// ListingStatus filters by embedded listing status when non-empty
	ListingStatus string
	// Owner filters by owner address when non-empty
	Owner string
	// IncludeBurned includes burned records (excluded by default)
	IncludeBurned bool
}

// Store defines the interface for mirror database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// GetRecord retrieves a record by (contract, tokenID); nil when absent
	GetRecord(ctx context.Context, contractAddress, tokenID string) (*schema.NFTRecord, error)
	// UpsertRecord conditionally writes a record. expectedSyncVersion -1 means
	// the record must not exist yet; otherwise the stored sync_version must
	// match or domain.ErrMirrorConflict is returned. On success the record's
	// SyncVersion is expectedSyncVersion+1 (0 for inserts).
	UpsertRecord(ctx context.Context, record *schema.NFTRecord, expectedSyncVersion int64) error
	// QueryByCollection retrieves records for a contract with pagination
	QueryByCollection(ctx context.Context, contractAddress string, filter RecordFilter, limit, offset int) ([]*schema.NFTRecord, error)
	// ListActive retrieves records with an active listing, optionally filtered
	// by contract and collection category. Returns records and the total count.
	ListActive(ctx context.Context, contractAddress, category *string, limit, offset int) ([]*schema.NFTRecord, int64, error)

	// CreateJob persists a new reconciliation job
	CreateJob(ctx context.Context, job *schema.ReconciliationJob) error
	// FinishJob records a job's final outcome and counters
	FinishJob(ctx context.Context, job *schema.ReconciliationJob) error
	// GetJob retrieves a job by its ULID; nil when absent
	GetJob(ctx context.Context, id string) (*schema.ReconciliationJob, error)

	// RegisterCollection adds a contract to the sweep registry (idempotent)
	RegisterCollection(ctx context.Context, collection *schema.Collection) error
	// ListCollections retrieves registered collections, optionally enabled only
	ListCollections(ctx context.Context, enabledOnly bool) ([]*schema.Collection, error)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// GetRecord retrieves a record by (contract, tokenID); nil when absent
func (s *pgStore) GetRecord(ctx context.Context, contractAddress, tokenID string) (*schema.NFTRecord, error) {
	var record schema.NFTRecord
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND token_id = ?", domain.NormalizeAddress(contractAddress), tokenID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &record, nil
}

// validateRecord enforces schema invariants at the storage boundary
func validateRecord(record *schema.NFTRecord) error {
	if !domain.ValidTokenID(record.TokenID) {
		return fmt.Errorf("%w: invalid token id %q", domain.ErrInvariantViolation, record.TokenID)
	}
	// Listing columns must be all set or all unset
	if record.ListingID != nil {
		if record.ListingKind == nil || record.ListingStatus == nil {
			return fmt.Errorf("%w: partial listing on %s:%s", domain.ErrInvariantViolation, record.ContractAddress, record.TokenID)
		}
	} else if record.ListingKind != nil || record.ListingStatus != nil ||
		record.ListingPriceWei != nil || record.ListingSeller != nil || record.ListingCurrency != nil {
		return fmt.Errorf("%w: listing fields without listing id on %s:%s", domain.ErrInvariantViolation, record.ContractAddress, record.TokenID)
	}
	return nil
}

// UpsertRecord conditionally writes a record keyed by the expected sync version.
// The single-row listing layout makes the at-most-one-active-listing invariant
// structural; validateRecord guards against partial listing writes.
func (s *pgStore) UpsertRecord(ctx context.Context, record *schema.NFTRecord, expectedSyncVersion int64) error {
	record.ContractAddress = domain.NormalizeAddress(record.ContractAddress)
	if err := validateRecord(record); err != nil {
		return err
	}

	if expectedSyncVersion < 0 {
		// Insert path: the record must not exist yet. ON CONFLICT DO NOTHING
		// plus a RowsAffected check turns a concurrent insert into a Conflict
		// instead of a duplicate-key error.
		record.ID = 0
		record.SyncVersion = 0
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contract_address"}, {Name: "token_id"}},
			DoNothing: true,
		}).Create(record)
		if res.Error != nil {
			return fmt.Errorf("failed to insert record: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrMirrorConflict
		}
		return nil
	}

	// Update path: the conditional WHERE on sync_version is the optimistic
	// concurrency check; sync_version can only move forward.
	newVersion := expectedSyncVersion + 1
	updates := map[string]interface{}{
		"owner":             record.Owner,
		"metadata_uri":      record.MetadataURI,
		"mint_status":       record.MintStatus,
		"burned":            record.Burned,
		"name":              record.Name,
		"image_url":         record.ImageURL,
		"listing_id":        record.ListingID,
		"listing_kind":      record.ListingKind,
		"listing_price_wei": record.ListingPriceWei,
		"listing_seller":    record.ListingSeller,
		"listing_currency":  record.ListingCurrency,
		"listing_status":    record.ListingStatus,
		"sync_version":      newVersion,
		"last_synced_at":    record.LastSyncedAt,
	}

	res := s.db.WithContext(ctx).
		Model(&schema.NFTRecord{}).
		Where("contract_address = ? AND token_id = ? AND sync_version = ?",
			record.ContractAddress, record.TokenID, expectedSyncVersion).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrMirrorConflict
	}

	record.SyncVersion = newVersion
	return nil
}

// QueryByCollection retrieves records for a contract with pagination
func (s *pgStore) QueryByCollection(ctx context.Context, contractAddress string, filter RecordFilter, limit, offset int) ([]*schema.NFTRecord, error) {
	query := s.db.WithContext(ctx).
		Model(&schema.NFTRecord{}).
		Where("contract_address = ?", domain.NormalizeAddress(contractAddress))

	if filter.MintStatus != "" {
		query = query.Where("mint_status = ?", filter.MintStatus)
	}
	if filter.ListingStatus != "" {
		query = query.Where("listing_status = ?", filter.ListingStatus)
	}
	if filter.Owner != "" {
		query = query.Where("owner = ?", domain.NormalizeAddress(filter.Owner))
	}
	if !filter.IncludeBurned {
		query = query.Where("burned = ?", false)
	}

	var records []*schema.NFTRecord
	err := query.Order("token_id ASC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query records by collection: %w", err)
	}
	return records, nil
}

// ListActive retrieves records with an active listing. It never touches the
// chain; marketplace views degrade to mirror data under any reconciliation
// failure.
func (s *pgStore) ListActive(ctx context.Context, contractAddress, category *string, limit, offset int) ([]*schema.NFTRecord, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&schema.NFTRecord{}).
		Where("listing_status = ? AND burned = ?", domain.ListingStatusActive, false)

	if contractAddress != nil {
		query = query.Where("contract_address = ?", domain.NormalizeAddress(*contractAddress))
	}
	if category != nil {
		query = query.Where("contract_address IN (?)",
			s.db.Model(&schema.Collection{}).Select("contract_address").Where("category = ?", *category))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count active listings: %w", err)
	}

	var records []*schema.NFTRecord
	err := query.Order("contract_address ASC, token_id ASC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list active listings: %w", err)
	}
	return records, total, nil
}

// CreateJob persists a new reconciliation job
func (s *pgStore) CreateJob(ctx context.Context, job *schema.ReconciliationJob) error {
	job.ContractAddress = domain.NormalizeAddress(job.ContractAddress)
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// FinishJob records a job's final outcome and counters
func (s *pgStore) FinishJob(ctx context.Context, job *schema.ReconciliationJob) error {
	res := s.db.WithContext(ctx).
		Model(&schema.ReconciliationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"outcome":             job.Outcome,
			"corrections_applied": job.CorrectionsApplied,
			"tokens_checked":      job.TokensChecked,
			"tokens_failed":       job.TokensFailed,
			"error":               job.Error,
			"finished_at":         job.FinishedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finish job: %w", res.Error)
	}
	return nil
}

// GetJob retrieves a job by its ULID; nil when absent
func (s *pgStore) GetJob(ctx context.Context, id string) (*schema.ReconciliationJob, error) {
	var job schema.ReconciliationJob
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// RegisterCollection adds a contract to the sweep registry (idempotent)
func (s *pgStore) RegisterCollection(ctx context.Context, collection *schema.Collection) error {
	collection.ContractAddress = domain.NormalizeAddress(collection.ContractAddress)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "enabled"}),
	}).Create(collection).Error
	if err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}
	return nil
}

// ListCollections retrieves registered collections, optionally enabled only
func (s *pgStore) ListCollections(ctx context.Context, enabledOnly bool) ([]*schema.Collection, error) {
	query := s.db.WithContext(ctx).Model(&schema.Collection{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var collections []*schema.Collection
	if err := query.Order("contract_address ASC").Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

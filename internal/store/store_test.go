package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestRecord creates a minted record with no listing
func buildTestRecord(contract, tokenID string) *schema.NFTRecord {
	owner := "0x1111111111111111111111111111111111111111"
	return &schema.NFTRecord{
		ContractAddress: contract,
		TokenID:         tokenID,
		Owner:           &owner,
		MetadataURI:     fmt.Sprintf("ipfs://meta/%s", tokenID),
		MintStatus:      domain.MintStatusMinted,
		LastSyncedAt:    time.Now().UTC(),
	}
}

// buildTestListing creates an active direct listing
func buildTestListing(listingID string) *schema.Listing {
	return &schema.Listing{
		ListingID: listingID,
		Kind:      domain.ListingKindDirect,
		PriceWei:  "1000000000000000000",
		Seller:    "0x1111111111111111111111111111111111111111",
		Currency:  domain.ETHEREUM_ZERO_ADDRESS,
		Status:    domain.ListingStatusActive,
	}
}

// =============================================================================
// Test: UpsertRecord
// =============================================================================

func testUpsertRecord(t *testing.T, store Store) {
	ctx := context.Background()
	contract := "0xaaa1111111111111111111111111111111111111"

	t.Run("insert with expected version -1 creates record at version 0", func(t *testing.T) {
		record := buildTestRecord(contract, "1")
		err := store.UpsertRecord(ctx, record, -1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), record.SyncVersion)

		got, err := store.GetRecord(ctx, contract, "1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(0), got.SyncVersion)
		assert.Equal(t, domain.MintStatusMinted, got.MintStatus)
	})

	t.Run("insert of existing record returns conflict", func(t *testing.T) {
		record := buildTestRecord(contract, "2")
		require.NoError(t, store.UpsertRecord(ctx, record, -1))

		duplicate := buildTestRecord(contract, "2")
		err := store.UpsertRecord(ctx, duplicate, -1)
		assert.ErrorIs(t, err, domain.ErrMirrorConflict)
	})

	t.Run("update with matching version increments sync_version", func(t *testing.T) {
		record := buildTestRecord(contract, "3")
		require.NoError(t, store.UpsertRecord(ctx, record, -1))

		newOwner := "0x2222222222222222222222222222222222222222"
		record.Owner = &newOwner
		err := store.UpsertRecord(ctx, record, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), record.SyncVersion)

		got, err := store.GetRecord(ctx, contract, "3")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.SyncVersion)
		require.NotNil(t, got.Owner)
		assert.Equal(t, newOwner, *got.Owner)
	})

	t.Run("update with stale version returns conflict and loses no update", func(t *testing.T) {
		record := buildTestRecord(contract, "4")
		require.NoError(t, store.UpsertRecord(ctx, record, -1))

		// First writer wins
		winner, err := store.GetRecord(ctx, contract, "4")
		require.NoError(t, err)
		winnerOwner := "0x3333333333333333333333333333333333333333"
		winner.Owner = &winnerOwner
		require.NoError(t, store.UpsertRecord(ctx, winner, 0))

		// Second writer read version 0 too; its write must be rejected
		loserOwner := "0x4444444444444444444444444444444444444444"
		loser := buildTestRecord(contract, "4")
		loser.Owner = &loserOwner
		err = store.UpsertRecord(ctx, loser, 0)
		assert.ErrorIs(t, err, domain.ErrMirrorConflict)

		got, err := store.GetRecord(ctx, contract, "4")
		require.NoError(t, err)
		require.NotNil(t, got.Owner)
		assert.Equal(t, winnerOwner, *got.Owner)
		assert.Equal(t, int64(1), got.SyncVersion)
	})

	t.Run("partial listing columns are rejected", func(t *testing.T) {
		record := buildTestRecord(contract, "5")
		listingID := "77"
		record.ListingID = &listingID // kind and status missing
		err := store.UpsertRecord(ctx, record, -1)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})

	t.Run("invalid token id is rejected", func(t *testing.T) {
		record := buildTestRecord(contract, "not-a-number")
		err := store.UpsertRecord(ctx, record, -1)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})

	t.Run("listing round-trips through the embedded columns", func(t *testing.T) {
		record := buildTestRecord(contract, "6")
		record.SetListing(buildTestListing("88"))
		require.NoError(t, store.UpsertRecord(ctx, record, -1))

		got, err := store.GetRecord(ctx, contract, "6")
		require.NoError(t, err)
		require.NotNil(t, got)
		listing := got.Listing()
		require.NotNil(t, listing)
		assert.Equal(t, "88", listing.ListingID)
		assert.Equal(t, domain.ListingKindDirect, listing.Kind)
		assert.Equal(t, domain.ListingStatusActive, listing.Status)
		assert.True(t, got.HasActiveListing())

		// Clearing the listing clears every column
		got.SetListing(nil)
		require.NoError(t, store.UpsertRecord(ctx, got, got.SyncVersion))
		cleared, err := store.GetRecord(ctx, contract, "6")
		require.NoError(t, err)
		assert.Nil(t, cleared.Listing())
	})
}

// =============================================================================
// Test: GetRecord
// =============================================================================

func testGetRecord(t *testing.T, store Store) {
	ctx := context.Background()
	contract := "0xbbb1111111111111111111111111111111111111"

	t.Run("missing record returns nil without error", func(t *testing.T) {
		got, err := store.GetRecord(ctx, contract, "999")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("lookup normalizes the contract address", func(t *testing.T) {
		record := buildTestRecord(contract, "1")
		require.NoError(t, store.UpsertRecord(ctx, record, -1))

		got, err := store.GetRecord(ctx, "0xBBB1111111111111111111111111111111111111", "1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, contract, got.ContractAddress)
	})
}

// =============================================================================
// Test: QueryByCollection
// =============================================================================

func testQueryByCollection(t *testing.T, store Store) {
	ctx := context.Background()
	contract := "0xccc1111111111111111111111111111111111111"

	minted := buildTestRecord(contract, "1")
	require.NoError(t, store.UpsertRecord(ctx, minted, -1))

	pending := buildTestRecord(contract, "2")
	pending.MintStatus = domain.MintStatusPending
	pending.Owner = nil
	require.NoError(t, store.UpsertRecord(ctx, pending, -1))

	burned := buildTestRecord(contract, "3")
	burned.Burned = true
	burned.Owner = nil
	require.NoError(t, store.UpsertRecord(ctx, burned, -1))

	listed := buildTestRecord(contract, "4")
	listed.SetListing(buildTestListing("10"))
	require.NoError(t, store.UpsertRecord(ctx, listed, -1))

	t.Run("excludes burned records by default", func(t *testing.T) {
		records, err := store.QueryByCollection(ctx, contract, RecordFilter{}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("includes burned records when requested", func(t *testing.T) {
		records, err := store.QueryByCollection(ctx, contract, RecordFilter{IncludeBurned: true}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, records, 4)
	})

	t.Run("filters by mint status", func(t *testing.T) {
		records, err := store.QueryByCollection(ctx, contract, RecordFilter{MintStatus: string(domain.MintStatusPending)}, 10, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "2", records[0].TokenID)
	})

	t.Run("filters by listing status", func(t *testing.T) {
		records, err := store.QueryByCollection(ctx, contract, RecordFilter{ListingStatus: string(domain.ListingStatusActive)}, 10, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "4", records[0].TokenID)
	})

	t.Run("paginates", func(t *testing.T) {
		records, err := store.QueryByCollection(ctx, contract, RecordFilter{}, 2, 0)
		require.NoError(t, err)
		assert.Len(t, records, 2)

		records, err = store.QueryByCollection(ctx, contract, RecordFilter{}, 2, 2)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

// =============================================================================
// Test: ListActive
// =============================================================================

func testListActive(t *testing.T, store Store) {
	ctx := context.Background()
	contractA := "0xddd1111111111111111111111111111111111111"
	contractB := "0xddd2222222222222222222222222222222222222"

	require.NoError(t, store.RegisterCollection(ctx, &schema.Collection{
		ContractAddress: contractA, Name: "Alpha", Category: "generative", Enabled: true,
	}))
	require.NoError(t, store.RegisterCollection(ctx, &schema.Collection{
		ContractAddress: contractB, Name: "Beta", Category: "photography", Enabled: true,
	}))

	listedA := buildTestRecord(contractA, "1")
	listedA.SetListing(buildTestListing("1"))
	require.NoError(t, store.UpsertRecord(ctx, listedA, -1))

	listedB := buildTestRecord(contractB, "1")
	listedB.SetListing(buildTestListing("2"))
	require.NoError(t, store.UpsertRecord(ctx, listedB, -1))

	soldB := buildTestRecord(contractB, "2")
	sold := buildTestListing("3")
	sold.Status = domain.ListingStatusSold
	soldB.SetListing(sold)
	require.NoError(t, store.UpsertRecord(ctx, soldB, -1))

	unlisted := buildTestRecord(contractA, "2")
	require.NoError(t, store.UpsertRecord(ctx, unlisted, -1))

	t.Run("returns only actively listed records with total", func(t *testing.T) {
		records, total, err := store.ListActive(ctx, nil, nil, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, records, 2)
		for _, r := range records {
			assert.True(t, r.HasActiveListing())
		}
	})

	t.Run("filters by contract", func(t *testing.T) {
		records, total, err := store.ListActive(ctx, &contractA, nil, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, records, 1)
		assert.Equal(t, contractA, records[0].ContractAddress)
	})

	t.Run("filters by collection category", func(t *testing.T) {
		category := "photography"
		records, total, err := store.ListActive(ctx, nil, &category, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, records, 1)
		assert.Equal(t, contractB, records[0].ContractAddress)
	})
}

// =============================================================================
// Test: Jobs
// =============================================================================

func testJobs(t *testing.T, store Store) {
	ctx := context.Background()
	contract := "0xeee1111111111111111111111111111111111111"

	t.Run("create, finish and get round-trip", func(t *testing.T) {
		job := &schema.ReconciliationJob{
			ID:              "01JD000000000000000000TEST",
			ContractAddress: contract,
			TokenIDs:        []string{"1", "2"},
			Reason:          domain.ReasonManual,
			StartedAt:       time.Now().UTC(),
		}
		require.NoError(t, store.CreateJob(ctx, job))

		finishedAt := time.Now().UTC()
		job.Outcome = domain.OutcomePartialFailure
		job.CorrectionsApplied = 1
		job.TokensChecked = 2
		job.TokensFailed = 1
		job.FinishedAt = &finishedAt
		require.NoError(t, store.FinishJob(ctx, job))

		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.OutcomePartialFailure, got.Outcome)
		assert.Equal(t, 1, got.CorrectionsApplied)
		assert.Equal(t, 2, got.TokensChecked)
		assert.Equal(t, []string{"1", "2"}, got.TokenIDs)
		assert.NotNil(t, got.FinishedAt)
	})

	t.Run("missing job returns nil without error", func(t *testing.T) {
		got, err := store.GetJob(ctx, "01JD00000000000000000MISSING")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

// =============================================================================
// Test: Collections
// =============================================================================

func testCollections(t *testing.T, store Store) {
	ctx := context.Background()
	contract := "0xfff1111111111111111111111111111111111111"

	t.Run("register is idempotent and updates fields", func(t *testing.T) {
		require.NoError(t, store.RegisterCollection(ctx, &schema.Collection{
			ContractAddress: contract, Name: "First", Category: "art", Enabled: true,
		}))
		require.NoError(t, store.RegisterCollection(ctx, &schema.Collection{
			ContractAddress: contract, Name: "Renamed", Category: "art", Enabled: false,
		}))

		collections, err := store.ListCollections(ctx, false)
		require.NoError(t, err)
		require.Len(t, collections, 1)
		assert.Equal(t, "Renamed", collections[0].Name)
		assert.False(t, collections[0].Enabled)
	})

	t.Run("enabled-only listing skips disabled collections", func(t *testing.T) {
		enabled := "0xfff2222222222222222222222222222222222222"
		require.NoError(t, store.RegisterCollection(ctx, &schema.Collection{
			ContractAddress: enabled, Name: "Live", Enabled: true,
		}))

		collections, err := store.ListCollections(ctx, true)
		require.NoError(t, err)
		require.Len(t, collections, 1)
		assert.Equal(t, enabled, collections[0].ContractAddress)
	})
}

// RunStoreTests runs the store suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"UpsertRecord", testUpsertRecord},
		{"GetRecord", testGetRecord},
		{"QueryByCollection", testQueryByCollection},
		{"ListActive", testListActive},
		{"Jobs", testJobs},
		{"Collections", testCollections},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

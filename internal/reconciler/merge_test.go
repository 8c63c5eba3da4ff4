package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

var (
	mergeNow        = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mergeStaleness  = 15 * time.Minute
	mergeContract   = "0x1111111111111111111111111111111111111111"
	mergeOwnerAlice = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	mergeOwnerBob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func mintedRecord(tokenID string) *schema.NFTRecord {
	owner := mergeOwnerAlice
	return &schema.NFTRecord{
		ContractAddress: mergeContract,
		TokenID:         tokenID,
		Owner:           &owner,
		MetadataURI:     "ipfs://metadata/" + tokenID,
		MintStatus:      domain.MintStatusMinted,
		Name:            "Composition #" + tokenID,
		ImageURL:        "https://cdn.example.com/" + tokenID + ".png",
		SyncVersion:     3,
		LastSyncedAt:    mergeNow.Add(-time.Hour),
	}
}

func mintedSnapshot(tokenID string) *domain.TokenSnapshot {
	owner := mergeOwnerAlice
	return &domain.TokenSnapshot{
		ContractAddress: mergeContract,
		TokenID:         tokenID,
		Owner:           &owner,
		TokenURI:        "ipfs://metadata/" + tokenID,
	}
}

func activeChainListing(tokenID string) *domain.ListingSnapshot {
	return &domain.ListingSnapshot{
		ListingID: "42",
		TokenID:   tokenID,
		Kind:      domain.ListingKindDirect,
		PriceWei:  "1000000000000000000",
		Seller:    mergeOwnerAlice,
		Currency:  domain.ETHEREUM_ZERO_ADDRESS,
		Status:    domain.ListingStatusActive,
	}
}

func TestMerge_NewTokenFirstObservation(t *testing.T) {
	snapshot := mintedSnapshot("1")

	desired, changed := merge(nil, snapshot, nil, mergeNow, mergeStaleness)

	require.NotNil(t, desired)
	assert.ElementsMatch(t, []string{fieldOwner, fieldMintStatus, fieldMetadataURI}, changed)
	assert.Equal(t, mergeContract, desired.ContractAddress)
	assert.Equal(t, "1", desired.TokenID)
	require.NotNil(t, desired.Owner)
	assert.Equal(t, mergeOwnerAlice, *desired.Owner)
	assert.Equal(t, domain.MintStatusMinted, desired.MintStatus)
	assert.Equal(t, "ipfs://metadata/1", desired.MetadataURI)
	assert.False(t, desired.Burned)
	assert.Nil(t, desired.Listing())
	assert.Equal(t, mergeNow, desired.LastSyncedAt)
}

func TestMerge_NoChangeMeansNoWrite(t *testing.T) {
	mirror := mintedRecord("1")
	snapshot := mintedSnapshot("1")

	desired, changed := merge(mirror, snapshot, nil, mergeNow, mergeStaleness)

	assert.Nil(t, desired)
	assert.Empty(t, changed)
}

func TestMerge_ChainWinsOwnership(t *testing.T) {
	mirror := mintedRecord("1")
	snapshot := mintedSnapshot("1")
	snapshot.Owner = &mergeOwnerBob

	desired, changed := merge(mirror, snapshot, nil, mergeNow, mergeStaleness)

	require.NotNil(t, desired)
	assert.Equal(t, []string{fieldOwner}, changed)
	require.NotNil(t, desired.Owner)
	assert.Equal(t, mergeOwnerBob, *desired.Owner)
	// Off-chain display fields are never touched by reconciliation
	assert.Equal(t, mirror.Name, desired.Name)
	assert.Equal(t, mirror.ImageURL, desired.ImageURL)
}

func TestMerge_BurnClearsOwner(t *testing.T) {
	mirror := mintedRecord("1")
	snapshot := mintedSnapshot("1")
	snapshot.Owner = nil
	snapshot.Burned = true

	desired, changed := merge(mirror, snapshot, nil, mergeNow, mergeStaleness)

	require.NotNil(t, desired)
	assert.ElementsMatch(t, []string{fieldBurned, fieldOwner}, changed)
	assert.True(t, desired.Burned)
	assert.Nil(t, desired.Owner)
}

func TestMerge_MetadataURIFollowsChain(t *testing.T) {
	mirror := mintedRecord("1")
	snapshot := mintedSnapshot("1")
	snapshot.TokenURI = "ipfs://metadata/1-v2"

	desired, changed := merge(mirror, snapshot, nil, mergeNow, mergeStaleness)

	require.NotNil(t, desired)
	assert.Equal(t, []string{fieldMetadataURI}, changed)
	assert.Equal(t, "ipfs://metadata/1-v2", desired.MetadataURI)
}

func TestMerge_EmptyTokenURIKeepsMirrorValue(t *testing.T) {
	mirror := mintedRecord("1")
	snapshot := mintedSnapshot("1")
	snapshot.TokenURI = ""

	desired, changed := merge(mirror, snapshot, nil, mergeNow, mergeStaleness)

	assert.Nil(t, desired)
	assert.Empty(t, changed)
}

func TestMerge_PendingMint(t *testing.T) {
	t.Run("no chain token within staleness window stays pending", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.Owner = nil
		mirror.MintStatus = domain.MintStatusPending
		mirror.LastSyncedAt = mergeNow.Add(-5 * time.Minute)

		desired, changed := merge(mirror, nil, nil, mergeNow, mergeStaleness)

		assert.Nil(t, desired)
		assert.Empty(t, changed)
	})

	t.Run("no chain token past staleness window fails the mint", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.Owner = nil
		mirror.MintStatus = domain.MintStatusPending
		mirror.LastSyncedAt = mergeNow.Add(-16 * time.Minute)

		desired, changed := merge(mirror, nil, nil, mergeNow, mergeStaleness)

		require.NotNil(t, desired)
		assert.Equal(t, []string{fieldMintStatus}, changed)
		assert.Equal(t, domain.MintStatusFailed, desired.MintStatus)
	})

	t.Run("chain token confirms the mint", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.MintStatus = domain.MintStatusPending

		desired, changed := merge(mirror, mintedSnapshot("1"), nil, mergeNow, mergeStaleness)

		require.NotNil(t, desired)
		assert.Equal(t, []string{fieldMintStatus}, changed)
		assert.Equal(t, domain.MintStatusMinted, desired.MintStatus)
	})

	t.Run("no chain token and no mirror record is a no-op", func(t *testing.T) {
		desired, changed := merge(nil, nil, nil, mergeNow, mergeStaleness)

		assert.Nil(t, desired)
		assert.Empty(t, changed)
	})

	t.Run("no chain token leaves a failed record alone", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.Owner = nil
		mirror.MintStatus = domain.MintStatusFailed
		mirror.LastSyncedAt = mergeNow.Add(-24 * time.Hour)

		desired, changed := merge(mirror, nil, nil, mergeNow, mergeStaleness)

		assert.Nil(t, desired)
		assert.Empty(t, changed)
	})
}

func TestMerge_Listings(t *testing.T) {
	t.Run("chain listing adopted onto mirror", func(t *testing.T) {
		mirror := mintedRecord("1")
		chainListing := activeChainListing("1")

		desired, changed := merge(mirror, mintedSnapshot("1"), chainListing, mergeNow, mergeStaleness)

		require.NotNil(t, desired)
		assert.Equal(t, []string{fieldListing}, changed)
		got := desired.Listing()
		require.NotNil(t, got)
		assert.Equal(t, "42", got.ListingID)
		assert.Equal(t, domain.ListingStatusActive, got.Status)
	})

	t.Run("chain terminal state overrides mirror active listing", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.SetListing(&schema.Listing{
			ListingID: "42",
			Kind:      domain.ListingKindDirect,
			PriceWei:  "1000000000000000000",
			Seller:    mergeOwnerAlice,
			Currency:  domain.ETHEREUM_ZERO_ADDRESS,
			Status:    domain.ListingStatusActive,
		})
		chainListing := activeChainListing("1")
		chainListing.Status = domain.ListingStatusCancelled

		desired, changed := merge(mirror, mintedSnapshot("1"), chainListing, mergeNow, mergeStaleness)

		require.NotNil(t, desired)
		assert.Equal(t, []string{fieldListing}, changed)
		got := desired.Listing()
		require.NotNil(t, got)
		assert.Equal(t, domain.ListingStatusCancelled, got.Status)
	})

	t.Run("phantom active mirror listing is cleared", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.SetListing(&schema.Listing{
			ListingID: "99",
			Kind:      domain.ListingKindDirect,
			PriceWei:  "2000000000000000000",
			Seller:    mergeOwnerAlice,
			Currency:  domain.ETHEREUM_ZERO_ADDRESS,
			Status:    domain.ListingStatusActive,
		})

		desired, changed := merge(mirror, mintedSnapshot("1"), nil, mergeNow, mergeStaleness)

		require.NotNil(t, desired)
		assert.Equal(t, []string{fieldListing}, changed)
		assert.Nil(t, desired.Listing())
	})

	t.Run("terminal mirror listing kept when chain shows none", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.SetListing(&schema.Listing{
			ListingID: "99",
			Kind:      domain.ListingKindAuction,
			PriceWei:  "2000000000000000000",
			Seller:    mergeOwnerAlice,
			Currency:  domain.ETHEREUM_ZERO_ADDRESS,
			Status:    domain.ListingStatusSold,
		})

		desired, changed := merge(mirror, mintedSnapshot("1"), nil, mergeNow, mergeStaleness)

		assert.Nil(t, desired)
		assert.Empty(t, changed)
	})

	t.Run("identical chain listing is a no-op", func(t *testing.T) {
		mirror := mintedRecord("1")
		mirror.SetListing(&schema.Listing{
			ListingID: "42",
			Kind:      domain.ListingKindDirect,
			PriceWei:  "1000000000000000000",
			Seller:    mergeOwnerAlice,
			Currency:  domain.ETHEREUM_ZERO_ADDRESS,
			Status:    domain.ListingStatusActive,
		})

		desired, changed := merge(mirror, mintedSnapshot("1"), activeChainListing("1"), mergeNow, mergeStaleness)

		assert.Nil(t, desired)
		assert.Empty(t, changed)
	})
}

func TestMerge_DoesNotMutateMirror(t *testing.T) {
	mirror := mintedRecord("1")
	snapshot := mintedSnapshot("1")
	snapshot.Owner = &mergeOwnerBob

	_, changed := merge(mirror, snapshot, nil, mergeNow, mergeStaleness)

	require.NotEmpty(t, changed)
	require.NotNil(t, mirror.Owner)
	assert.Equal(t, mergeOwnerAlice, *mirror.Owner)
	assert.Equal(t, int64(3), mirror.SyncVersion)
}

func TestIndexListings(t *testing.T) {
	t.Run("prefers active listing over terminal", func(t *testing.T) {
		listings := []domain.ListingSnapshot{
			{ListingID: "7", TokenID: "1", Status: domain.ListingStatusCancelled},
			{ListingID: "3", TokenID: "1", Status: domain.ListingStatusActive},
		}

		byToken := indexListings(listings)

		require.Contains(t, byToken, "1")
		assert.Equal(t, "3", byToken["1"].ListingID)
	})

	t.Run("prefers highest listing id among terminal listings", func(t *testing.T) {
		listings := []domain.ListingSnapshot{
			{ListingID: "9", TokenID: "1", Status: domain.ListingStatusSold},
			{ListingID: "10", TokenID: "1", Status: domain.ListingStatusCancelled},
			{ListingID: "2", TokenID: "1", Status: domain.ListingStatusExpired},
		}

		byToken := indexListings(listings)

		require.Contains(t, byToken, "1")
		assert.Equal(t, "10", byToken["1"].ListingID)
	})

	t.Run("keeps tokens independent", func(t *testing.T) {
		listings := []domain.ListingSnapshot{
			{ListingID: "1", TokenID: "1", Status: domain.ListingStatusActive},
			{ListingID: "2", TokenID: "2", Status: domain.ListingStatusSold},
		}

		byToken := indexListings(listings)

		assert.Len(t, byToken, 2)
		assert.Equal(t, "1", byToken["1"].ListingID)
		assert.Equal(t, "2", byToken["2"].ListingID)
	})
}

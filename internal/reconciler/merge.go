package reconciler

import (
	"time"

	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

// Changed-field names reported in correction events
const (
	fieldOwner       = "owner"
	fieldMintStatus  = "mint_status"
	fieldBurned      = "burned"
	fieldMetadataURI = "metadata_uri"
	fieldListing     = "listing"
)

// merge computes the desired mirror record for one token from the chain's
// current view. Pure function: no I/O, the only clock input is now.
//
// A nil snapshot means the contract reports the token as never minted. A nil
// chainListing means the marketplace shows no listing for the token.
//
// Precedence, highest first:
//   - never-minted + mirror pending stays pending until pendingStaleness
//     elapses, then transitions to failed
//   - chain wins for owner, burn state and metadata URI
//   - chain wins for listing state; a mirror-only active listing the chain
//     never confirmed is cleared
//   - off-chain display fields (name, image URL) are preserved untouched
//
// Returns the desired record and the fields that change. An empty change list
// means the mirror already agrees with the chain and no write is needed.
func merge(mirror *schema.NFTRecord, snapshot *domain.TokenSnapshot, chainListing *domain.ListingSnapshot, now time.Time, pendingStaleness time.Duration) (*schema.NFTRecord, []string) {
	if snapshot == nil {
		if mirror == nil || mirror.MintStatus != domain.MintStatusPending {
			// Nothing mirrored, or a non-pending record the chain has no
			// opinion on. Leave it alone.
			return nil, nil
		}
		if now.Sub(mirror.LastSyncedAt) <= pendingStaleness {
			// Chain lag; the mint may still confirm
			return nil, nil
		}
		desired := cloneRecord(mirror)
		desired.MintStatus = domain.MintStatusFailed
		desired.LastSyncedAt = now
		return desired, []string{fieldMintStatus}
	}

	base := mirror
	if base == nil {
		// Empty baseline for first observation
		base = &schema.NFTRecord{
			ContractAddress: snapshot.ContractAddress,
			TokenID:         snapshot.TokenID,
			MintStatus:      domain.MintStatusUnminted,
		}
	}

	desired := cloneRecord(base)
	desired.LastSyncedAt = now
	var changed []string

	if snapshot.Burned {
		if !base.Burned {
			desired.Burned = true
			changed = append(changed, fieldBurned)
		}
		if base.Owner != nil {
			desired.Owner = nil
			changed = append(changed, fieldOwner)
		}
	} else if !stringPtrEqual(base.Owner, snapshot.Owner) {
		desired.Owner = snapshot.Owner
		changed = append(changed, fieldOwner)
	}

	// The token exists on chain, so whatever the mirror believed about the
	// mint (unminted, pending, failed) is superseded
	if base.MintStatus != domain.MintStatusMinted {
		desired.MintStatus = domain.MintStatusMinted
		changed = append(changed, fieldMintStatus)
	}

	if snapshot.TokenURI != "" && base.MetadataURI != snapshot.TokenURI {
		desired.MetadataURI = snapshot.TokenURI
		changed = append(changed, fieldMetadataURI)
	}

	mirrorListing := base.Listing()
	switch {
	case chainListing != nil:
		want := schema.Listing{
			ListingID: chainListing.ListingID,
			Kind:      chainListing.Kind,
			PriceWei:  chainListing.PriceWei,
			Seller:    chainListing.Seller,
			Currency:  chainListing.Currency,
			Status:    chainListing.Status,
		}
		if mirrorListing == nil || *mirrorListing != want {
			desired.SetListing(&want)
			changed = append(changed, fieldListing)
		}
	case mirrorListing != nil && mirrorListing.Status == domain.ListingStatusActive:
		// The mirror shows an active listing the chain does not know about:
		// the listing was never confirmed on chain, so it is cleared.
		// Terminal mirror listings are kept as history.
		desired.SetListing(nil)
		changed = append(changed, fieldListing)
	}

	if len(changed) == 0 {
		return nil, nil
	}
	return desired, changed
}

// cloneRecord returns a shallow copy safe to mutate before an upsert
func cloneRecord(r *schema.NFTRecord) *schema.NFTRecord {
	c := *r
	return &c
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

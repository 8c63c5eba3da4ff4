package schema

import (
	"time"

	"github.com/feral-file/ff-reconciler/internal/domain"
)

// NFTRecord represents the nft_records table - the mirror's unit of truth for
// one token. Records are never hard-deleted; burn and delist are recorded as
// state, not removal.
type NFTRecord struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ContractAddress is the lowercased hex address of the token contract
	ContractAddress string `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_nft_records_contract_token,priority:1"`
	// TokenID is the token number within the contract (string to support very large numbers)
	TokenID string `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_nft_records_contract_token,priority:2"`
	// Owner is the current owner's address (nil when burned or not yet known)
	Owner *string `gorm:"column:owner;type:text"`
	// MetadataURI is the token URI reported by the contract
	MetadataURI string `gorm:"column:metadata_uri;type:text"`
	// MintStatus tracks the token lifecycle (unminted, pending, minted, failed)
	MintStatus domain.MintStatus `gorm:"column:mint_status;not null;type:text;default:unminted"`
	// Burned indicates whether the token has been permanently destroyed
	Burned bool `gorm:"column:burned;not null;default:false"`

	// Off-chain-only display fields. The chain is not authoritative for these;
	// reconciliation preserves them.
	Name     string `gorm:"column:name;type:text"`
	ImageURL string `gorm:"column:image_url;type:text"`

	// Listing columns hold the at-most-one embedded listing. ListingID nil
	// means no listing is mirrored for this record.
	ListingID       *string               `gorm:"column:listing_id;type:text"`
	ListingKind     *domain.ListingKind   `gorm:"column:listing_kind;type:text"`
	ListingPriceWei *string               `gorm:"column:listing_price_wei;type:text"`
	ListingSeller   *string               `gorm:"column:listing_seller;type:text"`
	ListingCurrency *string               `gorm:"column:listing_currency;type:text"`
	ListingStatus   *domain.ListingStatus `gorm:"column:listing_status;type:text;index:idx_nft_records_listing_status"`

	// SyncVersion increases strictly on every write (optimistic concurrency)
	SyncVersion int64 `gorm:"column:sync_version;not null;default:0"`
	// LastSyncedAt is the time of the last reconciliation against the chain
	LastSyncedAt time.Time `gorm:"column:last_synced_at;not null;default:now()"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the NFTRecord model
func (NFTRecord) TableName() string {
	return "nft_records"
}

// Listing is the embedded marketplace listing value object
type Listing struct {
	ListingID string               `json:"listing_id"`
	Kind      domain.ListingKind   `json:"kind"`
	PriceWei  string               `json:"price_wei"`
	Seller    string               `json:"seller"`
	Currency  string               `json:"currency"`
	Status    domain.ListingStatus `json:"status"`
}

// Listing returns the embedded listing, or nil when the record has none
func (r *NFTRecord) Listing() *Listing {
	if r.ListingID == nil {
		return nil
	}
	l := Listing{ListingID: *r.ListingID}
	if r.ListingKind != nil {
		l.Kind = *r.ListingKind
	}
	if r.ListingPriceWei != nil {
		l.PriceWei = *r.ListingPriceWei
	}
	if r.ListingSeller != nil {
		l.Seller = *r.ListingSeller
	}
	if r.ListingCurrency != nil {
		l.Currency = *r.ListingCurrency
	}
	if r.ListingStatus != nil {
		l.Status = *r.ListingStatus
	}
	return &l
}

// SetListing replaces the embedded listing; nil clears it
func (r *NFTRecord) SetListing(l *Listing) {
	if l == nil {
		r.ListingID = nil
		r.ListingKind = nil
		r.ListingPriceWei = nil
		r.ListingSeller = nil
		r.ListingCurrency = nil
		r.ListingStatus = nil
		return
	}
	r.ListingID = &l.ListingID
	r.ListingKind = &l.Kind
	r.ListingPriceWei = &l.PriceWei
	r.ListingSeller = &l.Seller
	r.ListingCurrency = &l.Currency
	r.ListingStatus = &l.Status
}

// HasActiveListing reports whether the record carries a listing in active status
func (r *NFTRecord) HasActiveListing() bool {
	return r.ListingID != nil && r.ListingStatus != nil && *r.ListingStatus == domain.ListingStatusActive
}

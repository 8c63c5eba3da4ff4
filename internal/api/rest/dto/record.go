package dto

import (
	"time"

	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

// Listing is the wire shape of an embedded marketplace listing
type Listing struct {
	ListingID string `json:"listing_id"`
	Kind      string `json:"kind"`
	PriceWei  string `json:"price_wei"`
	Seller    string `json:"seller"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

// NFTRecord is the wire shape of a mirrored token record
type NFTRecord struct {
	ContractAddress string    `json:"contract_address"`
	TokenID         string    `json:"token_id"`
	Owner           *string   `json:"owner"`
	MetadataURI     string    `json:"metadata_uri,omitempty"`
	MintStatus      string    `json:"mint_status"`
	Burned          bool      `json:"burned"`
	Name            string    `json:"name,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	Listing         *Listing  `json:"listing"`
	SyncVersion     int64     `json:"sync_version"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
	// Stale is set when verification could not run and the record is served
	// from the mirror past its freshness threshold
	Stale bool `json:"stale,omitempty"`
}

// FromRecord maps a schema record to its wire shape
func FromRecord(r *schema.NFTRecord) *NFTRecord {
	out := &NFTRecord{
		ContractAddress: r.ContractAddress,
		TokenID:         r.TokenID,
		Owner:           r.Owner,
		MetadataURI:     r.MetadataURI,
		MintStatus:      string(r.MintStatus),
		Burned:          r.Burned,
		Name:            r.Name,
		ImageURL:        r.ImageURL,
		SyncVersion:     r.SyncVersion,
		LastSyncedAt:    r.LastSyncedAt,
	}
	if l := r.Listing(); l != nil {
		out.Listing = &Listing{
			ListingID: l.ListingID,
			Kind:      string(l.Kind),
			PriceWei:  l.PriceWei,
			Seller:    l.Seller,
			Currency:  l.Currency,
			Status:    string(l.Status),
		}
	}
	return out
}

// FromRecords maps a page of schema records to their wire shape
func FromRecords(records []*schema.NFTRecord) []*NFTRecord {
	out := make([]*NFTRecord, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}

// ReconciliationJob is the wire shape of a reconciliation run
type ReconciliationJob struct {
	ID                 string     `json:"id"`
	ContractAddress    string     `json:"contract_address"`
	TokenIDs           []string   `json:"token_ids,omitempty"`
	Reason             string     `json:"reason"`
	Outcome            string     `json:"outcome,omitempty"`
	CorrectionsApplied int        `json:"corrections_applied"`
	TokensChecked      int        `json:"tokens_checked"`
	TokensFailed       int        `json:"tokens_failed"`
	Error              *string    `json:"error,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

// FromJob maps a schema job to its wire shape
func FromJob(j *schema.ReconciliationJob) *ReconciliationJob {
	return &ReconciliationJob{
		ID:                 j.ID,
		ContractAddress:    j.ContractAddress,
		TokenIDs:           j.TokenIDs,
		Reason:             string(j.Reason),
		Outcome:            string(j.Outcome),
		CorrectionsApplied: j.CorrectionsApplied,
		TokensChecked:      j.TokensChecked,
		TokensFailed:       j.TokensFailed,
		Error:              j.Error,
		StartedAt:          j.StartedAt,
		FinishedAt:         j.FinishedAt,
	}
}

// Collection is the wire shape of a registered collection
type Collection struct {
	ContractAddress string `json:"contract_address"`
	Name            string `json:"name,omitempty"`
	Category        string `json:"category,omitempty"`
	Enabled         bool   `json:"enabled"`
}

// FromCollection maps a schema collection to its wire shape
func FromCollection(c *schema.Collection) *Collection {
	return &Collection{
		ContractAddress: c.ContractAddress,
		Name:            c.Name,
		Category:        c.Category,
		Enabled:         c.Enabled,
	}
}

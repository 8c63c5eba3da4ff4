package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet || chain == ChainEthereumSepolia
}

// MintStatus represents the lifecycle state of a mirrored token
type MintStatus string

const (
	MintStatusUnminted MintStatus = "unminted"
	MintStatusPending  MintStatus = "pending"
	MintStatusMinted   MintStatus = "minted"
	MintStatusFailed   MintStatus = "failed"
)

// ListingKind represents the sale mechanism of a marketplace listing
type ListingKind string

const (
	ListingKindDirect  ListingKind = "direct"
	ListingKindAuction ListingKind = "auction"
)

// ListingStatus represents the state of a marketplace listing
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusCancelled ListingStatus = "cancelled"
	ListingStatusExpired   ListingStatus = "expired"
)

// Terminal reports whether the listing status is a terminal state
func (s ListingStatus) Terminal() bool {
	return s == ListingStatusSold || s == ListingStatusCancelled || s == ListingStatusExpired
}

// TriggerReason identifies what started a reconciliation run
type TriggerReason string

const (
	ReasonSweep   TriggerReason = "sweep"
	ReasonWebhook TriggerReason = "webhook"
	ReasonManual  TriggerReason = "manual"
	ReasonVerify  TriggerReason = "verify"
)

// JobOutcome represents the aggregate result of a reconciliation run
type JobOutcome string

const (
	OutcomeSuccess        JobOutcome = "success"
	OutcomePartialFailure JobOutcome = "partial_failure"
	OutcomeFailed         JobOutcome = "failed"
)

// TokenRef identifies a single token on a contract
type TokenRef struct {
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`
}

// String returns the canonical "contract:tokenID" form
func (r TokenRef) String() string {
	return fmt.Sprintf("%s:%s", r.ContractAddress, r.TokenID)
}

// Valid checks the contract address and token id format
func (r TokenRef) Valid() bool {
	return common.IsHexAddress(r.ContractAddress) && ValidTokenID(r.TokenID)
}

// Scope is the set of tokens a reconciliation run targets.
// An empty TokenIDs slice means the whole collection.
type Scope struct {
	ContractAddress string   `json:"contract_address"`
	TokenIDs        []string `json:"token_ids,omitempty"`
}

// Valid checks the scope's contract address and token id formats
func (s Scope) Valid() bool {
	if !common.IsHexAddress(s.ContractAddress) {
		return false
	}
	for _, id := range s.TokenIDs {
		if !ValidTokenID(id) {
			return false
		}
	}
	return true
}

// ListingSnapshot is the chain's current view of one marketplace listing
type ListingSnapshot struct {
	ListingID string        `json:"listing_id"`
	TokenID   string        `json:"token_id"`
	Kind      ListingKind   `json:"kind"`
	PriceWei  string        `json:"price_wei"`
	Seller    string        `json:"seller"`
	Currency  string        `json:"currency"`
	Status    ListingStatus `json:"status"`
}

// TokenSnapshot is the chain's current view of one token.
// It is transient: produced by the chain reader, consumed by the reconciler,
// never persisted.
type TokenSnapshot struct {
	ContractAddress string           `json:"contract_address"`
	TokenID         string           `json:"token_id"`
	Owner           *string          `json:"owner"`
	TokenURI        string           `json:"token_uri"`
	Burned          bool             `json:"burned"`
	Listing         *ListingSnapshot `json:"listing,omitempty"`
}

var tokenIDPattern = regexp.MustCompile(`^[0-9]+$`)

// ValidTokenID checks if a token id is a non-negative decimal string
func ValidTokenID(tokenID string) bool {
	return tokenIDPattern.MatchString(tokenID)
}

// NormalizeAddress lowercases a hex address into the mirror's canonical form
func NormalizeAddress(address string) string {
	return strings.ToLower(common.HexToAddress(address).Hex())
}

// NormalizeAddresses normalizes a list of addresses in place
func NormalizeAddresses(addresses []string) []string {
	for i, address := range addresses {
		addresses[i] = NormalizeAddress(address)
	}
	return addresses
}

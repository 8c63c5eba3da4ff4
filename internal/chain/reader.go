package chain

import (
	"context"

	"github.com/feral-file/ff-reconciler/internal/domain"
)

// Reader is the read-only boundary to on-chain token and marketplace state.
// Implementations have no side effects and never persist; snapshots are
// consumed only by the reconciler.
//
//go:generate mockgen -source=reader.go -destination=../mocks/chain_reader.go -package=mocks -mock_names=Reader=MockChainReader
type Reader interface {
	// FetchToken reads the current owner and token URI for one token.
	// Returns domain.ErrTokenNotOnChain when the contract reports the token
	// as never minted, domain.ErrChainUnavailable when the boundary is
	// unreachable after retries.
	FetchToken(ctx context.Context, contractAddress, tokenID string) (*domain.TokenSnapshot, error)

	// FetchListings reads the current marketplace listing state for a
	// contract's tokens. fromBlock bounds the listing discovery scan and is
	// floored at the configured marketplace deployment block, so 0 means
	// "from deployment".
	FetchListings(ctx context.Context, contractAddress string, fromBlock uint64) ([]domain.ListingSnapshot, error)

	// Close closes the underlying connection
	Close()
}

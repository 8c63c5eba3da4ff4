package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-reconciler/internal/adapter"
	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/logger"
)

var (
	// ListingUpdated(uint256 indexed listingId, address indexed assetContract)
	// Emitted by the marketplace on listing creation and every status change;
	// used only to discover listing ids, state is read via getListing
	listingUpdatedEventSignature = crypto.Keccak256Hash([]byte("ListingUpdated(uint256,address)"))
)

const (
	erc721ABI = `[
		{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
	]`

	marketplaceABI = `[
		{"constant":true,"inputs":[{"name":"listingId","type":"uint256"}],"name":"getListing","outputs":[{"name":"tokenId","type":"uint256"},{"name":"assetContract","type":"address"},{"name":"seller","type":"address"},{"name":"currency","type":"address"},{"name":"pricePerToken","type":"uint256"},{"name":"listingType","type":"uint8"},{"name":"status","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"}
	]`

	// Listing status codes as the marketplace contract reports them
	listingStateActive    = 1
	listingStateSold      = 2
	listingStateCancelled = 3
	listingStateExpired   = 4

	listingTypeAuction = 1
)

// Config holds chain reader configuration
type Config struct {
	// MarketplaceAddress is the marketplace contract whose listings are read
	MarketplaceAddress string
	// StartBlock is the block the marketplace contract was deployed at.
	// Listing discovery never scans below it.
	StartBlock uint64
	// RetryInitialInterval is the backoff base for transient RPC errors
	RetryInitialInterval time.Duration
	// RetryMaxAttempts bounds retries per RPC call (attempts, not re-tries)
	RetryMaxAttempts uint64
	// LogChunkSize is the initial block span per FilterLogs call
	LogChunkSize uint64
}

type ethereumReader struct {
	client      adapter.EthClient
	config      Config
	erc721      abi.ABI
	marketplace abi.ABI
}

// NewEthereumReader creates a Reader backed by an Ethereum RPC client
func NewEthereumReader(client adapter.EthClient, config Config) (Reader, error) {
	if config.RetryInitialInterval == 0 {
		config.RetryInitialInterval = 500 * time.Millisecond
	}
	if config.RetryMaxAttempts == 0 {
		config.RetryMaxAttempts = 5
	}
	if config.LogChunkSize == 0 {
		config.LogChunkSize = 100000
	}

	erc721, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC721 ABI: %w", err)
	}
	marketplace, err := abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse marketplace ABI: %w", err)
	}

	return &ethereumReader{
		client:      client,
		config:      config,
		erc721:      erc721,
		marketplace: marketplace,
	}, nil
}

// isRevertError checks if the error is a contract revert rather than an RPC failure
func isRevertError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "execution reverted") ||
		strings.Contains(errStr, "invalid opcode") ||
		strings.Contains(errStr, "out of gas")
}

// isTooManyResultsError checks if the error is a provider result-size limit
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum")
}

// callContract performs an eth_call with exponential backoff on transient
// errors. Reverts are permanent and returned immediately; exhausted retries
// escalate to domain.ErrChainUnavailable.
func (r *ethereumReader) callContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var result []byte

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.RetryInitialInterval
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	operation := func() error {
		var err error
		result, err = r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil && isRevertError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(b, r.config.RetryMaxAttempts-1), ctx))
	if err != nil {
		if isRevertError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrChainUnavailable, err.Error())
	}

	return result, nil
}

// FetchToken reads the current owner and token URI for one token
func (r *ethereumReader) FetchToken(ctx context.Context, contractAddress, tokenID string) (*domain.TokenSnapshot, error) {
	tokenNumber, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token id: %s", tokenID)
	}
	contractAddr := common.HexToAddress(contractAddress)

	ownerData, err := r.erc721.Pack("ownerOf", tokenNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to pack ownerOf: %w", err)
	}

	ownerResult, err := r.callContract(ctx, contractAddr, ownerData)
	if err != nil {
		// ERC721 ownerOf reverts for tokens that were never minted
		if isRevertError(err) {
			return nil, domain.ErrTokenNotOnChain
		}
		return nil, err
	}

	var owner common.Address
	if err := r.erc721.UnpackIntoInterface(&owner, "ownerOf", ownerResult); err != nil {
		return nil, fmt.Errorf("failed to unpack ownerOf result: %w", err)
	}

	snapshot := &domain.TokenSnapshot{
		ContractAddress: domain.NormalizeAddress(contractAddress),
		TokenID:         tokenID,
	}
	if owner.Hex() == domain.ETHEREUM_ZERO_ADDRESS {
		snapshot.Burned = true
	} else {
		ownerStr := domain.NormalizeAddress(owner.Hex())
		snapshot.Owner = &ownerStr
	}

	uriData, err := r.erc721.Pack("tokenURI", tokenNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to pack tokenURI: %w", err)
	}

	uriResult, err := r.callContract(ctx, contractAddr, uriData)
	if err != nil {
		// Some contracts revert tokenURI for burned tokens; the owner read
		// already succeeded, so keep the snapshot without a URI
		if isRevertError(err) {
			return snapshot, nil
		}
		return nil, err
	}

	var uri string
	if err := r.erc721.UnpackIntoInterface(&uri, "tokenURI", uriResult); err != nil {
		return nil, fmt.Errorf("failed to unpack tokenURI result: %w", err)
	}
	snapshot.TokenURI = uri

	return snapshot, nil
}

// FetchListings reads the current marketplace listing state for a contract.
// Listing ids are discovered from ListingUpdated logs, then each listing is
// state-read via getListing so results are current at call time.
func (r *ethereumReader) FetchListings(ctx context.Context, contractAddress string, fromBlock uint64) ([]domain.ListingSnapshot, error) {
	listingIDs, err := r.discoverListingIDs(ctx, contractAddress, fromBlock)
	if err != nil {
		return nil, err
	}

	marketplaceAddr := common.HexToAddress(r.config.MarketplaceAddress)
	snapshots := make([]domain.ListingSnapshot, 0, len(listingIDs))
	for _, listingID := range listingIDs {
		snapshot, err := r.fetchListing(ctx, marketplaceAddr, listingID)
		if err != nil {
			if isRevertError(err) {
				// Listing id from a stale log no longer resolvable; skip
				logger.WarnCtx(ctx, "Skipping unresolvable listing",
					zap.String("listing_id", listingID.String()),
					zap.Error(err))
				continue
			}
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}

	return snapshots, nil
}

// fetchListing state-reads one listing from the marketplace contract
func (r *ethereumReader) fetchListing(ctx context.Context, marketplaceAddr common.Address, listingID *big.Int) (*domain.ListingSnapshot, error) {
	data, err := r.marketplace.Pack("getListing", listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getListing: %w", err)
	}

	result, err := r.callContract(ctx, marketplaceAddr, data)
	if err != nil {
		return nil, err
	}

	var out struct {
		TokenId       *big.Int
		AssetContract common.Address
		Seller        common.Address
		Currency      common.Address
		PricePerToken *big.Int
		ListingType   uint8
		Status        uint8
	}
	if err := r.marketplace.UnpackIntoInterface(&out, "getListing", result); err != nil {
		return nil, fmt.Errorf("failed to unpack getListing result: %w", err)
	}

	kind := domain.ListingKindDirect
	if out.ListingType == listingTypeAuction {
		kind = domain.ListingKindAuction
	}

	var status domain.ListingStatus
	switch int(out.Status) {
	case listingStateActive:
		status = domain.ListingStatusActive
	case listingStateSold:
		status = domain.ListingStatusSold
	case listingStateCancelled:
		status = domain.ListingStatusCancelled
	case listingStateExpired:
		status = domain.ListingStatusExpired
	default:
		return nil, fmt.Errorf("unknown listing status %d for listing %s", out.Status, listingID.String())
	}

	return &domain.ListingSnapshot{
		ListingID: listingID.String(),
		TokenID:   out.TokenId.String(),
		Kind:      kind,
		PriceWei:  out.PricePerToken.String(),
		Seller:    domain.NormalizeAddress(out.Seller.Hex()),
		Currency:  domain.NormalizeAddress(out.Currency.Hex()),
		Status:    status,
	}, nil
}

// discoverListingIDs enumerates ListingUpdated logs for the asset contract
func (r *ethereumReader) discoverListingIDs(ctx context.Context, contractAddress string, fromBlock uint64) ([]*big.Int, error) {
	if fromBlock < r.config.StartBlock {
		fromBlock = r.config.StartBlock
	}

	latestHeader, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get latest header: %s", domain.ErrChainUnavailable, err.Error())
	}
	toBlock := latestHeader.Number.Uint64()

	assetHash := common.BytesToHash(common.HexToAddress(contractAddress).Bytes())
	query := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(r.config.MarketplaceAddress)},
		Topics: [][]common.Hash{
			{listingUpdatedEventSignature},
			nil,         // any listing id
			{assetHash}, // this asset contract
		},
	}

	logs, err := r.filterLogsChunked(ctx, query, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	// Deduplicate: a listing emits one log per status change
	seen := make(map[string]bool)
	var listingIDs []*big.Int
	for _, vLog := range logs {
		if len(vLog.Topics) < 2 {
			continue
		}
		listingID := new(big.Int).SetBytes(vLog.Topics[1].Bytes())
		if seen[listingID.String()] {
			continue
		}
		seen[listingID.String()] = true
		listingIDs = append(listingIDs, listingID)
	}

	return listingIDs, nil
}

// filterLogsChunked fetches logs in block chunks, halving the chunk size when
// the provider rejects a range for returning too many results
func (r *ethereumReader) filterLogsChunked(ctx context.Context, query ethereum.FilterQuery, fromBlock, toBlock uint64) ([]types.Log, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	chunkSize := r.config.LogChunkSize
	var allLogs []types.Log
	current := fromBlock

	for current <= toBlock {
		end := current + chunkSize - 1
		if end > toBlock {
			end = toBlock
		}

		chunkQuery := query
		chunkQuery.FromBlock = new(big.Int).SetUint64(current)
		chunkQuery.ToBlock = new(big.Int).SetUint64(end)

		logs, err := r.client.FilterLogs(timeoutCtx, chunkQuery)
		if err != nil {
			if isTooManyResultsError(err) && chunkSize > 1 {
				chunkSize = chunkSize / 2
				logger.WarnCtx(ctx, "Too many results, reducing log chunk size",
					zap.Uint64("new_chunk_size", chunkSize),
					zap.Uint64("from_block", current))
				continue
			}
			return nil, fmt.Errorf("%w: failed to filter logs for range %d-%d: %s",
				domain.ErrChainUnavailable, current, end, err.Error())
		}

		allLogs = append(allLogs, logs...)
		current = end + 1
	}

	return allLogs, nil
}

// Close closes the underlying connection
func (r *ethereumReader) Close() {
	r.client.Close()
}

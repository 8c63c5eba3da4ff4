package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-reconciler/internal/api/rest/dto"
	"github.com/feral-file/ff-reconciler/internal/domain"
	"github.com/feral-file/ff-reconciler/internal/facade"
	"github.com/feral-file/ff-reconciler/internal/reconciler"
	"github.com/feral-file/ff-reconciler/internal/store"
	"github.com/feral-file/ff-reconciler/internal/store/schema"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// ListNFTs retrieves actively listed records across collections
	// GET /api/v1/nfts?category=<category>&limit=<limit>&offset=<offset>
	ListNFTs(c *gin.Context)

	// ListCollectionNFTs retrieves actively listed records for one collection
	// GET /api/v1/collections/:contract/nfts?limit=<limit>&offset=<offset>
	ListCollectionNFTs(c *gin.Context)

	// GetNFT retrieves one record, verifying it against the chain when stale
	// GET /api/v1/collections/:contract/nfts/:token_id?verify=false
	GetNFT(c *gin.Context)

	// TriggerReconcile starts a reconciliation job for a scope
	// POST /api/v1/reconcile
	TriggerReconcile(c *gin.Context)

	// GetJob retrieves a reconciliation job by its ID
	// GET /api/v1/jobs/:id
	GetJob(c *gin.Context)

	// RegisterCollection registers a contract with the sweep registry
	// POST /api/v1/collections
	RegisterCollection(c *gin.Context)

	// ListCollections retrieves the registered collections
	// GET /api/v1/collections
	ListCollections(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	facade     *facade.Facade
	reconciler *reconciler.Reconciler
	store      store.Store
}

// NewHandler creates a new REST API handler
func NewHandler(f *facade.Facade, r *reconciler.Reconciler, s store.Store) Handler {
	return &handler{
		facade:     f,
		reconciler: r,
		store:      s,
	}
}

// ListNFTs retrieves actively listed records across collections
func (h *handler) ListNFTs(c *gin.Context) {
	limit, offset, err := parsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}

	records, total, err := h.facade.ListActive(c.Request.Context(), nil, category, limit, offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list records")
		return
	}

	c.JSON(http.StatusOK, dto.ListNFTsResponse{
		Items:  dto.FromRecords(records),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// ListCollectionNFTs retrieves actively listed records for one collection
func (h *handler) ListCollectionNFTs(c *gin.Context) {
	contract := c.Param("contract")
	if !common.IsHexAddress(contract) {
		respondBadRequest(c, "Invalid contract address")
		return
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	records, total, err := h.facade.ListActive(c.Request.Context(), &contract, nil, limit, offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list records",
			zap.String("contractAddress", contract))
		return
	}

	c.JSON(http.StatusOK, dto.ListNFTsResponse{
		Items:  dto.FromRecords(records),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetNFT retrieves one record, verifying it against the chain when stale.
// verify=false skips verification and serves the mirror value as-is.
func (h *handler) GetNFT(c *gin.Context) {
	contract := c.Param("contract")
	tokenID := c.Param("token_id")
	ref := domain.TokenRef{ContractAddress: contract, TokenID: tokenID}
	if !ref.Valid() {
		respondBadRequest(c, "Invalid contract address or token id")
		return
	}

	if c.Query("verify") == "false" {
		record, err := h.facade.Get(c.Request.Context(), contract, tokenID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				respondNotFound(c, "Record not found")
				return
			}
			respondInternalError(c, err, "Failed to get record")
			return
		}
		c.JSON(http.StatusOK, dto.FromRecord(record))
		return
	}

	verified, err := h.facade.GetVerified(c.Request.Context(), contract, tokenID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			respondNotFound(c, "Record not found")
		case errors.Is(err, domain.ErrChainUnavailable):
			respondChainUnavailable(c, err, "Chain unavailable and no cached record exists")
		default:
			respondInternalError(c, err, "Failed to get record")
		}
		return
	}

	out := dto.FromRecord(verified.Record)
	out.Stale = verified.Stale
	c.JSON(http.StatusOK, out)
}

// TriggerReconcile starts a reconciliation job for a scope. The job runs in
// the background; the response carries the job row to poll via GetJob.
func (h *handler) TriggerReconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	scope := domain.Scope{ContractAddress: req.ContractAddress, TokenIDs: req.TokenIDs}
	if !scope.Valid() {
		respondBadRequest(c, "Invalid contract address or token ids")
		return
	}

	job, err := h.reconciler.StartJob(c.Request.Context(), scope, domain.ReasonManual)
	if err != nil {
		respondInternalError(c, err, "Failed to start reconciliation job")
		return
	}

	// Detach from the request context so the run outlives the response
	go h.reconciler.RunJob(context.Background(), job)

	c.JSON(http.StatusAccepted, dto.FromJob(job))
}

// GetJob retrieves a reconciliation job by its ID
func (h *handler) GetJob(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "Job ID is required")
		return
	}

	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to get job", zap.String("jobID", id))
		return
	}
	if job == nil {
		respondNotFound(c, "Job not found")
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// RegisterCollection registers a contract with the sweep registry
func (h *handler) RegisterCollection(c *gin.Context) {
	var req dto.RegisterCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if !common.IsHexAddress(req.ContractAddress) {
		respondBadRequest(c, "Invalid contract address")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	collection := &schema.Collection{
		ContractAddress: req.ContractAddress,
		Name:            req.Name,
		Category:        req.Category,
		Enabled:         enabled,
	}

	if err := h.store.RegisterCollection(c.Request.Context(), collection); err != nil {
		respondInternalError(c, err, "Failed to register collection",
			zap.String("contractAddress", req.ContractAddress))
		return
	}

	c.JSON(http.StatusCreated, dto.FromCollection(collection))
}

// ListCollections retrieves the registered collections
func (h *handler) ListCollections(c *gin.Context) {
	collections, err := h.store.ListCollections(c.Request.Context(), false)
	if err != nil {
		respondInternalError(c, err, "Failed to list collections")
		return
	}

	out := make([]*dto.Collection, 0, len(collections))
	for _, collection := range collections {
		out = append(out, dto.FromCollection(collection))
	}
	c.JSON(http.StatusOK, gin.H{"collections": out})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parsePagination reads limit/offset query parameters with defaults
func parsePagination(c *gin.Context) (int, int, error) {
	limit := defaultPageLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		limit = parsed
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = parsed
	}

	return limit, offset, nil
}

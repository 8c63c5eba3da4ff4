package dto

// ReconcileRequest triggers a manual reconciliation run
type ReconcileRequest struct {
	ContractAddress string   `json:"contract_address" binding:"required"`
	TokenIDs        []string `json:"token_ids"`
}

// RegisterCollectionRequest registers a contract with the sweep registry
type RegisterCollectionRequest struct {
	ContractAddress string `json:"contract_address" binding:"required"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Enabled         *bool  `json:"enabled"`
}

// ListNFTsResponse is a paginated page of records
type ListNFTsResponse struct {
	Items  []*NFTRecord `json:"items"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

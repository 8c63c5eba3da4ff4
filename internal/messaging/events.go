package messaging

import (
	"time"

	"github.com/feral-file/ff-reconciler/internal/domain"
)

// CorrectionEvent is published whenever reconciliation corrects a mirror record
type CorrectionEvent struct {
	// EventID is a UUID unique per event
	EventID string `json:"event_id"`
	// JobID is the ULID of the reconciliation run that applied the correction
	JobID           string    `json:"job_id"`
	ContractAddress string    `json:"contract_address"`
	TokenID         string    `json:"token_id"`
	// ChangedFields names the record fields the correction touched
	ChangedFields []string  `json:"changed_fields"`
	SyncVersion   int64     `json:"sync_version"`
	Timestamp     time.Time `json:"timestamp"`
}

// TriggerMessage delivers a (scope, reason) pair that starts a reconciliation
// run. Webhook and admin trigger sources publish these.
type TriggerMessage struct {
	Scope  domain.Scope         `json:"scope"`
	Reason domain.TriggerReason `json:"reason"`
}

package schema

import (
	"time"

	"github.com/feral-file/ff-reconciler/internal/domain"
)

// ReconciliationJob represents the reconciliation_jobs table - one row per
// reconciliation run, archived for observability
type ReconciliationJob struct {
	// ID is a ULID assigned at job creation (time-sortable)
	ID string `gorm:"column:id;primaryKey;type:text"`
	// ContractAddress is the scope's contract (lowercased hex)
	ContractAddress string `gorm:"column:contract_address;not null;type:text;index:idx_reconciliation_jobs_contract"`
	// TokenIDs restricts the scope to specific tokens; empty means the whole collection
	TokenIDs []string `gorm:"column:token_ids;serializer:json;type:jsonb"`
	// Reason records what triggered the run (sweep, webhook, manual, verify)
	Reason domain.TriggerReason `gorm:"column:reason;not null;type:text"`
	// Outcome is the aggregate result (success, partial_failure, failed)
	Outcome domain.JobOutcome `gorm:"column:outcome;type:text"`
	// CorrectionsApplied counts the mirror writes this run performed
	CorrectionsApplied int `gorm:"column:corrections_applied;not null;default:0"`
	// TokensChecked counts the tokens examined in this run
	TokensChecked int `gorm:"column:tokens_checked;not null;default:0"`
	// TokensFailed counts the tokens that could not be reconciled
	TokensFailed int `gorm:"column:tokens_failed;not null;default:0"`
	// Error holds the scope-level failure message when Outcome is failed
	Error *string `gorm:"column:error;type:text"`

	StartedAt  time.Time  `gorm:"column:started_at;not null;default:now()"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
}

// TableName specifies the table name for the ReconciliationJob model
func (ReconciliationJob) TableName() string {
	return "reconciliation_jobs"
}

// Scope returns the job's target scope
func (j *ReconciliationJob) Scope() domain.Scope {
	return domain.Scope{ContractAddress: j.ContractAddress, TokenIDs: j.TokenIDs}
}

package schema

import "time"

// Collection represents the collections table - the registry of contracts the
// sweeper reconciles. A disabled collection stays queryable but is skipped by
// scheduled sweeps.
type Collection struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ContractAddress is the lowercased hex address of the collection contract
	ContractAddress string `gorm:"column:contract_address;not null;uniqueIndex;type:text"`
	// Name is the display name, off-chain only
	Name string `gorm:"column:name;type:text"`
	// Category groups collections for marketplace views
	Category string `gorm:"column:category;type:text;index:idx_collections_category"`
	// Enabled controls whether scheduled sweeps include this collection
	Enabled bool `gorm:"column:enabled;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the Collection model
func (Collection) TableName() string {
	return "collections"
}

package models

import (
	"time"
)

// Status represents a published content item. Feed ids are status ids;
// ids are monotonic so they double as a recency score.
type Status struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	AccountID int64     `gorm:"not null;index;column:account_id"`
	Text      string    `gorm:"type:text;column:text"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	// Relationships
	Account *Account `gorm:"foreignKey:AccountID;references:ID"`
}

// TableName specifies the table name for Status
func (Status) TableName() string {
	return "statuses"
}

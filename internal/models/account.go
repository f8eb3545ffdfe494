package models

import (
	"time"
)

// Account represents a local or remote account
type Account struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Username  string    `gorm:"type:varchar(255);not null;uniqueIndex:accounts_ux1;column:username"`
	Domain    string    `gorm:"type:varchar(255);not null;default:'';uniqueIndex:accounts_ux1;column:domain"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Set when the account has announced a move to another account;
	// migrations re-point followers at the new target.
	MovedToAccountID *int64 `gorm:"column:moved_to_account_id"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

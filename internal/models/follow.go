package models

import (
	"time"
)

// Follow represents an approved follow relationship with per-link
// display preferences.
type Follow struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	AccountID       int64     `gorm:"not null;uniqueIndex:follows_ux1;column:account_id"`
	TargetAccountID int64     `gorm:"not null;uniqueIndex:follows_ux1;column:target_account_id"`
	ShowReblogs     bool      `gorm:"not null;column:show_reblogs"`
	HideFromHome    bool      `gorm:"not null;column:hide_from_home"`
	CreatedAt       time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Account       *Account `gorm:"foreignKey:AccountID;references:ID"`
	TargetAccount *Account `gorm:"foreignKey:TargetAccountID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "follows"
}

// FollowRequest is a pending follow awaiting approval by the target.
// It carries the same preference flags as Follow so approval can
// promote it without losing them.
type FollowRequest struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	AccountID       int64     `gorm:"not null;uniqueIndex:follow_requests_ux1;column:account_id"`
	TargetAccountID int64     `gorm:"not null;uniqueIndex:follow_requests_ux1;column:target_account_id"`
	ShowReblogs     bool      `gorm:"not null;column:show_reblogs"`
	HideFromHome    bool      `gorm:"not null;column:hide_from_home"`
	CreatedAt       time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for FollowRequest
func (FollowRequest) TableName() string {
	return "follow_requests"
}

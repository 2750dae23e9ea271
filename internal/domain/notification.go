package domain

import "time"

// NotificationLevel classifies a user-visible notification.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is the single user-visible message emitted for a resolved
// mutation. Views poll them to render toasts.
//
// Fields:
//   - ID: UUID primary key.
//   - UserID: the actor who issued the mutation (indexed for polling).
//   - MutationID: the ephemeral MutationRecord id, kept for log correlation.
//   - Kind: the mutation kind ("bulkApprove", ...).
//   - Level: success, warning (partial bulk failure) or error.
//   - Text: human readable message, e.g. "8 of 10 approved, 2 failed".
type Notification struct {
	ID         string            `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string            `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_notifications,priority:1"`
	MutationID string            `json:"mutation_id" gorm:"type:char(36);not null"`
	Kind       MutationKind      `json:"kind"        gorm:"type:varchar(32);not null"`
	Level      NotificationLevel `json:"level"       gorm:"type:varchar(16);not null;check:level IN ('success','warning','error')"`
	Text       string            `json:"text"        gorm:"type:text;not null"`
	CreatedAt  time.Time         `json:"created_at"  gorm:"index:idx_user_notifications,priority:2"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

package models

import "time"

// Notification kind values.
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// Notification is one in-app message for a user, written when their
// submission finishes processing or fails. Email delivery is best
// effort; this row is the record the user always sees.
type Notification struct {
	NotificationID int       `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	UserID         int       `gorm:"column:user_id;index" json:"user_id"`
	Title          string    `gorm:"column:title" json:"title"`
	Message        string    `gorm:"column:message;type:text" json:"message"`
	Type           string    `gorm:"column:type;default:info" json:"type"`
	SubmissionID   *int      `gorm:"column:submission_id" json:"submission_id,omitempty"`
	IsRead         bool      `gorm:"column:is_read;default:false;index" json:"is_read"`
	CreateAt       time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

// TableName overrides
func (Notification) TableName() string {
	return "notifications"
}

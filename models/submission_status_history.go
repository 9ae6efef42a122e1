package models

import "time"

// SubmissionStatusHistory is the audit trail of a submission's lifecycle.
// One row is appended for every status change, so operators can see when
// a submission entered processing and why it failed or was reopened.
type SubmissionStatusHistory struct {
	HistoryID    int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID int       `gorm:"column:submission_id;index" json:"submission_id"`
	FromStatus   string    `gorm:"column:from_status" json:"from_status"`
	ToStatus     string    `gorm:"column:to_status" json:"to_status"`
	// Note carries context for the change, e.g. the processing error on a
	// failed transition.
	Note     *string   `gorm:"column:note;type:text" json:"note,omitempty"`
	CreateAt time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

// TableName overrides
func (SubmissionStatusHistory) TableName() string {
	return "submission_status_history"
}

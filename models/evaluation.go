package models

import (
	"time"
)

// Evaluation decision values.
const (
	DecisionPending   = "pending"
	DecisionApproved  = "approved"
	DecisionRejected  = "rejected"
	DecisionNeedsInfo = "needs_info"
)

// Evaluation is the single binding evaluator decision for one extracted
// course. A row is created in pending state together with its course, so
// after extraction every course has exactly one evaluation at all times.
type Evaluation struct {
	EvaluationID      int    `gorm:"primaryKey;column:evaluation_id" json:"evaluation_id"`
	ExtractedCourseID int    `gorm:"column:extracted_course_id;uniqueIndex" json:"extracted_course_id"`
	Decision          string `gorm:"column:decision;default:pending;index" json:"decision"`
	EvaluatorID       *int   `gorm:"column:evaluator_id" json:"evaluator_id,omitempty"`
	// ApprovedTargetCourseID is only meaningful while Decision is approved.
	ApprovedTargetCourseID *int       `gorm:"column:approved_target_course_id" json:"approved_target_course_id,omitempty"`
	Notes                  *string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	DecidedAt              *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`
	CreateAt               time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt               time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	// Relations
	Evaluator            *User         `gorm:"foreignKey:EvaluatorID" json:"evaluator,omitempty"`
	ApprovedTargetCourse *TargetCourse `gorm:"foreignKey:ApprovedTargetCourseID" json:"approved_target_course,omitempty"`
}

// TableName overrides
func (Evaluation) TableName() string {
	return "evaluations"
}

// Decided reports whether an evaluator has acted on the course.
func (e *Evaluation) Decided() bool {
	return e.Decision != DecisionPending
}

// KnownDecision reports whether d is a value an evaluator may submit.
// Pending is the initial state only and cannot be chosen explicitly.
func KnownDecision(d string) bool {
	return d == DecisionApproved || d == DecisionRejected || d == DecisionNeedsInfo
}

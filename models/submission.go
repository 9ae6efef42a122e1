package models

import (
	"time"
)

// Submission status values. A submission moves forward through
// pending -> processing -> ready_for_review -> in_review -> completed,
// with failed reachable from processing only.
const (
	StatusPending        = "pending"
	StatusProcessing     = "processing"
	StatusReadyForReview = "ready_for_review"
	StatusInReview       = "in_review"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
)

// statusPredecessors enumerates, per target status, the statuses a
// submission is allowed to come from. Every status write in the
// application goes through ValidStatusTransition so illegal jumps
// (completed -> processing and the like) are rejected in one place.
var statusPredecessors = map[string][]string{
	StatusPending:        {},
	StatusProcessing:     {StatusPending, StatusFailed, StatusReadyForReview},
	StatusReadyForReview: {StatusProcessing},
	// completed -> in_review is the explicit re-review exception to
	// the otherwise monotonic lifecycle.
	StatusInReview:  {StatusReadyForReview, StatusCompleted},
	StatusCompleted: {StatusReadyForReview, StatusInReview},
	StatusFailed:    {StatusProcessing},
}

// ValidStatusTransition reports whether a submission may move from one
// status to another. Self transitions are treated as no-ops and allowed.
func ValidStatusTransition(from, to string) bool {
	if from == to {
		return true
	}
	allowed, ok := statusPredecessors[to]
	if !ok {
		return false
	}
	for _, p := range allowed {
		if p == from {
			return true
		}
	}
	return false
}

// KnownStatus reports whether s is one of the six submission statuses.
func KnownStatus(s string) bool {
	_, ok := statusPredecessors[s]
	return ok
}

type Submission struct {
	SubmissionID     int        `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	StudentID        int        `gorm:"column:student_id;index" json:"student_id"`
	TranscriptPath   string     `gorm:"column:transcript_path" json:"transcript_path"`
	OriginalFilename string     `gorm:"column:original_filename" json:"original_filename"`
	Status           string     `gorm:"column:status;default:pending;index" json:"status"`
	ProcessingError  *string    `gorm:"column:processing_error;type:text" json:"processing_error,omitempty"`
	EvaluatorID      *int       `gorm:"column:evaluator_id" json:"evaluator_id,omitempty"`
	SubmittedAt      time.Time  `gorm:"column:submitted_at;autoCreateTime" json:"submitted_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	UpdateAt         time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	// Relations
	Student          *User                     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Evaluator        *User                     `gorm:"foreignKey:EvaluatorID" json:"evaluator,omitempty"`
	ExtractedCourses []ExtractedCourse         `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"extracted_courses,omitempty"`
	StatusHistory    []SubmissionStatusHistory `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
}

// TableName overrides
func (Submission) TableName() string {
	return "submissions"
}

// Terminal reports whether the submission has reached a state the
// pipeline will not move it out of on its own.
func (s *Submission) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

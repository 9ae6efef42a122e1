package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// DecisionInput carries one evaluator decision for an extracted course.
type DecisionInput struct {
	ExtractedCourseID      int
	Decision               string
	ApprovedTargetCourseID *int
	Notes                  *string
	EvaluatorID            int
}

// DecisionResult reports what a decision changed.
type DecisionResult struct {
	Evaluation          models.Evaluation `json:"evaluation"`
	PendingCourses      int64             `json:"pending_courses"`
	SubmissionCompleted bool              `json:"submission_completed"`
}

// EvaluationService owns evaluator decisions and the review lifecycle of
// a submission.
type EvaluationService struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewEvaluationService(db *gorm.DB, notifier *Notifier) *EvaluationService {
	if db == nil {
		db = config.DB
	}
	return &EvaluationService{db: db, notifier: notifier}
}

// Decide records an evaluator's decision for one extracted course.
// Calling it again for the same course overwrites the earlier decision;
// the latest write wins. When the last pending course of a submission is
// decided the submission moves to completed, exactly once.
func (s *EvaluationService) Decide(in DecisionInput) (*DecisionResult, error) {
	if !models.KnownDecision(in.Decision) {
		return nil, NewValidationError("unknown decision %q", in.Decision)
	}

	var target *int
	if in.Decision == models.DecisionApproved {
		if in.ApprovedTargetCourseID == nil {
			return nil, NewValidationError("an approved decision requires approved_target_course_id")
		}
		var tc models.TargetCourse
		if err := s.db.First(&tc, *in.ApprovedTargetCourseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewValidationError("target course %d does not exist", *in.ApprovedTargetCourseID)
			}
			return nil, err
		}
		target = in.ApprovedTargetCourseID
	}

	var course models.ExtractedCourse
	if err := s.db.First(&course, in.ExtractedCourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("extracted course %d: %w", in.ExtractedCourseID, ErrNotFound)
		}
		return nil, err
	}

	var sub models.Submission
	if err := s.db.First(&sub, course.SubmissionID).Error; err != nil {
		return nil, err
	}

	result := DecisionResult{}
	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var eval models.Evaluation
		err := tx.Where("extracted_course_id = ?", course.ExtractedCourseID).First(&eval).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Materialize opens the slot eagerly, but tolerate rows
			// created outside the pipeline.
			eval = models.Evaluation{ExtractedCourseID: course.ExtractedCourseID}
		} else if err != nil {
			return err
		}

		eval.Decision = in.Decision
		eval.EvaluatorID = &in.EvaluatorID
		eval.ApprovedTargetCourseID = target
		eval.Notes = in.Notes
		eval.DecidedAt = &now
		if err := tx.Save(&eval).Error; err != nil {
			return err
		}
		result.Evaluation = eval

		var pending int64
		if err := tx.Model(&models.Evaluation{}).
			Joins("JOIN extracted_courses ON extracted_courses.extracted_course_id = evaluations.extracted_course_id").
			Where("extracted_courses.submission_id = ? AND evaluations.decision = ?", sub.SubmissionID, models.DecisionPending).
			Count(&pending).Error; err != nil {
			return err
		}
		result.PendingCourses = pending

		if pending == 0 && sub.Status != models.StatusCompleted {
			if !models.ValidStatusTransition(sub.Status, models.StatusCompleted) {
				log.Warn().
					Int("submission_id", sub.SubmissionID).
					Str("status", sub.Status).
					Msg("all courses decided but submission is not in a reviewable state")
				return nil
			}
			if err := MarkCompleted(tx, &sub); err != nil {
				return err
			}
			result.SubmissionCompleted = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.SubmissionCompleted {
		s.notifier.SubmissionCompleted(&sub)
	}
	return &result, nil
}

// StartReview loads a submission for an evaluator and claims it on first
// open. Submissions that already moved past ready_for_review are returned
// unchanged.
func (s *EvaluationService) StartReview(submissionID, evaluatorID int) (*models.Submission, error) {
	var sub models.Submission
	if err := s.db.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
		}
		return nil, err
	}

	if sub.Status == models.StatusReadyForReview {
		if err := MarkInReview(s.db, &sub, evaluatorID); err != nil {
			return nil, err
		}
	}
	return &sub, nil
}

// Reopen puts a completed submission back in review so decisions can be
// revised. The completion stamp is cleared and set again when the
// submission completes next.
func (s *EvaluationService) Reopen(submissionID, evaluatorID int) (*models.Submission, error) {
	var sub models.Submission
	if err := s.db.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
		}
		return nil, err
	}

	if sub.Status != models.StatusCompleted {
		return nil, NewValidationError("only completed submissions can be reopened")
	}
	if err := transitionStatus(s.db, &sub, models.StatusInReview, map[string]any{
		"evaluator_id": evaluatorID,
		"completed_at": nil,
	}); err != nil {
		return nil, err
	}
	sub.EvaluatorID = &evaluatorID
	sub.CompletedAt = nil
	return &sub, nil
}

package services

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"transfer-credit-api/models"
)

// transitionStatus is the single place a submission status is written.
// It refuses jumps the lifecycle does not permit and persists the status
// together with any extra columns in one UPDATE. Every real change also
// appends a history row for the audit trail. The passed struct is
// updated to match on success. Self transitions short-circuit as no-ops.
func transitionStatus(db *gorm.DB, sub *models.Submission, to string, extra map[string]any) error {
	if !models.KnownStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}
	if !models.ValidStatusTransition(sub.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, sub.Status, to)
	}
	if sub.Status == to && len(extra) == 0 {
		return nil
	}

	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	if err := db.Model(&models.Submission{}).
		Where("submission_id = ?", sub.SubmissionID).
		Updates(updates).Error; err != nil {
		return err
	}

	if sub.Status != to {
		history := models.SubmissionStatusHistory{
			SubmissionID: sub.SubmissionID,
			FromStatus:   sub.Status,
			ToStatus:     to,
		}
		// A failure's error message doubles as the history note.
		if msg, ok := extra["processing_error"].(string); ok && msg != "" {
			history.Note = &msg
		}
		if err := db.Create(&history).Error; err != nil {
			return err
		}
	}

	log.Debug().
		Int("submission_id", sub.SubmissionID).
		Str("from", sub.Status).
		Str("to", to).
		Msg("submission status changed")
	sub.Status = to
	return nil
}

// MarkProcessing moves a submission into processing and clears any error
// left over from a previous failed run.
func MarkProcessing(db *gorm.DB, sub *models.Submission) error {
	if err := transitionStatus(db, sub, models.StatusProcessing, map[string]any{
		"processing_error": nil,
	}); err != nil {
		return err
	}
	sub.ProcessingError = nil
	return nil
}

// MarkReadyForReview moves a submission out of processing once matching
// has finished.
func MarkReadyForReview(db *gorm.DB, sub *models.Submission) error {
	return transitionStatus(db, sub, models.StatusReadyForReview, nil)
}

// MarkFailed records a terminal processing failure with the error text
// kept verbatim for operators.
func MarkFailed(db *gorm.DB, sub *models.Submission, message string) error {
	if err := transitionStatus(db, sub, models.StatusFailed, map[string]any{
		"processing_error": message,
	}); err != nil {
		return err
	}
	sub.ProcessingError = &message
	return nil
}

// failSubmission marks a submission failed with the cause's text kept
// verbatim. Recording the failure must not itself fail the caller, so
// problems here are only logged.
func failSubmission(db *gorm.DB, sub *models.Submission, cause error) {
	log.Error().Err(cause).Int("submission_id", sub.SubmissionID).Msg("submission processing failed")
	if err := MarkFailed(db, sub, cause.Error()); err != nil {
		log.Error().Err(err).Int("submission_id", sub.SubmissionID).Msg("failed to record processing failure")
	}
}

// MarkInReview records which evaluator picked the submission up.
func MarkInReview(db *gorm.DB, sub *models.Submission, evaluatorID int) error {
	if err := transitionStatus(db, sub, models.StatusInReview, map[string]any{
		"evaluator_id": evaluatorID,
	}); err != nil {
		return err
	}
	sub.EvaluatorID = &evaluatorID
	return nil
}

// MarkCompleted stamps the completion time along with the terminal status.
func MarkCompleted(db *gorm.DB, sub *models.Submission) error {
	now := time.Now()
	if err := transitionStatus(db, sub, models.StatusCompleted, map[string]any{
		"completed_at": now,
	}); err != nil {
		return err
	}
	sub.CompletedAt = &now
	return nil
}

package services

import (
	"errors"
	"testing"

	"transfer-credit-api/models"
)

func TestTransitionStatusRejectsIllegalJump(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusCompleted)

	err := transitionStatus(db, sub, models.StatusProcessing, nil)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusCompleted {
		t.Fatalf("status changed despite rejected transition: %s", got.Status)
	}
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)

	err := transitionStatus(db, sub, "archived", nil)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition for unknown status, got %v", err)
	}
}

func TestTransitionStatusUpdatesStructAndRow(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)

	if err := transitionStatus(db, sub, models.StatusProcessing, nil); err != nil {
		t.Fatalf("pending -> processing: %v", err)
	}
	if sub.Status != models.StatusProcessing {
		t.Fatalf("struct not updated, status = %s", sub.Status)
	}
	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusProcessing {
		t.Fatalf("row not updated, status = %s", got.Status)
	}
}

func TestMarkProcessingClearsPreviousError(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusProcessing)
	if err := MarkFailed(db, sub, "text extraction timed out"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	// failed -> processing is the retry path.
	if err := MarkProcessing(db, sub); err != nil {
		t.Fatalf("MarkProcessing after failure: %v", err)
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
	if got.ProcessingError != nil {
		t.Fatalf("processing_error not cleared: %q", *got.ProcessingError)
	}
	if sub.ProcessingError != nil {
		t.Fatalf("struct still carries processing error: %q", *sub.ProcessingError)
	}
}

func TestMarkFailedKeepsMessageVerbatim(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusProcessing)

	msg := "document transcripts/9_test.pdf: no readable text"
	if err := MarkFailed(db, sub, msg); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.ProcessingError == nil || *got.ProcessingError != msg {
		t.Fatalf("processing_error = %v, want %q", got.ProcessingError, msg)
	}
}

func TestMarkInReviewRecordsEvaluator(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	evaluator := seedUser(t, db, models.RoleEvaluator)
	sub := seedSubmission(t, db, student.UserID, models.StatusReadyForReview)

	if err := MarkInReview(db, sub, evaluator.UserID); err != nil {
		t.Fatalf("MarkInReview: %v", err)
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusInReview {
		t.Fatalf("status = %s, want in_review", got.Status)
	}
	if got.EvaluatorID == nil || *got.EvaluatorID != evaluator.UserID {
		t.Fatalf("evaluator_id = %v, want %d", got.EvaluatorID, evaluator.UserID)
	}
}

func TestMarkCompletedStampsCompletionTime(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusInReview)

	if err := MarkCompleted(db, sub); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if !got.Terminal() {
		t.Fatal("completed submission should be terminal")
	}
}

func TestTransitionsAppendHistory(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)

	if err := MarkProcessing(db, sub); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := MarkFailed(db, sub, "no courses were extracted from this transcript"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	var history []models.SubmissionStatusHistory
	if err := db.Where("submission_id = ?", sub.SubmissionID).
		Order("history_id").Find(&history).Error; err != nil {
		t.Fatalf("loading history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d history rows, want 2", len(history))
	}
	if history[0].FromStatus != models.StatusPending || history[0].ToStatus != models.StatusProcessing {
		t.Fatalf("first row = %s -> %s", history[0].FromStatus, history[0].ToStatus)
	}
	if history[1].FromStatus != models.StatusProcessing || history[1].ToStatus != models.StatusFailed {
		t.Fatalf("second row = %s -> %s", history[1].FromStatus, history[1].ToStatus)
	}
	if history[1].Note == nil || *history[1].Note != "no courses were extracted from this transcript" {
		t.Fatalf("failure note = %v, want the processing error", history[1].Note)
	}
}

func TestRejectedTransitionLeavesNoHistory(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusCompleted)

	if err := transitionStatus(db, sub, models.StatusProcessing, nil); err == nil {
		t.Fatal("completed -> processing should have been rejected")
	}

	var count int64
	db.Model(&models.SubmissionStatusHistory{}).
		Where("submission_id = ?", sub.SubmissionID).Count(&count)
	if count != 0 {
		t.Fatalf("rejected transition wrote %d history rows", count)
	}
}

package services

import (
	"strings"
	"testing"

	"transfer-credit-api/models"
)

func TestSubmissionCompletedRecordsNotification(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusCompleted)

	NewNotifier(db).SubmissionCompleted(sub)

	var rows []models.Notification
	if err := db.Where("user_id = ?", student.UserID).Find(&rows).Error; err != nil {
		t.Fatalf("loading notifications: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d notifications, want 1", len(rows))
	}
	n := rows[0]
	if n.Type != models.NotificationSuccess {
		t.Fatalf("type = %s, want success", n.Type)
	}
	if n.SubmissionID == nil || *n.SubmissionID != sub.SubmissionID {
		t.Fatalf("submission_id = %v, want %d", n.SubmissionID, sub.SubmissionID)
	}
	if n.IsRead {
		t.Fatal("new notification is already read")
	}
	if !strings.Contains(n.Message, sub.OriginalFilename) {
		t.Fatalf("message %q does not name the transcript", n.Message)
	}
}

func TestSubmissionFailedCarriesReason(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusFailed)
	reason := "no extractable text"
	sub.ProcessingError = &reason

	NewNotifier(db).SubmissionFailed(sub)

	var n models.Notification
	if err := db.Where("user_id = ?", student.UserID).First(&n).Error; err != nil {
		t.Fatalf("loading notification: %v", err)
	}
	if n.Type != models.NotificationError {
		t.Fatalf("type = %s, want error", n.Type)
	}
	if !strings.Contains(n.Message, reason) {
		t.Fatalf("message %q does not carry the failure reason", n.Message)
	}
}

func TestSubmissionFailedWithoutReason(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusFailed)

	NewNotifier(db).SubmissionFailed(sub)

	var n models.Notification
	if err := db.Where("user_id = ?", student.UserID).First(&n).Error; err != nil {
		t.Fatalf("loading notification: %v", err)
	}
	if !strings.Contains(n.Message, "could not be processed") {
		t.Fatalf("message %q is missing the generic reason", n.Message)
	}
}

func TestNilNotifierIsNoOp(t *testing.T) {
	var n *Notifier
	sub := &models.Submission{SubmissionID: 1, StudentID: 1, OriginalFilename: "t.pdf"}
	n.SubmissionCompleted(sub)
	n.SubmissionFailed(sub)
}

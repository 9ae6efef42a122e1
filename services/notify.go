package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// Notifier records in-app notifications and sends student-facing
// lifecycle mail. Every delivery is a soft failure: problems are logged
// and never block the pipeline, and a nil Notifier is a valid no-op.
type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	if db == nil {
		db = config.DB
	}
	return &Notifier{db: db}
}

// SubmissionCompleted tells the student every course on the submission
// has been decided.
func (n *Notifier) SubmissionCompleted(sub *models.Submission) {
	if n == nil {
		return
	}
	n.record(sub, models.NotificationSuccess,
		"Evaluation complete",
		fmt.Sprintf("Every course on your transcript %q has received a decision.", sub.OriginalFilename))

	body := fmt.Sprintf(`<p>Hello,</p>
<p>The evaluation of your transcript <b>%s</b> is complete. Every course has
received a decision.</p>
<p>Sign in to the transfer credit portal to see which courses were approved.</p>`,
		sub.OriginalFilename)
	n.email(sub, "Your transfer credit evaluation is complete", body)
}

// SubmissionFailed tells the student their transcript could not be
// processed, including the stored failure reason when there is one.
func (n *Notifier) SubmissionFailed(sub *models.Submission) {
	if n == nil {
		return
	}
	reason := "The document could not be processed."
	if sub.ProcessingError != nil && *sub.ProcessingError != "" {
		reason = *sub.ProcessingError
	}
	n.record(sub, models.NotificationError,
		"Transcript processing failed",
		fmt.Sprintf("We could not process your transcript %q: %s", sub.OriginalFilename, reason))

	body := fmt.Sprintf(`<p>Hello,</p>
<p>We could not process your transcript <b>%s</b>.</p>
<p>Reason: %s</p>
<p>Please upload a new copy or contact the transfer credit office.</p>`,
		sub.OriginalFilename, reason)
	n.email(sub, "We could not process your transcript", body)
}

// record writes the in-app notification row.
func (n *Notifier) record(sub *models.Submission, kind, title, message string) {
	id := sub.SubmissionID
	notification := models.Notification{
		UserID:       sub.StudentID,
		Title:        title,
		Message:      message,
		Type:         kind,
		SubmissionID: &id,
	}
	if err := n.db.Create(&notification).Error; err != nil {
		log.Warn().Err(err).Int("submission_id", sub.SubmissionID).Msg("cannot record notification")
	}
}

func (n *Notifier) email(sub *models.Submission, subject, html string) {
	if !config.MailConfigured() {
		return
	}

	var student models.User
	if err := n.db.First(&student, sub.StudentID).Error; err != nil {
		log.Warn().Err(err).Int("student_id", sub.StudentID).Msg("cannot resolve notification recipient")
		return
	}
	if err := config.SendMail([]string{student.Email}, subject, html); err != nil {
		log.Warn().Err(err).Str("email", student.Email).Msg("notification mail failed")
	}
}

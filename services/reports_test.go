package services

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"transfer-credit-api/models"
)

func TestSummaryCounts(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	evaluator := seedUser(t, db, models.RoleEvaluator)

	reviewing := seedSubmission(t, db, student.UserID, models.StatusInReview)
	seedSubmission(t, db, student.UserID, models.StatusPending)
	seedSubmission(t, db, student.UserID, models.StatusFailed)

	c1 := seedCourse(t, db, reviewing.SubmissionID, "CS101")
	c2 := seedCourse(t, db, reviewing.SubmissionID, "CS102")
	c3 := seedCourse(t, db, reviewing.SubmissionID, "CS103")
	seedCourse(t, db, reviewing.SubmissionID, "CS104") // stays pending

	target := seedTargetCourse(t, db, "CS110", true)
	seedTargetCourse(t, db, "CS120", true)
	seedTargetCourse(t, db, "CS090", false)

	svc := NewEvaluationService(db, nil)
	for _, decide := range []DecisionInput{
		{ExtractedCourseID: c1.ExtractedCourseID, Decision: models.DecisionApproved, ApprovedTargetCourseID: &target.TargetCourseID, EvaluatorID: evaluator.UserID},
		{ExtractedCourseID: c2.ExtractedCourseID, Decision: models.DecisionApproved, ApprovedTargetCourseID: &target.TargetCourseID, EvaluatorID: evaluator.UserID},
		{ExtractedCourseID: c3.ExtractedCourseID, Decision: models.DecisionRejected, EvaluatorID: evaluator.UserID},
	} {
		if _, err := svc.Decide(decide); err != nil {
			t.Fatalf("seeding decision: %v", err)
		}
	}

	summary, err := NewReportService(db).Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.TotalSubmissions != 3 {
		t.Fatalf("total submissions = %d, want 3", summary.TotalSubmissions)
	}
	if summary.SubmissionsByStatus[models.StatusInReview] != 1 ||
		summary.SubmissionsByStatus[models.StatusPending] != 1 ||
		summary.SubmissionsByStatus[models.StatusFailed] != 1 {
		t.Fatalf("submissions by status = %v", summary.SubmissionsByStatus)
	}
	if summary.ExtractedCourses != 4 {
		t.Fatalf("extracted courses = %d, want 4", summary.ExtractedCourses)
	}
	if summary.DecisionsByKind[models.DecisionApproved] != 2 ||
		summary.DecisionsByKind[models.DecisionRejected] != 1 ||
		summary.DecisionsByKind[models.DecisionPending] != 1 {
		t.Fatalf("decisions by kind = %v", summary.DecisionsByKind)
	}
	if summary.DecidedCourses != 3 {
		t.Fatalf("decided courses = %d, want 3", summary.DecidedCourses)
	}
	if want := float64(2) / float64(3); summary.ApprovalRate != want {
		t.Fatalf("approval rate = %v, want %v", summary.ApprovalRate, want)
	}
	if summary.ActiveTargetCourses != 2 {
		t.Fatalf("active target courses = %d, want 2 (retired excluded)", summary.ActiveTargetCourses)
	}
}

func TestSummaryEmptyPlatform(t *testing.T) {
	db := newTestDB(t)

	summary, err := NewReportService(db).Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalSubmissions != 0 || summary.DecidedCourses != 0 {
		t.Fatalf("empty platform summary = %+v", summary)
	}
	if summary.ApprovalRate != 0 {
		t.Fatalf("approval rate = %v with no decisions, want 0", summary.ApprovalRate)
	}
}

func TestSubmissionXLSXUnknownSubmission(t *testing.T) {
	db := newTestDB(t)
	_, _, err := NewReportService(db).SubmissionXLSX(999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmissionXLSXRendersDecisions(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	evaluator := seedUser(t, db, models.RoleEvaluator)
	sub := seedSubmission(t, db, student.UserID, models.StatusInReview)
	course := seedCourse(t, db, sub.SubmissionID, "CS101")
	seedCourse(t, db, sub.SubmissionID, "MATH101")
	target := seedTargetCourse(t, db, "CS110", true)

	match := models.CourseMatch{
		ExtractedCourseID: course.ExtractedCourseID,
		TargetCourseID:    target.TargetCourseID,
		MatchRank:         1,
		SimilarityScore:   91,
		MatchExplanation:  "same syllabus shape",
	}
	if err := db.Create(&match).Error; err != nil {
		t.Fatalf("seeding match: %v", err)
	}

	if _, err := NewEvaluationService(db, nil).Decide(DecisionInput{
		ExtractedCourseID:      course.ExtractedCourseID,
		Decision:               models.DecisionApproved,
		ApprovedTargetCourseID: &target.TargetCourseID,
		EvaluatorID:            evaluator.UserID,
	}); err != nil {
		t.Fatalf("seeding decision: %v", err)
	}

	data, name, err := NewReportService(db).SubmissionXLSX(sub.SubmissionID)
	if err != nil {
		t.Fatalf("SubmissionXLSX: %v", err)
	}
	if name == "" || len(data) == 0 {
		t.Fatalf("empty export: name=%q bytes=%d", name, len(data))
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Evaluation")
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	// Header plus one row per extracted course.
	if len(rows) != 3 {
		t.Fatalf("sheet has %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Course Code" {
		t.Fatalf("header = %v", rows[0])
	}

	var decided []string
	for _, row := range rows[1:] {
		if row[0] == "CS101" {
			decided = row
		}
	}
	if decided == nil {
		t.Fatalf("CS101 missing from export: %v", rows)
	}
	if decided[5] != models.DecisionApproved {
		t.Fatalf("decision cell = %q, want approved", decided[5])
	}
	if decided[6] != target.CourseCode+" "+target.CourseName {
		t.Fatalf("approved equivalent cell = %q", decided[6])
	}
	if decided[7] != target.CourseCode+" "+target.CourseName {
		t.Fatalf("top match cell = %q", decided[7])
	}
}

func TestDecisionsXLSXWindow(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	evaluator := seedUser(t, db, models.RoleEvaluator)
	sub := seedSubmission(t, db, student.UserID, models.StatusInReview)
	early := seedCourse(t, db, sub.SubmissionID, "CS101")
	late := seedCourse(t, db, sub.SubmissionID, "CS102")
	seedCourse(t, db, sub.SubmissionID, "CS103") // pending, never exported

	stamp := func(courseID int, at time.Time) {
		err := db.Model(&models.Evaluation{}).
			Where("extracted_course_id = ?", courseID).
			Updates(map[string]any{
				"decision":     models.DecisionRejected,
				"evaluator_id": evaluator.UserID,
				"decided_at":   at,
			}).Error
		if err != nil {
			t.Fatalf("stamping decision: %v", err)
		}
	}
	stamp(early.ExtractedCourseID, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	stamp(late.ExtractedCourseID, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))

	from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	data, name, err := NewReportService(db).DecisionsXLSX(&from, nil)
	if err != nil {
		t.Fatalf("DecisionsXLSX: %v", err)
	}
	if name != "decisions.xlsx" {
		t.Fatalf("filename = %q", name)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Decisions")
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("sheet has %d rows, want header plus the in-window decision", len(rows))
	}
	if rows[1][3] != "CS102" {
		t.Fatalf("exported course = %q, want CS102", rows[1][3])
	}
}

func TestDecisionsXLSXInclusiveBounds(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	evaluator := seedUser(t, db, models.RoleEvaluator)
	sub := seedSubmission(t, db, student.UserID, models.StatusInReview)
	course := seedCourse(t, db, sub.SubmissionID, "CS101")

	decidedAt := time.Date(2026, 3, 5, 23, 30, 0, 0, time.UTC)
	err := db.Model(&models.Evaluation{}).
		Where("extracted_course_id = ?", course.ExtractedCourseID).
		Updates(map[string]any{
			"decision":     models.DecisionApproved,
			"evaluator_id": evaluator.UserID,
			"decided_at":   decidedAt,
		}).Error
	if err != nil {
		t.Fatalf("stamping decision: %v", err)
	}

	// A window whose upper bound is the decision day still includes it.
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	data, _, err := NewReportService(db).DecisionsXLSX(&day, &day)
	if err != nil {
		t.Fatalf("DecisionsXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Decisions")
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("same-day window exported %d rows, want 2", len(rows))
	}
}

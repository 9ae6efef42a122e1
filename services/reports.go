package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// ReportSummary aggregates platform-wide evaluation activity.
type ReportSummary struct {
	TotalSubmissions    int64            `json:"total_submissions"`
	SubmissionsByStatus map[string]int64 `json:"submissions_by_status"`
	ExtractedCourses    int64            `json:"extracted_courses"`
	DecisionsByKind     map[string]int64 `json:"decisions_by_kind"`
	DecidedCourses      int64            `json:"decided_courses"`
	ApprovalRate        float64          `json:"approval_rate"`
	ActiveTargetCourses int64            `json:"active_target_courses"`
}

// ReportService renders summaries and spreadsheet exports for evaluators
// and administrators.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	if db == nil {
		db = config.DB
	}
	return &ReportService{db: db}
}

// Summary counts submissions by status and decisions by kind. The
// approval rate is approved decisions over all non-pending decisions.
func (s *ReportService) Summary() (*ReportSummary, error) {
	summary := &ReportSummary{
		SubmissionsByStatus: map[string]int64{},
		DecisionsByKind:     map[string]int64{},
	}

	type bucket struct {
		Val string
		N   int64
	}

	var byStatus []bucket
	if err := s.db.Model(&models.Submission{}).
		Select("status AS val, COUNT(*) AS n").
		Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, b := range byStatus {
		summary.SubmissionsByStatus[b.Val] = b.N
		summary.TotalSubmissions += b.N
	}

	var byDecision []bucket
	if err := s.db.Model(&models.Evaluation{}).
		Select("decision AS val, COUNT(*) AS n").
		Group("decision").Scan(&byDecision).Error; err != nil {
		return nil, err
	}
	for _, b := range byDecision {
		summary.DecisionsByKind[b.Val] = b.N
		if b.Val != models.DecisionPending {
			summary.DecidedCourses += b.N
		}
	}
	if summary.DecidedCourses > 0 {
		summary.ApprovalRate = float64(summary.DecisionsByKind[models.DecisionApproved]) / float64(summary.DecidedCourses)
	}

	if err := s.db.Model(&models.ExtractedCourse{}).Count(&summary.ExtractedCourses).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.TargetCourse{}).
		Where("is_active = ?", true).Count(&summary.ActiveTargetCourses).Error; err != nil {
		return nil, err
	}
	return summary, nil
}

// SubmissionXLSX renders one submission's evaluation as an XLSX workbook
// and returns the bytes together with a download filename.
func (s *ReportService) SubmissionXLSX(submissionID int) ([]byte, string, error) {
	var sub models.Submission
	err := s.db.
		Preload("Student").
		Preload("ExtractedCourses").
		Preload("ExtractedCourses.Evaluation").
		Preload("ExtractedCourses.Evaluation.Evaluator").
		Preload("ExtractedCourses.Evaluation.ApprovedTargetCourse").
		Preload("ExtractedCourses.Matches", func(db *gorm.DB) *gorm.DB { return db.Order("match_rank") }).
		Preload("ExtractedCourses.Matches.TargetCourse").
		First(&sub, submissionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
		}
		return nil, "", err
	}

	f := excelize.NewFile()
	const sheet = "Evaluation"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, "", err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Course Code",
		"Course Name",
		"Credits",
		"Grade",
		"Source Institution",
		"Decision",
		"Approved Equivalent",
		"Top Match",
		"Top Score",
		"Evaluator",
		"Decided At",
		"Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, c := range sub.ExtractedCourses {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, derefString(c.CourseCode))
		write(2, derefString(c.CourseName))
		if c.Credits != nil {
			write(3, *c.Credits)
		} else {
			write(3, "")
		}
		write(4, derefString(c.Grade))
		write(5, derefString(c.SourceInstitution))

		if eval := c.Evaluation; eval != nil {
			write(6, eval.Decision)
			if eval.ApprovedTargetCourse != nil {
				write(7, eval.ApprovedTargetCourse.CourseCode+" "+eval.ApprovedTargetCourse.CourseName)
			}
			if eval.Evaluator != nil {
				write(10, eval.Evaluator.FullName())
			}
			if eval.DecidedAt != nil {
				write(11, eval.DecidedAt.Format("2006-01-02 15:04"))
			}
			write(12, derefString(eval.Notes))
		}

		if len(c.Matches) > 0 {
			top := c.Matches[0]
			if top.TargetCourse != nil {
				write(8, top.TargetCourse.CourseCode+" "+top.TargetCourse.CourseName)
			}
			write(9, top.SimilarityScore)
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 24)
	_ = f.SetColWidth(sheet, "C", "D", 10)
	_ = f.SetColWidth(sheet, "E", "H", 28)
	_ = f.SetColWidth(sheet, "I", "I", 10)
	_ = f.SetColWidth(sheet, "J", "K", 20)
	_ = f.SetColWidth(sheet, "L", "L", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("xlsx write: %w", err)
	}
	name := fmt.Sprintf("submission_%d_evaluation.xlsx", sub.SubmissionID)
	return buf.Bytes(), name, nil
}

// DecisionsXLSX exports every decided course in the given date window,
// bounds inclusive. A nil bound leaves that side of the window open.
func (s *ReportService) DecisionsXLSX(from, to *time.Time) ([]byte, string, error) {
	q := s.db.
		Joins("JOIN evaluations ON evaluations.extracted_course_id = extracted_courses.extracted_course_id").
		Where("evaluations.decision <> ?", models.DecisionPending)
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("evaluations.decided_at >= ?", f)
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		q = q.Where("evaluations.decided_at < ?", t)
	}

	var courses []models.ExtractedCourse
	err := q.
		Preload("Evaluation").
		Preload("Evaluation.Evaluator").
		Preload("Evaluation.ApprovedTargetCourse").
		Preload("Submission").
		Preload("Submission.Student").
		Order("extracted_courses.extracted_course_id").
		Find(&courses).Error
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	const sheet = "Decisions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, "", err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Decided At",
		"Student",
		"Submission",
		"Course Code",
		"Course Name",
		"Decision",
		"Approved Equivalent",
		"Evaluator",
		"Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, c := range courses {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		eval := c.Evaluation
		if eval != nil && eval.DecidedAt != nil {
			write(1, eval.DecidedAt.Format("2006-01-02 15:04"))
		}
		if c.Submission != nil && c.Submission.Student != nil {
			write(2, c.Submission.Student.FullName())
		}
		write(3, c.SubmissionID)
		write(4, derefString(c.CourseCode))
		write(5, derefString(c.CourseName))
		if eval != nil {
			write(6, eval.Decision)
			if eval.ApprovedTargetCourse != nil {
				write(7, eval.ApprovedTargetCourse.CourseCode+" "+eval.ApprovedTargetCourse.CourseName)
			}
			if eval.Evaluator != nil {
				write(8, eval.Evaluator.FullName())
			}
			write(9, derefString(eval.Notes))
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "C", 12)
	_ = f.SetColWidth(sheet, "D", "E", 24)
	_ = f.SetColWidth(sheet, "F", "H", 22)
	_ = f.SetColWidth(sheet, "I", "I", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), "decisions.xlsx", nil
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

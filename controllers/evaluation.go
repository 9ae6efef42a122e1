// controllers/evaluation.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"transfer-credit-api/models"
	"transfer-credit-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EvaluationController is the evaluator-facing review API.
type EvaluationController struct {
	db          *gorm.DB
	evaluations *services.EvaluationService
	reports     *services.ReportService
}

type DecisionRequest struct {
	Decision               string  `json:"decision" binding:"required"`
	ApprovedTargetCourseID *int    `json:"approved_target_course_id"`
	Notes                  *string `json:"notes"`
}

// Queue lists submissions waiting for review, oldest first, with course
// and pending counts.
func (ctl *EvaluationController) Queue(c *gin.Context) {
	var subs []models.Submission
	err := ctl.db.Preload("Student").Preload("Evaluator").
		Where("status IN ?", []string{models.StatusReadyForReview, models.StatusInReview}).
		Order("submitted_at").
		Find(&subs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load review queue"})
		return
	}

	type countRow struct {
		SubmissionID int
		Courses      int64
		Pending      int64
	}
	var counts []countRow
	err = ctl.db.Model(&models.ExtractedCourse{}).
		Select("extracted_courses.submission_id AS submission_id, COUNT(*) AS courses, SUM(CASE WHEN evaluations.decision = ? THEN 1 ELSE 0 END) AS pending", models.DecisionPending).
		Joins("LEFT JOIN evaluations ON evaluations.extracted_course_id = extracted_courses.extracted_course_id").
		Group("extracted_courses.submission_id").
		Scan(&counts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load review queue"})
		return
	}

	byID := make(map[int]countRow, len(counts))
	for _, row := range counts {
		byID[row.SubmissionID] = row
	}

	queue := make([]gin.H, 0, len(subs))
	for i := range subs {
		row := byID[subs[i].SubmissionID]
		queue = append(queue, gin.H{
			"submission":    subs[i],
			"course_count":  row.Courses,
			"pending_count": row.Pending,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"queue": queue,
		"count": len(queue),
	})
}

// Open loads a submission for review. The first evaluator to open a
// ready submission claims it and moves it to in_review.
func (ctl *EvaluationController) Open(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	sub, err := ctl.evaluations.StartReview(id, currentUserID(c))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open submission"})
		return
	}

	var full models.Submission
	err = ctl.db.
		Preload("Student").
		Preload("Evaluator").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("history_id") }).
		Preload("ExtractedCourses", func(db *gorm.DB) *gorm.DB { return db.Order("extracted_course_id") }).
		Preload("ExtractedCourses.Matches", func(db *gorm.DB) *gorm.DB { return db.Order("match_rank") }).
		Preload("ExtractedCourses.Matches.TargetCourse").
		Preload("ExtractedCourses.Evaluation").
		Preload("ExtractedCourses.Evaluation.Evaluator").
		Preload("ExtractedCourses.Evaluation.ApprovedTargetCourse").
		First(&full, sub.SubmissionID).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submission": full})
}

// Decide records the caller's decision for one extracted course.
func (ctl *EvaluationController) Decide(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := ctl.evaluations.Decide(services.DecisionInput{
		ExtractedCourseID:      id,
		Decision:               req.Decision,
		ApprovedTargetCourseID: req.ApprovedTargetCourseID,
		Notes:                  req.Notes,
		EvaluatorID:            currentUserID(c),
	})
	if err != nil {
		switch {
		case services.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		case errors.Is(err, services.ErrIllegalTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record decision"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Decision recorded",
		"result":  result,
	})
}

// Reopen puts a completed submission back into review.
func (ctl *EvaluationController) Reopen(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	sub, err := ctl.evaluations.Reopen(id, currentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		case services.IsValidation(err):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrIllegalTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reopen submission"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Submission reopened for review",
		"submission": sub,
	})
}

// Summary returns platform-wide evaluation counts.
func (ctl *EvaluationController) Summary(c *gin.Context) {
	summary, err := ctl.reports.Summary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// ExportDecisions streams an XLSX of decided courses, optionally bounded
// by ?from= and ?to= dates (YYYY-MM-DD).
func (ctl *EvaluationController) ExportDecisions(c *gin.Context) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
			return
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
			return
		}
		to = &t
	}

	data, name, err := ctl.reports.DecisionsXLSX(from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

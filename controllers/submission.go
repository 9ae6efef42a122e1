// controllers/submission.go
package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"transfer-credit-api/config"
	"transfer-credit-api/models"
	"transfer-credit-api/services"
	"transfer-credit-api/storage"
	"transfer-credit-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SubmissionController handles the student-facing submission API.
type SubmissionController struct {
	db       *gorm.DB
	store    storage.FileStore
	pipeline *services.PipelineService
	reports  *services.ReportService
	app      config.App
}

// Upload accepts a PDF transcript, creates the submission and kicks off
// background processing.
func (ctl *SubmissionController) Upload(c *gin.Context) {
	userID := currentUserID(c)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	if file.Size > ctl.app.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File size exceeds %dMB limit", ctl.app.MaxUploadSize/(1024*1024)),
		})
		return
	}
	if !utils.AllowedDocumentExt(file.Filename, ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF transcripts are accepted"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	location := utils.StoredDocumentName("transcripts", userID, file.Filename)
	if err := ctl.store.Save(c.Request.Context(), location, src, file.Size); err != nil {
		log.Error().Err(err).Str("location", location).Msg("transcript save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	sub := models.Submission{
		StudentID:        userID,
		TranscriptPath:   location,
		OriginalFilename: file.Filename,
		Status:           models.StatusPending,
	}
	if err := ctl.db.Create(&sub).Error; err != nil {
		// Keep storage consistent with the database.
		_ = ctl.store.Delete(c.Request.Context(), location)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	ctl.pipeline.DispatchTranscript(c.Request.Context(), sub.SubmissionID)

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Transcript uploaded, processing started",
		"submission": sub,
	})
}

// List returns the caller's submissions, or every submission for staff.
// An optional ?status= filter narrows the result.
func (ctl *SubmissionController) List(c *gin.Context) {
	q := ctl.db.Preload("Student")
	if !isStaff(c) {
		q = q.Where("student_id = ?", currentUserID(c))
	}
	if status := c.Query("status"); status != "" {
		if !models.KnownStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
			return
		}
		q = q.Where("status = ?", status)
	}

	var subs []models.Submission
	if err := q.Order("submitted_at DESC").Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"count":       len(subs),
	})
}

// Get returns one submission with its courses, matches and evaluations.
func (ctl *SubmissionController) Get(c *gin.Context) {
	sub, ok := ctl.loadOwned(c)
	if !ok {
		return
	}

	var full models.Submission
	err := ctl.db.
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

// Download streams the stored transcript back under its original name.
func (ctl *SubmissionController) Download(c *gin.Context) {
	sub, ok := ctl.loadOwned(c)
	if !ok {
		return
	}

	rc, err := ctl.store.Open(c.Request.Context(), sub.TranscriptPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcript file not found"})
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sub.OriginalFilename))
	c.Header("Content-Type", "application/pdf")
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Warn().Err(err).Int("submission_id", sub.SubmissionID).Msg("transcript download aborted")
	}
}

// Export renders the submission's evaluation as a spreadsheet.
func (ctl *SubmissionController) Export(c *gin.Context) {
	sub, ok := ctl.loadOwned(c)
	if !ok {
		return
	}

	data, name, err := ctl.reports.SubmissionXLSX(sub.SubmissionID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Delete removes a submission, its courses and its stored documents.
// Submissions still being processed cannot be deleted.
func (ctl *SubmissionController) Delete(c *gin.Context) {
	sub, ok := ctl.loadOwned(c)
	if !ok {
		return
	}

	if sub.Status == models.StatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is still processing"})
		return
	}

	var syllabusPaths []string
	ctl.db.Model(&models.ExtractedCourse{}).
		Where("submission_id = ? AND syllabus_path IS NOT NULL", sub.SubmissionID).
		Pluck("syllabus_path", &syllabusPaths)

	if err := ctl.db.Delete(&models.Submission{}, sub.SubmissionID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete submission"})
		return
	}

	// Stored files go last and best effort; a leftover file is better
	// than a submission row pointing at nothing.
	_ = ctl.store.Delete(c.Request.Context(), sub.TranscriptPath)
	for _, p := range syllabusPaths {
		_ = ctl.store.Delete(c.Request.Context(), p)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Submission deleted"})
}

// Reprocess re-runs the whole pipeline for a submission. Previously
// extracted courses and their evaluations are replaced.
func (ctl *SubmissionController) Reprocess(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var sub models.Submission
	if err := ctl.db.First(&sub, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	if sub.Status == models.StatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is already processing"})
		return
	}
	if !models.ValidStatusTransition(sub.Status, models.StatusProcessing) {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Submission in status %q cannot be reprocessed", sub.Status),
		})
		return
	}

	ctl.pipeline.DispatchTranscript(c.Request.Context(), sub.SubmissionID)

	c.JSON(http.StatusAccepted, gin.H{"message": "Reprocessing started"})
}

// loadOwned resolves :id and enforces that students only reach their own
// submissions. It writes the error response itself when it returns !ok.
func (ctl *SubmissionController) loadOwned(c *gin.Context) (*models.Submission, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return nil, false
	}

	var sub models.Submission
	if err := ctl.db.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		}
		return nil, false
	}

	if !isStaff(c) && sub.StudentID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}
	return &sub, true
}

// controllers/syllabus.go
package controllers

import (
	"encoding/json"
	"errors"
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

// SyllabusController handles per-course documents and manual course
// entry.
type SyllabusController struct {
	db       *gorm.DB
	store    storage.FileStore
	pipeline *services.PipelineService
	app      config.App
}

type ManualCourseRequest struct {
	CourseCode        string   `json:"course_code"`
	CourseName        string   `json:"course_name" binding:"required"`
	Credits           *float64 `json:"credits"`
	Grade             string   `json:"grade"`
	SourceInstitution string   `json:"source_institution"`
}

// Upload attaches a syllabus PDF to an extracted course. Description and
// learning outcomes are pulled out in the background and the course's
// matches are refreshed.
func (ctl *SyllabusController) Upload(c *gin.Context) {
	course, sub, ok := ctl.loadCourse(c)
	if !ok {
		return
	}

	if sub.Status == models.StatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is still processing"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > ctl.app.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds limit"})
		return
	}
	if !utils.AllowedDocumentExt(file.Filename, ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF syllabi are accepted"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	location := utils.StoredDocumentName("syllabi", sub.StudentID, file.Filename)
	if err := ctl.store.Save(c.Request.Context(), location, src, file.Size); err != nil {
		log.Error().Err(err).Str("location", location).Msg("syllabus save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	ctl.pipeline.DispatchSyllabus(c.Request.Context(), course.ExtractedCourseID, location)

	c.JSON(http.StatusAccepted, gin.H{
		"message":  "Syllabus uploaded, extraction started",
		"location": location,
	})
}

// AddManualCourse lets a student record a course the extractor missed.
// The course gets a pending evaluation and is matched in the background.
func (ctl *SyllabusController) AddManualCourse(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var sub models.Submission
	if err := ctl.db.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		}
		return
	}
	if !isStaff(c) && sub.StudentID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	if sub.Status == models.StatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is still processing"})
		return
	}
	if sub.Status == models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Completed submissions must be reopened before adding courses"})
		return
	}

	var req ManualCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, _ := json.Marshal(map[string]any{"source": "manual_entry"})
	created, err := ctl.pipeline.Materialize(sub.SubmissionID, []services.RawCourse{{
		CourseCode:        utils.SanitizeInput(req.CourseCode),
		CourseName:        utils.SanitizeInput(req.CourseName),
		Credits:           req.Credits,
		Grade:             utils.SanitizeInput(req.Grade),
		SourceInstitution: utils.SanitizeInput(req.SourceInstitution),
		Raw:               raw,
	}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add course"})
		return
	}

	course := created[0]
	ctl.pipeline.DispatchRematch(c.Request.Context(), course.ExtractedCourseID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Course added, matching started",
		"course":  course,
	})
}

// Rematch refreshes the suggested matches for one course on demand.
func (ctl *SyllabusController) Rematch(c *gin.Context) {
	course, sub, ok := ctl.loadCourse(c)
	if !ok {
		return
	}

	if sub.Status == models.StatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission is still processing"})
		return
	}

	ctl.pipeline.DispatchRematch(c.Request.Context(), course.ExtractedCourseID)

	c.JSON(http.StatusAccepted, gin.H{"message": "Rematch started"})
}

// DownloadSyllabus streams the stored syllabus for a course.
func (ctl *SyllabusController) DownloadSyllabus(c *gin.Context) {
	course, _, ok := ctl.loadCourse(c)
	if !ok {
		return
	}
	if course.SyllabusPath == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No syllabus on file for this course"})
		return
	}

	rc, err := ctl.store.Open(c.Request.Context(), *course.SyllabusPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Syllabus file not found"})
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="syllabus.pdf"`)
	c.Header("Content-Type", "application/pdf")
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Warn().Err(err).Int("extracted_course_id", course.ExtractedCourseID).Msg("syllabus download aborted")
	}
}

// loadCourse resolves :id to an extracted course plus its submission and
// enforces ownership. It writes the error response when it returns !ok.
func (ctl *SyllabusController) loadCourse(c *gin.Context) (*models.ExtractedCourse, *models.Submission, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return nil, nil, false
	}

	var course models.ExtractedCourse
	if err := ctl.db.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		}
		return nil, nil, false
	}

	var sub models.Submission
	if err := ctl.db.First(&sub, course.SubmissionID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		return nil, nil, false
	}

	if !isStaff(c) && sub.StudentID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, nil, false
	}
	return &course, &sub, true
}

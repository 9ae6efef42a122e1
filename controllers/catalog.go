// controllers/catalog.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"transfer-credit-api/config"
	"transfer-credit-api/models"
	"transfer-credit-api/services"
	"transfer-credit-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CatalogController manages the target course catalog.
type CatalogController struct {
	db       *gorm.DB
	importer *services.CatalogImportService
	app      config.App
}

type TargetCourseRequest struct {
	CourseCode       string  `json:"course_code" binding:"required"`
	CourseName       string  `json:"course_name" binding:"required"`
	Department       string  `json:"department"`
	Credits          float64 `json:"credits"`
	Description      string  `json:"description"`
	LearningOutcomes string  `json:"learning_outcomes"`
	IsActive         *bool   `json:"is_active"`
}

// List returns catalog courses. Students only see active ones; staff see
// everything and can filter with ?active=, ?department= and ?search=.
func (ctl *CatalogController) List(c *gin.Context) {
	q := ctl.db.Model(&models.TargetCourse{})

	if active := c.Query("active"); active != "" && isStaff(c) {
		want, err := strconv.ParseBool(active)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid active filter"})
			return
		}
		q = q.Where("is_active = ?", want)
	} else if !isStaff(c) {
		q = q.Where("is_active = ?", true)
	}

	if dept := c.Query("department"); dept != "" {
		q = q.Where("department = ?", dept)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("course_code LIKE ? OR course_name LIKE ?", like, like)
	}

	var courses []models.TargetCourse
	if err := q.Order("course_code").Find(&courses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list catalog"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"courses": courses,
		"count":   len(courses),
	})
}

// Get returns one catalog course.
func (ctl *CatalogController) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var course models.TargetCourse
	if err := ctl.db.First(&course, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

// Create adds one catalog course. Course codes are unique.
func (ctl *CatalogController) Create(c *gin.Context) {
	var req TargetCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.CourseCode = utils.SanitizeInput(req.CourseCode)

	var existing int64
	ctl.db.Model(&models.TargetCourse{}).Where("course_code = ?", req.CourseCode).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Course code already exists"})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	course := models.TargetCourse{
		CourseCode:       req.CourseCode,
		CourseName:       utils.SanitizeInput(req.CourseName),
		Department:       utils.SanitizeInput(req.Department),
		Credits:          req.Credits,
		Description:      req.Description,
		LearningOutcomes: req.LearningOutcomes,
		IsActive:         active,
	}
	if err := ctl.db.Create(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create course"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Course created",
		"course":  course,
	})
}

// Update replaces a catalog course's fields, including its active flag.
// Deactivating takes a course out of future matching without touching
// matches already stored.
func (ctl *CatalogController) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var course models.TargetCourse
	if err := ctl.db.First(&course, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}

	var req TargetCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.CourseCode = utils.SanitizeInput(req.CourseCode)

	var clash int64
	ctl.db.Model(&models.TargetCourse{}).
		Where("course_code = ? AND target_course_id <> ?", req.CourseCode, course.TargetCourseID).
		Count(&clash)
	if clash > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Course code already exists"})
		return
	}

	course.CourseCode = req.CourseCode
	course.CourseName = utils.SanitizeInput(req.CourseName)
	course.Department = utils.SanitizeInput(req.Department)
	course.Credits = req.Credits
	course.Description = req.Description
	course.LearningOutcomes = req.LearningOutcomes
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}

	if err := ctl.db.Save(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update course"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Course updated",
		"course":  course,
	})
}

// Delete removes a catalog course that nothing references. Courses with
// stored matches or approved decisions must be deactivated instead.
func (ctl *CatalogController) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var course models.TargetCourse
	if err := ctl.db.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		}
		return
	}

	var matches, approvals int64
	ctl.db.Model(&models.CourseMatch{}).Where("target_course_id = ?", id).Count(&matches)
	ctl.db.Model(&models.Evaluation{}).Where("approved_target_course_id = ?", id).Count(&approvals)
	if matches > 0 || approvals > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Course is referenced by matches or decisions, deactivate it instead"})
		return
	}

	if err := ctl.db.Delete(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete course"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted"})
}

// Import loads catalog courses in bulk from an uploaded CSV or XLSX
// file.
func (ctl *CatalogController) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > ctl.app.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds limit"})
		return
	}
	if !utils.AllowedDocumentExt(file.Filename, ".csv", ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV and XLSX catalogs are accepted"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	result, err := ctl.importer.Import(src, file.Filename)
	if err != nil {
		if services.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Catalog import failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Catalog import finished",
		"result":  result,
	})
}

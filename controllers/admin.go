// controllers/admin.go
package controllers

import (
	"net/http"
	"strconv"
	"time"
	"transfer-credit-api/models"
	"transfer-credit-api/services"
	"transfer-credit-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminController carries platform administration endpoints.
type AdminController struct {
	db      *gorm.DB
	janitor *services.Janitor
}

type CreateUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	Role      string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Stats returns the operational dashboard numbers.
func (ctl *AdminController) Stats(c *gin.Context) {
	type bucket struct {
		Val string
		N   int64
	}

	usersByRole := map[string]int64{}
	var roleRows []bucket
	ctl.db.Model(&models.User{}).
		Select("role AS val, COUNT(*) AS n").
		Where("delete_at IS NULL").
		Group("role").Scan(&roleRows)
	for _, b := range roleRows {
		usersByRole[b.Val] = b.N
	}

	subsByStatus := map[string]int64{}
	var statusRows []bucket
	ctl.db.Model(&models.Submission{}).
		Select("status AS val, COUNT(*) AS n").
		Group("status").Scan(&statusRows)
	for _, b := range statusRows {
		subsByStatus[b.Val] = b.N
	}

	var catalogSize int64
	ctl.db.Model(&models.TargetCourse{}).Where("is_active = ?", true).Count(&catalogSize)

	// Failures surface here first; the processing error is part of the
	// submission payload.
	var recentFailures []models.Submission
	ctl.db.Preload("Student").
		Where("status = ?", models.StatusFailed).
		Order("update_at DESC").Limit(10).
		Find(&recentFailures)

	c.JSON(http.StatusOK, gin.H{
		"users_by_role":         usersByRole,
		"submissions_by_status": subsByStatus,
		"active_catalog_size":   catalogSize,
		"recent_failures":       recentFailures,
	})
}

// ListUsers returns accounts, optionally filtered by ?role= and
// ?search=.
func (ctl *AdminController) ListUsers(c *gin.Context) {
	q := ctl.db.Where("delete_at IS NULL")

	if role := c.Query("role"); role != "" {
		if !utils.ValidateRole(role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role filter"})
			return
		}
		q = q.Where("role = ?", role)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}

	var users []models.User
	if err := q.Order("user_id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// CreateUser lets an administrator create accounts of any role,
// typically evaluators.
func (ctl *AdminController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = utils.SanitizeInput(req.Email)
	if !utils.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if !utils.ValidateRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}
	if ok, msg := utils.ValidatePassword(req.Password); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var existing int64
	ctl.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered"})
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := models.User{
		FirstName: utils.SanitizeInput(req.FirstName),
		LastName:  utils.SanitizeInput(req.LastName),
		Email:     req.Email,
		Password:  hash,
		Role:      req.Role,
		IsActive:  true,
	}
	if err := ctl.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created",
		"user":    user,
	})
}

// UpdateUser changes a user's role or active flag. Admins cannot change
// their own account here.
func (ctl *AdminController) UpdateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	if id == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change your own account"})
		return
	}

	var user models.User
	if err := ctl.db.Where("user_id = ? AND delete_at IS NULL", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Role != nil {
		if !utils.ValidateRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := ctl.db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated",
		"user":    user,
	})
}

// DeleteUser soft deletes an account and deactivates it.
func (ctl *AdminController) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	if id == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	var user models.User
	if err := ctl.db.Where("user_id = ? AND delete_at IS NULL", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	now := time.Now()
	if err := ctl.db.Model(&user).Updates(map[string]any{
		"delete_at": now,
		"is_active": false,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// SweepStale runs the stale submission sweep on demand.
func (ctl *AdminController) SweepStale(c *gin.Context) {
	n := ctl.janitor.SweepStale()
	c.JSON(http.StatusOK, gin.H{
		"message":            "Sweep finished",
		"failed_submissions": n,
	})
}

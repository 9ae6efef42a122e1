// controllers/notification.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"transfer-credit-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NotificationController serves the in-app notification feed.
type NotificationController struct {
	db *gorm.DB
}

// List returns the caller's notifications, newest first, with the unread
// count. ?unread=true narrows to unread ones.
func (ctl *NotificationController) List(c *gin.Context) {
	userID := currentUserID(c)

	q := ctl.db.Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := q.Order("notification_id DESC").Limit(100).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	var unread int64
	ctl.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkRead marks one of the caller's notifications as read.
func (ctl *NotificationController) MarkRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	var notification models.Notification
	if err := ctl.db.Where("notification_id = ? AND user_id = ?", id, currentUserID(c)).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notification"})
		}
		return
	}

	if !notification.IsRead {
		if err := ctl.db.Model(&notification).Update("is_read", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// MarkAllRead marks every unread notification of the caller as read.
func (ctl *NotificationController) MarkAllRead(c *gin.Context) {
	result := ctl.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", currentUserID(c), false).
		Update("is_read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked read",
		"updated": result.RowsAffected,
	})
}

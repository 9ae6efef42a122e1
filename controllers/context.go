package controllers

import (
	"transfer-credit-api/models"

	"github.com/gin-gonic/gin"
)

// currentUserID returns the authenticated user's id from the request
// context. Routes behind AuthMiddleware always have it set.
func currentUserID(c *gin.Context) int {
	v, _ := c.Get("userID")
	id, _ := v.(int)
	return id
}

func currentRole(c *gin.Context) string {
	v, _ := c.Get("role")
	role, _ := v.(string)
	return role
}

// isStaff reports whether the caller may see submissions beyond their
// own.
func isStaff(c *gin.Context) bool {
	role := currentRole(c)
	return role == models.RoleEvaluator || role == models.RoleAdmin
}

// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"strings"

	"transfer-credit-api/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword checks password strength
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}

	return true, ""
}

// ValidateRole checks that a role is one the platform knows.
func ValidateRole(role string) bool {
	switch role {
	case models.RoleStudent, models.RoleEvaluator, models.RoleAdmin:
		return true
	}
	return false
}

// SanitizeInput removes leading/trailing spaces and null bytes
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	return strings.ReplaceAll(input, "\x00", "")
}

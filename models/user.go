package models

import (
	"time"
)

// Role values stored on users.role.
const (
	RoleStudent   = "student"
	RoleEvaluator = "evaluator"
	RoleAdmin     = "admin"
)

type User struct {
	UserID    int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	FirstName string     `gorm:"column:first_name" json:"first_name"`
	LastName  string     `gorm:"column:last_name" json:"last_name"`
	Email     string     `gorm:"column:email;uniqueIndex" json:"email"`
	Password  string     `gorm:"column:password" json:"-"`
	Role      string     `gorm:"column:role" json:"role"`
	IsActive  bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreateAt  time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt  time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CanEvaluate reports whether the user may act on evaluations.
func (u *User) CanEvaluate() bool {
	return u.Role == RoleEvaluator || u.Role == RoleAdmin
}

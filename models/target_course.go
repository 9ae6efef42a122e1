package models

import (
	"time"
)

// TargetCourse is a catalog entry at the receiving institution. Catalog
// rows are managed by administrators and only referenced, never owned,
// by the matching pipeline. Only active rows are eligible match targets.
type TargetCourse struct {
	TargetCourseID   int       `gorm:"primaryKey;column:target_course_id" json:"target_course_id"`
	CourseCode       string    `gorm:"column:course_code;uniqueIndex" json:"course_code"`
	CourseName       string    `gorm:"column:course_name" json:"course_name"`
	Department       string    `gorm:"column:department" json:"department"`
	Credits          float64   `gorm:"column:credits" json:"credits"`
	Description      string    `gorm:"column:description;type:text" json:"description"`
	LearningOutcomes string    `gorm:"column:learning_outcomes;type:text" json:"learning_outcomes"`
	IsActive         bool      `gorm:"column:is_active;default:true;index" json:"is_active"`
	CreateAt         time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt         time.Time `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
}

// TableName overrides
func (TargetCourse) TableName() string {
	return "target_courses"
}

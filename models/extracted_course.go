package models

import (
	"encoding/json"
	"time"
)

// ExtractedCourse is one course parsed out of an uploaded transcript.
// Extraction is best effort, so every descriptive field is optional.
type ExtractedCourse struct {
	ExtractedCourseID int      `gorm:"primaryKey;column:extracted_course_id" json:"extracted_course_id"`
	SubmissionID      int      `gorm:"column:submission_id;index" json:"submission_id"`
	CourseCode        *string  `gorm:"column:course_code" json:"course_code,omitempty"`
	CourseName        *string  `gorm:"column:course_name" json:"course_name,omitempty"`
	Credits           *float64 `gorm:"column:credits" json:"credits,omitempty"`
	Grade             *string  `gorm:"column:grade" json:"grade,omitempty"`
	SourceInstitution *string  `gorm:"column:source_institution" json:"source_institution,omitempty"`
	SyllabusPath      *string  `gorm:"column:syllabus_path" json:"syllabus_path,omitempty"`
	CourseDescription *string  `gorm:"column:course_description;type:text" json:"course_description,omitempty"`
	LearningOutcomes  *string  `gorm:"column:learning_outcomes;type:text" json:"learning_outcomes,omitempty"`
	// RawExtraction keeps the untouched model output for audit and debugging.
	RawExtraction json.RawMessage `gorm:"column:raw_extraction;type:json" json:"raw_extraction,omitempty"`
	CreateAt      time.Time       `gorm:"column:create_at;autoCreateTime" json:"create_at"`

	// Relations
	Submission *Submission   `gorm:"foreignKey:SubmissionID" json:"-"`
	Matches    []CourseMatch `gorm:"foreignKey:ExtractedCourseID;constraint:OnDelete:CASCADE" json:"matches,omitempty"`
	Evaluation *Evaluation   `gorm:"foreignKey:ExtractedCourseID;constraint:OnDelete:CASCADE" json:"evaluation,omitempty"`
}

// TableName overrides
func (ExtractedCourse) TableName() string {
	return "extracted_courses"
}

// DisplayName returns the best human readable label for the course.
func (c *ExtractedCourse) DisplayName() string {
	switch {
	case c.CourseCode != nil && c.CourseName != nil:
		return *c.CourseCode + " " + *c.CourseName
	case c.CourseName != nil:
		return *c.CourseName
	case c.CourseCode != nil:
		return *c.CourseCode
	}
	return "(unidentified course)"
}

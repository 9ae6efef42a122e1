package models

import (
	"time"
)

// CourseMatch is one ranked candidate equivalence between an extracted
// course and a catalog course. Matches for a course are always replaced
// as a whole batch, never edited row by row, so ranks stay a contiguous
// 1..k sequence.
type CourseMatch struct {
	MatchID           int     `gorm:"primaryKey;column:match_id" json:"match_id"`
	ExtractedCourseID int     `gorm:"column:extracted_course_id;uniqueIndex:uq_match_rank" json:"extracted_course_id"`
	TargetCourseID    int     `gorm:"column:target_course_id;index" json:"target_course_id"`
	SimilarityScore   float64 `gorm:"column:similarity_score" json:"similarity_score"`
	MatchRank         int     `gorm:"column:match_rank;uniqueIndex:uq_match_rank" json:"match_rank"`
	MatchExplanation  string  `gorm:"column:match_explanation;type:text" json:"match_explanation"`
	// Structured reasoning from the ranking model.
	KeySimilarities      StringList `gorm:"column:key_similarities;type:json" json:"key_similarities,omitempty"`
	ImportantDifferences StringList `gorm:"column:important_differences;type:json" json:"important_differences,omitempty"`
	CreateAt             time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`

	// Relations
	TargetCourse *TargetCourse `gorm:"foreignKey:TargetCourseID;constraint:OnDelete:CASCADE" json:"target_course,omitempty"`
}

// TableName overrides
func (CourseMatch) TableName() string {
	return "course_matches"
}

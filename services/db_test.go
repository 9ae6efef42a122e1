package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"transfer-credit-api/models"
)

// newTestDB opens a throwaway SQLite database with the full schema and
// foreign keys enforced, so cascade deletes behave like production.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "transfer-test.db")
	db, err := gorm.Open(sqlite.Open("file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(
		&models.User{},
		&models.TargetCourse{},
		&models.Submission{},
		&models.SubmissionStatusHistory{},
		&models.ExtractedCourse{},
		&models.CourseMatch{},
		&models.Evaluation{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := models.User{
		FirstName: "Test",
		LastName:  role,
		Email:     fmt.Sprintf("%s-%d@test.edu", role, seq()),
		Password:  "not-a-real-hash",
		Role:      role,
		IsActive:  true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed %s user: %v", role, err)
	}
	return &user
}

func seedSubmission(t *testing.T, db *gorm.DB, studentID int, status string) *models.Submission {
	t.Helper()
	sub := models.Submission{
		StudentID:        studentID,
		TranscriptPath:   fmt.Sprintf("transcripts/%d_test.pdf", seq()),
		OriginalFilename: "transcript.pdf",
		Status:           status,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return &sub
}

// seedCourse creates an extracted course together with its pending
// evaluation, the way the pipeline materializes them.
func seedCourse(t *testing.T, db *gorm.DB, submissionID int, code string) *models.ExtractedCourse {
	t.Helper()
	name := code + " Test Course"
	course := models.ExtractedCourse{
		SubmissionID: submissionID,
		CourseCode:   &code,
		CourseName:   &name,
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to seed extracted course: %v", err)
	}
	eval := models.Evaluation{
		ExtractedCourseID: course.ExtractedCourseID,
		Decision:          models.DecisionPending,
	}
	if err := db.Create(&eval).Error; err != nil {
		t.Fatalf("failed to seed evaluation: %v", err)
	}
	return &course
}

func seedTargetCourse(t *testing.T, db *gorm.DB, code string, active bool) *models.TargetCourse {
	t.Helper()
	course := models.TargetCourse{
		CourseCode: code,
		CourseName: code + " Equivalent",
		Department: "Computer Science",
		Credits:    3,
		IsActive:   active,
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to seed target course: %v", err)
	}
	return &course
}

var seqCounter int

func seq() int {
	seqCounter++
	return seqCounter
}

// fakeRanker is a scripted CourseRanker for pipeline and matching tests.
type fakeRanker struct {
	courses []RawCourse
	matchFn func(course *models.ExtractedCourse, catalog []models.TargetCourse, topN int) []RankedMatch
	details CourseDetails
}

func (r *fakeRanker) ExtractCourses(ctx context.Context, documentText string) []RawCourse {
	return r.courses
}

func (r *fakeRanker) RankMatches(ctx context.Context, course *models.ExtractedCourse, catalog []models.TargetCourse, topN int) []RankedMatch {
	if r.matchFn == nil {
		return nil
	}
	return r.matchFn(course, catalog, topN)
}

func (r *fakeRanker) ExtractCourseDetails(ctx context.Context, syllabusText string) CourseDetails {
	return r.details
}

// rankAll is a matchFn scoring the whole catalog in stored order.
func rankAll(course *models.ExtractedCourse, catalog []models.TargetCourse, topN int) []RankedMatch {
	if topN > len(catalog) {
		topN = len(catalog)
	}
	matches := make([]RankedMatch, 0, topN)
	for i := 0; i < topN; i++ {
		matches = append(matches, RankedMatch{
			TargetCourseID:       catalog[i].TargetCourseID,
			SimilarityScore:      float64(90 - i),
			Explanation:          "close topical overlap",
			KeySimilarities:      []string{"subject"},
			ImportantDifferences: []string{"level"},
		})
	}
	return matches
}

// fakeTextSource serves canned text per location.
type fakeTextSource struct {
	texts map[string]string
	errs  map[string]error
}

func (f *fakeTextSource) ExtractText(ctx context.Context, location string) (string, error) {
	if err, ok := f.errs[location]; ok {
		return "", err
	}
	if text, ok := f.texts[location]; ok {
		return text, nil
	}
	return "", fmt.Errorf("document %s: %w", location, ErrNotFound)
}

func reloadSubmission(t *testing.T, db *gorm.DB, id int) *models.Submission {
	t.Helper()
	var sub models.Submission
	if err := db.First(&sub, id).Error; err != nil {
		t.Fatalf("failed to reload submission %d: %v", id, err)
	}
	return &sub
}

func matchesFor(t *testing.T, db *gorm.DB, extractedCourseID int) []models.CourseMatch {
	t.Helper()
	var matches []models.CourseMatch
	if err := db.Where("extracted_course_id = ?", extractedCourseID).
		Order("match_rank").Find(&matches).Error; err != nil {
		t.Fatalf("failed to load matches for course %d: %v", extractedCourseID, err)
	}
	return matches
}

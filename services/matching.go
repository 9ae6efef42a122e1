package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// errNoCoursesExtracted is the student-facing failure reason for a
// transcript that yielded nothing to match.
var errNoCoursesExtracted = errors.New("no courses were extracted from this transcript")

// MatchingService drives a submission through catalog matching and owns
// the replace-matches procedure. Course-level ranking runs sequentially
// to bound external calls; callers must not trigger overlapping runs for
// the same submission.
type MatchingService struct {
	db     *gorm.DB
	ranker CourseRanker
	topN   int
}

func NewMatchingService(db *gorm.DB, ranker CourseRanker, topN int) *MatchingService {
	if db == nil {
		db = config.DB
	}
	if topN <= 0 {
		topN = config.DefaultTopNMatches
	}
	return &MatchingService{db: db, ranker: ranker, topN: topN}
}

// Run matches every extracted course of a submission against the active
// catalog and reports whether the submission came out reviewable. A
// missing submission returns false without touching anything. Any error
// or panic inside the run marks the submission failed with the error
// text kept verbatim; per-course work already committed stays.
func (s *MatchingService) Run(ctx context.Context, submissionID int) (ok bool) {
	var sub models.Submission
	if err := s.db.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Int("submission_id", submissionID).Msg("matching run for unknown submission")
		} else {
			log.Error().Err(err).Int("submission_id", submissionID).Msg("failed to load submission")
		}
		return false
	}

	if err := MarkProcessing(s.db, &sub); err != nil {
		log.Error().Err(err).Int("submission_id", sub.SubmissionID).Msg("cannot move submission into processing")
		return false
	}

	// The recovery boundary of the run: even a panic ends up recorded
	// on the submission rather than killing the goroutine.
	defer func() {
		if r := recover(); r != nil {
			failSubmission(s.db, &sub, fmt.Errorf("unexpected failure: %v", r))
			ok = false
		}
	}()

	if err := s.runMatching(ctx, &sub); err != nil {
		failSubmission(s.db, &sub, err)
		return false
	}

	if err := MarkReadyForReview(s.db, &sub); err != nil {
		failSubmission(s.db, &sub, err)
		return false
	}

	log.Info().Int("submission_id", sub.SubmissionID).Msg("submission ready for review")
	return true
}

// runMatching is the recovery boundary of a run: every error returned
// here ends up on the submission as its processing error.
func (s *MatchingService) runMatching(ctx context.Context, sub *models.Submission) error {
	var courses []models.ExtractedCourse
	if err := s.db.Where("submission_id = ?", sub.SubmissionID).
		Order("extracted_course_id").Find(&courses).Error; err != nil {
		return err
	}
	if len(courses) == 0 {
		return errNoCoursesExtracted
	}

	catalog, err := s.activeCatalog()
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		// Valid degenerate case: evaluators can still decide with zero
		// suggested matches.
		log.Info().Int("submission_id", sub.SubmissionID).Msg("active catalog is empty, skipping matching")
		return nil
	}

	for i := range courses {
		if err := s.matchCourse(ctx, &courses[i], catalog); err != nil {
			return err
		}
	}
	return nil
}

// Rematch repeats the per-course matching step for one course, for
// example after a syllabus upload enriched its description. Submission
// status is deliberately left untouched.
func (s *MatchingService) Rematch(ctx context.Context, extractedCourseID int) error {
	var course models.ExtractedCourse
	if err := s.db.First(&course, extractedCourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("extracted course %d: %w", extractedCourseID, ErrNotFound)
		}
		return err
	}

	catalog, err := s.activeCatalog()
	if err != nil {
		return err
	}
	return s.matchCourse(ctx, &course, catalog)
}

func (s *MatchingService) activeCatalog() ([]models.TargetCourse, error) {
	var catalog []models.TargetCourse
	err := s.db.Where("is_active = ?", true).Order("target_course_id").Find(&catalog).Error
	return catalog, err
}

// matchCourse replaces the stored matches for one extracted course with
// fresh ranking results. Ranking happens before the transaction so the
// delete and the insert commit together and readers never observe a
// half-replaced batch. An empty ranking result is a valid outcome that
// leaves the course without suggestions.
func (s *MatchingService) matchCourse(ctx context.Context, course *models.ExtractedCourse, catalog []models.TargetCourse) error {
	ranked := s.ranker.RankMatches(ctx, course, catalog, s.topN)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("extracted_course_id = ?", course.ExtractedCourseID).
			Delete(&models.CourseMatch{}).Error; err != nil {
			return err
		}
		for i, m := range ranked {
			record := models.CourseMatch{
				ExtractedCourseID:    course.ExtractedCourseID,
				TargetCourseID:       m.TargetCourseID,
				SimilarityScore:      m.SimilarityScore,
				MatchRank:            i + 1,
				MatchExplanation:     m.Explanation,
				KeySimilarities:      models.StringList(m.KeySimilarities),
				ImportantDifferences: models.StringList(m.ImportantDifferences),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing matches for course %d: %w", course.ExtractedCourseID, err)
	}

	log.Debug().
		Int("extracted_course_id", course.ExtractedCourseID).
		Int("matches", len(ranked)).
		Msg("course matches replaced")
	return nil
}

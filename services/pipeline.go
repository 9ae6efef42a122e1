package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// pipelineTimeout bounds a background pipeline run end to end, model
// calls included.
const pipelineTimeout = 10 * time.Minute

// TextSource yields the plain text of a stored document.
type TextSource interface {
	ExtractText(ctx context.Context, location string) (string, error)
}

// PipelineService owns the intake pipeline: transcript text extraction,
// course extraction, materialization and the matching run. It is the
// write path between an uploaded document and a reviewable submission.
type PipelineService struct {
	db        *gorm.DB
	extractor TextSource
	ranker    CourseRanker
	matcher   *MatchingService
	notifier  *Notifier
}

func NewPipelineService(db *gorm.DB, extractor TextSource, ranker CourseRanker, matcher *MatchingService, notifier *Notifier) *PipelineService {
	if db == nil {
		db = config.DB
	}
	return &PipelineService{
		db:        db,
		extractor: extractor,
		ranker:    ranker,
		matcher:   matcher,
		notifier:  notifier,
	}
}

// DispatchTranscript runs the intake pipeline in the background so the
// upload request can return immediately. The run detaches from the
// request's cancellation but keeps the context's values.
func (s *PipelineService) DispatchTranscript(ctx context.Context, submissionID int) {
	ctx = persistentContext(ctx)
	go func() {
		defer s.recoverPipeline(submissionID)
		runCtx, cancel := context.WithTimeout(ctx, pipelineTimeout)
		defer cancel()
		s.ProcessTranscript(runCtx, submissionID)
	}()
}

// DispatchSyllabus enriches a course from an uploaded syllabus in the
// background.
func (s *PipelineService) DispatchSyllabus(ctx context.Context, extractedCourseID int, location string) {
	ctx = persistentContext(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).
					Int("extracted_course_id", extractedCourseID).
					Msg("syllabus pipeline panicked")
			}
		}()
		runCtx, cancel := context.WithTimeout(ctx, pipelineTimeout)
		defer cancel()
		if err := s.ProcessSyllabus(runCtx, extractedCourseID, location); err != nil {
			log.Error().Err(err).
				Int("extracted_course_id", extractedCourseID).
				Msg("syllabus processing failed")
		}
	}()
}

// DispatchRematch refreshes one course's matches in the background.
func (s *PipelineService) DispatchRematch(ctx context.Context, extractedCourseID int) {
	ctx = persistentContext(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).
					Int("extracted_course_id", extractedCourseID).
					Msg("rematch panicked")
			}
		}()
		runCtx, cancel := context.WithTimeout(ctx, pipelineTimeout)
		defer cancel()
		if err := s.matcher.Rematch(runCtx, extractedCourseID); err != nil {
			log.Error().Err(err).
				Int("extracted_course_id", extractedCourseID).
				Msg("rematch failed")
		}
	}()
}

// ProcessTranscript takes a submission from its uploaded document to a
// reviewable state: extract text, extract courses, materialize them and
// match against the catalog. It reports whether the submission ended up
// ready for review. Reprocessing a submission starts from a clean slate;
// stale courses and their matches and evaluations are dropped.
func (s *PipelineService) ProcessTranscript(ctx context.Context, submissionID int) bool {
	var sub models.Submission
	if err := s.db.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Int("submission_id", submissionID).Msg("pipeline run for unknown submission")
		} else {
			log.Error().Err(err).Int("submission_id", submissionID).Msg("failed to load submission")
		}
		return false
	}

	if err := MarkProcessing(s.db, &sub); err != nil {
		log.Error().Err(err).Int("submission_id", sub.SubmissionID).Msg("cannot move submission into processing")
		return false
	}

	if err := s.db.Where("submission_id = ?", sub.SubmissionID).
		Delete(&models.ExtractedCourse{}).Error; err != nil {
		s.fail(&sub, err)
		return false
	}

	text, err := s.extractor.ExtractText(ctx, sub.TranscriptPath)
	if err != nil {
		s.fail(&sub, err)
		return false
	}

	courses := s.ranker.ExtractCourses(ctx, text)
	if len(courses) == 0 {
		s.fail(&sub, errNoCoursesExtracted)
		return false
	}

	if _, err := s.Materialize(sub.SubmissionID, courses); err != nil {
		s.fail(&sub, err)
		return false
	}

	ok := s.matcher.Run(ctx, sub.SubmissionID)
	if !ok {
		// Run already recorded the failure; reload it for the mail body.
		if err := s.db.First(&sub, sub.SubmissionID).Error; err == nil && sub.Status == models.StatusFailed {
			s.notifier.SubmissionFailed(&sub)
		}
	}
	return ok
}

// ProcessSyllabus attaches an uploaded syllabus to an extracted course,
// pulls description and learning outcomes out of it and refreshes the
// course's matches. The parent submission's status is not touched.
func (s *PipelineService) ProcessSyllabus(ctx context.Context, extractedCourseID int, location string) error {
	var course models.ExtractedCourse
	if err := s.db.First(&course, extractedCourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("extracted course %d: %w", extractedCourseID, ErrNotFound)
		}
		return err
	}

	text, err := s.extractor.ExtractText(ctx, location)
	if err != nil {
		return err
	}

	details := s.ranker.ExtractCourseDetails(ctx, text)

	updates := map[string]any{"syllabus_path": location}
	if details.Description != "" {
		updates["course_description"] = details.Description
	}
	if details.LearningOutcomes != "" {
		updates["learning_outcomes"] = details.LearningOutcomes
	}
	if details != (CourseDetails{}) {
		updates["raw_extraction"] = mergeRawExtraction(course.RawExtraction, details)
	}
	if err := s.db.Model(&course).Updates(updates).Error; err != nil {
		return err
	}

	if err := s.matcher.Rematch(ctx, extractedCourseID); err != nil {
		log.Warn().Err(err).
			Int("extracted_course_id", extractedCourseID).
			Msg("rematch after syllabus upload failed")
	}
	return nil
}

// Materialize stores extracted courses for a submission and opens a
// pending evaluation for each one inside a single transaction, so a
// course can never exist without its evaluation slot.
func (s *PipelineService) Materialize(submissionID int, courses []RawCourse) ([]models.ExtractedCourse, error) {
	created := make([]models.ExtractedCourse, 0, len(courses))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, rc := range courses {
			course := models.ExtractedCourse{
				SubmissionID:      submissionID,
				CourseCode:        optString(rc.CourseCode),
				CourseName:        optString(rc.CourseName),
				Credits:           rc.Credits,
				Grade:             optString(rc.Grade),
				SourceInstitution: optString(rc.SourceInstitution),
				RawExtraction:     rc.Raw,
			}
			if err := tx.Create(&course).Error; err != nil {
				return err
			}
			eval := models.Evaluation{
				ExtractedCourseID: course.ExtractedCourseID,
				Decision:          models.DecisionPending,
			}
			if err := tx.Create(&eval).Error; err != nil {
				return err
			}
			created = append(created, course)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PipelineService) fail(sub *models.Submission, cause error) {
	failSubmission(s.db, sub, cause)
	s.notifier.SubmissionFailed(sub)
}

// recoverPipeline converts a panicking background run into a failed
// submission so it cannot sit in processing forever.
func (s *PipelineService) recoverPipeline(submissionID int) {
	r := recover()
	if r == nil {
		return
	}
	log.Error().Interface("panic", r).Int("submission_id", submissionID).Msg("transcript pipeline panicked")

	var sub models.Submission
	if err := s.db.First(&sub, submissionID).Error; err != nil {
		return
	}
	failSubmission(s.db, &sub, fmt.Errorf("unexpected failure: %v", r))
}

func mergeRawExtraction(raw json.RawMessage, details CourseDetails) json.RawMessage {
	doc := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			doc = map[string]json.RawMessage{}
		}
	}
	payload, err := json.Marshal(map[string]string{
		"description":       details.Description,
		"learning_outcomes": details.LearningOutcomes,
	})
	if err != nil {
		return raw
	}
	doc["syllabus_data"] = payload
	out, err := json.Marshal(doc)
	if err != nil {
		return raw
	}
	return out
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"transfer-credit-api/models"
)

func TestRunUnknownSubmission(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchingService(db, &fakeRanker{}, 5)

	if svc.Run(context.Background(), 4242) {
		t.Fatal("Run reported success for a submission that does not exist")
	}
	var count int64
	db.Model(&models.Submission{}).Count(&count)
	if count != 0 {
		t.Fatalf("run for unknown submission created %d submissions", count)
	}
}

func TestRunNoExtractedCoursesFails(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)
	svc := NewMatchingService(db, &fakeRanker{}, 5)

	if svc.Run(context.Background(), sub.SubmissionID) {
		t.Fatal("Run reported success with no extracted courses")
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ProcessingError == nil || *got.ProcessingError == "" {
		t.Fatal("failed submission is missing its processing error")
	}
}

func TestRunEmptyCatalogIsValidSuccess(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)
	c1 := seedCourse(t, db, sub.SubmissionID, "MATH101")
	c2 := seedCourse(t, db, sub.SubmissionID, "PHYS101")

	ranker := &fakeRanker{matchFn: func(_ *models.ExtractedCourse, catalog []models.TargetCourse, _ int) []RankedMatch {
		t.Fatal("ranker must not be consulted when the catalog is empty")
		return nil
	}}
	svc := NewMatchingService(db, ranker, 5)

	if !svc.Run(context.Background(), sub.SubmissionID) {
		t.Fatal("Run failed on an empty catalog")
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusReadyForReview {
		t.Fatalf("status = %s, want ready_for_review", got.Status)
	}
	for _, course := range []*models.ExtractedCourse{c1, c2} {
		if n := len(matchesFor(t, db, course.ExtractedCourseID)); n != 0 {
			t.Fatalf("course %d has %d matches, want 0", course.ExtractedCourseID, n)
		}
	}
}

func TestRunStoresContiguousRanks(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)
	course := seedCourse(t, db, sub.SubmissionID, "CS201")
	for _, code := range []string{"CS210", "CS220", "CS230", "CS240"} {
		seedTargetCourse(t, db, code, true)
	}

	svc := NewMatchingService(db, &fakeRanker{matchFn: rankAll}, 3)
	if !svc.Run(context.Background(), sub.SubmissionID) {
		t.Fatal("Run failed")
	}

	matches := matchesFor(t, db, course.ExtractedCourseID)
	if len(matches) != 3 {
		t.Fatalf("stored %d matches, want topN=3", len(matches))
	}
	for i, m := range matches {
		if m.MatchRank != i+1 {
			t.Fatalf("rank at position %d = %d, want %d", i, m.MatchRank, i+1)
		}
		if m.MatchExplanation == "" {
			t.Fatalf("match %d has no explanation", m.MatchID)
		}
		if len(m.KeySimilarities) == 0 || len(m.ImportantDifferences) == 0 {
			t.Fatalf("match %d lost its reasoning lists", m.MatchID)
		}
	}
	if matches[0].SimilarityScore <= matches[2].SimilarityScore {
		t.Fatalf("ranks are not ordered by score: %v vs %v",
			matches[0].SimilarityScore, matches[2].SimilarityScore)
	}
}

func TestRunToleratesUnmatchableCourse(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)
	odd := seedCourse(t, db, sub.SubmissionID, "ART999")
	normal := seedCourse(t, db, sub.SubmissionID, "CS101")
	seedTargetCourse(t, db, "CS110", true)

	ranker := &fakeRanker{matchFn: func(course *models.ExtractedCourse, catalog []models.TargetCourse, topN int) []RankedMatch {
		if course.ExtractedCourseID == odd.ExtractedCourseID {
			return nil // model found nothing comparable
		}
		return rankAll(course, catalog, topN)
	}}
	svc := NewMatchingService(db, ranker, 5)

	if !svc.Run(context.Background(), sub.SubmissionID) {
		t.Fatal("Run failed because one course had no matches")
	}
	if got := reloadSubmission(t, db, sub.SubmissionID); got.Status != models.StatusReadyForReview {
		t.Fatalf("status = %s, want ready_for_review", got.Status)
	}
	if n := len(matchesFor(t, db, odd.ExtractedCourseID)); n != 0 {
		t.Fatalf("unmatchable course stored %d matches", n)
	}
	if n := len(matchesFor(t, db, normal.ExtractedCourseID)); n != 1 {
		t.Fatalf("normal course stored %d matches, want 1", n)
	}
}

func TestRunPassesOnlyActiveCatalog(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)
	seedCourse(t, db, sub.SubmissionID, "CS101")
	active := seedTargetCourse(t, db, "CS110", true)
	retired := seedTargetCourse(t, db, "CS090", false)

	var seen []int
	ranker := &fakeRanker{matchFn: func(course *models.ExtractedCourse, catalog []models.TargetCourse, topN int) []RankedMatch {
		for _, tc := range catalog {
			seen = append(seen, tc.TargetCourseID)
		}
		return rankAll(course, catalog, topN)
	}}

	if !NewMatchingService(db, ranker, 5).Run(context.Background(), sub.SubmissionID) {
		t.Fatal("Run failed")
	}
	if len(seen) != 1 || seen[0] != active.TargetCourseID {
		t.Fatalf("ranker saw catalog %v, want only active course %d (retired %d excluded)",
			seen, active.TargetCourseID, retired.TargetCourseID)
	}
}

func TestRunRecoversFromRankerPanic(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusPending)
	seedCourse(t, db, sub.SubmissionID, "CS101")
	seedTargetCourse(t, db, "CS110", true)

	ranker := &fakeRanker{matchFn: func(*models.ExtractedCourse, []models.TargetCourse, int) []RankedMatch {
		panic("ranker exploded")
	}}

	if NewMatchingService(db, ranker, 5).Run(context.Background(), sub.SubmissionID) {
		t.Fatal("Run reported success through a panic")
	}

	got := reloadSubmission(t, db, sub.SubmissionID)
	if got.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ProcessingError == nil || !strings.Contains(*got.ProcessingError, "unexpected failure") {
		t.Fatalf("processing_error = %v, want unexpected failure text", got.ProcessingError)
	}
}

func TestRematchReplacesMatchesAtomically(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.RoleStudent)
	sub := seedSubmission(t, db, student.UserID, models.StatusReadyForReview)
	course := seedCourse(t, db, sub.SubmissionID, "CS101")
	seedTargetCourse(t, db, "CS110", true)
	seedTargetCourse(t, db, "CS120", true)

	svc := NewMatchingService(db, &fakeRanker{matchFn: rankAll}, 5)
	if err := svc.Rematch(context.Background(), course.ExtractedCourseID); err != nil {
		t.Fatalf("first rematch: %v", err)
	}
	first := matchesFor(t, db, course.ExtractedCourseID)
	if len(first) != 2 {
		t.Fatalf("first rematch stored %d matches, want 2", len(first))
	}

	if err := svc.Rematch(context.Background(), course.ExtractedCourseID); err != nil {
		t.Fatalf("second rematch: %v", err)
	}
	second := matchesFor(t, db, course.ExtractedCourseID)
	if len(second) != 2 {
		t.Fatalf("second rematch stored %d matches, want 2", len(second))
	}

	// Old rows must be gone, not updated in place.
	oldIDs := map[int]bool{}
	for _, m := range first {
		oldIDs[m.MatchID] = true
	}
	for _, m := range second {
		if oldIDs[m.MatchID] {
			t.Fatalf("match id %d survived the replacement", m.MatchID)
		}
	}

	// Submission status is matching's caller's concern, not Rematch's.
	if got := reloadSubmission(t, db, sub.SubmissionID); got.Status != models.StatusReadyForReview {
		t.Fatalf("Rematch changed submission status to %s", got.Status)
	}
}

func TestRematchUnknownCourse(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchingService(db, &fakeRanker{}, 5)

	err := svc.Rematch(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyntheticRankerScores(t *testing.T) {
	catalog := make([]models.TargetCourse, 7)
	for i := range catalog {
		catalog[i].TargetCourseID = i + 1
	}
	course := &models.ExtractedCourse{ExtractedCourseID: 1}

	matches := (&SyntheticRanker{}).RankMatches(context.Background(), course, catalog, 7)
	if len(matches) != 7 {
		t.Fatalf("got %d matches, want 7", len(matches))
	}
	want := []float64{95, 85, 75, 65, 55, 50, 50}
	for i, m := range matches {
		if m.SimilarityScore != want[i] {
			t.Fatalf("score[%d] = %v, want %v", i, m.SimilarityScore, want[i])
		}
		if m.TargetCourseID != catalog[i].TargetCourseID {
			t.Fatalf("match %d points at course %d, want stored order", i, m.TargetCourseID)
		}
	}
}

func TestSyntheticRankerTruncatesToCatalog(t *testing.T) {
	catalog := []models.TargetCourse{{TargetCourseID: 1}, {TargetCourseID: 2}}
	matches := (&SyntheticRanker{}).RankMatches(context.Background(), &models.ExtractedCourse{}, catalog, 5)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want catalog size 2", len(matches))
	}
}

func TestSyntheticRankerDegenerateInputs(t *testing.T) {
	r := &SyntheticRanker{}
	if m := r.RankMatches(context.Background(), &models.ExtractedCourse{}, nil, 5); m != nil {
		t.Fatalf("empty catalog returned %v", m)
	}
	if m := r.RankMatches(context.Background(), &models.ExtractedCourse{}, []models.TargetCourse{{TargetCourseID: 1}}, 0); m != nil {
		t.Fatalf("topN=0 returned %v", m)
	}
	if c := r.ExtractCourses(context.Background(), "any text"); c != nil {
		t.Fatalf("synthetic extraction returned %v", c)
	}
	if d := r.ExtractCourseDetails(context.Background(), "any text"); d != (CourseDetails{}) {
		t.Fatalf("synthetic details returned %+v", d)
	}
}

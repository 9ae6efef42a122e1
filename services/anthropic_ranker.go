package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// Prompt truncation limits keep request sizes bounded on large documents.
const (
	maxTranscriptChars   = 5000
	maxSyllabusChars     = 5000
	maxSourceDescChars   = 1000
	maxCatalogDescChars  = 500
	maxCatalogOutcomes   = 300
	rankingSystemPrompt  = "You are a university course evaluator comparing transfer courses against a course catalog. You respond with valid JSON only, no prose and no code fences."
	extractSystemPrompt  = "You extract structured course listings from university transcript text. You respond with valid JSON only, no prose and no code fences."
	syllabusSystemPrompt = "You summarize university course syllabi. You respond with valid JSON only, no prose and no code fences."
)

// AnthropicRanker asks an Anthropic model for extraction and ranking.
// Failures never leave this type: transport errors fall back to the
// synthetic ranker, malformed output falls back to empty results.
type AnthropicRanker struct {
	client    anthropic.Client
	model     string
	synthetic SyntheticRanker
}

func NewAnthropicRanker(cfg config.App) *AnthropicRanker {
	return &AnthropicRanker{
		client: anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:  cfg.RankingModel,
	}
}

func (r *AnthropicRanker) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	message, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}

// ExtractCourses pulls a best-effort course list out of transcript text.
// Any transport or parse problem yields an empty slice.
func (r *AnthropicRanker) ExtractCourses(ctx context.Context, documentText string) []RawCourse {
	var b strings.Builder
	b.WriteString("Extract every course from this transcript text. For each course report course_code (e.g. \"CS101\"), course_name, credits, grade and source_institution when present.\n\n")
	b.WriteString("Transcript text:\n")
	b.WriteString(truncateRunes(documentText, maxTranscriptChars))
	b.WriteString("\n\nReturn a JSON array of objects with keys course_code, course_name, credits, grade, source_institution. Use null for anything the transcript does not show. Return only the JSON.")

	responseText, err := r.complete(ctx, extractSystemPrompt, b.String())
	if err != nil {
		log.Warn().Err(err).Msg("course extraction call failed")
		return nil
	}

	payload := stripCodeFences(responseText)
	if err := validateModelJSON(extractedCoursesValidator, []byte(payload)); err != nil {
		log.Warn().Err(err).Msg("course extraction output rejected")
		return nil
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		log.Warn().Err(err).Msg("course extraction output unparsable")
		return nil
	}

	courses := make([]RawCourse, 0, len(items))
	for _, item := range items {
		raw, _ := json.Marshal(item)
		courses = append(courses, RawCourse{
			CourseCode:        rawString(item["course_code"]),
			CourseName:        rawString(item["course_name"]),
			Credits:           rawCredits(item["credits"]),
			Grade:             rawString(item["grade"]),
			SourceInstitution: rawString(item["source_institution"]),
			Raw:               raw,
		})
	}
	return courses
}

// RankMatches ranks the active catalog against one extracted course.
// Transport failures degrade to synthetic results, malformed output to
// an empty result, so callers always get a usable (possibly empty) list.
func (r *AnthropicRanker) RankMatches(ctx context.Context, course *models.ExtractedCourse, catalog []models.TargetCourse, topN int) []RankedMatch {
	if topN <= 0 || len(catalog) == 0 {
		return nil
	}

	responseText, err := r.complete(ctx, rankingSystemPrompt, buildRankingPrompt(course, catalog, topN))
	if err != nil {
		log.Warn().Err(err).Int("extracted_course_id", course.ExtractedCourseID).Msg("ranking call failed, using synthetic matches")
		return r.synthetic.RankMatches(ctx, course, catalog, topN)
	}

	payload := stripCodeFences(responseText)
	if err := validateModelJSON(rankedMatchesValidator, []byte(payload)); err != nil {
		log.Warn().Err(err).Int("extracted_course_id", course.ExtractedCourseID).Msg("ranking output rejected")
		return nil
	}

	var parsed []RankedMatch
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		log.Warn().Err(err).Int("extracted_course_id", course.ExtractedCourseID).Msg("ranking output unparsable")
		return nil
	}

	known := make(map[int]bool, len(catalog))
	for _, tc := range catalog {
		known[tc.TargetCourseID] = true
	}

	matches := make([]RankedMatch, 0, topN)
	for _, m := range parsed {
		if len(matches) == topN {
			break
		}
		if !known[m.TargetCourseID] {
			log.Warn().Int("target_course_id", m.TargetCourseID).Msg("ranking referenced a course outside the catalog, dropped")
			continue
		}
		if m.SimilarityScore < 0 {
			m.SimilarityScore = 0
		}
		if m.SimilarityScore > 100 {
			m.SimilarityScore = 100
		}
		if m.KeySimilarities == nil {
			m.KeySimilarities = []string{}
		}
		if m.ImportantDifferences == nil {
			m.ImportantDifferences = []string{}
		}
		matches = append(matches, m)
	}
	return matches
}

// ExtractCourseDetails summarizes a syllabus into description and
// learning outcomes. Failures yield empty details.
func (r *AnthropicRanker) ExtractCourseDetails(ctx context.Context, syllabusText string) CourseDetails {
	var b strings.Builder
	b.WriteString("Summarize this course syllabus.\n\nSyllabus text:\n")
	b.WriteString(truncateRunes(syllabusText, maxSyllabusChars))
	b.WriteString("\n\nReturn a JSON object with keys description (2-3 sentences on what the course covers) and learning_outcomes (the outcomes as one newline-separated string). Return only the JSON.")

	responseText, err := r.complete(ctx, syllabusSystemPrompt, b.String())
	if err != nil {
		log.Warn().Err(err).Msg("syllabus details call failed")
		return CourseDetails{}
	}

	payload := stripCodeFences(responseText)
	if err := validateModelJSON(courseDetailsValidator, []byte(payload)); err != nil {
		log.Warn().Err(err).Msg("syllabus details output rejected")
		return CourseDetails{}
	}

	var details CourseDetails
	if err := json.Unmarshal([]byte(payload), &details); err != nil {
		log.Warn().Err(err).Msg("syllabus details output unparsable")
		return CourseDetails{}
	}
	return details
}

func buildRankingPrompt(course *models.ExtractedCourse, catalog []models.TargetCourse, topN int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compare the following transfer course with the catalog below and return the top %d matches.\n\n", topN)

	b.WriteString("TRANSFER COURSE:\n")
	fmt.Fprintf(&b, "- Code: %s\n", orNA(course.CourseCode))
	fmt.Fprintf(&b, "- Name: %s\n", orNA(course.CourseName))
	if course.Credits != nil {
		fmt.Fprintf(&b, "- Credits: %g\n", *course.Credits)
	} else {
		b.WriteString("- Credits: N/A\n")
	}
	fmt.Fprintf(&b, "- Source Institution: %s\n", orNA(course.SourceInstitution))
	if course.CourseDescription != nil {
		fmt.Fprintf(&b, "- Description: %s\n", truncateRunes(*course.CourseDescription, maxSourceDescChars))
	}
	if course.LearningOutcomes != nil {
		fmt.Fprintf(&b, "- Learning Outcomes: %s\n", truncateRunes(*course.LearningOutcomes, maxSourceDescChars))
	}

	b.WriteString("\nCATALOG COURSES:\n")
	for i, tc := range catalog {
		fmt.Fprintf(&b, "\nCourse %d:\n", i+1)
		fmt.Fprintf(&b, "- ID: %d\n", tc.TargetCourseID)
		fmt.Fprintf(&b, "- Code: %s\n", tc.CourseCode)
		fmt.Fprintf(&b, "- Name: %s\n", tc.CourseName)
		fmt.Fprintf(&b, "- Credits: %g\n", tc.Credits)
		fmt.Fprintf(&b, "- Department: %s\n", tc.Department)
		if tc.Description != "" {
			fmt.Fprintf(&b, "- Description: %s\n", truncateRunes(tc.Description, maxCatalogDescChars))
		}
		if tc.LearningOutcomes != "" {
			fmt.Fprintf(&b, "- Learning Outcomes: %s\n", truncateRunes(tc.LearningOutcomes, maxCatalogOutcomes))
		}
	}

	fmt.Fprintf(&b, "\nReturn a JSON array ordered by descending similarity, at most %d entries, each an object with keys target_course_id (the catalog ID above), similarity_score (0-100), explanation, key_similarities (list of strings), important_differences (list of strings). Return only the JSON.", topN)
	return b.String()
}

// stripCodeFences removes a leading/trailing markdown fence the model
// sometimes wraps JSON in despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orNA(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "N/A"
	}
	return *s
}

func rawString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// rawCredits accepts the number the schema prefers and the quoted string
// models sometimes produce anyway.
func rawCredits(raw json.RawMessage) *float64 {
	if raw == nil {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	return nil
}

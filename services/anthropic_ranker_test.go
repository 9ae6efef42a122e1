package services

import (
	"encoding/json"
	"strings"
	"testing"

	"transfer-credit-api/models"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`[{"a":1}]`, `[{"a":1}]`},
		{"```json\n[1,2]\n```", "[1,2]"},
		{"```\n{}\n```", "{}"},
		{"  \n```json\n{\"x\": true}\n```\n ", `{"x": true}`},
		{"", ""},
	}
	for _, c := range cases {
		if got := stripCodeFences(c.in); got != c.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"}, // runes, not bytes
		{"hello", 0, ""},
		{"", 5, ""},
	}
	for _, c := range cases {
		if got := truncateRunes(c.in, c.n); got != c.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestRawCredits(t *testing.T) {
	three := 3.0
	threeAndHalf := 3.5
	cases := []struct {
		raw  string
		want *float64
	}{
		{`3`, &three},
		{`3.5`, &threeAndHalf},
		{`"3.5"`, &threeAndHalf},
		{`" 3.5 "`, &threeAndHalf},
		{`"three"`, nil},
		{`null`, nil},
		{`true`, nil},
	}
	for _, c := range cases {
		got := rawCredits(json.RawMessage(c.raw))
		switch {
		case c.want == nil && got != nil:
			t.Errorf("rawCredits(%s) = %v, want nil", c.raw, *got)
		case c.want != nil && (got == nil || *got != *c.want):
			t.Errorf("rawCredits(%s) = %v, want %v", c.raw, got, *c.want)
		}
	}
	if got := rawCredits(nil); got != nil {
		t.Errorf("rawCredits(nil) = %v, want nil", *got)
	}
}

func TestRawString(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"CS101"`, "CS101"},
		{`"  CS101 "`, "CS101"},
		{`null`, ""},
		{`42`, ""},
	}
	for _, c := range cases {
		if got := rawString(json.RawMessage(c.raw)); got != c.want {
			t.Errorf("rawString(%s) = %q, want %q", c.raw, got, c.want)
		}
	}
	if got := rawString(nil); got != "" {
		t.Errorf("rawString(nil) = %q, want empty", got)
	}
}

func TestOrNA(t *testing.T) {
	code := "CS101"
	blank := "   "
	if got := orNA(&code); got != "CS101" {
		t.Errorf("orNA = %q", got)
	}
	if got := orNA(nil); got != "N/A" {
		t.Errorf("orNA(nil) = %q, want N/A", got)
	}
	if got := orNA(&blank); got != "N/A" {
		t.Errorf("orNA(blank) = %q, want N/A", got)
	}
}

func TestBuildRankingPromptIncludesCatalogIDs(t *testing.T) {
	code := "CS101"
	name := "Introduction to Computer Science"
	credits := 3.0
	course := &models.ExtractedCourse{
		ExtractedCourseID: 1,
		CourseCode:        &code,
		CourseName:        &name,
		Credits:           &credits,
	}
	catalog := []models.TargetCourse{
		{TargetCourseID: 11, CourseCode: "CS110", CourseName: "Programming I", Credits: 3, Department: "CS"},
		{TargetCourseID: 12, CourseCode: "CS120", CourseName: "Programming II", Credits: 3, Department: "CS"},
	}

	prompt := buildRankingPrompt(course, catalog, 5)
	for _, want := range []string{"CS101", "CS110", "CS120", "- ID: 11", "- ID: 12", "top 5"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
	if !strings.Contains(prompt, "N/A") {
		t.Error("prompt does not mark the missing institution as N/A")
	}
}

func TestBuildRankingPromptTruncatesLongDescriptions(t *testing.T) {
	longDesc := strings.Repeat("x", maxSourceDescChars+500)
	code := "CS101"
	course := &models.ExtractedCourse{CourseCode: &code, CourseDescription: &longDesc}

	prompt := buildRankingPrompt(course, []models.TargetCourse{{TargetCourseID: 1}}, 3)
	if strings.Contains(prompt, longDesc) {
		t.Error("prompt carries the untruncated description")
	}
	if !strings.Contains(prompt, strings.Repeat("x", maxSourceDescChars)) {
		t.Error("prompt lost the truncated description prefix")
	}
}

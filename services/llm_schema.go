package services

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schemas the ranking model's JSON output must satisfy before the
// pipeline touches it. Output that fails validation takes the same
// degraded path as output that fails to parse.
const extractedCoursesSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"course_code": {"type": ["string", "null"]},
			"course_name": {"type": ["string", "null"]},
			"credits": {"type": ["number", "string", "null"]},
			"grade": {"type": ["string", "null"]},
			"source_institution": {"type": ["string", "null"]}
		}
	}
}`

const rankedMatchesSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["target_course_id", "similarity_score"],
		"properties": {
			"target_course_id": {"type": "integer"},
			"similarity_score": {"type": "number"},
			"explanation": {"type": ["string", "null"]},
			"key_similarities": {"type": "array", "items": {"type": "string"}},
			"important_differences": {"type": "array", "items": {"type": "string"}}
		}
	}
}`

const courseDetailsSchema = `{
	"type": "object",
	"properties": {
		"description": {"type": ["string", "null"]},
		"learning_outcomes": {"type": ["string", "null"]}
	}
}`

var (
	extractedCoursesValidator = jsonschema.MustCompileString("extracted_courses.json", extractedCoursesSchema)
	rankedMatchesValidator    = jsonschema.MustCompileString("ranked_matches.json", rankedMatchesSchema)
	courseDetailsValidator    = jsonschema.MustCompileString("course_details.json", courseDetailsSchema)
)

// validateModelJSON checks raw model output against a schema.
func validateModelJSON(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal model output: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("model output does not match schema: %w", err)
	}
	return nil
}

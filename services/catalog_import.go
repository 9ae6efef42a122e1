package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
)

// maxImportErrors caps how many row errors an import reports back.
const maxImportErrors = 10

// CatalogImportResult summarizes one bulk import run.
type CatalogImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func (r *CatalogImportResult) addError(msg string) {
	r.Failed++
	if len(r.Errors) < maxImportErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// catalogRow is one parsed spreadsheet or CSV line.
type catalogRow struct {
	line             int
	courseCode       string
	courseName       string
	department       string
	credits          float64
	description      string
	learningOutcomes string
}

// CatalogImportService loads target courses in bulk from spreadsheets
// exported by the registrar.
type CatalogImportService struct {
	db *gorm.DB
}

func NewCatalogImportService(db *gorm.DB) *CatalogImportService {
	if db == nil {
		db = config.DB
	}
	return &CatalogImportService{db: db}
}

// Import reads target courses from a CSV or XLSX document and inserts
// the ones whose course code is not taken yet. Existing codes are
// skipped, never updated. Bad rows are collected instead of aborting the
// run; at most maxImportErrors messages are reported back.
func (s *CatalogImportService) Import(r io.Reader, filename string) (*CatalogImportResult, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		header, rows, err = readCatalogCSV(r)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		header, rows, err = readCatalogXLSX(r)
	default:
		return nil, NewValidationError("unsupported catalog file %q, expected .csv or .xlsx", filename)
	}
	if err != nil {
		return nil, err
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}
	for _, required := range []string{"course_code", "course_name"} {
		if _, ok := cols[required]; !ok {
			return nil, NewValidationError("missing required column %s", required)
		}
	}

	result := &CatalogImportResult{}
	seen := map[string]bool{}
	parsed := make([]catalogRow, 0, len(rows))
	for i, rec := range rows {
		if emptyRow(rec) {
			continue
		}
		line := i + 2 // the header is line 1
		row, err := parseCatalogRow(rec, cols, line)
		if err != nil {
			result.addError(err.Error())
			continue
		}
		key := strings.ToUpper(row.courseCode)
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true
		parsed = append(parsed, row)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range parsed {
			var n int64
			if err := tx.Model(&models.TargetCourse{}).
				Where("course_code = ?", row.courseCode).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				result.Skipped++
				continue
			}
			course := models.TargetCourse{
				CourseCode:       row.courseCode,
				CourseName:       row.courseName,
				Department:       row.department,
				Credits:          row.credits,
				Description:      row.description,
				LearningOutcomes: row.learningOutcomes,
				IsActive:         true,
			}
			if err := tx.Create(&course).Error; err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("filename", filename).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("catalog import finished")
	return result, nil
}

func parseCatalogRow(rec []string, cols map[string]int, line int) (catalogRow, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	row := catalogRow{
		line:             line,
		courseCode:       get("course_code"),
		courseName:       get("course_name"),
		department:       get("department"),
		description:      get("description"),
		learningOutcomes: get("learning_outcomes"),
	}
	if row.courseCode == "" {
		return row, fmt.Errorf("line %d: course_code is empty", line)
	}
	if row.courseName == "" {
		return row, fmt.Errorf("line %d: course_name is empty", line)
	}
	if raw := get("credits"); raw != "" {
		credits, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return row, fmt.Errorf("line %d: bad credits %q", line, raw)
		}
		if credits < 0 {
			return row, fmt.Errorf("line %d: credits cannot be negative", line)
		}
		row.credits = credits
	}
	return row, nil
}

func readCatalogCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, NewValidationError("cannot parse CSV: %v", err)
	}
	if len(records) == 0 {
		return nil, nil, NewValidationError("catalog file is empty")
	}
	return records[0], records[1:], nil
}

func readCatalogXLSX(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, NewValidationError("cannot open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, NewValidationError("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, NewValidationError("catalog sheet is empty")
	}
	return rows[0], rows[1:], nil
}

// normalizeHeader maps spreadsheet headers like "Course Code" onto the
// snake_case column names the importer expects.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func emptyRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

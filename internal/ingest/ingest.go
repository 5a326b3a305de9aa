// Package ingest parses uploaded contact files into valid and invalid
// candidate contacts. It has no storage or network dependencies and can be
// driven by any frontend.
//
// The pipeline is deliberately forgiving about input shape: headers are
// matched by keyword rather than exact name, and the email check is a loose
// shape test rather than full address-grammar validation. Tightening either
// would silently reclassify rows that earlier versions of the dashboard
// accepted, so both are kept as-is.
package ingest

import (
	"path/filepath"
	"regexp"
	"strings"
)

// emailShapeRe is the permissive address-shape check: something without
// whitespace or "@", an "@", a host part, a dot, and a tail. It accepts edge
// cases a strict validator would reject (consecutive dots, IP literals) and
// that is intentional.
var emailShapeRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Contact is a candidate recipient parsed from one data row. Optional fields
// are empty strings when the source file has no matching column; they become
// NULL on the persistence path.
type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Title     string `json:"title,omitempty"`
}

// Result partitions all candidate contacts from one file. Row order within
// each partition matches the order of first appearance in the source.
type Result struct {
	Valid   []Contact `json:"valid"`
	Invalid []Contact `json:"invalid"`
	// Skipped counts non-blank data rows dropped for having a blank email
	// cell. Valid + Invalid + Skipped equals the number of non-blank data
	// rows.
	Skipped int `json:"skipped"`
}

// ProgressFunc receives the running completion percentage, one call per data
// row. Values are non-decreasing and reach exactly 100 on the last row.
type ProgressFunc func(percent float64)

// Ingest parses delimited text content into valid and invalid contacts.
//
// The file extension decides the format: ".csv" is parsed, ".xlsx" is
// recognized but rejected with ErrSpreadsheetUnsupported, anything else fails
// with ErrUnsupportedFormat. The first row is the header; a missing email-like
// header column aborts with ErrMissingEmailColumn and produces no partial
// output.
//
// Ingest is purely functional aside from the progress callback: it performs
// no storage or network side effects. Submission is a separate caller step.
func Ingest(content, fileName string, progress ProgressFunc) (Result, error) {
	if err := CheckFormat(fileName); err != nil {
		return Result{}, err
	}

	rows := parseRows(content)
	if len(rows) == 0 {
		return Result{}, ErrMissingEmailColumn
	}

	cols := ResolveColumns(rows[0])
	if !cols.Has(FieldEmail) {
		return Result{}, ErrMissingEmailColumn
	}

	dataRows := rows[1:]
	// Fully blank rows are dropped before counting so progress percentages
	// are computed against real data rows only.
	kept := dataRows[:0]
	for _, row := range dataRows {
		if !isBlankRow(row) {
			kept = append(kept, row)
		}
	}
	dataRows = kept

	var result Result
	total := len(dataRows)

	for i, row := range dataRows {
		if progress != nil {
			progress(float64(i+1) / float64(total) * 100)
		}

		email := strings.TrimSpace(cell(row, cols.Index(FieldEmail)))
		if email == "" {
			result.Skipped++
			continue
		}

		candidate := Contact{
			Email:     email,
			FirstName: cell(row, cols.Index(FieldFirstName)),
			LastName:  cell(row, cols.Index(FieldLastName)),
			Company:   cell(row, cols.Index(FieldCompany)),
			Title:     cell(row, cols.Index(FieldTitle)),
		}

		if emailShapeRe.MatchString(email) {
			result.Valid = append(result.Valid, candidate)
		} else {
			result.Invalid = append(result.Invalid, candidate)
		}
	}

	return result, nil
}

// CheckFormat validates the upload format by file extension. It exists
// separately from Ingest so callers can reject unsupported files before
// accepting the upload body.
func CheckFormat(fileName string) error {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return nil
	case ".xlsx":
		return ErrSpreadsheetUnsupported
	default:
		return ErrUnsupportedFormat
	}
}

// parseRows splits file content into rows of trimmed, unquoted cells.
// Lines are split on "\n" with a trailing "\r" stripped, cells on ",".
func parseRows(content string) [][]string {
	lines := strings.Split(content, "\n")
	rows := make([][]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ",")
		for i, c := range cells {
			cells[i] = cleanCell(c)
		}
		rows = append(rows, cells)
	}

	return rows
}

// cleanCell trims whitespace and strips one matching pair of surrounding
// double quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

// cell returns the trimmed value at idx, or "" when the column is absent or
// the row is short.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

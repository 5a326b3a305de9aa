package ingest

import "strings"

// Field names a logical contact field that a file column can map to.
type Field string

const (
	FieldEmail     Field = "email"
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldCompany   Field = "company"
	FieldTitle     Field = "title"
)

// fieldKeywords is the ordered list of (field, keyword-set) pairs used for
// header resolution. A header cell maps to a field when its lowercased text
// contains any keyword. The list is ordered and scanned deterministically on
// purpose; this is not a general fuzzy matcher.
var fieldKeywords = []struct {
	field    Field
	keywords []string
}{
	{FieldEmail, []string{"email", "e-mail", "mail"}},
	{FieldFirstName, []string{"first", "fname", "given"}},
	{FieldLastName, []string{"last", "lname", "surname", "family"}},
	{FieldCompany, []string{"company", "organization", "business"}},
	{FieldTitle, []string{"title", "position", "job"}},
}

// ColumnMap associates logical contact fields with zero-based column indexes
// in the source file. Absent fields have no entry.
type ColumnMap map[Field]int

// ResolveColumns derives the column map from a header row. For each field the
// first header cell, left to right, whose lowercased text contains one of the
// field's keywords wins. Resolution is idempotent: the same header always
// yields the same map.
func ResolveColumns(header []string) ColumnMap {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(h)
	}

	cols := make(ColumnMap, len(fieldKeywords))
	for _, fk := range fieldKeywords {
	cells:
		for i, h := range lowered {
			for _, kw := range fk.keywords {
				if strings.Contains(h, kw) {
					cols[fk.field] = i
					break cells
				}
			}
		}
	}

	return cols
}

// Has reports whether the field resolved to a column.
func (c ColumnMap) Has(f Field) bool {
	_, ok := c[f]
	return ok
}

// Index returns the column index for the field, or -1 when absent.
func (c ColumnMap) Index(f Field) int {
	idx, ok := c[f]
	if !ok {
		return -1
	}
	return idx
}

// Package store provides generic collection storage: insert-many, filtered
// select, update-by-key, delete-by-key, and counting over named collections.
//
// The dashboard's services talk to this interface rather than to a specific
// client library so the ingestion logic and the store binding can evolve
// independently. The production binding is Postgres (postgres.go); tests use
// the in-memory implementation (memory.go).
package store

import "context"

// Row is a single record as column name to value pairs. A key present with a
// nil value is written as an explicit NULL, which the contact insert path
// relies on.
type Row map[string]any

// Operator is a comparison operator for filters.
type Operator string

const (
	OpEq Operator = "eq"
	OpIn Operator = "in"
)

// Filter is a single condition on a column. Filters combine with AND.
type Filter struct {
	Column string
	Op     Operator
	Value  any
}

// Order is a single order-by term.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a filtered, ordered selection.
type Query struct {
	// Columns to return; empty means all columns.
	Columns []string
	Filters []Filter
	OrderBy []Order
	// Limit caps the number of rows returned; zero means no limit.
	Limit int
}

// Store is the persistent collection capability the dashboard consumes.
type Store interface {
	// InsertMany inserts all rows into the collection in one statement.
	// Either all rows are inserted or none are.
	InsertMany(ctx context.Context, collection string, rows []Row) error

	// Select returns rows matching the query.
	Select(ctx context.Context, collection string, q Query) ([]Row, error)

	// UpdateByKey sets the given columns on rows where keyColumn equals
	// keyValue and returns the number of rows updated.
	UpdateByKey(ctx context.Context, collection, keyColumn string, keyValue any, set Row) (int64, error)

	// DeleteByKey removes rows where keyColumn equals keyValue and returns
	// the number of rows deleted.
	DeleteByKey(ctx context.Context, collection, keyColumn string, keyValue any) (int64, error)

	// Count returns the number of rows matching the filters.
	Count(ctx context.Context, collection string, filters []Filter) (int64, error)
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store over a pgx connection pool. All identifiers are
// quoted and all values travel as statement parameters; collection and column
// names still come from code, not from users.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// InsertMany inserts all rows in a single multi-row INSERT. Column order is
// taken from the first row's sorted keys; every row must carry the same keys,
// with nil values for explicit NULLs.
func (p *Postgres) InsertMany(ctx context.Context, collection string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	columns := sortedColumns(rows[0])
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdentifier(c)
	}

	var (
		valueLists = make([]string, 0, len(rows))
		args       = make([]any, 0, len(rows)*len(columns))
		argIdx     = 1
	)
	for _, row := range rows {
		placeholders := make([]string, len(columns))
		for i, c := range columns {
			v, ok := row[c]
			if !ok {
				return fmt.Errorf("insert %s: row missing column %q", collection, c)
			}
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, v)
			argIdx++
		}
		valueLists = append(valueLists, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdentifier(collection),
		strings.Join(quoted, ", "),
		strings.Join(valueLists, ", "),
	)

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", collection, err)
	}
	return nil
}

// Select returns rows matching the query as column-to-value maps.
func (p *Postgres) Select(ctx context.Context, collection string, q Query) ([]Row, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			quoted[i] = quoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	where, args := buildWhere(q.Filters, 1)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", cols, quoteIdentifier(collection), where)

	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = quoteIdentifier(o.Column) + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", len(args)+1)
		args = append(args, q.Limit)
	}

	rows, err := p.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("select %s: read values: %w", collection, err)
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}

	return result, nil
}

// UpdateByKey sets the given columns on rows matching the key.
func (p *Postgres) UpdateByKey(ctx context.Context, collection, keyColumn string, keyValue any, set Row) (int64, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("update %s: no columns to set", collection)
	}

	columns := sortedColumns(set)
	assignments := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, c := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(c), i+1)
		args = append(args, set[c])
	}
	args = append(args, keyValue)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdentifier(collection),
		strings.Join(assignments, ", "),
		quoteIdentifier(keyColumn),
		len(args),
	)

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByKey removes rows matching the key.
func (p *Postgres) DeleteByKey(ctx context.Context, collection, keyColumn string, keyValue any) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		quoteIdentifier(collection), quoteIdentifier(keyColumn))

	tag, err := p.pool.Exec(ctx, query, keyValue)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of rows matching the filters.
func (p *Postgres) Count(ctx context.Context, collection string, filters []Filter) (int64, error) {
	where, args := buildWhere(filters, 1)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdentifier(collection), where)

	var count int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// buildWhere renders filters into a WHERE clause with positional parameters
// starting at startArgIndex. Returns "" and no args when there are no filters.
func buildWhere(filters []Filter, startArgIndex int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	var (
		conditions []string
		args       []any
		argIdx     = startArgIndex
	)
	for _, f := range filters {
		switch f.Op {
		case OpIn:
			conditions = append(conditions,
				fmt.Sprintf("%s = ANY($%d)", quoteIdentifier(f.Column), argIdx))
			args = append(args, f.Value)
			argIdx++
		default: // OpEq
			conditions = append(conditions,
				fmt.Sprintf("%s = $%d", quoteIdentifier(f.Column), argIdx))
			args = append(args, f.Value)
			argIdx++
		}
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sortedColumns returns the row's column names in a deterministic order.
func sortedColumns(row Row) []string {
	columns := make([]string, 0, len(row))
	for c := range row {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

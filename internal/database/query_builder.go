package database

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// SortDirection constrains ORDER BY direction to a fixed vocabulary so it can
// never be used to inject arbitrary SQL (§4.2 "no raw user strings ever
// reach a query").
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// OrderBy is a single, allowlist-validated sort clause.
type OrderBy struct {
	Column    string
	Direction SortDirection
}

// BuildOrderByClause renders an ORDER BY clause from orderBys, rejecting any
// column not present in allowedColumns. Column names are normalized to
// snake_case before comparison so callers can pass either Go-field-style or
// column-style names (repositories accept either from higher layers).
func BuildOrderByClause(orderBys []OrderBy, allowedColumns []string) (string, error) {
	if len(orderBys) == 0 {
		return "", nil
	}

	allowed := make(map[string]bool, len(allowedColumns))
	for _, c := range allowedColumns {
		allowed[strcase.ToSnake(c)] = true
	}

	parts := make([]string, 0, len(orderBys))
	for _, ob := range orderBys {
		col := strcase.ToSnake(ob.Column)
		if !allowed[col] {
			return "", fmt.Errorf("order_by column %q is not in the allowlist", ob.Column)
		}
		dir := ob.Direction
		if dir != SortAsc && dir != SortDesc {
			return "", fmt.Errorf("order_by direction %q must be ASC or DESC", ob.Direction)
		}
		parts = append(parts, fmt.Sprintf("%s %s", col, dir))
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// BuildLimitOffset renders a LIMIT/OFFSET clause, clamping negative values
// to zero and an unset limit to "no limit" (limit <= 0 means unlimited).
func BuildLimitOffset(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, "LIMIT %d ", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, "OFFSET %d ", offset)
	}
	return strings.TrimSpace(b.String())
}

// BuildInClause returns a "(?, ?, ...)" placeholder group sized to len(ids)
// and the []any to pass as the matching query arguments. SQLite has no
// native array binding, so batched lookups (photo IDs, tag IDs) build the
// placeholder list explicitly; callers must chunk ids themselves for very
// large sets (§4.2 tag operations chunk at 500).
func BuildInClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(placeholders, ", ") + ")", args
}

// ChunkIDs splits ids into groups of at most size, for statements that must
// stay under SQLite's compiled-statement variable limit (§4.2).
func ChunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = 500
	}
	var chunks [][]int64
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}

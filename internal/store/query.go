// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"fmt"
	"strings"

	"blogapi/internal/pagination"
)

// queryBuilder accumulates $N placeholders and conditions. The same
// builder output feeds both the COUNT and the SELECT of a listing so the
// two can never disagree on the filter.
type queryBuilder struct {
	conds []string
	args  []any
}

// arg registers v and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// where adds a condition. Conditions are ANDed.
func (b *queryBuilder) where(cond string) {
	b.conds = append(b.conds, cond)
}

// search adds a full-text match of term against column.
func (b *queryBuilder) search(column, term string) {
	b.where(fmt.Sprintf("to_tsvector('simple', %s) @@ plainto_tsquery('simple', %s)", column, b.arg(term)))
}

// clause renders the WHERE clause, or "" when there are no conditions.
func (b *queryBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// window renders ORDER BY, LIMIT and OFFSET. Sort fields missing from
// columns fall back to created_at; idColumn breaks ties so pages stay stable.
func (b *queryBuilder) window(q pagination.Sort, columns map[string]string, idColumn string, limit, offset int) string {
	col, ok := columns[q.Field]
	if !ok {
		col = columns["created_at"]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, %s %s LIMIT %s OFFSET %s",
		col, dir, idColumn, dir, b.arg(limit), b.arg(offset))
}

// inList renders "(placeholder, ...)" for values.
func (b *queryBuilder) inList(values []any) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = b.arg(v)
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

// setBuilder collects the assignments of a partial UPDATE.
type setBuilder struct {
	queryBuilder
	sets []string
}

func (b *setBuilder) set(column string, v any) {
	b.sets = append(b.sets, column+" = "+b.arg(v))
}

func (b *setBuilder) empty() bool {
	return len(b.sets) == 0
}

func (b *setBuilder) assignments() string {
	return strings.Join(append(b.sets, "updated_at = NOW()"), ", ")
}

package postgres

import (
	"fmt"
	"strings"
)

// queryBuilder assembles WHERE clauses with positional placeholders the way
// the listing filters need. Conditions are always ANDed.
type queryBuilder struct {
	base  string
	conds []string
	order string
	from  int
	size  int
	args  []any
}

func newQueryBuilder(base string) *queryBuilder {
	return &queryBuilder{base: base, size: 10}
}

// bind registers an argument and returns its placeholder.
func (q *queryBuilder) bind(arg any) string {
	q.args = append(q.args, arg)
	return fmt.Sprintf("$%d", len(q.args))
}

// where appends a condition whose single %s verb is replaced by the
// placeholder for arg.
func (q *queryBuilder) where(format string, arg any) {
	q.and(fmt.Sprintf(format, q.bind(arg)))
}

// and appends an already-formed condition.
func (q *queryBuilder) and(cond string) {
	q.conds = append(q.conds, cond)
}

func (q *queryBuilder) orderBy(order string) {
	q.order = order
}

func (q *queryBuilder) page(from, size int) {
	if from < 0 {
		from = 0
	}
	q.from = from
	q.size = clampSize(size)
}

func (q *queryBuilder) sql() string {
	var b strings.Builder
	b.WriteString(q.base)
	if len(q.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conds, " AND "))
	}
	if q.order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.order)
	}
	fmt.Fprintf(&b, " OFFSET %d LIMIT %d", q.from, q.size)
	return b.String()
}

package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuilder(t *testing.T) {
	t.Run("no_conditions", func(t *testing.T) {
		q := newQueryBuilder("SELECT id FROM events")
		q.page(0, 10)
		assert.Equal(t, "SELECT id FROM events OFFSET 0 LIMIT 10", q.sql())
		assert.Empty(t, q.args)
	})

	t.Run("conditions_and_order", func(t *testing.T) {
		q := newQueryBuilder("SELECT id FROM events")
		q.where("state = %s", "PUBLISHED")
		q.and("event_date > NOW()")
		q.orderBy("event_date ASC")
		q.page(20, 10)

		assert.Equal(t,
			"SELECT id FROM events WHERE state = $1 AND event_date > NOW() ORDER BY event_date ASC OFFSET 20 LIMIT 10",
			q.sql())
		assert.Equal(t, []any{"PUBLISHED"}, q.args)
	})

	t.Run("placeholders_number_in_order", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		q := newQueryBuilder("SELECT id FROM events")
		q.where("state = %s", "PUBLISHED")
		q.where("event_date >= %s", start)
		assert.Contains(t, q.sql(), "state = $1 AND event_date >= $2")
		assert.Len(t, q.args, 2)
	})

	t.Run("page_clamps", func(t *testing.T) {
		q := newQueryBuilder("SELECT id FROM events")
		q.page(-5, 1000)
		assert.Equal(t, "SELECT id FROM events OFFSET 0 LIMIT 100", q.sql())
	})
}

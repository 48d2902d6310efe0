package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `
	id, initiator_id, category_id,
	title, annotation, description,
	event_date, lat, lon,
	paid, participant_limit, request_moderation,
	state, created_on, published_on, updated_at`

// EventRepo persists events. State-changing updates write their outbox
// messages in the same transaction as the event row.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (
			id, initiator_id, category_id,
			title, annotation, description,
			event_date, lat, lon,
			paid, participant_limit, request_moderation,
			state, created_on, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		e.ID, e.InitiatorID, e.CategoryID,
		e.Title, e.Annotation, e.Description,
		e.EventDate, e.Location.Lat, e.Location.Lon,
		e.Paid, e.ParticipantLimit, e.RequestModeration,
		string(e.State), e.CreatedOn, e.UpdatedAt,
	)
	return err
}

func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound(fmt.Sprintf("event %s was not found", id))
	}
	return e, err
}

func (r *EventRepo) Update(ctx context.Context, e *domain.Event, outbox []domain.OutboxMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE events
		SET category_id = $2,
		    title = $3,
		    annotation = $4,
		    description = $5,
		    event_date = $6,
		    lat = $7,
		    lon = $8,
		    paid = $9,
		    participant_limit = $10,
		    request_moderation = $11,
		    state = $12,
		    published_on = $13,
		    updated_at = $14
		WHERE id = $1
	`,
		e.ID, e.CategoryID,
		e.Title, e.Annotation, e.Description,
		e.EventDate, e.Location.Lat, e.Location.Lon,
		e.Paid, e.ParticipantLimit, e.RequestModeration,
		string(e.State), e.PublishedOn, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound(fmt.Sprintf("event %s was not found", e.ID))
	}

	for _, msg := range outbox {
		if err := insertOutbox(ctx, tx, msg); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *EventRepo) ListByInitiator(ctx context.Context, initiatorID uuid.UUID, from, size int) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE initiator_id = $1
		ORDER BY created_on DESC, id DESC
		OFFSET $2 LIMIT $3
	`, initiatorID, from, clampSize(size))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *EventRepo) ListAdmin(ctx context.Context, f domain.AdminFilter) ([]*domain.Event, error) {
	q := newQueryBuilder(`SELECT ` + eventColumns + ` FROM events`)

	if len(f.InitiatorIDs) > 0 {
		q.where("initiator_id = ANY(%s)", f.InitiatorIDs)
	}
	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, s := range f.States {
			states = append(states, string(s))
		}
		q.where("state = ANY(%s)", states)
	}
	if len(f.CategoryIDs) > 0 {
		q.where("category_id = ANY(%s)", f.CategoryIDs)
	}
	if f.RangeStart != nil {
		q.where("event_date >= %s", *f.RangeStart)
	}
	if f.RangeEnd != nil {
		q.where("event_date <= %s", *f.RangeEnd)
	}
	q.orderBy("event_date ASC, id ASC")
	q.page(f.From, f.Size)

	rows, err := r.pool.Query(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *EventRepo) ListPublic(ctx context.Context, f domain.PublicFilter) ([]*domain.Event, error) {
	q := newQueryBuilder(`SELECT ` + eventColumns + ` FROM events`)
	q.where("state = %s", string(domain.StatePublished))

	if f.Text != "" {
		p := q.bind("%" + f.Text + "%")
		q.and(fmt.Sprintf("(title ILIKE %s OR annotation ILIKE %s)", p, p))
	}
	if len(f.CategoryIDs) > 0 {
		q.where("category_id = ANY(%s)", f.CategoryIDs)
	}
	if f.Paid != nil {
		q.where("paid = %s", *f.Paid)
	}
	switch {
	case f.RangeStart == nil && f.RangeEnd == nil:
		// No range means upcoming events only.
		q.and("event_date > NOW()")
	default:
		if f.RangeStart != nil {
			q.where("event_date >= %s", *f.RangeStart)
		}
		if f.RangeEnd != nil {
			q.where("event_date <= %s", *f.RangeEnd)
		}
	}
	if f.OnlyAvailable {
		q.and(`(participant_limit = 0 OR participant_limit > (
			SELECT COUNT(*) FROM requests
			WHERE requests.event_id = events.id AND requests.status = 'CONFIRMED'
		))`)
	}
	q.orderBy("event_date ASC, id ASC")
	q.page(f.From, f.Size)

	rows, err := r.pool.Query(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var state string
	err := row.Scan(
		&e.ID, &e.InitiatorID, &e.CategoryID,
		&e.Title, &e.Annotation, &e.Description,
		&e.EventDate, &e.Location.Lat, &e.Location.Lon,
		&e.Paid, &e.ParticipantLimit, &e.RequestModeration,
		&state, &e.CreatedOn, &e.PublishedOn, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.EventState(state)
	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func clampSize(size int) int {
	if size <= 0 {
		return 10
	}
	if size > 100 {
		return 100
	}
	return size
}

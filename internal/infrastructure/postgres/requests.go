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

const requestColumns = `id, event_id, requester_id, status, created_on`

// RequestRepo persists participation requests. Admission writes go through
// WithEventLock so concurrent requests on the same event serialize on the
// event row.
type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

// WithEventLock opens a transaction, takes a FOR UPDATE lock on the event row
// and runs fn against a transaction-scoped view. The lock is the only
// serialization point for admissions: counts read inside fn cannot race a
// concurrent admission on the same event.
func (r *RequestRepo) WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(tx domain.AdmissionTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound(fmt.Sprintf("event %s was not found", eventID))
	}
	if err != nil {
		return err
	}

	if err := fn(&admissionTx{tx: tx, event: e}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// admissionTx scopes all request reads and writes to the locked event.
type admissionTx struct {
	tx    pgx.Tx
	event *domain.Event
}

func (a *admissionTx) Event() *domain.Event { return a.event }

func (a *admissionTx) CountByStatus(ctx context.Context, status domain.RequestStatus) (int, error) {
	var n int
	err := a.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM requests WHERE event_id = $1 AND status = $2
	`, a.event.ID, string(status)).Scan(&n)
	return n, err
}

func (a *admissionTx) ExistsActive(ctx context.Context, requesterID uuid.UUID) (bool, error) {
	var exists bool
	err := a.tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM requests
			WHERE event_id = $1 AND requester_id = $2 AND status <> 'CANCELED'
		)
	`, a.event.ID, requesterID).Scan(&exists)
	return exists, err
}

func (a *admissionTx) ListPending(ctx context.Context) ([]*domain.Request, error) {
	rows, err := a.tx.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE event_id = $1 AND status = 'PENDING'
		ORDER BY created_on ASC, id ASC
		FOR UPDATE
	`, a.event.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (a *admissionTx) GetAll(ctx context.Context, ids []uuid.UUID) ([]*domain.Request, error) {
	rows, err := a.tx.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE event_id = $1 AND id = ANY($2)
		FOR UPDATE
	`, a.event.ID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	got, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*domain.Request, len(got))
	for _, req := range got {
		byID[req.ID] = req
	}
	out := make([]*domain.Request, 0, len(ids))
	for _, id := range ids {
		req, ok := byID[id]
		if !ok {
			return nil, domain.ErrNotFound(fmt.Sprintf("request %s was not found", id))
		}
		out = append(out, req)
	}
	return out, nil
}

func (a *admissionTx) Insert(ctx context.Context, req *domain.Request) error {
	_, err := a.tx.Exec(ctx, `
		INSERT INTO requests (id, event_id, requester_id, status, created_on)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ID, req.EventID, req.RequesterID, string(req.Status), req.CreatedOn)
	return err
}

func (a *admissionTx) SaveAll(ctx context.Context, rs []*domain.Request) error {
	batch := &pgx.Batch{}
	for _, req := range rs {
		batch.Queue(`UPDATE requests SET status = $2 WHERE id = $1`, req.ID, string(req.Status))
	}
	return a.tx.SendBatch(ctx, batch).Close()
}

func (a *admissionTx) AppendOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	return insertOutbox(ctx, a.tx, msg)
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound(fmt.Sprintf("request %s was not found", id))
	}
	return req, err
}

func (r *RequestRepo) Update(ctx context.Context, req *domain.Request) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE requests SET status = $2 WHERE id = $1
	`, req.ID, string(req.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound(fmt.Sprintf("request %s was not found", req.ID))
	}
	return nil
}

func (r *RequestRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*domain.Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE requester_id = $1
		ORDER BY created_on DESC, id DESC
	`, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *RequestRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE event_id = $1
		ORDER BY created_on ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *RequestRepo) CountByEventAndStatus(ctx context.Context, eventID uuid.UUID, status domain.RequestStatus) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM requests WHERE event_id = $1 AND status = $2
	`, eventID, string(status)).Scan(&n)
	return n, err
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	var status string
	err := row.Scan(&req.ID, &req.EventID, &req.RequesterID, &status, &req.CreatedOn)
	if err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]*domain.Request, error) {
	var out []*domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

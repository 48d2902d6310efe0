package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/google/uuid"
)

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

// memStore is a single in-memory backing store; the per-port repository
// types below share it. WithEventLock serializes on the store mutex,
// mirroring the per-event row lock.
type memStore struct {
	mu         sync.Mutex
	events     map[uuid.UUID]*domain.Event
	requests   map[uuid.UUID]*domain.Request
	users      map[uuid.UUID]*domain.User
	categories map[uuid.UUID]*domain.Category
	outbox     []domain.OutboxMessage
}

func newMemStore() *memStore {
	return &memStore{
		events:     map[uuid.UUID]*domain.Event{},
		requests:   map[uuid.UUID]*domain.Request{},
		users:      map[uuid.UUID]*domain.User{},
		categories: map[uuid.UUID]*domain.Category{},
	}
}

func (m *memStore) seedUser() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = &domain.User{ID: id, Name: "user", Email: "user@example.com"}
	return id
}

func (m *memStore) seedCategory() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.categories[id] = &domain.Category{ID: id, Name: "concerts"}
	return id
}

// --- domain.EventRepository ---

type eventRepo struct{ s *memStore }

func (r eventRepo) Create(ctx context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[e.ID] = e
	return nil
}

func (r eventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound(fmt.Sprintf("event %s was not found", id))
	}
	return e, nil
}

func (r eventRepo) Update(ctx context.Context, e *domain.Event, outbox []domain.OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[e.ID] = e
	r.s.outbox = append(r.s.outbox, outbox...)
	return nil
}

func (r eventRepo) ListByInitiator(ctx context.Context, initiatorID uuid.UUID, from, size int) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.s.events {
		if e.InitiatorID == initiatorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r eventRepo) ListAdmin(ctx context.Context, f domain.AdminFilter) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.s.events {
		out = append(out, e)
	}
	return out, nil
}

func (r eventRepo) ListPublic(ctx context.Context, f domain.PublicFilter) ([]*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.s.events {
		if e.State == domain.StatePublished {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- domain.RequestRepository ---

type requestRepo struct{ s *memStore }

type memTx struct {
	s     *memStore
	event *domain.Event
}

func (r requestRepo) WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(tx domain.AdmissionTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[eventID]
	if !ok {
		return domain.ErrNotFound(fmt.Sprintf("event %s was not found", eventID))
	}
	return fn(&memTx{s: r.s, event: e})
}

func (t *memTx) Event() *domain.Event { return t.event }

func (t *memTx) CountByStatus(ctx context.Context, status domain.RequestStatus) (int, error) {
	n := 0
	for _, r := range t.s.requests {
		if r.EventID == t.event.ID && r.Status == status {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ExistsActive(ctx context.Context, requesterID uuid.UUID) (bool, error) {
	for _, r := range t.s.requests {
		if r.EventID == t.event.ID && r.RequesterID == requesterID && r.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) ListPending(ctx context.Context) ([]*domain.Request, error) {
	var out []*domain.Request
	for _, r := range t.s.requests {
		if r.EventID == t.event.ID && r.Status == domain.RequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) GetAll(ctx context.Context, ids []uuid.UUID) ([]*domain.Request, error) {
	out := make([]*domain.Request, 0, len(ids))
	for _, id := range ids {
		r, ok := t.s.requests[id]
		if !ok {
			return nil, domain.ErrNotFound(fmt.Sprintf("request %s was not found", id))
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *memTx) Insert(ctx context.Context, r *domain.Request) error {
	t.s.requests[r.ID] = r
	return nil
}

func (t *memTx) SaveAll(ctx context.Context, rs []*domain.Request) error {
	for _, r := range rs {
		t.s.requests[r.ID] = r
	}
	return nil
}

func (t *memTx) AppendOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	t.s.outbox = append(t.s.outbox, msg)
	return nil
}

func (r requestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound(fmt.Sprintf("request %s was not found", id))
	}
	return req, nil
}

func (r requestRepo) Update(ctx context.Context, req *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.requests[req.ID] = req
	return nil
}

func (r requestRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*domain.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Request
	for _, req := range r.s.requests {
		if req.RequesterID == requesterID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r requestRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Request
	for _, req := range r.s.requests {
		if req.EventID == eventID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r requestRepo) CountByEventAndStatus(ctx context.Context, eventID uuid.UUID, status domain.RequestStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, req := range r.s.requests {
		if req.EventID == eventID && req.Status == status {
			n++
		}
	}
	return n, nil
}

// --- lookup repositories ---

type userRepo struct{ s *memStore }

func (u userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	usr, ok := u.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound(fmt.Sprintf("user %s was not found", id))
	}
	return usr, nil
}

type categoryRepo struct{ s *memStore }

func (c categoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cat, ok := c.s.categories[id]
	if !ok {
		return nil, domain.ErrNotFound(fmt.Sprintf("category %s was not found", id))
	}
	return cat, nil
}

// --- stats ---

type fakeStats struct {
	mu    sync.Mutex
	hits  []domain.EndpointHit
	views map[string]int64
	err   error
}

func (f *fakeStats) Hit(ctx context.Context, hit domain.EndpointHit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, hit)
	return nil
}

func (f *fakeStats) Views(ctx context.Context, uris []string, start, end time.Time, unique bool) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]int64{}
	for _, u := range uris {
		if v, ok := f.views[u]; ok {
			out[u] = v
		}
	}
	return out, nil
}

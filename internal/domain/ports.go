package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrCacheMiss = errors.New("cache miss")

// OutboxMessage is a pending domain event written in the same transaction as
// the state change it describes.
type OutboxMessage struct {
	MessageID  uuid.UUID
	RoutingKey string
	Payload    []byte
	OccurredAt time.Time
}

type AdminFilter struct {
	InitiatorIDs []uuid.UUID
	States       []EventState
	CategoryIDs  []uuid.UUID
	RangeStart   *time.Time
	RangeEnd     *time.Time
	From         int
	Size         int
}

type PublicFilter struct {
	Text          string
	CategoryIDs   []uuid.UUID
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	From          int
	Size          int
}

type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// Update persists the event and the given outbox messages atomically.
	Update(ctx context.Context, e *Event, outbox []OutboxMessage) error

	ListByInitiator(ctx context.Context, initiatorID uuid.UUID, from, size int) ([]*Event, error)
	ListAdmin(ctx context.Context, f AdminFilter) ([]*Event, error)
	ListPublic(ctx context.Context, f PublicFilter) ([]*Event, error)
}

// AdmissionTx is the transaction-scoped view the admission engine works
// against. The event row is locked for the lifetime of the transaction, so
// counts observed through it cannot race concurrent admissions on the same
// event.
type AdmissionTx interface {
	Event() *Event

	CountByStatus(ctx context.Context, status RequestStatus) (int, error)
	ExistsActive(ctx context.Context, requesterID uuid.UUID) (bool, error)
	ListPending(ctx context.Context) ([]*Request, error)
	GetAll(ctx context.Context, ids []uuid.UUID) ([]*Request, error)

	Insert(ctx context.Context, r *Request) error
	SaveAll(ctx context.Context, rs []*Request) error
	AppendOutbox(ctx context.Context, msg OutboxMessage) error
}

type RequestRepository interface {
	// WithEventLock runs fn inside a transaction holding a row lock on the
	// event; admission writes happen only through it.
	WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(tx AdmissionTx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	Update(ctx context.Context, r *Request) error
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*Request, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Request, error)
	CountByEventAndStatus(ctx context.Context, eventID uuid.UUID, status RequestStatus) (int, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type CategoryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
}

// EndpointHit is a single recorded access to a public endpoint.
type EndpointHit struct {
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

// StatsClient talks to the hit-logging collaborator. Views is best-effort:
// callers treat an error or a missing URI as zero views.
type StatsClient interface {
	Hit(ctx context.Context, hit EndpointHit) error
	Views(ctx context.Context, uris []string, start, end time.Time, unique bool) (map[string]int64, error)
}

// EventSnapshot is the cached subset of an event the admission fast path
// consults before touching postgres.
type EventSnapshot struct {
	State            EventState
	ParticipantLimit int
}

type SnapshotCache interface {
	GetEventSnapshot(ctx context.Context, eventID uuid.UUID) (EventSnapshot, error)
	SetEventSnapshot(ctx context.Context, eventID uuid.UUID, snap EventSnapshot) error

	AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error)
}

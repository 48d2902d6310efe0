package service

import (
	"context"
	"fmt"

	"github.com/citymeet/eventhub/internal/audit"
	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/metrics"
	"github.com/citymeet/eventhub/internal/pkg/logger"
	"github.com/google/uuid"
)

const (
	actorOwner = "owner"
	actorAdmin = "admin"
)

// EventService owns the event lifecycle: creation, owner and admin updates,
// and the read paths that compose stored events with confirmed-request and
// view counts.
type EventService struct {
	events     domain.EventRepository
	requests   domain.RequestRepository
	users      domain.UserRepository
	categories domain.CategoryRepository
	stats      domain.StatsClient
	cache      domain.SnapshotCache
	audit      *audit.Logger
	clock      Clock
}

func NewEventService(
	events domain.EventRepository,
	requests domain.RequestRepository,
	users domain.UserRepository,
	categories domain.CategoryRepository,
	stats domain.StatsClient,
	cache domain.SnapshotCache,
	auditLog *audit.Logger,
	clock Clock,
) *EventService {
	return &EventService{
		events:     events,
		requests:   requests,
		users:      users,
		categories: categories,
		stats:      stats,
		cache:      cache,
		audit:      auditLog,
		clock:      clock,
	}
}

func (s *EventService) Create(ctx context.Context, initiatorID uuid.UUID, in domain.NewEventInput, categoryID uuid.UUID) (*EventView, error) {
	if _, err := s.users.GetByID(ctx, initiatorID); err != nil {
		return nil, err
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}

	e, err := domain.NewEvent(initiatorID, categoryID, in, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}

	s.audit.EventCreated(ctx, e.ID, initiatorID)
	s.storeSnapshot(ctx, e)

	// A brand-new event has no requests and no recorded hits.
	return &EventView{Event: e}, nil
}

func (s *EventService) UpdateByOwner(ctx context.Context, userID, eventID uuid.UUID, patch domain.EventPatch, action *domain.OwnerAction) (*EventView, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	// Cross-tenant access is reported as not-found to avoid confirming the
	// event's existence.
	if e.InitiatorID != userID {
		return nil, domain.ErrNotFound(fmt.Sprintf("event %s was not found", eventID))
	}
	return s.applyUpdate(ctx, e, patch, func() error {
		return e.ApplyOwnerUpdate(patch, action, s.clock.Now())
	}, actorOwner)
}

func (s *EventService) UpdateByAdmin(ctx context.Context, eventID uuid.UUID, patch domain.EventPatch, action *domain.AdminAction) (*EventView, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, e, patch, func() error {
		return e.ApplyAdminUpdate(patch, action, s.clock.Now())
	}, actorAdmin)
}

func (s *EventService) applyUpdate(ctx context.Context, e *domain.Event, patch domain.EventPatch, apply func() error, actor string) (*EventView, error) {
	if patch.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	prevState := e.State
	if err := apply(); err != nil {
		return nil, err
	}

	var outbox []domain.OutboxMessage
	if e.State != prevState {
		switch e.State {
		case domain.StatePublished:
			msg, err := newOutboxMessage(ctx, RKEventPublished, e.UpdatedAt, eventStatePayload(e))
			if err != nil {
				return nil, err
			}
			outbox = append(outbox, msg)
		case domain.StateCanceled:
			msg, err := newOutboxMessage(ctx, RKEventCanceled, e.UpdatedAt, eventStatePayload(e))
			if err != nil {
				return nil, err
			}
			outbox = append(outbox, msg)
		}
	}

	if err := s.events.Update(ctx, e, outbox); err != nil {
		return nil, err
	}

	if e.State != prevState {
		s.audit.EventStateChanged(ctx, e.ID, prevState, e.State, actor)
		metrics.RecordStateTransition(string(e.State))
	}
	s.storeSnapshot(ctx, e)

	return s.composeOne(ctx, e)
}

// storeSnapshot refreshes the cached state/limit the admission fast path
// reads. Best-effort: a cache failure never fails the update.
func (s *EventService) storeSnapshot(ctx context.Context, e *domain.Event) {
	if s.cache == nil {
		return
	}
	snap := domain.EventSnapshot{State: e.State, ParticipantLimit: e.ParticipantLimit}
	if err := s.cache.SetEventSnapshot(ctx, e.ID, snap); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("event_id", e.ID.String()).Msg("snapshot store failed")
	}
}

func (s *EventService) GetOwn(ctx context.Context, userID, eventID uuid.UUID) (*EventView, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.InitiatorID != userID {
		return nil, domain.ErrNotFound(fmt.Sprintf("event %s was not found", eventID))
	}
	return s.composeOne(ctx, e)
}

func (s *EventService) ListOwn(ctx context.Context, userID uuid.UUID, from, size int) ([]*EventView, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByInitiator(ctx, userID, from, size)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, events)
}

func (s *EventService) ListAdmin(ctx context.Context, f domain.AdminFilter) ([]*EventView, error) {
	events, err := s.events.ListAdmin(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, events)
}

// ListPublic returns published events matching the filter and records one hit
// against the public listing URI.
func (s *EventService) ListPublic(ctx context.Context, f domain.PublicFilter, clientIP string) ([]*EventView, error) {
	if f.RangeStart != nil && f.RangeEnd != nil && f.RangeStart.After(*f.RangeEnd) {
		return nil, domain.ErrValidation("rangeStart must be before rangeEnd")
	}

	events, err := s.events.ListPublic(ctx, f)
	if err != nil {
		return nil, err
	}

	s.recordHit(ctx, eventsURI, clientIP)
	return s.compose(ctx, events)
}

// GetPublic returns a published event's detail view. The access itself is
// recorded as a hit, and the returned view count includes it.
func (s *EventService) GetPublic(ctx context.Context, eventID uuid.UUID, clientIP string) (*EventView, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.State != domain.StatePublished {
		return nil, domain.ErrNotFound(fmt.Sprintf("event %s was not found", eventID))
	}

	s.recordHit(ctx, eventURI(e.ID), clientIP)

	view, err := s.composeOne(ctx, e)
	if err != nil {
		return nil, err
	}
	// The hit above may not be visible in the stats service yet; count the
	// current access explicitly so the reader sees their own view.
	view.Views++
	return view, nil
}

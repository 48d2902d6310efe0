package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/citymeet/eventhub/internal/audit"
	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/metrics"
	"github.com/citymeet/eventhub/internal/pkg/logger"
	"github.com/google/uuid"
)

// RequestService owns the participation-request state machine: admission on
// create, requester cancellation, and the owner's batch decision with the
// overflow cascade.
type RequestService struct {
	requests domain.RequestRepository
	events   domain.EventRepository
	users    domain.UserRepository
	cache    domain.SnapshotCache
	audit    *audit.Logger
	clock    Clock
}

func NewRequestService(
	requests domain.RequestRepository,
	events domain.EventRepository,
	users domain.UserRepository,
	cache domain.SnapshotCache,
	auditLog *audit.Logger,
	clock Clock,
) *RequestService {
	return &RequestService{
		requests: requests,
		events:   events,
		users:    users,
		cache:    cache,
		audit:    auditLog,
		clock:    clock,
	}
}

// StatusChangeResult reports the outcome of a batch decision, including
// requests rejected by the overflow cascade.
type StatusChangeResult struct {
	Confirmed []*domain.Request
	Rejected  []*domain.Request
}

// Create admits a user into an event's participation flow. All checks and the
// insert run under the event row lock so concurrent admissions on the same
// event serialize.
func (s *RequestService) Create(ctx context.Context, requesterID, eventID uuid.UUID) (*domain.Request, error) {
	if eventID == uuid.Nil {
		return nil, domain.ErrValidation("event id is required")
	}
	if _, err := s.users.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}

	// Fast-fail on the cached snapshot; cache trouble falls through to
	// postgres.
	if s.cache != nil {
		snap, err := s.cache.GetEventSnapshot(ctx, eventID)
		if err == nil && snap.State != domain.StatePublished {
			return nil, domain.ErrConflict("event is not published")
		} else if err != nil && !errors.Is(err, domain.ErrCacheMiss) {
			logger.WithCtx(ctx).Warn().Err(err).Msg("snapshot read failed, ignoring")
		}
	}

	var req *domain.Request
	err := s.requests.WithEventLock(ctx, eventID, func(tx domain.AdmissionTx) error {
		e := tx.Event()

		if e.InitiatorID == requesterID {
			return domain.ErrConflict("cannot request participation in your own event")
		}
		if e.State != domain.StatePublished {
			return domain.ErrConflict("event is not published")
		}

		exists, err := tx.ExistsActive(ctx, requesterID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrConflict("already requested participation in this event")
		}

		if e.ParticipantLimit > 0 {
			confirmed, err := tx.CountByStatus(ctx, domain.RequestConfirmed)
			if err != nil {
				return err
			}
			if confirmed >= e.ParticipantLimit {
				return domain.ErrConflict("the participation limit has been reached")
			}
		}

		req = domain.NewRequest(eventID, requesterID, domain.AdmissionStatus(e.ParticipantLimit, e.RequestModeration), s.clock.Now())
		if err := tx.Insert(ctx, req); err != nil {
			return err
		}

		if req.Status == domain.RequestConfirmed {
			msg, err := newOutboxMessage(ctx, RKRequestConfirmed, req.CreatedOn, requestStatePayload(req))
			if err != nil {
				return err
			}
			return tx.AppendOutbox(ctx, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RequestCreated(ctx, req.ID, eventID, requesterID, req.Status)
	metrics.RecordAdmission(string(req.Status))
	return req, nil
}

// Cancel lets a requester withdraw their own request. Confirmed seats cannot
// be self-released; they only free up through the rejection paths.
func (s *RequestService) Cancel(ctx context.Context, userID, requestID uuid.UUID) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != userID {
		return nil, domain.ErrNotFound(fmt.Sprintf("request %s was not found", requestID))
	}
	if req.Status == domain.RequestConfirmed {
		return nil, domain.ErrConflict("confirmed requests cannot be canceled")
	}

	req.Status = domain.RequestCanceled
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.audit.RequestCanceled(ctx, req.ID, userID)
	return req, nil
}

func (s *RequestService) ListOwn(ctx context.Context, userID uuid.UUID) ([]*domain.Request, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.requests.ListByRequester(ctx, userID)
}

// ListForEvent returns all requests for an event the caller initiated.
func (s *RequestService) ListForEvent(ctx context.Context, ownerID, eventID uuid.UUID) ([]*domain.Request, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.InitiatorID != ownerID {
		return nil, domain.ErrNotFound(fmt.Sprintf("event %s was not found", eventID))
	}
	return s.requests.ListByEvent(ctx, eventID)
}

// ChangeStatus applies the owner's decision to a batch of pending requests.
// Precondition failures abort the whole batch; a confirmation that fills the
// event triggers the overflow cascade, rejecting every remaining pending
// request so none is left waiting for a seat that cannot exist.
func (s *RequestService) ChangeStatus(ctx context.Context, ownerID, eventID uuid.UUID, requestIDs []uuid.UUID, target domain.RequestStatus) (*StatusChangeResult, error) {
	if target != domain.RequestConfirmed && target != domain.RequestRejected {
		return nil, domain.ErrValidation(fmt.Sprintf("target status must be CONFIRMED or REJECTED, got %s", target))
	}
	if len(requestIDs) == 0 {
		return nil, domain.ErrValidation("request ids are required")
	}

	result := &StatusChangeResult{}
	var cascaded int

	err := s.requests.WithEventLock(ctx, eventID, func(tx domain.AdmissionTx) error {
		e := tx.Event()
		if e.InitiatorID != ownerID {
			return domain.ErrNotFound(fmt.Sprintf("event %s was not found", eventID))
		}

		batch, err := tx.GetAll(ctx, requestIDs)
		if err != nil {
			return err
		}
		for _, r := range batch {
			if r.Status != domain.RequestPending {
				return domain.ErrConflict("request must have status PENDING")
			}
		}

		confirmedBefore := 0
		if target == domain.RequestConfirmed && e.ParticipantLimit > 0 {
			confirmedBefore, err = tx.CountByStatus(ctx, domain.RequestConfirmed)
			if err != nil {
				return err
			}
			if confirmedBefore >= e.ParticipantLimit {
				return domain.ErrConflict("the participation limit has been reached")
			}
		}

		for _, r := range batch {
			r.Status = target
			if target == domain.RequestConfirmed {
				result.Confirmed = append(result.Confirmed, r)
			} else {
				result.Rejected = append(result.Rejected, r)
			}
		}
		if err := tx.SaveAll(ctx, batch); err != nil {
			return err
		}

		if target == domain.RequestConfirmed && e.ParticipantLimit > 0 &&
			confirmedBefore+len(result.Confirmed) >= e.ParticipantLimit {
			remaining, err := tx.ListPending(ctx)
			if err != nil {
				return err
			}
			for _, r := range remaining {
				r.Status = domain.RequestRejected
			}
			if len(remaining) > 0 {
				if err := tx.SaveAll(ctx, remaining); err != nil {
					return err
				}
				result.Rejected = append(result.Rejected, remaining...)
				cascaded = len(remaining)
			}
		}

		now := s.clock.Now()
		for _, r := range result.Confirmed {
			msg, err := newOutboxMessage(ctx, RKRequestConfirmed, now, requestStatePayload(r))
			if err != nil {
				return err
			}
			if err := tx.AppendOutbox(ctx, msg); err != nil {
				return err
			}
		}
		for _, r := range result.Rejected {
			msg, err := newOutboxMessage(ctx, RKRequestRejected, now, requestStatePayload(r))
			if err != nil {
				return err
			}
			if err := tx.AppendOutbox(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RequestsDecided(ctx, eventID, len(result.Confirmed), len(result.Rejected))
	if cascaded > 0 {
		s.audit.OverflowCascade(ctx, eventID, cascaded)
		metrics.RecordCascadeRejections(cascaded)
	}
	return result, nil
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventState string

const (
	StatePending   EventState = "PENDING"
	StatePublished EventState = "PUBLISHED"
	StateCanceled  EventState = "CANCELED"
)

func (s EventState) Valid() bool {
	return s == StatePending || s == StatePublished || s == StateCanceled
}

// Minimum distance between "now" and the event date. Owners get the longer
// window; admin edits are considered more trusted and urgent.
const (
	OwnerLeadTime = 2 * time.Hour
	AdminLeadTime = 1 * time.Hour
)

// OwnerAction is the closed set of state actions an event's initiator may request.
type OwnerAction string

const (
	OwnerSendToReview OwnerAction = "SEND_TO_REVIEW"
	OwnerCancelReview OwnerAction = "CANCEL_REVIEW"
)

func (a OwnerAction) Valid() bool {
	return a == OwnerSendToReview || a == OwnerCancelReview
}

// AdminAction is the closed set of state actions an administrator may request.
type AdminAction string

const (
	AdminPublish AdminAction = "PUBLISH_EVENT"
	AdminReject  AdminAction = "REJECT_EVENT"
)

func (a AdminAction) Valid() bool {
	return a == AdminPublish || a == AdminReject
}

type Location struct {
	Lat float64
	Lon float64
}

type Event struct {
	ID          uuid.UUID
	InitiatorID uuid.UUID
	CategoryID  uuid.UUID

	Title       string
	Annotation  string
	Description string
	EventDate   time.Time
	Location    Location

	Paid              bool
	ParticipantLimit  int // 0 = unlimited
	RequestModeration bool

	State       EventState
	CreatedOn   time.Time
	PublishedOn *time.Time
	UpdatedAt   time.Time
}

// NewEventInput carries the caller-supplied fields for event creation.
// Nil pointer fields take the documented defaults (paid=false, limit=0,
// moderation=true).
type NewEventInput struct {
	Title       string
	Annotation  string
	Description string
	EventDate   time.Time
	Location    Location

	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
}

func NewEvent(initiatorID, categoryID uuid.UUID, in NewEventInput, now time.Time) (*Event, error) {
	title := strings.TrimSpace(in.Title)
	annotation := strings.TrimSpace(in.Annotation)
	description := strings.TrimSpace(in.Description)

	if initiatorID == uuid.Nil {
		return nil, ErrValidation("initiator id is required")
	}
	if categoryID == uuid.Nil {
		return nil, ErrValidation("category id is required")
	}
	if title == "" || len(title) > 120 {
		return nil, ErrValidation("title is required and must be <= 120 chars")
	}
	if annotation == "" || len(annotation) > 2000 {
		return nil, ErrValidation("annotation is required and must be <= 2000 chars")
	}
	if description == "" || len(description) > 7000 {
		return nil, ErrValidation("description is required and must be <= 7000 chars")
	}
	if err := checkLeadTime(in.EventDate, now, OwnerLeadTime); err != nil {
		return nil, err
	}

	paid := false
	if in.Paid != nil {
		paid = *in.Paid
	}
	limit := 0
	if in.ParticipantLimit != nil {
		if *in.ParticipantLimit < 0 {
			return nil, ErrValidation("participant limit must be >= 0 (0 means unlimited)")
		}
		limit = *in.ParticipantLimit
	}
	moderation := true
	if in.RequestModeration != nil {
		moderation = *in.RequestModeration
	}

	return &Event{
		ID:                uuid.New(),
		InitiatorID:       initiatorID,
		CategoryID:        categoryID,
		Title:             title,
		Annotation:        annotation,
		Description:       description,
		EventDate:         in.EventDate.UTC(),
		Location:          in.Location,
		Paid:              paid,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		State:             StatePending,
		CreatedOn:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}, nil
}

// EventPatch is a partial update: nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Annotation  *string
	Description *string
	CategoryID  *uuid.UUID
	EventDate   *time.Time
	Location    *Location
	Paid        *bool

	ParticipantLimit  *int
	RequestModeration *bool
}

// ApplyOwnerUpdate mutates the event on behalf of its initiator.
// Published events are immutable to owners. A structurally valid action
// applied in the wrong state is a no-op (re-sending to review while already
// pending is treated as idempotent, matching the moderation UI's retry
// behavior).
func (e *Event) ApplyOwnerUpdate(patch EventPatch, action *OwnerAction, now time.Time) error {
	if e.State == StatePublished {
		return ErrConflict("published events cannot be updated by their owner")
	}
	if patch.EventDate != nil {
		if err := checkLeadTime(*patch.EventDate, now, OwnerLeadTime); err != nil {
			return err
		}
	}
	if patch.ParticipantLimit != nil && *patch.ParticipantLimit < 0 {
		return ErrValidation("participant limit must be >= 0 (0 means unlimited)")
	}

	if action != nil {
		if !action.Valid() {
			return ErrConflict(fmt.Sprintf("invalid state action: %s", *action))
		}
		switch *action {
		case OwnerSendToReview:
			if e.State == StateCanceled {
				e.State = StatePending
			}
		case OwnerCancelReview:
			if e.State == StatePending {
				e.State = StateCanceled
			}
		}
	}

	e.applyPatch(patch)
	e.UpdatedAt = now.UTC()
	return nil
}

// ApplyAdminUpdate mutates the event on behalf of an administrator. Admins may
// edit fields in any state; the state actions themselves are gated.
func (e *Event) ApplyAdminUpdate(patch EventPatch, action *AdminAction, now time.Time) error {
	if patch.EventDate != nil {
		if err := checkLeadTime(*patch.EventDate, now, AdminLeadTime); err != nil {
			return err
		}
	}
	if patch.ParticipantLimit != nil && *patch.ParticipantLimit < 0 {
		return ErrValidation("participant limit must be >= 0 (0 means unlimited)")
	}

	if action != nil {
		if !action.Valid() {
			return ErrConflict(fmt.Sprintf("invalid state action: %s", *action))
		}
		switch *action {
		case AdminPublish:
			if e.State != StatePending {
				return ErrConflict(fmt.Sprintf("cannot publish event in state %s", e.State))
			}
			t := now.UTC()
			e.State = StatePublished
			e.PublishedOn = &t
		case AdminReject:
			if e.State == StatePublished {
				return ErrConflict("cannot reject a published event")
			}
			e.State = StateCanceled
		}
	}

	e.applyPatch(patch)
	e.UpdatedAt = now.UTC()
	return nil
}

func (e *Event) applyPatch(p EventPatch) {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Annotation != nil {
		e.Annotation = strings.TrimSpace(*p.Annotation)
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.EventDate != nil {
		e.EventDate = p.EventDate.UTC()
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		e.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
}

func checkLeadTime(eventDate, now time.Time, lead time.Duration) error {
	if eventDate.Before(now.Add(lead)) {
		return ErrValidationMeta("event date is too soon", map[string]string{
			"event_date": fmt.Sprintf("must be at least %s from now", lead),
		})
	}
	return nil
}

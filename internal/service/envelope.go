package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/pkg/reqctx"
	"github.com/google/uuid"
)

const (
	envelopeVersion = 1
	eventProducer   = "eventhub"

	RKEventPublished   = "event.published"
	RKEventCanceled    = "event.canceled"
	RKRequestConfirmed = "request.confirmed"
	RKRequestRejected  = "request.rejected"
)

// Envelope wraps every outbound domain event.
type Envelope struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	MessageID  string    `json:"message_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type EventStatePayload struct {
	EventID          string    `json:"event_id"`
	InitiatorID      string    `json:"initiator_id"`
	Title            string    `json:"title"`
	EventDate        time.Time `json:"event_date"`
	ParticipantLimit int       `json:"participant_limit"`
	State            string    `json:"state"`
}

type RequestStatePayload struct {
	RequestID   string `json:"request_id"`
	EventID     string `json:"event_id"`
	RequesterID string `json:"requester_id"`
	Status      string `json:"status"`
}

func newOutboxMessage(ctx context.Context, routingKey string, occurredAt time.Time, payload any) (domain.OutboxMessage, error) {
	id := uuid.New()
	body, err := json.Marshal(Envelope{
		Version:    envelopeVersion,
		Producer:   eventProducer,
		MessageID:  id.String(),
		TraceID:    reqctx.GetRequestID(ctx),
		OccurredAt: occurredAt,
		Payload:    payload,
	})
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return domain.OutboxMessage{
		MessageID:  id,
		RoutingKey: routingKey,
		Payload:    body,
		OccurredAt: occurredAt,
	}, nil
}

func eventStatePayload(e *domain.Event) EventStatePayload {
	return EventStatePayload{
		EventID:          e.ID.String(),
		InitiatorID:      e.InitiatorID.String(),
		Title:            e.Title,
		EventDate:        e.EventDate,
		ParticipantLimit: e.ParticipantLimit,
		State:            string(e.State),
	}
}

func requestStatePayload(r *domain.Request) RequestStatePayload {
	return RequestStatePayload{
		RequestID:   r.ID.String(),
		EventID:     r.EventID.String(),
		RequesterID: r.RequesterID.String(),
		Status:      string(r.Status),
	}
}

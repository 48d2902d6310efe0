package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestConfirmed, RequestRejected, RequestCanceled:
		return true
	}
	return false
}

// Request is a user's application to participate in an event.
type Request struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	RequesterID uuid.UUID
	Status      RequestStatus
	CreatedOn   time.Time
}

func NewRequest(eventID, requesterID uuid.UUID, status RequestStatus, now time.Time) *Request {
	return &Request{
		ID:          uuid.New(),
		EventID:     eventID,
		RequesterID: requesterID,
		Status:      status,
		CreatedOn:   now.UTC(),
	}
}

// AdmissionStatus decides the initial status of a new request.
// Unlimited events auto-confirm regardless of moderation; unmoderated capped
// events skip the approval queue; moderated capped events wait for the owner.
func AdmissionStatus(participantLimit int, requestModeration bool) RequestStatus {
	if participantLimit == 0 {
		return RequestConfirmed
	}
	if !requestModeration {
		return RequestConfirmed
	}
	return RequestPending
}

// Active reports whether the request blocks a duplicate from the same
// requester. Only a canceled request frees the (event, requester) slot.
func (r *Request) Active() bool {
	return r.Status != RequestCanceled
}

package rest

import (
	"time"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/service"
	"github.com/google/uuid"
)

type locationDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type newEventReq struct {
	Title             string      `json:"title"`
	Annotation        string      `json:"annotation"`
	Description       string      `json:"description"`
	EventDate         time.Time   `json:"eventDate"`
	Location          locationDTO `json:"location"`
	CategoryID        string      `json:"categoryId"`
	Paid              *bool       `json:"paid,omitempty"`
	ParticipantLimit  *int        `json:"participantLimit,omitempty"`
	RequestModeration *bool       `json:"requestModeration,omitempty"`
}

// patchEventReq carries a partial update. Absent fields stay untouched;
// stateAction is the lifecycle verb (owner or admin vocabulary depending on
// the endpoint).
type patchEventReq struct {
	Title             *string      `json:"title,omitempty"`
	Annotation        *string      `json:"annotation,omitempty"`
	Description       *string      `json:"description,omitempty"`
	EventDate         *time.Time   `json:"eventDate,omitempty"`
	Location          *locationDTO `json:"location,omitempty"`
	CategoryID        *string      `json:"categoryId,omitempty"`
	Paid              *bool        `json:"paid,omitempty"`
	ParticipantLimit  *int         `json:"participantLimit,omitempty"`
	RequestModeration *bool        `json:"requestModeration,omitempty"`
	StateAction       *string      `json:"stateAction,omitempty"`
}

func (p patchEventReq) toDomain() (domain.EventPatch, error) {
	patch := domain.EventPatch{
		Title:             p.Title,
		Annotation:        p.Annotation,
		Description:       p.Description,
		EventDate:         p.EventDate,
		Paid:              p.Paid,
		ParticipantLimit:  p.ParticipantLimit,
		RequestModeration: p.RequestModeration,
	}
	if p.Location != nil {
		patch.Location = &domain.Location{Lat: p.Location.Lat, Lon: p.Location.Lon}
	}
	if p.CategoryID != nil {
		id, err := uuid.Parse(*p.CategoryID)
		if err != nil {
			return domain.EventPatch{}, domain.ErrValidationMeta("invalid categoryId", map[string]string{
				"categoryId": "must be a valid uuid",
			})
		}
		patch.CategoryID = &id
	}
	return patch, nil
}

type decideRequestsReq struct {
	RequestIDs []string `json:"requestIds"`
	Status     string   `json:"status"`
}

type createRequestReq struct {
	EventID string `json:"eventId"`
}

type eventResp struct {
	ID                string      `json:"id"`
	InitiatorID       string      `json:"initiatorId"`
	CategoryID        string      `json:"categoryId"`
	Title             string      `json:"title"`
	Annotation        string      `json:"annotation"`
	Description       string      `json:"description"`
	EventDate         time.Time   `json:"eventDate"`
	Location          locationDTO `json:"location"`
	Paid              bool        `json:"paid"`
	ParticipantLimit  int         `json:"participantLimit"`
	RequestModeration bool        `json:"requestModeration"`
	State             string      `json:"state"`
	CreatedOn         time.Time   `json:"createdOn"`
	PublishedOn       *time.Time  `json:"publishedOn,omitempty"`
	ConfirmedRequests int         `json:"confirmedRequests"`
	Views             int64       `json:"views"`
}

func toEventResp(v *service.EventView) eventResp {
	e := v.Event
	return eventResp{
		ID:                e.ID.String(),
		InitiatorID:       e.InitiatorID.String(),
		CategoryID:        e.CategoryID.String(),
		Title:             e.Title,
		Annotation:        e.Annotation,
		Description:       e.Description,
		EventDate:         e.EventDate,
		Location:          locationDTO{Lat: e.Location.Lat, Lon: e.Location.Lon},
		Paid:              e.Paid,
		ParticipantLimit:  e.ParticipantLimit,
		RequestModeration: e.RequestModeration,
		State:             string(e.State),
		CreatedOn:         e.CreatedOn,
		PublishedOn:       e.PublishedOn,
		ConfirmedRequests: v.ConfirmedCount,
		Views:             v.Views,
	}
}

func toEventResps(views []*service.EventView) []eventResp {
	out := make([]eventResp, 0, len(views))
	for _, v := range views {
		out = append(out, toEventResp(v))
	}
	return out
}

type requestResp struct {
	ID          string    `json:"id"`
	EventID     string    `json:"eventId"`
	RequesterID string    `json:"requesterId"`
	Status      string    `json:"status"`
	Created     time.Time `json:"created"`
}

func toRequestResp(r *domain.Request) requestResp {
	return requestResp{
		ID:          r.ID.String(),
		EventID:     r.EventID.String(),
		RequesterID: r.RequesterID.String(),
		Status:      string(r.Status),
		Created:     r.CreatedOn,
	}
}

func toRequestResps(rs []*domain.Request) []requestResp {
	out := make([]requestResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRequestResp(r))
	}
	return out
}

type statusChangeResp struct {
	ConfirmedRequests []requestResp `json:"confirmedRequests"`
	RejectedRequests  []requestResp `json:"rejectedRequests"`
}

package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/pkg/reqctx"
	"github.com/citymeet/eventhub/internal/service"
	"github.com/citymeet/eventhub/internal/transport/rest/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Handler struct {
	events   *service.EventService
	requests *service.RequestService
}

func NewHandler(events *service.EventService, requests *service.RequestService) *Handler {
	return &Handler{events: events, requests: requests}
}

// --- owner event endpoints ---

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}

	var req newEventReq
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid categoryId", map[string]string{
			"categoryId": "must be a valid uuid",
		})
		return
	}

	view, err := h.events.Create(r.Context(), auth.UserID, domain.NewEventInput{
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		EventDate:         req.EventDate,
		Location:          domain.Location{Lat: req.Location.Lat, Lon: req.Location.Lon},
		Paid:              req.Paid,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: req.RequestModeration,
	}, categoryID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, toEventResp(view))
}

func (h *Handler) ListOwnEvents(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}

	from, size := parsePaging(r)
	views, err := h.events.ListOwn(r.Context(), auth.UserID, from, size)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResps(views))
}

func (h *Handler) GetOwnEvent(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	view, err := h.events.GetOwn(r.Context(), auth.UserID, eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResp(view))
}

func (h *Handler) UpdateOwnEvent(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var req patchEventReq
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	patch, err := req.toDomain()
	if err != nil {
		handleErr(w, r, err)
		return
	}

	var action *domain.OwnerAction
	if req.StateAction != nil {
		a := domain.OwnerAction(*req.StateAction)
		if !a.Valid() {
			fail(w, r, http.StatusBadRequest, "request.invalid", "unknown stateAction", map[string]string{
				"stateAction": *req.StateAction,
			})
			return
		}
		action = &a
	}

	view, err := h.events.UpdateByOwner(r.Context(), auth.UserID, eventID, patch, action)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResp(view))
}

// --- owner request-decision endpoints ---

func (h *Handler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	reqs, err := h.requests.ListForEvent(r.Context(), auth.UserID, eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toRequestResps(reqs))
}

func (h *Handler) DecideRequests(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var req decideRequestsReq
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.RequestIDs))
	for _, raw := range req.RequestIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid request id", map[string]string{
				"requestIds": raw,
			})
			return
		}
		ids = append(ids, id)
	}

	res, err := h.requests.ChangeStatus(r.Context(), auth.UserID, eventID, ids, domain.RequestStatus(req.Status))
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, statusChangeResp{
		ConfirmedRequests: toRequestResps(res.Confirmed),
		RejectedRequests:  toRequestResps(res.Rejected),
	})
}

// --- requester endpoints ---

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}

	raw := r.URL.Query().Get("eventId")
	if raw == "" {
		var req createRequestReq
		if err := render.DecodeJSON(r.Body, &req); err == nil {
			raw = req.EventID
		}
	}
	eventID, err := uuid.Parse(raw)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid eventId", map[string]string{
			"eventId": "must be a valid uuid",
		})
		return
	}

	req, err := h.requests.Create(r.Context(), auth.UserID, eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, toRequestResp(req))
}

func (h *Handler) ListOwnRequests(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}

	reqs, err := h.requests.ListOwn(r.Context(), auth.UserID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toRequestResps(reqs))
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}
	requestID, ok := pathUUID(w, r, "requestID")
	if !ok {
		return
	}

	req, err := h.requests.Cancel(r.Context(), auth.UserID, requestID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toRequestResp(req))
}

// --- admin endpoints ---

func (h *Handler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := domain.AdminFilter{}
	var ok bool
	if f.InitiatorIDs, ok = queryUUIDs(w, r, "users"); !ok {
		return
	}
	if f.CategoryIDs, ok = queryUUIDs(w, r, "categories"); !ok {
		return
	}
	for _, raw := range q["states"] {
		s := domain.EventState(strings.TrimSpace(raw))
		if !s.Valid() {
			fail(w, r, http.StatusBadRequest, "request.invalid", "unknown state", map[string]string{"states": raw})
			return
		}
		f.States = append(f.States, s)
	}
	if f.RangeStart, ok = queryTime(w, r, "rangeStart"); !ok {
		return
	}
	if f.RangeEnd, ok = queryTime(w, r, "rangeEnd"); !ok {
		return
	}
	f.From, f.Size = parsePaging(r)

	views, err := h.events.ListAdmin(r.Context(), f)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResps(views))
}

func (h *Handler) AdminUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var req patchEventReq
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	patch, err := req.toDomain()
	if err != nil {
		handleErr(w, r, err)
		return
	}

	var action *domain.AdminAction
	if req.StateAction != nil {
		a := domain.AdminAction(*req.StateAction)
		if !a.Valid() {
			fail(w, r, http.StatusBadRequest, "request.invalid", "unknown stateAction", map[string]string{
				"stateAction": *req.StateAction,
			})
			return
		}
		action = &a
	}

	view, err := h.events.UpdateByAdmin(r.Context(), eventID, patch, action)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResp(view))
}

// --- public endpoints ---

func (h *Handler) PublicListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := domain.PublicFilter{Text: strings.TrimSpace(q.Get("text"))}
	var ok bool
	if f.CategoryIDs, ok = queryUUIDs(w, r, "categories"); !ok {
		return
	}
	if s := q.Get("paid"); s != "" {
		paid, err := strconv.ParseBool(s)
		if err != nil {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid paid", nil)
			return
		}
		f.Paid = &paid
	}
	if f.RangeStart, ok = queryTime(w, r, "rangeStart"); !ok {
		return
	}
	if f.RangeEnd, ok = queryTime(w, r, "rangeEnd"); !ok {
		return
	}
	f.OnlyAvailable = q.Get("onlyAvailable") == "true"
	f.From, f.Size = parsePaging(r)

	views, err := h.events.ListPublic(r.Context(), f, clientIP(r))
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResps(views))
}

func (h *Handler) PublicGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	view, err := h.events.GetPublic(r.Context(), eventID, clientIP(r))
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, toEventResp(view))
}

// --- helpers ---

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid "+name, map[string]string{
			name: "must be a valid uuid",
		})
		return uuid.Nil, false
	}
	return id, true
}

func queryUUIDs(w http.ResponseWriter, r *http.Request, name string) ([]uuid.UUID, bool) {
	var out []uuid.UUID
	for _, raw := range r.URL.Query()[name] {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid "+name, map[string]string{name: raw})
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

func queryTime(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid "+name, map[string]string{
			name: "must be RFC3339",
		})
		return nil, false
	}
	tt := t.UTC()
	return &tt, true
}

func parsePaging(r *http.Request) (from, size int) {
	from, _ = strconv.Atoi(r.URL.Query().Get("from"))
	if from < 0 {
		from = 0
	}
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}
	return from, size
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case domain.CodeValidation:
			status = http.StatusBadRequest
		case domain.CodeNotFound:
			status = http.StatusNotFound
		case domain.CodeForbidden:
			status = http.StatusForbidden
		case domain.CodeConflict:
			status = http.StatusConflict
		}
		fail(w, r, status, string(appErr.Code), appErr.Message, appErr.Meta)
		return
	}

	// Do not leak internal details.
	fail(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	reqID := reqctx.GetRequestID(r.Context())
	if reqID == "" {
		reqID = "no-request-id"
	}
	response.Fail(w, status, code, message, meta, reqID)
}

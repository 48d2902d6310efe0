package audit

import (
	"context"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/pkg/reqctx"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger provides structured audit logging for business transitions.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

func (l *Logger) EventCreated(ctx context.Context, eventID, initiatorID uuid.UUID) {
	l.log.Info().
		Str("action", "event_created").
		Str("event_id", eventID.String()).
		Str("initiator_id", initiatorID.String()).
		Str("trace_id", reqctx.GetRequestID(ctx)).
		Msg("Event created")
}

func (l *Logger) EventStateChanged(ctx context.Context, eventID uuid.UUID, from, to domain.EventState, actor string) {
	l.log.Info().
		Str("action", "event_state_changed").
		Str("event_id", eventID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor", actor).
		Str("trace_id", reqctx.GetRequestID(ctx)).
		Msg("Event state changed")
}

func (l *Logger) RequestCreated(ctx context.Context, requestID, eventID, requesterID uuid.UUID, status domain.RequestStatus) {
	l.log.Info().
		Str("action", "request_created").
		Str("request_id", requestID.String()).
		Str("event_id", eventID.String()).
		Str("requester_id", requesterID.String()).
		Str("status", string(status)).
		Str("trace_id", reqctx.GetRequestID(ctx)).
		Msg("Participation request created")
}

func (l *Logger) RequestCanceled(ctx context.Context, requestID, requesterID uuid.UUID) {
	l.log.Info().
		Str("action", "request_canceled").
		Str("request_id", requestID.String()).
		Str("requester_id", requesterID.String()).
		Str("trace_id", reqctx.GetRequestID(ctx)).
		Msg("Participation request canceled")
}

func (l *Logger) RequestsDecided(ctx context.Context, eventID uuid.UUID, confirmed, rejected int) {
	l.log.Info().
		Str("action", "requests_decided").
		Str("event_id", eventID.String()).
		Int("confirmed", confirmed).
		Int("rejected", rejected).
		Str("trace_id", reqctx.GetRequestID(ctx)).
		Msg("Request batch decided")
}

func (l *Logger) OverflowCascade(ctx context.Context, eventID uuid.UUID, rejected int) {
	l.log.Warn().
		Str("action", "overflow_cascade").
		Str("event_id", eventID.String()).
		Int("rejected", rejected).
		Str("trace_id", reqctx.GetRequestID(ctx)).
		Msg("Capacity reached, remaining pending requests rejected")
}

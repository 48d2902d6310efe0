package service

import (
	"context"
	"fmt"
	"time"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/metrics"
	"github.com/citymeet/eventhub/internal/pkg/logger"
	"github.com/google/uuid"
)

const (
	statsApp  = "eventhub"
	eventsURI = "/events"

	// Views are approximated by hits over the trailing year.
	viewsWindow = 365 * 24 * time.Hour
)

func eventURI(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", eventsURI, id)
}

// EventView is the read-side composition of an event with its derived counts.
// Both counts are recomputed per read; nothing here mutates event or request
// state.
type EventView struct {
	Event          *domain.Event
	ConfirmedCount int
	Views          int64
}

func (s *EventService) composeOne(ctx context.Context, e *domain.Event) (*EventView, error) {
	views, err := s.compose(ctx, []*domain.Event{e})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *EventService) compose(ctx context.Context, events []*domain.Event) ([]*EventView, error) {
	viewCounts := s.viewCounts(ctx, events)

	out := make([]*EventView, 0, len(events))
	for _, e := range events {
		confirmed, err := s.requests.CountByEventAndStatus(ctx, e.ID, domain.RequestConfirmed)
		if err != nil {
			return nil, err
		}
		out = append(out, &EventView{
			Event:          e,
			ConfirmedCount: confirmed,
			Views:          viewCounts[eventURI(e.ID)],
		})
	}
	return out, nil
}

// viewCounts queries the stats collaborator for all events at once. A failed
// or empty result degrades to zero views; a slow or unavailable stats service
// must not fail the read path.
func (s *EventService) viewCounts(ctx context.Context, events []*domain.Event) map[string]int64 {
	if s.stats == nil || len(events) == 0 {
		return map[string]int64{}
	}

	uris := make([]string, 0, len(events))
	for _, e := range events {
		uris = append(uris, eventURI(e.ID))
	}

	now := s.clock.Now()
	counts, err := s.stats.Views(ctx, uris, now.Add(-viewsWindow), now, false)
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Msg("stats views query failed, degrading to zero")
		metrics.RecordStatsDegraded()
		return map[string]int64{}
	}
	return counts
}

func (s *EventService) recordHit(ctx context.Context, uri, clientIP string) {
	if s.stats == nil {
		return
	}
	hit := domain.EndpointHit{
		App:       statsApp,
		URI:       uri,
		IP:        clientIP,
		Timestamp: s.clock.Now(),
	}
	if err := s.stats.Hit(ctx, hit); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("uri", uri).Msg("stats hit record failed")
	}
}

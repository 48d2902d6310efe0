package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNewEvent() domain.NewEventInput {
	return domain.NewEventInput{
		Title:       "Jazz evening",
		Annotation:  "Live trio at the riverside stage",
		Description: "Doors open an hour before the first set.",
		EventDate:   testNow.Add(72 * time.Hour),
		Location:    domain.Location{Lat: 59.93, Lon: 30.33},
	}
}

func TestEventCreate(t *testing.T) {
	f := newFixture()
	initiator := f.store.seedUser()
	category := f.store.seedCategory()

	t.Run("ok", func(t *testing.T) {
		view, err := f.events.Create(context.Background(), initiator, validNewEvent(), category)
		require.NoError(t, err)
		assert.Equal(t, domain.StatePending, view.Event.State)
		assert.Equal(t, 0, view.ConfirmedCount)
		assert.Zero(t, view.Views)
		assert.Nil(t, view.Event.PublishedOn)
	})

	t.Run("unknown_initiator", func(t *testing.T) {
		_, err := f.events.Create(context.Background(), uuid.New(), validNewEvent(), category)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("unknown_category", func(t *testing.T) {
		_, err := f.events.Create(context.Background(), initiator, validNewEvent(), uuid.New())
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("too_soon", func(t *testing.T) {
		in := validNewEvent()
		in.EventDate = testNow.Add(time.Hour)
		_, err := f.events.Create(context.Background(), initiator, in, category)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})
}

func TestUpdateByOwner(t *testing.T) {
	f := newFixture()
	initiator := f.store.seedUser()
	category := f.store.seedCategory()
	view, err := f.events.Create(context.Background(), initiator, validNewEvent(), category)
	require.NoError(t, err)
	eventID := view.Event.ID

	t.Run("cross_tenant_reports_not_found", func(t *testing.T) {
		stranger := f.store.seedUser()
		_, err := f.events.UpdateByOwner(context.Background(), stranger, eventID, domain.EventPatch{}, nil)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("unknown_category_in_patch", func(t *testing.T) {
		bogus := uuid.New()
		_, err := f.events.UpdateByOwner(context.Background(), initiator, eventID, domain.EventPatch{CategoryID: &bogus}, nil)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})

	t.Run("field_patch", func(t *testing.T) {
		title := "Jazz evening, extended"
		got, err := f.events.UpdateByOwner(context.Background(), initiator, eventID, domain.EventPatch{Title: &title}, nil)
		require.NoError(t, err)
		assert.Equal(t, title, got.Event.Title)
		assert.Equal(t, domain.StatePending, got.Event.State)
	})

	t.Run("published_is_immutable_for_owner", func(t *testing.T) {
		pub := domain.AdminPublish
		_, err := f.events.UpdateByAdmin(context.Background(), eventID, domain.EventPatch{}, &pub)
		require.NoError(t, err)

		title := "Nope"
		_, err = f.events.UpdateByOwner(context.Background(), initiator, eventID, domain.EventPatch{Title: &title}, nil)
		assert.True(t, domain.IsCode(err, domain.CodeConflict))
	})
}

func TestOwnerActions(t *testing.T) {
	f := newFixture()
	initiator := f.store.seedUser()
	category := f.store.seedCategory()
	view, err := f.events.Create(context.Background(), initiator, validNewEvent(), category)
	require.NoError(t, err)
	eventID := view.Event.ID

	cancel := domain.OwnerCancelReview
	got, err := f.events.UpdateByOwner(context.Background(), initiator, eventID, domain.EventPatch{}, &cancel)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCanceled, got.Event.State)

	resend := domain.OwnerSendToReview
	got, err = f.events.UpdateByOwner(context.Background(), initiator, eventID, domain.EventPatch{}, &resend)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, got.Event.State)
}

func TestAdminStateTransitions(t *testing.T) {
	f := newFixture()
	initiator := f.store.seedUser()
	category := f.store.seedCategory()

	t.Run("publish_emits_outbox_message", func(t *testing.T) {
		view, err := f.events.Create(context.Background(), initiator, validNewEvent(), category)
		require.NoError(t, err)

		before := len(f.store.outbox)
		pub := domain.AdminPublish
		got, err := f.events.UpdateByAdmin(context.Background(), view.Event.ID, domain.EventPatch{}, &pub)
		require.NoError(t, err)
		assert.Equal(t, domain.StatePublished, got.Event.State)
		require.NotNil(t, got.Event.PublishedOn)
		assert.Equal(t, testNow, *got.Event.PublishedOn)
		assert.Len(t, f.store.outbox, before+1)
	})

	t.Run("reject_published_conflicts", func(t *testing.T) {
		eventID, _ := f.seedPublished(t, 0, true)
		rej := domain.AdminReject
		_, err := f.events.UpdateByAdmin(context.Background(), eventID, domain.EventPatch{}, &rej)
		assert.True(t, domain.IsCode(err, domain.CodeConflict))
	})

	t.Run("publish_canceled_conflicts", func(t *testing.T) {
		view, err := f.events.Create(context.Background(), initiator, validNewEvent(), category)
		require.NoError(t, err)
		rej := domain.AdminReject
		_, err = f.events.UpdateByAdmin(context.Background(), view.Event.ID, domain.EventPatch{}, &rej)
		require.NoError(t, err)

		pub := domain.AdminPublish
		_, err = f.events.UpdateByAdmin(context.Background(), view.Event.ID, domain.EventPatch{}, &pub)
		assert.True(t, domain.IsCode(err, domain.CodeConflict))
	})
}

func TestGetOwn(t *testing.T) {
	f := newFixture()
	initiator := f.store.seedUser()
	category := f.store.seedCategory()
	view, err := f.events.Create(context.Background(), initiator, validNewEvent(), category)
	require.NoError(t, err)

	got, err := f.events.GetOwn(context.Background(), initiator, view.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Event.ID, got.Event.ID)

	_, err = f.events.GetOwn(context.Background(), f.store.seedUser(), view.Event.ID)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestGetPublic(t *testing.T) {
	f := newFixture()
	eventID, _ := f.seedPublished(t, 0, true)
	uri := "/events/" + eventID.String()

	t.Run("records_hit_and_counts_own_view", func(t *testing.T) {
		f.stats.views = map[string]int64{uri: 7}

		view, err := f.events.GetPublic(context.Background(), eventID, "203.0.113.9")
		require.NoError(t, err)
		assert.Equal(t, int64(8), view.Views)

		require.NotEmpty(t, f.stats.hits)
		last := f.stats.hits[len(f.stats.hits)-1]
		assert.Equal(t, uri, last.URI)
		assert.Equal(t, "203.0.113.9", last.IP)
		assert.Equal(t, testNow, last.Timestamp)
	})

	t.Run("stats_failure_degrades_to_zero", func(t *testing.T) {
		f.stats.err = errors.New("stats unavailable")
		defer func() { f.stats.err = nil }()

		view, err := f.events.GetPublic(context.Background(), eventID, "203.0.113.9")
		require.NoError(t, err)
		assert.Equal(t, int64(1), view.Views)
	})

	t.Run("not_published_is_not_found", func(t *testing.T) {
		initiator := f.store.seedUser()
		pending, err := f.events.Create(context.Background(), initiator, validNewEvent(), f.store.seedCategory())
		require.NoError(t, err)

		_, err = f.events.GetPublic(context.Background(), pending.Event.ID, "203.0.113.9")
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})
}

func TestListPublic(t *testing.T) {
	f := newFixture()
	f.seedPublished(t, 0, true)

	t.Run("bad_range", func(t *testing.T) {
		start := testNow.Add(48 * time.Hour)
		end := testNow.Add(24 * time.Hour)
		_, err := f.events.ListPublic(context.Background(), domain.PublicFilter{RangeStart: &start, RangeEnd: &end}, "203.0.113.9")
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
	})

	t.Run("records_listing_hit", func(t *testing.T) {
		views, err := f.events.ListPublic(context.Background(), domain.PublicFilter{}, "203.0.113.9")
		require.NoError(t, err)
		assert.Len(t, views, 1)

		require.NotEmpty(t, f.stats.hits)
		assert.Equal(t, "/events", f.stats.hits[len(f.stats.hits)-1].URI)
	})
}

func TestConfirmedCountIsDerived(t *testing.T) {
	f := newFixture()
	eventID, owner := f.seedPublished(t, 0, true)

	for i := 0; i < 3; i++ {
		_, err := f.requests.Create(context.Background(), f.store.seedUser(), eventID)
		require.NoError(t, err)
	}

	view, err := f.events.GetOwn(context.Background(), owner, eventID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.ConfirmedCount)
}

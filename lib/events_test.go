package lib

import (
	"testing"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent_validation(t *testing.T) {
	f := newFixture(t)
	x := f.asso("Xray")
	start := time.Now().UTC().Add(time.Hour)

	_, err := f.svc.CreateEvent(f.ctx, NewEvent{AssociationID: x.ID, StartsAt: start, EndsAt: start.Add(-time.Minute)})
	assert.ErrorIs(t, err, ErrInvalidEventWindow)

	_, err = f.svc.CreateEvent(f.ctx, NewEvent{AssociationID: x.ID, StartsAt: start, EndsAt: start, Participants: "Everyone"})
	assert.ErrorIs(t, err, ErrInvalidRecipientSpec)

	_, err = f.svc.CreateEvent(f.ctx, NewEvent{AssociationID: 999, StartsAt: start, EndsAt: start})
	assert.ErrorIs(t, err, ErrNotFound)

	evts, err := f.svc.Events(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, evts)
}

func TestFutureEvents(t *testing.T) {
	f := newFixture(t)
	x := f.asso("Xray")
	y := f.asso("Yankee")
	f.event(x, "past", -time.Hour)
	soon := f.event(x, "soon", time.Hour)
	later := f.event(x, "later", 48*time.Hour)
	f.event(y, "other", time.Hour)

	evts, err := FutureEvents(f.ctx, f.db, x.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []uint{soon.ID, later.ID}, evts.IDs())
}

func TestAddAttendees(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	b := f.student("Boris", models.Level1A)
	x := f.asso("Xray")
	e := f.event(x, "Gala", time.Hour)

	require.NoError(t, f.svc.AddAttendees(f.ctx, e.ID, []uint{a.ID, a.ID}))
	require.NoError(t, f.svc.AddAttendees(f.ctx, e.ID, []uint{a.ID, b.ID}))
	assert.Equal(t, []uint{a.ID, b.ID}, f.attendeeIDs(e.ID))

	assert.ErrorIs(t, f.svc.AddAttendees(f.ctx, e.ID, []uint{a.ID, 999}), ErrNotFound)
	assert.ErrorIs(t, f.svc.AddAttendees(f.ctx, 999, []uint{a.ID}), ErrNotFound)

	require.NoError(t, f.svc.RemoveAttendee(f.ctx, e.ID, a.ID))
	assert.Equal(t, []uint{b.ID}, f.attendeeIDs(e.ID))
	require.NoError(t, f.svc.RemoveAttendee(f.ctx, e.ID, a.ID))
}

func TestUserEvents(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	x := f.asso("Xray")
	past := f.event(x, "past", -time.Hour)
	future := f.event(x, "future", time.Hour)
	require.NoError(t, f.svc.AddAttendees(f.ctx, past.ID, []uint{a.ID}))
	require.NoError(t, f.svc.AddAttendees(f.ctx, future.ID, []uint{a.ID}))

	all, err := f.svc.UserEvents(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{past.ID, future.ID}, all.IDs())
	assert.Equal(t, x.ID, all[0].Association.ID)

	upcoming, err := f.svc.UserFutureEvents(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{future.ID}, upcoming.IDs())

	_, err = f.svc.UserEvents(f.ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEvent(t *testing.T) {
	f := newFixture(t)
	x := f.asso("Xray")
	e := f.event(x, "Gala", time.Hour)

	name := "Winter gala"
	require.NoError(t, f.svc.UpdateEvent(f.ctx, e.ID, EventUpdate{Name: &name}))
	got, err := f.svc.Event(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Winter gala", got.Name)

	end := e.StartsAt.Add(-time.Hour)
	assert.ErrorIs(t, f.svc.UpdateEvent(f.ctx, e.ID, EventUpdate{EndsAt: &end}), ErrInvalidEventWindow)
	assert.ErrorIs(t, f.svc.UpdateEvent(f.ctx, 999, EventUpdate{Name: &name}), ErrNotFound)
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	x := f.asso("Xray")
	e := f.event(x, "Gala", time.Hour)
	require.NoError(t, f.svc.AddAttendees(f.ctx, e.ID, []uint{a.ID}))

	require.NoError(t, f.svc.DeleteEvent(f.ctx, e.ID))

	_, err := f.svc.Event(f.ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteEvent(f.ctx, e.ID), ErrNotFound)

	var links int64
	require.NoError(t, f.db.Model(&models.EventAttendance{}).Count(&links).Error)
	assert.Zero(t, links)

	evts, err := f.svc.AssociationEvents(f.ctx, x.ID)
	require.NoError(t, err)
	assert.Empty(t, evts)
}

package lib

import (
	"testing"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecipientSpec(t *testing.T) {
	tests := []struct {
		raw     string
		want    RecipientSpec
		wantErr error
	}{
		{"Subscribers", SubscribersOf{7}, nil},
		{"All users", AllUsers{}, nil},
		{"1A", LevelCohort{models.Level1A}, nil},
		{"NA", LevelCohort{models.LevelNA}, nil},
		{"subscribers", nil, ErrInvalidRecipientSpec},
		{"4A", nil, ErrInvalidRecipientSpec},
		{"", nil, ErrInvalidRecipientSpec},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRecipientSpec(tt.raw, 7)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
			if got != nil {
				assert.Equal(t, tt.raw, got.Label())
			}
		})
	}
}

func TestResolveRecipients(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	b := f.student("Boris", models.Level1A)
	c := f.student("Chloe", models.Level2A)
	x := f.asso("Xray")
	require.NoError(t, f.svc.Subscribe(f.ctx, b.ID, x.ID))
	require.NoError(t, f.svc.Subscribe(f.ctx, c.ID, x.ID))

	t.Run("level", func(t *testing.T) {
		users, err := ResolveRecipients(f.ctx, f.db, LevelCohort{models.Level1A})
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, b.ID}, users.IDs())
	})
	t.Run("level NA", func(t *testing.T) {
		users, err := ResolveRecipients(f.ctx, f.db, LevelCohort{models.LevelNA})
		require.NoError(t, err)
		assert.Equal(t, []uint{x.ID}, users.IDs())
	})
	t.Run("subscribers", func(t *testing.T) {
		users, err := ResolveRecipients(f.ctx, f.db, SubscribersOf{x.ID})
		require.NoError(t, err)
		assert.Equal(t, []uint{b.ID, c.ID}, users.IDs())
	})
	t.Run("all users", func(t *testing.T) {
		users, err := ResolveRecipients(f.ctx, f.db, AllUsers{})
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, b.ID, c.ID, x.ID}, users.IDs())
	})
	t.Run("nil spec", func(t *testing.T) {
		_, err := ResolveRecipients(f.ctx, f.db, nil)
		assert.ErrorIs(t, err, ErrInvalidRecipientSpec)
	})
}

func TestCreateNotification_snapshot(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	b := f.student("Boris", models.Level1A)
	c := f.student("Chloe", models.Level2A)
	x := f.asso("Xray")
	require.NoError(t, f.svc.Subscribe(f.ctx, a.ID, x.ID))
	require.NoError(t, f.svc.Subscribe(f.ctx, b.ID, x.ID))

	notif, err := f.svc.CreateNotification(f.ctx, NewNotification{
		Title:        "Party",
		Content:      "Friday night",
		SentByUserID: x.ID,
		Recipients:   SubscribersOf{x.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Subscribers", notif.RecipientType)

	require.NoError(t, f.svc.Subscribe(f.ctx, c.ID, x.ID))
	assert.Equal(t, []uint{a.ID, b.ID}, f.recipientIDs(notif.ID))

	title := "Party!"
	require.NoError(t, f.svc.UpdateNotification(f.ctx, notif.ID, NotificationUpdate{Title: &title}))
	assert.Equal(t, []uint{a.ID, b.ID}, f.recipientIDs(notif.ID))

	got, err := f.svc.Notification(f.ctx, notif.ID)
	require.NoError(t, err)
	assert.Equal(t, "Party!", got.Title)
	assert.Equal(t, "Friday night", got.Content)
	assert.Equal(t, x.ID, got.Sender.ID)
}

func TestCreateNotification_failures(t *testing.T) {
	f := newFixture(t)
	x := f.asso("Xray")

	_, err := f.svc.CreateNotification(f.ctx, NewNotification{Title: "t", SentByUserID: x.ID})
	assert.ErrorIs(t, err, ErrInvalidRecipientSpec)

	_, err = f.svc.CreateNotification(f.ctx, NewNotification{Title: "t", SentByUserID: 999, Recipients: AllUsers{}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateNotification_rollsBackOnRecipientFailure(t *testing.T) {
	f := newFixture(t)
	f.student("Anna", models.Level1A)
	x := f.asso("Xray")
	f.failCreatesOn("notification_receptions")

	_, err := f.svc.CreateNotification(f.ctx, NewNotification{
		Title: "t", SentByUserID: x.ID, Recipients: AllUsers{},
	})
	assert.ErrorIs(t, err, ErrPersistence)

	notifs, err := f.svc.Notifications(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, notifs)
}

func TestAddRecipients(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	b := f.student("Boris", models.Level2A)
	c := f.student("Chloe", models.Level2A)
	x := f.asso("Xray")
	require.NoError(t, f.svc.Subscribe(f.ctx, a.ID, x.ID))

	notif, err := f.svc.CreateNotification(f.ctx, NewNotification{
		Title: "t", SentByUserID: x.ID, Recipients: SubscribersOf{x.ID},
	})
	require.NoError(t, err)

	t.Run("explicit ids win over level", func(t *testing.T) {
		sel := RecipientSelection{UserIDs: []uint{a.ID, b.ID}, Level: models.Level2A}
		require.NoError(t, f.svc.AddRecipients(f.ctx, notif.ID, sel))
		assert.Equal(t, []uint{a.ID, b.ID}, f.recipientIDs(notif.ID))
	})
	t.Run("level", func(t *testing.T) {
		sel := RecipientSelection{Level: models.Level2A}
		require.NoError(t, f.svc.AddRecipients(f.ctx, notif.ID, sel))
		assert.Equal(t, []uint{a.ID, b.ID, c.ID}, f.recipientIDs(notif.ID))
	})
	t.Run("falls back to all users", func(t *testing.T) {
		require.NoError(t, f.svc.AddRecipients(f.ctx, notif.ID, RecipientSelection{}))
		assert.Equal(t, []uint{a.ID, b.ID, c.ID, x.ID}, f.recipientIDs(notif.ID))
	})
	t.Run("missing notification", func(t *testing.T) {
		err := f.svc.AddRecipients(f.ctx, 999, RecipientSelection{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserNotifications(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	x := f.asso("Xray")

	var ids []uint
	for _, title := range []string{"first", "second", "third"} {
		n, err := f.svc.CreateNotification(f.ctx, NewNotification{
			Title: title, SentByUserID: x.ID, Recipients: LevelCohort{models.Level1A},
		})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	all, err := f.svc.UserNotifications(f.ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)

	latest, err := f.svc.UserNotifications(f.ctx, a.ID, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "third", latest[0].Title)
	assert.Equal(t, "second", latest[1].Title)

	none, err := f.svc.UserNotifications(f.ctx, x.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.UserNotifications(f.ctx, 999, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNotification(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	x := f.asso("Xray")
	notif, err := f.svc.CreateNotification(f.ctx, NewNotification{
		Title: "t", SentByUserID: x.ID, Recipients: AllUsers{},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteNotification(f.ctx, notif.ID))
	assert.ErrorIs(t, f.svc.DeleteNotification(f.ctx, notif.ID), ErrNotFound)

	_, err = f.svc.NotificationRecipients(f.ctx, notif.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var links int64
	require.NoError(t, f.db.Model(&models.NotificationReception{}).Where("user_id = ?", a.ID).Count(&links).Error)
	assert.Zero(t, links)
}

func TestCreateEvent_seedsAttendeesFromParticipants(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	b := f.student("Boris", models.Level2A)
	x := f.asso("Xray")
	require.NoError(t, f.svc.Subscribe(f.ctx, b.ID, x.ID))

	start := time.Now().UTC().Add(48 * time.Hour)
	for label, want := range map[string][]uint{
		"1A":          {a.ID},
		"Subscribers": {b.ID},
		"All users":   {a.ID, b.ID, x.ID},
	} {
		evt, err := f.svc.CreateEvent(f.ctx, NewEvent{
			AssociationID: x.ID, Name: label, StartsAt: start, EndsAt: start.Add(time.Hour), Participants: label,
		})
		require.NoError(t, err)
		assert.Equal(t, want, f.attendeeIDs(evt.ID), label)
	}
}

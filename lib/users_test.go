package lib

import (
	"testing"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEmail(t *testing.T) {
	assert.Equal(t, "alice.georges@ensae.fr", DefaultEmail("Alice", "Georges", "ensae.fr"))
	assert.Equal(t, "jeanmarie.dupont@ensae.fr", DefaultEmail("Jean Marie", "Du Pont", "ensae.fr"))
	assert.Equal(t, "bde@ensae.fr", DefaultEmail("BDE", "", "ensae.fr"))
}

func TestDefaultPassword(t *testing.T) {
	assert.Equal(t, "ageorges", DefaultPassword("Alice", "Georges"))
	assert.Equal(t, "jdupont", DefaultPassword("Jean", "Du Pont"))
	assert.Equal(t, "", DefaultPassword("", ""))
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.CreateUser(f.ctx, NewUser{Name: "Alice", Surname: "Georges", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "alice.georges@ensae.fr", u.Email)
	assert.Equal(t, models.LevelNA, u.Level)
	assert.NotEqual(t, "ageorges", u.HashedPassword)

	authed, err := f.svc.Authenticate(f.ctx, "Alice.Georges@ensae.fr", "ageorges")
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)

	_, err = f.svc.CreateUser(f.ctx, NewUser{Name: "alice", Surname: "georges", Role: models.RoleTeacher})
	assert.ErrorIs(t, err, ErrEmailTaken)

	custom, err := f.svc.CreateUser(f.ctx, NewUser{
		Name: "Alice", Surname: "Georges", Role: models.RoleTeacher,
		Email: " Prof.Georges@ensae.fr ", Password: "s3cret!",
	})
	require.NoError(t, err)
	assert.Equal(t, "prof.georges@ensae.fr", custom.Email)

	_, err = f.svc.Authenticate(f.ctx, "prof.georges@ensae.fr", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Authenticate(f.ctx, "nobody@ensae.fr", "s3cret!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUsers_filter(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	b := f.student("Boris", models.Level2A)
	x := f.asso("Xray")

	all, err := f.svc.Users(f.ctx, UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID, x.ID}, all.IDs())

	students, err := f.svc.Users(f.ctx, UserFilter{Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, students.IDs())

	second, err := f.svc.Users(f.ctx, UserFilter{Role: models.RoleStudent, Level: models.Level2A})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, second.IDs())
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	b := f.student("Boris", models.Level1A)

	level := models.Level2A
	name := "Annabelle"
	require.NoError(t, f.svc.UpdateUser(f.ctx, a.ID, UserUpdate{Name: &name, Level: &level}))

	got, err := f.svc.User(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annabelle", got.Name)
	assert.Equal(t, models.Level2A, got.Level)
	assert.Equal(t, a.Email, got.Email)

	taken := b.Email
	assert.ErrorIs(t, f.svc.UpdateUser(f.ctx, a.ID, UserUpdate{Email: &taken}), ErrEmailTaken)

	own := a.Email
	assert.NoError(t, f.svc.UpdateUser(f.ctx, a.ID, UserUpdate{Email: &own}))
	assert.ErrorIs(t, f.svc.UpdateUser(f.ctx, 999, UserUpdate{Name: &name}), ErrNotFound)
}

func TestDeleteUser_cascades(t *testing.T) {
	f := newFixture(t)
	a := f.student("Anna", models.Level1A)
	x := f.asso("Xray")
	y := f.asso("Yankee")
	require.NoError(t, f.svc.Subscribe(f.ctx, a.ID, x.ID))
	f.event(x, "Gala", time.Hour)
	other := f.event(y, "Picnic", time.Hour)
	require.NoError(t, f.svc.AddAttendees(f.ctx, other.ID, []uint{x.ID}))
	_, err := f.svc.CreateNotification(f.ctx, NewNotification{Title: "t", SentByUserID: x.ID, Recipients: AllUsers{}})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(f.ctx, x.ID))

	_, err = f.svc.User(f.ctx, x.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteUser(f.ctx, x.ID), ErrNotFound)

	subs, err := f.svc.Subscriptions(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	evts, err := f.svc.Events(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{other.ID}, evts.IDs())
	assert.Empty(t, f.attendeeIDs(other.ID))

	notifs, err := f.svc.UserNotifications(f.ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, notifs)

	for _, model := range []any{&models.Subscription{}, &models.EventAttendance{}, &models.NotificationReception{}} {
		var n int64
		require.NoError(t, f.db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}
}

package lib

import (
	"context"
	"testing"
	"time"

	"github.com/fiffu/betterave/config"
	"github.com/fiffu/betterave/lib/models"
	"github.com/fiffu/betterave/senders"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	svc    *Service
	db     *gorm.DB
	outbox *senders.Outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	cfg := &config.Config{
		SchoolEmailDomain: "ensae.fr",
		FrontendURL:       "http://localhost:8080",
	}
	outbox := &senders.Outbox{}
	registry := senders.Registry{"email": outbox}
	svc := NewService(fxtest.NewLifecycle(t), cfg, zap.NewNop(), db, registry)

	return &fixture{t, context.Background(), svc, db, outbox}
}

func (f *fixture) user(name, surname string, role models.UserRole, level models.UserLevel) *models.User {
	f.t.Helper()
	u, err := f.svc.CreateUser(f.ctx, NewUser{Name: name, Surname: surname, Role: role, Level: level})
	require.NoError(f.t, err)
	return u
}

func (f *fixture) student(name string, level models.UserLevel) *models.User {
	return f.user(name, "Student", models.RoleStudent, level)
}

func (f *fixture) asso(name string) *models.User {
	return f.user(name, "", models.RoleAsso, models.LevelNA)
}

func (f *fixture) event(asso *models.User, name string, startsIn time.Duration) *models.Event {
	f.t.Helper()
	start := time.Now().UTC().Add(startsIn)
	evt, err := f.svc.CreateEvent(f.ctx, NewEvent{
		AssociationID: asso.ID,
		Name:          name,
		StartsAt:      start,
		EndsAt:        start.Add(2 * time.Hour),
	})
	require.NoError(f.t, err)
	return evt
}

func (f *fixture) attendeeIDs(eventID uint) []uint {
	f.t.Helper()
	users, err := f.svc.EventAttendees(f.ctx, eventID)
	require.NoError(f.t, err)
	return users.IDs()
}

func (f *fixture) recipientIDs(notificationID uint) []uint {
	f.t.Helper()
	users, err := f.svc.NotificationRecipients(f.ctx, notificationID)
	require.NoError(f.t, err)
	return users.IDs()
}

func (f *fixture) subscriberIDs(assoID uint) []uint {
	f.t.Helper()
	users, err := f.svc.Subscribers(f.ctx, assoID)
	require.NoError(f.t, err)
	return users.IDs()
}

// failCreatesOn makes every insert into table fail.
func (f *fixture) failCreatesOn(table string) {
	f.t.Helper()
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
			tx.AddError(errInjected)
		}
	})
	require.NoError(f.t, err)
}

// failDeletesOn makes every delete from table fail.
func (f *fixture) failDeletesOn(table string) {
	f.t.Helper()
	err := f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete_"+table, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
			tx.AddError(errInjected)
		}
	})
	require.NoError(f.t, err)
}

package lib

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fiffu/betterave/lib/models"
	"gorm.io/gorm"
)

type NewEvent struct {
	AssociationID uint
	Name          string
	Description   string
	Location      string
	StartsAt      time.Time
	EndsAt        time.Time
	// Participants is a recipient_type label; empty seeds no attendees.
	Participants string
}

type EventUpdate struct {
	Name        *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	EndsAt      *time.Time
}

type events struct {
	base
}

// FutureEvents lists the events of an association that start at or after now.
func FutureEvents(ctx context.Context, tx *gorm.DB, assoID uint, now time.Time) (models.Events, error) {
	var evts models.Events
	err := tx.WithContext(ctx).
		Where("association_id = ? AND starts_at >= ?", assoID, now.UTC()).
		Order("starts_at").
		Find(&evts).Error
	return evts, err
}

// CreateEvent creates an event and seeds its attendees from the
// participants label, resolved the same way as notification recipients.
func (svc *events) CreateEvent(ctx context.Context, in NewEvent) (*models.Event, error) {
	if in.EndsAt.Before(in.StartsAt) {
		return nil, ErrInvalidEventWindow
	}

	var spec RecipientSpec
	if in.Participants != "" {
		parsed, err := ParseRecipientSpec(in.Participants, in.AssociationID)
		if err != nil {
			return nil, ErrInvalidRecipientSpec
		}
		spec = parsed
	}

	evt := &models.Event{
		AssociationID: in.AssociationID,
		Name:          in.Name,
		Description:   in.Description,
		Location:      in.Location,
		StartsAt:      in.StartsAt.UTC(),
		EndsAt:        in.EndsAt.UTC(),
		Participants:  in.Participants,
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, in.AssociationID); err != nil {
			return err
		}
		if err := tx.Create(evt).Error; err != nil {
			return err
		}
		if spec == nil {
			return nil
		}
		attendees, err := ResolveRecipients(ctx, tx, spec)
		if err != nil {
			return err
		}
		return attend(tx, []uint{evt.ID}, attendees.IDs()...)
	})
	if err = svc.settle("create event", err, "asso_id", in.AssociationID); err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Created event", "event_id", evt.ID, "asso_id", evt.AssociationID)
	return evt, nil
}

// AddAttendees enrolls users in an event. Users already attending are
// skipped.
func (svc *events) AddAttendees(ctx context.Context, eventID uint, userIDs []uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Event{}, eventID).Error; err != nil {
			return err
		}
		wanted := mapset.NewThreadUnsafeSet(userIDs...)
		if err := requireUsers(tx, wanted.ToSlice()...); err != nil {
			return err
		}

		var attending []uint
		err := tx.Model(&models.EventAttendance{}).
			Where("event_id = ?", eventID).
			Pluck("user_id", &attending).Error
		if err != nil {
			return err
		}
		fresh := wanted.Difference(mapset.NewThreadUnsafeSet(attending...))
		return attend(tx, []uint{eventID}, fresh.ToSlice()...)
	})
	return svc.settle("add attendees", err, "event_id", eventID)
}

func (svc *events) RemoveAttendee(ctx context.Context, eventID, userID uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Event{}, eventID).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&models.EventAttendance{}).Error
	})
	return svc.settle("remove attendee", err, "event_id", eventID, "user_id", userID)
}

func (svc *events) Event(ctx context.Context, id uint) (*models.Event, error) {
	evt := &models.Event{}
	err := svc.db.WithContext(ctx).Preload("Association").First(evt, id).Error
	if err = svc.settle("get event", err, "event_id", id); err != nil {
		return nil, err
	}
	return evt, nil
}

func (svc *events) Events(ctx context.Context) (models.Events, error) {
	var evts models.Events
	err := svc.db.WithContext(ctx).Preload("Association").Order("starts_at").Find(&evts).Error
	return evts, svc.settle("list events", err)
}

func (svc *events) AssociationEvents(ctx context.Context, assoID uint) (models.Events, error) {
	var evts models.Events
	err := svc.db.WithContext(ctx).
		Preload("Association").
		Where("association_id = ?", assoID).
		Order("starts_at").
		Find(&evts).Error
	return evts, svc.settle("list association events", err, "asso_id", assoID)
}

func (svc *events) EventAttendees(ctx context.Context, eventID uint) (models.Users, error) {
	if _, err := svc.Event(ctx, eventID); err != nil {
		return nil, err
	}
	var users models.Users
	err := svc.db.WithContext(ctx).
		Joins("JOIN event_attendances ON event_attendances.user_id = users.id").
		Where("event_attendances.event_id = ?", eventID).
		Order("users.id").
		Find(&users).Error
	return users, svc.settle("list attendees", err, "event_id", eventID)
}

func (svc *events) UserEvents(ctx context.Context, userID uint) (models.Events, error) {
	return svc.userEvents(ctx, userID, time.Time{})
}

func (svc *events) UserFutureEvents(ctx context.Context, userID uint) (models.Events, error) {
	return svc.userEvents(ctx, userID, time.Now().UTC())
}

func (svc *events) userEvents(ctx context.Context, userID uint, after time.Time) (models.Events, error) {
	if err := requireUsers(svc.db.WithContext(ctx), userID); err != nil {
		return nil, svc.settle("list user events", err, "user_id", userID)
	}

	var evts models.Events
	q := svc.db.WithContext(ctx).
		Preload("Association").
		Joins("JOIN event_attendances ON event_attendances.event_id = events.id").
		Where("event_attendances.user_id = ?", userID).
		Order("events.starts_at")
	if !after.IsZero() {
		q = q.Where("events.starts_at >= ?", after)
	}
	err := q.Find(&evts).Error
	return evts, svc.settle("list user events", err, "user_id", userID)
}

func (svc *events) UpdateEvent(ctx context.Context, id uint, upd EventUpdate) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		evt := &models.Event{}
		if err := tx.First(evt, id).Error; err != nil {
			return err
		}
		if upd.Name != nil {
			evt.Name = *upd.Name
		}
		if upd.Description != nil {
			evt.Description = *upd.Description
		}
		if upd.Location != nil {
			evt.Location = *upd.Location
		}
		if upd.StartsAt != nil {
			evt.StartsAt = upd.StartsAt.UTC()
		}
		if upd.EndsAt != nil {
			evt.EndsAt = upd.EndsAt.UTC()
		}
		if evt.EndsAt.Before(evt.StartsAt) {
			return ErrInvalidEventWindow
		}
		return tx.Save(evt).Error
	})
	return svc.settle("update event", err, "event_id", id)
}

func (svc *events) DeleteEvent(ctx context.Context, id uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Event{}, id).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.EventAttendance{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Event{}, id).Error
	})
	return svc.settle("delete event", err, "event_id", id)
}

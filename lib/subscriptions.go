package lib

import (
	"context"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptions keeps a user's subscription to an association consistent
// with the attendees of the association's future events and the recipients
// of its notifications.
type subscriptions struct {
	base
}

// Subscribe makes the user follow the association and enrolls them in every
// event of the association that has not started yet. Subscribing twice is a
// no-op.
func (svc *subscriptions) Subscribe(ctx context.Context, userID, assoID uint) error {
	now := time.Now().UTC()
	enrolled := 0

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, userID, assoID); err != nil {
			return err
		}
		if ok, err := isSubscribed(tx, userID, assoID); err != nil || ok {
			return err
		}

		sub := &models.Subscription{UserID: userID, AssociationID: assoID}
		if err := tx.Create(sub).Error; err != nil {
			return err
		}

		future, err := FutureEvents(ctx, tx, assoID, now)
		if err != nil {
			return err
		}
		enrolled = len(future)
		return attend(tx, future.IDs(), userID)
	})
	if err = svc.settle("subscribe", err, "user_id", userID, "asso_id", assoID); err != nil {
		return err
	}

	svc.log.Sugar().Infow("Subscribed user to association",
		"user_id", userID, "asso_id", assoID, "events_enrolled", enrolled)
	return nil
}

// Unsubscribe removes the subscription, the user's attendance of the
// association's future events, and the user from the recipients of every
// notification the association has sent. Unsubscribing when not subscribed
// is a no-op.
func (svc *subscriptions) Unsubscribe(ctx context.Context, userID, assoID uint) error {
	now := time.Now().UTC()

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, userID, assoID); err != nil {
			return err
		}
		if ok, err := isSubscribed(tx, userID, assoID); err != nil || !ok {
			return err
		}

		err := tx.
			Where("user_id = ? AND association_id = ?", userID, assoID).
			Delete(&models.Subscription{}).Error
		if err != nil {
			return err
		}

		future, err := FutureEvents(ctx, tx, assoID, now)
		if err != nil {
			return err
		}
		if ids := future.IDs(); len(ids) > 0 {
			err := tx.
				Where("user_id = ? AND event_id IN ?", userID, ids).
				Delete(&models.EventAttendance{}).Error
			if err != nil {
				return err
			}
		}

		var sent []uint
		err = tx.Model(&models.Notification{}).
			Where("sent_by_user_id = ?", assoID).
			Pluck("id", &sent).Error
		if err != nil {
			return err
		}
		if len(sent) > 0 {
			err := tx.
				Where("user_id = ? AND notification_id IN ?", userID, sent).
				Delete(&models.NotificationReception{}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err = svc.settle("unsubscribe", err, "user_id", userID, "asso_id", assoID); err != nil {
		return err
	}

	svc.log.Sugar().Infow("Unsubscribed user from association", "user_id", userID, "asso_id", assoID)
	return nil
}

// Subscriptions lists the associations a user follows.
func (svc *subscriptions) Subscriptions(ctx context.Context, userID uint) (models.Users, error) {
	if err := requireUsers(svc.db.WithContext(ctx), userID); err != nil {
		return nil, svc.settle("list subscriptions", err, "user_id", userID)
	}
	var assos models.Users
	err := svc.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.association_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("users.id").
		Find(&assos).Error
	return assos, svc.settle("list subscriptions", err, "user_id", userID)
}

// Subscribers lists the users following an association.
func (svc *subscriptions) Subscribers(ctx context.Context, assoID uint) (models.Users, error) {
	if err := requireUsers(svc.db.WithContext(ctx), assoID); err != nil {
		return nil, svc.settle("list subscribers", err, "asso_id", assoID)
	}
	users, err := ResolveRecipients(ctx, svc.db, SubscribersOf{assoID})
	return users, svc.settle("list subscribers", err, "asso_id", assoID)
}

func (svc *subscriptions) Associations(ctx context.Context) (models.Users, error) {
	var assos models.Users
	err := svc.db.WithContext(ctx).Where("role = ?", models.RoleAsso).Order("id").Find(&assos).Error
	return assos, svc.settle("list associations", err)
}

func isSubscribed(tx *gorm.DB, userID, assoID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.Subscription{}).
		Where("user_id = ? AND association_id = ?", userID, assoID).
		Count(&n).Error
	return n > 0, err
}

func attend(tx *gorm.DB, eventIDs []uint, userIDs ...uint) error {
	if len(eventIDs) == 0 || len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.EventAttendance, 0, len(eventIDs)*len(userIDs))
	for _, eventID := range eventIDs {
		for _, userID := range userIDs {
			rows = append(rows, models.EventAttendance{EventID: eventID, UserID: userID})
		}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

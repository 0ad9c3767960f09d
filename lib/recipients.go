package lib

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fiffu/betterave/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	subscribersLabel = "Subscribers"
	allUsersLabel    = "All users"
)

// RecipientSpec describes who receives a notification, or who is seeded as
// the attendees of an event.
type RecipientSpec interface {
	Label() string
	isRecipientSpec()
}

// SubscribersOf selects the current subscribers of an association.
type SubscribersOf struct {
	AssociationID uint
}

// AllUsers selects every user.
type AllUsers struct{}

// LevelCohort selects every user of the given level.
type LevelCohort struct {
	Level models.UserLevel
}

func (SubscribersOf) Label() string    { return subscribersLabel }
func (AllUsers) Label() string         { return allUsersLabel }
func (s LevelCohort) Label() string    { return string(s.Level) }
func (SubscribersOf) isRecipientSpec() {}
func (AllUsers) isRecipientSpec()      {}
func (LevelCohort) isRecipientSpec()   {}

// ParseRecipientSpec reads the recipient_type label sent by clients.
// "Subscribers" refers to the subscribers of senderID.
func ParseRecipientSpec(raw string, senderID uint) (RecipientSpec, error) {
	switch raw {
	case subscribersLabel:
		return SubscribersOf{senderID}, nil
	case allUsersLabel:
		return AllUsers{}, nil
	}
	if level := models.UserLevel(raw); level.Valid() {
		return LevelCohort{level}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidRecipientSpec, raw)
}

// ResolveRecipients returns the users currently selected by spec.
func ResolveRecipients(ctx context.Context, tx *gorm.DB, spec RecipientSpec) (models.Users, error) {
	var users models.Users
	q := tx.WithContext(ctx).Order("users.id")

	switch s := spec.(type) {
	case SubscribersOf:
		q = q.
			Joins("JOIN subscriptions ON subscriptions.user_id = users.id").
			Where("subscriptions.association_id = ?", s.AssociationID)
	case AllUsers:
	case LevelCohort:
		q = q.Where("users.level = ?", s.Level)
	default:
		return nil, ErrInvalidRecipientSpec
	}

	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type NewNotification struct {
	Title        string
	Content      string
	SentByUserID uint
	Recipients   RecipientSpec
}

// RecipientSelection picks the users appended to a notification. UserIDs
// wins over Level; when both are empty every user is selected.
type RecipientSelection struct {
	UserIDs []uint
	Level   models.UserLevel
}

func (sel RecipientSelection) spec() RecipientSpec {
	if sel.Level != "" {
		return LevelCohort{sel.Level}
	}
	return AllUsers{}
}

type NotificationUpdate struct {
	Title   *string
	Content *string
}

type recipients struct {
	base
}

func (svc *recipients) CreateNotification(ctx context.Context, in NewNotification) (*models.Notification, error) {
	if in.Recipients == nil {
		return nil, ErrInvalidRecipientSpec
	}

	notif := &models.Notification{
		Title:         in.Title,
		Content:       in.Content,
		SentByUserID:  in.SentByUserID,
		RecipientType: in.Recipients.Label(),
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, in.SentByUserID); err != nil {
			return err
		}
		users, err := ResolveRecipients(ctx, tx, in.Recipients)
		if err != nil {
			return err
		}
		if err := tx.Create(notif).Error; err != nil {
			return err
		}
		return linkRecipients(tx, notif.ID, users.IDs())
	})
	if err = svc.settle("create notification", err, "sender_id", in.SentByUserID); err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Created notification",
		"notification_id", notif.ID,
		"sender_id", notif.SentByUserID,
		"recipient_type", notif.RecipientType,
	)
	return notif, nil
}

// AddRecipients appends the selected users to the recipients of a
// notification. Users who already received it are left alone.
func (svc *recipients) AddRecipients(ctx context.Context, notificationID uint, sel RecipientSelection) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Notification{}, notificationID).Error; err != nil {
			return err
		}

		var users models.Users
		if len(sel.UserIDs) > 0 {
			if err := tx.Where("id IN ?", sel.UserIDs).Find(&users).Error; err != nil {
				return err
			}
		} else {
			resolved, err := ResolveRecipients(ctx, tx, sel.spec())
			if err != nil {
				return err
			}
			users = resolved
		}

		var existing []uint
		err := tx.Model(&models.NotificationReception{}).
			Where("notification_id = ?", notificationID).
			Pluck("user_id", &existing).Error
		if err != nil {
			return err
		}

		received := mapset.NewThreadUnsafeSet(existing...)
		fresh := make([]uint, 0, len(users))
		for _, id := range users.IDs() {
			if received.Add(id) {
				fresh = append(fresh, id)
			}
		}
		return linkRecipients(tx, notificationID, fresh)
	})
	return svc.settle("add recipients", err, "notification_id", notificationID)
}

func (svc *recipients) Notification(ctx context.Context, id uint) (*models.Notification, error) {
	notif := &models.Notification{}
	err := svc.db.WithContext(ctx).Preload("Sender").First(notif, id).Error
	if err = svc.settle("get notification", err, "notification_id", id); err != nil {
		return nil, err
	}
	return notif, nil
}

func (svc *recipients) Notifications(ctx context.Context) (models.Notifications, error) {
	var notifs models.Notifications
	err := svc.db.WithContext(ctx).Preload("Sender").Order("id").Find(&notifs).Error
	return notifs, svc.settle("list notifications", err)
}

// NotificationRecipients lists the users a notification was delivered to.
func (svc *recipients) NotificationRecipients(ctx context.Context, id uint) (models.Users, error) {
	if _, err := svc.Notification(ctx, id); err != nil {
		return nil, err
	}
	var users models.Users
	err := svc.db.WithContext(ctx).
		Joins("JOIN notification_receptions ON notification_receptions.user_id = users.id").
		Where("notification_receptions.notification_id = ?", id).
		Order("users.id").
		Find(&users).Error
	return users, svc.settle("list notification recipients", err, "notification_id", id)
}

// UserNotifications lists the notifications received by a user, newest
// first. A non-positive limit returns all of them.
func (svc *recipients) UserNotifications(ctx context.Context, userID uint, limit int) (models.Notifications, error) {
	if err := requireUsers(svc.db.WithContext(ctx), userID); err != nil {
		return nil, svc.settle("list user notifications", err, "user_id", userID)
	}

	var notifs models.Notifications
	q := svc.db.WithContext(ctx).
		Preload("Sender").
		Joins("JOIN notification_receptions ON notification_receptions.notification_id = notifications.id").
		Where("notification_receptions.user_id = ?", userID).
		Order("notifications.id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&notifs).Error
	return notifs, svc.settle("list user notifications", err, "user_id", userID)
}

// UpdateNotification edits the title and content. Recipients are a snapshot
// and are never recomputed.
func (svc *recipients) UpdateNotification(ctx context.Context, id uint, upd NotificationUpdate) error {
	changes := map[string]any{}
	if upd.Title != nil {
		changes["title"] = *upd.Title
	}
	if upd.Content != nil {
		changes["content"] = *upd.Content
	}

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		notif := &models.Notification{}
		if err := tx.First(notif, id).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(notif).Updates(changes).Error
	})
	return svc.settle("update notification", err, "notification_id", id)
}

func (svc *recipients) DeleteNotification(ctx context.Context, id uint) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Notification{}, id).Error; err != nil {
			return err
		}
		if err := tx.Where("notification_id = ?", id).Delete(&models.NotificationReception{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Notification{}, id).Error
	})
	return svc.settle("delete notification", err, "notification_id", id)
}

func linkRecipients(tx *gorm.DB, notificationID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	links := make([]models.NotificationReception, len(userIDs))
	for i, id := range userIDs {
		links[i] = models.NotificationReception{NotificationID: notificationID, UserID: id}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

// requireUsers fails with ErrNotFound unless every id names a user.
func requireUsers(tx *gorm.DB, ids ...uint) error {
	want := mapset.NewThreadUnsafeSet(ids...)
	var found int64
	err := tx.Model(&models.User{}).Where("id IN ?", want.ToSlice()).Count(&found).Error
	if err != nil {
		return err
	}
	if int(found) != want.Cardinality() {
		return ErrNotFound
	}
	return nil
}

package lib

import (
	"context"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"gorm.io/gorm"
)

type messages struct {
	base
}

func (svc *messages) GroupMessages(ctx context.Context, groupID uint) (models.Messages, error) {
	if err := svc.db.WithContext(ctx).First(&models.ClassGroup{}, groupID).Error; err != nil {
		return nil, svc.settle("list messages", err, "group_id", groupID)
	}
	var msgs models.Messages
	err := svc.db.WithContext(ctx).
		Preload("User").
		Where("class_group_id = ?", groupID).
		Order("timestamp, id").
		Find(&msgs).Error
	return msgs, svc.settle("list messages", err, "group_id", groupID)
}

func (svc *messages) PostGroupMessage(ctx context.Context, groupID, userID uint, content string) (*models.Message, error) {
	var msg *models.Message
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.ClassGroup{}, groupID).Error; err != nil {
			return err
		}
		posted, err := postMessage(tx, groupID, userID, content)
		msg = posted
		return err
	})
	if err = svc.settle("post message", err, "group_id", groupID, "user_id", userID); err != nil {
		return nil, err
	}
	return msg, nil
}

// ClassMessages lists the messages of the main group of a class.
func (svc *messages) ClassMessages(ctx context.Context, classID uint) (models.Messages, error) {
	group, err := mainGroup(svc.db.WithContext(ctx), classID)
	if err != nil {
		return nil, svc.settle("list class messages", err, "class_id", classID)
	}
	return svc.GroupMessages(ctx, group.ID)
}

func (svc *messages) PostClassMessage(ctx context.Context, classID, userID uint, content string) (*models.Message, error) {
	var msg *models.Message
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := mainGroup(tx, classID)
		if err != nil {
			return err
		}
		posted, err := postMessage(tx, group.ID, userID, content)
		msg = posted
		return err
	})
	if err = svc.settle("post class message", err, "class_id", classID, "user_id", userID); err != nil {
		return nil, err
	}
	return msg, nil
}

func postMessage(tx *gorm.DB, groupID, userID uint, content string) (*models.Message, error) {
	user := models.User{}
	if err := tx.First(&user, userID).Error; err != nil {
		return nil, err
	}
	msg := &models.Message{
		ClassGroupID: groupID,
		UserID:       userID,
		Content:      content,
		Timestamp:    time.Now().UTC(),
	}
	if err := tx.Create(msg).Error; err != nil {
		return nil, err
	}
	msg.User = user
	return msg, nil
}

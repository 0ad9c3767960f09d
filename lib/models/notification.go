package models

import "gorm.io/gorm"

type Notification struct {
	gorm.Model
	Title         string
	Content       string
	SentByUserID  uint   `gorm:"index"`
	RecipientType string // "Subscribers", "All users" or a UserLevel

	Sender User `gorm:"foreignKey:SentByUserID"`
}

type Notifications []Notification

package models

import "time"

// Subscription links a user to an association they follow.
type Subscription struct {
	UserID        uint `gorm:"primaryKey;autoIncrement:false"`
	AssociationID uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt     time.Time
}

// EventAttendance links an event to one of its attendees.
type EventAttendance struct {
	EventID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID  uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// NotificationReception links a notification to one of its recipients.
type NotificationReception struct {
	NotificationID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID         uint `gorm:"primaryKey;autoIncrement:false;index"`
}

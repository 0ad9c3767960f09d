package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type Class struct {
	gorm.Model
	Name             string
	EctsCredits      int
	EnsaeLink        string
	Level            UserLevel `gorm:"index"`
	BackgroundColor  string
	DefaultTeacherID uint `gorm:"index"`

	Groups []ClassGroup
}

type Classes []Class

type ClassGroup struct {
	gorm.Model
	Name        string
	IsMainGroup bool
	ClassID     uint `gorm:"index"`
}

// UserClassGroup is a user's membership in a class group, carrying the
// grade obtained in the group's class.
type UserClassGroup struct {
	UserID       uint `gorm:"primaryKey;autoIncrement:false"`
	ClassGroupID uint `gorm:"primaryKey;autoIncrement:false;index"`
	Grade        sql.NullFloat64
}

type Lesson struct {
	gorm.Model
	ClassGroupID uint `gorm:"index"`
	TeacherID    uint `gorm:"index"`
	StartsAt     time.Time
	EndsAt       time.Time
	Room         string
	IsExam       bool
}

type Lessons []Lesson

type Homework struct {
	gorm.Model
	ClassID uint `gorm:"index"`
	Content string
	DueAt   time.Time
}

type Message struct {
	gorm.Model
	ClassGroupID uint `gorm:"index"`
	UserID       uint
	Content      string
	Timestamp    time.Time

	User User `gorm:"foreignKey:UserID"`
}

type Messages []Message

// All lists every persisted model, for migrations.
func All() []any {
	return []any{
		&User{},
		&Subscription{},
		&Event{},
		&EventAttendance{},
		&Notification{},
		&NotificationReception{},
		&Class{},
		&ClassGroup{},
		&UserClassGroup{},
		&Lesson{},
		&Homework{},
		&Message{},
	}
}

package models

import (
	"database/sql"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
	RoleAsso    UserRole = "asso"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleAsso:
		return true
	}
	return false
}

type UserLevel string

const (
	Level1A UserLevel = "1A"
	Level2A UserLevel = "2A"
	Level3A UserLevel = "3A"
	LevelNA UserLevel = "NA"
)

func (l UserLevel) Valid() bool {
	switch l {
	case Level1A, Level2A, Level3A, LevelNA:
		return true
	}
	return false
}

// User is any person or organization with an account. Associations are
// users with RoleAsso.
type User struct {
	gorm.Model
	Name             string
	Surname          string
	Email            string `gorm:"uniqueIndex"`
	ProfilePic       string
	Role             UserRole  `gorm:"index"`
	Level            UserLevel `gorm:"index"`
	HashedPassword   string
	ResetToken       string
	ResetTokenExpiry sql.NullTime
}

type Users []User

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
func (u *User) IsAsso() bool  { return u.Role == RoleAsso }

func (users Users) IDs() []uint {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

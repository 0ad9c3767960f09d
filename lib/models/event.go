package models

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	gorm.Model
	AssociationID uint `gorm:"index:idx_association_starts_at"`
	Name          string
	Description   string
	Location      string
	StartsAt      time.Time `gorm:"index:idx_association_starts_at"`
	EndsAt        time.Time
	Participants  string // label of the recipient spec that seeded the attendees

	Association User `gorm:"foreignKey:AssociationID"`
}

type Events []Event

func (events Events) IDs() []uint {
	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

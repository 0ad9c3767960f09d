package app

import (
	"time"

	"github.com/fiffu/betterave/lib/models"
)

type UserView struct {
	ID         uint   `json:"user_id"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	ProfilePic string `json:"profile_pic"`
	Role       string `json:"user_type"`
	Level      string `json:"level"`
}

func (view UserView) From(entity models.User) UserView {
	return UserView{
		ID:         entity.ID,
		Name:       entity.Name,
		Surname:    entity.Surname,
		Email:      entity.Email,
		ProfilePic: entity.ProfilePic,
		Role:       string(entity.Role),
		Level:      string(entity.Level),
	}
}

type EventView struct {
	ID            uint   `json:"event_id"`
	AssociationID uint   `json:"asso_id"`
	Association   string `json:"asso_name,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	StartsAt      string `json:"start"`
	EndsAt        string `json:"end"`
	Participants  string `json:"participants"`
}

func (view EventView) From(entity models.Event) EventView {
	return EventView{
		ID:            entity.ID,
		AssociationID: entity.AssociationID,
		Association:   entity.Association.Name,
		Name:          entity.Name,
		Description:   entity.Description,
		Location:      entity.Location,
		StartsAt:      isoformat(entity.StartsAt),
		EndsAt:        isoformat(entity.EndsAt),
		Participants:  entity.Participants,
	}
}

type NotificationView struct {
	ID            uint   `json:"notification_id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	SentByUserID  uint   `json:"sent_by_user_id"`
	SenderName    string `json:"sender_name,omitempty"`
	RecipientType string `json:"recipient_type"`
	CreatedAt     string `json:"created_at"`
}

func (view NotificationView) From(entity models.Notification) NotificationView {
	return NotificationView{
		ID:            entity.ID,
		Title:         entity.Title,
		Content:       entity.Content,
		SentByUserID:  entity.SentByUserID,
		SenderName:    entity.Sender.Name,
		RecipientType: entity.RecipientType,
		CreatedAt:     isoformat(entity.CreatedAt),
	}
}

type ClassGroupView struct {
	ID          uint   `json:"class_group_id"`
	ClassID     uint   `json:"class_id"`
	Name        string `json:"name"`
	IsMainGroup bool   `json:"is_main_group"`
}

func (view ClassGroupView) From(entity models.ClassGroup) ClassGroupView {
	return ClassGroupView{
		ID:          entity.ID,
		ClassID:     entity.ClassID,
		Name:        entity.Name,
		IsMainGroup: entity.IsMainGroup,
	}
}

type ClassView struct {
	ID               uint             `json:"class_id"`
	Name             string           `json:"name"`
	EctsCredits      int              `json:"ects_credits"`
	EnsaeLink        string           `json:"ensae_link"`
	Level            string           `json:"level"`
	BackgroundColor  string           `json:"background_color"`
	DefaultTeacherID uint             `json:"default_teacher_id"`
	Groups           []ClassGroupView `json:"groups"`
}

func (view ClassView) From(entity models.Class) ClassView {
	return ClassView{
		ID:               entity.ID,
		Name:             entity.Name,
		EctsCredits:      entity.EctsCredits,
		EnsaeLink:        entity.EnsaeLink,
		Level:            string(entity.Level),
		BackgroundColor:  entity.BackgroundColor,
		DefaultTeacherID: entity.DefaultTeacherID,
		Groups:           FromMany[models.ClassGroup, ClassGroupView](entity.Groups),
	}
}

type MembershipView struct {
	UserID       uint     `json:"user_id"`
	ClassGroupID uint     `json:"class_group_id"`
	Grade        *float64 `json:"grade"`
}

func (view MembershipView) From(entity models.UserClassGroup) MembershipView {
	v := MembershipView{UserID: entity.UserID, ClassGroupID: entity.ClassGroupID}
	if entity.Grade.Valid {
		v.Grade = &entity.Grade.Float64
	}
	return v
}

type LessonView struct {
	ID           uint   `json:"lesson_id"`
	ClassGroupID uint   `json:"class_group_id"`
	TeacherID    uint   `json:"teacher_id"`
	StartsAt     string `json:"start_time"`
	EndsAt       string `json:"end_time"`
	Room         string `json:"room"`
	IsExam       bool   `json:"is_exam"`
}

func (view LessonView) From(entity models.Lesson) LessonView {
	return LessonView{
		ID:           entity.ID,
		ClassGroupID: entity.ClassGroupID,
		TeacherID:    entity.TeacherID,
		StartsAt:     isoformat(entity.StartsAt),
		EndsAt:       isoformat(entity.EndsAt),
		Room:         entity.Room,
		IsExam:       entity.IsExam,
	}
}

type HomeworkView struct {
	ID      uint   `json:"homework_id"`
	ClassID uint   `json:"class_id"`
	Content string `json:"content"`
	DueAt   string `json:"due_at"`
}

func (view HomeworkView) From(entity models.Homework) HomeworkView {
	return HomeworkView{entity.ID, entity.ClassID, entity.Content, isoformat(entity.DueAt)}
}

type MessageView struct {
	ID           uint   `json:"message_id"`
	ClassGroupID uint   `json:"class_group_id"`
	UserID       uint   `json:"user_id"`
	Author       string `json:"author"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
}

func (view MessageView) From(entity models.Message) MessageView {
	author := entity.User.Name
	if entity.User.Surname != "" {
		author += " " + entity.User.Surname
	}
	return MessageView{
		ID:           entity.ID,
		ClassGroupID: entity.ClassGroupID,
		UserID:       entity.UserID,
		Author:       author,
		Content:      entity.Content,
		Timestamp:    isoformat(entity.Timestamp),
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

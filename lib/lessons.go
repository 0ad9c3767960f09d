package lib

import (
	"context"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"gorm.io/gorm"
)

type NewLesson struct {
	ClassGroupID uint
	TeacherID    uint
	StartsAt     time.Time
	EndsAt       time.Time
	Room         string
	IsExam       bool
}

type LessonUpdate struct {
	ClassGroupID *uint
	TeacherID    *uint
	StartsAt     *time.Time
	EndsAt       *time.Time
	Room         *string
	IsExam       *bool
}

type lessons struct {
	base
}

func (svc *lessons) CreateLesson(ctx context.Context, in NewLesson) (*models.Lesson, error) {
	if in.EndsAt.Before(in.StartsAt) {
		return nil, ErrInvalidEventWindow
	}
	lesson := &models.Lesson{
		ClassGroupID: in.ClassGroupID,
		TeacherID:    in.TeacherID,
		StartsAt:     in.StartsAt.UTC(),
		EndsAt:       in.EndsAt.UTC(),
		Room:         in.Room,
		IsExam:       in.IsExam,
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.ClassGroup{}, in.ClassGroupID).Error; err != nil {
			return err
		}
		if err := requireUsers(tx, in.TeacherID); err != nil {
			return err
		}
		return tx.Create(lesson).Error
	})
	if err = svc.settle("create lesson", err, "group_id", in.ClassGroupID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (svc *lessons) Lesson(ctx context.Context, id uint) (*models.Lesson, error) {
	lesson := &models.Lesson{}
	err := svc.db.WithContext(ctx).First(lesson, id).Error
	if err = svc.settle("get lesson", err, "lesson_id", id); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (svc *lessons) Lessons(ctx context.Context) (models.Lessons, error) {
	var all models.Lessons
	err := svc.db.WithContext(ctx).Order("starts_at").Find(&all).Error
	return all, svc.settle("list lessons", err)
}

func (svc *lessons) ClassLessons(ctx context.Context, classID uint) (models.Lessons, error) {
	var all models.Lessons
	err := svc.db.WithContext(ctx).
		Joins("JOIN class_groups ON class_groups.id = lessons.class_group_id").
		Where("class_groups.class_id = ?", classID).
		Order("lessons.starts_at").
		Find(&all).Error
	return all, svc.settle("list class lessons", err, "class_id", classID)
}

// UserLessons lists the lessons of the groups a user belongs to and the
// lessons they teach.
func (svc *lessons) UserLessons(ctx context.Context, userID uint) (models.Lessons, error) {
	return svc.userLessons(ctx, userID, time.Time{})
}

func (svc *lessons) UserFutureLessons(ctx context.Context, userID uint) (models.Lessons, error) {
	return svc.userLessons(ctx, userID, time.Now().UTC())
}

func (svc *lessons) userLessons(ctx context.Context, userID uint, after time.Time) (models.Lessons, error) {
	if err := requireUsers(svc.db.WithContext(ctx), userID); err != nil {
		return nil, svc.settle("list user lessons", err, "user_id", userID)
	}

	groups := svc.db.Model(&models.UserClassGroup{}).Select("class_group_id").Where("user_id = ?", userID)
	q := svc.db.WithContext(ctx).
		Where(svc.db.Where("class_group_id IN (?)", groups).Or("teacher_id = ?", userID)).
		Order("starts_at")
	if !after.IsZero() {
		q = q.Where("starts_at >= ?", after)
	}

	var all models.Lessons
	err := q.Find(&all).Error
	return all, svc.settle("list user lessons", err, "user_id", userID)
}

func (svc *lessons) UpdateLesson(ctx context.Context, id uint, upd LessonUpdate) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lesson := &models.Lesson{}
		if err := tx.First(lesson, id).Error; err != nil {
			return err
		}
		if upd.ClassGroupID != nil {
			if err := tx.First(&models.ClassGroup{}, *upd.ClassGroupID).Error; err != nil {
				return err
			}
			lesson.ClassGroupID = *upd.ClassGroupID
		}
		if upd.TeacherID != nil {
			if err := requireUsers(tx, *upd.TeacherID); err != nil {
				return err
			}
			lesson.TeacherID = *upd.TeacherID
		}
		if upd.StartsAt != nil {
			lesson.StartsAt = upd.StartsAt.UTC()
		}
		if upd.EndsAt != nil {
			lesson.EndsAt = upd.EndsAt.UTC()
		}
		if upd.Room != nil {
			lesson.Room = *upd.Room
		}
		if upd.IsExam != nil {
			lesson.IsExam = *upd.IsExam
		}
		if lesson.EndsAt.Before(lesson.StartsAt) {
			return ErrInvalidEventWindow
		}
		return tx.Save(lesson).Error
	})
	return svc.settle("update lesson", err, "lesson_id", id)
}

func (svc *lessons) DeleteLesson(ctx context.Context, id uint) error {
	res := svc.db.WithContext(ctx).Unscoped().Delete(&models.Lesson{}, id)
	if res.Error == nil && res.RowsAffected == 0 {
		return ErrNotFound
	}
	return svc.settle("delete lesson", res.Error, "lesson_id", id)
}

func (svc *lessons) ClassHomework(ctx context.Context, classID uint) ([]models.Homework, error) {
	var hw []models.Homework
	err := svc.db.WithContext(ctx).Where("class_id = ?", classID).Order("due_at").Find(&hw).Error
	return hw, svc.settle("list homework", err, "class_id", classID)
}

func (svc *lessons) AddHomework(ctx context.Context, classID uint, content string, dueAt time.Time) (*models.Homework, error) {
	hw := &models.Homework{ClassID: classID, Content: content, DueAt: dueAt.UTC()}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Class{}, classID).Error; err != nil {
			return err
		}
		return tx.Create(hw).Error
	})
	if err = svc.settle("add homework", err, "class_id", classID); err != nil {
		return nil, err
	}
	return hw, nil
}

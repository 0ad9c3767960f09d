package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/fiffu/betterave/lib"
	"github.com/fiffu/betterave/lib/models"
)

type lessonBody struct {
	ClassGroupID uint      `json:"class_group_id" validate:"required"`
	TeacherID    uint      `json:"teacher_id" validate:"required"`
	StartsAt     time.Time `json:"start_time"`
	EndsAt       time.Time `json:"end_time"`
	Room         string    `json:"room"`
	IsExam       bool      `json:"is_exam"`
}

type lessonUpdateBody struct {
	ClassGroupID *uint      `json:"class_group_id"`
	TeacherID    *uint      `json:"teacher_id"`
	StartsAt     *time.Time `json:"start_time"`
	EndsAt       *time.Time `json:"end_time"`
	Room         *string    `json:"room"`
	IsExam       *bool      `json:"is_exam"`
}

func (ctrl *controller) listLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := ctrl.svc.Lessons(r.Context())
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Lesson, LessonView](lessons))
}

func (ctrl *controller) createLesson(w http.ResponseWriter, r *http.Request) {
	var body lessonBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if body.StartsAt.IsZero() || body.EndsAt.IsZero() {
		ctrl.reject(w, http.StatusBadRequest, errors.New("start_time and end_time are required"))
		return
	}
	lesson, err := ctrl.svc.CreateLesson(r.Context(), lib.NewLesson{
		ClassGroupID: body.ClassGroupID,
		TeacherID:    body.TeacherID,
		StartsAt:     body.StartsAt,
		EndsAt:       body.EndsAt,
		Room:         body.Room,
		IsExam:       body.IsExam,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{"lesson_id": lesson.ID})
}

func (ctrl *controller) getLesson(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "lesson_id")
	if !ok {
		return
	}
	lesson, err := ctrl.svc.Lesson(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, LessonView{}.From(*lesson))
}

func (ctrl *controller) updateLesson(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "lesson_id")
	if !ok {
		return
	}
	var body lessonUpdateBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	err := ctrl.svc.UpdateLesson(r.Context(), ids[0], lib.LessonUpdate{
		ClassGroupID: body.ClassGroupID,
		TeacherID:    body.TeacherID,
		StartsAt:     body.StartsAt,
		EndsAt:       body.EndsAt,
		Room:         body.Room,
		IsExam:       body.IsExam,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) deleteLesson(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "lesson_id")
	if !ok {
		return
	}
	if err := ctrl.svc.DeleteLesson(r.Context(), ids[0]); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/fiffu/betterave/lib"
	"github.com/fiffu/betterave/lib/models"
)

type classBody struct {
	Name             string `json:"name" validate:"required"`
	EctsCredits      int    `json:"ects_credits" validate:"gte=0"`
	EnsaeLink        string `json:"ensae_link" validate:"omitempty,url"`
	Level            string `json:"level" validate:"required,level"`
	BackgroundColor  string `json:"background_color" validate:"omitempty,hexcolor"`
	DefaultTeacherID uint   `json:"default_teacher_id"`
}

type classUpdateBody struct {
	Name             *string `json:"name" validate:"omitempty,min=1"`
	EctsCredits      *int    `json:"ects_credits" validate:"omitempty,gte=0"`
	EnsaeLink        *string `json:"ensae_link" validate:"omitempty,url"`
	Level            *string `json:"level" validate:"omitempty,level"`
	BackgroundColor  *string `json:"background_color" validate:"omitempty,hexcolor"`
	DefaultTeacherID *uint   `json:"default_teacher_id"`
}

type classGroupBody struct {
	ClassID     uint   `json:"class_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	IsMainGroup bool   `json:"is_main_group"`
}

type renameBody struct {
	Name string `json:"name" validate:"required"`
}

type membershipBody struct {
	UserID       uint `json:"user_id" validate:"required"`
	ClassGroupID uint `json:"class_group_id" validate:"required"`
}

type gradeBody struct {
	Grade float64 `json:"grade" validate:"gte=0,lte=20"`
}

type homeworkBody struct {
	Content string    `json:"content" validate:"required"`
	DueAt   time.Time `json:"due_at"`
}

type messageBody struct {
	Content string `json:"content" validate:"required"`
	// UserID names the author when posting with an API key.
	UserID uint `json:"user_id"`
}

func (ctrl *controller) listClasses(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := ctrl.queryInt(w, r, "teacher_id")
	if !ok {
		return
	}
	filter := lib.ClassFilter{
		Level:     models.UserLevel(r.URL.Query().Get("level")),
		TeacherID: uint(teacherID),
	}
	classes, err := ctrl.svc.Classes(r.Context(), filter)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Class, ClassView](classes))
}

func (ctrl *controller) createClass(w http.ResponseWriter, r *http.Request) {
	var body classBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	class, err := ctrl.svc.CreateClass(r.Context(), lib.NewClass{
		Name:             body.Name,
		EctsCredits:      body.EctsCredits,
		EnsaeLink:        body.EnsaeLink,
		Level:            models.UserLevel(body.Level),
		BackgroundColor:  body.BackgroundColor,
		DefaultTeacherID: body.DefaultTeacherID,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{"class_id": class.ID})
}

func (ctrl *controller) getClass(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	class, err := ctrl.svc.Class(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, ClassView{}.From(*class))
}

func (ctrl *controller) updateClass(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	var body classUpdateBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	upd := lib.ClassUpdate{
		Name:             body.Name,
		EctsCredits:      body.EctsCredits,
		EnsaeLink:        body.EnsaeLink,
		BackgroundColor:  body.BackgroundColor,
		DefaultTeacherID: body.DefaultTeacherID,
	}
	if body.Level != nil {
		level := models.UserLevel(*body.Level)
		upd.Level = &level
	}
	if err := ctrl.svc.UpdateClass(r.Context(), ids[0], upd); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) deleteClass(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	if err := ctrl.svc.DeleteClass(r.Context(), ids[0]); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) listClassStudents(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	students, err := ctrl.svc.ClassStudents(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](students))
}

func (ctrl *controller) enrollStudent(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	var body userBody
	body.Role = string(models.RoleStudent)
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	student, err := ctrl.svc.EnrollNewStudent(r.Context(), ids[0], body.newUser())
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{"user_id": student.ID})
}

func (ctrl *controller) listClassLessons(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	lessons, err := ctrl.svc.ClassLessons(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Lesson, LessonView](lessons))
}

func (ctrl *controller) listHomework(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	hw, err := ctrl.svc.ClassHomework(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Homework, HomeworkView](hw))
}

func (ctrl *controller) addHomework(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	var body homeworkBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	hw, err := ctrl.svc.AddHomework(r.Context(), ids[0], body.Content, body.DueAt)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, HomeworkView{}.From(*hw))
}

// author picks who a posted message is attributed to.
func (ctrl *controller) author(w http.ResponseWriter, r *http.Request, body messageBody) (uint, bool) {
	a := actorFrom(r.Context())
	if !a.APIKey {
		return a.UserID, true
	}
	if body.UserID == 0 {
		ctrl.reject(w, http.StatusBadRequest, errors.New("user_id is required when posting with an API key"))
		return 0, false
	}
	return body.UserID, true
}

func (ctrl *controller) listClassMessages(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	msgs, err := ctrl.svc.ClassMessages(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Message, MessageView](msgs))
}

func (ctrl *controller) postClassMessage(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id")
	if !ok {
		return
	}
	var body messageBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	userID, ok := ctrl.author(w, r, body)
	if !ok {
		return
	}
	msg, err := ctrl.svc.PostClassMessage(r.Context(), ids[0], userID, body.Content)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, MessageView{}.From(*msg))
}

func (ctrl *controller) getGrade(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id", "user_id")
	if !ok || ctrl.forbidUnlessStaffOr(w, r, ids[1]) {
		return
	}
	grade, err := ctrl.svc.Grade(r.Context(), ids[0], ids[1])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	var body *float64
	if grade.Valid {
		body = &grade.Float64
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"grade": body})
}

func (ctrl *controller) setGrade(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "class_id", "user_id")
	if !ok {
		return
	}
	var body gradeBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if err := ctrl.svc.SetGrade(r.Context(), ids[0], ids[1], body.Grade); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// forbidUnlessStaffOr lets teachers and admins through, and otherwise only
// the user themselves.
func (ctrl *controller) forbidUnlessStaffOr(w http.ResponseWriter, r *http.Request, userID uint) bool {
	if a := actorFrom(r.Context()); a != nil && a.Role == models.RoleTeacher {
		return false
	}
	return ctrl.forbidUnless(w, r, userID)
}

func (ctrl *controller) listClassGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := ctrl.svc.ClassGroups(r.Context())
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.ClassGroup, ClassGroupView](groups))
}

func (ctrl *controller) createClassGroup(w http.ResponseWriter, r *http.Request) {
	var body classGroupBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	group, err := ctrl.svc.CreateClassGroup(r.Context(), lib.NewClassGroup{
		ClassID:     body.ClassID,
		Name:        body.Name,
		IsMainGroup: body.IsMainGroup,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{"class_group_id": group.ID})
}

func (ctrl *controller) getClassGroup(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "group_id")
	if !ok {
		return
	}
	group, err := ctrl.svc.ClassGroup(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, ClassGroupView{}.From(*group))
}

func (ctrl *controller) renameClassGroup(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "group_id")
	if !ok {
		return
	}
	var body renameBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if err := ctrl.svc.RenameClassGroup(r.Context(), ids[0], body.Name); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) deleteClassGroup(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "group_id")
	if !ok {
		return
	}
	if err := ctrl.svc.DeleteClassGroup(r.Context(), ids[0]); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) listClassGroupMembers(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "group_id")
	if !ok {
		return
	}
	members, err := ctrl.svc.ClassGroupMembers(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](members))
}

func (ctrl *controller) listGroupMessages(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "group_id")
	if !ok {
		return
	}
	msgs, err := ctrl.svc.GroupMessages(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Message, MessageView](msgs))
}

func (ctrl *controller) postGroupMessage(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "group_id")
	if !ok {
		return
	}
	var body messageBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	userID, ok := ctrl.author(w, r, body)
	if !ok {
		return
	}
	msg, err := ctrl.svc.PostGroupMessage(r.Context(), ids[0], userID, body.Content)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, MessageView{}.From(*msg))
}

func (ctrl *controller) addMembership(w http.ResponseWriter, r *http.Request) {
	var body membershipBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if err := ctrl.svc.AddMembership(r.Context(), body.UserID, body.ClassGroupID); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, MembershipView{UserID: body.UserID, ClassGroupID: body.ClassGroupID})
}

func (ctrl *controller) getMembership(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id", "group_id")
	if !ok {
		return
	}
	m, err := ctrl.svc.Membership(r.Context(), ids[0], ids[1])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, MembershipView{}.From(*m))
}

func (ctrl *controller) removeMembership(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id", "group_id")
	if !ok {
		return
	}
	if err := ctrl.svc.RemoveMembership(r.Context(), ids[0], ids[1]); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

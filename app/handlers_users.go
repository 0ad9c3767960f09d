package app

import (
	"net/http"

	"github.com/fiffu/betterave/lib"
	"github.com/fiffu/betterave/lib/models"
)

type userBody struct {
	Name       string `json:"name" validate:"required"`
	Surname    string `json:"surname"`
	ProfilePic string `json:"profile_pic"`
	Role       string `json:"user_type" validate:"required,role"`
	Level      string `json:"level" validate:"omitempty,level"`
	Email      string `json:"email" validate:"omitempty,email"`
	Password   string `json:"password" validate:"omitempty,min=6"`
}

func (b userBody) newUser() lib.NewUser {
	return lib.NewUser{
		Name:       b.Name,
		Surname:    b.Surname,
		ProfilePic: b.ProfilePic,
		Role:       models.UserRole(b.Role),
		Level:      models.UserLevel(b.Level),
		Email:      b.Email,
		Password:   b.Password,
	}
}

type userUpdateBody struct {
	Name       *string `json:"name" validate:"omitempty,min=1"`
	Surname    *string `json:"surname"`
	ProfilePic *string `json:"profile_pic"`
	Role       *string `json:"user_type" validate:"omitempty,role"`
	Level      *string `json:"level" validate:"omitempty,level"`
	Email      *string `json:"email" validate:"omitempty,email"`
}

func (ctrl *controller) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := lib.UserFilter{
		Role:  models.UserRole(q.Get("user_type")),
		Level: models.UserLevel(q.Get("level")),
	}
	users, err := ctrl.svc.Users(r.Context(), filter)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](users))
}

func (ctrl *controller) listAssociations(w http.ResponseWriter, r *http.Request) {
	assos, err := ctrl.svc.Associations(r.Context())
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](assos))
}

func (ctrl *controller) createUser(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	user, err := ctrl.svc.CreateUser(r.Context(), body.newUser())
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{"user_id": user.ID})
}

func (ctrl *controller) getUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	user, err := ctrl.svc.User(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, UserView{}.From(*user))
}

func (ctrl *controller) updateUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok || ctrl.forbidUnless(w, r, ids[0]) {
		return
	}
	var body userUpdateBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	upd := lib.UserUpdate{
		Name:       body.Name,
		Surname:    body.Surname,
		ProfilePic: body.ProfilePic,
		Email:      body.Email,
	}
	if body.Role != nil || body.Level != nil {
		// Only admins change roles and levels.
		if a := actorFrom(r.Context()); !a.APIKey && a.Role != models.RoleAdmin {
			ctrl.reject(w, http.StatusForbidden, nil)
			return
		}
	}
	if body.Role != nil {
		role := models.UserRole(*body.Role)
		upd.Role = &role
	}
	if body.Level != nil {
		level := models.UserLevel(*body.Level)
		upd.Level = &level
	}

	if err := ctrl.svc.UpdateUser(r.Context(), ids[0], upd); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) deleteUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	if err := ctrl.svc.DeleteUser(r.Context(), ids[0]); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) subscribe(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id", "asso_id")
	if !ok || ctrl.forbidUnless(w, r, ids[0]) {
		return
	}
	if err := ctrl.svc.Subscribe(r.Context(), ids[0], ids[1]); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "User subscribed to association"})
}

func (ctrl *controller) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id", "asso_id")
	if !ok || ctrl.forbidUnless(w, r, ids[0]) {
		return
	}
	if err := ctrl.svc.Unsubscribe(r.Context(), ids[0], ids[1]); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "User unsubscribed from association"})
}

func (ctrl *controller) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	assos, err := ctrl.svc.Subscriptions(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](assos))
}

func (ctrl *controller) listSubscribers(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	users, err := ctrl.svc.Subscribers(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](users))
}

func (ctrl *controller) listUserEvents(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	list := ctrl.svc.UserEvents
	if r.URL.Query().Get("future") == "true" {
		list = ctrl.svc.UserFutureEvents
	}
	evts, err := list(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Event, EventView](evts))
}

func (ctrl *controller) listUserNotifications(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	limit, ok := ctrl.queryInt(w, r, "limit")
	if !ok {
		return
	}
	notifs, err := ctrl.svc.UserNotifications(r.Context(), ids[0], limit)
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Notification, NotificationView](notifs))
}

func (ctrl *controller) listUserLessons(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	list := ctrl.svc.UserLessons
	if r.URL.Query().Get("future") == "true" {
		list = ctrl.svc.UserFutureLessons
	}
	lessons, err := list(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Lesson, LessonView](lessons))
}

func (ctrl *controller) listUserClassGroups(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "user_id")
	if !ok {
		return
	}
	groups, err := ctrl.svc.UserClassGroups(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.ClassGroup, ClassGroupView](groups))
}

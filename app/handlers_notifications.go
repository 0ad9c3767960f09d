package app

import (
	"net/http"

	"github.com/fiffu/betterave/lib"
	"github.com/fiffu/betterave/lib/models"
)

type notificationBody struct {
	SentByUserID  uint   `json:"sent_by_user_id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Content       string `json:"content"`
	RecipientType string `json:"recipient_type" validate:"required"`
}

type notificationUpdateBody struct {
	Title   *string `json:"title" validate:"omitempty,min=1"`
	Content *string `json:"content"`
}

type recipientsBody struct {
	UserIDs   []uint `json:"user_ids"`
	UserLevel string `json:"user_level" validate:"omitempty,level"`
}

func (ctrl *controller) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifs, err := ctrl.svc.Notifications(r.Context())
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Notification, NotificationView](notifs))
}

func (ctrl *controller) createNotification(w http.ResponseWriter, r *http.Request) {
	var body notificationBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	// Associations only send notifications in their own name.
	if ctrl.forbidUnless(w, r, body.SentByUserID) {
		return
	}

	spec, err := lib.ParseRecipientSpec(body.RecipientType, body.SentByUserID)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	notif, err := ctrl.svc.CreateNotification(r.Context(), lib.NewNotification{
		Title:        body.Title,
		Content:      body.Content,
		SentByUserID: body.SentByUserID,
		Recipients:   spec,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{"notification_id": notif.ID})
}

func (ctrl *controller) getNotification(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "notification_id")
	if !ok {
		return
	}
	notif, err := ctrl.svc.Notification(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, NotificationView{}.From(*notif))
}

// ownNotification loads a notification and checks the actor sent it.
func (ctrl *controller) ownNotification(w http.ResponseWriter, r *http.Request) (*models.Notification, bool) {
	ids, ok := ctrl.urlIDs(w, r, "notification_id")
	if !ok {
		return nil, false
	}
	notif, err := ctrl.svc.Notification(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return nil, false
	}
	if ctrl.forbidUnless(w, r, notif.SentByUserID) {
		return nil, false
	}
	return notif, true
}

func (ctrl *controller) updateNotification(w http.ResponseWriter, r *http.Request) {
	notif, ok := ctrl.ownNotification(w, r)
	if !ok {
		return
	}
	var body notificationUpdateBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	upd := lib.NotificationUpdate{Title: body.Title, Content: body.Content}
	if err := ctrl.svc.UpdateNotification(r.Context(), notif.ID, upd); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) deleteNotification(w http.ResponseWriter, r *http.Request) {
	notif, ok := ctrl.ownNotification(w, r)
	if !ok {
		return
	}
	if err := ctrl.svc.DeleteNotification(r.Context(), notif.ID); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) listNotificationRecipients(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "notification_id")
	if !ok {
		return
	}
	users, err := ctrl.svc.NotificationRecipients(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](users))
}

func (ctrl *controller) addNotificationRecipients(w http.ResponseWriter, r *http.Request) {
	notif, ok := ctrl.ownNotification(w, r)
	if !ok {
		return
	}
	var body recipientsBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	sel := lib.RecipientSelection{UserIDs: body.UserIDs, Level: models.UserLevel(body.UserLevel)}
	if err := ctrl.svc.AddRecipients(r.Context(), notif.ID, sel); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "Recipients added"})
}

package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/fiffu/betterave/lib"
	"github.com/fiffu/betterave/lib/models"
)

type eventBody struct {
	AssociationID uint      `json:"asso_id" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	StartsAt      time.Time `json:"start"`
	EndsAt        time.Time `json:"end"`
	Participants  string    `json:"participants"`
}

type eventUpdateBody struct {
	Name        *string    `json:"name" validate:"omitempty,min=1"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"start"`
	EndsAt      *time.Time `json:"end"`
}

type attendeesBody struct {
	UserIDs []uint `json:"user_ids" validate:"required,min=1"`
}

func (ctrl *controller) listEvents(w http.ResponseWriter, r *http.Request) {
	assoID, ok := ctrl.queryInt(w, r, "asso_id")
	if !ok {
		return
	}
	var evts models.Events
	var err error
	if assoID > 0 {
		evts, err = ctrl.svc.AssociationEvents(r.Context(), uint(assoID))
	} else {
		evts, err = ctrl.svc.Events(r.Context())
	}
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Event, EventView](evts))
}

func (ctrl *controller) createEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if body.StartsAt.IsZero() || body.EndsAt.IsZero() {
		ctrl.reject(w, http.StatusBadRequest, errors.New("start and end are required"))
		return
	}
	if ctrl.forbidUnless(w, r, body.AssociationID) {
		return
	}
	evt, err := ctrl.svc.CreateEvent(r.Context(), lib.NewEvent{
		AssociationID: body.AssociationID,
		Name:          body.Name,
		Description:   body.Description,
		Location:      body.Location,
		StartsAt:      body.StartsAt,
		EndsAt:        body.EndsAt,
		Participants:  body.Participants,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, map[string]any{"event_id": evt.ID})
}

func (ctrl *controller) getEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "event_id")
	if !ok {
		return
	}
	evt, err := ctrl.svc.Event(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, EventView{}.From(*evt))
}

// ownEvent loads an event and checks the actor organizes it.
func (ctrl *controller) ownEvent(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	ids, ok := ctrl.urlIDs(w, r, "event_id")
	if !ok {
		return nil, false
	}
	evt, err := ctrl.svc.Event(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return nil, false
	}
	if ctrl.forbidUnless(w, r, evt.AssociationID) {
		return nil, false
	}
	return evt, true
}

func (ctrl *controller) updateEvent(w http.ResponseWriter, r *http.Request) {
	evt, ok := ctrl.ownEvent(w, r)
	if !ok {
		return
	}
	var body eventUpdateBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	err := ctrl.svc.UpdateEvent(r.Context(), evt.ID, lib.EventUpdate{
		Name:        body.Name,
		Description: body.Description,
		Location:    body.Location,
		StartsAt:    body.StartsAt,
		EndsAt:      body.EndsAt,
	})
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) deleteEvent(w http.ResponseWriter, r *http.Request) {
	evt, ok := ctrl.ownEvent(w, r)
	if !ok {
		return
	}
	if err := ctrl.svc.DeleteEvent(r.Context(), evt.ID); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "Event deleted"})
}

func (ctrl *controller) listAttendees(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "event_id")
	if !ok {
		return
	}
	users, err := ctrl.svc.EventAttendees(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.User, UserView](users))
}

func (ctrl *controller) addAttendees(w http.ResponseWriter, r *http.Request) {
	evt, ok := ctrl.ownEvent(w, r)
	if !ok {
		return
	}
	var body attendeesBody
	if err := bind(r, &body); err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}
	if err := ctrl.svc.AddAttendees(r.Context(), evt.ID, body.UserIDs); err != nil {
		ctrl.fail(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"message": "Attendees added"})
}

// removeAttendee lets users leave an event, and organizers remove anyone.
func (ctrl *controller) removeAttendee(w http.ResponseWriter, r *http.Request) {
	ids, ok := ctrl.urlIDs(w, r, "event_id", "user_id")
	if !ok {
		return
	}
	evt, err := ctrl.svc.Event(r.Context(), ids[0])
	if err != nil {
		ctrl.fail(w, err)
		return
	}
	if a := actorFrom(r.Context()); !a.is(ids[1]) && !a.is(evt.AssociationID) {
		ctrl.reject(w, http.StatusForbidden, nil)
		return
	}
	if err := ctrl.svc.RemoveAttendee(r.Context(), evt.ID, ids[1]); err != nil {
		ctrl.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

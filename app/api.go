package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fiffu/betterave/config"
	"github.com/fiffu/betterave/lib"
	"github.com/fiffu/betterave/lib/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Sugar().Infow("Starting HTTP server", "addr", addr)
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

var (
	staff      = []models.UserRole{models.RoleAdmin, models.RoleTeacher}
	announcers = []models.UserRole{models.RoleAdmin, models.RoleAsso}
	adminOnly  = []models.UserRole{models.RoleAdmin}
)

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service) http.Handler {
	sess := newSessions(cfg, svc)
	ctrl := &controller{log, svc, sess}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors(cfg.CORSOrigins))
	r.Use(sess.authenticate)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", ctrl.login)
		r.Post("/logout", ctrl.logout)
		r.Get("/check-auth", ctrl.checkAuth)
		r.Post("/reset-password", ctrl.resetPassword)
		r.Post("/validate-token", ctrl.validateToken)
		r.Post("/reset-password-confirm", ctrl.resetPasswordConfirm)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(requireRoles())
		r.Get("/", ctrl.listUsers)
		r.Get("/assos", ctrl.listAssociations)
		r.With(requireRoles(adminOnly...)).Post("/", ctrl.createUser)
		r.Route("/{user_id}", func(r chi.Router) {
			r.Get("/", ctrl.getUser)
			r.Put("/", ctrl.updateUser)
			r.With(requireRoles(adminOnly...)).Delete("/", ctrl.deleteUser)
			r.Get("/subscriptions", ctrl.listSubscriptions)
			r.Post("/subscribe/{asso_id}", ctrl.subscribe)
			r.Delete("/unsubscribe/{asso_id}", ctrl.unsubscribe)
			r.Get("/subscribers", ctrl.listSubscribers)
			r.Get("/events", ctrl.listUserEvents)
			r.Get("/notifications", ctrl.listUserNotifications)
			r.Get("/lessons", ctrl.listUserLessons)
			r.Get("/class_groups", ctrl.listUserClassGroups)
		})
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(requireRoles())
		r.Get("/", ctrl.listNotifications)
		r.With(requireRoles(announcers...)).Post("/", ctrl.createNotification)
		r.Route("/{notification_id}", func(r chi.Router) {
			r.Get("/", ctrl.getNotification)
			r.With(requireRoles(announcers...)).Put("/", ctrl.updateNotification)
			r.With(requireRoles(announcers...)).Delete("/", ctrl.deleteNotification)
			r.Get("/recipients", ctrl.listNotificationRecipients)
			r.With(requireRoles(announcers...)).Post("/recipients", ctrl.addNotificationRecipients)
		})
	})

	r.Route("/events", func(r chi.Router) {
		r.Use(requireRoles())
		r.Get("/", ctrl.listEvents)
		r.With(requireRoles(announcers...)).Post("/", ctrl.createEvent)
		r.Route("/{event_id}", func(r chi.Router) {
			r.Get("/", ctrl.getEvent)
			r.With(requireRoles(announcers...)).Put("/", ctrl.updateEvent)
			r.With(requireRoles(announcers...)).Delete("/", ctrl.deleteEvent)
			r.Get("/attendees", ctrl.listAttendees)
			r.With(requireRoles(announcers...)).Post("/attendees", ctrl.addAttendees)
			r.Delete("/attendees/{user_id}", ctrl.removeAttendee)
		})
	})

	r.Route("/classes", func(r chi.Router) {
		r.Use(requireRoles())
		r.Get("/", ctrl.listClasses)
		r.With(requireRoles(staff...)).Post("/", ctrl.createClass)
		r.Route("/{class_id}", func(r chi.Router) {
			r.Get("/", ctrl.getClass)
			r.With(requireRoles(staff...)).Put("/", ctrl.updateClass)
			r.With(requireRoles(staff...)).Delete("/", ctrl.deleteClass)
			r.Get("/students", ctrl.listClassStudents)
			r.With(requireRoles(staff...)).Post("/students", ctrl.enrollStudent)
			r.Get("/lessons", ctrl.listClassLessons)
			r.Get("/homework", ctrl.listHomework)
			r.With(requireRoles(staff...)).Post("/homework", ctrl.addHomework)
			r.Get("/messages", ctrl.listClassMessages)
			r.Post("/messages", ctrl.postClassMessage)
			r.Get("/grades/{user_id}", ctrl.getGrade)
			r.With(requireRoles(staff...)).Put("/grades/{user_id}", ctrl.setGrade)
		})
	})

	r.Route("/class_groups", func(r chi.Router) {
		r.Use(requireRoles())
		r.Get("/", ctrl.listClassGroups)
		r.With(requireRoles(staff...)).Post("/", ctrl.createClassGroup)
		r.Route("/{group_id}", func(r chi.Router) {
			r.Get("/", ctrl.getClassGroup)
			r.With(requireRoles(staff...)).Put("/", ctrl.renameClassGroup)
			r.With(requireRoles(staff...)).Delete("/", ctrl.deleteClassGroup)
			r.Get("/members", ctrl.listClassGroupMembers)
			r.Get("/messages", ctrl.listGroupMessages)
			r.Post("/messages", ctrl.postGroupMessage)
		})
	})

	r.Route("/user_class_groups", func(r chi.Router) {
		r.Use(requireRoles())
		r.With(requireRoles(staff...)).Post("/", ctrl.addMembership)
		r.Get("/{user_id}/{group_id}", ctrl.getMembership)
		r.With(requireRoles(staff...)).Delete("/{user_id}/{group_id}", ctrl.removeMembership)
	})

	r.Route("/lessons", func(r chi.Router) {
		r.Use(requireRoles())
		r.Get("/", ctrl.listLessons)
		r.With(requireRoles(staff...)).Post("/", ctrl.createLesson)
		r.Get("/{lesson_id}", ctrl.getLesson)
		r.With(requireRoles(staff...)).Put("/{lesson_id}", ctrl.updateLesson)
		r.With(requireRoles(staff...)).Delete("/{lesson_id}", ctrl.deleteLesson)
	})

	return r
}

// cors allows credentialed requests from the configured front-end origins.
func cors(origins []string) func(http.Handler) http.Handler {
	allowed := mapset.NewSet(origins...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed.Contains(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, "+apiKeyHeader)
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type controller struct {
	log  *zap.Logger
	svc  *lib.Service
	sess *sessions
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if b != nil {
			w.Write(b)
		}
	}
}

// fail rejects the request with the status matching a service error.
func (ctrl *controller) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lib.ErrNotFound):
		ctrl.reject(w, http.StatusNotFound, err)
	case errors.Is(err, lib.ErrInvalidRecipientSpec), errors.Is(err, lib.ErrInvalidEventWindow):
		ctrl.reject(w, http.StatusBadRequest, err)
	case errors.Is(err, lib.ErrEmailTaken):
		ctrl.reject(w, http.StatusConflict, err)
	case errors.Is(err, lib.ErrInvalidCredentials):
		ctrl.reject(w, http.StatusUnauthorized, err)
	case errors.Is(err, lib.ErrInvalidToken):
		ctrl.reject(w, http.StatusBadRequest, err)
	default:
		ctrl.reject(w, http.StatusInternalServerError, err)
	}
}

// forbidUnless rejects with 403 unless the actor may act on behalf of userID.
func (ctrl *controller) forbidUnless(w http.ResponseWriter, r *http.Request, userID uint) bool {
	if a := actorFrom(r.Context()); a != nil && a.is(userID) {
		return false
	}
	ctrl.reject(w, http.StatusForbidden, errors.New("not allowed to act for this user"))
	return true
}

func urlID(r *http.Request, key string) (uint, error) {
	u, err := strconv.ParseUint(chi.URLParam(r, key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return uint(u), nil
}

// urlIDs parses the named URL parameters, rejecting the request with 400 if
// any is malformed.
func (ctrl *controller) urlIDs(w http.ResponseWriter, r *http.Request, keys ...string) ([]uint, bool) {
	ids := make([]uint, len(keys))
	for i, key := range keys {
		id, err := urlID(r, key)
		if err != nil {
			ctrl.reject(w, http.StatusBadRequest, err)
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

// queryInt parses an optional integer query parameter, rejecting the request
// with 400 if it is malformed. A missing parameter reads as 0.
func (ctrl *controller) queryInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, fmt.Errorf("%s must be an integer", key))
		return 0, false
	}
	return n, true
}

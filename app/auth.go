package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fiffu/betterave/config"
	"github.com/fiffu/betterave/lib"
	"github.com/fiffu/betterave/lib/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionCookie = "betterave_session"
	sessionTTL    = 7 * 24 * time.Hour
	apiKeyHeader  = "X-API-KEY"
)

var errUnauthenticated = errors.New("user not authenticated")

// actor is whoever issued the request: a logged-in user, or an API key
// holder acting as an admin.
type actor struct {
	UserID uint
	Role   models.UserRole
	APIKey bool
}

func (a *actor) is(userID uint) bool {
	return a.APIKey || a.Role == models.RoleAdmin || a.UserID == userID
}

type actorKey struct{}

func actorFrom(ctx context.Context) *actor {
	a, _ := ctx.Value(actorKey{}).(*actor)
	return a
}

type sessionClaims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// userLookup loads the user behind a session.
type userLookup interface {
	User(ctx context.Context, id uint) (*models.User, error)
}

type sessions struct {
	secret []byte
	apiKey string
	secure bool
	users  userLookup
}

func newSessions(cfg *config.Config, users userLookup) *sessions {
	return &sessions{[]byte(cfg.SessionSecret), cfg.APIKey, !cfg.IsDevelopment(), users}
}

func (s *sessions) issue(w http.ResponseWriter, user *models.User) error {
	now := time.Now().UTC()
	claims := sessionClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(sessionTTL),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *sessions) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *sessions) parse(token string) (*actor, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, err
	}
	return &actor{UserID: uint(id), Role: claims.Role}, nil
}

// current resolves a session token against the stored user, so the role in
// effect is always the one on record. A session of a deleted user has no
// actor.
func (s *sessions) current(ctx context.Context, token string) (*actor, error) {
	a, err := s.parse(token)
	if err != nil {
		return nil, nil
	}
	user, err := s.users.User(ctx, a.UserID)
	if errors.Is(err, lib.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &actor{UserID: user.ID, Role: user.Role}, nil
}

// authenticate attaches the actor of the request to its context, if any.
func (s *sessions) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a *actor
		if key := r.Header.Get(apiKeyHeader); key != "" && s.apiKey != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1 {
				a = &actor{Role: models.RoleAdmin, APIKey: true}
			}
		}
		if a == nil {
			if c, err := r.Cookie(sessionCookie); err == nil {
				if a, err = s.current(r.Context(), c.Value); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
			}
		}
		if a != nil {
			r = r.WithContext(context.WithValue(r.Context(), actorKey{}, a))
		}
		next.ServeHTTP(w, r)
	})
}

// requireRoles answers 401 without an actor and 403 when the actor's role is
// not allowed. No roles means any authenticated actor.
func requireRoles(roles ...models.UserRole) func(http.Handler) http.Handler {
	allowed := mapset.NewSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := actorFrom(r.Context())
			if a == nil {
				http.Error(w, errUnauthenticated.Error(), http.StatusUnauthorized)
				return
			}
			if !a.APIKey && allowed.Cardinality() > 0 && !allowed.Contains(a.Role) {
				http.Error(w, "insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

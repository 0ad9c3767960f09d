package app

import (
	"net/http/httptest"
	"testing"

	"github.com/fiffu/betterave/config"
	"github.com/fiffu/betterave/lib/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSessions_roundTrip(t *testing.T) {
	sess := newSessions(&config.Config{SessionSecret: "0123456789abcdef0123"}, nil)
	user := &models.User{Model: gorm.Model{ID: 42}, Role: models.RoleAsso}

	rec := httptest.NewRecorder()
	require.NoError(t, sess.issue(rec, user))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	a, err := sess.parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, &actor{UserID: 42, Role: models.RoleAsso}, a)
	assert.True(t, a.is(42))
	assert.False(t, a.is(7))
}

func TestSessions_rejectsForeignTokens(t *testing.T) {
	sess := newSessions(&config.Config{SessionSecret: "0123456789abcdef0123"}, nil)
	claims := sessionClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	_, err = sess.parse(other)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = sess.parse(unsigned)
	assert.Error(t, err)
}

func TestActor_is(t *testing.T) {
	assert.True(t, (&actor{Role: models.RoleAdmin, UserID: 1}).is(5))
	assert.True(t, (&actor{APIKey: true}).is(5))
	assert.False(t, (&actor{Role: models.RoleTeacher, UserID: 1}).is(5))
}

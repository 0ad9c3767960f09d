package lib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fiffu/betterave/lib/models"
	"github.com/fiffu/betterave/senders"
	"github.com/fiffu/betterave/senders/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errUndeliverable = errors.New("undeliverable")

type brokenSender struct{}

func (brokenSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	return "", errUndeliverable
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	u := f.user("Alice", "Georges", models.RoleStudent, models.Level1A)

	require.NoError(t, f.svc.RequestPasswordReset(f.ctx, "ALICE.GEORGES@ensae.fr"))

	msg, ok := f.outbox.Last()
	require.True(t, ok)
	assert.Equal(t, u.Email, msg.Recipient)
	assert.Equal(t, "Password Reset Instructions", msg.Subject)
	assert.Equal(t,
		[]string{"http://localhost:8080/reset-password?email=alice.georges%40ensae.fr"},
		email.Links(msg.Body),
	)

	stored, err := f.svc.User(f.ctx, u.ID)
	require.NoError(t, err)
	token := stored.ResetToken
	require.NotEmpty(t, token)
	assert.Contains(t, email.PlainText(msg.Body), token)

	assert.True(t, f.svc.ValidateResetToken(f.ctx, u.Email, token))
	assert.False(t, f.svc.ValidateResetToken(f.ctx, u.Email, "nope"))
	assert.False(t, f.svc.ValidateResetToken(f.ctx, "other@ensae.fr", token))
	assert.False(t, f.svc.ValidateResetToken(f.ctx, u.Email, ""))

	assert.ErrorIs(t, f.svc.ConfirmPasswordReset(f.ctx, u.Email, "nope", "newpass"), ErrInvalidToken)
	require.NoError(t, f.svc.ConfirmPasswordReset(f.ctx, u.Email, token, "newpass"))

	_, err = f.svc.Authenticate(f.ctx, u.Email, "ageorges")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Authenticate(f.ctx, u.Email, "newpass")
	assert.NoError(t, err)

	// Tokens are single use.
	assert.False(t, f.svc.ValidateResetToken(f.ctx, u.Email, token))
}

func TestPasswordReset_unknownEmail(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.RequestPasswordReset(f.ctx, "ghost@ensae.fr"), ErrNotFound)
	_, ok := f.outbox.Last()
	assert.False(t, ok)
}

func TestPasswordReset_expired(t *testing.T) {
	f := newFixture(t)
	u := f.user("Alice", "Georges", models.RoleStudent, models.Level1A)
	require.NoError(t, f.svc.RequestPasswordReset(f.ctx, u.Email))

	stored, err := f.svc.User(f.ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(stored).Update("reset_token_expiry", time.Now().UTC().Add(-time.Minute)).Error)

	assert.False(t, f.svc.ValidateResetToken(f.ctx, u.Email, stored.ResetToken))
}

func TestPasswordReset_sendFailureIsLoggedAsError(t *testing.T) {
	f := newFixture(t)
	u := f.user("Alice", "Georges", models.RoleStudent, models.Level1A)

	core, logs := observer.New(zapcore.InfoLevel)
	f.svc.auth.log = zap.New(core)
	f.svc.auth.senders = senders.Registry{"email": brokenSender{}}

	err := f.svc.RequestPasswordReset(f.ctx, u.Email)
	assert.ErrorIs(t, err, errUndeliverable)

	failed := logs.FilterMessage("Failed to send password reset email").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, uint64(u.ID), failed[0].ContextMap()["user_id"])
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewConfig_defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SESSION_SECRET", "")

	cfg := NewConfig(fxtest.NewLifecycle(t), zap.NewNop())

	assert.Equal(t, 5050, cfg.ServerPort)
	assert.Equal(t, "ensae.fr", cfg.SchoolEmailDomain)
	assert.Equal(t, developmentSessionSecret, cfg.SessionSecret)
	assert.Equal(t, []string{"http://localhost:8080", "http://127.0.0.1:8080"}, cfg.CORSOrigins)
	assert.False(t, cfg.MailgunEnabled())
}

func TestNewConfig_fromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "a-very-long-production-secret")
	t.Setenv("SERVER_PORT", "8000")
	t.Setenv("CORS_ORIGINS", "https://betterave.example.com")
	t.Setenv("MAILGUN_DOMAIN", "mg.example.com")
	t.Setenv("MAILGUN_API_KEY", "key-123")

	cfg := NewConfig(fxtest.NewLifecycle(t), zap.NewNop())

	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, "a-very-long-production-secret", cfg.SessionSecret)
	assert.Equal(t, []string{"https://betterave.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.MailgunEnabled())
	assert.Equal(t, 10, cfg.Mailgun.TimeoutSecs)
}

func TestNewConfig_mailgunTimeoutFallsBackToDefault(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	for _, secs := range []string{"0", "-3"} {
		t.Setenv("MAILGUN_TIMEOUT_SECS", secs)
		cfg := NewConfig(fxtest.NewLifecycle(t), zap.NewNop())
		assert.Equal(t, defaultMailgunTimeoutSecs, cfg.Mailgun.TimeoutSecs, secs)
	}
}

func TestNewConfig_panicsWithoutSecretInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "short")

	require.Panics(t, func() {
		NewConfig(fxtest.NewLifecycle(t), zap.NewNop())
	})
}

package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	developmentSessionSecret  = "betterave-development-session-secret"
	defaultMailgunTimeoutSecs = 10
)

type Config struct {
	Env               string   `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort        int      `env:"SERVER_PORT" envDefault:"5050"`
	ServerDNS         string   `env:"SERVER_DNS" envDefault:"http://localhost:5050"`
	FrontendURL       string   `env:"FRONTEND_URL"`
	DatabasePath      string   `env:"DATABASE_PATH" envDefault:"betterave.sqlite"`
	SessionSecret     string   `env:"SESSION_SECRET"`
	APIKey            string   `env:"API_KEY"`
	SchoolEmailDomain string   `env:"SCHOOL_EMAIL_DOMAIN" envDefault:"ensae.fr"`
	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080,http://127.0.0.1:8080"`
	Mailgun           struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM" envDefault:"Betterave <noreply@betterave.local>"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log *zap.Logger
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		cfg.log.Sugar().Panic(err)
	}

	if err := cfg.checkSessionSecret(); err != nil {
		if cfg.IsDevelopment() {
			cfg.log.Sugar().Infof("%s (session secret will be set to default in development env)", err)
			cfg.SessionSecret = developmentSessionSecret
		} else {
			cfg.log.Sugar().Panic(err)
		}
	}
	if cfg.Mailgun.TimeoutSecs <= 0 {
		cfg.log.Sugar().Infof("MAILGUN_TIMEOUT_SECS=%d is not positive, using %d", cfg.Mailgun.TimeoutSecs, defaultMailgunTimeoutSecs)
		cfg.Mailgun.TimeoutSecs = defaultMailgunTimeoutSecs
	}
	if cfg.APIKey == "" {
		cfg.log.Sugar().Info("API key auth is disabled since API_KEY is not defined")
	}

	return cfg
}

func (cfg *Config) IsDevelopment() bool {
	return cfg.Env == "development"
}

func (cfg *Config) MailgunEnabled() bool {
	return cfg.Mailgun.Domain != "" && cfg.Mailgun.APIKey != ""
}

func (cfg *Config) checkSessionSecret() error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET envvar must be populated")
	}
	if len(cfg.SessionSecret) < 16 {
		return errors.New("SESSION_SECRET envvar should be at least 16 characters long")
	}
	return nil
}

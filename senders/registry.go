package senders

import (
	"context"
	"net/http"

	"github.com/fiffu/betterave/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, subject, body, recipient string) (string, error)
}

type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}

	var email Sender = &consoleSender{base}
	if cfg.MailgunEnabled() {
		email = &mailgunSender{base}
	} else {
		log.Sugar().Info("Mailgun is not configured, emails will be written to the log")
	}

	return map[string]Sender{
		"email": email,
	}
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}

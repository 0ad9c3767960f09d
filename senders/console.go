package senders

import (
	"context"
	"sync"

	"github.com/fiffu/betterave/senders/email"
	"github.com/google/uuid"
)

// consoleSender writes emails to the log instead of delivering them.
type consoleSender struct {
	base
}

func (e *consoleSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	id := uuid.NewString()
	e.log.Sugar().Infow("Email (not delivered)",
		"message_id", id,
		"from", e.cfg.Mailgun.SenderFrom,
		"to", recipient,
		"subject", subject,
		"text", email.PlainText(body),
		"links", email.Links(body),
	)
	return id, nil
}

// Outbox is a Sender that keeps every message in memory instead of
// delivering it. It exists for tests and local runs, where it stands in for
// the "email" channel of a Registry.
type Outbox struct {
	mu       sync.Mutex
	Messages []OutboxMessage
}

// OutboxMessage is one message recorded by an Outbox.
type OutboxMessage struct {
	Subject, Body, Recipient string
}

func (o *Outbox) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Messages = append(o.Messages, OutboxMessage{subject, body, recipient})
	return uuid.NewString(), nil
}

// Last returns the most recent message, if any was sent.
func (o *Outbox) Last() (OutboxMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.Messages) == 0 {
		return OutboxMessage{}, false
	}
	return o.Messages[len(o.Messages)-1], true
}

// Package notify publishes outbound mail jobs for the mailer service to
// consume. Delivery is best-effort; nothing here blocks or fails a signup.
package notify

import (
	"context"
	"log/slog"

	"github.com/incidents-platform/auth-service/internal/mykafka"
)

type welcomeEvent struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type EmailNotifier struct {
	Producer *mykafka.Producer
	Topic    string
	Log      *slog.Logger
}

func NewEmailNotifier(p *mykafka.Producer, topic string, log *slog.Logger) *EmailNotifier {
	n := &EmailNotifier{Producer: p, Topic: topic, Log: log}
	if p == nil {
		log.Warn("email notifications disabled: no broker configured")
	}
	return n
}

func (n *EmailNotifier) SendWelcome(ctx context.Context, email, name string) error {
	if n.Producer == nil {
		n.Log.Warn("welcome email skipped: notifications disabled", "email", email)
		return nil
	}
	return n.Producer.PublishEvent(ctx, n.Topic, email, welcomeEvent{
		Type:  "welcome",
		Email: email,
		Name:  name,
	})
}

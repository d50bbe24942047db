package notify

import (
	"context"
	"log/slog"

	"github.com/incidents-platform/auth-service/internal/mykafka"
)

type accountEvent struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// AccountEvents publishes account lifecycle changes for downstream
// consumers. Same best-effort contract as EmailNotifier.
type AccountEvents struct {
	Producer *mykafka.Producer
	Topic    string
	Log      *slog.Logger
}

func NewAccountEvents(p *mykafka.Producer, topic string, log *slog.Logger) *AccountEvents {
	e := &AccountEvents{Producer: p, Topic: topic, Log: log}
	if p == nil {
		log.Warn("account events disabled: no broker configured")
	}
	return e
}

func (e *AccountEvents) AccountCreated(ctx context.Context, id, email string) error {
	return e.publish(ctx, accountEvent{Type: "account_created", ID: id, Email: email})
}

func (e *AccountEvents) AccountDeleted(ctx context.Context, id string) error {
	return e.publish(ctx, accountEvent{Type: "account_deleted", ID: id})
}

func (e *AccountEvents) publish(ctx context.Context, ev accountEvent) error {
	if e.Producer == nil {
		e.Log.Warn("account event skipped: events disabled", "type", ev.Type, "id", ev.ID)
		return nil
	}
	return e.Producer.PublishEvent(ctx, e.Topic, ev.ID, ev)
}

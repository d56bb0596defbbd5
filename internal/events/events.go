// Package events describes ledger change notifications and the ports
// that carry them between the API and the export worker.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type (
	Kind   string
	Action string
)

const (
	KindCategory    Kind = "category"
	KindTransaction Kind = "transaction"

	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event says that one ledger record changed. Year and Month locate the
// affected period; they are zero for category events.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Action    Action    `json:"action"`
	EntityID  int64     `json:"entity_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// New stamps an event with a fresh id and the current time.
func New(kind Kind, action Action, entityID int64, year, month int) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Action:    action,
		EntityID:  entityID,
		Year:      year,
		Month:     month,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "<kind>.<action>", used as AMQP routing key and Kafka message key.
func (e Event) RoutingKey() string {
	return string(e.Kind) + "." + string(e.Action)
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes an event and rejects bodies missing the kind or action.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch e.Kind {
	case KindCategory, KindTransaction:
	default:
		return Event{}, fmt.Errorf("decode event: unknown kind %q", e.Kind)
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return Event{}, fmt.Errorf("decode event: unknown action %q", e.Action)
	}
	return e, nil
}

// Handler processes one event. A returned error asks the transport to redeliver.
type Handler func(ctx context.Context, e Event) error

type (
	Publisher interface {
		Publish(ctx context.Context, e Event) error
		Close() error
	}

	Subscriber interface {
		// Subscribe blocks, delivering events to h until ctx is done.
		Subscribe(ctx context.Context, h Handler) error
		Close() error
	}
)

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }

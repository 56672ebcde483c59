// Package broker connects the quest ledger to RabbitMQ: quest events are
// forwarded to a topic exchange and completions can be requested through a
// durable queue.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/muhammadolammi/ascend/internal/quest"
)

const (
	UpdatesExchange  = "quest_updates"
	CompletionsQueue = "quest_completions"
)

// Publisher is the part of *amqp.Channel the Forwarder needs.
type Publisher interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type update struct {
	quest.Event
	Timestamp time.Time `json:"timestamp"`
}

// Forwarder publishes quest events to UpdatesExchange with routing key
// "quest.<owner>".
type Forwarder struct {
	mu     sync.Mutex
	ch     Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewForwarder(ch Publisher, logger *slog.Logger) (*Forwarder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := ch.ExchangeDeclare(
		UpdatesExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", UpdatesExchange, err)
	}
	return &Forwarder{ch: ch, logger: logger, now: time.Now}, nil
}

func RoutingKey(owner string) string {
	return fmt.Sprintf("quest.%s", owner)
}

func (f *Forwarder) Forward(_ context.Context, ev quest.Event) error {
	body, err := json.Marshal(update{Event: ev, Timestamp: f.now().UTC()})
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch.Publish(
		UpdatesExchange,
		RoutingKey(ev.Owner),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Attach subscribes the Forwarder to bus. Publish failures are logged.
func (f *Forwarder) Attach(bus *quest.Bus) (unsubscribe func()) {
	return bus.Subscribe(func(ctx context.Context, ev quest.Event) {
		if err := f.Forward(ctx, ev); err != nil {
			f.logger.Warn("failed to publish quest update", "owner", ev.Owner, "type", ev.Kind, "error", err)
		}
	})
}

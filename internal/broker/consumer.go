package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/streadway/amqp"

	"github.com/muhammadolammi/ascend/internal/quest"
)

var (
	ErrBadMessage = errors.New("bad completion message")
	// ErrDeliveriesClosed means the broker ended the subscription while the
	// consumer was still meant to run.
	ErrDeliveriesClosed = errors.New("delivery channel closed")
)

type completionMessage struct {
	Owner   string `json:"owner"`
	QuestID string `json:"quest_id"`
}

type ConsumerConfig struct {
	URL          string
	Workers      int
	DefaultOwner string
	Logger       *slog.Logger
}

// Consumer completes quests requested on CompletionsQueue.
type Consumer struct {
	ledgers *quest.Ledgers
	config  ConsumerConfig
}

func NewConsumer(ledgers *quest.Ledgers, cfg ConsumerConfig) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DefaultOwner == "" {
		cfg.DefaultOwner = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Consumer{ledgers: ledgers, config: cfg}
}

// HandleMessage applies one completion message. Malformed messages and
// unknown quests return ErrBadMessage.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) (quest.Completion, error) {
	var msg completionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return quest.Completion{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	id := quest.ID(strings.TrimSpace(msg.QuestID))
	if !id.Valid() {
		return quest.Completion{}, fmt.Errorf("%w: unknown quest %q", ErrBadMessage, msg.QuestID)
	}
	owner := strings.TrimSpace(msg.Owner)
	if owner == "" {
		owner = c.config.DefaultOwner
	}
	return c.ledgers.For(owner).Complete(ctx, id)
}

// Run dials the broker and consumes with Workers goroutines until ctx is
// done.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.config.URL)
	if err != nil {
		return fmt.Errorf("error dialling rabbitmq: %w", err)
	}
	defer conn.Close()

	var wg sync.WaitGroup
	errs := make(chan error, c.config.Workers)
	wg.Add(c.config.Workers)
	for i := range c.config.Workers {
		c.config.Logger.Info("worker started", "worker", i+1, "queue", CompletionsQueue)
		go func() {
			defer wg.Done()
			if err := c.worker(ctx, i, conn); err != nil {
				errs <- err
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		<-done
		return nil
	case <-done:
		close(errs)
		return errors.Join(collect(errs)...)
	}
}

func collect(errs <-chan error) []error {
	var out []error
	for err := range errs {
		out = append(out, err)
	}
	return out
}

func (c *Consumer) worker(ctx context.Context, id int, conn *amqp.Connection) error {
	log := c.config.Logger.With("worker", id+1)

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("error connecting to rabbitmq channel: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		CompletionsQueue,
		true,  // durable (survives broker restarts)
		false, // auto-delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		CompletionsQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("error consuming rabbitmq message: %w", err)
	}

	return c.drain(ctx, msgs, log)
}

// drain settles deliveries until msgs closes. A close while ctx is live is
// reported as ErrDeliveriesClosed.
func (c *Consumer) drain(ctx context.Context, msgs <-chan amqp.Delivery, log *slog.Logger) error {
	for msg := range msgs {
		res, err := c.HandleMessage(ctx, msg.Body)
		switch {
		case errors.Is(err, ErrBadMessage):
			log.Warn("dropping completion message", "error", err)
			_ = msg.Reject(false)
		case err != nil:
			log.Error("completion failed", "error", err)
			_ = msg.Nack(false, false)
		default:
			if res.Awarded {
				log.Info("quest completed", "quest", res.Quest.ID, "xp", res.Quest.XP)
			}
			_ = msg.Ack(false)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("queue %s: %w", CompletionsQueue, ErrDeliveriesClosed)
}

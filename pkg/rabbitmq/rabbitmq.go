package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/streadway/amqp"
)

// DefaultQueue receives every user event.
const DefaultQueue = "user_events"

// ErrStreamClosed is returned by ConsumeUserEvents when the delivery stream
// ends before its context is cancelled.
var ErrStreamClosed = errors.New("event stream closed unexpectedly")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
	mu      sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// Event is the JSON body of a published user event.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// NewClient connects to RabbitMQ, opens a channel and declares the event
// queue.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	logger.Info("rabbitmq client connected", "queue", cfg.Queue)

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		logger:  logger,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishUserEvent publishes a user event to the event queue.
func (c *Client) PublishUserEvent(eventType string, payload map[string]interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	msg, err := NewPublishing(eventType, payload, time.Now().UTC())
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",      // exchange: default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		msg,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	c.logger.Debug("user event published", "type", eventType, "message_id", msg.MessageId)
	return nil
}

// NewPublishing builds the persistent AMQP message for an event.
func NewPublishing(eventType string, payload map[string]interface{}, now time.Time) (amqp.Publishing, error) {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now,
		Data:       payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         eventType,
		Timestamp:    now,
		Body:         body,
	}, nil
}

// ConsumeUserEvents delivers decoded events to handler until ctx is
// cancelled or the channel closes. A close that ctx did not cause is reported
// as ErrStreamClosed, wrapping the broker's reason when one was given.
// Messages the handler rejects are nacked without requeue so a poison message
// cannot loop forever.
func (c *Client) ConsumeUserEvents(ctx context.Context, handler func(Event) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	closed := c.channel.NotifyClose(make(chan *amqp.Error, 1))
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	return consume(ctx, msgs, closed, handler, c.logger)
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, closed <-chan *amqp.Error, handler func(Event) error, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return streamEnded(ctx, closed)
			}
			handleDelivery(msg, handler, logger)
		}
	}
}

func handleDelivery(msg amqp.Delivery, handler func(Event) error, logger *slog.Logger) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		logger.Warn("dropping undecodable event", "delivery_tag", msg.DeliveryTag, "error", err)
		_ = msg.Nack(false, false)
		return
	}
	if err := handler(event); err != nil {
		logger.Warn("event handler failed", "type", event.Type, "id", event.ID, "error", err)
		_ = msg.Nack(false, false)
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Warn("failed to ack event", "delivery_tag", msg.DeliveryTag, "error", err)
	}
}

// streamEnded decides what a closed delivery channel means. The broker's
// close reason, if any, is already buffered on closed by the time the
// delivery channel is closed.
func streamEnded(ctx context.Context, closed <-chan *amqp.Error) error {
	if ctx.Err() != nil {
		return nil
	}
	select {
	case reason, ok := <-closed:
		if ok && reason != nil {
			return fmt.Errorf("%w: %w", ErrStreamClosed, reason)
		}
	default:
	}
	return ErrStreamClosed
}

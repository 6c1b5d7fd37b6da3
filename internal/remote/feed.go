package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ChangeMessage announces that a collection changed for one user. It
// carries no document data; subscribers re-query the store and receive
// the full, re-ordered result set ("at least once per change, full
// replace").
type ChangeMessage struct {
	Collection string    `json:"collection"` // "transactions" or "settings"
	UserID     string    `json:"userId"`
	Timestamp  time.Time `json:"timestamp"`
}

// Feed is one bound exchange/queue pair on the change broker. Use one
// Feed per consumer; two consumers sharing a queue would split messages.
type Feed struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewFeed(url, exchangeName, queueName string) (*Feed, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	feed := &Feed{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := feed.setup(); err != nil {
		feed.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return feed, nil
}

func (f *Feed) setup() error {
	err := f.channel.ExchangeDeclare(
		f.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = f.channel.QueueDeclare(
		f.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = f.channel.QueueBind(
		f.queueName,    // queue name
		f.queueName,    // routing key (same as queue name for direct exchange)
		f.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishChange emits a change notification for (collection, userID).
func (f *Feed) PublishChange(ctx context.Context, collection, userID string) error {
	msg := ChangeMessage{Collection: collection, UserID: userID, Timestamp: time.Now().UTC()}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal change message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = f.channel.PublishWithContext(
		ctx,
		f.exchangeName, // exchange
		f.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish change message: %w", err)
	}

	slog.DebugContext(ctx, "Published change message",
		"collection", collection,
		"user_id", userID,
		"exchange", f.exchangeName,
		"queue", f.queueName)

	return nil
}

// Consume delivers change messages to handler until ctx is cancelled.
// Malformed messages are rejected without requeue; a handler error
// requeues the delivery.
func (f *Feed) Consume(ctx context.Context, handler func(*ChangeMessage) error) error {
	msgs, err := f.channel.Consume(
		f.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming change messages", "queue", f.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping change consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			var msg ChangeMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal change message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(&msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle change message",
					"error", err,
					"collection", msg.Collection,
					"user_id", msg.UserID)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (f *Feed) Close() error {
	if f.channel != nil {
		f.channel.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

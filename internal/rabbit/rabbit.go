package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/engagekit/crm/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher is the send-side contract services depend on.
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

// Handler processes one delivery. Returning an error means the item had a
// terminal failure the handler already recorded; the loop still acks.
type Handler func(ctx context.Context, body []byte) error

// Client owns one connection and one channel. Lifecycle (Dial/Close) is
// managed by the process that creates it; components receive the client
// explicitly instead of sharing module-level state.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects, opens a channel in confirm mode, and applies the
// prefetch window for consumers.
func Dial(url string, prefetch int) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("amqp qos: %w", err)
		}
	}

	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareQueues asserts each named queue as durable (idempotent).
func (c *Client) DeclareQueues(names ...string) error {
	for _, name := range names {
		_, err := c.ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	return nil
}

// PublishJSON publishes v as a persistent message and waits for the
// broker confirm, so a nil return means the broker has the message.
func (c *Client) PublishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal work item: %w", err)
	}

	conf, err := c.ch.PublishWithDeferredConfirmWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm publish to %s: %w", queue, err)
	}
	if !acked {
		return fmt.Errorf("publish to %s nacked by broker", queue)
	}
	return nil
}

// Consume drains the queue until ctx is cancelled. The ack is issued
// strictly after the handler returns; a handler error is logged and the
// delivery is acked anyway (the handler owns recording the terminal
// outcome), so one poison message never stops the queue.
func (c *Client) Consume(ctx context.Context, queue string, h Handler) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx,
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	logger.Log.Info("consuming", zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consume %s: delivery channel closed", queue)
			}
			c.handleOne(ctx, queue, d, h)
		}
	}
}

func (c *Client) handleOne(ctx context.Context, queue string, d amqp.Delivery, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("handler panic",
				zap.String("queue", queue), zap.Any("panic", r))
			// unprocessable: drop rather than poison-loop
			_ = d.Nack(false, false)
		}
	}()

	if err := h(ctx, d.Body); err != nil {
		logger.Log.Error("handler failed",
			zap.String("queue", queue), zap.Error(err))
	}
	if err := d.Ack(false); err != nil {
		logger.Log.Error("ack failed",
			zap.String("queue", queue), zap.Error(err))
	}
}

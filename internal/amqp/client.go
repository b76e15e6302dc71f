// Package amqp moves budget threshold checks through a RabbitMQ queue so that a
// separate worker process can run them.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"spendsmart/internal/alerts"
	"spendsmart/internal/logger"
)

const (
	publishTimeout    = 5 * time.Second
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// Client publishes and consumes budget check messages on one durable queue.
// A dropped connection is redialed on the next publish or by the consumer loop.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	dial         func(url string) (*amqp091.Connection, error)
	fallback     alerts.Dispatcher

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient dials url and declares the exchange, queue and binding.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         amqp091.Dial,
	}

	client.mu.Lock()
	_, err := client.channelLocked()
	client.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return client, nil
}

// WithFallback makes Dispatch hand requests to d when the broker cannot take them.
func (c *Client) WithFallback(d alerts.Dispatcher) *Client {
	c.fallback = d
	return c
}

// channelLocked returns an open channel, redialing when the previous one closed.
// c.mu must be held.
func (c *Client) channelLocked() (*amqp091.Channel, error) {
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.resetLocked()

	conn, err := c.dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := c.setup(channel); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn, c.channel = conn, channel
	return channel, nil
}

func (c *Client) resetLocked() {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) setup(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Direct exchange: the queue name doubles as the routing key.
	if err := ch.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishBudgetCheck publishes a persistent budget check message. A publish on
// a channel the broker closed is retried once on a fresh connection.
func (c *Client) PublishBudgetCheck(ctx context.Context, req alerts.Request) error {
	body, err := NewBudgetCheckMessage(req).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	for attempt := 0; ; attempt++ {
		ch, err := c.channelLocked()
		if err != nil {
			return err
		}
		err = ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, msg)
		if err == nil {
			return nil
		}
		if attempt > 0 || !errors.Is(err, amqp091.ErrClosed) {
			return fmt.Errorf("publish message: %w", err)
		}
		c.resetLocked()
	}
}

// Dispatch implements alerts.Dispatcher. When publishing fails the request goes
// to the fallback dispatcher if one is set, otherwise it is logged and dropped.
func (c *Client) Dispatch(ctx context.Context, req alerts.Request) {
	if err := c.PublishBudgetCheck(context.WithoutCancel(ctx), req); err != nil {
		log := logger.Get()
		if c.fallback != nil {
			log.Warnw("failed to publish budget check, running it in process",
				"error", err, "user_id", req.UserID, "category_id", req.CategoryID, "month", req.Month)
			c.fallback.Dispatch(ctx, req)
			return
		}
		log.Errorw("failed to publish budget check",
			"error", err,
			"user_id", req.UserID,
			"category_id", req.CategoryID,
			"month", req.Month,
		)
		return
	}
	logger.Get().Debugw("published budget check",
		"user_id", req.UserID, "category_id", req.CategoryID, "month", req.Month, "queue", c.queueName)
}

// ConsumeBudgetChecks hands each message to handler until ctx is done.
// Malformed messages are dropped; handler failures are requeued once. When the
// broker drops the connection the consumer redials with a growing delay.
func (c *Client) ConsumeBudgetChecks(ctx context.Context, handler func(context.Context, alerts.Request) error) error {
	log := logger.Get()
	delay := minReconnectDelay

	for {
		msgs, err := c.startConsuming()
		if err != nil {
			log.Warnw("budget check consumer unavailable, retrying", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				log.Infow("stopping budget check consumption", "reason", ctx.Err())
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, maxReconnectDelay)
			continue
		}

		delay = minReconnectDelay
		log.Infow("consuming budget checks", "queue", c.queueName)
		if err := c.consume(ctx, msgs, handler); err != nil {
			log.Infow("stopping budget check consumption", "reason", err)
			return err
		}
		log.Warnw("budget check delivery channel closed, reconnecting", "queue", c.queueName)
	}
}

func (c *Client) startConsuming() (<-chan amqp091.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channelLocked()
	if err != nil {
		return nil, err
	}
	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		c.resetLocked()
		return nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, nil
}

// consume drains msgs. It returns ctx's error when ctx is done and nil when the
// broker closes the delivery channel.
func (c *Client) consume(ctx context.Context, msgs <-chan amqp091.Delivery, handler func(context.Context, alerts.Request) error) error {
	log := logger.Get()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return nil
			}

			msg, err := BudgetCheckMessageFromJSON(delivery.Body)
			if err != nil {
				log.Errorw("failed to unmarshal budget check", "error", err)
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg.Request()); err != nil {
				log.Errorw("budget check failed",
					"error", err, "user_id", msg.UserID, "category_id", msg.CategoryID, "month", msg.Month,
					"redelivered", delivery.Redelivered)
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrRequeue, wrapped in a handler error, puts the message back on the
// queue instead of dropping it.
var ErrRequeue = errors.New("queue: requeue message")

// HandlerFunc processes one message body. A returned error rejects the
// message without requeue unless it wraps ErrRequeue.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer reads a durable queue and hands each delivery to a handler,
// reconnecting with exponential backoff when the broker goes away.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   HandlerFunc
	log      *zap.Logger
}

func NewConsumer(url, queue string, handle HandlerFunc, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, queue: queue, prefetch: 50, handle: handle, log: log}
}

// WithPrefetch sets the channel QoS prefetch count.
func (c *Consumer) WithPrefetch(n int) *Consumer {
	if n > 0 {
		c.prefetch = n
	}
	return c
}

// Run consumes until ctx is cancelled and then returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	log := c.log.With(zap.String("queue", c.queue))
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Warn("consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn("consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.dispatch(ctx, d)
		}
	}
}

// dispatch acks or nacks d according to the handler result.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	err := c.handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrRequeue):
		c.log.Warn("consumer: message requeued", zap.String("queue", c.queue), zap.Error(err))
		_ = d.Nack(false, true)
	default:
		c.log.Error("consumer: handle message failed", zap.String("queue", c.queue), zap.Error(err))
		_ = d.Nack(false, false)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

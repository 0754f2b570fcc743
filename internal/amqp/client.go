package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client publishes and consumes import job messages on a direct exchange.
// Publishing goes through a circuit breaker so a dead broker fails fast.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	closed  atomic.Bool

	failureCount int64
	state        int32
	breakerMu    sync.Mutex
	lastFailure  time.Time
}

// NewClient connects and declares the exchange and queue.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key equals the queue name.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.channel.IsClosed() {
		return nil
	}
	return c.channel
}

// PublishImportJob announces a pending job to the worker queue.
func (c *Client) PublishImportJob(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish import job %s: circuit breaker is open", jobID)
	}

	body, err := NewImportJobMessage(jobID).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, body)
	if err != nil && isConnectionError(err) && !c.closed.Load() {
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting before retry", "error", err)
		if rerr := c.connect(); rerr == nil {
			err = c.publish(ctx, body)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.InfoContext(ctx, "Published import job message",
		"job_id", jobID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ch := c.currentChannel()
	if ch == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// ConsumeImportJobs hands every message to handler until ctx is done,
// reconnecting with exponential backoff when the broker goes away.
//
// A message whose handler fails is requeued once; a second failure drops
// it and leaves the job to the stale-job poller.
func (c *Client) ConsumeImportJobs(ctx context.Context, handler func(context.Context, *ImportJobMessage) error) error {
	attempt := 0
	for {
		started, err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if started {
			attempt = 0
		}

		delay := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP consumer stopped, reconnecting",
			"error", err,
			"attempt", attempt+1,
			"delay", delay)
		attempt++

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := c.connect(); err != nil {
			slog.ErrorContext(ctx, "AMQP reconnect failed", "error", err)
			continue
		}
		slog.InfoContext(ctx, "AMQP reconnected", "queue", c.queueName)
	}
}

func (c *Client) consume(ctx context.Context, handler func(context.Context, *ImportJobMessage) error) (bool, error) {
	ch := c.currentChannel()
	if ch == nil {
		return false, amqp091.ErrClosed
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return false, fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return false, fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming import job messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return true, ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return true, errors.New("delivery channel closed")
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, delivery amqp091.Delivery, handler func(context.Context, *ImportJobMessage) error) {
	msg, err := ImportJobMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		_ = delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		requeue := !delivery.Redelivered
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"job_id", msg.JobID,
			"requeue", requeue)
		_ = delivery.Nack(false, requeue)
		return
	}

	_ = delivery.Ack(false)
	slog.DebugContext(ctx, "Acknowledged import job message", "job_id", msg.JobID)
}

// Healthy reports whether the connection is currently open.
func (c *Client) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close shuts the channel and connection.
func (c *Client) Close() error {
	c.closed.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}

	c.breakerMu.Lock()
	last := c.lastFailure
	c.breakerMu.Unlock()

	if time.Since(last) > openTimeout {
		// Let one publish through to probe the broker.
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)

	c.breakerMu.Lock()
	c.lastFailure = time.Now()
	c.breakerMu.Unlock()

	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			slog.Warn("AMQP circuit breaker opened", "failures", n)
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s and so on, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

var connectionErrorMarkers = []string{
	"connection refused",
	"connection closed",
	"connection reset",
	"EOF",
	"broken pipe",
	"use of closed network connection",
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, marker := range connectionErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

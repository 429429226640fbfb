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
	"golang.org/x/sync/errgroup"
)

// Circuit breaker states for reply publishing.
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

var errDeliveriesClosed = errors.New("delivery channel closed")

// Delivery is the part of an AMQP delivery a job handler needs.
type Delivery struct {
	Body          []byte
	MessageID     string
	CorrelationID string
	ReplyTo       string
	Redelivered   bool
}

func fromAMQP(d amqp091.Delivery) Delivery {
	return Delivery{
		Body:          d.Body,
		MessageID:     d.MessageId,
		CorrelationID: d.CorrelationId,
		ReplyTo:       d.ReplyTo,
		Redelivered:   d.Redelivered,
	}
}

// Handler processes one job and returns the reply body. Errors wrapping
// ErrMalformedJob drop the delivery; any other error requeues it.
type Handler func(ctx context.Context, d Delivery) ([]byte, error)

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	// publishMu serialises publishes on the shared channel.
	publishMu sync.Mutex

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
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

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(channel *amqp091.Channel, exchangeName, queueName string) error {
	err := channel.ExchangeDeclare(
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

	_, err = channel.QueueDeclare(
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

	// Routing key is the queue name on the direct exchange.
	if err := channel.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishJob enqueues a job on the work queue. Replies go to replyTo with
// the given correlation ID.
func (c *Client) PublishJob(ctx context.Context, job *JobMessage, correlationID, replyTo string) error {
	body, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return c.publish(ctx, c.exchangeName, c.queueName, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		Timestamp:     time.Now(),
		CorrelationId: correlationID,
		ReplyTo:       replyTo,
		Body:          body,
	})
}

// PublishReply sends a reply to the queue named by replyTo through the
// default exchange.
func (c *Client) PublishReply(ctx context.Context, replyTo, correlationID string, body []byte) error {
	return c.publish(ctx, "", replyTo, amqp091.Publishing{
		ContentType:   "application/json",
		Timestamp:     time.Now(),
		CorrelationId: correlationID,
		Body:          body,
	})
}

func (c *Client) publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %q: circuit breaker is open", key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	channel := c.currentChannel()
	if channel == nil {
		c.recordFailure()
		return fmt.Errorf("publish to %q: not connected", key)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.publishMu.Lock()
	err := channel.PublishWithContext(ctx, exchange, key, false, false, msg)
	c.publishMu.Unlock()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish to %q: %w", key, err)
	}

	c.recordSuccess()
	return nil
}

// Consume handles deliveries with at most concurrency handlers in flight,
// reconnecting with exponential backoff when the broker goes away. It
// returns when ctx is cancelled, after in-flight jobs finish.
func (c *Client) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}

	for attempt := 0; ; {
		err := c.consumeOnce(ctx, concurrency, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, errDeliveriesClosed) && !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP consumer lost connection, reconnecting",
			"error", err,
			"attempt", attempt+1,
			"backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.reconnect(); err != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "error", err)
			attempt++
			continue
		}
		attempt = 0
	}
}

func (c *Client) consumeOnce(ctx context.Context, concurrency int, handler Handler) error {
	channel := c.currentChannel()
	if channel == nil {
		return errDeliveriesClosed
	}
	if err := channel.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
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

	slog.InfoContext(ctx, "Started consuming projection jobs",
		"queue", c.queueName,
		"concurrency", concurrency)

	// In-flight jobs finish and reply even after ctx is cancelled.
	jobCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(concurrency)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			g.Go(func() error {
				processDelivery(jobCtx, delivery, handler, c.PublishReply)
				return nil
			})
		}
	}
}

type replyFunc func(ctx context.Context, replyTo, correlationID string, body []byte) error

// processDelivery runs handler and settles the delivery: malformed jobs are
// dropped, failed jobs requeued, and answered jobs acked once the reply is out.
func processDelivery(ctx context.Context, d amqp091.Delivery, handler Handler, reply replyFunc) {
	job := fromAMQP(d)

	body, err := handler(ctx, job)
	switch {
	case errors.Is(err, ErrMalformedJob):
		slog.WarnContext(ctx, "Dropping malformed job",
			"error", err,
			"message_id", job.MessageID)
		_ = d.Nack(false, false)
		return
	case err != nil:
		slog.ErrorContext(ctx, "Failed to handle job",
			"error", err,
			"message_id", job.MessageID)
		_ = d.Nack(false, true)
		return
	}

	if job.ReplyTo == "" {
		slog.WarnContext(ctx, "Job has no reply queue, result discarded",
			"message_id", job.MessageID,
			"correlation_id", job.CorrelationID)
		_ = d.Ack(false)
		return
	}

	if err := reply(ctx, job.ReplyTo, job.CorrelationID, body); err != nil {
		slog.ErrorContext(ctx, "Failed to publish reply",
			"error", err,
			"reply_to", job.ReplyTo,
			"correlation_id", job.CorrelationID)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) reconnect() error {
	c.closeConnection()
	return c.connect()
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	failures := atomic.AddInt64(&c.failureCount, 1)
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff doubles from one second and caps at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Client) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.closeConnection()
	return nil
}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	requestExchange = "fintrack.insights"
	resultExchange  = "fintrack.events"
	requestQueue    = "insight.requests"
	requestKey      = "insight.request"
)

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// InsightRequest asks the worker to generate one monthly insight. Digest is
// the pre-computed per-category totals the prompt is built from, so the
// worker never needs database access.
type InsightRequest struct {
	InsightID string `json:"insight_id"`
	UserID    string `json:"user_id"`
	Month     string `json:"month"`
	Digest    string `json:"digest"`
	Timestamp int64  `json:"timestamp"`
}

// InsightResult carries the worker's outcome back to every server instance.
type InsightResult struct {
	InsightID string `json:"insight_id"`
	UserID    string `json:"user_id"`
	Month     string `json:"month"`
	Summary   string `json:"summary,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry dials with backoff until ctx expires. Used at server
// boot where the broker may still be coming up.
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	var lastErr error
	delay := time.Second

	for {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}
		lastErr = err

		slog.Warn("rabbitmq connection failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connection timed out: %w", lastErr)
		case <-time.After(delay):
		}
		if delay < 10*time.Second {
			delay *= 2
		}
	}
}

// Setup declares the insight topology: a durable topic exchange and queue
// for requests, and a fanout exchange so every server instance sees results.
func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		requestExchange, // name
		"topic",         // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	); err != nil {
		return fmt.Errorf("failed to declare insights exchange: %w", err)
	}

	if err := r.channel.ExchangeDeclare(
		resultExchange, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	if _, err := r.channel.QueueDeclare(
		requestQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare insight.requests queue: %w", err)
	}

	if err := r.channel.QueueBind(
		requestQueue,    // queue name
		requestKey,      // routing key
		requestExchange, // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind insight.requests queue: %w", err)
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

func (r *RabbitMQ) PublishInsightRequest(ctx context.Context, req *InsightRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal insight request: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		requestExchange,
		requestKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish insight request: %w", err)
	}

	slog.Info("published insight request",
		slog.String("insight_id", req.InsightID),
		slog.String("month", req.Month))
	return nil
}

func (r *RabbitMQ) PublishInsightResult(ctx context.Context, result *InsightResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal insight result: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		resultExchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish insight result: %w", err)
	}

	slog.Info("published insight result",
		slog.String("insight_id", result.InsightID),
		slog.Bool("failed", result.Error != ""))
	return nil
}

// ConsumeInsightRequests is used by the worker process.
func (r *RabbitMQ) ConsumeInsightRequests() (<-chan amqp.Delivery, error) {
	msgs, err := r.channel.Consume(
		requestQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming insight requests",
		slog.String("queue", requestQueue))
	return msgs, nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"fintrack/internal/domain"
	"fintrack/internal/notify"
	"fintrack/internal/observability"
)

// ResultConsumer persists insight results and notifies the owning user.
// Every server instance runs one, each on its own auto-deleted queue bound
// to the fanout exchange.
type ResultConsumer struct {
	rmq      *RabbitMQ
	hub      *notify.Hub
	insights domain.InsightRepository
}

func NewResultConsumer(rmq *RabbitMQ, hub *notify.Hub, insights domain.InsightRepository) *ResultConsumer {
	return &ResultConsumer{
		rmq:      rmq,
		hub:      hub,
		insights: insights,
	}
}

func (c *ResultConsumer) Start(ctx context.Context) error {
	queue, err := c.rmq.channel.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	if err := c.rmq.channel.QueueBind(
		queue.Name,     // queue name
		"",             // routing key
		resultExchange, // exchange
		false,
		nil,
	); err != nil {
		return err
	}

	msgs, err := c.rmq.channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return err
	}

	slog.Info("started consuming insight results",
		slog.String("queue", queue.Name),
		slog.String("exchange", resultExchange))

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping result consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("result consumer channel closed")
					return
				}

				var result InsightResult
				if err := json.Unmarshal(msg.Body, &result); err != nil {
					slog.Error("error unmarshaling insight result",
						slog.String("error", err.Error()),
						slog.String("body", string(msg.Body)))
					continue
				}

				c.processResult(ctx, &result)
			}
		}
	}()

	return nil
}

func (c *ResultConsumer) processResult(ctx context.Context, result *InsightResult) {
	slog.Info("processing insight result",
		slog.String("insight_id", result.InsightID),
		slog.Bool("failed", result.Error != ""))

	var err error
	if result.Error != "" {
		err = c.insights.Fail(ctx, result.InsightID, result.Error)
		observability.InsightJobsTotal.WithLabelValues("failed").Inc()
	} else {
		err = c.insights.Complete(ctx, result.InsightID, result.Summary)
		observability.InsightJobsTotal.WithLabelValues("ready").Inc()
	}
	if err != nil {
		// A duplicate delivery already settled the row. Every other
		// failure is logged and dropped, the row stays pending.
		if errors.Is(err, domain.ErrInsightNotFound) {
			slog.Info("insight already settled, skipping",
				slog.String("insight_id", result.InsightID))
			return
		}
		slog.Error("error persisting insight result",
			slog.String("insight_id", result.InsightID),
			slog.String("error", err.Error()))
		return
	}

	event := notify.Event{
		Type:      "insight_ready",
		InsightID: result.InsightID,
		Month:     result.Month,
		Failed:    result.Error != "",
	}
	if data, err := json.Marshal(event); err == nil {
		c.hub.Push(result.UserID, data)
		observability.NotificationsSent.WithLabelValues("insight_ready").Inc()
	} else {
		slog.Error("error marshaling insight event",
			slog.String("error", err.Error()))
	}
}

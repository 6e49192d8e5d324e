package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/insight"
	"fintrack/internal/messaging"
	"fintrack/internal/observability"
)

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat, "insight-worker")

	slog.Info("starting insight worker")

	rmq, err := messaging.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rmq.Close()

	slog.Info("connected to rabbitmq")

	client := insight.NewClient(cfg.InsightAPIURL, cfg.InsightAPIKey, os.Getenv("INSIGHT_MODEL"))

	msgs, err := rmq.ConsumeInsightRequests()
	if err != nil {
		slog.Error("failed to start consuming", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("insight worker is ready to process requests")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping request consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("request channel closed")
					return
				}
				msgCtx, msgCancel := context.WithTimeout(ctx, 60*time.Second)
				if err := processRequest(msgCtx, msg.Body, client, rmq); err != nil {
					slog.Error("error processing request", slog.String("error", err.Error()))
				}
				msgCancel()
				msg.Ack(false)
			}
		}
	}()

	<-sigChan
	slog.Info("shutting down insight worker")
	cancel()
	time.Sleep(1 * time.Second)
	slog.Info("insight worker stopped")
}

// processRequest generates one summary and publishes the outcome. A provider
// failure becomes a failed result, not a redelivery: the digest will not
// change, so retrying the same prompt forever helps nobody.
func processRequest(ctx context.Context, body []byte, client *insight.Client, rmq *messaging.RabbitMQ) error {
	var req messaging.InsightRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}

	slog.Info("processing insight request",
		slog.String("insight_id", req.InsightID),
		slog.String("month", req.Month))

	result := &messaging.InsightResult{
		InsightID: req.InsightID,
		UserID:    req.UserID,
		Month:     req.Month,
		Timestamp: time.Now().Unix(),
	}

	start := time.Now()
	summary, err := client.Summarize(ctx, req.Month, req.Digest)
	observability.InsightJobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("error generating summary",
			slog.String("insight_id", req.InsightID),
			slog.String("error", err.Error()))
		result.Error = "Could not generate a summary for this month"
	} else {
		result.Summary = summary
		slog.Info("generated summary",
			slog.String("insight_id", req.InsightID),
			slog.Int("length", len(summary)))
	}

	if err := rmq.PublishInsightResult(ctx, result); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}

	return nil
}

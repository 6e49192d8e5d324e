//go:build integration
// +build integration

package messaging_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRabbitMQ starts a RabbitMQ container and returns a connected client
// with the exchanges and queues declared.
func setupRabbitMQ(t *testing.T) (*messaging.RabbitMQ, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Server startup complete"),
			wait.ForListeningPort("5672/tcp"),
		).WithDeadline(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start RabbitMQ container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	url := fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rmq, err := messaging.NewRabbitMQWithRetry(connectCtx, url)
	require.NoError(t, err, "failed to connect to RabbitMQ")

	cleanup := func() {
		rmq.Close()
		container.Terminate(ctx)
	}
	return rmq, cleanup
}

func TestRabbitMQ_InsightRequestRoundTrip(t *testing.T) {
	rmq, cleanup := setupRabbitMQ(t)
	defer cleanup()

	deliveries, err := rmq.ConsumeInsightRequests()
	require.NoError(t, err)

	sent := &messaging.InsightRequest{
		InsightID: "insight-1",
		UserID:    "user-1",
		Month:     "2026-03",
		Digest:    "Groceries: -250.00",
		Timestamp: time.Now().Unix(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, rmq.PublishInsightRequest(ctx, sent))

	select {
	case delivery := <-deliveries:
		var got messaging.InsightRequest
		require.NoError(t, json.Unmarshal(delivery.Body, &got))
		assert.Equal(t, sent.InsightID, got.InsightID)
		assert.Equal(t, sent.UserID, got.UserID)
		assert.Equal(t, sent.Month, got.Month)
		assert.Equal(t, sent.Digest, got.Digest)
		require.NoError(t, delivery.Ack(false))
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for insight request delivery")
	}
}

func TestRabbitMQ_RequestsSurviveUnconsumed(t *testing.T) {
	rmq, cleanup := setupRabbitMQ(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Publish before any consumer is attached: the durable queue holds it.
	sent := &messaging.InsightRequest{
		InsightID: "insight-2",
		UserID:    "user-1",
		Month:     "2026-04",
		Digest:    "No transactions recorded this month.",
		Timestamp: time.Now().Unix(),
	}
	require.NoError(t, rmq.PublishInsightRequest(ctx, sent))

	deliveries, err := rmq.ConsumeInsightRequests()
	require.NoError(t, err)

	select {
	case delivery := <-deliveries:
		var got messaging.InsightRequest
		require.NoError(t, json.Unmarshal(delivery.Body, &got))
		assert.Equal(t, "insight-2", got.InsightID)
		require.NoError(t, delivery.Ack(false))
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for queued insight request")
	}
}

func TestRabbitMQ_IsClosed(t *testing.T) {
	rmq, cleanup := setupRabbitMQ(t)

	assert.False(t, rmq.IsClosed())

	cleanup()

	assert.True(t, rmq.IsClosed())
}

package notify

import (
	"context"
	"testing"
	"time"
)

func newHubClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		send:   make(chan []byte, 256),
		userID: userID,
	}
}

func receive(t *testing.T, ch <-chan []byte, timeout time.Duration) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for pushed payload")
		return nil
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.clients == nil {
		t.Error("Expected clients map to be initialized")
	}
	if hub.push == nil {
		t.Error("Expected push channel to be initialized")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Expected register channels to be initialized")
	}
}

func TestHub_PushReachesUserClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := newHubClient(hub, "user-1")
	second := newHubClient(hub, "user-1")
	other := newHubClient(hub, "user-2")

	hub.Register(first)
	hub.Register(second)
	hub.Register(other)
	time.Sleep(50 * time.Millisecond)

	hub.Push("user-1", []byte(`{"type":"insight_ready"}`))

	if got := string(receive(t, first.send, time.Second)); got != `{"type":"insight_ready"}` {
		t.Errorf("first client got %q", got)
	}
	if got := string(receive(t, second.send, time.Second)); got != `{"type":"insight_ready"}` {
		t.Errorf("second client got %q", got)
	}

	select {
	case msg := <-other.send:
		t.Errorf("other user's client received %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_PushToUserWithoutConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Must not block or panic.
	hub.Push("user-offline", []byte(`{"type":"budget_alert"}`))
	time.Sleep(50 * time.Millisecond)
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newHubClient(hub, "user-1")
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)

	hub.Unregister(client)
	time.Sleep(50 * time.Millisecond)

	// The send channel is closed on unregister.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected send channel to be closed, got a value")
		}
	case <-time.After(time.Second):
		t.Error("Expected send channel to be closed")
	}

	hub.Push("user-1", []byte("late"))
	time.Sleep(50 * time.Millisecond)
}

func TestHub_UnregisterWithQueuedEvent(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newHubClient(hub, "user-1")
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)

	hub.Push("user-1", []byte("queued"))
	time.Sleep(50 * time.Millisecond)

	// Nothing has read the payload yet when the client goes away.
	hub.Unregister(client)
	time.Sleep(50 * time.Millisecond)

	// The queued payload is still delivered and the channel closes behind it.
	if got := string(receive(t, client.send, time.Second)); got != "queued" {
		t.Errorf("queued payload = %q, want %q", got, "queued")
	}
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected send channel to be closed after the queue drained")
		}
	case <-time.After(time.Second):
		t.Error("Expected send channel to be closed")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- hub.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Hub did not stop within timeout")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	client := newHubClient(hub, "user-1")
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected send channel to be closed on shutdown")
		}
	case <-time.After(time.Second):
		t.Error("Expected send channel to be closed on shutdown")
	}

	// Push after shutdown returns instead of blocking.
	hub.Push("user-1", []byte("after shutdown"))
}

func TestHub_SlowClientEvicted(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{
		hub:    hub,
		send:   make(chan []byte), // unbuffered, nothing reading
		userID: "user-1",
	}
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)

	hub.Push("user-1", []byte("first"))
	time.Sleep(50 * time.Millisecond)

	// The client's buffer was full, so the hub dropped it.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected send channel to be closed after eviction")
		}
	case <-time.After(time.Second):
		t.Error("Expected slow client to be evicted")
	}
}

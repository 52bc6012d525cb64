package realtime

import (
	"testing"
	"time"

	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := "sess-ordering"

	clientA := hub.NewSSEClient("scribe")
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventMemorySaved, Data: map[string]any{"context_version": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventMemoryBroadcast, Data: map[string]any{"context_version": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventMemorySaved {
		t.Fatalf("first event: want=%s got=%s", SSEEventMemorySaved, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventMemoryBroadcast {
		t.Fatalf("second event: want=%s got=%s", SSEEventMemoryBroadcast, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient("scribe")
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventConflictResolved, Data: map[string]any{"context_version": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventConflictResolved {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventConflictResolved, gotReconnect.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))

	subscribed := hub.NewSSEClient("scribe")
	hub.AddChannel(subscribed, "sess-a")
	other := hub.NewSSEClient("scribe")
	hub.AddChannel(other, "sess-b")

	hub.Broadcast(SSEMessage{Channel: "sess-a", Event: SSEEventMemorySaved})

	got := recvMessage(t, subscribed.Outbound, time.Second)
	if got.Channel != "sess-a" {
		t.Fatalf("channel: want=sess-a got=%s", got.Channel)
	}
	select {
	case msg := <-other.Outbound:
		t.Fatalf("unsubscribed client received %s", msg.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

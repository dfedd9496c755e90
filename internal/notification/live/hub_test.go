package live

import (
	"fmt"
	"testing"
	"time"
)

func TestHubDeliversToSubscriber(t *testing.T) {
	h := NewHub()

	sub, backlog, err := h.Subscribe("7")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	if len(backlog) != 0 {
		t.Fatalf("fresh stream must have no backlog, got %d", len(backlog))
	}

	h.Publish("7", ChangeEvent{Kind: ChangeCreated, NotificationID: "1", At: time.Now()})

	select {
	case ev := <-sub.Events():
		if ev.Kind != ChangeCreated || ev.NotificationID != "1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestHubIsolatesUsers(t *testing.T) {
	h := NewHub()

	a, _, _ := h.Subscribe("7")
	defer a.Close()
	b, _, _ := h.Subscribe("8")
	defer b.Close()

	h.Publish("7", ChangeEvent{Kind: ChangeCreated})

	select {
	case <-b.Events():
		t.Fatal("event leaked across users")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubReplaysBacklogOnSubscribe(t *testing.T) {
	h := NewHub()

	// Publishing without subscribers records nothing; a stream only
	// exists while someone is subscribed.
	h.Publish("7", ChangeEvent{Kind: ChangeCreated, NotificationID: "0"})

	first, backlog, err := h.Subscribe("7")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer first.Close()
	if len(backlog) != 0 {
		t.Fatalf("expected empty backlog before any subscribed publish, got %d", len(backlog))
	}

	h.Publish("7", ChangeEvent{Kind: ChangeCreated, NotificationID: "1"})
	h.Publish("7", ChangeEvent{Kind: ChangeRead, NotificationID: "1"})

	second, backlog, err := h.Subscribe("7")
	if err != nil {
		t.Fatalf("second subscribe: %v", err)
	}
	defer second.Close()

	if len(backlog) != 2 {
		t.Fatalf("expected 2 backlog events, got %d", len(backlog))
	}
	if backlog[0].NotificationID != "1" || backlog[1].Kind != ChangeRead {
		t.Fatalf("backlog out of order: %+v", backlog)
	}
}

func TestHubBacklogIsCapped(t *testing.T) {
	h := NewHub()

	keeper, _, _ := h.Subscribe("7")
	defer keeper.Close()

	for i := 0; i < DefaultBacklogSize+5; i++ {
		h.Publish("7", ChangeEvent{Kind: ChangeCreated, NotificationID: fmt.Sprint(i)})
	}

	_, backlog, err := h.Subscribe("7")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(backlog) != DefaultBacklogSize {
		t.Fatalf("expected backlog capped at %d, got %d", DefaultBacklogSize, len(backlog))
	}
	if backlog[0].NotificationID != "5" {
		t.Fatalf("expected oldest entries dropped, first is %q", backlog[0].NotificationID)
	}
}

func TestHubNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := NewHub()

	sub, _, _ := h.Subscribe("7")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		// Nobody reads sub.Events(); overflow publishes must drop, not block.
		for i := 0; i < DefaultSubscriberBuffer*3; i++ {
			h.Publish("7", ChangeEvent{Kind: ChangeCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	h := NewHub()

	sub, _, _ := h.Subscribe("7")
	sub.Close()
	sub.Close()

	// The stream is gone once its last subscriber leaves.
	h.mu.RLock()
	_, ok := h.streams["7"]
	h.mu.RUnlock()
	if ok {
		t.Fatal("stream not cleaned up after last unsubscribe")
	}
}

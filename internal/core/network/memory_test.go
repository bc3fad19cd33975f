package network

import (
	"testing"
	"time"
)

func TestMemoryPubSubDeliversInOrder(t *testing.T) {
	ps := NewMemoryPubSub()
	ch, cancel, err := ps.Subscribe("window.a")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	for _, p := range []string{"one", "two", "three"} {
		if err := ps.Publish("window.a", []byte(p)); err != nil {
			t.Fatalf("publish %s: %v", p, err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		select {
		case msg := <-ch:
			if string(msg.Payload) != want {
				t.Fatalf("expected %q, got %q", want, msg.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestMemoryPubSubTopicIsolation(t *testing.T) {
	ps := NewMemoryPubSub()
	a, cancelA, _ := ps.Subscribe("window.a")
	defer cancelA()
	b, cancelB, _ := ps.Subscribe("window.b")
	defer cancelB()

	if err := ps.Publish("window.b", []byte("hi")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-b:
		if string(msg.Payload) != "hi" {
			t.Fatalf("unexpected payload %q", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("window.b never received")
	}
	select {
	case msg := <-a:
		t.Fatalf("window.a should not receive, got %q", msg.Payload)
	default:
	}
}

func TestMemoryPubSubDropsWhenFull(t *testing.T) {
	ps := NewMemoryPubSub(WithBufferSize(1))
	_, cancel, _ := ps.Subscribe("window.a")
	defer cancel()

	_ = ps.Publish("window.a", []byte("kept"))
	_ = ps.Publish("window.a", []byte("dropped"))
	if got := ps.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped frame, got %d", got)
	}
}

func TestMemoryPubSubCancelIsIdempotent(t *testing.T) {
	ps := NewMemoryPubSub()
	ch, cancel, _ := ps.Subscribe("window.a")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
	if n := ps.Subscribers("window.a"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	if err := ps.Publish("window.a", []byte("late")); err != nil {
		t.Fatalf("publish after cancel should be a no-op, got %v", err)
	}
}

package inbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ClawdCity-Messaging/internal/core/network"
)

func TestRecordPublishesToElementAndAll(t *testing.T) {
	in := New(network.NewMemoryPubSub(), 0)
	all, cancelAll, err := in.Subscribe("")
	if err != nil {
		t.Fatalf("subscribe all: %v", err)
	}
	defer cancelAll()
	one, cancelOne, err := in.Subscribe("panel")
	if err != nil {
		t.Fatalf("subscribe panel: %v", err)
	}
	defer cancelOne()

	if _, err := in.Record(Entry{ElementID: "panel", Role: "receive_only", Origin: "https://a.example", Data: "hi"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	for name, ch := range map[string]<-chan network.Message{"all": all, "panel": one} {
		select {
		case msg := <-ch:
			var got Entry
			if err := json.Unmarshal(msg.Payload, &got); err != nil {
				t.Fatalf("%s: decode: %v", name, err)
			}
			if got.Seq != 1 || got.ElementID != "panel" || got.Data != "hi" || got.At.IsZero() {
				t.Fatalf("%s: unexpected entry %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: no entry published", name)
		}
	}
}

func TestRecentKeepsNewest(t *testing.T) {
	in := New(network.NewMemoryPubSub(), 2)
	for i := 0; i < 3; i++ {
		if _, err := in.Record(Entry{ElementID: "panel", Data: float64(i)}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	recent := in.Recent("panel")
	if len(recent) != 2 || recent[0].Data != float64(1) || recent[1].Seq != 3 {
		t.Fatalf("unexpected history: %+v", recent)
	}
	if got := in.Recent("other"); len(got) != 0 {
		t.Fatalf("expected empty history, got %+v", got)
	}
}

func TestRecordRequiresElement(t *testing.T) {
	in := New(network.NewMemoryPubSub(), 0)
	if _, err := in.Record(Entry{}); !errors.Is(err, ErrElementRequired) {
		t.Fatalf("expected ErrElementRequired, got %v", err)
	}
}

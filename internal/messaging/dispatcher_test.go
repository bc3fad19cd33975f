package messaging

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ClawdCity-Messaging/internal/core/window"
)

func mustValidate(t *testing.T, kind window.ElementKind, opts ...Option) *Descriptor {
	t.Helper()
	d, err := Validate(BuildOptions(opts...), kind)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	return d
}

func TestDispatcherAttachesOnFirstRegister(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	if d.Attached() || src.attachCount() != 0 {
		t.Fatal("dispatcher should not attach before a receiver registers")
	}
	d.Register(mustValidate(t, window.KindContainer, WithRole(ReceiveOnly), WithStrict(false), OnReceive(noopReceive)))
	d.Register(mustValidate(t, window.KindContainer, WithRole(ReceiveOnly), WithStrict(false), OnReceive(noopReceive)))
	if !d.Attached() || src.attachCount() != 1 {
		t.Fatalf("expected exactly one attach, got %d", src.attachCount())
	}
}

func TestDispatcherReplyTargetsOriginAndSource(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	payload := map[string]any{"answer": 42.0}
	d.Register(mustValidate(t, window.KindContainer,
		WithRole(ReceiveAndReply),
		WithDomain("https://parent.example"),
		OnReceiveReply(func(ev window.MessageEvent, data any, reply Reply) {
			if data != "question" {
				t.Errorf("unexpected data %#v", data)
			}
			if err := reply(payload); err != nil {
				t.Errorf("reply: %v", err)
			}
		}),
	))

	source := &recordingTarget{}
	src.emit(window.MessageEvent{Origin: "https://parent.example", Data: "question", Source: source})

	sent := source.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(sent))
	}
	if sent[0].origin != "https://parent.example" {
		t.Fatalf("reply targeted %q", sent[0].origin)
	}
	if got, ok := sent[0].data.(map[string]any); !ok || got["answer"] != 42.0 {
		t.Fatalf("reply carried %#v", sent[0].data)
	}
}

func TestDispatcherRepliesAreBoundPerMessage(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	var replies []Reply
	d.Register(mustValidate(t, window.KindContainer,
		WithRole(ReceiveAndReply),
		WithStrict(false),
		OnReceiveReply(func(_ window.MessageEvent, _ any, reply Reply) {
			replies = append(replies, reply)
		}),
	))

	first, second := &recordingTarget{}, &recordingTarget{}
	src.emit(window.MessageEvent{Origin: "https://one.example", Data: 1, Source: first})
	src.emit(window.MessageEvent{Origin: "https://two.example", Data: 2, Source: second})

	// Answer out of order; each reply still reaches its own message's source.
	_ = replies[1]("to-two")
	_ = replies[0]("to-one")
	if s := first.sent(); len(s) != 1 || s[0].data != "to-one" || s[0].origin != "https://one.example" {
		t.Fatalf("first source got %#v", s)
	}
	if s := second.sent(); len(s) != 1 || s[0].data != "to-two" || s[0].origin != "https://two.example" {
		t.Fatalf("second source got %#v", s)
	}
}

// Replying more than once is permitted; it is not required to be single-use.
func TestDispatcherReplyMayBeInvokedMoreThanOnce(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	d.Register(mustValidate(t, window.KindContainer,
		WithRole(ReceiveAndReply),
		WithStrict(false),
		OnReceiveReply(func(_ window.MessageEvent, _ any, reply Reply) {
			_ = reply("first")
			_ = reply("second")
		}),
	))
	source := &recordingTarget{}
	src.emit(window.MessageEvent{Origin: "https://a.example", Data: "q", Source: source})
	if n := len(source.sent()); n != 2 {
		t.Fatalf("expected two replies, got %d", n)
	}
}

func TestDispatcherReplySurfacesTransportError(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	boom := errors.New("gone")
	var got error
	d.Register(mustValidate(t, window.KindContainer,
		WithRole(ReceiveAndReply),
		WithStrict(false),
		OnReceiveReply(func(_ window.MessageEvent, _ any, reply Reply) { got = reply("x") }),
	))
	src.emit(window.MessageEvent{Origin: "https://a.example", Source: &recordingTarget{err: boom}})
	if !errors.Is(got, boom) {
		t.Fatalf("expected transport error, got %v", got)
	}
}

func TestDispatcherStrictOriginMismatchIsSilent(t *testing.T) {
	var drops []DropReason
	src := &fakeSource{}
	d := NewDispatcher(src, WithDropHook(func(r DropReason, _ window.MessageEvent) { drops = append(drops, r) }))
	calls := 0
	d.Register(mustValidate(t, window.KindContainer,
		WithRole(ReceiveOnly),
		WithDomain("https://a.example"),
		OnReceive(func(window.MessageEvent, any) { calls++ }),
	))

	before := testutil.ToFloat64(inboundDropped.WithLabelValues(string(DropOriginMismatch)))
	src.emit(window.MessageEvent{Origin: "https://evil.example", Data: "probe"})
	if calls != 0 {
		t.Fatalf("handler must not run for a mismatched origin, ran %d times", calls)
	}
	if len(drops) != 1 || drops[0] != DropOriginMismatch {
		t.Fatalf("expected one origin_mismatch drop, got %v", drops)
	}
	if after := testutil.ToFloat64(inboundDropped.WithLabelValues(string(DropOriginMismatch))); after != before+1 {
		t.Fatalf("drop counter did not move: %v -> %v", before, after)
	}

	src.emit(window.MessageEvent{Origin: "https://a.example", Data: "hello"})
	if calls != 1 {
		t.Fatalf("expected matching origin to reach handler, calls=%d", calls)
	}
}

func TestDispatcherNonStrictAcceptsAnyOrigin(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	var origins []string
	d.Register(mustValidate(t, window.KindContainer,
		WithRole(ReceiveOnly),
		WithStrict(false),
		WithDomain("https://a.example"),
		OnReceive(func(ev window.MessageEvent, _ any) { origins = append(origins, ev.Origin) }),
	))
	for _, o := range []string{"https://a.example", "https://b.example", "null"} {
		src.emit(window.MessageEvent{Origin: o})
	}
	if len(origins) != 3 {
		t.Fatalf("expected every origin delivered, got %v", origins)
	}
}

func TestDispatcherLastRegistrationWins(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	var a, b int
	d.Register(mustValidate(t, window.KindContainer, WithRole(ReceiveOnly), WithStrict(false),
		OnReceive(func(window.MessageEvent, any) { a++ })))
	d.Register(mustValidate(t, window.KindContainer, WithRole(ReceiveOnly), WithStrict(false),
		OnReceive(func(window.MessageEvent, any) { b++ })))

	src.emit(window.MessageEvent{Origin: "https://a.example"})
	if a != 0 || b != 1 {
		t.Fatalf("expected only the second receiver to run, a=%d b=%d", a, b)
	}
}

func TestDispatcherWithoutReceiverDrops(t *testing.T) {
	var drops []DropReason
	d := NewDispatcher(&fakeSource{}, WithDropHook(func(r DropReason, _ window.MessageEvent) { drops = append(drops, r) }))
	d.handle(window.MessageEvent{Origin: "https://a.example"})
	if len(drops) != 1 || drops[0] != DropNoReceiver {
		t.Fatalf("expected no_receiver drop, got %v", drops)
	}
}

func TestDispatcherDoesNotRecoverHandlerPanics(t *testing.T) {
	src := &fakeSource{}
	d := NewDispatcher(src)
	d.Register(mustValidate(t, window.KindContainer, WithRole(ReceiveOnly), WithStrict(false),
		OnReceive(func(window.MessageEvent, any) { panic("handler failed") })))
	defer func() {
		if r := recover(); r != "handler failed" {
			t.Fatalf("expected handler panic to propagate, got %v", r)
		}
	}()
	src.emit(window.MessageEvent{Origin: "https://a.example"})
}

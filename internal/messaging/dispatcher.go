package messaging

import (
	"sync"

	"go.uber.org/zap"

	"ClawdCity-Messaging/internal/core/window"
)

// MessageSource is the page-wide inbound stream a Dispatcher listens on.
// *window.Window implements it.
type MessageSource interface {
	AddMessageListener(fn func(window.MessageEvent)) (remove func())
}

// DropReason says why the dispatcher discarded an inbound message.
type DropReason string

const (
	DropNoReceiver     DropReason = "no_receiver"
	DropOriginMismatch DropReason = "origin_mismatch"
)

// DropHook observes discarded messages. It never changes what the handler
// sees.
type DropHook func(reason DropReason, ev window.MessageEvent)

// LogDrops returns a DropHook that logs each drop at debug level.
func LogDrops(l *zap.Logger) DropHook {
	return func(reason DropReason, ev window.MessageEvent) {
		l.Debug("inbound message dropped",
			zap.String("reason", string(reason)),
			zap.String("origin", ev.Origin),
		)
	}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithDropHook(h DropHook) DispatcherOption {
	return func(d *Dispatcher) { d.onDrop = h }
}

func WithDispatcherLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher owns the one inbound listener of a page and the single slot
// holding the receiving channel's descriptor. Registering a second
// receiver replaces the first.
type Dispatcher struct {
	source MessageSource
	onDrop DropHook
	log    *zap.Logger

	mu       sync.Mutex
	attached bool
	current  *Descriptor
}

func NewDispatcher(source MessageSource, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		source: source,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Register makes desc the page's receiver, attaching the inbound listener
// on first use.
func (d *Dispatcher) Register(desc *Descriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		d.source.AddMessageListener(d.handle)
		d.attached = true
		listenersAttached.Inc()
		d.log.Debug("inbound listener attached")
	}
	if d.current != nil && d.current != desc {
		d.log.Debug("receiver replaced",
			zap.String("previous_role", d.current.Role().String()),
			zap.String("role", desc.Role().String()),
		)
	}
	d.current = desc
}

// release empties the slot if desc still holds it. The listener stays
// attached.
func (d *Dispatcher) release(desc *Descriptor) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc == nil || d.current != desc {
		return false
	}
	d.current = nil
	d.log.Debug("receiver released", zap.String("role", desc.Role().String()))
	return true
}

// Attached reports whether the inbound listener is installed.
func (d *Dispatcher) Attached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached
}

// Current returns the registered receiver, or nil.
func (d *Dispatcher) Current() *Descriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// handle runs on the transport's delivery turn. Handler panics propagate
// to the transport.
func (d *Dispatcher) handle(ev window.MessageEvent) {
	desc := d.Current()
	if desc == nil {
		d.drop(DropNoReceiver, ev)
		return
	}
	if !desc.accepts(ev.Origin) {
		d.drop(DropOriginMismatch, ev)
		return
	}
	inboundDispatched.WithLabelValues(desc.Role().String()).Inc()
	switch h := desc.Handler().(type) {
	case ReplyFunc:
		h(ev, ev.Data, newReply(ev.Source, ev.Origin))
	case ReceiveFunc:
		h(ev, ev.Data)
	}
}

func (d *Dispatcher) drop(reason DropReason, ev window.MessageEvent) {
	inboundDropped.WithLabelValues(string(reason)).Inc()
	if d.onDrop != nil {
		d.onDrop(reason, ev)
	}
}

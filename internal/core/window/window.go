package window

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ClawdCity-Messaging/internal/core/codec"
	"ClawdCity-Messaging/internal/core/network"
)

var (
	ErrClosed   = errors.New("window: closed")
	ErrNoTarget = errors.New("window: target window id required")
)

var (
	postedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "window_messages_posted_total",
		Help: "messages handed to the bus by windows.",
	})
	discardedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "window_messages_discarded_total",
			Help: "inbound frames discarded before reaching listeners, by reason.",
		},
		[]string{"reason"},
	)
	listenerPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "window_listener_panics_total",
		Help: "message listeners that panicked.",
	})
)

func init() {
	prometheus.MustRegister(postedMessages, discardedMessages, listenerPanics)
}

// MessageEvent is one inbound message as seen by listeners.
type MessageEvent struct {
	// Origin is the sending window's origin as asserted by the transport.
	Origin string
	Data   any
	// Source posts back to the sending window.
	Source     Target
	ReceivedAt time.Time
}

// Option configures a Window.
type Option func(*Window)

// WithID pins the window id instead of generating one. Peers address a
// window by id, so hosts that publish their id in config set it here.
func WithID(id string) Option {
	return func(w *Window) {
		if id != "" {
			w.id = id
		}
	}
}

// WithCodec sets the codec used for outbound frames. Inbound frames are
// decoded with whatever codec their sender used.
func WithCodec(c codec.Codec) Option {
	return func(w *Window) {
		if c != nil {
			w.codec = c
			w.codecs.Register(c)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Window) {
		if l != nil {
			w.log = l
		}
	}
}

type listener struct {
	id int
	fn func(MessageEvent)
}

// Window is one browsing context attached to a bus.
type Window struct {
	id     string
	origin string
	bus    network.PubSub
	codec  codec.Codec
	codecs *codec.Registry
	log    *zap.Logger

	mu        sync.RWMutex
	listeners []listener
	nextID    int
	closed    bool

	unsubscribe func()
	stop        context.CancelFunc
	done        chan struct{}
}

// Open attaches a window with the given origin to bus and starts its event
// loop. The loop ends when ctx is done or Close is called.
func Open(ctx context.Context, bus network.PubSub, origin string, opts ...Option) (*Window, error) {
	normalized, err := ParseOrigin(origin)
	if err != nil {
		return nil, err
	}
	w := &Window{
		id:     uuid.NewString(),
		origin: normalized,
		bus:    bus,
		codec:  codec.JSON(),
		codecs: codec.NewRegistry(),
		log:    zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	w.log = w.log.With(zap.String("window_id", w.id), zap.String("origin", w.origin))

	inbox, unsubscribe, err := bus.Subscribe(topicFor(w.id))
	if err != nil {
		return nil, fmt.Errorf("window: subscribe %s: %w", w.id, err)
	}
	loopCtx, stop := context.WithCancel(ctx)
	w.unsubscribe = unsubscribe
	w.stop = stop

	go w.run(loopCtx, inbox)
	w.log.Debug("window opened")
	return w, nil
}

func (w *Window) ID() string     { return w.id }
func (w *Window) Origin() string { return w.origin }

// Done is closed once the event loop has exited.
func (w *Window) Done() <-chan struct{} { return w.done }

// Proxy returns a handle for posting to the window with the given id.
func (w *Window) Proxy(id string) *Proxy {
	return &Proxy{from: w, id: id}
}

// Self returns a handle for posting to this window.
func (w *Window) Self() *Proxy {
	return w.Proxy(w.id)
}

// AddMessageListener registers fn for every message this window accepts.
// The returned func removes it.
func (w *Window) AddMessageListener(fn func(MessageEvent)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners = append(w.listeners, listener{id: id, fn: fn})
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			for i, l := range w.listeners {
				if l.id == id {
					w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// ListenerCount reports how many listeners are attached.
func (w *Window) ListenerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.listeners)
}

// Close detaches the window from the bus. It does not wait for the event
// loop, so it is safe to call from a listener.
func (w *Window) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.stop()
	w.unsubscribe()
	w.log.Debug("window closed")
	return nil
}

func (w *Window) post(to string, data any, targetOrigin string) error {
	if to == "" {
		return ErrNoTarget
	}
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	resolved, err := resolveTargetOrigin(targetOrigin, w.origin)
	if err != nil {
		return err
	}
	frame, err := encodeFrame(w.codec, envelope{
		SourceID:     w.id,
		SourceOrigin: w.origin,
		TargetOrigin: resolved,
		Data:         data,
	})
	if err != nil {
		return err
	}
	if err := w.bus.Publish(topicFor(to), frame); err != nil {
		return fmt.Errorf("window: publish to %s: %w", to, err)
	}
	postedMessages.Inc()
	return nil
}

func (w *Window) run(ctx context.Context, inbox <-chan network.Message) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbox:
			if !ok {
				return
			}
			w.deliver(msg.Payload)
		}
	}
}

func (w *Window) deliver(frame []byte) {
	env, err := decodeFrame(w.codecs, frame)
	if err != nil {
		discardedMessages.WithLabelValues("decode").Inc()
		w.log.Debug("inbound frame discarded", zap.Error(err))
		return
	}
	if env.TargetOrigin != AnyOrigin && env.TargetOrigin != w.origin {
		discardedMessages.WithLabelValues("target_origin").Inc()
		w.log.Debug("inbound frame targeted at another origin",
			zap.String("target_origin", env.TargetOrigin),
			zap.String("source_origin", env.SourceOrigin),
		)
		return
	}

	w.mu.RLock()
	listeners := append([]listener(nil), w.listeners...)
	w.mu.RUnlock()
	if len(listeners) == 0 {
		discardedMessages.WithLabelValues("no_listener").Inc()
		return
	}

	ev := MessageEvent{
		Origin:     env.SourceOrigin,
		Data:       env.Data,
		Source:     w.Proxy(env.SourceID),
		ReceivedAt: time.Now().UTC(),
	}
	for _, l := range listeners {
		w.invoke(l.fn, ev)
	}
}

// invoke isolates listener panics the way a page reports an uncaught
// exception and keeps processing events.
func (w *Window) invoke(fn func(MessageEvent), ev MessageEvent) {
	defer func() {
		if r := recover(); r != nil {
			listenerPanics.Inc()
			w.log.Error("message listener panicked",
				zap.Any("panic", r),
				zap.String("event_origin", ev.Origin),
			)
		}
	}()
	fn(ev)
}

func topicFor(windowID string) string {
	return "window." + windowID
}

// Proxy is a handle to another window, used as a frame's content window
// and as the source of inbound messages.
type Proxy struct {
	from *Window
	id   string
}

// ID is the id of the window this proxy points at.
func (p *Proxy) ID() string { return p.id }

// PostMessage sends data to the proxied window. Delivery is refused by the
// receiver when targetOrigin is neither "*" nor its origin.
func (p *Proxy) PostMessage(data any, targetOrigin string) error {
	return p.from.post(p.id, data, targetOrigin)
}

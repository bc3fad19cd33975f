package network

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscription queue length.
const DefaultBufferSize = 64

// MemoryOption configures a MemoryPubSub.
type MemoryOption func(*MemoryPubSub)

// WithBufferSize sets the per-subscription queue length.
func WithBufferSize(n int) MemoryOption {
	return func(m *MemoryPubSub) {
		if n > 0 {
			m.buffer = n
		}
	}
}

// WithMemoryLogger routes drop warnings to l.
func WithMemoryLogger(l *zap.Logger) MemoryOption {
	return func(m *MemoryPubSub) {
		if l != nil {
			m.log = l
		}
	}
}

// MemoryPubSub is a process-local transport: every window of every page in
// the process shares one instance.
type MemoryPubSub struct {
	mu      sync.RWMutex
	nextID  int
	buffer  int
	subs    map[string]map[int]chan Message
	dropped atomic.Int64
	log     *zap.Logger
}

func NewMemoryPubSub(opts ...MemoryOption) *MemoryPubSub {
	m := &MemoryPubSub{
		buffer: DefaultBufferSize,
		subs:   make(map[string]map[int]chan Message),
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *MemoryPubSub) Publish(topic string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs[topic] {
		msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
		select {
		case ch <- msg:
		default:
			// One slow window must not stall every publisher on the bus.
			m.dropped.Add(1)
			droppedMessages.WithLabelValues("memory").Inc()
			m.log.Warn("memory pubsub subscriber full, frame dropped",
				zap.String("topic", topic),
				zap.Int("buffer", m.buffer),
			)
		}
	}
	return nil
}

func (m *MemoryPubSub) Subscribe(topic string) (<-chan Message, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[topic]; !ok {
		m.subs[topic] = make(map[int]chan Message)
	}
	id := m.nextID
	m.nextID++
	ch := make(chan Message, m.buffer)
	m.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if subsByTopic, ok := m.subs[topic]; ok {
				if sub, exists := subsByTopic[id]; exists {
					delete(subsByTopic, id)
					close(sub)
				}
				if len(subsByTopic) == 0 {
					delete(m.subs, topic)
				}
			}
		})
	}
	return ch, cancel, nil
}

// Subscribers reports how many live subscriptions a topic has.
func (m *MemoryPubSub) Subscribers(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[topic])
}

// Dropped reports how many frames were discarded on full buffers.
func (m *MemoryPubSub) Dropped() int64 {
	return m.dropped.Load()
}

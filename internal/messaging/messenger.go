package messaging

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ClawdCity-Messaging/internal/core/window"
)

// Messenger is the messaging surface of one page: it validates and opens
// channels on page elements and remembers the channel of each element.
type Messenger struct {
	dispatcher *Dispatcher
	log        *zap.Logger

	mu       sync.RWMutex
	channels map[string]*Channel
}

func NewMessenger(source MessageSource, log *zap.Logger, opts ...DispatcherOption) *Messenger {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]DispatcherOption{WithDispatcherLogger(log)}, opts...)
	return &Messenger{
		dispatcher: NewDispatcher(source, opts...),
		log:        log,
		channels:   make(map[string]*Channel),
	}
}

func (m *Messenger) Dispatcher() *Dispatcher { return m.dispatcher }

// Configure validates opts for element and opens its channel. A failed
// configuration leaves the element's previous channel, if any, in place.
// Configuring an element again replaces its channel. If the element held
// the page's receiver slot and its new role does not receive, the slot is
// emptied so its old handler stops firing.
func (m *Messenger) Configure(element window.Element, opts ...Option) (*Channel, error) {
	desc, err := Validate(BuildOptions(opts...), element.Kind())
	if err != nil {
		configErrors.WithLabelValues(configErrorReason(err)).Inc()
		m.log.Warn("channel configuration rejected",
			zap.String("element", element.ID()),
			zap.Stringer("kind", element.Kind()),
			zap.Error(err),
		)
		return nil, err
	}
	ch, err := Open(desc, element, m.dispatcher)
	if err != nil {
		configErrors.WithLabelValues(configErrorReason(err)).Inc()
		return nil, err
	}

	m.mu.Lock()
	prev := m.channels[element.ID()]
	m.channels[element.ID()] = ch
	m.mu.Unlock()
	if prev != nil && !desc.Role().Receives() && m.dispatcher.release(prev.desc) {
		m.log.Info("receiver slot released",
			zap.String("element", element.ID()),
			zap.String("role", desc.Role().String()),
		)
	}

	m.log.Info("channel configured",
		zap.String("element", element.ID()),
		zap.String("role", desc.Role().String()),
		zap.String("domain", desc.Domain()),
		zap.Bool("strict", desc.Strict()),
	)
	return ch, nil
}

// Channel returns the channel configured on elementID.
func (m *Messenger) Channel(elementID string) (*Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[elementID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, elementID)
	}
	return ch, nil
}

// Send sends message on the channel configured on elementID.
func (m *Messenger) Send(elementID string, message any) error {
	ch, err := m.Channel(elementID)
	if err != nil {
		return err
	}
	return ch.Send(message)
}

// Elements lists configured element ids in order.
func (m *Messenger) Elements() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.channels))
	for id := range m.channels {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

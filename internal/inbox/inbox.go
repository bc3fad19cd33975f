// Package inbox records messages delivered to a page's receiving channels
// and fans them out to live subscribers over a pub/sub bus.
package inbox

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ClawdCity-Messaging/internal/core/network"
)

// DefaultKeep is how many recent entries are retained per element.
const DefaultKeep = 50

const allTopic = "inbox"

var ErrElementRequired = errors.New("inbox: element id required")

// Entry is one message handed to a receiving channel.
type Entry struct {
	Seq       int64     `json:"seq"`
	ElementID string    `json:"element_id"`
	Role      string    `json:"role"`
	Origin    string    `json:"origin"`
	Data      any       `json:"data"`
	Replied   bool      `json:"replied,omitempty"`
	Reply     any       `json:"reply,omitempty"`
	ReplyErr  string    `json:"reply_error,omitempty"`
	At        time.Time `json:"at"`
}

type Inbox struct {
	pubsub network.PubSub
	keep   int

	mu     sync.RWMutex
	seq    int64
	recent map[string][]Entry
}

func New(pubsub network.PubSub, keep int) *Inbox {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Inbox{
		pubsub: pubsub,
		keep:   keep,
		recent: make(map[string][]Entry),
	}
}

// Record stamps e, keeps it in the element's history and publishes it on
// the element topic and the all-elements topic.
func (i *Inbox) Record(e Entry) (Entry, error) {
	if e.ElementID == "" {
		return Entry{}, ErrElementRequired
	}
	i.mu.Lock()
	i.seq++
	e.Seq = i.seq
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	history := append(i.recent[e.ElementID], e)
	if len(history) > i.keep {
		history = history[len(history)-i.keep:]
	}
	i.recent[e.ElementID] = history
	i.mu.Unlock()

	b, err := json.Marshal(e)
	if err != nil {
		return e, err
	}
	if err := i.pubsub.Publish(topicForElement(e.ElementID), b); err != nil {
		return e, err
	}
	return e, i.pubsub.Publish(allTopic, b)
}

// Recent returns the retained entries for elementID, oldest first.
func (i *Inbox) Recent(elementID string) []Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]Entry(nil), i.recent[elementID]...)
}

// Subscribe streams JSON-encoded entries for elementID, or for every
// element when elementID is empty.
func (i *Inbox) Subscribe(elementID string) (<-chan network.Message, func(), error) {
	if elementID == "" {
		return i.pubsub.Subscribe(allTopic)
	}
	return i.pubsub.Subscribe(topicForElement(elementID))
}

func topicForElement(elementID string) string {
	return allTopic + "." + elementID
}

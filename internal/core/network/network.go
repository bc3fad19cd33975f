// Package network carries opaque payloads between browsing contexts and
// the host's local subscribers.
//
// A PubSub is the shared medium every window rides on: each window
// subscribes to its own inbound topic and publishes to the topics of the
// windows it posts to. MemoryPubSub keeps all windows inside one process;
// Libp2pPubSub spreads them across hosts over gossipsub.
package network

import "github.com/prometheus/client_golang/prometheus"

// Message is the transport envelope used by the runtime.
type Message struct {
	Topic   string
	Payload []byte
}

// PubSub is a minimal interface for topic-addressed communication.
// Messages published to one topic by one publisher arrive in order.
type PubSub interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string) (<-chan Message, func(), error)
}

var droppedMessages = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "network_messages_dropped_total",
		Help: "frames dropped because a subscriber buffer was full, by transport.",
	},
	[]string{"transport"},
)

func init() {
	prometheus.MustRegister(droppedMessages)
}

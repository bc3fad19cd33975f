package messaging

import "github.com/prometheus/client_golang/prometheus"

var (
	channelsConfigured = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "messaging_channels_configured_total", Help: "channels opened, by role."},
		[]string{"role"},
	)

	configErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "messaging_config_errors_total", Help: "rejected channel configurations, by reason."},
		[]string{"reason"},
	)

	inboundDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "messaging_inbound_dispatched_total", Help: "inbound messages handed to a handler, by role."},
		[]string{"role"},
	)

	inboundDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "messaging_inbound_dropped_total", Help: "inbound messages dropped by the dispatcher, by reason."},
		[]string{"reason"},
	)

	outboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "messaging_outbound_total", Help: "messages posted by channels, by kind."},
		[]string{"kind"},
	)

	listenersAttached = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "messaging_listener_attached_total", Help: "dispatcher listeners attached to a page."},
	)
)

func init() {
	prometheus.MustRegister(
		channelsConfigured,
		configErrors,
		inboundDispatched,
		inboundDropped,
		outboundMessages,
		listenersAttached,
	)
}

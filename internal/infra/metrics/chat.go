package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(chatSendsTotal, chatSessionsCreated) }

var (
	chatSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyx_chat_sends_total",
			Help: "Settled send-message exchanges by outcome.",
		},
		[]string{"outcome"}, // ok | empty | error | timeout
	)

	chatSessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nyx_chat_sessions_created_total",
			Help: "Chat sessions created from a first message.",
		},
	)
)

func IncChatSend(outcome string) {
	chatSendsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSessionCreated() { chatSessionsCreated.Inc() }

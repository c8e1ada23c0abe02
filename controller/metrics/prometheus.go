package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered once per process with the default registry
var (
	PacketsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covert_packets_emitted_total",
		Help: "Total number of covert packets handed to the transport",
	})
	PacketsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covert_packets_captured_total",
		Help: "Total number of captured packets that carried a bit",
	})
	PacketsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covert_packets_discarded_total",
		Help: "Total number of captured packets outside both port ranges",
	})
	CharactersDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covert_characters_decoded_total",
		Help: "Total number of characters decoded, sentinel included",
	})
	CharactersTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covert_characters_truncated_total",
		Help: "Total number of sent characters that did not fit in the configured bits per character",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covert_messages_sent_total",
		Help: "Total number of messages sent, sentinel included",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "covert_messages_received_total",
		Help: "Total number of messages terminated by the sentinel",
	})
	SendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "covert_send_duration_seconds",
		Help:    "Time taken to emit a whole message",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	SendCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "covert_send_capacity_bits_per_second",
		Help: "Bits per second achieved by the last send",
	})
)

// Package metrics holds the prometheus instruments of the transport core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HandshakesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtproto_handshakes_total",
			Help: "Completed key exchanges by outcome.",
		},
		[]string{"result"},
	)

	HandshakeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mtproto_handshake_duration_seconds",
			Help:    "Wall time of a key exchange including the safe-prime test.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	DhGenRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtproto_dh_gen_retries_total",
			Help: "dh_gen_retry answers received.",
		},
	)

	PrimeChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtproto_prime_checks_total",
			Help: "DH prime validations by source and verdict.",
		},
		[]string{"source", "verdict"},
	)

	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtproto_frames_total",
			Help: "Frames handled by direction and framing mode.",
		},
		[]string{"direction", "mode"},
	)

	FrameBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtproto_frame_bytes_total",
			Help: "Bytes on the wire by direction.",
		},
		[]string{"direction"},
	)

	IntegrityErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtproto_integrity_errors_total",
			Help: "Rejected inbound encrypted frames by reason.",
		},
		[]string{"reason"},
	)

	PendingCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtproto_pending_calls",
			Help: "Calls sent and waiting for a response.",
		},
	)

	CallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtproto_call_latency_seconds",
			Help:    "Time from send to response of encrypted calls.",
			Buckets: prometheus.LinearBuckets(0.05, 0.1, 10),
		},
		[]string{"outcome"},
	)

	ServiceMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtproto_service_messages_total",
			Help: "Inbound service messages by constructor name.",
		},
		[]string{"type"},
	)
)

// Label values
const (
	DirectionIn  = "in"
	DirectionOut = "out"

	ModePlain     = "plain"
	ModeEncrypted = "encrypted"
)

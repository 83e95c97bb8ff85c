package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TicksIngested counts ticks applied to a history, by source (live/simulator)
var TicksIngested = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pulse_ticks_ingested_total",
		Help: "Total number of ticks appended to a symbol history",
	},
	[]string{"source"},
)

// TicksDiscarded counts ticks rejected because their source did not match the feed state
var TicksDiscarded = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pulse_ticks_discarded_total",
		Help: "Ticks ignored because their source was not the active one",
	},
	[]string{"source"},
)

// FramesDropped counts inbound stream frames that were malformed or not trades
var FramesDropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pulse_stream_frames_dropped_total",
		Help: "Inbound stream frames dropped without effect",
	},
	[]string{"reason"},
)

// Feed connection state
var (
	FeedState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_feed_state",
			Help: "Current feed state (0=connecting 1=live 2=disconnected 3=simulated)",
		},
	)

	FeedTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_feed_transitions_total",
			Help: "Feed state transitions by target state",
		},
		[]string{"to"},
	)
)

// Upstream REST lookups
var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_upstream_requests_total",
			Help: "Quote/candle lookups by kind and result (live/fallback)",
		},
		[]string{"kind", "result"},
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_upstream_latency_seconds",
			Help:    "Latency of upstream REST lookups",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// WSClients is the number of connected dashboard websocket clients
var WSClients = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "pulse_ws_clients",
		Help: "Connected dashboard websocket clients",
	},
)

func init() {
	prometheus.MustRegister(TicksIngested, TicksDiscarded, FramesDropped)
	prometheus.MustRegister(FeedState, FeedTransitions)
	prometheus.MustRegister(UpstreamRequests, UpstreamLatency, WSClients)
}

// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlayersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridrealm",
		Name:      "players_online",
		Help:      "Authenticated sessions currently in the world.",
	})

	EntitiesLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridrealm",
		Name:      "entities_live",
		Help:      "Entity instances currently spawned.",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridrealm",
		Name:      "tick_duration_seconds",
		Help:      "Wall time of one hot tick.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5},
	})

	SlowTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gridrealm",
		Name:      "slow_ticks_total",
		Help:      "Hot ticks that overran the slow-tick threshold.",
	})

	FramesIn = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gridrealm",
		Name:      "frames_in_total",
		Help:      "Client frames accepted off the wire.",
	})

	FramesOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gridrealm",
		Name:      "frames_out_total",
		Help:      "Frames flushed to clients.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gridrealm",
		Name:      "frames_dropped_total",
		Help:      "Frames discarded by rate limiting or backpressure.",
	})

	HandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridrealm",
		Name:      "handler_errors_total",
		Help:      "RESP_ERROR frames sent, by error code.",
	}, []string{"code"})

	PersistFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gridrealm",
		Name:      "persist_flushes_total",
		Help:      "Warm-tier flush passes completed.",
	})
)

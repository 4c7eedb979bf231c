package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CutsTotal counts finished cut requests by outcome ("ok" or an error kind).
	CutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mp4trim_cuts_total",
		Help: "Cut requests by outcome",
	}, []string{"outcome"})

	// CutDuration tracks wall time of successful cuts, engine start-up included.
	CutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mp4trim_cut_duration_seconds",
		Help:    "Duration of successful cuts",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	})

	// CutBytes counts bytes handed to the download sink.
	CutBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp4trim_cut_output_bytes_total",
		Help: "Bytes of exported clips",
	})

	// EngineInits counts engine initializations by result.
	EngineInits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mp4trim_engine_initializations_total",
		Help: "Engine initializations by result",
	}, []string{"result"})

	// EngineState is the engine session state (0 uninitialized, 1 initializing,
	// 2 ready, 3 failed).
	EngineState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mp4trim_engine_state",
		Help: "Current engine session state",
	})

	// PreviewsTotal counts preview runs by how they ended.
	PreviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mp4trim_previews_total",
		Help: "Preview runs by end reason",
	}, []string{"reason"})
)

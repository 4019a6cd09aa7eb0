package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceindex",
		Name:      "files_indexed_total",
		Help:      "Total number of files that completed indexing",
	})

	FacesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceindex",
		Name:      "faces_indexed_total",
		Help:      "Total number of faces returned across all indexed files",
	})

	FacesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceindex",
		Name:      "faces_dropped_total",
		Help:      "Total number of candidate faces dropped before being returned",
	}, []string{"reason"})

	IndexingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceindex",
		Name:      "indexing_failures_total",
		Help:      "Total number of indexing attempts that aborted with an error",
	}, []string{"reason"})

	// PipelineStageDuration covers the named stages of indexFaces: detect,
	// decode, remap, align, warp, embed, blur.
	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceindex",
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of each per-image pipeline stage",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceindex",
		Name:      "queue_depth",
		Help:      "Number of pending index jobs in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceindex",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceindex",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections watching index job progress",
	})
)

package split

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	splitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kerf_split_total",
		Help: "Total splits by method and result",
	}, []string{"method", "result"})

	splitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kerf_split_duration_seconds",
		Help:    "Split duration by method",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"method"})

	splitOutputTriangles = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kerf_split_output_triangles",
		Help:    "Triangles per split output solid",
		Buckets: prometheus.ExponentialBuckets(8, 4, 10),
	})
)

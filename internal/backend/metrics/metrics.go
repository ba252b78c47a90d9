package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PicturesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "animal_pictures",
			Name:      "pictures_fetched_total",
			Help:      "Pictures fetched from upstream and stored",
		},
		[]string{"animal"},
	)

	UpstreamFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "animal_pictures",
			Name:      "upstream_failures_total",
			Help:      "Failed upstream image fetches",
		},
		[]string{"animal"},
	)

	PicturesClearedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "animal_pictures",
			Name:      "pictures_cleared_total",
			Help:      "Pictures removed by clear requests",
		},
	)

	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "animal_pictures",
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Upstream image fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"animal"},
	)
)

// ObserveFetch records the duration of one upstream fetch attempt.
func ObserveFetch(animal string, durationSec float64) {
	UpstreamFetchDuration.WithLabelValues(animal).Observe(durationSec)
}

// RecordStored counts a picture that was fetched and persisted.
func RecordStored(animal string) {
	PicturesFetchedTotal.WithLabelValues(animal).Inc()
}

func RecordUpstreamFailure(animal string) {
	UpstreamFailuresTotal.WithLabelValues(animal).Inc()
}

func RecordClear(deleted int64) {
	PicturesClearedTotal.Add(float64(deleted))
}

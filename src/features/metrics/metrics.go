package metrics

import (
	"errors"
	"time"

	"github.com/contre95/muscat/src/music"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the Prometheus collectors for catalog operations.
// A nil *Recorder records nothing, so services work without metrics.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	entities   *prometheus.GaugeVec
	genres     *prometheus.GaugeVec
	years      *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_operations_total",
			Help: "Catalog operations by result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_operation_duration_seconds",
			Help:    "Duration of catalog operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalog_entities",
			Help: "Rows per catalog collection.",
		}, []string{"kind"}),
		genres: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalog_tracks_by_genre",
			Help: "Tracks per genre.",
		}, []string{"genre"}),
		years: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalog_tracks_by_year",
			Help: "Tracks per release year.",
		}, []string{"year"}),
	}
	r.registry.MustRegister(r.operations, r.duration, r.entities, r.genres, r.years)
	return r
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one finished operation.
func (r *Recorder) Observe(op string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, Result(err)).Inc()
	r.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetStats publishes the collection sizes.
func (r *Recorder) SetStats(s music.Stats) {
	if r == nil {
		return
	}
	r.entities.WithLabelValues("library").Set(float64(s.Libraries))
	r.entities.WithLabelValues("track").Set(float64(s.Tracks))
	r.entities.WithLabelValues("playlist").Set(float64(s.Playlists))
	r.entities.WithLabelValues("playlist_entry").Set(float64(s.PlaylistEntries))
}

// SetDistributions replaces the genre and year gauges.
func (r *Recorder) SetDistributions(genres, years map[string]int) {
	if r == nil {
		return
	}
	r.genres.Reset()
	for g, n := range genres {
		r.genres.WithLabelValues(g).Set(float64(n))
	}
	r.years.Reset()
	for y, n := range years {
		r.years.WithLabelValues(y).Set(float64(n))
	}
}

// Result maps an operation error to its result label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, music.ErrValidation):
		return "validation"
	case errors.Is(err, music.ErrConflict):
		return "conflict"
	case errors.Is(err, music.ErrNotFound):
		return "not_found"
	case errors.Is(err, music.ErrProtected):
		return "protected"
	case errors.Is(err, music.ErrIntegrity):
		return "integrity"
	default:
		return "error"
	}
}

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/contre95/muscat/src/music"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service computes catalog metrics and serves them to Prometheus.
type Service struct {
	catalog  music.Catalog
	recorder *Recorder

	refreshMu sync.Mutex
}

// NewService creates a new metrics service.
func NewService(catalog music.Catalog, recorder *Recorder) *Service {
	return &Service{
		catalog:  catalog,
		recorder: recorder,
	}
}

// Distribution holds per-genre and per-year track counts. Tracks without a
// genre or year are counted under "unknown".
type Distribution struct {
	Genres map[string]int
	Years  map[string]int
}

// Refresh recomputes the catalog gauges.
func (s *Service) Refresh(ctx context.Context) (music.Stats, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	slog.Debug("Refreshing catalog metrics")
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		slog.Error("Failed to read catalog stats", "error", err)
		return stats, err
	}
	s.recorder.SetStats(stats)

	dist, err := s.Distribution(ctx)
	if err != nil {
		slog.Warn("Failed to compute track distribution", "error", err)
		return stats, nil
	}
	s.recorder.SetDistributions(dist.Genres, dist.Years)
	slog.Debug("Catalog metrics refreshed", "summary", stats.Summary())
	return stats, nil
}

// Distribution counts the tracks per genre and per year.
func (s *Service) Distribution(ctx context.Context) (*Distribution, error) {
	tracks, err := s.catalog.QueryTracks(ctx, music.TrackFilter{SortBy: music.SortByPath})
	if err != nil {
		return nil, err
	}
	d := &Distribution{Genres: make(map[string]int), Years: make(map[string]int)}
	for _, t := range tracks {
		genre := t.Metadata.Genre
		if genre == "" {
			genre = "unknown"
		}
		d.Genres[genre]++

		year := "unknown"
		if t.Metadata.Year > 0 {
			year = strconv.Itoa(t.Metadata.Year)
		}
		d.Years[year]++
	}
	return d, nil
}

// Handler serves the registry. The catalog gauges are recomputed on every
// scrape so they follow changes made after startup.
func (s *Service) Handler() http.Handler {
	metrics := promhttp.HandlerFor(s.recorder.Registry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.Refresh(r.Context()); err != nil {
			slog.Warn("Serving stale catalog metrics", "error", err)
		}
		metrics.ServeHTTP(w, r)
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (s *Service) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown failed", "error", err)
		}
	}()

	slog.Info("Serving metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/muscat/src/features/config"
	"github.com/contre95/muscat/src/features/metrics"
	"github.com/contre95/muscat/src/infra/watcher"
	"github.com/contre95/muscat/src/music"
)

// Service is the domain service for the library feature.
type Service struct {
	catalog       music.Catalog
	configManager *config.Manager
	recorder      *metrics.Recorder
}

// NewService creates a new library service. recorder may be nil.
func NewService(catalog music.Catalog, cfgManager *config.Manager, recorder *metrics.Recorder) *Service {
	return &Service{
		catalog:       catalog,
		configManager: cfgManager,
		recorder:      recorder,
	}
}

// CreateLibrary registers a new import root.
func (s *Service) CreateLibrary(ctx context.Context, path, name string) (*music.Library, error) {
	slog.Debug("CreateLibrary service called", "path", path, "name", name)
	start := time.Now()
	lib, err := s.catalog.CreateLibrary(ctx, path, name)
	s.recorder.Observe("CreateLibrary", start, err)
	if err != nil {
		slog.Error("CreateLibrary failed", "path", path, "error", err)
		return nil, err
	}
	slog.Info("Library created", "id", lib.ID, "path", lib.Path, "name", lib.DisplayName())
	return lib, nil
}

// EnsureLibraries registers every configured root that is not cataloged yet
// and returns the libraries of all configured roots.
func (s *Service) EnsureLibraries(ctx context.Context, roots []config.LibraryConfig) ([]*music.Library, error) {
	libs := make([]*music.Library, 0, len(roots))
	for _, root := range roots {
		lib, err := s.catalog.GetLibraryByPath(ctx, root.Path)
		if errors.Is(err, music.ErrNotFound) {
			lib, err = s.CreateLibrary(ctx, root.Path, root.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("ensure library %s: %w", root.Path, err)
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// DeleteLibrary deletes a library using the configured delete policy.
func (s *Service) DeleteLibrary(ctx context.Context, id int64) error {
	policy := music.ReassignTracks
	if s.configManager != nil {
		policy = s.configManager.DeletePolicy()
	}
	return s.DeleteLibraryWithPolicy(ctx, id, policy)
}

// DeleteLibraryWithPolicy deletes a library with an explicit policy for its tracks.
func (s *Service) DeleteLibraryWithPolicy(ctx context.Context, id int64, policy music.DeletePolicy) error {
	slog.Debug("DeleteLibrary service called", "id", id, "policy", policy)
	start := time.Now()
	err := s.catalog.DeleteLibrary(ctx, id, policy)
	s.recorder.Observe("DeleteLibrary", start, err)
	if err != nil {
		slog.Error("DeleteLibrary failed", "id", id, "policy", policy, "error", err)
		return err
	}
	slog.Info("Library deleted", "id", id, "policy", policy)
	return nil
}

// GetLibrary returns a library by id.
func (s *Service) GetLibrary(ctx context.Context, id int64) (*music.Library, error) {
	lib, err := s.catalog.GetLibrary(ctx, id)
	if err != nil {
		slog.Error("GetLibrary failed", "id", id, "error", err)
		return nil, err
	}
	return lib, nil
}

// GetLibraryByPath returns the library registered for path.
func (s *Service) GetLibraryByPath(ctx context.Context, path string) (*music.Library, error) {
	return s.catalog.GetLibraryByPath(ctx, path)
}

// GetLibraryByName returns the library with the given name.
func (s *Service) GetLibraryByName(ctx context.Context, name string) (*music.Library, error) {
	return s.catalog.GetLibraryByName(ctx, name)
}

// SentinelLibrary returns the library that owns individually added tracks.
func (s *Service) SentinelLibrary(ctx context.Context) (*music.Library, error) {
	return s.catalog.GetLibraryByPath(ctx, music.SentinelLibraryPath)
}

// ListLibraries returns every library.
func (s *Service) ListLibraries(ctx context.Context) ([]*music.Library, error) {
	slog.Debug("ListLibraries service called")
	libs, err := s.catalog.ListLibraries(ctx)
	if err != nil {
		slog.Error("ListLibraries failed", "error", err)
		return nil, err
	}
	slog.Debug("ListLibraries completed", "count", len(libs))
	return libs, nil
}

// ClearLibrary deletes every track of a library before a full re-scan.
func (s *Service) ClearLibrary(ctx context.Context, id int64) (int, error) {
	slog.Debug("ClearLibrary service called", "id", id)
	start := time.Now()
	n, err := s.catalog.ClearLibrary(ctx, id)
	s.recorder.Observe("ClearLibrary", start, err)
	if err != nil {
		slog.Error("ClearLibrary failed", "id", id, "error", err)
		return 0, err
	}
	slog.Info("Library cleared", "id", id, "tracks", n)
	return n, nil
}

// PruneLibrary removes the tracks of a library that a scan did not find.
func (s *Service) PruneLibrary(ctx context.Context, id int64, present []string) ([]string, error) {
	slog.Debug("PruneLibrary service called", "id", id, "present", len(present))
	start := time.Now()
	removed, err := s.catalog.PruneLibrary(ctx, id, present)
	s.recorder.Observe("PruneLibrary", start, err)
	if err != nil {
		slog.Error("PruneLibrary failed", "id", id, "error", err)
		return nil, err
	}
	if len(removed) > 0 {
		slog.Info("Removed missing tracks", "libraryID", id, "count", len(removed))
	}
	return removed, nil
}

// checkRating applies the configured rating bounds.
func (s *Service) checkRating(op string, rating *int) error {
	if rating == nil || s.configManager == nil {
		return nil
	}
	bounds := s.configManager.Get().Rating
	if *rating < bounds.Min || *rating > bounds.Max {
		return music.Validation(op, "track", "rating %d out of range [%d, %d]", *rating, bounds.Min, bounds.Max)
	}
	return nil
}

// UpsertTrack inserts or re-scans a track after applying the rating policy.
func (s *Service) UpsertTrack(ctx context.Context, in music.TrackInput) (*music.Track, error) {
	slog.Debug("UpsertTrack service called", "path", in.Path, "libraryID", in.LibraryID)
	start := time.Now()
	if err := s.checkRating("UpsertTrack", in.Metadata.Rating); err != nil {
		s.recorder.Observe("UpsertTrack", start, err)
		slog.Error("UpsertTrack rejected", "path", in.Path, "error", err)
		return nil, err
	}
	track, err := s.catalog.UpsertTrack(ctx, in)
	s.recorder.Observe("UpsertTrack", start, err)
	if err != nil {
		slog.Error("UpsertTrack failed", "path", in.Path, "error", err)
		return nil, err
	}
	slog.Debug("UpsertTrack completed", "id", track.ID, "path", track.Path)
	return track, nil
}

// AddIndividualTrack catalogs a track that does not belong to any library.
func (s *Service) AddIndividualTrack(ctx context.Context, in music.TrackInput) (*music.Track, error) {
	sentinel, err := s.SentinelLibrary(ctx)
	if err != nil {
		slog.Error("Sentinel library lookup failed", "error", err)
		return nil, err
	}
	in.LibraryID = sentinel.ID
	return s.UpsertTrack(ctx, in)
}

// SetRating changes the rating of a track, keeping everything else.
func (s *Service) SetRating(ctx context.Context, trackID int64, rating int) (*music.Track, error) {
	slog.Debug("SetRating service called", "id", trackID, "rating", rating)
	t, err := s.catalog.GetTrack(ctx, trackID)
	if err != nil {
		slog.Error("SetRating failed", "id", trackID, "error", err)
		return nil, err
	}
	m := t.Metadata
	m.Rating = &rating
	return s.UpsertTrack(ctx, music.TrackInput{
		Path:       t.Path,
		LibraryID:  t.LibraryID,
		Metadata:   m,
		Length:     t.Length,
		Bitrate:    t.Bitrate,
		SampleRate: t.SampleRate,
	})
}

// GetTrack returns a track by id.
func (s *Service) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	t, err := s.catalog.GetTrack(ctx, id)
	if err != nil {
		slog.Error("GetTrack failed", "id", id, "error", err)
		return nil, err
	}
	return t, nil
}

// GetTrackByPath returns the track cataloged at path.
func (s *Service) GetTrackByPath(ctx context.Context, path string) (*music.Track, error) {
	return s.catalog.GetTrackByPath(ctx, path)
}

// DeleteTrack deletes a track and its playlist entries.
func (s *Service) DeleteTrack(ctx context.Context, id int64) error {
	slog.Debug("DeleteTrack service called", "id", id)
	start := time.Now()
	err := s.catalog.DeleteTrack(ctx, id)
	s.recorder.Observe("DeleteTrack", start, err)
	if err != nil {
		slog.Error("DeleteTrack failed", "id", id, "error", err)
		return err
	}
	slog.Debug("DeleteTrack completed", "id", id)
	return nil
}

// DeleteTrackByPath deletes the track cataloged at path.
func (s *Service) DeleteTrackByPath(ctx context.Context, path string) error {
	slog.Debug("DeleteTrackByPath service called", "path", path)
	start := time.Now()
	err := s.catalog.DeleteTrackByPath(ctx, path)
	s.recorder.Observe("DeleteTrackByPath", start, err)
	if err != nil {
		slog.Error("DeleteTrackByPath failed", "path", path, "error", err)
		return err
	}
	slog.Debug("DeleteTrackByPath completed", "path", path)
	return nil
}

// QueryTracks returns the tracks matching the filter.
func (s *Service) QueryTracks(ctx context.Context, f music.TrackFilter) ([]*music.Track, error) {
	slog.Debug("QueryTracks service called", "filter", f)
	start := time.Now()
	tracks, err := s.catalog.QueryTracks(ctx, f)
	s.recorder.Observe("QueryTracks", start, err)
	if err != nil {
		slog.Error("QueryTracks failed", "error", err)
		return nil, err
	}
	slog.Debug("QueryTracks completed", "count", len(tracks))
	return tracks, nil
}

// CountTracks counts the tracks matching the filter.
func (s *Service) CountTracks(ctx context.Context, f music.TrackFilter) (int, error) {
	n, err := s.catalog.CountTracks(ctx, f)
	if err != nil {
		slog.Error("CountTracks failed", "error", err)
		return 0, err
	}
	return n, nil
}

// Stats returns the size of the catalog.
func (s *Service) Stats(ctx context.Context) (music.Stats, error) {
	return s.catalog.Stats(ctx)
}

// HandleFileEvent keeps the catalog in line with the filesystem: a cataloged
// file that disappears is deleted with its playlist entries. New and
// modified files are left to the importer.
func (s *Service) HandleFileEvent(ctx context.Context, event watcher.FileEvent) error {
	switch event.EventType {
	case watcher.FileRemoved:
		err := s.DeleteTrackByPath(ctx, event.Path)
		if errors.Is(err, music.ErrNotFound) {
			slog.Debug("Removed file was not cataloged", "path", event.Path)
			return nil
		}
		return err
	default:
		slog.Debug("Ignoring file event", "path", event.Path, "type", event.EventType)
		return nil
	}
}

// Watch consumes watcher events until ctx is done or events is closed.
func (s *Service) Watch(ctx context.Context, events <-chan watcher.FileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.HandleFileEvent(ctx, ev); err != nil {
				slog.Error("Failed to apply file event", "path", ev.Path, "type", ev.EventType, "error", err)
			}
		}
	}
}

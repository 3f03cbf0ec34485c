package playlists

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/contre95/muscat/src/features/metrics"
	"github.com/contre95/muscat/src/infra"
	"github.com/contre95/muscat/src/music"
)

// Service is the domain service for the playlists feature.
type Service struct {
	catalog  music.Catalog
	recorder *metrics.Recorder
}

// NewService creates a new playlists service. recorder may be nil.
func NewService(catalog music.Catalog, recorder *metrics.Recorder) *Service {
	return &Service{
		catalog:  catalog,
		recorder: recorder,
	}
}

// CreatePlaylist creates a new playlist.
func (s *Service) CreatePlaylist(ctx context.Context, name string) (*music.Playlist, error) {
	slog.Debug("CreatePlaylist service called", "name", name)
	start := time.Now()
	playlist, err := s.catalog.CreatePlaylist(ctx, name)
	s.recorder.Observe("CreatePlaylist", start, err)
	if err != nil {
		slog.Error("CreatePlaylist failed", "name", name, "error", err)
		return nil, err
	}
	slog.Debug("CreatePlaylist completed", "id", playlist.ID, "name", name)
	return playlist, nil
}

// GetPlaylist gets a playlist by ID.
func (s *Service) GetPlaylist(ctx context.Context, id int64) (*music.Playlist, error) {
	playlist, err := s.catalog.GetPlaylist(ctx, id)
	if err != nil {
		slog.Error("GetPlaylist failed", "id", id, "error", err)
		return nil, err
	}
	return playlist, nil
}

// GetPlaylistByName gets a playlist by name.
func (s *Service) GetPlaylistByName(ctx context.Context, name string) (*music.Playlist, error) {
	return s.catalog.GetPlaylistByName(ctx, name)
}

// GetAllPlaylists gets all playlists.
func (s *Service) GetAllPlaylists(ctx context.Context) ([]*music.Playlist, error) {
	slog.Debug("GetAllPlaylists service called")
	playlists, err := s.catalog.ListPlaylists(ctx)
	if err != nil {
		slog.Error("GetAllPlaylists failed", "error", err)
		return nil, err
	}
	slog.Debug("GetAllPlaylists completed", "count", len(playlists))
	return playlists, nil
}

// RenamePlaylist renames a playlist.
func (s *Service) RenamePlaylist(ctx context.Context, id int64, name string) error {
	slog.Debug("RenamePlaylist service called", "id", id, "name", name)
	start := time.Now()
	err := s.catalog.RenamePlaylist(ctx, id, name)
	s.recorder.Observe("RenamePlaylist", start, err)
	if err != nil {
		slog.Error("RenamePlaylist failed", "id", id, "name", name, "error", err)
		return err
	}
	slog.Debug("RenamePlaylist completed", "id", id)
	return nil
}

// DeletePlaylist deletes a playlist and its entries.
func (s *Service) DeletePlaylist(ctx context.Context, id int64) error {
	slog.Debug("DeletePlaylist service called", "id", id)
	start := time.Now()
	err := s.catalog.DeletePlaylist(ctx, id)
	s.recorder.Observe("DeletePlaylist", start, err)
	if err != nil {
		slog.Error("DeletePlaylist failed", "id", id, "error", err)
		return err
	}
	slog.Debug("DeletePlaylist completed", "id", id)
	return nil
}

// AddTrackToPlaylist adds a track at position, or at the end when position is nil.
func (s *Service) AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64, position *int) (*music.PlaylistEntry, error) {
	slog.Debug("AddTrackToPlaylist service called", "playlistID", playlistID, "trackID", trackID)
	start := time.Now()
	entry, err := s.catalog.AddTrackToPlaylist(ctx, playlistID, trackID, position)
	s.recorder.Observe("AddTrackToPlaylist", start, err)
	if err != nil {
		slog.Error("AddTrackToPlaylist failed", "playlistID", playlistID, "trackID", trackID, "error", err)
		return nil, err
	}
	slog.Info("AddTrackToPlaylist completed successfully", "playlistID", playlistID, "trackID", trackID, "position", entry.Position)
	return entry, nil
}

// RemoveEntry removes one entry of a playlist by entry id.
func (s *Service) RemoveEntry(ctx context.Context, playlistID, entryID int64) error {
	slog.Debug("RemoveEntry service called", "playlistID", playlistID, "entryID", entryID)
	start := time.Now()
	err := s.catalog.RemovePlaylistEntry(ctx, playlistID, entryID)
	s.recorder.Observe("RemovePlaylistEntry", start, err)
	if err != nil {
		slog.Error("RemoveEntry failed", "playlistID", playlistID, "entryID", entryID, "error", err)
		return err
	}
	return nil
}

// RemoveAt removes the entry at position.
func (s *Service) RemoveAt(ctx context.Context, playlistID int64, position int) error {
	slog.Debug("RemoveAt service called", "playlistID", playlistID, "position", position)
	start := time.Now()
	err := s.catalog.RemovePlaylistPosition(ctx, playlistID, position)
	s.recorder.Observe("RemovePlaylistPosition", start, err)
	if err != nil {
		slog.Error("RemoveAt failed", "playlistID", playlistID, "position", position, "error", err)
		return err
	}
	return nil
}

// MoveEntry moves the entry at from to position to.
func (s *Service) MoveEntry(ctx context.Context, playlistID int64, from, to int) error {
	slog.Debug("MoveEntry service called", "playlistID", playlistID, "from", from, "to", to)
	start := time.Now()
	err := s.catalog.MovePlaylistEntry(ctx, playlistID, from, to)
	s.recorder.Observe("MovePlaylistEntry", start, err)
	if err != nil {
		slog.Error("MoveEntry failed", "playlistID", playlistID, "from", from, "to", to, "error", err)
		return err
	}
	return nil
}

// GetPlaylistTracks gets the tracks of a playlist in order.
func (s *Service) GetPlaylistTracks(ctx context.Context, playlistID int64) ([]*music.Track, error) {
	slog.Debug("GetPlaylistTracks service called", "playlistID", playlistID)
	tracks, err := s.catalog.ListPlaylistTracks(ctx, playlistID)
	if err != nil {
		slog.Error("GetPlaylistTracks failed", "playlistID", playlistID, "error", err)
		return nil, err
	}
	slog.Debug("GetPlaylistTracks completed", "playlistID", playlistID, "count", len(tracks))
	return tracks, nil
}

// GetPlaylistEntries gets the entries of a playlist in order.
func (s *Service) GetPlaylistEntries(ctx context.Context, playlistID int64) ([]*music.PlaylistEntry, error) {
	entries, err := s.catalog.ListPlaylistEntries(ctx, playlistID)
	if err != nil {
		slog.Error("GetPlaylistEntries failed", "playlistID", playlistID, "error", err)
		return nil, err
	}
	return entries, nil
}

// GetPlaylistsContainingTrack gets all playlists that contain a specific track.
func (s *Service) GetPlaylistsContainingTrack(ctx context.Context, trackID int64) ([]*music.Playlist, error) {
	slog.Debug("GetPlaylistsContainingTrack service called", "trackID", trackID)

	allPlaylists, err := s.catalog.ListPlaylists(ctx)
	if err != nil {
		slog.Error("GetPlaylistsContainingTrack: failed to get all playlists", "error", err)
		return nil, err
	}

	var containing []*music.Playlist
	for _, playlist := range allPlaylists {
		entries, err := s.catalog.ListPlaylistEntries(ctx, playlist.ID)
		if err != nil {
			slog.Warn("GetPlaylistsContainingTrack: failed to get entries", "playlistID", playlist.ID, "error", err)
			continue
		}
		for _, e := range entries {
			if e.TrackID == trackID {
				containing = append(containing, playlist)
				break
			}
		}
	}

	slog.Debug("GetPlaylistsContainingTrack completed", "trackID", trackID, "count", len(containing))
	return containing, nil
}

// ImportResult reports what an M3U import did.
type ImportResult struct {
	Playlist *music.Playlist
	Added    int
	Skipped  []string // paths not present in the catalog
}

// ImportM3U creates a playlist from M3U content, appending every listed path
// that is cataloged. Unknown paths are skipped and reported.
func (s *Service) ImportM3U(ctx context.Context, name, content string) (*ImportResult, error) {
	slog.Debug("ImportM3U service called", "name", name)

	paths, err := infra.ParseM3U(content)
	if err != nil {
		slog.Error("ImportM3U: failed to parse content", "error", err)
		return nil, music.Validation("ImportM3U", "playlist", "%v", err)
	}

	playlist, err := s.CreatePlaylist(ctx, name)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Playlist: playlist}
	for _, path := range paths {
		track, err := s.catalog.GetTrackByPath(ctx, path)
		if errors.Is(err, music.ErrNotFound) {
			slog.Warn("ImportM3U: track not found in catalog", "path", path)
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("import %s: %w", path, err)
		}
		if _, err := s.catalog.AddTrackToPlaylist(ctx, playlist.ID, track.ID, nil); err != nil {
			if errors.Is(err, music.ErrConflict) {
				// already present in a playlist with unique entries
				res.Skipped = append(res.Skipped, path)
				continue
			}
			return res, fmt.Errorf("import %s: %w", path, err)
		}
		res.Added++
	}

	slog.Info("M3U import completed", "playlist", name, "totalPaths", len(paths), "addedTracks", res.Added, "skipped", len(res.Skipped))
	return res, nil
}

// ImportM3UFile imports the M3U file at filePath as a new playlist.
func (s *Service) ImportM3UFile(ctx context.Context, filePath, name string) (*ImportResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		slog.Error("ImportM3UFile: failed to read file", "filePath", filePath, "error", err)
		return nil, fmt.Errorf("failed to read M3U file: %w", err)
	}
	return s.ImportM3U(ctx, name, string(content))
}

// ExportM3U renders a playlist as extended M3U.
func (s *Service) ExportM3U(ctx context.Context, playlistID int64) (string, error) {
	slog.Debug("ExportM3U service called", "playlistID", playlistID)
	tracks, err := s.catalog.ListPlaylistTracks(ctx, playlistID)
	if err != nil {
		slog.Error("ExportM3U: failed to get playlist tracks", "playlistID", playlistID, "error", err)
		return "", err
	}
	slog.Debug("ExportM3U completed", "playlistID", playlistID, "tracksExported", len(tracks))
	return infra.GenerateM3U(tracks), nil
}

// ExportM3UFile writes a playlist as extended M3U to filePath.
func (s *Service) ExportM3UFile(ctx context.Context, playlistID int64, filePath string) error {
	content, err := s.ExportM3U(ctx, playlistID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		slog.Error("ExportM3UFile: failed to write file", "filePath", filePath, "error", err)
		return fmt.Errorf("failed to write M3U file: %w", err)
	}
	return nil
}

// ExportAll writes every playlist as <name>.m3u into dir and returns the
// written paths. Names that clash once made file-safe get the playlist id
// appended.
func (s *Service) ExportAll(ctx context.Context, dir string) ([]string, error) {
	playlists, err := s.GetAllPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	used := make(map[string]bool, len(playlists))
	written := make([]string, 0, len(playlists))
	for _, p := range playlists {
		base := fileName(p.Name)
		if used[strings.ToLower(base)] {
			base += "-" + strconv.FormatInt(p.ID, 10)
		}
		used[strings.ToLower(base)] = true

		path := filepath.Join(dir, base+".m3u")
		if err := s.ExportM3UFile(ctx, p.ID, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	slog.Info("Playlists exported", "dir", dir, "count", len(written))
	return written, nil
}

// fileName replaces characters that cannot appear in a file name.
func fileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "playlist"
	}
	return name
}

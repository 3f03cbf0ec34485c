package music

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Catalog is the persistent store of libraries, tracks and playlists.
// It's our primary repository interface; every adapter enforces the same
// uniqueness and referential rules and runs each operation atomically.
type Catalog interface {
	// Bootstrap creates the sentinel library and the catalog identity when
	// they are missing. Running it again changes nothing.
	Bootstrap(ctx context.Context) error
	CatalogID(ctx context.Context) (string, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error

	// Library methods
	CreateLibrary(ctx context.Context, path, name string) (*Library, error)
	DeleteLibrary(ctx context.Context, id int64, policy DeletePolicy) error
	GetLibrary(ctx context.Context, id int64) (*Library, error)
	GetLibraryByPath(ctx context.Context, path string) (*Library, error)
	GetLibraryByName(ctx context.Context, name string) (*Library, error)
	ListLibraries(ctx context.Context) ([]*Library, error)
	ClearLibrary(ctx context.Context, id int64) (int, error)
	PruneLibrary(ctx context.Context, id int64, present []string) ([]string, error)

	// Track methods
	UpsertTrack(ctx context.Context, in TrackInput) (*Track, error)
	GetTrack(ctx context.Context, id int64) (*Track, error)
	GetTrackByPath(ctx context.Context, path string) (*Track, error)
	DeleteTrack(ctx context.Context, id int64) error
	DeleteTrackByPath(ctx context.Context, path string) error
	QueryTracks(ctx context.Context, filter TrackFilter) ([]*Track, error)
	CountTracks(ctx context.Context, filter TrackFilter) (int, error)

	// Playlist methods
	CreatePlaylist(ctx context.Context, name string) (*Playlist, error)
	GetPlaylist(ctx context.Context, id int64) (*Playlist, error)
	GetPlaylistByName(ctx context.Context, name string) (*Playlist, error)
	ListPlaylists(ctx context.Context) ([]*Playlist, error)
	RenamePlaylist(ctx context.Context, id int64, name string) error
	DeletePlaylist(ctx context.Context, id int64) error
	AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64, position *int) (*PlaylistEntry, error)
	RemovePlaylistEntry(ctx context.Context, playlistID, entryID int64) error
	RemovePlaylistPosition(ctx context.Context, playlistID int64, position int) error
	MovePlaylistEntry(ctx context.Context, playlistID int64, from, to int) error
	ListPlaylistEntries(ctx context.Context, playlistID int64) ([]*PlaylistEntry, error)
	ListPlaylistTracks(ctx context.Context, playlistID int64) ([]*Track, error)
}

// Options holds the store policies that must be enforced atomically.
type Options struct {
	// UniquePlaylistEntries rejects adding a track that is already in the
	// playlist. By default playlists may repeat tracks.
	UniquePlaylistEntries bool
}

// Stats summarises the size of a catalog.
type Stats struct {
	Libraries       int
	Tracks          int
	Playlists       int
	PlaylistEntries int
	TotalLength     int64 // seconds
}

// Summary renders the stats for log lines.
func (s Stats) Summary() string {
	return fmt.Sprintf("%s tracks in %s libraries, %s playlists (%s entries), %s hours",
		humanize.Comma(int64(s.Tracks)),
		humanize.Comma(int64(s.Libraries)),
		humanize.Comma(int64(s.Playlists)),
		humanize.Comma(int64(s.PlaylistEntries)),
		humanize.CommafWithDigits(float64(s.TotalLength)/3600, 1),
	)
}

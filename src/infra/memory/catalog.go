package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/contre95/muscat/src/music"
	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

// Catalog is a thread-safe in-memory implementation of music.Catalog.
//
// Rows live in B-trees keyed by id, so listings come out in id order. Paths
// and names have their own unique indexes, and tracks are additionally
// indexed by (artist, album) and genre the way the SQL schema indexes them.
// Every operation holds the lock for its whole duration, which makes each
// one atomic.
type Catalog struct {
	mu   sync.RWMutex
	opts music.Options

	catalogID string

	libraries    *btree.Map[int64, music.Library]
	libraryPaths *btree.Map[string, int64]
	libraryNames map[string]int64

	tracks     *btree.Map[int64, music.Track]
	trackPaths *btree.Map[string, int64]
	byArtist   *btree.BTreeG[indexKey]
	byGenre    *btree.BTreeG[indexKey]

	playlists     *btree.Map[int64, music.Playlist]
	playlistNames map[string]int64
	// entries holds the ordered entry list of every playlist; the slice
	// index is the position.
	entries map[int64][]music.PlaylistEntry

	nextLibraryID  int64
	nextTrackID    int64
	nextPlaylistID int64
	nextEntryID    int64
}

var _ music.Catalog = (*Catalog)(nil)

// indexKey orders tracks by one or two text columns, then id.
type indexKey struct {
	primary   string
	secondary string
	id        int64
}

func lessIndexKey(a, b indexKey) bool {
	if a.primary != b.primary {
		return a.primary < b.primary
	}
	if a.secondary != b.secondary {
		return a.secondary < b.secondary
	}
	return a.id < b.id
}

// NewCatalog creates an empty catalog and bootstraps it.
func NewCatalog(opts music.Options) *Catalog {
	c := &Catalog{
		opts:          opts,
		libraries:     btree.NewMap[int64, music.Library](0),
		libraryPaths:  btree.NewMap[string, int64](0),
		libraryNames:  make(map[string]int64),
		tracks:        btree.NewMap[int64, music.Track](0),
		trackPaths:    btree.NewMap[string, int64](0),
		byArtist:      btree.NewBTreeG(lessIndexKey),
		byGenre:       btree.NewBTreeG(lessIndexKey),
		playlists:     btree.NewMap[int64, music.Playlist](0),
		playlistNames: make(map[string]int64),
		entries:       make(map[int64][]music.PlaylistEntry),
	}
	// Bootstrap cannot fail on an empty catalog.
	_ = c.Bootstrap(context.Background())
	return c
}

// Bootstrap creates the sentinel library and the catalog id if missing.
func (c *Catalog) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.libraryPaths.Get(music.SentinelLibraryPath); !ok {
		c.nextLibraryID++
		lib := music.Library{ID: c.nextLibraryID, Path: music.SentinelLibraryPath}
		c.libraries.Set(lib.ID, lib)
		c.libraryPaths.Set(lib.Path, lib.ID)
		slog.Info("Created sentinel library", "id", lib.ID)
	}
	if c.catalogID == "" {
		c.catalogID = uuid.New().String()
		slog.Info("Initialized catalog identity")
	}
	return nil
}

// CatalogID returns the identity generated when the catalog was created.
func (c *Catalog) CatalogID(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalogID, nil
}

// Stats counts the rows of every collection.
func (c *Catalog) Stats(ctx context.Context) (music.Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := music.Stats{
		Libraries: c.libraries.Len(),
		Tracks:    c.tracks.Len(),
		Playlists: c.playlists.Len(),
	}
	for _, list := range c.entries {
		s.PlaylistEntries += len(list)
	}
	c.tracks.Scan(func(_ int64, t music.Track) bool {
		s.TotalLength += int64(t.Length)
		return true
	})
	return s, nil
}

// Close drops every row.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.libraries.Clear()
	c.libraryPaths.Clear()
	c.tracks.Clear()
	c.trackPaths.Clear()
	c.byArtist.Clear()
	c.byGenre.Clear()
	c.playlists.Clear()
	clear(c.libraryNames)
	clear(c.playlistNames)
	clear(c.entries)
	return nil
}

// nocase folds ASCII letters like SQLite's NOCASE collation.
func nocase(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

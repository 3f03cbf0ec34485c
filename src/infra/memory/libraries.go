package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/contre95/muscat/src/music"
)

// CreateLibrary registers a new import root.
func (c *Catalog) CreateLibrary(ctx context.Context, path, name string) (*music.Library, error) {
	lib := music.Library{Path: path, Name: name}
	if err := lib.Validate(); err != nil {
		return nil, music.Validation("CreateLibrary", "library", "%v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.libraryPaths.Get(path); ok {
		return nil, music.Conflict("CreateLibrary", "library", path)
	}
	if name != "" {
		if _, ok := c.libraryNames[name]; ok {
			return nil, music.Conflict("CreateLibrary", "library", name)
		}
	}

	c.nextLibraryID++
	lib.ID = c.nextLibraryID
	c.libraries.Set(lib.ID, lib)
	c.libraryPaths.Set(path, lib.ID)
	if name != "" {
		c.libraryNames[name] = lib.ID
	}
	return &lib, nil
}

// DeleteLibrary deletes a library after reassigning or deleting its tracks.
func (c *Catalog) DeleteLibrary(ctx context.Context, id int64, policy music.DeletePolicy) error {
	if policy != music.ReassignTracks && policy != music.DeleteTracks {
		return music.Validation("DeleteLibrary", "library", "unknown delete policy %q", policy)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lib, ok := c.libraries.Get(id)
	if !ok {
		return music.NotFound("DeleteLibrary", "library", music.IDKey(id))
	}
	if lib.IsSentinel() {
		return music.Protected("DeleteLibrary", "library", lib.Path)
	}

	ids := c.libraryTrackIDs(id)
	switch policy {
	case music.ReassignTracks:
		sentinelID, ok := c.libraryPaths.Get(music.SentinelLibraryPath)
		if !ok {
			return music.Integrity("DeleteLibrary", "library", fmt.Errorf("sentinel library missing"))
		}
		for _, tid := range ids {
			t, _ := c.tracks.Get(tid)
			t.LibraryID = sentinelID
			c.tracks.Set(tid, t)
		}
		slog.Debug("Reassigned tracks to sentinel library", "libraryID", id, "count", len(ids))
	case music.DeleteTracks:
		c.deleteTracks(ids)
		slog.Debug("Deleted library tracks", "libraryID", id, "count", len(ids))
	}

	c.libraries.Delete(id)
	c.libraryPaths.Delete(lib.Path)
	if lib.Name != "" {
		delete(c.libraryNames, lib.Name)
	}
	return nil
}

// GetLibrary returns a library by id.
func (c *Catalog) GetLibrary(ctx context.Context, id int64) (*music.Library, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lib, ok := c.libraries.Get(id)
	if !ok {
		return nil, music.NotFound("GetLibrary", "library", music.IDKey(id))
	}
	return &lib, nil
}

// GetLibraryByPath returns the library registered for path.
func (c *Catalog) GetLibraryByPath(ctx context.Context, path string) (*music.Library, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.libraryPaths.Get(path)
	if !ok {
		return nil, music.NotFound("GetLibraryByPath", "library", path)
	}
	lib, _ := c.libraries.Get(id)
	return &lib, nil
}

// GetLibraryByName returns the library with the given name.
func (c *Catalog) GetLibraryByName(ctx context.Context, name string) (*music.Library, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.libraryNames[name]
	if !ok || name == "" {
		return nil, music.NotFound("GetLibraryByName", "library", name)
	}
	lib, _ := c.libraries.Get(id)
	return &lib, nil
}

// ListLibraries returns every library, sentinel first.
func (c *Catalog) ListLibraries(ctx context.Context) ([]*music.Library, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	libs := make([]*music.Library, 0, c.libraries.Len())
	c.libraries.Scan(func(_ int64, lib music.Library) bool {
		libs = append(libs, &lib)
		return true
	})
	return libs, nil
}

// ClearLibrary deletes every track of the library and keeps the library.
func (c *Catalog) ClearLibrary(ctx context.Context, id int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.libraries.Get(id); !ok {
		return 0, music.NotFound("ClearLibrary", "library", music.IDKey(id))
	}
	ids := c.libraryTrackIDs(id)
	c.deleteTracks(ids)
	return len(ids), nil
}

// PruneLibrary deletes the tracks of the library whose path is not in
// present and returns the removed paths.
func (c *Catalog) PruneLibrary(ctx context.Context, id int64, present []string) ([]string, error) {
	keep := make(map[string]struct{}, len(present))
	for _, p := range present {
		keep[p] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.libraries.Get(id); !ok {
		return nil, music.NotFound("PruneLibrary", "library", music.IDKey(id))
	}

	var ids []int64
	var removed []string
	for _, tid := range c.libraryTrackIDs(id) {
		t, _ := c.tracks.Get(tid)
		if _, ok := keep[t.Path]; !ok {
			ids = append(ids, tid)
			removed = append(removed, t.Path)
		}
	}
	c.deleteTracks(ids)
	sort.Strings(removed)
	return removed, nil
}

func (c *Catalog) libraryTrackIDs(libraryID int64) []int64 {
	var ids []int64
	c.tracks.Scan(func(id int64, t music.Track) bool {
		if t.LibraryID == libraryID {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

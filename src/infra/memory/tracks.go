package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/contre95/muscat/src/music"
)

// UpsertTrack inserts a track or, when its path is already cataloged,
// updates it in place. A nil rating keeps the stored one.
func (c *Catalog) UpsertTrack(ctx context.Context, in music.TrackInput) (*music.Track, error) {
	if err := in.Validate(); err != nil {
		return nil, music.Validation("UpsertTrack", "track", "%v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.libraries.Get(in.LibraryID); !ok {
		return nil, music.Validation("UpsertTrack", "track", "library %d does not exist", in.LibraryID)
	}

	t := *in.Track()
	if id, ok := c.trackPaths.Get(in.Path); ok {
		old, _ := c.tracks.Get(id)
		c.unindex(old)
		t.ID = id
		if t.Metadata.Rating == nil {
			t.Metadata.Rating = old.Metadata.Rating
		}
	} else {
		c.nextTrackID++
		t.ID = c.nextTrackID
	}
	t = cloneTrack(t)
	c.tracks.Set(t.ID, t)
	c.trackPaths.Set(t.Path, t.ID)
	c.index(t)

	out := cloneTrack(t)
	return &out, nil
}

// GetTrack returns a track by id.
func (c *Catalog) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tracks.Get(id)
	if !ok {
		return nil, music.NotFound("GetTrack", "track", music.IDKey(id))
	}
	t = cloneTrack(t)
	return &t, nil
}

// GetTrackByPath returns the track cataloged at path.
func (c *Catalog) GetTrackByPath(ctx context.Context, path string) (*music.Track, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.trackPaths.Get(path)
	if !ok {
		return nil, music.NotFound("GetTrackByPath", "track", path)
	}
	t, _ := c.tracks.Get(id)
	t = cloneTrack(t)
	return &t, nil
}

// DeleteTrack deletes a track and every playlist entry referencing it.
func (c *Catalog) DeleteTrack(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tracks.Get(id); !ok {
		return music.NotFound("DeleteTrack", "track", music.IDKey(id))
	}
	c.deleteTracks([]int64{id})
	return nil
}

// DeleteTrackByPath deletes the track cataloged at path.
func (c *Catalog) DeleteTrackByPath(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.trackPaths.Get(path)
	if !ok {
		return music.NotFound("DeleteTrackByPath", "track", path)
	}
	c.deleteTracks([]int64{id})
	return nil
}

// deleteTracks removes the tracks and their playlist entries. The caller
// holds the write lock.
func (c *Catalog) deleteTracks(ids []int64) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		t, ok := c.tracks.Get(id)
		if !ok {
			continue
		}
		gone[id] = struct{}{}
		c.unindex(t)
		c.tracks.Delete(id)
		c.trackPaths.Delete(t.Path)
	}
	for pid, list := range c.entries {
		kept := slices.DeleteFunc(list, func(e music.PlaylistEntry) bool {
			_, ok := gone[e.TrackID]
			return ok
		})
		renumber(kept)
		c.entries[pid] = kept
	}
}

func (c *Catalog) index(t music.Track) {
	c.byArtist.Set(indexKey{t.Metadata.Artist, t.Metadata.Album, t.ID})
	c.byGenre.Set(indexKey{primary: t.Metadata.Genre, id: t.ID})
}

func (c *Catalog) unindex(t music.Track) {
	c.byArtist.Delete(indexKey{t.Metadata.Artist, t.Metadata.Album, t.ID})
	c.byGenre.Delete(indexKey{primary: t.Metadata.Genre, id: t.ID})
}

// candidates returns the ids of tracks that may match f, using the artist
// or genre index when the filter allows it.
func (c *Catalog) candidates(f music.TrackFilter) []int64 {
	var ids []int64
	switch {
	case f.Artist != "":
		pivot := indexKey{primary: f.Artist, secondary: f.Album}
		c.byArtist.Ascend(pivot, func(k indexKey) bool {
			if k.primary != f.Artist || (f.Album != "" && k.secondary != f.Album) {
				return false
			}
			ids = append(ids, k.id)
			return true
		})
	case f.Genre != "":
		c.byGenre.Ascend(indexKey{primary: f.Genre}, func(k indexKey) bool {
			if k.primary != f.Genre {
				return false
			}
			ids = append(ids, k.id)
			return true
		})
	default:
		ids = make([]int64, 0, c.tracks.Len())
		c.tracks.Scan(func(id int64, _ music.Track) bool {
			ids = append(ids, id)
			return true
		})
	}
	return ids
}

func (c *Catalog) match(f music.TrackFilter) []music.Track {
	var out []music.Track
	for _, id := range c.candidates(f) {
		t, _ := c.tracks.Get(id)
		if f.Matches(&t) {
			out = append(out, t)
		}
	}
	return out
}

// QueryTracks returns the tracks matching the filter.
func (c *Catalog) QueryTracks(ctx context.Context, f music.TrackFilter) ([]*music.Track, error) {
	if err := f.Validate(); err != nil {
		return nil, music.Validation("QueryTracks", "track", "%v", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := c.match(f)
	sortTracks(matched, f.SortBy, f.Desc)

	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}

	tracks := make([]*music.Track, len(matched))
	for i := range matched {
		t := cloneTrack(matched[i])
		tracks[i] = &t
	}
	return tracks, nil
}

// CountTracks counts the tracks matching the filter, ignoring paging.
func (c *Catalog) CountTracks(ctx context.Context, f music.TrackFilter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, music.Validation("CountTracks", "track", "%v", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.match(f)), nil
}

type trackCmp func(a, b *music.Track) int

func byText(get func(*music.Track) string) trackCmp {
	return func(a, b *music.Track) int { return compareText(get(a), get(b)) }
}

func byInt(get func(*music.Track) int) trackCmp {
	return func(a, b *music.Track) int { return cmp.Compare(get(a), get(b)) }
}

var (
	artistCmp = byText(func(t *music.Track) string { return t.Metadata.Artist })
	albumCmp  = byText(func(t *music.Track) string { return t.Metadata.Album })
	titleCmp  = byText(func(t *music.Track) string { return t.Metadata.Title })
	genreCmp  = byText(func(t *music.Track) string { return t.Metadata.Genre })
	numberCmp = byInt(func(t *music.Track) int { return t.Metadata.TrackNumber })
	yearCmp   = byInt(func(t *music.Track) int { return t.Metadata.Year })
	pathCmp   = trackCmp(func(a, b *music.Track) int { return cmp.Compare(a.Path, b.Path) })
)

// sortOrders mirrors the ORDER BY clauses of the SQL adapter.
var sortOrders = map[music.SortField][]trackCmp{
	music.SortByArtist: {artistCmp, albumCmp, numberCmp, titleCmp},
	music.SortByAlbum:  {albumCmp, artistCmp, numberCmp, titleCmp},
	music.SortByGenre:  {genreCmp, artistCmp, albumCmp, numberCmp},
	music.SortByTitle:  {titleCmp},
	music.SortByYear:   {yearCmp, artistCmp, albumCmp, numberCmp},
	music.SortByPath:   {pathCmp},
}

func sortTracks(tracks []music.Track, field music.SortField, desc bool) {
	if field == "" {
		field = music.SortByArtist
	}
	order := sortOrders[field]
	slices.SortFunc(tracks, func(a, b music.Track) int {
		r := 0
		for _, f := range order {
			if r = f(&a, &b); r != 0 {
				break
			}
		}
		if r == 0 {
			r = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -r
		}
		return r
	})
}

func cloneTrack(t music.Track) music.Track {
	if t.Metadata.Rating != nil {
		r := *t.Metadata.Rating
		t.Metadata.Rating = &r
	}
	return t
}

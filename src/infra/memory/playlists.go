package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/contre95/muscat/src/music"
)

// CreatePlaylist creates an empty playlist.
func (c *Catalog) CreatePlaylist(ctx context.Context, name string) (*music.Playlist, error) {
	p := music.Playlist{Name: name}
	if err := p.Validate(); err != nil {
		return nil, music.Validation("CreatePlaylist", "playlist", "%v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.playlistNames[name]; ok {
		return nil, music.Conflict("CreatePlaylist", "playlist", name)
	}
	c.nextPlaylistID++
	p.ID = c.nextPlaylistID
	c.playlists.Set(p.ID, p)
	c.playlistNames[name] = p.ID
	return &p, nil
}

// GetPlaylist returns a playlist by id.
func (c *Catalog) GetPlaylist(ctx context.Context, id int64) (*music.Playlist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.playlists.Get(id)
	if !ok {
		return nil, music.NotFound("GetPlaylist", "playlist", music.IDKey(id))
	}
	return &p, nil
}

// GetPlaylistByName returns the playlist with the given name.
func (c *Catalog) GetPlaylistByName(ctx context.Context, name string) (*music.Playlist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.playlistNames[name]
	if !ok {
		return nil, music.NotFound("GetPlaylistByName", "playlist", name)
	}
	p, _ := c.playlists.Get(id)
	return &p, nil
}

// ListPlaylists returns every playlist ordered by name.
func (c *Catalog) ListPlaylists(ctx context.Context) ([]*music.Playlist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	playlists := make([]*music.Playlist, 0, c.playlists.Len())
	c.playlists.Scan(func(_ int64, p music.Playlist) bool {
		playlists = append(playlists, &p)
		return true
	})
	slices.SortStableFunc(playlists, func(a, b *music.Playlist) int {
		if r := compareText(a.Name, b.Name); r != 0 {
			return r
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return playlists, nil
}

// RenamePlaylist changes the name of a playlist. Renaming to the current
// name is a no-op.
func (c *Catalog) RenamePlaylist(ctx context.Context, id int64, name string) error {
	if err := (&music.Playlist{Name: name}).Validate(); err != nil {
		return music.Validation("RenamePlaylist", "playlist", "%v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.playlists.Get(id)
	if !ok {
		return music.NotFound("RenamePlaylist", "playlist", music.IDKey(id))
	}
	if p.Name == name {
		return nil
	}
	if _, taken := c.playlistNames[name]; taken {
		return music.Conflict("RenamePlaylist", "playlist", name)
	}
	delete(c.playlistNames, p.Name)
	p.Name = name
	c.playlists.Set(id, p)
	c.playlistNames[name] = id
	return nil
}

// DeletePlaylist deletes a playlist with all of its entries.
func (c *Catalog) DeletePlaylist(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.playlists.Get(id)
	if !ok {
		return music.NotFound("DeletePlaylist", "playlist", music.IDKey(id))
	}
	delete(c.entries, id)
	delete(c.playlistNames, p.Name)
	c.playlists.Delete(id)
	return nil
}

// AddTrackToPlaylist inserts the track at position, shifting the entries at
// and after it by one. A nil position appends.
func (c *Catalog) AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64, position *int) (*music.PlaylistEntry, error) {
	const op = "AddTrackToPlaylist"

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.playlists.Get(playlistID); !ok {
		return nil, music.NotFound(op, "playlist", music.IDKey(playlistID))
	}
	if _, ok := c.tracks.Get(trackID); !ok {
		return nil, music.NotFound(op, "track", music.IDKey(trackID))
	}
	list := c.entries[playlistID]
	if c.opts.UniquePlaylistEntries && slices.ContainsFunc(list, func(e music.PlaylistEntry) bool { return e.TrackID == trackID }) {
		return nil, music.Conflict(op, "playlist entry", music.IDKey(trackID))
	}
	pos, err := music.CheckInsertPosition(position, len(list))
	if err != nil {
		return nil, music.Validation(op, "playlist entry", "%v", err)
	}

	c.nextEntryID++
	e := music.PlaylistEntry{ID: c.nextEntryID, PlaylistID: playlistID, TrackID: trackID, Position: pos}
	list = slices.Insert(list, pos, e)
	renumber(list)
	c.entries[playlistID] = list
	return &e, nil
}

// RemovePlaylistEntry removes one entry by id and closes the gap.
func (c *Catalog) RemovePlaylistEntry(ctx context.Context, playlistID, entryID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.playlistEntries("RemovePlaylistEntry", playlistID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(list, func(e music.PlaylistEntry) bool { return e.ID == entryID })
	if i < 0 {
		return music.NotFound("RemovePlaylistEntry", "playlist entry", music.IDKey(entryID))
	}
	c.removeAt(playlistID, i)
	return nil
}

// RemovePlaylistPosition removes the entry at position and closes the gap.
func (c *Catalog) RemovePlaylistPosition(ctx context.Context, playlistID int64, position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.playlistEntries("RemovePlaylistPosition", playlistID)
	if err != nil {
		return err
	}
	if position < 0 || position >= len(list) {
		return music.NotFound("RemovePlaylistPosition", "playlist entry", fmt.Sprintf("position %d", position))
	}
	c.removeAt(playlistID, position)
	return nil
}

func (c *Catalog) removeAt(playlistID int64, i int) {
	list := slices.Delete(c.entries[playlistID], i, i+1)
	renumber(list)
	c.entries[playlistID] = list
}

// MovePlaylistEntry moves the entry at from to position to. The entries in
// between slide by one to keep positions contiguous.
func (c *Catalog) MovePlaylistEntry(ctx context.Context, playlistID int64, from, to int) error {
	const op = "MovePlaylistEntry"

	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.playlistEntries(op, playlistID)
	if err != nil {
		return err
	}
	if err := music.CheckMove(from, to, len(list)); err != nil {
		return music.Validation(op, "playlist entry", "%v", err)
	}
	if from == to {
		return nil
	}
	moved := list[from]
	list = slices.Delete(list, from, from+1)
	list = slices.Insert(list, to, moved)
	renumber(list)
	c.entries[playlistID] = list
	return nil
}

// ListPlaylistEntries returns the entries of a playlist in order.
func (c *Catalog) ListPlaylistEntries(ctx context.Context, playlistID int64) ([]*music.PlaylistEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, err := c.playlistEntries("ListPlaylistEntries", playlistID)
	if err != nil {
		return nil, err
	}
	out := make([]*music.PlaylistEntry, len(list))
	for i := range list {
		e := list[i]
		out[i] = &e
	}
	return out, nil
}

// ListPlaylistTracks returns the tracks of a playlist in playlist order. A
// track appears once per entry.
func (c *Catalog) ListPlaylistTracks(ctx context.Context, playlistID int64) ([]*music.Track, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, err := c.playlistEntries("ListPlaylistTracks", playlistID)
	if err != nil {
		return nil, err
	}
	tracks := make([]*music.Track, 0, len(list))
	for _, e := range list {
		t, ok := c.tracks.Get(e.TrackID)
		if !ok {
			return nil, music.Integrity("ListPlaylistTracks", "playlist entry",
				fmt.Errorf("entry %d references missing track %d", e.ID, e.TrackID))
		}
		t = cloneTrack(t)
		tracks = append(tracks, &t)
	}
	return tracks, nil
}

func (c *Catalog) playlistEntries(op string, playlistID int64) ([]music.PlaylistEntry, error) {
	if _, ok := c.playlists.Get(playlistID); !ok {
		return nil, music.NotFound(op, "playlist", music.IDKey(playlistID))
	}
	return c.entries[playlistID], nil
}

// renumber rewrites positions to match slice order.
func renumber(list []music.PlaylistEntry) {
	for i := range list {
		list[i].Position = i
	}
}

func compareText(a, b string) int {
	return cmp.Compare(nocase(a), nocase(b))
}

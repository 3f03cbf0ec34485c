package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/contre95/muscat/src/music"
)

// CreatePlaylist creates an empty playlist.
func (d *SqliteCatalog) CreatePlaylist(ctx context.Context, name string) (*music.Playlist, error) {
	p := &music.Playlist{Name: name}
	if err := p.Validate(); err != nil {
		return nil, music.Validation("CreatePlaylist", "playlist", "%v", err)
	}

	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if exists, err := rowExists(ctx, tx, `SELECT 1 FROM playlist WHERE name = ?`, name); err != nil {
			return err
		} else if exists {
			return music.Conflict("CreatePlaylist", "playlist", name)
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO playlist (name) VALUES (?)`, name)
		if err != nil {
			return err
		}
		p.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, mapError("CreatePlaylist", "playlist", err)
	}
	return p, nil
}

// GetPlaylist returns a playlist by id.
func (d *SqliteCatalog) GetPlaylist(ctx context.Context, id int64) (*music.Playlist, error) {
	return getPlaylist(ctx, d.db, "GetPlaylist", `WHERE id = ?`, music.IDKey(id), id)
}

// GetPlaylistByName returns the playlist with the given name.
func (d *SqliteCatalog) GetPlaylistByName(ctx context.Context, name string) (*music.Playlist, error) {
	return getPlaylist(ctx, d.db, "GetPlaylistByName", `WHERE name = ?`, name, name)
}

func getPlaylist(ctx context.Context, q querier, op, where, key string, args ...any) (*music.Playlist, error) {
	var p music.Playlist
	err := q.QueryRowContext(ctx, `SELECT id, name FROM playlist `+where, args...).Scan(&p.ID, &p.Name)
	if isNoRows(err) {
		return nil, music.NotFound(op, "playlist", key)
	}
	if err != nil {
		return nil, mapError(op, "playlist", err)
	}
	return &p, nil
}

// ListPlaylists returns every playlist ordered by name.
func (d *SqliteCatalog) ListPlaylists(ctx context.Context) ([]*music.Playlist, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name FROM playlist ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, mapError("ListPlaylists", "playlist", err)
	}
	defer rows.Close()

	var playlists []*music.Playlist
	for rows.Next() {
		var p music.Playlist
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, mapError("ListPlaylists", "playlist", err)
		}
		playlists = append(playlists, &p)
	}
	return playlists, mapError("ListPlaylists", "playlist", rows.Err())
}

// RenamePlaylist changes the name of a playlist. Renaming to the current
// name is a no-op.
func (d *SqliteCatalog) RenamePlaylist(ctx context.Context, id int64, name string) error {
	if err := (&music.Playlist{Name: name}).Validate(); err != nil {
		return music.Validation("RenamePlaylist", "playlist", "%v", err)
	}

	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		p, err := getPlaylist(ctx, tx, "RenamePlaylist", `WHERE id = ?`, music.IDKey(id), id)
		if err != nil {
			return err
		}
		if p.Name == name {
			return nil
		}
		if exists, err := rowExists(ctx, tx, `SELECT 1 FROM playlist WHERE name = ? AND id <> ?`, name, id); err != nil {
			return err
		} else if exists {
			return music.Conflict("RenamePlaylist", "playlist", name)
		}
		_, err = tx.ExecContext(ctx, `UPDATE playlist SET name = ? WHERE id = ?`, name, id)
		return err
	})
	return mapError("RenamePlaylist", "playlist", err)
}

// DeletePlaylist deletes a playlist with all of its entries.
func (d *SqliteCatalog) DeletePlaylist(ctx context.Context, id int64) error {
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := getPlaylist(ctx, tx, "DeletePlaylist", `WHERE id = ?`, music.IDKey(id), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM playlist_entry WHERE playlist_id = ?`, id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		slog.Debug("Deleted playlist entries", "playlistID", id, "count", n)
		_, err = tx.ExecContext(ctx, `DELETE FROM playlist WHERE id = ?`, id)
		return err
	})
	return mapError("DeletePlaylist", "playlist", err)
}

// AddTrackToPlaylist inserts the track at position, shifting the entries at
// and after it by one. A nil position appends.
func (d *SqliteCatalog) AddTrackToPlaylist(ctx context.Context, playlistID, trackID int64, position *int) (*music.PlaylistEntry, error) {
	const op = "AddTrackToPlaylist"
	var entry *music.PlaylistEntry
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := getPlaylist(ctx, tx, op, `WHERE id = ?`, music.IDKey(playlistID), playlistID); err != nil {
			return err
		}
		if ok, err := rowExists(ctx, tx, `SELECT 1 FROM track WHERE id = ?`, trackID); err != nil {
			return err
		} else if !ok {
			return music.NotFound(op, "track", music.IDKey(trackID))
		}
		if d.opts.UniquePlaylistEntries {
			if dup, err := rowExists(ctx, tx, `SELECT 1 FROM playlist_entry WHERE playlist_id = ? AND track_id = ?`, playlistID, trackID); err != nil {
				return err
			} else if dup {
				return music.Conflict(op, "playlist entry", music.IDKey(trackID))
			}
		}

		length, err := countRows(ctx, tx, `SELECT COUNT(*) FROM playlist_entry WHERE playlist_id = ?`, playlistID)
		if err != nil {
			return err
		}
		pos, err := music.CheckInsertPosition(position, length)
		if err != nil {
			return music.Validation(op, "playlist entry", "%v", err)
		}
		if pos < length {
			if err := shiftUp(ctx, tx, playlistID, pos); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO playlist_entry (playlist_id, track_id, position) VALUES (?, ?, ?)`, playlistID, trackID, pos)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		entry = &music.PlaylistEntry{ID: id, PlaylistID: playlistID, TrackID: trackID, Position: pos}
		return nil
	})
	if err != nil {
		return nil, mapError(op, "playlist entry", err)
	}
	return entry, nil
}

// RemovePlaylistEntry removes one entry by id and closes the gap.
func (d *SqliteCatalog) RemovePlaylistEntry(ctx context.Context, playlistID, entryID int64) error {
	return d.removeEntry(ctx, "RemovePlaylistEntry", playlistID, `id = ?`, music.IDKey(entryID), entryID)
}

// RemovePlaylistPosition removes the entry at position and closes the gap.
func (d *SqliteCatalog) RemovePlaylistPosition(ctx context.Context, playlistID int64, position int) error {
	return d.removeEntry(ctx, "RemovePlaylistPosition", playlistID, `position = ?`, fmt.Sprintf("position %d", position), position)
}

func (d *SqliteCatalog) removeEntry(ctx context.Context, op string, playlistID int64, cond, key string, arg any) error {
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := getPlaylist(ctx, tx, op, `WHERE id = ?`, music.IDKey(playlistID), playlistID); err != nil {
			return err
		}
		var id int64
		var pos int
		err := tx.QueryRowContext(ctx, `SELECT id, position FROM playlist_entry WHERE playlist_id = ? AND `+cond, playlistID, arg).Scan(&id, &pos)
		if isNoRows(err) {
			return music.NotFound(op, "playlist entry", key)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entry WHERE id = ?`, id); err != nil {
			return err
		}
		return shiftDown(ctx, tx, playlistID, pos)
	})
	return mapError(op, "playlist entry", err)
}

// MovePlaylistEntry moves the entry at from to position to. The entries in
// between slide by one to keep positions contiguous.
func (d *SqliteCatalog) MovePlaylistEntry(ctx context.Context, playlistID int64, from, to int) error {
	const op = "MovePlaylistEntry"
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := getPlaylist(ctx, tx, op, `WHERE id = ?`, music.IDKey(playlistID), playlistID); err != nil {
			return err
		}
		ids, err := entryIDs(ctx, tx, playlistID)
		if err != nil {
			return err
		}
		if err := music.CheckMove(from, to, len(ids)); err != nil {
			return music.Validation(op, "playlist entry", "%v", err)
		}
		if from == to {
			return nil
		}
		moved := ids[from]
		ids = append(ids[:from], ids[from+1:]...)
		ids = append(ids[:to], append([]int64{moved}, ids[to:]...)...)
		return renumber(ctx, tx, playlistID, ids)
	})
	return mapError(op, "playlist entry", err)
}

// ListPlaylistEntries returns the entries of a playlist in order.
func (d *SqliteCatalog) ListPlaylistEntries(ctx context.Context, playlistID int64) ([]*music.PlaylistEntry, error) {
	const op = "ListPlaylistEntries"
	var entries []*music.PlaylistEntry
	err := withReadTx(ctx, d.db, func(q querier) error {
		if _, err := getPlaylist(ctx, q, op, `WHERE id = ?`, music.IDKey(playlistID), playlistID); err != nil {
			return err
		}
		rows, err := q.QueryContext(ctx, `
			SELECT id, playlist_id, track_id, position FROM playlist_entry
			WHERE playlist_id = ? ORDER BY position`, playlistID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e music.PlaylistEntry
			if err := rows.Scan(&e.ID, &e.PlaylistID, &e.TrackID, &e.Position); err != nil {
				return err
			}
			entries = append(entries, &e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError(op, "playlist entry", err)
	}
	return entries, nil
}

// ListPlaylistTracks returns the tracks of a playlist in playlist order. A
// track appears once per entry.
func (d *SqliteCatalog) ListPlaylistTracks(ctx context.Context, playlistID int64) ([]*music.Track, error) {
	const op = "ListPlaylistTracks"
	var tracks []*music.Track
	err := withReadTx(ctx, d.db, func(q querier) error {
		if _, err := getPlaylist(ctx, q, op, `WHERE id = ?`, music.IDKey(playlistID), playlistID); err != nil {
			return err
		}
		rows, err := q.QueryContext(ctx, `
			SELECT t.id, t.library_id, t.path, t.title, t.artist, t.album, t.comment, t.genre,
				t.year, t.track_number, t.length, t.bitrate, t.samplerate, t.rating
			FROM playlist_entry e
			JOIN track t ON t.id = e.track_id
			WHERE e.playlist_id = ?
			ORDER BY e.position`, playlistID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTrack(rows)
			if err != nil {
				return err
			}
			tracks = append(tracks, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError(op, "playlist", err)
	}
	return tracks, nil
}

func entryIDs(ctx context.Context, tx *sql.Tx, playlistID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM playlist_entry WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Positions are shifted in two steps through negative values because
// UNIQUE(playlist_id, position) is checked row by row during an UPDATE.

// shiftUp moves every entry at or after pos one slot down the list.
func shiftUp(ctx context.Context, tx *sql.Tx, playlistID int64, pos int) error {
	if _, err := tx.ExecContext(ctx, `UPDATE playlist_entry SET position = -position - 1 WHERE playlist_id = ? AND position >= ?`, playlistID, pos); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE playlist_entry SET position = -position WHERE playlist_id = ? AND position < 0`, playlistID)
	return err
}

// shiftDown closes the gap left at pos.
func shiftDown(ctx context.Context, tx *sql.Tx, playlistID int64, pos int) error {
	if _, err := tx.ExecContext(ctx, `UPDATE playlist_entry SET position = -position WHERE playlist_id = ? AND position > ?`, playlistID, pos); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE playlist_entry SET position = -position - 1 WHERE playlist_id = ? AND position < 0`, playlistID)
	return err
}

// renumber assigns positions 0..n-1 to ids in order.
func renumber(ctx context.Context, tx *sql.Tx, playlistID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE playlist_entry SET position = -position - 1 WHERE playlist_id = ?`, playlistID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `UPDATE playlist_entry SET position = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			return err
		}
	}
	return nil
}

// compactPlaylist renumbers a playlist after entries were removed from
// arbitrary positions.
func compactPlaylist(ctx context.Context, tx *sql.Tx, playlistID int64) error {
	ids, err := entryIDs(ctx, tx, playlistID)
	if err != nil {
		return err
	}
	return renumber(ctx, tx, playlistID, ids)
}

func errDangling(trackID int64, n int) error {
	return fmt.Errorf("%d playlist entries still reference track %d", n, trackID)
}

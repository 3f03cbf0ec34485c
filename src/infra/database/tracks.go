package database

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/contre95/muscat/src/music"
)

const trackColumns = `id, library_id, path, title, artist, album, comment, genre,
	year, track_number, length, bitrate, samplerate, rating`

// IN clauses are chunked to stay well below SQLite's host parameter limit.
const maxInParams = 500

func scanTrack(row rowScanner) (*music.Track, error) {
	var t music.Track
	var title, artist, album, comment, genre sql.NullString
	var year, trackNumber, rating sql.NullInt64
	err := row.Scan(&t.ID, &t.LibraryID, &t.Path, &title, &artist, &album, &comment, &genre,
		&year, &trackNumber, &t.Length, &t.Bitrate, &t.SampleRate, &rating)
	if err != nil {
		return nil, err
	}
	t.Metadata = music.Metadata{
		Title:       title.String,
		Artist:      artist.String,
		Album:       album.String,
		Comment:     comment.String,
		Genre:       genre.String,
		Year:        int(year.Int64),
		TrackNumber: int(trackNumber.Int64),
		Rating:      nullIntToPtr(rating),
	}
	return &t, nil
}

// UpsertTrack inserts a track or, when its path is already cataloged,
// updates it in place. A nil rating keeps the stored one.
func (d *SqliteCatalog) UpsertTrack(ctx context.Context, in music.TrackInput) (*music.Track, error) {
	if err := in.Validate(); err != nil {
		slog.Error("UpsertTrack: validation failed", "error", err, "path", in.Path)
		return nil, music.Validation("UpsertTrack", "track", "%v", err)
	}

	var track *music.Track
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if ok, err := rowExists(ctx, tx, `SELECT 1 FROM library WHERE id = ?`, in.LibraryID); err != nil {
			return err
		} else if !ok {
			return music.Validation("UpsertTrack", "track", "library %d does not exist", in.LibraryID)
		}

		t := in.Track()
		m := t.Metadata
		_, err := tx.ExecContext(ctx, `
			INSERT INTO track (library_id, path, title, artist, album, comment, genre,
				year, track_number, length, bitrate, samplerate, rating, search_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				library_id = excluded.library_id,
				title = excluded.title,
				artist = excluded.artist,
				album = excluded.album,
				comment = excluded.comment,
				genre = excluded.genre,
				year = excluded.year,
				track_number = excluded.track_number,
				length = excluded.length,
				bitrate = excluded.bitrate,
				samplerate = excluded.samplerate,
				rating = COALESCE(excluded.rating, track.rating),
				search_text = excluded.search_text
		`, t.LibraryID, t.Path, nullString(m.Title), nullString(m.Artist), nullString(m.Album),
			nullString(m.Comment), nullString(m.Genre), nullInt(m.Year), nullInt(m.TrackNumber),
			t.Length, t.Bitrate, t.SampleRate, nullIntPtr(m.Rating), t.SearchText())
		if err != nil {
			return err
		}

		track, err = scanTrack(tx.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM track WHERE path = ?`, in.Path))
		return err
	})
	if err != nil {
		return nil, mapError("UpsertTrack", "track", err)
	}
	return track, nil
}

// GetTrack returns a track by id.
func (d *SqliteCatalog) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	return getTrack(ctx, d.db, "GetTrack", `WHERE id = ?`, music.IDKey(id), id)
}

// GetTrackByPath returns the track cataloged at path.
func (d *SqliteCatalog) GetTrackByPath(ctx context.Context, path string) (*music.Track, error) {
	return getTrack(ctx, d.db, "GetTrackByPath", `WHERE path = ?`, path, path)
}

func getTrack(ctx context.Context, q querier, op, where, key string, args ...any) (*music.Track, error) {
	t, err := scanTrack(q.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM track `+where, args...))
	if isNoRows(err) {
		return nil, music.NotFound(op, "track", key)
	}
	if err != nil {
		return nil, mapError(op, "track", err)
	}
	return t, nil
}

// DeleteTrack deletes a track and every playlist entry referencing it.
func (d *SqliteCatalog) DeleteTrack(ctx context.Context, id int64) error {
	return d.deleteTrack(ctx, "DeleteTrack", `WHERE id = ?`, music.IDKey(id), id)
}

// DeleteTrackByPath deletes the track cataloged at path.
func (d *SqliteCatalog) DeleteTrackByPath(ctx context.Context, path string) error {
	return d.deleteTrack(ctx, "DeleteTrackByPath", `WHERE path = ?`, path, path)
}

func (d *SqliteCatalog) deleteTrack(ctx context.Context, op, where, key string, args ...any) error {
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		t, err := getTrack(ctx, tx, op, where, key, args...)
		if err != nil {
			return err
		}
		if err := deleteTracksTx(ctx, tx, []int64{t.ID}); err != nil {
			return err
		}
		if left, err := countRows(ctx, tx, `SELECT COUNT(*) FROM playlist_entry WHERE track_id = ?`, t.ID); err != nil {
			return err
		} else if left != 0 {
			return music.Integrity(op, "track", errDangling(t.ID, left))
		}
		return nil
	})
	return mapError(op, "track", err)
}

// deleteTracksTx removes the tracks and their playlist entries, then closes
// the gaps left in every affected playlist.
func deleteTracksTx(ctx context.Context, tx *sql.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	affected := make(map[int64]struct{})
	for _, chunk := range chunks(ids, maxInParams) {
		in := placeholders(len(chunk))
		args := int64Args(chunk)

		rows, err := tx.QueryContext(ctx, `SELECT DISTINCT playlist_id FROM playlist_entry WHERE track_id IN (`+in+`)`, args...)
		if err != nil {
			return err
		}
		for rows.Next() {
			var pid int64
			if err := rows.Scan(&pid); err != nil {
				rows.Close()
				return err
			}
			affected[pid] = struct{}{}
		}
		if err := rows.Close(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entry WHERE track_id IN (`+in+`)`, args...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM track WHERE id IN (`+in+`)`, args...); err != nil {
			return err
		}
	}

	for pid := range affected {
		if err := compactPlaylist(ctx, tx, pid); err != nil {
			return err
		}
	}
	return nil
}

var sortColumns = map[music.SortField][]string{
	music.SortByArtist: {"artist COLLATE NOCASE", "album COLLATE NOCASE", "track_number", "title COLLATE NOCASE"},
	music.SortByAlbum:  {"album COLLATE NOCASE", "artist COLLATE NOCASE", "track_number", "title COLLATE NOCASE"},
	music.SortByGenre:  {"genre COLLATE NOCASE", "artist COLLATE NOCASE", "album COLLATE NOCASE", "track_number"},
	music.SortByTitle:  {"title COLLATE NOCASE"},
	music.SortByYear:   {"year", "artist COLLATE NOCASE", "album COLLATE NOCASE", "track_number"},
	music.SortByPath:   {"path"},
}

// whereClause builds the filter part shared by QueryTracks and CountTracks.
// Artist and album equality hit idx_track_artist_album, genre idx_track_genre.
func whereClause(f music.TrackFilter) (string, []any) {
	var conds []string
	var args []any
	if f.LibraryID != 0 {
		conds = append(conds, "library_id = ?")
		args = append(args, f.LibraryID)
	}
	if f.Artist != "" {
		conds = append(conds, "artist = ?")
		args = append(args, f.Artist)
	}
	if f.Album != "" {
		conds = append(conds, "album = ?")
		args = append(args, f.Album)
	}
	if f.Genre != "" {
		conds = append(conds, "genre = ?")
		args = append(args, f.Genre)
	}
	if q := music.SearchKey(f.Search); q != "" {
		conds = append(conds, "instr(search_text, ?) > 0")
		args = append(args, q)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// QueryTracks returns the tracks matching the filter.
func (d *SqliteCatalog) QueryTracks(ctx context.Context, f music.TrackFilter) ([]*music.Track, error) {
	if err := f.Validate(); err != nil {
		return nil, music.Validation("QueryTracks", "track", "%v", err)
	}

	where, args := whereClause(f)
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = music.SortByArtist
	}
	order := append(append([]string{}, sortColumns[sortBy]...), "id")
	if f.Desc {
		for i := range order {
			order[i] += " DESC"
		}
	}

	query := `SELECT ` + trackColumns + ` FROM track` + where + ` ORDER BY ` + strings.Join(order, ", ")
	switch {
	case f.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	case f.Offset > 0:
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, f.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("QueryTracks", "track", err)
	}
	defer rows.Close()

	var tracks []*music.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, mapError("QueryTracks", "track", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, mapError("QueryTracks", "track", rows.Err())
}

// CountTracks counts the tracks matching the filter, ignoring paging.
func (d *SqliteCatalog) CountTracks(ctx context.Context, f music.TrackFilter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, music.Validation("CountTracks", "track", "%v", err)
	}
	where, args := whereClause(f)
	n, err := countRows(ctx, d.db, `SELECT COUNT(*) FROM track`+where, args...)
	return n, mapError("CountTracks", "track", err)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/contre95/muscat/src/music"
)

// CreateLibrary registers a new import root.
func (d *SqliteCatalog) CreateLibrary(ctx context.Context, path, name string) (*music.Library, error) {
	lib := &music.Library{Path: path, Name: name}
	if err := lib.Validate(); err != nil {
		return nil, music.Validation("CreateLibrary", "library", "%v", err)
	}

	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if exists, err := rowExists(ctx, tx, `SELECT 1 FROM library WHERE path = ?`, path); err != nil {
			return err
		} else if exists {
			return music.Conflict("CreateLibrary", "library", path)
		}
		if name != "" {
			if exists, err := rowExists(ctx, tx, `SELECT 1 FROM library WHERE name = ?`, name); err != nil {
				return err
			} else if exists {
				return music.Conflict("CreateLibrary", "library", name)
			}
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO library (path, name) VALUES (?, ?)`, path, nullString(name))
		if err != nil {
			return err
		}
		lib.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, mapError("CreateLibrary", "library", err)
	}
	return lib, nil
}

// DeleteLibrary deletes a library after reassigning or deleting its tracks.
func (d *SqliteCatalog) DeleteLibrary(ctx context.Context, id int64, policy music.DeletePolicy) error {
	if policy != music.ReassignTracks && policy != music.DeleteTracks {
		return music.Validation("DeleteLibrary", "library", "unknown delete policy %q", policy)
	}

	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		lib, err := getLibraryTx(ctx, tx, "DeleteLibrary", `WHERE id = ?`, music.IDKey(id), id)
		if err != nil {
			return err
		}
		if lib.IsSentinel() {
			return music.Protected("DeleteLibrary", "library", lib.Path)
		}

		switch policy {
		case music.ReassignTracks:
			sentinel, err := getLibraryTx(ctx, tx, "DeleteLibrary", `WHERE path = ?`, music.SentinelLibraryPath, music.SentinelLibraryPath)
			if err != nil {
				return music.Integrity("DeleteLibrary", "library", fmt.Errorf("sentinel library missing: %w", err))
			}
			res, err := tx.ExecContext(ctx, `UPDATE track SET library_id = ? WHERE library_id = ?`, sentinel.ID, id)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			slog.Debug("Reassigned tracks to sentinel library", "libraryID", id, "count", n)
		case music.DeleteTracks:
			ids, err := libraryTrackIDs(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := deleteTracksTx(ctx, tx, ids); err != nil {
				return err
			}
			slog.Debug("Deleted library tracks", "libraryID", id, "count", len(ids))
		}

		if left, err := countRows(ctx, tx, `SELECT COUNT(*) FROM track WHERE library_id = ?`, id); err != nil {
			return err
		} else if left != 0 {
			return music.Integrity("DeleteLibrary", "library", fmt.Errorf("%d tracks still reference library %d", left, id))
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM library WHERE id = ?`, id)
		return err
	})
	return mapError("DeleteLibrary", "library", err)
}

// GetLibrary returns a library by id.
func (d *SqliteCatalog) GetLibrary(ctx context.Context, id int64) (*music.Library, error) {
	return getLibraryTx(ctx, d.db, "GetLibrary", `WHERE id = ?`, music.IDKey(id), id)
}

// GetLibraryByPath returns the library registered for path.
func (d *SqliteCatalog) GetLibraryByPath(ctx context.Context, path string) (*music.Library, error) {
	return getLibraryTx(ctx, d.db, "GetLibraryByPath", `WHERE path = ?`, path, path)
}

// GetLibraryByName returns the library with the given name.
func (d *SqliteCatalog) GetLibraryByName(ctx context.Context, name string) (*music.Library, error) {
	if name == "" {
		return nil, music.NotFound("GetLibraryByName", "library", name)
	}
	return getLibraryTx(ctx, d.db, "GetLibraryByName", `WHERE name = ?`, name, name)
}

// ListLibraries returns every library, sentinel first.
func (d *SqliteCatalog) ListLibraries(ctx context.Context) ([]*music.Library, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, path, name FROM library ORDER BY id`)
	if err != nil {
		return nil, mapError("ListLibraries", "library", err)
	}
	defer rows.Close()

	var libs []*music.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, mapError("ListLibraries", "library", err)
		}
		libs = append(libs, lib)
	}
	return libs, mapError("ListLibraries", "library", rows.Err())
}

// ClearLibrary deletes every track of the library and keeps the library.
func (d *SqliteCatalog) ClearLibrary(ctx context.Context, id int64) (int, error) {
	var count int
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := getLibraryTx(ctx, tx, "ClearLibrary", `WHERE id = ?`, music.IDKey(id), id); err != nil {
			return err
		}
		ids, err := libraryTrackIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		count = len(ids)
		return deleteTracksTx(ctx, tx, ids)
	})
	if err != nil {
		return 0, mapError("ClearLibrary", "library", err)
	}
	return count, nil
}

// PruneLibrary deletes the tracks of the library whose path is not in
// present and returns the removed paths.
func (d *SqliteCatalog) PruneLibrary(ctx context.Context, id int64, present []string) ([]string, error) {
	keep := make(map[string]struct{}, len(present))
	for _, p := range present {
		keep[p] = struct{}{}
	}

	var removed []string
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := getLibraryTx(ctx, tx, "PruneLibrary", `WHERE id = ?`, music.IDKey(id), id); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `SELECT id, path FROM track WHERE library_id = ?`, id)
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			var trackID int64
			var path string
			if err := rows.Scan(&trackID, &path); err != nil {
				rows.Close()
				return err
			}
			if _, ok := keep[path]; !ok {
				ids = append(ids, trackID)
				removed = append(removed, path)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return deleteTracksTx(ctx, tx, ids)
	})
	if err != nil {
		return nil, mapError("PruneLibrary", "library", err)
	}
	sort.Strings(removed)
	return removed, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLibrary(row rowScanner) (*music.Library, error) {
	var lib music.Library
	var name sql.NullString
	if err := row.Scan(&lib.ID, &lib.Path, &name); err != nil {
		return nil, err
	}
	lib.Name = name.String
	return &lib, nil
}

func getLibraryTx(ctx context.Context, q querier, op, where, key string, args ...any) (*music.Library, error) {
	lib, err := scanLibrary(q.QueryRowContext(ctx, `SELECT id, path, name FROM library `+where, args...))
	if isNoRows(err) {
		return nil, music.NotFound(op, "library", key)
	}
	if err != nil {
		return nil, mapError(op, "library", err)
	}
	return lib, nil
}

func libraryTrackIDs(ctx context.Context, tx *sql.Tx, libraryID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM track WHERE library_id = ?`, libraryID)
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

func rowExists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	return err == nil, err
}

func countRows(ctx context.Context, q querier, query string, args ...any) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contre95/muscat/src/music"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"
)

const (
	// DriverCgo is the mattn/go-sqlite3 driver.
	DriverCgo = "sqlite3"
	// DriverPureGo is the modernc.org/sqlite driver.
	DriverPureGo = "sqlite"

	currentSchemaVersion = 1
	busyTimeoutMillis    = 5000
)

// SqliteCatalog is a SQLite implementation of the music.Catalog interface.
type SqliteCatalog struct {
	db   *sql.DB
	opts music.Options
}

var _ music.Catalog = (*SqliteCatalog)(nil)

// NewSqliteCatalog opens (creating if needed) the catalog at path using the
// given driver, creates the schema and runs Bootstrap.
// The path can be ":memory:" for a throwaway catalog.
func NewSqliteCatalog(ctx context.Context, driver, path string, opts music.Options) (*SqliteCatalog, error) {
	dsn, err := buildDSN(driver, path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	c := &SqliteCatalog{db: db, opts: opts}
	if err := c.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite catalog opened", "driver", driver, "path", path)
	return c, nil
}

// buildDSN adds the per-connection settings every connection of the pool
// needs: foreign keys, a busy timeout and BEGIN IMMEDIATE transactions so
// concurrent writers serialise instead of failing on lock upgrade.
func buildDSN(driver, path string) (string, error) {
	file := path != ":memory:"
	var params []string
	switch driver {
	case DriverCgo:
		params = []string{"_foreign_keys=on", fmt.Sprintf("_busy_timeout=%d", busyTimeoutMillis), "_txlock=immediate"}
		if file {
			params = append(params, "_journal_mode=WAL")
		}
	case DriverPureGo:
		params = []string{"_pragma=foreign_keys(1)", fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMillis), "_txlock=immediate"}
		if file {
			params = append(params, "_pragma=journal_mode(WAL)")
		}
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&"), nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS catalog_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS library (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			name TEXT UNIQUE
		);

		CREATE TABLE IF NOT EXISTS track (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			library_id INTEGER NOT NULL REFERENCES library(id),
			path TEXT NOT NULL UNIQUE,
			title TEXT,
			artist TEXT,
			album TEXT,
			comment TEXT,
			genre TEXT,
			year INTEGER,
			track_number INTEGER,
			length INTEGER NOT NULL CHECK (length >= 0),
			bitrate INTEGER NOT NULL CHECK (bitrate >= 0),
			samplerate INTEGER NOT NULL CHECK (samplerate >= 0),
			rating INTEGER,
			search_text TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_track_artist ON track(artist);
		CREATE INDEX IF NOT EXISTS idx_track_artist_album ON track(artist, album);
		CREATE INDEX IF NOT EXISTS idx_track_genre ON track(genre);
		CREATE INDEX IF NOT EXISTS idx_track_library ON track(library_id);

		CREATE TABLE IF NOT EXISTS playlist (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS playlist_entry (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_id INTEGER NOT NULL REFERENCES playlist(id),
			track_id INTEGER NOT NULL REFERENCES track(id),
			position INTEGER NOT NULL,
			UNIQUE(playlist_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_playlist_entry_track ON playlist_entry(track_id);
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	return err
}

// Bootstrap creates the sentinel library and the catalog id if missing.
func (d *SqliteCatalog) Bootstrap(ctx context.Context) error {
	return withTx(ctx, d.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM library WHERE path = ?`, music.SentinelLibraryPath).Scan(&id)
		switch {
		case isNoRows(err):
			res, err := tx.ExecContext(ctx, `INSERT INTO library (path, name) VALUES (?, NULL)`, music.SentinelLibraryPath)
			if err != nil {
				return mapError("Bootstrap", "library", err)
			}
			id, _ = res.LastInsertId()
			slog.Info("Created sentinel library", "id", id)
		case err != nil:
			return mapError("Bootstrap", "library", err)
		}

		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO catalog_meta (key, value) VALUES ('catalog_id', ?)`, uuid.New().String())
		if err != nil {
			return mapError("Bootstrap", "catalog", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			slog.Info("Initialized catalog identity")
		}
		return nil
	})
}

// CatalogID returns the identity generated when the catalog was created.
func (d *SqliteCatalog) CatalogID(ctx context.Context) (string, error) {
	var id string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = 'catalog_id'`).Scan(&id)
	if isNoRows(err) {
		return "", music.NotFound("CatalogID", "catalog", "catalog_id")
	}
	return id, mapError("CatalogID", "catalog", err)
}

// Stats counts the rows of every collection. A single statement reads one
// snapshot, so no write lock is taken.
func (d *SqliteCatalog) Stats(ctx context.Context) (music.Stats, error) {
	var s music.Stats
	err := d.db.QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM library),
				(SELECT COUNT(*) FROM track),
				(SELECT COUNT(*) FROM playlist),
				(SELECT COUNT(*) FROM playlist_entry),
				(SELECT COALESCE(SUM(length), 0) FROM track)
	`).Scan(&s.Libraries, &s.Tracks, &s.Playlists, &s.PlaylistEntries, &s.TotalLength)
	return s, mapError("Stats", "catalog", err)
}

// Close closes the underlying database.
func (d *SqliteCatalog) Close() error {
	return d.db.Close()
}

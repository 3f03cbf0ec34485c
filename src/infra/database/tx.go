package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/contre95/muscat/src/music"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// withTx executes fn within a transaction.
// It handles Begin, Rollback on error, and Commit on success.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// withReadTx runs fn inside a deferred transaction on a dedicated connection.
// The DSN makes BeginTx issue BEGIN IMMEDIATE, which would take the write
// lock, so reads open their snapshot with BEGIN DEFERRED instead.
func withReadTx(ctx context.Context, db *sql.DB, fn func(q querier) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN DEFERRED"); err != nil {
		return err
	}
	defer func() {
		end := "COMMIT"
		if err != nil {
			end = "ROLLBACK"
		}
		// the connection goes back to the pool, so it must leave the transaction
		if _, endErr := conn.ExecContext(context.WithoutCancel(ctx), end); endErr != nil && err == nil {
			err = endErr
		}
	}()
	return fn(conn)
}

// mapError translates driver errors into catalog error kinds.
func mapError(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	if music.IsKind(err) {
		return err
	}
	switch constraintKind(err) {
	case music.ErrConflict:
		return &music.Error{Op: op, Entity: entity, Kind: music.ErrConflict, Err: err}
	case music.ErrIntegrity:
		return music.Integrity(op, entity, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// constraintKind reads the extended result code of a constraint failure.
// Errors that lost their driver type are matched on SQLite's message text.
func constraintKind(err error) error {
	if kind, ok := cgoConstraintKind(err); ok {
		return kind
	}

	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		switch pureErr.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return music.ErrConflict
		case sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY, sqlitelib.SQLITE_CONSTRAINT_CHECK, sqlitelib.SQLITE_CONSTRAINT_NOTNULL:
			return music.ErrIntegrity
		}
		return nil
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return music.ErrConflict
	case strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return music.ErrIntegrity
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullInt stores zero as NULL.
func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

func nullIntPtr(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// nullIntToPtr converts a sql.NullInt64 to *int.
// Returns nil if the value is not valid.
func nullIntToPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// chunks splits ids so IN clauses stay under SQLite's variable limit.
func chunks(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

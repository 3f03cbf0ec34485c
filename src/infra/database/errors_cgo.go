//go:build cgo

package database

import (
	"errors"

	"github.com/contre95/muscat/src/music"
	"github.com/mattn/go-sqlite3"
)

// cgoConstraintKind maps a mattn/go-sqlite3 error by its extended code.
func cgoConstraintKind(err error) (error, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return nil, false
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return music.ErrConflict, true
	case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
		return music.ErrIntegrity, true
	}
	return nil, true
}

//go:build !cgo

package database

// cgoConstraintKind never matches: without cgo the sqlite3 driver is a stub.
func cgoConstraintKind(error) (error, bool) { return nil, false }

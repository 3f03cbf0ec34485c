package music

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Catalog wraps exactly one of them,
// so callers branch with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrProtected  = errors.New("protected entity")
	ErrIntegrity  = errors.New("integrity error")
)

// Error carries the operation and entity that failed along with its kind.
type Error struct {
	Op     string // e.g. "CreateLibrary"
	Entity string // "library", "track", "playlist", "playlist entry"
	Key    string // offending id, path or name
	Kind   error
	Err    error // optional underlying cause
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Entity != "" {
		msg = e.Entity + " " + msg
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (%s)", e.Key)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds an ErrValidation error.
func Validation(op, entity, format string, args ...any) error {
	return &Error{Op: op, Entity: entity, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

// Conflict builds an ErrConflict error for a uniqueness violation on key.
func Conflict(op, entity, key string) error {
	return &Error{Op: op, Entity: entity, Key: key, Kind: ErrConflict}
}

// NotFound builds an ErrNotFound error.
func NotFound(op, entity, key string) error {
	return &Error{Op: op, Entity: entity, Key: key, Kind: ErrNotFound}
}

// Protected builds an ErrProtected error.
func Protected(op, entity, key string) error {
	return &Error{Op: op, Entity: entity, Key: key, Kind: ErrProtected}
}

// Integrity builds an ErrIntegrity error. Seeing one means a cascade left the
// catalog in a state the operations should never produce.
func Integrity(op, entity string, cause error) error {
	return &Error{Op: op, Entity: entity, Kind: ErrIntegrity, Err: cause}
}

// IsKind reports whether err is a catalog error of any kind.
func IsKind(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

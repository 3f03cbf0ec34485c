package music

import (
	"fmt"
	"strconv"
	"strings"
)

// SentinelLibraryPath is the path of the library that owns individually added
// tracks. It is created by Bootstrap and can never be deleted.
const SentinelLibraryPath = "NONE"

// Library is a root directory tracks were imported from, or the sentinel.
type Library struct {
	ID   int64
	Path string
	Name string // empty when the library has no name
}

// IsSentinel reports whether l is the "no library" sentinel.
func (l *Library) IsSentinel() bool {
	return l.Path == SentinelLibraryPath
}

// DisplayName returns the name shown to users.
func (l *Library) DisplayName() string {
	switch {
	case l.Name != "":
		return l.Name
	case l.IsSentinel():
		return "Individual Tracks"
	default:
		return l.Path
	}
}

// Validate checks the library fields a caller controls.
func (l *Library) Validate() error {
	if strings.TrimSpace(l.Path) == "" {
		return fmt.Errorf("library path cannot be empty")
	}
	if l.Path == SentinelLibraryPath {
		return fmt.Errorf("library path %q is reserved", SentinelLibraryPath)
	}
	if len(l.Path) > 4096 {
		return fmt.Errorf("library path cannot exceed 4096 characters, got %d", len(l.Path))
	}
	if len(l.Name) > 200 {
		return fmt.Errorf("library name cannot exceed 200 characters, got %d: name -> %s", len(l.Name), l.Name)
	}
	return nil
}

// DeletePolicy tells DeleteLibrary what happens to the tracks of the library.
type DeletePolicy string

const (
	// ReassignTracks moves the tracks to the sentinel library.
	ReassignTracks DeletePolicy = "reassign"
	// DeleteTracks deletes the tracks and their playlist entries.
	DeleteTracks DeletePolicy = "delete"
)

// ParseDeletePolicy parses a policy name as used in configuration.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ReassignTracks, DeleteTracks:
		return p, nil
	default:
		return "", fmt.Errorf("unknown library delete policy %q", s)
	}
}

// IDKey formats an id for error keys and log fields.
func IDKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

package music

import (
	"fmt"
	"strings"
)

// Playlist is a named, ordered collection of track references.
type Playlist struct {
	ID   int64
	Name string
}

// Validate validates the playlist fields.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name cannot be empty")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("playlist name cannot exceed 200 characters, got %d: name -> %s", len(p.Name), p.Name)
	}
	return nil
}

// PlaylistEntry is one occurrence of a track in a playlist. Positions of a
// playlist's entries are always 0..n-1 with no gaps.
type PlaylistEntry struct {
	ID         int64
	PlaylistID int64
	TrackID    int64
	Position   int
}

// CheckInsertPosition validates an insert position against the current
// length of a playlist and returns the position to use. nil appends.
func CheckInsertPosition(position *int, length int) (int, error) {
	if position == nil {
		return length, nil
	}
	if *position < 0 || *position > length {
		return 0, fmt.Errorf("position %d out of range [0, %d]", *position, length)
	}
	return *position, nil
}

// CheckMove validates a move inside a playlist of the given length.
func CheckMove(from, to, length int) error {
	if from < 0 || from >= length {
		return fmt.Errorf("position %d out of range [0, %d)", from, length)
	}
	if to < 0 || to >= length {
		return fmt.Errorf("position %d out of range [0, %d)", to, length)
	}
	return nil
}

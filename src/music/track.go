package music

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Track represents a single cataloged audio file.
type Track struct {
	ID         int64
	LibraryID  int64
	Path       string
	Metadata   Metadata
	Length     int // seconds
	Bitrate    int // kb/s
	SampleRate int // Hz
}

// Metadata holds the descriptive fields of a track. Empty strings and zero
// numbers mean "unknown" and are stored as NULL.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	Comment     string
	Genre       string
	Year        int
	TrackNumber int
	Rating      *int
}

// TrackInput is what an import or re-scan hands to UpsertTrack.
type TrackInput struct {
	Path       string `validate:"required,max=4096"`
	LibraryID  int64  `validate:"gt=0"`
	Metadata   Metadata
	Length     int `validate:"gte=0"`
	Bitrate    int `validate:"gte=0"`
	SampleRate int `validate:"gte=0"`
}

type metadataRules struct {
	Year        int    `validate:"gte=0"`
	TrackNumber int    `validate:"gte=0"`
	Title       string `validate:"max=1000"`
	Artist      string `validate:"max=1000"`
	Album       string `validate:"max=1000"`
	Genre       string `validate:"max=200"`
}

// Validate checks the structural rules of the input. It does not check that
// the library exists or that the rating is in range; the former is the
// store's job and the latter is configured policy.
func (in *TrackInput) Validate() error {
	if strings.TrimSpace(in.Path) == "" {
		return fmt.Errorf("track path cannot be empty")
	}
	if err := validate.Struct(in); err != nil {
		return describe(err)
	}
	rules := metadataRules{
		Year:        in.Metadata.Year,
		TrackNumber: in.Metadata.TrackNumber,
		Title:       in.Metadata.Title,
		Artist:      in.Metadata.Artist,
		Album:       in.Metadata.Album,
		Genre:       in.Metadata.Genre,
	}
	if err := validate.Struct(rules); err != nil {
		return describe(err)
	}
	return nil
}

// Track builds the track row the input describes.
func (in *TrackInput) Track() *Track {
	return &Track{
		LibraryID:  in.LibraryID,
		Path:       in.Path,
		Metadata:   in.Metadata,
		Length:     in.Length,
		Bitrate:    in.Bitrate,
		SampleRate: in.SampleRate,
	}
}

// describe turns validator errors into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s cannot be negative, got %v", strings.ToLower(fe.Field()), fe.Value()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s cannot exceed %s characters", strings.ToLower(fe.Field()), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// SearchText is the normalised text QueryTracks matches TrackFilter.Search against.
func (t *Track) SearchText() string {
	return SearchKey(t.Metadata.Title, t.Metadata.Artist, t.Metadata.Album)
}

// SortField selects the ordering of QueryTracks results.
type SortField string

const (
	SortByArtist SortField = "artist" // artist, album, track number, title
	SortByAlbum  SortField = "album"
	SortByGenre  SortField = "genre"
	SortByTitle  SortField = "title"
	SortByYear   SortField = "year"
	SortByPath   SortField = "path"
)

// TrackFilter narrows QueryTracks. Zero values match everything.
type TrackFilter struct {
	LibraryID int64
	Artist    string
	Album     string
	Genre     string
	Search    string
	SortBy    SortField
	Desc      bool
	Limit     int
	Offset    int
}

// Validate rejects filters the stores cannot serve.
func (f TrackFilter) Validate() error {
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("limit and offset cannot be negative")
	}
	switch f.SortBy {
	case "", SortByArtist, SortByAlbum, SortByGenre, SortByTitle, SortByYear, SortByPath:
		return nil
	default:
		return fmt.Errorf("unknown sort field %q", f.SortBy)
	}
}

// Matches reports whether t passes the filter. Stores without a query engine
// use it to evaluate filters in memory.
func (f TrackFilter) Matches(t *Track) bool {
	if f.LibraryID != 0 && t.LibraryID != f.LibraryID {
		return false
	}
	if f.Artist != "" && t.Metadata.Artist != f.Artist {
		return false
	}
	if f.Album != "" && t.Metadata.Album != f.Album {
		return false
	}
	if f.Genre != "" && t.Metadata.Genre != f.Genre {
		return false
	}
	if q := SearchKey(f.Search); q != "" && !strings.Contains(t.SearchText(), q) {
		return false
	}
	return true
}

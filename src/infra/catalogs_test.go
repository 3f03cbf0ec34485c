package infra_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/contre95/muscat/src/infra/database"
	"github.com/contre95/muscat/src/infra/memory"
	"github.com/contre95/muscat/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogFactory creates a fresh, bootstrapped catalog for one test.
type catalogFactory func(t *testing.T, opts music.Options) music.Catalog

// catalogFactories returns every Catalog implementation under test.
func catalogFactories() map[string]catalogFactory {
	sqlite := func(driver string) catalogFactory {
		return func(t *testing.T, opts music.Options) music.Catalog {
			c, err := database.NewSqliteCatalog(context.Background(), driver, ":memory:", opts)
			require.NoError(t, err)
			t.Cleanup(func() { c.Close() })
			return c
		}
	}
	return map[string]catalogFactory{
		"sqlite3": sqlite(database.DriverCgo),
		"sqlite":  sqlite(database.DriverPureGo),
		"memory": func(t *testing.T, opts music.Options) music.Catalog {
			return memory.NewCatalog(opts)
		},
	}
}

// forEachCatalog runs fn once per implementation with default options.
func forEachCatalog(t *testing.T, fn func(t *testing.T, c music.Catalog)) {
	for name, factory := range catalogFactories() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t, music.Options{}))
		})
	}
}

func newLibrary(t *testing.T, c music.Catalog, path, name string) *music.Library {
	t.Helper()
	lib, err := c.CreateLibrary(context.Background(), path, name)
	require.NoError(t, err)
	return lib
}

func newTrack(t *testing.T, c music.Catalog, libID int64, path, artist, album string, number int) *music.Track {
	t.Helper()
	tr, err := c.UpsertTrack(context.Background(), music.TrackInput{
		Path:      path,
		LibraryID: libID,
		Metadata: music.Metadata{
			Title:       fmt.Sprintf("Track %d", number),
			Artist:      artist,
			Album:       album,
			TrackNumber: number,
		},
		Length:     180,
		Bitrate:    320,
		SampleRate: 44100,
	})
	require.NoError(t, err)
	return tr
}

func trackIDs(tracks []*music.Track) []int64 {
	ids := make([]int64, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func positions(entries []*music.PlaylistEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Position
	}
	return out
}

func intPtr(i int) *int { return &i }

func TestCatalogs_Bootstrap(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()

		id, err := c.CatalogID(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		require.NoError(t, c.Bootstrap(ctx))
		require.NoError(t, c.Bootstrap(ctx))

		libs, err := c.ListLibraries(ctx)
		require.NoError(t, err)
		sentinels := 0
		for _, lib := range libs {
			if lib.Path == music.SentinelLibraryPath {
				sentinels++
				assert.Empty(t, lib.Name)
			}
		}
		assert.Equal(t, 1, sentinels)

		sentinel, err := c.GetLibraryByPath(ctx, music.SentinelLibraryPath)
		require.NoError(t, err)
		assert.True(t, sentinel.IsSentinel())
		assert.Equal(t, "Individual Tracks", sentinel.DisplayName())

		again, err := c.CatalogID(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})
}

func TestCatalogs_CreateLibrary(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()

		main := newLibrary(t, c, "/music", "Main")

		_, err := c.CreateLibrary(ctx, "/music", "Other")
		assert.ErrorIs(t, err, music.ErrConflict)

		_, err = c.CreateLibrary(ctx, "/elsewhere", "Main")
		assert.ErrorIs(t, err, music.ErrConflict)

		// unnamed libraries do not collide on the missing name
		newLibrary(t, c, "/a", "")
		newLibrary(t, c, "/b", "")

		_, err = c.CreateLibrary(ctx, music.SentinelLibraryPath, "")
		assert.ErrorIs(t, err, music.ErrValidation)
		_, err = c.CreateLibrary(ctx, "", "Empty")
		assert.ErrorIs(t, err, music.ErrValidation)

		byName, err := c.GetLibraryByName(ctx, "Main")
		require.NoError(t, err)
		assert.Equal(t, main.ID, byName.ID)

		byID, err := c.GetLibrary(ctx, main.ID)
		require.NoError(t, err)
		assert.Equal(t, "/music", byID.Path)

		_, err = c.GetLibraryByName(ctx, "Nope")
		assert.ErrorIs(t, err, music.ErrNotFound)
		_, err = c.GetLibraryByPath(ctx, "/nope")
		assert.ErrorIs(t, err, music.ErrNotFound)

		libs, err := c.ListLibraries(ctx)
		require.NoError(t, err)
		require.Len(t, libs, 4)
		assert.True(t, libs[0].IsSentinel())
	})
}

func TestCatalogs_UpsertTrackIsIdempotent(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")

		in := music.TrackInput{
			Path:       "/music/a.flac",
			LibraryID:  lib.ID,
			Metadata:   music.Metadata{Title: "A", Artist: "X", Rating: intPtr(4)},
			Length:     200,
			Bitrate:    900,
			SampleRate: 48000,
		}
		first, err := c.UpsertTrack(ctx, in)
		require.NoError(t, err)
		second, err := c.UpsertTrack(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		n, err := c.CountTracks(ctx, music.TrackFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// a re-scan without a rating keeps the stored one
		in.Metadata = music.Metadata{Title: "A (Remastered)", Artist: "X"}
		in.Length = 201
		updated, err := c.UpsertTrack(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, first.ID, updated.ID)
		assert.Equal(t, "A (Remastered)", updated.Metadata.Title)
		assert.Equal(t, 201, updated.Length)
		require.NotNil(t, updated.Metadata.Rating)
		assert.Equal(t, 4, *updated.Metadata.Rating)

		got, err := c.GetTrackByPath(ctx, "/music/a.flac")
		require.NoError(t, err)
		assert.Equal(t, *updated, *got)
	})
}

func TestCatalogs_UpsertTrackValidation(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")

		cases := map[string]music.TrackInput{
			"negative length":     {Path: "/music/x.mp3", LibraryID: lib.ID, Length: -1},
			"negative bitrate":    {Path: "/music/x.mp3", LibraryID: lib.ID, Bitrate: -1},
			"negative samplerate": {Path: "/music/x.mp3", LibraryID: lib.ID, SampleRate: -1},
			"empty path":          {Path: " ", LibraryID: lib.ID},
			"unknown library":     {Path: "/music/x.mp3", LibraryID: lib.ID + 100},
		}
		for name, in := range cases {
			_, err := c.UpsertTrack(ctx, in)
			assert.ErrorIs(t, err, music.ErrValidation, name)
		}

		n, err := c.CountTracks(ctx, music.TrackFilter{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestCatalogs_ConcurrentUpsertSamePath(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.UpsertTrack(ctx, music.TrackInput{
					Path:      "/music/same.mp3",
					LibraryID: lib.ID,
					Metadata:  music.Metadata{Title: fmt.Sprintf("take %d", i)},
					Length:    i,
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		tracks, err := c.QueryTracks(ctx, music.TrackFilter{})
		require.NoError(t, err)
		require.Len(t, tracks, 1)
		// the row is one writer's complete input
		assert.Equal(t, fmt.Sprintf("take %d", tracks[0].Length), tracks[0].Metadata.Title)
	})
}

func TestCatalogs_DeleteLibrary(t *testing.T) {
	for _, policy := range []music.DeletePolicy{music.ReassignTracks, music.DeleteTracks} {
		for name, factory := range catalogFactories() {
			t.Run(name+"/"+string(policy), func(t *testing.T) {
				ctx := context.Background()
				c := factory(t, music.Options{})

				doomed := newLibrary(t, c, "/doomed", "Doomed")
				kept := newLibrary(t, c, "/kept", "")
				d1 := newTrack(t, c, doomed.ID, "/doomed/1.mp3", "A", "B", 1)
				k1 := newTrack(t, c, kept.ID, "/kept/1.mp3", "A", "B", 2)
				d2 := newTrack(t, c, doomed.ID, "/doomed/2.mp3", "A", "B", 3)

				p, err := c.CreatePlaylist(ctx, "Mix")
				require.NoError(t, err)
				for _, id := range []int64{d1.ID, k1.ID, d2.ID, k1.ID} {
					_, err := c.AddTrackToPlaylist(ctx, p.ID, id, nil)
					require.NoError(t, err)
				}

				require.NoError(t, c.DeleteLibrary(ctx, doomed.ID, policy))

				_, err = c.GetLibrary(ctx, doomed.ID)
				assert.ErrorIs(t, err, music.ErrNotFound)
				n, err := c.CountTracks(ctx, music.TrackFilter{LibraryID: doomed.ID})
				require.NoError(t, err)
				assert.Zero(t, n)

				sentinel, err := c.GetLibraryByPath(ctx, music.SentinelLibraryPath)
				require.NoError(t, err)
				tracks, err := c.ListPlaylistTracks(ctx, p.ID)
				require.NoError(t, err)
				entries, err := c.ListPlaylistEntries(ctx, p.ID)
				require.NoError(t, err)

				switch policy {
				case music.ReassignTracks:
					moved, err := c.GetTrack(ctx, d1.ID)
					require.NoError(t, err)
					assert.Equal(t, sentinel.ID, moved.LibraryID)
					assert.Equal(t, []int64{d1.ID, k1.ID, d2.ID, k1.ID}, trackIDs(tracks))
				case music.DeleteTracks:
					_, err := c.GetTrack(ctx, d1.ID)
					assert.ErrorIs(t, err, music.ErrNotFound)
					assert.Equal(t, []int64{k1.ID, k1.ID}, trackIDs(tracks))
					assert.Equal(t, []int{0, 1}, positions(entries))
				}

				// the name is free again
				newLibrary(t, c, "/doomed", "Doomed")
			})
		}
	}
}

func TestCatalogs_DeleteLibraryErrors(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()

		sentinel, err := c.GetLibraryByPath(ctx, music.SentinelLibraryPath)
		require.NoError(t, err)
		for _, policy := range []music.DeletePolicy{music.ReassignTracks, music.DeleteTracks} {
			assert.ErrorIs(t, c.DeleteLibrary(ctx, sentinel.ID, policy), music.ErrProtected)
		}
		assert.ErrorIs(t, c.DeleteLibrary(ctx, 9999, music.ReassignTracks), music.ErrNotFound)

		lib := newLibrary(t, c, "/music", "")
		assert.ErrorIs(t, c.DeleteLibrary(ctx, lib.ID, "archive"), music.ErrValidation)

		_, err = c.GetLibrary(ctx, lib.ID)
		assert.NoError(t, err)
	})
}

func TestCatalogs_DeleteTrackCascades(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")
		a := newTrack(t, c, lib.ID, "/music/a.mp3", "X", "Y", 1)
		b := newTrack(t, c, lib.ID, "/music/b.mp3", "X", "Y", 2)

		p1, err := c.CreatePlaylist(ctx, "One")
		require.NoError(t, err)
		p2, err := c.CreatePlaylist(ctx, "Two")
		require.NoError(t, err)
		for _, id := range []int64{a.ID, b.ID, a.ID} {
			_, err := c.AddTrackToPlaylist(ctx, p1.ID, id, nil)
			require.NoError(t, err)
		}
		_, err = c.AddTrackToPlaylist(ctx, p2.ID, a.ID, nil)
		require.NoError(t, err)

		require.NoError(t, c.DeleteTrack(ctx, a.ID))
		assert.ErrorIs(t, c.DeleteTrack(ctx, a.ID), music.ErrNotFound)

		e1, err := c.ListPlaylistEntries(ctx, p1.ID)
		require.NoError(t, err)
		require.Len(t, e1, 1)
		assert.Equal(t, b.ID, e1[0].TrackID)
		assert.Equal(t, 0, e1[0].Position)

		e2, err := c.ListPlaylistEntries(ctx, p2.ID)
		require.NoError(t, err)
		assert.Empty(t, e2)

		require.NoError(t, c.DeleteTrackByPath(ctx, "/music/b.mp3"))
		assert.ErrorIs(t, c.DeleteTrackByPath(ctx, "/music/b.mp3"), music.ErrNotFound)

		stats, err := c.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Tracks)
		assert.Zero(t, stats.PlaylistEntries)
		assert.Equal(t, 2, stats.Playlists)
	})
}

func TestCatalogs_PlaylistOrder(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")
		t1 := newTrack(t, c, lib.ID, "/music/1.mp3", "Z", "Z", 1)
		t2 := newTrack(t, c, lib.ID, "/music/2.mp3", "A", "A", 2)
		t3 := newTrack(t, c, lib.ID, "/music/3.mp3", "M", "M", 3)

		p, err := c.CreatePlaylist(ctx, "Favorites")
		require.NoError(t, err)
		for _, tr := range []*music.Track{t1, t2, t3} {
			_, err := c.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
			require.NoError(t, err)
		}

		tracks, err := c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{t1.ID, t2.ID, t3.ID}, trackIDs(tracks))

		// restartable
		again, err := c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, trackIDs(tracks), trackIDs(again))

		require.NoError(t, c.RemovePlaylistPosition(ctx, p.ID, 1))
		tracks, err = c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{t1.ID, t3.ID}, trackIDs(tracks))

		entries, err := c.ListPlaylistEntries(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, positions(entries))

		require.NoError(t, c.RemovePlaylistEntry(ctx, p.ID, entries[0].ID))
		assert.ErrorIs(t, c.RemovePlaylistEntry(ctx, p.ID, entries[0].ID), music.ErrNotFound)
		assert.ErrorIs(t, c.RemovePlaylistPosition(ctx, p.ID, 5), music.ErrNotFound)

		tracks, err = c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{t3.ID}, trackIDs(tracks))
	})
}

func TestCatalogs_PlaylistInsertAndMove(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")
		var ts []*music.Track
		for i := range 4 {
			ts = append(ts, newTrack(t, c, lib.ID, fmt.Sprintf("/music/%d.mp3", i), "A", "B", i+1))
		}

		p, err := c.CreatePlaylist(ctx, "Queue")
		require.NoError(t, err)
		_, err = c.AddTrackToPlaylist(ctx, p.ID, ts[0].ID, nil)
		require.NoError(t, err)
		_, err = c.AddTrackToPlaylist(ctx, p.ID, ts[1].ID, nil)
		require.NoError(t, err)

		e, err := c.AddTrackToPlaylist(ctx, p.ID, ts[2].ID, intPtr(0))
		require.NoError(t, err)
		assert.Equal(t, 0, e.Position)
		_, err = c.AddTrackToPlaylist(ctx, p.ID, ts[3].ID, intPtr(2))
		require.NoError(t, err)

		tracks, err := c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{ts[2].ID, ts[0].ID, ts[3].ID, ts[1].ID}, trackIDs(tracks))

		_, err = c.AddTrackToPlaylist(ctx, p.ID, ts[0].ID, intPtr(5))
		assert.ErrorIs(t, err, music.ErrValidation)
		_, err = c.AddTrackToPlaylist(ctx, p.ID, ts[0].ID, intPtr(-1))
		assert.ErrorIs(t, err, music.ErrValidation)
		_, err = c.AddTrackToPlaylist(ctx, p.ID, 9999, nil)
		assert.ErrorIs(t, err, music.ErrNotFound)
		_, err = c.AddTrackToPlaylist(ctx, 9999, ts[0].ID, nil)
		assert.ErrorIs(t, err, music.ErrNotFound)

		require.NoError(t, c.MovePlaylistEntry(ctx, p.ID, 0, 3))
		tracks, err = c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{ts[0].ID, ts[3].ID, ts[1].ID, ts[2].ID}, trackIDs(tracks))

		require.NoError(t, c.MovePlaylistEntry(ctx, p.ID, 2, 0))
		tracks, err = c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{ts[1].ID, ts[0].ID, ts[3].ID, ts[2].ID}, trackIDs(tracks))

		assert.ErrorIs(t, c.MovePlaylistEntry(ctx, p.ID, 0, 4), music.ErrValidation)

		entries, err := c.ListPlaylistEntries(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, positions(entries))
	})
}

func TestCatalogs_PlaylistDuplicates(t *testing.T) {
	for name, factory := range catalogFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			c := factory(t, music.Options{})
			lib := newLibrary(t, c, "/music", "")
			tr := newTrack(t, c, lib.ID, "/music/a.mp3", "A", "B", 1)
			p, err := c.CreatePlaylist(ctx, "Repeat")
			require.NoError(t, err)
			first, err := c.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
			require.NoError(t, err)
			second, err := c.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
			require.NoError(t, err)
			assert.NotEqual(t, first.ID, second.ID)

			// removing one occurrence keeps the other
			require.NoError(t, c.RemovePlaylistEntry(ctx, p.ID, first.ID))
			tracks, err := c.ListPlaylistTracks(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, []int64{tr.ID}, trackIDs(tracks))

			unique := factory(t, music.Options{UniquePlaylistEntries: true})
			lib = newLibrary(t, unique, "/music", "")
			tr = newTrack(t, unique, lib.ID, "/music/a.mp3", "A", "B", 1)
			p, err = unique.CreatePlaylist(ctx, "Set")
			require.NoError(t, err)
			_, err = unique.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
			require.NoError(t, err)
			_, err = unique.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
			assert.ErrorIs(t, err, music.ErrConflict)
		})
	}
}

func TestCatalogs_PlaylistLifecycle(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")
		tr := newTrack(t, c, lib.ID, "/music/a.mp3", "A", "B", 1)

		rock, err := c.CreatePlaylist(ctx, "rock")
		require.NoError(t, err)
		jazz, err := c.CreatePlaylist(ctx, "Jazz")
		require.NoError(t, err)

		_, err = c.CreatePlaylist(ctx, "rock")
		assert.ErrorIs(t, err, music.ErrConflict)
		_, err = c.CreatePlaylist(ctx, "")
		assert.ErrorIs(t, err, music.ErrValidation)

		assert.ErrorIs(t, c.RenamePlaylist(ctx, jazz.ID, "rock"), music.ErrConflict)
		assert.NoError(t, c.RenamePlaylist(ctx, jazz.ID, "Jazz"))
		assert.ErrorIs(t, c.RenamePlaylist(ctx, 9999, "x"), music.ErrNotFound)
		require.NoError(t, c.RenamePlaylist(ctx, jazz.ID, "Blues"))

		byName, err := c.GetPlaylistByName(ctx, "Blues")
		require.NoError(t, err)
		assert.Equal(t, jazz.ID, byName.ID)
		_, err = c.GetPlaylistByName(ctx, "Jazz")
		assert.ErrorIs(t, err, music.ErrNotFound)

		list, err := c.ListPlaylists(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Blues", list[0].Name)
		assert.Equal(t, "rock", list[1].Name)

		_, err = c.AddTrackToPlaylist(ctx, rock.ID, tr.ID, nil)
		require.NoError(t, err)
		require.NoError(t, c.DeletePlaylist(ctx, rock.ID))
		assert.ErrorIs(t, c.DeletePlaylist(ctx, rock.ID), music.ErrNotFound)
		_, err = c.ListPlaylistEntries(ctx, rock.ID)
		assert.ErrorIs(t, err, music.ErrNotFound)

		// the track itself survives
		_, err = c.GetTrack(ctx, tr.ID)
		assert.NoError(t, err)

		stats, err := c.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.PlaylistEntries)
		assert.Equal(t, 1, stats.Playlists)
	})
}

func TestCatalogs_QueryTracks(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")
		other := newLibrary(t, c, "/other", "")

		add := func(path, artist, album, genre, title string, year, number int, libID int64) *music.Track {
			tr, err := c.UpsertTrack(ctx, music.TrackInput{
				Path:      path,
				LibraryID: libID,
				Metadata: music.Metadata{
					Title: title, Artist: artist, Album: album, Genre: genre,
					Year: year, TrackNumber: number,
				},
			})
			require.NoError(t, err)
			return tr
		}
		xy2 := add("/music/xy2.mp3", "X", "Y", "Rock", "Second", 1999, 2, lib.ID)
		xy1 := add("/music/xy1.mp3", "X", "Y", "Rock", "First", 1999, 1, lib.ID)
		xz1 := add("/music/xz1.mp3", "X", "Z", "Jazz", "Other", 2005, 1, lib.ID)
		wy1 := add("/music/wy1.mp3", "W", "Y", "Rock", "Björk Cover", 2010, 1, lib.ID)
		o1 := add("/other/o1.mp3", "x", "Y", "Pop", "Lower", 1980, 1, other.ID)

		got, err := c.QueryTracks(ctx, music.TrackFilter{Artist: "X", Album: "Y"})
		require.NoError(t, err)
		assert.Equal(t, []int64{xy1.ID, xy2.ID}, trackIDs(got))

		got, err = c.QueryTracks(ctx, music.TrackFilter{Artist: "X"})
		require.NoError(t, err)
		assert.Equal(t, []int64{xy1.ID, xy2.ID, xz1.ID}, trackIDs(got))

		got, err = c.QueryTracks(ctx, music.TrackFilter{Genre: "Rock", SortBy: music.SortByTitle})
		require.NoError(t, err)
		assert.Equal(t, []int64{wy1.ID, xy1.ID, xy2.ID}, trackIDs(got))

		got, err = c.QueryTracks(ctx, music.TrackFilter{Search: "bjork"})
		require.NoError(t, err)
		assert.Equal(t, []int64{wy1.ID}, trackIDs(got))

		got, err = c.QueryTracks(ctx, music.TrackFilter{LibraryID: other.ID})
		require.NoError(t, err)
		assert.Equal(t, []int64{o1.ID}, trackIDs(got))

		got, err = c.QueryTracks(ctx, music.TrackFilter{SortBy: music.SortByYear, Desc: true})
		require.NoError(t, err)
		assert.Equal(t, []int64{wy1.ID, xz1.ID, xy2.ID, xy1.ID, o1.ID}, trackIDs(got))

		got, err = c.QueryTracks(ctx, music.TrackFilter{SortBy: music.SortByPath, Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []int64{xy1.ID, xy2.ID}, trackIDs(got))

		got, err = c.QueryTracks(ctx, music.TrackFilter{SortBy: music.SortByPath, Offset: 4})
		require.NoError(t, err)
		assert.Equal(t, []int64{o1.ID}, trackIDs(got))

		n, err := c.CountTracks(ctx, music.TrackFilter{Genre: "Rock", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		_, err = c.QueryTracks(ctx, music.TrackFilter{SortBy: "bpm"})
		assert.ErrorIs(t, err, music.ErrValidation)
		_, err = c.QueryTracks(ctx, music.TrackFilter{Limit: -1})
		assert.ErrorIs(t, err, music.ErrValidation)
	})
}

func TestCatalogs_ClearAndPruneLibrary(t *testing.T) {
	forEachCatalog(t, func(t *testing.T, c music.Catalog) {
		ctx := context.Background()
		lib := newLibrary(t, c, "/music", "")
		other := newLibrary(t, c, "/other", "")
		a := newTrack(t, c, lib.ID, "/music/a.mp3", "A", "B", 1)
		newTrack(t, c, lib.ID, "/music/b.mp3", "A", "B", 2)
		newTrack(t, c, lib.ID, "/music/c.mp3", "A", "B", 3)
		o := newTrack(t, c, other.ID, "/other/o.mp3", "A", "B", 1)

		p, err := c.CreatePlaylist(ctx, "Mix")
		require.NoError(t, err)
		for _, path := range []string{"/music/c.mp3", "/other/o.mp3", "/music/a.mp3"} {
			tr, err := c.GetTrackByPath(ctx, path)
			require.NoError(t, err)
			_, err = c.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
			require.NoError(t, err)
		}

		removed, err := c.PruneLibrary(ctx, lib.ID, []string{"/music/a.mp3", "/other/o.mp3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/music/b.mp3", "/music/c.mp3"}, removed)

		tracks, err := c.ListPlaylistTracks(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{o.ID, a.ID}, trackIDs(tracks))

		n, err := c.ClearLibrary(ctx, lib.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		entries, err := c.ListPlaylistEntries(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, o.ID, entries[0].TrackID)
		assert.Equal(t, 0, entries[0].Position)

		_, err = c.GetLibrary(ctx, lib.ID)
		assert.NoError(t, err)

		_, err = c.ClearLibrary(ctx, 9999)
		assert.ErrorIs(t, err, music.ErrNotFound)
		_, err = c.PruneLibrary(ctx, 9999, nil)
		assert.ErrorIs(t, err, music.ErrNotFound)
	})
}

func TestSqliteCatalog_ReopenKeepsIdentity(t *testing.T) {
	for _, driver := range []string{database.DriverCgo, database.DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "catalog.db")

			c, err := database.NewSqliteCatalog(ctx, driver, path, music.Options{})
			require.NoError(t, err)
			id, err := c.CatalogID(ctx)
			require.NoError(t, err)
			sentinel, err := c.GetLibraryByPath(ctx, music.SentinelLibraryPath)
			require.NoError(t, err)
			lib := newLibrary(t, c, "/music", "Main")
			newTrack(t, c, lib.ID, "/music/a.mp3", "A", "B", 1)
			require.NoError(t, c.Close())

			c, err = database.NewSqliteCatalog(ctx, driver, path, music.Options{})
			require.NoError(t, err)
			defer c.Close()

			again, err := c.CatalogID(ctx)
			require.NoError(t, err)
			assert.Equal(t, id, again)

			libs, err := c.ListLibraries(ctx)
			require.NoError(t, err)
			require.Len(t, libs, 2)
			assert.Equal(t, sentinel.ID, libs[0].ID)

			stats, err := c.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Tracks)
			assert.Equal(t, int64(180), stats.TotalLength)
		})
	}
}

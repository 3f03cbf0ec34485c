package playlists

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/contre95/muscat/src/features/metrics"
	"github.com/contre95/muscat/src/infra/memory"
	"github.com/contre95/muscat/src/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, opts music.Options) (*Service, music.Catalog, []*music.Track) {
	t.Helper()
	ctx := context.Background()
	catalog := memory.NewCatalog(opts)
	lib, err := catalog.CreateLibrary(ctx, "/music", "Main")
	require.NoError(t, err)

	var tracks []*music.Track
	for _, in := range []music.TrackInput{
		{Path: "/music/joga.flac", Metadata: music.Metadata{Title: "Jóga", Artist: "Björk"}, Length: 305},
		{Path: "/music/hunter.flac", Metadata: music.Metadata{Title: "Hunter", Artist: "Björk"}, Length: 255},
		{Path: "/music/intro.mp3", Length: 0},
	} {
		in.LibraryID = lib.ID
		tr, err := catalog.UpsertTrack(ctx, in)
		require.NoError(t, err)
		tracks = append(tracks, tr)
	}
	return NewService(catalog, metrics.NewRecorder()), catalog, tracks
}

func TestExportImportM3U_RoundTrip(t *testing.T) {
	ctx := context.Background()
	service, _, tracks := setup(t, music.Options{})

	p, err := service.CreatePlaylist(ctx, "Homogenic")
	require.NoError(t, err)
	for _, tr := range []*music.Track{tracks[1], tracks[0], tracks[2], tracks[1]} {
		_, err := service.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
		require.NoError(t, err)
	}

	content, err := service.ExportM3U(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n"+
		"#EXTINF:255,Björk - Hunter\n/music/hunter.flac\n"+
		"#EXTINF:305,Björk - Jóga\n/music/joga.flac\n"+
		"#EXTINF:-1,/music/intro.mp3\n/music/intro.mp3\n"+
		"#EXTINF:255,Björk - Hunter\n/music/hunter.flac\n", content)

	res, err := service.ImportM3U(ctx, "Copy", content)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Added)
	assert.Empty(t, res.Skipped)

	original, err := service.GetPlaylistTracks(ctx, p.ID)
	require.NoError(t, err)
	copied, err := service.GetPlaylistTracks(ctx, res.Playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, original, copied)
}

func TestImportM3U_SkipsUnknownAndDuplicatePaths(t *testing.T) {
	ctx := context.Background()
	service, _, tracks := setup(t, music.Options{UniquePlaylistEntries: true})

	content := "#EXTM3U\n/music/joga.flac\n/elsewhere/missing.mp3\n/music/joga.flac\n/music/hunter.flac\n"
	res, err := service.ImportM3U(ctx, "Imported", content)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, []string{"/elsewhere/missing.mp3", "/music/joga.flac"}, res.Skipped)

	got, err := service.GetPlaylistTracks(ctx, res.Playlist.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, tracks[0].ID, got[0].ID)
	assert.Equal(t, tracks[1].ID, got[1].ID)

	_, err = service.ImportM3U(ctx, "Imported", content)
	assert.ErrorIs(t, err, music.ErrConflict)
}

func TestM3UFiles(t *testing.T) {
	ctx := context.Background()
	service, _, tracks := setup(t, music.Options{})
	dir := t.TempDir()

	p, err := service.CreatePlaylist(ctx, "Files")
	require.NoError(t, err)
	_, err = service.AddTrackToPlaylist(ctx, p.ID, tracks[0].ID, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, "files.m3u")
	require.NoError(t, service.ExportM3UFile(ctx, p.ID, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/music/joga.flac")

	res, err := service.ImportM3UFile(ctx, path, "From File")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	_, err = service.ImportM3UFile(ctx, filepath.Join(dir, "missing.m3u"), "Nope")
	assert.Error(t, err)
	assert.ErrorIs(t, service.ExportM3UFile(ctx, 999, path), music.ErrNotFound)
}

func TestPlaylistEditing(t *testing.T) {
	ctx := context.Background()
	service, _, tracks := setup(t, music.Options{})

	p, err := service.CreatePlaylist(ctx, "Edit")
	require.NoError(t, err)
	for _, tr := range tracks {
		_, err := service.AddTrackToPlaylist(ctx, p.ID, tr.ID, nil)
		require.NoError(t, err)
	}

	pos := 0
	_, err = service.AddTrackToPlaylist(ctx, p.ID, tracks[2].ID, &pos)
	require.NoError(t, err)
	require.NoError(t, service.MoveEntry(ctx, p.ID, 0, 3))
	require.NoError(t, service.RemoveAt(ctx, p.ID, 1))

	entries, err := service.GetPlaylistEntries(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int64{tracks[0].ID, tracks[2].ID, tracks[2].ID},
		[]int64{entries[0].TrackID, entries[1].TrackID, entries[2].TrackID})

	require.NoError(t, service.RemoveEntry(ctx, p.ID, entries[0].ID))
	assert.ErrorIs(t, service.RemoveEntry(ctx, p.ID, entries[0].ID), music.ErrNotFound)

	require.NoError(t, service.RenamePlaylist(ctx, p.ID, "Edited"))
	got, err := service.GetPlaylistByName(ctx, "Edited")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	other, err := service.CreatePlaylist(ctx, "Other")
	require.NoError(t, err)
	_, err = service.AddTrackToPlaylist(ctx, other.ID, tracks[0].ID, nil)
	require.NoError(t, err)

	containing, err := service.GetPlaylistsContainingTrack(ctx, tracks[2].ID)
	require.NoError(t, err)
	require.Len(t, containing, 1)
	assert.Equal(t, "Edited", containing[0].Name)

	require.NoError(t, service.DeletePlaylist(ctx, p.ID))
	all, err := service.GetAllPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, other.ID, all[0].ID)
}

func TestExportAll_WritesOneFilePerPlaylist(t *testing.T) {
	ctx := context.Background()
	service, _, tracks := setup(t, music.Options{})

	for _, name := range []string{"Road Trip", "AC/DC", "AC_DC"} {
		p, err := service.CreatePlaylist(ctx, name)
		require.NoError(t, err)
		_, err = service.AddTrackToPlaylist(ctx, p.ID, tracks[0].ID, nil)
		require.NoError(t, err)
	}
	acdc, err := service.GetPlaylistByName(ctx, "AC_DC")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "exports")
	written, err := service.ExportAll(ctx, dir)
	require.NoError(t, err)
	require.Len(t, written, 3)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"AC_DC.m3u", "AC_DC-" + music.IDKey(acdc.ID) + ".m3u", "Road Trip.m3u"}, names)

	content, err := os.ReadFile(filepath.Join(dir, "Road Trip.m3u"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "/music/joga.flac")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "AC_DC", fileName("AC/DC"))
	assert.Equal(t, "What_", fileName(" What? "))
	assert.Equal(t, "playlist", fileName(".."))
	assert.Equal(t, "playlist", fileName("  "))
}

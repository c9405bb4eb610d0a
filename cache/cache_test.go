package cache

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibemanga/vibemanga/mangadata"
)

func sampleLibrary(root string) *mangadata.Library {
	lib := mangadata.NewLibrary(root)
	main := mangadata.NewCategory(root + "/Manga")
	main.Name = "Manga"
	sub := mangadata.NewCategory(root + "/Manga/Action")
	sub.Name = "Action"
	series := mangadata.NewSeries(root + "/Manga/Action/One Piece")
	series.FolderName = "One Piece"
	series.Volumes = append(series.Volumes, &mangadata.Volume{Path: series.Path + "/v01.cbz", Stem: "v01"})
	sub.Series = append(sub.Series, series)
	main.Children = append(main.Children, sub)
	lib.MainCategories = append(lib.MainCategories, main)
	return lib
}

func TestCacheRoundTripFast(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/cachedir", time.Hour, nil)
	lib := sampleLibrary("/library")

	diags := store.Write(lib)
	assert.True(t, diags.IsEmpty())

	snap, readDiags, ok := store.Read("/library")
	require.True(t, ok)
	assert.True(t, readDiags.IsEmpty())
	assert.True(t, snap.FromFast)
	assert.True(t, snap.Fresh)
	assert.Equal(t, "/library", snap.Library.Root)
	assert.Equal(t, "One Piece", snap.Library.MainCategories[0].Children[0].Series[0].FolderName)
}

func TestCacheFallsBackToDurableOnCorruptFast(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/cachedir", time.Hour, nil)
	lib := sampleLibrary("/library")

	require.True(t, store.Write(lib).IsEmpty())

	key := Key("/library")
	require.NoError(t, afero.WriteFile(fs, store.fastPath(key), []byte("not a real frame"), 0o644))

	snap, diags, ok := store.Read("/library")
	require.True(t, ok)
	assert.False(t, snap.FromFast)
	assert.False(t, diags.IsEmpty())
	assert.Equal(t, "/library", snap.Library.Root)
}

func TestCacheMissReturnsNoDiagnostic(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/cachedir", time.Hour, nil)

	snap, diags, ok := store.Read("/nowhere")
	assert.False(t, ok)
	assert.True(t, diags.IsEmpty())
	assert.Nil(t, snap.Library)
}

func TestCacheStaleFastSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/cachedir", time.Nanosecond, nil)
	lib := sampleLibrary("/library")
	require.True(t, store.Write(lib).IsEmpty())

	time.Sleep(time.Millisecond)

	snap, _, ok := store.Read("/library")
	require.True(t, ok)
	assert.False(t, snap.Fresh)
}

func TestCacheDifferentRootsDoNotCollide(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := New(fs, "/cachedir", time.Hour, nil)

	require.True(t, store.Write(sampleLibrary("/a")).IsEmpty())
	require.True(t, store.Write(sampleLibrary("/b")).IsEmpty())

	snapA, _, ok := store.Read("/a")
	require.True(t, ok)
	assert.Equal(t, "/a", snapA.Library.Root)

	snapB, _, ok := store.Read("/b")
	require.True(t, ok)
	assert.Equal(t, "/b", snapB.Library.Root)
}

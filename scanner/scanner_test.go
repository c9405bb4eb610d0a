package scanner

import (
	"context"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibemanga/vibemanga/progress"
)

func writeFile(t *testing.T, fs afero.Fs, path string, size int) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, make([]byte, size), 0o644))
}

func buildSampleTree(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	root := "/library"
	writeFile(t, fs, root+"/Manga/Action/One Piece/v01.cbz", 1024)
	writeFile(t, fs, root+"/Manga/Action/One Piece/v02.cbz", 2048)
	require.NoError(t, afero.WriteFile(fs, root+"/Manga/Action/One Piece/series.json",
		[]byte(`{"title":"One Piece"}`), 0o644))
	writeFile(t, fs, root+"/Manga/Drama/Berserk/Scanlation Group/v01.cbr", 4096)
	return fs
}

func TestScanBuildsFourLevelHierarchy(t *testing.T) {
	fs := buildSampleTree(t)
	lib, diags, err := Scan(context.Background(), fs, "/library", nil, Options{})
	require.NoError(t, err)
	assert.True(t, diags.IsEmpty())

	require.Len(t, lib.MainCategories, 1)
	main := lib.MainCategories[0]
	assert.Equal(t, "Manga", main.Name)
	require.Len(t, main.Children, 2)
	assert.Equal(t, "Action", main.Children[0].Name)
	assert.Equal(t, "Drama", main.Children[1].Name)

	action := main.Children[0]
	require.Len(t, action.Series, 1)
	onePiece := action.Series[0]
	assert.Equal(t, "One Piece", onePiece.FolderName)
	assert.Len(t, onePiece.Volumes, 2)
	assert.Equal(t, "One Piece", onePiece.Metadata.Title)

	drama := main.Children[1]
	require.Len(t, drama.Series, 1)
	berserk := drama.Series[0]
	require.Len(t, berserk.SubGroups, 1)
	assert.Equal(t, "Scanlation Group", berserk.SubGroups[0].Name)
	assert.Len(t, berserk.SubGroups[0].Volumes, 1)
}

func TestScanReusesUnchangedVolumes(t *testing.T) {
	fs := buildSampleTree(t)
	first, _, err := Scan(context.Background(), fs, "/library", nil, Options{})
	require.NoError(t, err)

	second, _, err := Scan(context.Background(), fs, "/library", first, Options{})
	require.NoError(t, err)

	firstVol, ok := first.MainCategories[0].Children[0].Series[0].VolumeByStem("v01")
	require.True(t, ok)
	secondVol, ok := second.MainCategories[0].Children[0].Series[0].VolumeByStem("v01")
	require.True(t, ok)
	assert.Same(t, firstVol, secondVol)
}

func TestScanDetectsChangedVolume(t *testing.T) {
	fs := buildSampleTree(t)
	first, _, err := Scan(context.Background(), fs, "/library", nil, Options{})
	require.NoError(t, err)

	writeFile(t, fs, "/library/Manga/Action/One Piece/v01.cbz", 9999)

	second, _, err := Scan(context.Background(), fs, "/library", first, Options{})
	require.NoError(t, err)

	firstVol, _ := first.MainCategories[0].Children[0].Series[0].VolumeByStem("v01")
	secondVol, _ := second.MainCategories[0].Children[0].Series[0].VolumeByStem("v01")
	assert.NotSame(t, firstVol, secondVol)
	assert.Equal(t, int64(9999), secondVol.Size)
}

func TestScanCancellationReturnsIncomplete(t *testing.T) {
	fs := buildSampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lib, _, err := Scan(ctx, fs, "/library", nil, Options{})
	require.Error(t, err)
	assert.True(t, lib.Incomplete)
}

func TestScanMissingRootIsPrecondition(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, _, err := Scan(context.Background(), fs, "/nowhere", nil, Options{})
	require.Error(t, err)
}

func TestScanProgressSinkReceivesEvents(t *testing.T) {
	fs := buildSampleTree(t)
	var mu sync.Mutex
	var count int
	_, _, err := Scan(context.Background(), fs, "/library", nil, Options{
		Progress: func(e progress.Event) {
			mu.Lock()
			count++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

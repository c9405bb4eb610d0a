package vibemanga

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibemanga/vibemanga/config"
	"github.com/vibemanga/vibemanga/matcher"
	"github.com/vibemanga/vibemanga/parser"
)

func writeVolume(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte("data"), 0o644))
}

func buildTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	root := "/library"

	writeVolume(t, fs, root+"/Manga/Action/Attack on Titan/v01.cbz")
	writeVolume(t, fs, root+"/Manga/Action/Attack on Titan/v02.cbz")

	mgr := NewManager(ManagerOptions{
		Config: config.Default(),
		FS:     fs,
	})
	return mgr, root
}

func TestManagerScanThenBuildIndexThenMatch(t *testing.T) {
	mgr, root := buildTestManager(t)

	lib, diags, err := mgr.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, diags.IsEmpty())
	require.NotNil(t, lib)
	assert.Same(t, lib, mgr.Library())

	idx, _, err := mgr.BuildIndex()
	require.NoError(t, err)
	assert.Same(t, idx, mgr.Index())

	p := parser.New(config.Default()).Parse(parser.Input{Source: "Attack on Titan v01.cbz"})
	result, err := mgr.Match(p, matcher.Hint{})
	require.NoError(t, err)
	assert.Equal(t, matcher.ReasonSynonym, result.Reason)
	require.NotNil(t, result.Series)
	assert.Equal(t, "Attack on Titan", result.Series.FolderName)
}

func TestManagerBuildIndexBeforeScanErrors(t *testing.T) {
	mgr := NewManager(ManagerOptions{Config: config.Default(), FS: afero.NewMemMapFs()})
	_, _, err := mgr.BuildIndex()
	assert.Error(t, err)
}

func TestManagerMatchBeforeBuildIndexErrors(t *testing.T) {
	mgr, root := buildTestManager(t)
	_, _, err := mgr.Scan(context.Background(), root)
	require.NoError(t, err)

	_, err = mgr.Match(parser.Parsed{}, matcher.Hint{})
	assert.Error(t, err)
}

func TestManagerPlanAndApplyRename(t *testing.T) {
	mgr, root := buildTestManager(t)
	lib, _, err := mgr.Scan(context.Background(), root)
	require.NoError(t, err)

	series := lib.MainCategories[0].Children[0].Series[0]
	plan := mgr.PlanRename(series)
	assert.NotEmpty(t, plan)

	lastOK, err := mgr.ApplyRename(plan)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, lastOK, 0)
}

func TestManagerDetectDuplicatesBeforeScanErrors(t *testing.T) {
	mgr := NewManager(ManagerOptions{Config: config.Default(), FS: afero.NewMemMapFs()})
	_, err := mgr.DetectDuplicates(context.Background())
	assert.Error(t, err)
}

func TestManagerDetectDuplicatesAfterScan(t *testing.T) {
	mgr, root := buildTestManager(t)
	_, _, err := mgr.Scan(context.Background(), root)
	require.NoError(t, err)

	report, err := mgr.DetectDuplicates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.IDCollisions)
}

func TestCancellableContextCancelStopsScan(t *testing.T) {
	mgr, root := buildTestManager(t)
	ctx, cancel := CancellableContext(context.Background())
	cancel()

	lib, _, err := mgr.Scan(ctx, root)
	require.Error(t, err)
	if lib != nil {
		assert.True(t, lib.Incomplete)
	}
}

func TestManagerScanWritesAndReadsCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/library"
	writeVolume(t, fs, root+"/Manga/Action/Naruto/v01.cbz")

	mgr := NewManager(ManagerOptions{
		Config:   config.Default(),
		FS:       fs,
		CacheDir: "/cache",
	})

	_, _, err := mgr.Scan(context.Background(), root)
	require.NoError(t, err)

	exists, _ := afero.DirExists(fs, "/cache")
	assert.True(t, exists)

	snap, _, ok := mgr.cache.Read(root)
	require.True(t, ok)
	assert.Equal(t, root, snap.Library.Root)
}

package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibemanga/vibemanga/config"
	"github.com/vibemanga/vibemanga/mangadata"
)

func intPtr(n int) *int { return &n }

func buildLibrary() *mangadata.Library {
	lib := mangadata.NewLibrary("/library")

	a := mangadata.NewSeries("/library/Manga/Action/One Piece")
	a.Metadata.MALID = intPtr(13)
	a.Volumes = []*mangadata.Volume{{Path: "/library/Manga/Action/One Piece/v01.cbz", Stem: "v01", Size: 1000, PageCount: intPtr(20)}}

	b := mangadata.NewSeries("/library/Manga/Shounen/One Piece (dup)")
	b.Metadata.MALID = intPtr(13)
	b.Volumes = []*mangadata.Volume{{Path: "/library/Manga/Shounen/One Piece (dup)/v01.cbz", Stem: "v01", Size: 1000, PageCount: intPtr(20)}}

	c := mangadata.NewSeries("/library/Manga/Action/Naruto")
	c.Volumes = []*mangadata.Volume{{Path: "/library/Manga/Action/Naruto/v01.cbz", Stem: "v01", Size: 2048}}

	d := mangadata.NewSeries("/library/Manga/Shounen/Naruto Backup")
	d.Volumes = []*mangadata.Volume{{Path: "/library/Manga/Shounen/Naruto Backup/v01.cbz", Stem: "v01", Size: 2048}}

	e := mangadata.NewSeries("/library/Manga/Action/Spy x Family")
	e.Volumes = []*mangadata.Volume{{Path: "/library/Manga/Action/Spy x Family/v01.cbz", Stem: "v01", Size: 999}}

	f := mangadata.NewSeries("/library/Manga/Shounen/Spy Family")
	f.Volumes = []*mangadata.Volume{{Path: "/library/Manga/Shounen/Spy Family/v01.cbz", Stem: "v01", Size: 777}}

	unrelated := mangadata.NewSeries("/library/Manga/Action/Completely Unrelated Title Here")

	action := mangadata.NewCategory("/library/Manga/Action")
	action.Series = []*mangadata.Series{a, c, e, unrelated}

	shounen := mangadata.NewCategory("/library/Manga/Shounen")
	shounen.Series = []*mangadata.Series{b, d, f}

	main := mangadata.NewCategory("/library/Manga")
	main.Children = []*mangadata.Category{action, shounen}

	lib.MainCategories = []*mangadata.Category{main}
	return lib
}

func TestDetectIDCollisions(t *testing.T) {
	lib := buildLibrary()
	report, err := Detect(context.Background(), lib, config.Default(), Options{})
	require.NoError(t, err)

	require.Len(t, report.IDCollisions, 1)
	group := report.IDCollisions[0]
	assert.Equal(t, 13, group.MALID)
	assert.Equal(t, 1.0, group.Confidence)
	assert.Len(t, group.Series, 2)
}

func TestDetectContentCollisionsWithKnownPageCount(t *testing.T) {
	lib := buildLibrary()
	report, err := Detect(context.Background(), lib, config.Default(), Options{})
	require.NoError(t, err)

	var withPages *ContentGroup
	for i := range report.ContentGroups {
		if report.ContentGroups[i].Size == 1000 {
			withPages = &report.ContentGroups[i]
		}
	}
	require.NotNil(t, withPages)
	assert.False(t, withPages.SizeOnly)
	assert.Equal(t, 0.95, withPages.Confidence)
	require.NotNil(t, withPages.PageCount)
	assert.Equal(t, 20, *withPages.PageCount)
	assert.Len(t, withPages.Volumes, 2)
}

func TestDetectContentCollisionsSizeOnly(t *testing.T) {
	lib := buildLibrary()
	report, err := Detect(context.Background(), lib, config.Default(), Options{})
	require.NoError(t, err)

	var sizeOnly *ContentGroup
	for i := range report.ContentGroups {
		if report.ContentGroups[i].Size == 2048 {
			sizeOnly = &report.ContentGroups[i]
		}
	}
	require.NotNil(t, sizeOnly)
	assert.True(t, sizeOnly.SizeOnly)
	assert.Equal(t, 0.75, sizeOnly.Confidence)
	assert.Nil(t, sizeOnly.PageCount)
	assert.Len(t, sizeOnly.Volumes, 2)
}

func TestDetectContentCollisionsIgnoreSingletons(t *testing.T) {
	lib := buildLibrary()
	report, err := Detect(context.Background(), lib, config.Default(), Options{})
	require.NoError(t, err)

	for _, g := range report.ContentGroups {
		assert.NotEqual(t, int64(999), g.Size, "the 999-byte volume has no size-collision partner and should not be grouped")
		assert.NotEqual(t, int64(777), g.Size, "the 777-byte volume has no size-collision partner and should not be grouped")
	}
}

func TestDetectFuzzyNameCollisionsFindsOnePiecePairButNotSpyFamily(t *testing.T) {
	lib := buildLibrary()
	report, err := Detect(context.Background(), lib, config.Default(), Options{Concurrency: 2})
	require.NoError(t, err)

	found := false
	spyFound := false
	for _, pair := range report.FuzzyNamePairs {
		names := []string{pair.A.FolderName, pair.B.FolderName}
		if contains(names, "One Piece") && contains(names, "One Piece (dup)") {
			found = true
			assert.GreaterOrEqual(t, pair.Confidence, fuzzyNameThreshold)
		}
		if contains(names, "Spy x Family") && contains(names, "Spy Family") {
			spyFound = true
		}
	}
	assert.True(t, found, "expected a fuzzy name pair between One Piece and One Piece (dup)")
	// "spy x family" vs "spy family" scores an LCS ratio of 20/22 ≈ 0.909,
	// below the detector's fixed 0.95 threshold.
	assert.False(t, spyFound, "Spy x Family / Spy Family should not clear the 0.95 threshold")
}

func TestDetectFuzzyNameCollisionsExcludesUnrelatedTitles(t *testing.T) {
	lib := buildLibrary()
	report, err := Detect(context.Background(), lib, config.Default(), Options{})
	require.NoError(t, err)

	for _, pair := range report.FuzzyNamePairs {
		names := []string{pair.A.FolderName, pair.B.FolderName}
		assert.False(t, contains(names, "Completely Unrelated Title Here"))
	}
}

func TestDetectFuzzyNameCollisionsUsesFixedThresholdNotMatcherThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.FuzzyThreshold = 0.50 // far below fuzzyNameThreshold, should have no effect here
	lib := buildLibrary()
	report, err := Detect(context.Background(), lib, cfg, Options{})
	require.NoError(t, err)

	for _, pair := range report.FuzzyNamePairs {
		assert.GreaterOrEqual(t, pair.Confidence, fuzzyNameThreshold)
	}
}

func TestWithinTokenRatioRejectsMismatchedLengths(t *testing.T) {
	assert.True(t, withinTokenRatio("spy family", "spy x family"))
	assert.False(t, withinTokenRatio("ab", "abcdefghijk"))
	assert.False(t, withinTokenRatio("", "anything"))
}

func TestDetectIsDeterministicAcrossRuns(t *testing.T) {
	lib := buildLibrary()
	cfg := config.Default()

	first, err := Detect(context.Background(), lib, cfg, Options{Concurrency: 3})
	require.NoError(t, err)
	second, err := Detect(context.Background(), lib, cfg, Options{Concurrency: 3})
	require.NoError(t, err)

	assert.Equal(t, first.FuzzyNamePairs, second.FuzzyNamePairs)
	assert.Equal(t, first.IDCollisions, second.IDCollisions)
}

func TestDetectReturnsPartialResultsOnCancellation(t *testing.T) {
	lib := buildLibrary()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Detect(ctx, lib, config.Default(), Options{})
	require.Error(t, err)
	// ID/content detection does not observe ctx, so it completes even when cancelled.
	assert.Len(t, report.IDCollisions, 1)
}

func contains(items []string, target string) bool {
	for _, s := range items {
		if s == target {
			return true
		}
	}
	return false
}

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibemanga/vibemanga/mangadata"
)

func intPtr(n int) *int { return &n }

func buildLibrary() *mangadata.Library {
	lib := mangadata.NewLibrary("/library")
	main := mangadata.NewCategory("/library/Manga")
	main.Name = "Manga"
	sub := mangadata.NewCategory("/library/Manga/Action")
	sub.Name = "Action"

	onePiece := mangadata.NewSeries("/library/Manga/Action/One Piece")
	onePiece.FolderName = "One Piece"
	onePiece.Metadata.MALID = intPtr(13)
	onePiece.Metadata.TitleEnglish = "One Piece"
	onePiece.Metadata.Synonyms = []string{"OP"}

	impostor := mangadata.NewSeries("/library/Manga/Action/Impostor")
	impostor.FolderName = "Impostor"
	impostor.Metadata.MALID = intPtr(13)

	noIdentity := mangadata.NewSeries("/library/Manga/Action/Blank")
	noIdentity.FolderName = ""

	sub.Series = append(sub.Series, onePiece, impostor, noIdentity)
	main.Children = append(main.Children, sub)
	lib.MainCategories = append(lib.MainCategories, main)
	return lib
}

func TestBuildByID(t *testing.T) {
	lib := buildLibrary()
	idx, diags := Build(lib)

	series, ok := idx.GetByID(13)
	require.True(t, ok)
	assert.Equal(t, "One Piece", series.FolderName)
	assert.False(t, diags.IsEmpty())
}

func TestBuildByTitleEverySeriesIdentityResolves(t *testing.T) {
	lib := buildLibrary()
	idx, _ := Build(lib)

	for _, s := range lib.AllSeries() {
		for _, identity := range s.Identities() {
			if identity == "" {
				continue
			}
			results := idx.Search(identity)
			assert.Contains(t, results, s, "identity %q for %s should resolve", identity, s.Path)
		}
	}
}

func TestSearchMissReturnsEmptyNotNil(t *testing.T) {
	lib := buildLibrary()
	idx, _ := Build(lib)

	results := idx.Search("nonexistent series")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchIsNormalized(t *testing.T) {
	lib := buildLibrary()
	idx, _ := Build(lib)

	results := idx.Search("THE one, piece")
	require.NotEmpty(t, results)
	for _, s := range results {
		assert.Equal(t, "One Piece", s.FolderName)
	}
}

func TestGetByIDMiss(t *testing.T) {
	lib := buildLibrary()
	idx, _ := Build(lib)

	_, ok := idx.GetByID(999)
	assert.False(t, ok)
}

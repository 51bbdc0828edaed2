package library_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Combjellyshen/ZoteroBridge/internal/library"
	"github.com/Combjellyshen/ZoteroBridge/internal/zoterotest"
)

func TestFindDuplicatesByDOI(t *testing.T) {
	f := zoterotest.New(t)

	a := f.AddItem("journalArticle", map[string]string{"DOI": "10.1000/XYZ"})
	b := f.AddItem("journalArticle", map[string]string{"DOI": "10.1000/xyz"})
	f.AddItem("journalArticle", map[string]string{"DOI": "10.2000/unique"})

	s := newSession(t, f)

	groups, err := library.FindDuplicates(s, "doi")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "10.1000/xyz", groups[0].Value)
	assert.Equal(t, 2, groups[0].Count)
	assert.ElementsMatch(t, []int64{a, b}, groups[0].ItemIDs)
}

func TestFindDuplicatesByISBN(t *testing.T) {
	f := zoterotest.New(t)

	a := f.AddItem("book", map[string]string{"ISBN": "978-0-13-468599-1"})
	b := f.AddItem("book", map[string]string{"ISBN": "9780134685991"})

	s := newSession(t, f)

	groups, err := library.FindDuplicates(s, "isbn")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []int64{a, b}, groups[0].ItemIDs)
}

func TestFindDuplicatesByTitleLargestFirst(t *testing.T) {
	f := zoterotest.New(t)

	for i := 0; i < 3; i++ {
		f.AddItem("book", map[string]string{"title": "Common Title"})
	}
	for i := 0; i < 2; i++ {
		f.AddItem("book", map[string]string{"title": "Rarer Title"})
	}
	// Exact matching: a case variant is a different title.
	f.AddItem("book", map[string]string{"title": "common title"})

	s := newSession(t, f)

	groups, err := library.FindDuplicates(s, "title")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Common Title", groups[0].Value)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "Rarer Title", groups[1].Value)
}

func TestFindDuplicatesExcludesNotesAndAttachments(t *testing.T) {
	f := zoterotest.New(t)

	f.AddItem("book", map[string]string{"title": "Spread"})
	note := f.AddItem("note", nil)
	f.SetField(note, "title", "Spread")

	s := newSession(t, f)

	groups, err := library.FindDuplicates(s, "title")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindDuplicatesUnsupportedField(t *testing.T) {
	f := zoterotest.New(t)
	s := newSession(t, f)

	_, err := library.FindDuplicates(s, "color")
	assert.Error(t, err)
}

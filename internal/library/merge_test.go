package library_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
	"github.com/Combjellyshen/ZoteroBridge/internal/library"
	"github.com/Combjellyshen/ZoteroBridge/internal/zoterotest"
)

func TestMergeItems(t *testing.T) {
	f := zoterotest.New(t)

	target := f.AddItem("journalArticle", map[string]string{"title": "Kept"})
	a := f.AddItem("journalArticle", map[string]string{"title": "Dupe A"})
	b := f.AddItem("journalArticle", map[string]string{"title": "Dupe B"})

	f.AddTag(a, "ml", database.TagTypeManual)
	f.AddTag(a, "nlp", database.TagTypeManual)
	f.AddNote(a, "Reading notes", "<p>original text</p>")
	f.AddTag(b, "stats", database.TagTypeAutomatic)

	s := newSession(t, f)

	result, err := library.MergeItems(s, target, []int64{a, b})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 3, result.Tags)
	assert.Equal(t, 1, result.Notes)
	assert.Equal(t, target, result.TargetID)

	tags, err := s.DB().ItemTags(target)
	require.NoError(t, err)
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	assert.ElementsMatch(t, []string{"ml", "nlp", "stats"}, names)

	notes, err := s.DB().Notes(target)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Reading notes (merged from Dupe A)", notes[0].Title)
	assert.Equal(t, "<p>original text</p>", notes[0].Text)

	// Sources keep their own notes and tags; merge never deletes.
	sourceNotes, err := s.DB().Notes(a)
	require.NoError(t, err)
	assert.Len(t, sourceNotes, 1)
	sourceTags, err := s.DB().ItemTags(a)
	require.NoError(t, err)
	assert.Len(t, sourceTags, 2)
}

func TestMergeItemsMissingSource(t *testing.T) {
	f := zoterotest.New(t)

	target := f.AddItem("book", map[string]string{"title": "Kept"})
	a := f.AddItem("book", map[string]string{"title": "Dupe A"})
	f.AddTag(a, "ml", database.TagTypeManual)

	s := newSession(t, f)

	result, err := library.MergeItems(s, target, []int64{a, 99999})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.Contains(result.Errors[0], "99999"))

	// The healthy source still transfers.
	assert.Equal(t, 1, result.Tags)
}

func TestMergeItemsContinuesPastFailedTag(t *testing.T) {
	f := zoterotest.New(t)

	target := f.AddItem("book", map[string]string{"title": "Kept"})
	source := f.AddItem("book", map[string]string{"title": "Dupe"})

	// Tags transfer in name order; the middle one carries a type the
	// accessor rejects, so it fails mid-list.
	f.AddTag(source, "alpha", database.TagTypeManual)
	f.AddTag(source, "broken", 7)
	f.AddTag(source, "gamma", database.TagTypeManual)

	s := newSession(t, f)

	result, err := library.MergeItems(s, target, []int64{source})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "broken")

	// The failure must not abandon the source's remaining tags.
	assert.Equal(t, 2, result.Tags)

	tags, err := s.DB().ItemTags(target)
	require.NoError(t, err)
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	assert.ElementsMatch(t, []string{"alpha", "gamma"}, names)
}

func TestMergeItemsMissingTarget(t *testing.T) {
	f := zoterotest.New(t)
	f.AddItem("book", map[string]string{"title": "Dupe A"})

	s := newSession(t, f)

	_, err := library.MergeItems(s, 99999, nil)
	assert.Error(t, err)
}

func TestMergeItemsSkipsTargetInSources(t *testing.T) {
	f := zoterotest.New(t)

	target := f.AddItem("book", map[string]string{"title": "Kept"})
	f.AddTag(target, "keepme", database.TagTypeManual)

	s := newSession(t, f)

	result, err := library.MergeItems(s, target, []int64{target})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.Tags)
	assert.Zero(t, result.Notes)
}

func TestMergeItemsUntitledSourceUsesKey(t *testing.T) {
	f := zoterotest.New(t)

	target := f.AddItem("book", map[string]string{"title": "Kept"})
	source := f.AddItem("book", nil)
	f.AddNote(source, "", "<p>body</p>")

	s := newSession(t, f)

	result, err := library.MergeItems(s, target, []int64{source})
	require.NoError(t, err)
	require.True(t, result.Success)

	notes, err := s.DB().Notes(target)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Note (merged from "+f.ItemKey(source)+")", notes[0].Title)
}

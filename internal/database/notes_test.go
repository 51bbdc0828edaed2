package database_test

import (
	"errors"
	"testing"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
)

func TestCreateNote(t *testing.T) {
	h := setupTest(t)

	parent := h.fixture.AddItem("journalArticle", map[string]string{"title": "Paper"})
	versionBefore, _ := h.fixture.ItemVersion(parent)

	note, err := h.db.CreateNote(parent, "Reading notes", "<p>Interesting.</p>")
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	notes, err := h.db.Notes(parent)
	if err != nil {
		t.Fatalf("Notes failed: %v", err)
	}
	if len(notes) != 1 || notes[0].ItemID != note.ItemID {
		t.Fatalf("Unexpected notes: %+v", notes)
	}
	if notes[0].Text != "<p>Interesting.</p>" || notes[0].Title != "Reading notes" {
		t.Errorf("Note content mismatch: %+v", notes[0])
	}

	// The parent item carries the bookkeeping update, not the note row.
	if v, synced := h.fixture.ItemVersion(parent); v != versionBefore+1 || synced {
		t.Errorf("Parent after note: version %d synced %v", v, synced)
	}

	noteItem, err := h.db.GetItem(note.ItemID)
	if err != nil {
		t.Fatalf("GetItem on note failed: %v", err)
	}
	if noteItem.TypeName != "note" {
		t.Errorf("Note item type = %q", noteItem.TypeName)
	}
	if noteItem.LibraryID != 1 {
		t.Errorf("Note inherited library %d, want 1", noteItem.LibraryID)
	}
}

func TestCreateNoteMissingParent(t *testing.T) {
	h := setupTest(t)

	_, err := h.db.CreateNote(12345, "t", "x")
	if !errors.Is(err, database.ErrInvalidReference) {
		t.Errorf("CreateNote under missing parent = %v, want ErrInvalidReference", err)
	}
}

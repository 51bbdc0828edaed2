package database_test

import (
	"errors"
	"testing"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
	"github.com/Combjellyshen/ZoteroBridge/internal/zoterotest"
)

type testHelper struct {
	fixture *zoterotest.Fixture
	db      *database.DB
}

func setupTest(t *testing.T) *testHelper {
	t.Helper()

	fixture := zoterotest.New(t)
	db, err := database.Open(fixture.DBPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	return &testHelper{fixture: fixture, db: db}
}

func TestGetItem(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("journalArticle", map[string]string{
		"title": "Attention Is All You Need",
		"DOI":   "10.5555/3295222",
	})

	item, err := h.db.GetItem(id)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}

	if item.TypeName != "journalArticle" {
		t.Errorf("TypeName = %q, want journalArticle", item.TypeName)
	}
	if item.Fields["title"] != "Attention Is All You Need" {
		t.Errorf("title = %q", item.Fields["title"])
	}
	if item.Fields["DOI"] != "10.5555/3295222" {
		t.Errorf("DOI = %q", item.Fields["DOI"])
	}
	if !item.Synced {
		t.Error("Seeded item should start synced")
	}

	byKey, err := h.db.GetItemByKey(item.Key)
	if err != nil {
		t.Fatalf("GetItemByKey failed: %v", err)
	}
	if byKey.ID != id {
		t.Errorf("GetItemByKey returned item %d, want %d", byKey.ID, id)
	}
}

func TestGetItemNotFound(t *testing.T) {
	h := setupTest(t)

	_, err := h.db.GetItem(9999)
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetItem(9999) error = %v, want ErrNotFound", err)
	}
}

func TestSetItemFieldUpdatesBookkeeping(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("book", map[string]string{"title": "Old"})
	versionBefore, _ := h.fixture.ItemVersion(id)

	if err := h.db.SetItemField(id, "title", "New"); err != nil {
		t.Fatalf("SetItemField failed: %v", err)
	}

	item, err := h.db.GetItem(id)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Fields["title"] != "New" {
		t.Errorf("title = %q, want New", item.Fields["title"])
	}
	if item.Version != versionBefore+1 {
		t.Errorf("version = %d, want %d", item.Version, versionBefore+1)
	}
	if item.Synced {
		t.Error("synced flag must clear on mutation")
	}
}

func TestSetItemFieldUnknownField(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("book", nil)
	err := h.db.SetItemField(id, "noSuchField", "x")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("SetItemField on unknown field = %v, want ErrNotFound", err)
	}

	// The fields table belongs to the owner and must not grow.
	var n int64
	if err := h.fixture.QueryRow(
		"SELECT COUNT(*) FROM fields WHERE fieldName = 'noSuchField'",
	).Scan(&n); err != nil {
		t.Fatalf("Failed to count fields: %v", err)
	}
	if n != 0 {
		t.Error("Unknown field name must not be created")
	}
}

func TestCreateItem(t *testing.T) {
	h := setupTest(t)

	item, err := h.db.CreateItem("webpage", 1)
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if len(item.Key) != 8 {
		t.Errorf("Key %q has wrong length", item.Key)
	}
	if item.Version != 0 || item.Synced {
		t.Errorf("New item must start at version 0 unsynced, got v%d synced=%v",
			item.Version, item.Synced)
	}

	if _, err := h.db.GetItem(item.ID); err != nil {
		t.Errorf("Created item not readable: %v", err)
	}
}

func TestDeleteItemCascades(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("book", map[string]string{"title": "Doomed"})
	h.fixture.AddTag(id, "stale", 0)
	coll := h.fixture.AddCollection("Shelf", nil)
	h.fixture.AddToCollection(id, coll)

	if err := h.db.DeleteItem(id); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	if _, err := h.db.GetItem(id); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Deleted item still readable: %v", err)
	}

	for _, table := range []string{"itemData", "itemTags", "collectionItems"} {
		var n int64
		if err := h.fixture.QueryRow(
			"SELECT COUNT(*) FROM "+table+" WHERE itemID = ?", id,
		).Scan(&n); err != nil {
			t.Fatalf("Failed to count %s rows: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s still has %d rows for deleted item", table, n)
		}
	}
}

func TestFindByDOIFormats(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("journalArticle", map[string]string{
		"DOI": "10.1126/science.aaa2397",
	})

	for _, input := range []string{
		"10.1126/science.aaa2397",
		"https://doi.org/10.1126/science.aaa2397",
		"doi:10.1126/science.aaa2397",
	} {
		item, err := h.db.FindByDOI(input)
		if err != nil {
			t.Errorf("FindByDOI(%q) failed: %v", input, err)
			continue
		}
		if item.ID != id {
			t.Errorf("FindByDOI(%q) = item %d, want %d", input, item.ID, id)
		}
	}

	if _, err := h.db.FindByDOI("10.9999/absent"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("FindByDOI on absent DOI = %v, want ErrNotFound", err)
	}
}

func TestFindByISBNHyphenation(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("book", map[string]string{"ISBN": "978-0-13-468599-1"})

	for _, input := range []string{"978-0-13-468599-1", "9780134685991"} {
		item, err := h.db.FindByISBN(input)
		if err != nil {
			t.Errorf("FindByISBN(%q) failed: %v", input, err)
			continue
		}
		if item.ID != id {
			t.Errorf("FindByISBN(%q) = item %d, want %d", input, item.ID, id)
		}
	}
}

func TestFindByPMIDInExtra(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("journalArticle", map[string]string{
		"extra": "PMID: 25766234\nPMCID: PMC4403867",
	})

	item, err := h.db.FindByPMID("25766234")
	if err != nil {
		t.Fatalf("FindByPMID failed: %v", err)
	}
	if item.ID != id {
		t.Errorf("FindByPMID = item %d, want %d", item.ID, id)
	}
}

func TestFindByURL(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("webpage", map[string]string{
		"url": "https://example.org/Article/One",
	})

	for _, input := range []string{
		"https://example.org/Article/One",
		"HTTPS://EXAMPLE.ORG/Article/One",
		"https://example.org/Article/One/",
	} {
		item, err := h.db.FindByURL(input)
		if err != nil {
			t.Errorf("FindByURL(%q) failed: %v", input, err)
			continue
		}
		if item.ID != id {
			t.Errorf("FindByURL(%q) = item %d, want %d", input, item.ID, id)
		}
	}
}

func TestFindByArxivFormats(t *testing.T) {
	h := setupTest(t)

	id := h.fixture.AddItem("journalArticle", map[string]string{
		"url": "https://arxiv.org/abs/1706.03762",
	})

	for _, input := range []string{
		"1706.03762",
		"arXiv:1706.03762",
		"https://arxiv.org/pdf/1706.03762.pdf",
	} {
		item, err := h.db.FindByArxiv(input)
		if err != nil {
			t.Errorf("FindByArxiv(%q) failed: %v", input, err)
			continue
		}
		if item.ID != id {
			t.Errorf("FindByArxiv(%q) = item %d, want %d", input, item.ID, id)
		}
	}
}

func TestSearchByTitle(t *testing.T) {
	h := setupTest(t)

	h.fixture.AddItem("book", map[string]string{"title": "Deep Learning"})
	h.fixture.AddItem("book", map[string]string{"title": "Machine Learning Yearning"})
	h.fixture.AddItem("book", map[string]string{"title": "Chemistry Basics"})

	items, err := h.db.SearchByTitle("learning", 1)
	if err != nil {
		t.Fatalf("SearchByTitle failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Got %d items, want 2", len(items))
	}
}

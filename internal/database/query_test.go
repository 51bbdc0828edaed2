package database_test

import "testing"

func TestReadQuery(t *testing.T) {
	h := setupTest(t)

	h.fixture.AddItem("book", map[string]string{"title": "Raw Access"})

	rows, err := h.db.ReadQuery(
		"SELECT i.itemID, i.key, t.typeName FROM items i JOIN itemTypes t ON t.itemTypeID = i.itemTypeID",
	)
	if err != nil {
		t.Fatalf("ReadQuery failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Got %d rows, want 1", len(rows))
	}

	if rows[0]["typeName"] != "book" {
		t.Errorf("typeName = %v", rows[0]["typeName"])
	}
	if _, ok := rows[0]["key"].(string); !ok {
		t.Errorf("key column not returned as string: %T", rows[0]["key"])
	}
}

func TestReadQueryWithArgs(t *testing.T) {
	h := setupTest(t)

	h.fixture.AddItem("book", nil)
	h.fixture.AddItem("webpage", nil)

	rows, err := h.db.ReadQuery(
		`SELECT COUNT(*) AS n
         FROM items i JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
         WHERE t.typeName = ?`,
		"book",
	)
	if err != nil {
		t.Fatalf("ReadQuery failed: %v", err)
	}
	if n, ok := rows[0]["n"].(int64); !ok || n != 1 {
		t.Errorf("n = %v (%T), want 1", rows[0]["n"], rows[0]["n"])
	}
}

package database_test

import (
	"errors"
	"testing"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
)

func TestAddRelationAndRelatedKeys(t *testing.T) {
	h := setupTest(t)

	a := h.fixture.AddItem("book", nil)
	b := h.fixture.AddItem("book", nil)
	bKey := h.fixture.ItemKey(b)
	versionBefore, _ := h.fixture.ItemVersion(a)

	if err := h.db.AddRelation(a, database.RelationPredicateRelated, bKey); err != nil {
		t.Fatalf("AddRelation failed: %v", err)
	}

	keys, err := h.db.RelatedItemKeys(a)
	if err != nil {
		t.Fatalf("RelatedItemKeys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != bKey {
		t.Errorf("RelatedItemKeys = %v, want [%s]", keys, bKey)
	}

	if v, synced := h.fixture.ItemVersion(a); v != versionBefore+1 || synced {
		t.Errorf("After relation: version %d synced %v", v, synced)
	}
}

func TestAddRelationMissingTarget(t *testing.T) {
	h := setupTest(t)

	a := h.fixture.AddItem("book", nil)
	err := h.db.AddRelation(a, database.RelationPredicateRelated, "ZZZZ9999")
	if !errors.Is(err, database.ErrInvalidReference) {
		t.Errorf("AddRelation to missing key = %v, want ErrInvalidReference", err)
	}
}

func TestObjectKeyFromURI(t *testing.T) {
	key, ok := database.ObjectKeyFromURI("http://zotero.org/users/12345/items/ABCD2345")
	if !ok || key != "ABCD2345" {
		t.Errorf("Got (%q, %v)", key, ok)
	}
	if _, ok := database.ObjectKeyFromURI("http://example.com/nothing"); ok {
		t.Error("Non-item URI must not yield a key")
	}
}

package database_test

import "testing"

func TestAnnotationsOrderedBySortIndex(t *testing.T) {
	h := setupTest(t)

	parent := h.fixture.AddItem("journalArticle", map[string]string{"title": "Paper"})
	att := h.fixture.AddAttachment(parent, "storage:paper.pdf", "application/pdf")

	h.fixture.AddAnnotation(att, 2, "a comment anchor", "00002|000123")
	h.fixture.AddAnnotation(att, 1, "highlighted passage", "00001|000045")
	h.fixture.AddAnnotation(att, 5, "underlined passage", "00003|000007")

	annotations, err := h.db.Annotations(att)
	if err != nil {
		t.Fatalf("Annotations failed: %v", err)
	}
	if len(annotations) != 3 {
		t.Fatalf("Expected 3 annotations, got %d", len(annotations))
	}

	if annotations[0].Type != "highlight" || annotations[0].Text != "highlighted passage" {
		t.Errorf("Unexpected first annotation: %+v", annotations[0])
	}
	if annotations[1].Type != "note" {
		t.Errorf("Expected note second, got %q", annotations[1].Type)
	}
	if annotations[2].Type != "underline" {
		t.Errorf("Expected underline last, got %q", annotations[2].Type)
	}
}

func TestAnnotationsUnknownType(t *testing.T) {
	h := setupTest(t)

	parent := h.fixture.AddItem("journalArticle", nil)
	att := h.fixture.AddAttachment(parent, "storage:p.pdf", "application/pdf")
	h.fixture.AddAnnotation(att, 9, "", "00001|000001")

	annotations, err := h.db.Annotations(att)
	if err != nil {
		t.Fatalf("Annotations failed: %v", err)
	}
	if len(annotations) != 1 || annotations[0].Type != "unknown(9)" {
		t.Errorf("Unexpected annotations: %+v", annotations)
	}
}

func TestAnnotationsEmpty(t *testing.T) {
	h := setupTest(t)

	parent := h.fixture.AddItem("journalArticle", nil)
	att := h.fixture.AddAttachment(parent, "storage:p.pdf", "application/pdf")

	annotations, err := h.db.Annotations(att)
	if err != nil {
		t.Fatalf("Annotations failed: %v", err)
	}
	if len(annotations) != 0 {
		t.Errorf("Expected no annotations, got %d", len(annotations))
	}
}

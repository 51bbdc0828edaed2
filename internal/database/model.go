package database

import "database/sql"

// TimeLayout is the timestamp format the owning application stores in
// dateAdded, dateModified and clientDateModified (UTC).
const TimeLayout = "2006-01-02 15:04:05"

// Tag type discriminators used in the itemTags join table.
const (
	TagTypeManual    = 0 // applied by the user
	TagTypeAutomatic = 1 // applied by an importer or translator
)

// DB manages the SQLite connection to a working copy of the library file.
type DB struct {
	conn *sql.DB
	path string
}

// Item is a row of the items table together with its typed field values.
type Item struct {
	ID           int64
	Key          string
	TypeName     string
	LibraryID    int64
	DateAdded    string
	DateModified string
	Version      int64
	Synced       bool
	Fields       map[string]string
}

// Collection is a hierarchical folder grouping items.
type Collection struct {
	ID        int64
	Key       string
	Name      string
	ParentID  *int64
	LibraryID int64
	Version   int64
	Synced    bool
}

// Tag is a tag attached to an item, carrying the per-attachment type.
type Tag struct {
	ID   int64
	Name string
	Type int64
}

// Creator is an author/editor/contributor row attached to an item.
type Creator struct {
	ID        int64
	FirstName string
	LastName  string
	FieldMode int64
}

// Note is a note item, possibly nested under a parent item.
type Note struct {
	ItemID       int64
	ParentItemID int64
	Title        string
	Text         string
}

// Attachment is an attachment item. Path is either absolute or a
// storage-relative reference that must be resolved through the item key.
type Attachment struct {
	ItemID       int64
	Key          string
	ParentItemID int64
	LinkMode     int64
	ContentType  string
	Path         string
}

// Annotation is a PDF annotation under a parent attachment. SortIndex
// establishes in-document order.
type Annotation struct {
	ItemID       int64
	ParentItemID int64
	Type         string
	Text         string
	Comment      string
	Color        string
	PageLabel    string
	SortIndex    string
	Position     string
}

// Relation is a directed manual link from an item to a target encoded as a
// URI carrying the target's key.
type Relation struct {
	ItemID    int64
	Predicate string
	Object    string
}

// FulltextMatch is one hit of a fulltext word search: the attachment whose
// index matched, its parent item, and the indexing-progress counters.
type FulltextMatch struct {
	AttachmentID  int64
	AttachmentKey string
	ParentItemID  int64
	Title         string
	DateModified  string
	IndexedChars  int64
	TotalChars    int64
	IndexedPages  int64
	TotalPages    int64
}

// FulltextContent is document content for an attachment. Reconstructed
// marks the degraded bag-of-words fallback, which does not preserve word
// order; verbatim content is only available when the schema provides it.
type FulltextContent struct {
	Text          string
	Reconstructed bool
}

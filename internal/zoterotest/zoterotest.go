// Package zoterotest builds throwaway Zotero data directories for tests: a
// database file with the owner's schema plus a storage/ tree, seeded
// directly with SQL so the code under test is not used to create its own
// fixtures.
package zoterotest

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Combjellyshen/ZoteroBridge/internal/keys"
)

// Fixture is a seeded test data directory.
type Fixture struct {
	t *testing.T

	// DataDir is the data directory; DBPath the database file inside it.
	DataDir string
	DBPath  string

	conn *sql.DB
}

const schemaSQL = `
CREATE TABLE libraries (
    libraryID INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    editable INT NOT NULL DEFAULT 1
);
CREATE TABLE itemTypes (
    itemTypeID INTEGER PRIMARY KEY,
    typeName TEXT NOT NULL UNIQUE
);
CREATE TABLE fields (
    fieldID INTEGER PRIMARY KEY,
    fieldName TEXT NOT NULL UNIQUE
);
CREATE TABLE items (
    itemID INTEGER PRIMARY KEY,
    itemTypeID INT NOT NULL,
    dateAdded TEXT NOT NULL,
    dateModified TEXT NOT NULL,
    clientDateModified TEXT NOT NULL,
    libraryID INT NOT NULL,
    key TEXT NOT NULL UNIQUE,
    version INT NOT NULL DEFAULT 0,
    synced INT NOT NULL DEFAULT 0
);
CREATE TABLE itemDataValues (
    valueID INTEGER PRIMARY KEY,
    value UNIQUE
);
CREATE TABLE itemData (
    itemID INT NOT NULL,
    fieldID INT NOT NULL,
    valueID INT NOT NULL,
    PRIMARY KEY (itemID, fieldID)
);
CREATE TABLE itemNotes (
    itemID INTEGER PRIMARY KEY,
    parentItemID INT,
    note TEXT,
    title TEXT
);
CREATE TABLE itemAttachments (
    itemID INTEGER PRIMARY KEY,
    parentItemID INT,
    linkMode INT NOT NULL DEFAULT 0,
    contentType TEXT,
    path TEXT
);
CREATE TABLE itemAnnotations (
    itemID INTEGER PRIMARY KEY,
    parentItemID INT NOT NULL,
    type INTEGER NOT NULL,
    text TEXT,
    comment TEXT,
    color TEXT,
    pageLabel TEXT,
    sortIndex TEXT NOT NULL,
    position TEXT
);
CREATE TABLE collections (
    collectionID INTEGER PRIMARY KEY,
    collectionName TEXT NOT NULL,
    parentCollectionID INT DEFAULT NULL,
    libraryID INT NOT NULL,
    key TEXT NOT NULL UNIQUE,
    version INT NOT NULL DEFAULT 0,
    synced INT NOT NULL DEFAULT 0
);
CREATE TABLE collectionItems (
    collectionID INT NOT NULL,
    itemID INT NOT NULL,
    orderIndex INT NOT NULL DEFAULT 0,
    PRIMARY KEY (collectionID, itemID)
);
CREATE TABLE tags (
    tagID INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);
CREATE TABLE itemTags (
    itemID INT NOT NULL,
    tagID INT NOT NULL,
    type INT NOT NULL,
    PRIMARY KEY (itemID, tagID)
);
CREATE TABLE creators (
    creatorID INTEGER PRIMARY KEY,
    firstName TEXT,
    lastName TEXT,
    fieldMode INT
);
CREATE TABLE itemCreators (
    itemID INT NOT NULL,
    creatorID INT NOT NULL,
    creatorTypeID INT NOT NULL DEFAULT 1,
    orderIndex INT NOT NULL DEFAULT 0,
    PRIMARY KEY (itemID, creatorID, creatorTypeID, orderIndex)
);
CREATE TABLE relationPredicates (
    predicateID INTEGER PRIMARY KEY,
    predicate TEXT UNIQUE
);
CREATE TABLE itemRelations (
    itemID INT NOT NULL,
    predicateID INT NOT NULL,
    object TEXT NOT NULL,
    PRIMARY KEY (itemID, predicateID, object)
);
CREATE TABLE fulltextWords (
    wordID INTEGER PRIMARY KEY,
    word TEXT UNIQUE
);
CREATE TABLE fulltextItems (
    itemID INTEGER PRIMARY KEY,
    indexedPages INT,
    totalPages INT,
    indexedChars INT,
    totalChars INT,
    version INT NOT NULL DEFAULT 0,
    synced INT NOT NULL DEFAULT 0
);
CREATE TABLE fulltextItemWords (
    wordID INT NOT NULL,
    itemID INT NOT NULL,
    PRIMARY KEY (wordID, itemID)
);
CREATE TABLE deletedItems (
    itemID INTEGER PRIMARY KEY,
    dateDeleted DEFAULT CURRENT_TIMESTAMP
);
`

var itemTypeNames = []string{
	"book", "journalArticle", "webpage", "note", "attachment", "annotation",
}

var fieldNames = []string{
	"title", "abstractNote", "date", "url", "DOI", "ISBN", "extra",
	"publicationTitle", "pages", "volume",
}

// New creates a seeded-but-empty data directory under t.TempDir.
func New(t *testing.T) *Fixture {
	t.Helper()

	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "storage"), 0o755); err != nil {
		t.Fatalf("Failed to create storage directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "zotero.sqlite")
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open fixture database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec(schemaSQL); err != nil {
		t.Fatalf("Failed to create fixture schema: %v", err)
	}

	f := &Fixture{t: t, DataDir: dataDir, DBPath: dbPath, conn: conn}

	f.Exec("INSERT INTO libraries (libraryID, type) VALUES (1, 'user')")
	for _, name := range itemTypeNames {
		f.Exec("INSERT INTO itemTypes (typeName) VALUES (?)", name)
	}
	for _, name := range fieldNames {
		f.Exec("INSERT INTO fields (fieldName) VALUES (?)", name)
	}
	f.Exec("INSERT INTO relationPredicates (predicate) VALUES ('dc:relation')")

	return f
}

// Exec runs seeding SQL, failing the test on error.
func (f *Fixture) Exec(query string, args ...any) sql.Result {
	f.t.Helper()
	res, err := f.conn.Exec(query, args...)
	if err != nil {
		f.t.Fatalf("Fixture SQL failed: %v\n%s", err, query)
	}
	return res
}

// QueryRow runs a seeding-side read, for assertions against raw rows.
func (f *Fixture) QueryRow(query string, args ...any) *sql.Row {
	return f.conn.QueryRow(query, args...)
}

func (f *Fixture) newKey() string {
	f.t.Helper()
	key, err := keys.Generate()
	if err != nil {
		f.t.Fatalf("Failed to generate key: %v", err)
	}
	return key
}

func (f *Fixture) insertItem(typeName string) int64 {
	f.t.Helper()
	const ts = "2024-01-15 12:00:00"
	res := f.Exec(`
        INSERT INTO items (itemTypeID, libraryID, key, dateAdded, dateModified,
                           clientDateModified, version, synced)
        VALUES ((SELECT itemTypeID FROM itemTypes WHERE typeName = ?), 1, ?, ?, ?, ?, 5, 1)
    `, typeName, f.newKey(), ts, ts, ts)
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("Failed to get item ID: %v", err)
	}
	return id
}

// AddItem seeds a bibliographic item with the given field values.
func (f *Fixture) AddItem(typeName string, fields map[string]string) int64 {
	f.t.Helper()
	id := f.insertItem(typeName)
	for name, value := range fields {
		f.SetField(id, name, value)
	}
	return id
}

// SetField seeds one field value without touching bookkeeping.
func (f *Fixture) SetField(itemID int64, field, value string) {
	f.t.Helper()
	f.Exec("INSERT OR IGNORE INTO itemDataValues (value) VALUES (?)", value)
	f.Exec(`
        INSERT OR REPLACE INTO itemData (itemID, fieldID, valueID)
        VALUES (?,
                (SELECT fieldID FROM fields WHERE fieldName = ?),
                (SELECT valueID FROM itemDataValues WHERE value = ?))
    `, itemID, field, value)
}

// AddNote seeds a note item under a parent.
func (f *Fixture) AddNote(parentItemID int64, title, text string) int64 {
	f.t.Helper()
	id := f.insertItem("note")
	f.Exec(
		"INSERT INTO itemNotes (itemID, parentItemID, note, title) VALUES (?, ?, ?, ?)",
		id, parentItemID, text, title,
	)
	return id
}

// AddAttachment seeds an attachment item; path may be storage-relative.
func (f *Fixture) AddAttachment(parentItemID int64, path, contentType string) int64 {
	f.t.Helper()
	id := f.insertItem("attachment")
	f.Exec(`
        INSERT INTO itemAttachments (itemID, parentItemID, linkMode, contentType, path)
        VALUES (?, ?, 0, ?, ?)
    `, id, parentItemID, contentType, path)
	return id
}

// AddAnnotation seeds an annotation item under an attachment. typeCode is
// the schema's numeric type (1 highlight, 2 note, 3 image, 4 ink,
// 5 underline).
func (f *Fixture) AddAnnotation(attachmentItemID int64, typeCode int, text, sortIndex string) int64 {
	f.t.Helper()
	id := f.insertItem("annotation")
	f.Exec(`
        INSERT INTO itemAnnotations (itemID, parentItemID, type, text, sortIndex)
        VALUES (?, ?, ?, ?, ?)
    `, id, attachmentItemID, typeCode, text, sortIndex)
	return id
}

// ItemKey returns the object key of a seeded item.
func (f *Fixture) ItemKey(itemID int64) string {
	f.t.Helper()
	var key string
	if err := f.QueryRow("SELECT key FROM items WHERE itemID = ?", itemID).Scan(&key); err != nil {
		f.t.Fatalf("Failed to read item key: %v", err)
	}
	return key
}

// AddTag seeds a tag attachment.
func (f *Fixture) AddTag(itemID int64, name string, tagType int) {
	f.t.Helper()
	f.Exec("INSERT OR IGNORE INTO tags (name) VALUES (?)", name)
	f.Exec(`
        INSERT INTO itemTags (itemID, tagID, type)
        VALUES (?, (SELECT tagID FROM tags WHERE name = ?), ?)
    `, itemID, name, tagType)
}

// AddCreator seeds a creator and attaches it to an item.
func (f *Fixture) AddCreator(itemID int64, firstName, lastName string) {
	f.t.Helper()
	res := f.Exec(
		"INSERT INTO creators (firstName, lastName, fieldMode) VALUES (?, ?, 0)",
		firstName, lastName,
	)
	creatorID, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("Failed to get creator ID: %v", err)
	}
	f.Exec(`
        INSERT INTO itemCreators (itemID, creatorID, creatorTypeID, orderIndex)
        VALUES (?, ?, 1, (SELECT COUNT(*) FROM itemCreators WHERE itemID = ?))
    `, itemID, creatorID, itemID)
}

// AttachCreator reuses an existing creator row on another item, so the two
// items share creator identity.
func (f *Fixture) AttachCreator(itemID int64, firstName, lastName string) {
	f.t.Helper()
	f.Exec(`
        INSERT INTO itemCreators (itemID, creatorID, creatorTypeID, orderIndex)
        VALUES (?,
                (SELECT creatorID FROM creators WHERE firstName = ? AND lastName = ?),
                1,
                (SELECT COUNT(*) FROM itemCreators WHERE itemID = ?))
    `, itemID, firstName, lastName, itemID)
}

// AddCollection seeds a collection; parentID may be nil.
func (f *Fixture) AddCollection(name string, parentID *int64) int64 {
	f.t.Helper()
	var parent any
	if parentID != nil {
		parent = *parentID
	}
	res := f.Exec(`
        INSERT INTO collections (collectionName, parentCollectionID, libraryID, key)
        VALUES (?, ?, 1, ?)
    `, name, parent, f.newKey())
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("Failed to get collection ID: %v", err)
	}
	return id
}

// AddToCollection seeds collection membership.
func (f *Fixture) AddToCollection(itemID, collectionID int64) {
	f.t.Helper()
	f.Exec(
		"INSERT INTO collectionItems (collectionID, itemID, orderIndex) VALUES (?, ?, 0)",
		collectionID, itemID,
	)
}

// IndexWords seeds inverted-index entries plus progress counters for an
// attachment, the way the owner's indexer would.
func (f *Fixture) IndexWords(attachmentItemID int64, words []string) {
	f.t.Helper()
	for _, word := range words {
		f.Exec("INSERT OR IGNORE INTO fulltextWords (word) VALUES (?)", word)
		f.Exec(`
            INSERT OR IGNORE INTO fulltextItemWords (wordID, itemID)
            VALUES ((SELECT wordID FROM fulltextWords WHERE word = ?), ?)
        `, word, attachmentItemID)
	}
	chars := 0
	for _, w := range words {
		chars += len(w) + 1
	}
	f.Exec(`
        INSERT OR REPLACE INTO fulltextItems
            (itemID, indexedPages, totalPages, indexedChars, totalChars)
        VALUES (?, 1, 1, ?, ?)
    `, attachmentItemID, chars, chars)
}

// WriteStorageFile creates an attachment payload on disk under the item's
// per-key storage directory.
func (f *Fixture) WriteStorageFile(itemKey, name, content string) string {
	f.t.Helper()
	dir := filepath.Join(f.DataDir, "storage", itemKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.t.Fatalf("Failed to create storage subdirectory: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		f.t.Fatalf("Failed to write storage file: %v", err)
	}
	return path
}

// TouchSentinel drops a lock-sentinel file next to the database, simulating
// a live owning application.
func (f *Fixture) TouchSentinel(suffix string) string {
	f.t.Helper()
	path := f.DBPath + suffix
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		f.t.Fatalf("Failed to create sentinel %s: %v", suffix, err)
	}
	return path
}

// ItemVersion reads version and synced for bookkeeping assertions.
func (f *Fixture) ItemVersion(itemID int64) (version int64, synced bool) {
	f.t.Helper()
	var s int64
	err := f.QueryRow(
		"SELECT version, synced FROM items WHERE itemID = ?", itemID,
	).Scan(&version, &s)
	if err != nil {
		f.t.Fatalf("Failed to read item version: %v", err)
	}
	return version, s != 0
}

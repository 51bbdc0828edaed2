package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Combjellyshen/ZoteroBridge/internal/ident"
	"github.com/Combjellyshen/ZoteroBridge/internal/keys"
)

// touchItem applies the owner's bookkeeping contract to an item row:
// modification timestamps move to now, the version counter increments, and
// the synced flag clears so the owner's sync engine picks the change up.
// Every mutation of an item's owned data must run this exactly once for the
// affected item, inside the same transaction as the data change.
//
// A missing itemID is a no-op, mirroring the owner's permissive behavior.
func touchItem(tx *sql.Tx, itemID int64) error {
	ts := now()
	_, err := tx.Exec(`
        UPDATE items
        SET dateModified = ?, clientDateModified = ?, version = version + 1, synced = 0
        WHERE itemID = ?
    `, ts, ts, itemID)
	if err != nil {
		return fmt.Errorf("failed to update item bookkeeping: %w", err)
	}
	return nil
}

func itemExists(tx *sql.Tx, itemID int64) (bool, error) {
	var n int64
	if err := tx.QueryRow("SELECT COUNT(*) FROM items WHERE itemID = ?", itemID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check item existence: %w", err)
	}
	return n > 0, nil
}

const itemColumns = `
    i.itemID, i.key, t.typeName, i.libraryID,
    i.dateAdded, i.dateModified, i.version, i.synced
`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var item Item
	var synced int64
	err := row.Scan(
		&item.ID, &item.Key, &item.TypeName, &item.LibraryID,
		&item.DateAdded, &item.DateModified, &item.Version, &synced,
	)
	if err != nil {
		return nil, err
	}
	item.Synced = synced != 0
	return &item, nil
}

// GetItem returns the item with the given ID, including its field values.
func (db *DB) GetItem(itemID int64) (*Item, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(`
        SELECT `+itemColumns+`
        FROM items i
        JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
        WHERE i.itemID = ?
    `, itemID)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	if err := db.loadFields(item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItemByKey returns the item with the given object key.
func (db *DB) GetItemByKey(key string) (*Item, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(`
        SELECT `+itemColumns+`
        FROM items i
        JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
        WHERE i.key = ?
    `, key)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item key %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	if err := db.loadFields(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (db *DB) loadFields(item *Item) error {
	rows, err := db.conn.Query(`
        SELECT f.fieldName, v.value
        FROM itemData d
        JOIN fields f ON f.fieldID = d.fieldID
        JOIN itemDataValues v ON v.valueID = d.valueID
        WHERE d.itemID = ?
    `, item.ID)
	if err != nil {
		return fmt.Errorf("failed to query item fields: %w", err)
	}
	defer rows.Close()

	item.Fields = make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("failed to scan item field: %w", err)
		}
		item.Fields[name] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating item fields: %w", err)
	}
	return nil
}

// ItemTitle returns the title field of an item, or "" when unset.
func (db *DB) ItemTitle(itemID int64) (string, error) {
	if err := db.connected(); err != nil {
		return "", err
	}

	var title string
	err := db.conn.QueryRow(`
        SELECT v.value
        FROM itemData d
        JOIN fields f ON f.fieldID = d.fieldID
        JOIN itemDataValues v ON v.valueID = d.valueID
        WHERE d.itemID = ? AND f.fieldName = 'title'
    `, itemID).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query item title: %w", err)
	}
	return title, nil
}

// CreateItem inserts a new item of the given type with a fresh object key.
// Version starts at 0 and synced at false; the owner assigns the real
// version on its next sync.
func (db *DB) CreateItem(typeName string, libraryID int64) (*Item, error) {
	var item *Item
	err := db.withTx(func(tx *sql.Tx) error {
		typeID, err := itemTypeID(tx, typeName)
		if err != nil {
			return err
		}

		key, err := keys.Generate()
		if err != nil {
			return err
		}

		ts := now()
		res, err := tx.Exec(`
            INSERT INTO items (itemTypeID, libraryID, key, dateAdded, dateModified,
                               clientDateModified, version, synced)
            VALUES (?, ?, ?, ?, ?, ?, 0, 0)
        `, typeID, libraryID, key, ts, ts, ts)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get item ID: %w", err)
		}

		item = &Item{
			ID:           id,
			Key:          key,
			TypeName:     typeName,
			LibraryID:    libraryID,
			DateAdded:    ts,
			DateModified: ts,
			Version:      0,
			Synced:       false,
			Fields:       map[string]string{},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SetItemField sets a typed field value on an item, creating the value row
// if needed and touching the item's bookkeeping. The field name must exist
// in the owner's fields table.
func (db *DB) SetItemField(itemID int64, fieldName, value string) error {
	return db.withTx(func(tx *sql.Tx) error {
		ok, err := itemExists(tx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}

		fID, err := fieldID(tx, fieldName)
		if err != nil {
			return err
		}
		vID, err := valueID(tx, value)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`
            INSERT INTO itemData (itemID, fieldID, valueID)
            VALUES (?, ?, ?)
            ON CONFLICT(itemID, fieldID) DO UPDATE SET valueID = excluded.valueID
        `, itemID, fID, vID); err != nil {
			return fmt.Errorf("failed to set item field: %w", err)
		}

		return touchItem(tx, itemID)
	})
}

// DeleteItem removes an item and cascade-cleans its dependent join rows
// (field data, tags, collection membership, notes, attachments, annotations,
// creators, relations) before removing the row itself.
func (db *DB) DeleteItem(itemID int64) error {
	return db.withTx(func(tx *sql.Tx) error {
		ok, err := itemExists(tx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}

		cleanups := []string{
			"DELETE FROM itemData WHERE itemID = ?",
			"DELETE FROM itemTags WHERE itemID = ?",
			"DELETE FROM collectionItems WHERE itemID = ?",
			"DELETE FROM itemNotes WHERE itemID = ?",
			"DELETE FROM itemAttachments WHERE itemID = ?",
			"DELETE FROM itemAnnotations WHERE itemID = ?",
			"DELETE FROM itemCreators WHERE itemID = ?",
			"DELETE FROM itemRelations WHERE itemID = ?",
			"DELETE FROM fulltextItemWords WHERE itemID = ?",
			"DELETE FROM fulltextItems WHERE itemID = ?",
			"DELETE FROM items WHERE itemID = ?",
		}
		for _, q := range cleanups {
			if _, err := tx.Exec(q, itemID); err != nil {
				return fmt.Errorf("failed to delete item %d: %w", itemID, err)
			}
		}
		return nil
	})
}

// SearchByTitle returns items whose title contains the query,
// case-insensitively. Notes and attachments are excluded.
func (db *DB) SearchByTitle(query string, libraryID int64) ([]Item, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT `+itemColumns+`
        FROM items i
        JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
        JOIN itemData d ON d.itemID = i.itemID
        JOIN fields f ON f.fieldID = d.fieldID
        JOIN itemDataValues v ON v.valueID = d.valueID
        WHERE f.fieldName = 'title'
          AND i.libraryID = ?
          AND t.typeName NOT IN ('note', 'attachment', 'annotation')
          AND lower(v.value) LIKE '%' || lower(?) || '%'
        ORDER BY i.dateModified DESC
    `, libraryID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search by title: %w", err)
	}
	defer rows.Close()

	return collectItems(db, rows)
}

func collectItems(db *DB, rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	for i := range items {
		if err := db.loadFields(&items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// findByField returns the first item whose named field, normalized by
// normalize, equals the normalized wanted value.
func (db *DB) findByField(field, want string, normalize func(string) string) (*Item, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT d.itemID, v.value
        FROM itemData d
        JOIN fields f ON f.fieldID = d.fieldID
        JOIN itemDataValues v ON v.valueID = d.valueID
        WHERE f.fieldName = ?
    `, field)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s values: %w", field, err)
	}
	defer rows.Close()

	norm := normalize(want)
	var matchID int64
	found := false
	for rows.Next() {
		var id int64
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s value: %w", field, err)
		}
		if !found && normalize(value) == norm {
			matchID = id
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s values: %w", field, err)
	}

	if !found {
		return nil, fmt.Errorf("%w: no item with %s %q", ErrNotFound, field, want)
	}
	return db.GetItem(matchID)
}

// ItemFieldValues returns itemID -> value for every non-note,
// non-attachment, non-annotation item carrying the named field. Used by the
// duplicate engine to group items without loading full records.
func (db *DB) ItemFieldValues(fieldName string) (map[int64]string, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT d.itemID, v.value
        FROM itemData d
        JOIN items i ON i.itemID = d.itemID
        JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
        JOIN fields f ON f.fieldID = d.fieldID
        JOIN itemDataValues v ON v.valueID = d.valueID
        WHERE f.fieldName = ?
          AND t.typeName NOT IN ('note', 'attachment', 'annotation')
    `, fieldName)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s values: %w", fieldName, err)
	}
	defer rows.Close()

	values := make(map[int64]string)
	for rows.Next() {
		var id int64
		var value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s value: %w", fieldName, err)
		}
		values[id] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s values: %w", fieldName, err)
	}
	return values, nil
}

// FindByDOI resolves a DOI in any common format (bare, doi: prefix,
// resolver URL) to the item carrying it.
func (db *DB) FindByDOI(doi string) (*Item, error) {
	return db.findByField("DOI", doi, ident.DOI)
}

// FindByISBN resolves an ISBN regardless of hyphenation or spacing.
func (db *DB) FindByISBN(isbn string) (*Item, error) {
	return db.findByField("ISBN", isbn, ident.ISBN)
}

// FindByPMID resolves a PubMed ID. The owner's schema has no PMID field;
// the convention is a "PMID: n" line inside the extra field.
func (db *DB) FindByPMID(pmid string) (*Item, error) {
	return db.findByField("extra", pmid, func(s string) string {
		for _, line := range strings.Split(s, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(strings.ToLower(line), "pmid:") {
				return ident.PMID(line)
			}
		}
		return ident.PMID(s)
	})
}

// FindByURL resolves a URL with scheme and host compared
// case-insensitively and a bare trailing slash ignored.
func (db *DB) FindByURL(url string) (*Item, error) {
	return db.findByField("url", url, ident.URL)
}

// FindByArxiv resolves an arXiv ID in any common format (bare, arXiv:
// prefix, abs/pdf URL). Preprints store their arXiv link in the url field.
func (db *DB) FindByArxiv(id string) (*Item, error) {
	return db.findByField("url", id, ident.Arxiv)
}

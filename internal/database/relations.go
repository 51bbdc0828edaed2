package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// RelationPredicateRelated is the predicate the owner uses for manual
// "related items" links.
const RelationPredicateRelated = "dc:relation"

// Relations returns the outgoing relations of an item.
func (db *DB) Relations(itemID int64) ([]Relation, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT r.itemID, p.predicate, r.object
        FROM itemRelations r
        JOIN relationPredicates p ON p.predicateID = r.predicateID
        WHERE r.itemID = ?
        ORDER BY p.predicate, r.object
    `, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.ItemID, &r.Predicate, &r.Object); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}
	return out, nil
}

// RelatedItemKeys extracts the target object keys from an item's relation
// URIs. Objects that do not carry an item key URI are skipped.
func (db *DB) RelatedItemKeys(itemID int64) ([]string, error) {
	relations, err := db.Relations(itemID)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, r := range relations {
		if key, ok := ObjectKeyFromURI(r.Object); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ObjectKeyFromURI extracts the trailing item key from an object URI of the
// form http://zotero.org/users/<n>/items/<KEY>.
func ObjectKeyFromURI(uri string) (string, bool) {
	idx := strings.LastIndex(uri, "/items/")
	if idx < 0 {
		return "", false
	}
	key := uri[idx+len("/items/"):]
	if key == "" {
		return "", false
	}
	return key, true
}

// AddRelation links an item to a target item's key under the given
// predicate, touching the source item's bookkeeping. The target key is
// encoded into the owner's URI form; the target item must exist.
func (db *DB) AddRelation(itemID int64, predicate, targetKey string) error {
	return db.withTx(func(tx *sql.Tx) error {
		ok, err := itemExists(tx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}

		var targetLibrary int64
		err = tx.QueryRow(
			"SELECT libraryID FROM items WHERE key = ?", targetKey,
		).Scan(&targetLibrary)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: target item key %q", ErrInvalidReference, targetKey)
		}
		if err != nil {
			return fmt.Errorf("failed to check target item: %w", err)
		}

		predicateID, err := predicateIDByName(tx, predicate)
		if err != nil {
			return err
		}

		object := fmt.Sprintf("http://zotero.org/users/local/items/%s", targetKey)
		if _, err := tx.Exec(`
            INSERT OR IGNORE INTO itemRelations (itemID, predicateID, object)
            VALUES (?, ?, ?)
        `, itemID, predicateID, object); err != nil {
			return fmt.Errorf("failed to insert relation: %w", err)
		}

		return touchItem(tx, itemID)
	})
}

func predicateIDByName(tx *sql.Tx, predicate string) (int64, error) {
	var id int64
	err := tx.QueryRow(
		"SELECT predicateID FROM relationPredicates WHERE predicate = ?", predicate,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up predicate %q: %w", predicate, err)
	}

	res, err := tx.Exec(
		"INSERT INTO relationPredicates (predicate) VALUES (?)", predicate,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create predicate %q: %w", predicate, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get predicate ID: %w", err)
	}
	return id, nil
}

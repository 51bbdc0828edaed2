package database

import (
	"database/sql"
	"fmt"

	"github.com/Combjellyshen/ZoteroBridge/internal/keys"
)

const collectionColumns = `
    collectionID, key, collectionName, parentCollectionID, libraryID, version, synced
`

func scanCollection(row interface{ Scan(...any) error }) (*Collection, error) {
	var c Collection
	var parent sql.NullInt64
	var synced int64
	err := row.Scan(&c.ID, &c.Key, &c.Name, &parent, &c.LibraryID, &c.Version, &synced)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	c.Synced = synced != 0
	return &c, nil
}

// GetCollection returns the collection with the given ID.
func (db *DB) GetCollection(collectionID int64) (*Collection, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(
		"SELECT "+collectionColumns+" FROM collections WHERE collectionID = ?",
		collectionID,
	)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: collection %d", ErrNotFound, collectionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	return c, nil
}

// Collections returns all collections in a library, top level first.
func (db *DB) Collections(libraryID int64) ([]Collection, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT `+collectionColumns+`
        FROM collections
        WHERE libraryID = ?
        ORDER BY parentCollectionID IS NOT NULL, collectionName
    `, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	return collectCollections(rows)
}

// Subcollections returns the direct children of a collection.
func (db *DB) Subcollections(parentID int64) ([]Collection, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT `+collectionColumns+`
        FROM collections
        WHERE parentCollectionID = ?
        ORDER BY collectionName
    `, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcollections: %w", err)
	}
	defer rows.Close()

	return collectCollections(rows)
}

func collectCollections(rows *sql.Rows) ([]Collection, error) {
	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}
	return out, nil
}

// CreateCollection creates a collection, optionally under a parent. The
// parent must exist; parent links form a tree, never a cycle.
func (db *DB) CreateCollection(name string, parentID *int64, libraryID int64) (*Collection, error) {
	var created *Collection
	err := db.withTx(func(tx *sql.Tx) error {
		if parentID != nil {
			var n int64
			if err := tx.QueryRow(
				"SELECT COUNT(*) FROM collections WHERE collectionID = ?", *parentID,
			).Scan(&n); err != nil {
				return fmt.Errorf("failed to check parent collection: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: parent collection %d", ErrInvalidReference, *parentID)
			}
		}

		key, err := keys.Generate()
		if err != nil {
			return err
		}

		var parent any
		if parentID != nil {
			parent = *parentID
		}
		res, err := tx.Exec(`
            INSERT INTO collections
                (collectionName, parentCollectionID, libraryID, key, version, synced)
            VALUES (?, ?, ?, ?, 0, 0)
        `, name, parent, libraryID, key)
		if err != nil {
			return fmt.Errorf("failed to insert collection: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get collection ID: %w", err)
		}

		created = &Collection{
			ID:        id,
			Key:       key,
			Name:      name,
			ParentID:  parentID,
			LibraryID: libraryID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// MoveCollection reparents a collection. A nil newParentID moves it to the
// top level. The move is rejected when it would create a cycle.
func (db *DB) MoveCollection(collectionID int64, newParentID *int64) error {
	return db.withTx(func(tx *sql.Tx) error {
		var n int64
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM collections WHERE collectionID = ?", collectionID,
		).Scan(&n); err != nil {
			return fmt.Errorf("failed to check collection: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: collection %d", ErrNotFound, collectionID)
		}

		var parent any
		if newParentID != nil {
			// Walk up from the new parent; reaching the moved collection
			// means the move would close a cycle. The walk is bounded by a
			// visited set: a revisited ancestor means the foreign database
			// already contains a parent cycle, which is corruption, not a
			// bad argument.
			cursor := *newParentID
			visited := map[int64]bool{}
			for {
				if cursor == collectionID {
					return fmt.Errorf(
						"%w: moving collection %d under %d would create a cycle",
						ErrInvalidReference, collectionID, *newParentID,
					)
				}
				if visited[cursor] {
					return fmt.Errorf(
						"%w: collection ancestry of %d contains a cycle",
						ErrIntegrity, *newParentID,
					)
				}
				visited[cursor] = true
				var up sql.NullInt64
				err := tx.QueryRow(
					"SELECT parentCollectionID FROM collections WHERE collectionID = ?", cursor,
				).Scan(&up)
				if err == sql.ErrNoRows {
					return fmt.Errorf("%w: parent collection %d", ErrInvalidReference, *newParentID)
				}
				if err != nil {
					return fmt.Errorf("failed to walk collection ancestry: %w", err)
				}
				if !up.Valid {
					break
				}
				cursor = up.Int64
			}
			parent = *newParentID
		}

		if _, err := tx.Exec(`
            UPDATE collections
            SET parentCollectionID = ?, version = version + 1, synced = 0
            WHERE collectionID = ?
        `, parent, collectionID); err != nil {
			return fmt.Errorf("failed to move collection: %w", err)
		}
		return nil
	})
}

// DeleteCollection removes a collection after cleaning its membership rows.
// Child collections are promoted to the deleted collection's parent rather
// than removed.
func (db *DB) DeleteCollection(collectionID int64) error {
	return db.withTx(func(tx *sql.Tx) error {
		var parent sql.NullInt64
		err := tx.QueryRow(
			"SELECT parentCollectionID FROM collections WHERE collectionID = ?", collectionID,
		).Scan(&parent)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: collection %d", ErrNotFound, collectionID)
		}
		if err != nil {
			return fmt.Errorf("failed to query collection: %w", err)
		}

		if _, err := tx.Exec(
			"DELETE FROM collectionItems WHERE collectionID = ?", collectionID,
		); err != nil {
			return fmt.Errorf("failed to delete collection membership: %w", err)
		}

		var up any
		if parent.Valid {
			up = parent.Int64
		}
		if _, err := tx.Exec(`
            UPDATE collections
            SET parentCollectionID = ?, version = version + 1, synced = 0
            WHERE parentCollectionID = ?
        `, up, collectionID); err != nil {
			return fmt.Errorf("failed to promote child collections: %w", err)
		}

		if _, err := tx.Exec(
			"DELETE FROM collections WHERE collectionID = ?", collectionID,
		); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
		return nil
	})
}

// CollectionItems returns the items that are members of a collection.
func (db *DB) CollectionItems(collectionID int64) ([]Item, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT `+itemColumns+`
        FROM collectionItems ci
        JOIN items i ON i.itemID = ci.itemID
        JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
        WHERE ci.collectionID = ?
        ORDER BY ci.orderIndex, i.itemID
    `, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection items: %w", err)
	}
	defer rows.Close()

	return collectItems(db, rows)
}

// AddItemToCollection adds an item to a collection. Adding an existing
// member is a no-op that does not touch the item's bookkeeping.
func (db *DB) AddItemToCollection(itemID, collectionID int64) error {
	return db.withTx(func(tx *sql.Tx) error {
		ok, err := itemExists(tx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}

		var n int64
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM collections WHERE collectionID = ?", collectionID,
		).Scan(&n); err != nil {
			return fmt.Errorf("failed to check collection: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: collection %d", ErrNotFound, collectionID)
		}

		res, err := tx.Exec(`
            INSERT OR IGNORE INTO collectionItems (collectionID, itemID, orderIndex)
            VALUES (?, ?, 0)
        `, collectionID, itemID)
		if err != nil {
			return fmt.Errorf("failed to add item to collection: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return nil
		}
		return touchItem(tx, itemID)
	})
}

// RemoveItemFromCollection removes an item's membership in a collection.
func (db *DB) RemoveItemFromCollection(itemID, collectionID int64) error {
	return db.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"DELETE FROM collectionItems WHERE collectionID = ? AND itemID = ?",
			collectionID, itemID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove item from collection: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf(
				"%w: item %d is not in collection %d", ErrNotFound, itemID, collectionID,
			)
		}
		return touchItem(tx, itemID)
	})
}

// ItemCollections returns the IDs of all collections an item belongs to.
func (db *DB) ItemCollections(itemID int64) ([]int64, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(
		"SELECT collectionID FROM collectionItems WHERE itemID = ?", itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query item collections: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item collections: %w", err)
	}
	return ids, nil
}

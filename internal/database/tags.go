package database

import (
	"database/sql"
	"fmt"
)

// ItemTags returns the tags attached to an item, with the per-attachment
// type from the join table.
func (db *DB) ItemTags(itemID int64) ([]Tag, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT t.tagID, t.name, it.type
        FROM itemTags it
        JOIN tags t ON t.tagID = it.tagID
        WHERE it.itemID = ?
        ORDER BY t.name
    `, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Type); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// AddTagToItem attaches a tag by name, creating the tag row if needed.
// tagType is mandatory (the join table's type column is NOT NULL; the owner
// rejects rows without it). Attaching an already-attached tag is a no-op.
func (db *DB) AddTagToItem(itemID int64, name string, tagType int64) error {
	if tagType != TagTypeManual && tagType != TagTypeAutomatic {
		return fmt.Errorf("%w: tag type %d", ErrInvalidReference, tagType)
	}

	return db.withTx(func(tx *sql.Tx) error {
		ok, err := itemExists(tx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}

		tagID, err := tagIDByName(tx, name, true)
		if err != nil {
			return err
		}

		res, err := tx.Exec(`
            INSERT OR IGNORE INTO itemTags (itemID, tagID, type)
            VALUES (?, ?, ?)
        `, itemID, tagID, tagType)
		if err != nil {
			return fmt.Errorf("failed to attach tag: %w", err)
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

// RemoveTagFromItem detaches a tag by name. The tag row itself is purged
// when no other item uses it, the way the owner garbage-collects tags.
func (db *DB) RemoveTagFromItem(itemID int64, name string) error {
	return db.withTx(func(tx *sql.Tx) error {
		tagID, err := tagIDByName(tx, name, false)
		if err != nil {
			return err
		}

		res, err := tx.Exec(
			"DELETE FROM itemTags WHERE itemID = ? AND tagID = ?", itemID, tagID,
		)
		if err != nil {
			return fmt.Errorf("failed to detach tag: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: tag %q on item %d", ErrNotFound, name, itemID)
		}

		var remaining int64
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM itemTags WHERE tagID = ?", tagID,
		).Scan(&remaining); err != nil {
			return fmt.Errorf("failed to count tag uses: %w", err)
		}
		if remaining == 0 {
			if _, err := tx.Exec("DELETE FROM tags WHERE tagID = ?", tagID); err != nil {
				return fmt.Errorf("failed to purge unused tag: %w", err)
			}
		}

		return touchItem(tx, itemID)
	})
}

func tagIDByName(tx *sql.Tx, name string, create bool) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT tagID FROM tags WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up tag %q: %w", name, err)
	}
	if !create {
		return 0, fmt.Errorf("%w: tag %q", ErrNotFound, name)
	}

	res, err := tx.Exec("INSERT INTO tags (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get tag ID: %w", err)
	}
	return id, nil
}

// ItemIDsWithTag returns the items carrying the named tag, in id order.
func (db *DB) ItemIDsWithTag(name string) ([]int64, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT it.itemID
        FROM itemTags it
        JOIN tags t ON t.tagID = it.tagID
        WHERE t.name = ?
        ORDER BY it.itemID
    `, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query items with tag: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tagged item: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tagged items: %w", err)
	}
	return ids, nil
}

// ItemsSharingTag returns, for every other item sharing at least one tag
// with itemID, the pair (other item, shared tag name). Aggregation and
// thresholding are the similarity engine's job.
func (db *DB) ItemsSharingTag(itemID int64) (map[int64][]string, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT other.itemID, t.name
        FROM itemTags mine
        JOIN itemTags other ON other.tagID = mine.tagID AND other.itemID != mine.itemID
        JOIN tags t ON t.tagID = mine.tagID
        WHERE mine.itemID = ?
    `, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared tags: %w", err)
	}
	defer rows.Close()

	shared := make(map[int64][]string)
	for rows.Next() {
		var other int64
		var name string
		if err := rows.Scan(&other, &name); err != nil {
			return nil, fmt.Errorf("failed to scan shared tag: %w", err)
		}
		shared[other] = append(shared[other], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shared tags: %w", err)
	}
	return shared, nil
}

package database

import (
	"database/sql"
	"fmt"

	"github.com/Combjellyshen/ZoteroBridge/internal/keys"
)

// Notes returns the notes nested under a parent item.
func (db *DB) Notes(parentItemID int64) ([]Note, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT itemID, parentItemID, COALESCE(title, ''), COALESCE(note, '')
        FROM itemNotes
        WHERE parentItemID = ?
        ORDER BY itemID
    `, parentItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ItemID, &n.ParentItemID, &n.Title, &n.Text); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// CreateNote creates a note item under a parent item. The parent must
// exist; the parent's bookkeeping is touched, not the note's own row (the
// note is new and starts dirty anyway).
func (db *DB) CreateNote(parentItemID int64, title, text string) (*Note, error) {
	var created *Note
	err := db.withTx(func(tx *sql.Tx) error {
		var libraryID int64
		err := tx.QueryRow(
			"SELECT libraryID FROM items WHERE itemID = ?", parentItemID,
		).Scan(&libraryID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: parent item %d", ErrInvalidReference, parentItemID)
		}
		if err != nil {
			return fmt.Errorf("failed to check parent item: %w", err)
		}

		typeID, err := itemTypeID(tx, "note")
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
			return fmt.Errorf("failed to insert note item: %w", err)
		}

		noteItemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get note item ID: %w", err)
		}

		if _, err := tx.Exec(`
            INSERT INTO itemNotes (itemID, parentItemID, note, title)
            VALUES (?, ?, ?, ?)
        `, noteItemID, parentItemID, text, title); err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}

		if err := touchItem(tx, parentItemID); err != nil {
			return err
		}

		created = &Note{
			ItemID:       noteItemID,
			ParentItemID: parentItemID,
			Title:        title,
			Text:         text,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Combjellyshen/ZoteroBridge/internal/keys"
)

// storagePrefix marks a path that is relative to the per-item storage
// subdirectory keyed by the item's object key.
const storagePrefix = "storage:"

const attachmentColumns = `
    a.itemID, i.key, COALESCE(a.parentItemID, 0),
    a.linkMode, COALESCE(a.contentType, ''), COALESCE(a.path, '')
`

func scanAttachment(row interface{ Scan(...any) error }) (*Attachment, error) {
	var a Attachment
	err := row.Scan(&a.ItemID, &a.Key, &a.ParentItemID, &a.LinkMode, &a.ContentType, &a.Path)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAttachment returns the attachment whose item ID is given.
func (db *DB) GetAttachment(itemID int64) (*Attachment, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(`
        SELECT `+attachmentColumns+`
        FROM itemAttachments a
        JOIN items i ON i.itemID = a.itemID
        WHERE a.itemID = ?
    `, itemID)

	a, err := scanAttachment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: attachment %d", ErrNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attachment: %w", err)
	}
	return a, nil
}

// ItemAttachments returns the attachments nested under a parent item.
func (db *DB) ItemAttachments(parentItemID int64) ([]Attachment, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT `+attachmentColumns+`
        FROM itemAttachments a
        JOIN items i ON i.itemID = a.itemID
        WHERE a.parentItemID = ?
        ORDER BY a.itemID
    `, parentItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item attachments: %w", err)
	}
	defer rows.Close()

	return collectAttachments(rows)
}

// StoredAttachments returns every attachment whose path is a
// storage-relative reference. Linked and URL attachments have nothing on
// disk to validate.
func (db *DB) StoredAttachments() ([]Attachment, error) {
	if err := db.connected(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
        SELECT ` + attachmentColumns + `
        FROM itemAttachments a
        JOIN items i ON i.itemID = a.itemID
        WHERE a.path LIKE 'storage:%'
        ORDER BY a.itemID
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query stored attachments: %w", err)
	}
	defer rows.Close()

	return collectAttachments(rows)
}

func collectAttachments(rows *sql.Rows) ([]Attachment, error) {
	var out []Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}
	return out, nil
}

// ResolveAttachmentPath turns an attachment's path into an absolute
// filesystem path. Storage-relative references resolve through the owning
// item's key under <dataDir>/storage/<key>/; the result is derived fresh on
// every call and must never be cached across key changes. Absolute paths
// pass through unchanged.
func ResolveAttachmentPath(a *Attachment, dataDir string) (string, error) {
	if a.Path == "" {
		return "", fmt.Errorf("%w: attachment %d has no path", ErrAttachmentUnresolvable, a.ItemID)
	}

	if rel, ok := strings.CutPrefix(a.Path, storagePrefix); ok {
		if rel == "" {
			return "", fmt.Errorf(
				"%w: attachment %d has an empty storage reference",
				ErrAttachmentUnresolvable, a.ItemID,
			)
		}
		if !keys.Valid(a.Key) {
			return "", fmt.Errorf(
				"%w: attachment %d has malformed key %q",
				ErrAttachmentUnresolvable, a.ItemID, a.Key,
			)
		}
		return filepath.Join(dataDir, "storage", a.Key, filepath.FromSlash(rel)), nil
	}

	if filepath.IsAbs(a.Path) {
		return a.Path, nil
	}

	return "", fmt.Errorf(
		"%w: attachment %d path %q is neither absolute nor storage-relative",
		ErrAttachmentUnresolvable, a.ItemID, a.Path,
	)
}

package database

import (
	"database/sql"
	"fmt"
)

// Probe runs a handful of row reads against core tables of the foreign
// schema. It is cheap on purpose: the point is to fail loudly before (and
// after) touching a file the owning application depends on, not to verify
// every page. A failure is fatal and wraps ErrIntegrity.
func (db *DB) Probe() error {
	if err := db.connected(); err != nil {
		return err
	}

	for _, table := range []string{"items", "collections", "fields", "itemTypes"} {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := db.conn.QueryRow(query).Scan(&n); err != nil {
			return fmt.Errorf("%w: cannot read table %s: %v", ErrIntegrity, table, err)
		}
	}

	var result string
	if err := db.conn.QueryRow("PRAGMA quick_check(1)").Scan(&result); err != nil {
		return fmt.Errorf("%w: quick_check did not run: %v", ErrIntegrity, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: quick_check reported %q", ErrIntegrity, result)
	}

	return nil
}

// tableExists reports whether the schema contains the named table. Some
// schema versions carry an optional verbatim fulltext content table.
func (db *DB) tableExists(name string) (bool, error) {
	if err := db.connected(); err != nil {
		return false, err
	}

	var n int64
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query sqlite_master: %w", err)
	}
	return n > 0, nil
}

// fieldID resolves a field name against the owner's fields table. The
// fields table is part of the owner's fixed schema and is never extended.
func fieldID(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT fieldID FROM fields WHERE fieldName = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: field %q", ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve field %q: %w", name, err)
	}
	return id, nil
}

// itemTypeID resolves an item type name (journalArticle, note, attachment,
// annotation, ...) to its ID.
func itemTypeID(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT itemTypeID FROM itemTypes WHERE typeName = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: item type %q", ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve item type %q: %w", name, err)
	}
	return id, nil
}

// valueID finds or creates a row in itemDataValues for the given value,
// mirroring how the owner deduplicates field values.
func valueID(tx *sql.Tx, value string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT valueID FROM itemDataValues WHERE value = ?", value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up value: %w", err)
	}

	res, err := tx.Exec("INSERT INTO itemDataValues (value) VALUES (?)", value)
	if err != nil {
		return 0, fmt.Errorf("failed to insert value: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get value ID: %w", err)
	}
	return id, nil
}

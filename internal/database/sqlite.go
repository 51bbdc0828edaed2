package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the library database at path. The caller is expected to pass a
// private working copy, never the owning application's live file; see the
// session package.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// journal_mode stays DELETE: the save path copies the main database
	// file byte-for-byte, so no state may live in a WAL sidecar.
	if _, err := conn.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = DELETE;
    `); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.Probe(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the connection. Further accessor calls fail with
// ErrNotConnected.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Path returns the file the connection was opened on.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) connected() error {
	if db == nil || db.conn == nil {
		return ErrNotConnected
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (db *DB) withTx(fn func(tx *sql.Tx) error) error {
	if err := db.connected(); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// now returns the current time formatted the way the owner stores it.
func now() string {
	return time.Now().UTC().Format(TimeLayout)
}

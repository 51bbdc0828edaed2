// Package session ties the write-safety guard and the relational accessor
// into one explicit handle. The owner's file is never opened directly:
// Connect copies it to a scratch file, every operation runs on the scratch,
// and Save writes the scratch back over the original. Multiple independent
// sessions can coexist, each with its own scratch copy.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Combjellyshen/ZoteroBridge/internal/database"
	"github.com/Combjellyshen/ZoteroBridge/internal/guard"
)

var (
	// ErrReadOnly is returned by mutation and save paths of a read-only
	// session. Read-only mode disables backups and writes entirely.
	ErrReadOnly = errors.New("session is read-only")

	errDatabaseMissing = errors.New("database file does not exist")
)

// Options configures a session.
type Options struct {
	// DBPath is the owner's database file.
	DBPath string

	// DataDir holds the storage/ tree for attachment resolution.
	DataDir string

	// BackupDir receives the pre-overwrite backup. Defaults to DataDir.
	BackupDir string

	// ProcessNames are the owner's executable names for liveness checks.
	ProcessNames []string

	// ReadOnly disables Mutate and Save.
	ReadOnly bool
}

// Session is one open working copy of the library.
type Session struct {
	opts    Options
	guard   *guard.Guard
	db      *database.DB
	scratch string
	dirty   bool
}

// Connect copies the database file to a private scratch copy, opens the
// accessor on it and probes integrity. The original stays untouched until
// Save.
func Connect(opts Options) (*Session, error) {
	if _, err := os.Stat(opts.DBPath); err != nil {
		return nil, fmt.Errorf("%w: %s", errDatabaseMissing, opts.DBPath)
	}

	backupDir := opts.BackupDir
	if backupDir == "" {
		backupDir = opts.DataDir
	}

	scratch, err := copyToScratch(opts.DBPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(scratch)
	if err != nil {
		os.Remove(scratch)
		return nil, err
	}

	return &Session{
		opts:    opts,
		guard:   guard.New(opts.DBPath, backupDir, opts.ProcessNames),
		db:      db,
		scratch: scratch,
	}, nil
}

// DB exposes the accessor for read paths. Mutations must go through Mutate
// so the guard and dirty tracking see them.
func (s *Session) DB() *database.DB {
	return s.db
}

// Guard exposes the session's write-safety guard.
func (s *Session) Guard() *guard.Guard {
	return s.guard
}

// DataDir returns the directory holding attachment storage.
func (s *Session) DataDir() string {
	return s.opts.DataDir
}

// ReadOnly reports whether the save path is disabled.
func (s *Session) ReadOnly() bool {
	return s.opts.ReadOnly
}

// Dirty reports whether an unsaved mutation exists.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Mutate runs fn against the accessor after the live-writer check. A
// successful fn marks the session dirty; a failed one leaves the dirty
// state unchanged (the accessor's own transactions keep half-mutations
// from becoming visible).
func (s *Session) Mutate(fn func(db *database.DB) error) error {
	if s.opts.ReadOnly {
		return ErrReadOnly
	}
	if err := s.guard.CheckLiveWriter(); err != nil {
		return err
	}

	if err := fn(s.db); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Save writes the scratch copy back over the owner's file. A clean session
// saves nothing (no needless rewrite of a possibly very large file). The
// first save of a session backs the original up first. ErrLiveWriter and
// integrity failures surface as-is and are never retried here.
func (s *Session) Save() error {
	if !s.dirty {
		return nil
	}
	if s.opts.ReadOnly {
		return ErrReadOnly
	}

	if err := s.guard.CheckLiveWriter(); err != nil {
		return err
	}
	if err := s.db.Probe(); err != nil {
		return err
	}
	if _, err := s.guard.EnsureBackup(); err != nil {
		return err
	}
	if err := s.guard.WriteBack(s.scratch); err != nil {
		return err
	}

	s.dirty = false
	return nil
}

// Close discards the scratch copy. Unsaved mutations are lost; Save is an
// explicit, separate step.
func (s *Session) Close() error {
	err := s.db.Close()
	if rmErr := os.Remove(s.scratch); rmErr != nil && err == nil {
		err = fmt.Errorf("failed to remove scratch copy: %w", rmErr)
	}
	return err
}

func copyToScratch(dbPath string) (string, error) {
	in, err := os.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open database file: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "zoterobridge-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to copy database to scratch: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to finish scratch copy: %w", err)
	}
	return out.Name(), nil
}

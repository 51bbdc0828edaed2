// Package guard keeps mutations away from a database file the owning
// application may be using. Detection is heuristic: a process scan plus
// lock-sentinel files next to the database. Between a passed check and the
// eventual overwrite nothing stops the owner from starting up, so the
// guard reduces risk, it does not eliminate it.
package guard

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

var (
	// ErrLiveWriter means the owning application appears to be active.
	// Callers must not retry without human intervention.
	ErrLiveWriter = errors.New("owning application appears to be running")

	errBackupFailed = errors.New("failed to back up database")
)

// sentinelSuffixes are the lock files the owner leaves next to the
// database while it has the file open for writing.
var sentinelSuffixes = []string{"-wal", "-shm", "-journal"}

// Guard protects one database file for the lifetime of a session.
type Guard struct {
	dbPath       string
	backupDir    string
	processNames []string

	// ProcessCheck reports a matching live process. Overridable in tests;
	// defaults to the per-OS process scan.
	ProcessCheck func(names []string) (string, bool)

	backupPath string
}

// New creates a guard for the database at dbPath. Backups land in
// backupDir; processNames are the owner's executable names.
func New(dbPath, backupDir string, processNames []string) *Guard {
	return &Guard{
		dbPath:       dbPath,
		backupDir:    backupDir,
		processNames: processNames,
		ProcessCheck: processRunning,
	}
}

// CheckLiveWriter fails with ErrLiveWriter when either liveness signal is
// positive: a running owner process, or a lock sentinel next to the file.
func (g *Guard) CheckLiveWriter() error {
	if name, running := g.ProcessCheck(g.processNames); running {
		return fmt.Errorf("%w: process %q is active", ErrLiveWriter, name)
	}

	for _, suffix := range sentinelSuffixes {
		sentinel := g.dbPath + suffix
		if _, err := os.Stat(sentinel); err == nil {
			return fmt.Errorf("%w: lock sentinel %s is present", ErrLiveWriter, sentinel)
		}
	}
	return nil
}

// EnsureBackup writes a timestamped full copy of the database file, once
// per guard. Later calls return the first backup's path without copying
// again.
func (g *Guard) EnsureBackup() (string, error) {
	if g.backupPath != "" {
		return g.backupPath, nil
	}

	stamp := time.Now().Format("20060102-150405")
	dest := filepath.Join(g.backupDir, fmt.Sprintf("%s.bak-%s", filepath.Base(g.dbPath), stamp))

	if err := os.MkdirAll(g.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", errBackupFailed, err)
	}
	if err := copyFile(g.dbPath, dest); err != nil {
		return "", fmt.Errorf("%w: %w", errBackupFailed, err)
	}
	if err := verifyCopy(g.dbPath, dest); err != nil {
		return "", fmt.Errorf("%w: %w", errBackupFailed, err)
	}

	g.backupPath = dest
	return dest, nil
}

// verifyCopy re-reads both files and compares checksums. A backup that does
// not match the original is worse than no backup: it fails the save.
func verifyCopy(src, dest string) error {
	srcSum, err := fileChecksum(src)
	if err != nil {
		return err
	}
	destSum, err := fileChecksum(dest)
	if err != nil {
		return err
	}
	if !bytes.Equal(srcSum, destSum) {
		return fmt.Errorf("backup %s does not match source", dest)
	}
	return nil
}

func fileChecksum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, f); err != nil {
		return nil, err
	}
	return hash.Sum(nil), nil
}

// BackupPath returns the backup written this session, or "" when none was
// needed yet.
func (g *Guard) BackupPath() string {
	return g.backupPath
}

// WriteBack replaces the database file with the scratch copy's bytes using
// an atomic rename-into-place, so a crash mid-save never leaves a torn
// file behind.
func (g *Guard) WriteBack(scratchPath string) error {
	src, err := os.Open(scratchPath)
	if err != nil {
		return fmt.Errorf("failed to open scratch copy: %w", err)
	}
	defer src.Close()

	if err := atomic.WriteFile(g.dbPath, src); err != nil {
		return fmt.Errorf("failed to write database back: %w", err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

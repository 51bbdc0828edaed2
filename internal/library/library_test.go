package library_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Combjellyshen/ZoteroBridge/internal/session"
	"github.com/Combjellyshen/ZoteroBridge/internal/zoterotest"
)

// newSession builds a fixture-backed session with the live-writer check
// neutralized, so tests don't depend on host processes.
func newSession(t *testing.T, f *zoterotest.Fixture) *session.Session {
	t.Helper()

	s, err := session.Connect(session.Options{
		DBPath:    f.DBPath,
		DataDir:   f.DataDir,
		BackupDir: filepath.Join(f.DataDir, "backups"),
	})
	require.NoError(t, err)
	s.Guard().ProcessCheck = func([]string) (string, bool) { return "", false }
	t.Cleanup(func() { s.Close() })
	return s
}

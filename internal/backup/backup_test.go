package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "collection.db")
	backupDir := filepath.Join(dir, "backups")

	require.NoError(t, os.WriteFile(dbPath, []byte("original contents"), 0o644))

	mgr := NewManager(dbPath, backupDir)
	path, err := mgr.Create("default")
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, os.WriteFile(dbPath, []byte("corrupted"), 0o644))

	require.NoError(t, mgr.Restore(path))

	restored, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "original contents", string(restored))

	preRestore := dbPath + ".pre-restore.backup"
	assert.FileExists(t, preRestore)
	preContents, err := os.ReadFile(preRestore)
	require.NoError(t, err)
	assert.Equal(t, "corrupted", string(preContents))
}

func TestRestoreMissingFile(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(filepath.Join(dir, "collection.db"), filepath.Join(dir, "backups"))
	err := mgr.Restore(filepath.Join(dir, "nope.zip"))
	assert.Error(t, err)
}

func TestCleanupOldKeepsOnlyRetentionCount(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "collection.db")
	backupDir := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backupDir, 0o755))

	names := []string{
		"srscore-backup-20260101-000000.zip",
		"srscore-backup-20260102-000000.zip",
		"srscore-backup-20260103-000000.zip",
	}
	for i, name := range names {
		p := filepath.Join(backupDir, name)
		require.NoError(t, os.WriteFile(p, []byte("backup"), 0o644))
		modTime := time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(p, modTime, modTime))
	}

	mgr := NewManager(dbPath, backupDir)
	require.NoError(t, mgr.CleanupOld(1))

	assert.NoFileExists(t, filepath.Join(backupDir, names[0]))
	assert.NoFileExists(t, filepath.Join(backupDir, names[1]))
	assert.FileExists(t, filepath.Join(backupDir, names[2]))
}

// Package backup implements zip-based backup/restore/retention for the
// collection database: a zip layout of collection.db plus backup-info.txt,
// a pre-restore safety copy, and retention-by-count cleanup.
package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Manager handles backup and restore operations for one collection file.
type Manager struct {
	dbPath    string
	backupDir string
}

// NewManager returns a Manager for the collection at dbPath, writing
// backups under backupDir.
func NewManager(dbPath, backupDir string) *Manager {
	return &Manager{dbPath: dbPath, backupDir: backupDir}
}

// Create writes a timestamped zip backup and returns its path. The caller
// is responsible for quiescing writes to the collection first: the
// database should be flushed, committed, and closed before calling this.
func (m *Manager) Create(collectionID string) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("backup: create dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := filepath.Join(m.backupDir, fmt.Sprintf("srscore-backup-%s.zip", timestamp))

	zipFile, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("backup: create zip: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	if err := addFileToZip(zipWriter, m.dbPath, "collection.db"); err != nil {
		return "", fmt.Errorf("backup: add database: %w", err)
	}

	metadata := fmt.Sprintf("Backup created: %s\nCollection ID: %s\nDatabase: %s\n",
		time.Now().Format(time.RFC3339), collectionID, filepath.Base(m.dbPath))
	metaWriter, err := zipWriter.Create("backup-info.txt")
	if err != nil {
		return "", fmt.Errorf("backup: create metadata entry: %w", err)
	}
	if _, err := metaWriter.Write([]byte(metadata)); err != nil {
		return "", fmt.Errorf("backup: write metadata: %w", err)
	}

	log.Printf("backup: created %s", backupPath)
	return backupPath, nil
}

// Restore replaces the live database with the one in backupPath. The
// caller must close the store's db handle before calling this — the
// collection file is exclusively owned while open.
func (m *Manager) Restore(backupPath string) error {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup: not found: %s", backupPath)
	}

	zipReader, err := zip.OpenReader(backupPath)
	if err != nil {
		return fmt.Errorf("backup: open: %w", err)
	}
	defer zipReader.Close()

	var dbFile *zip.File
	for _, f := range zipReader.File {
		if f.Name == "collection.db" {
			dbFile = f
			break
		}
	}
	if dbFile == nil {
		return fmt.Errorf("backup: zip has no collection.db")
	}

	tempPath := m.dbPath + ".restore.tmp"
	defer os.Remove(tempPath)
	if err := extractFile(dbFile, tempPath); err != nil {
		return fmt.Errorf("backup: extract: %w", err)
	}

	preRestorePath := m.dbPath + ".pre-restore.backup"
	if err := copyFile(m.dbPath, preRestorePath); err != nil {
		log.Printf("backup: warning: could not snapshot current database: %v", err)
	} else {
		log.Printf("backup: current database saved to %s", preRestorePath)
	}

	if err := os.Rename(tempPath, m.dbPath); err != nil {
		return fmt.Errorf("backup: replace database: %w", err)
	}
	log.Printf("backup: restored from %s", backupPath)
	return nil
}

// CleanupOld deletes backups beyond the retentionCount most recent ones.
func (m *Manager) CleanupOld(retentionCount int) error {
	files, err := filepath.Glob(filepath.Join(m.backupDir, "srscore-backup-*.zip"))
	if err != nil {
		return fmt.Errorf("backup: list: %w", err)
	}
	if len(files) <= retentionCount {
		return nil
	}

	type stamped struct {
		path    string
		modTime time.Time
	}
	var entries []stamped
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, stamped{path: path, modTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.Before(entries[j].modTime) })

	toDelete := len(entries) - retentionCount
	for i := 0; i < toDelete; i++ {
		if err := os.Remove(entries[i].path); err != nil {
			log.Printf("backup: warning: could not delete %s: %v", entries[i].path, err)
			continue
		}
		log.Printf("backup: deleted old backup %s", entries[i].path)
	}
	return nil
}

func addFileToZip(zw *zip.Writer, filePath, nameInZip string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := zw.Create(nameInZip)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func extractFile(zf *zip.File, destPath string) error {
	r, err := zf.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = io.Copy(w, r)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

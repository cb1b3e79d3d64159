package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"podnotes/internal/textutil"
)

// TargetPath returns the archive path for a note. Notes are grouped into
// month directories so the archive stays browsable as it grows.
func TargetPath(notesDir string, processedAt time.Time, title string) string {
	name := textutil.SanitizeFileName(title)
	return filepath.Join(notesDir, processedAt.Format("2006-01"), name+".md")
}

// WriteArchive persists the rendered note at path. The content is staged in
// a temporary file and renamed into place so a crash mid-write never leaves
// a truncated note in the archive.
func WriteArchive(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create note directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".note-*.md.tmp")
	if err != nil {
		return fmt.Errorf("stage note: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write note: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close note: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish note: %w", err)
	}
	return nil
}

// WriteMirror copies the note into the mirror directory, preserving the
// month/file layout of the archive. Returns the mirror path on success.
func WriteMirror(mirrorDir, archivePath, content string) (string, error) {
	if mirrorDir == "" {
		return "", nil
	}
	rel := filepath.Join(filepath.Base(filepath.Dir(archivePath)), filepath.Base(archivePath))
	target := filepath.Join(mirrorDir, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create mirror directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write mirror: %w", err)
	}
	return target, nil
}

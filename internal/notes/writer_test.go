package notes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTargetPathGroupsByMonth(t *testing.T) {
	processed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	path := TargetPath("/notes", processed, "深入聊聊：分布式/系统?")
	if dir := filepath.Dir(path); dir != "/notes/2026-03" {
		t.Fatalf("unexpected month directory %q", dir)
	}
	name := filepath.Base(path)
	if strings.ContainsAny(name, `/\:?`) {
		t.Fatalf("unsafe characters in file name %q", name)
	}
	if !strings.HasSuffix(name, ".md") {
		t.Fatalf("missing .md suffix in %q", name)
	}
}

func TestWriteArchiveCreatesDirectoriesAndLeavesNoTempFiles(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "2026-03", "note.md")

	if err := WriteArchive(path, "# hello\n"); err != nil {
		t.Fatalf("WriteArchive failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archived note: %v", err)
	}
	if string(content) != "# hello\n" {
		t.Fatalf("unexpected content %q", content)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read note directory: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestWriteArchiveOverwritesExisting(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "2026-03", "note.md")

	if err := WriteArchive(path, "first\n"); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteArchive(path, "second\n"); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	if string(content) != "second\n" {
		t.Fatalf("expected overwrite, got %q", content)
	}
}

func TestWriteMirrorPreservesMonthLayout(t *testing.T) {
	base := t.TempDir()
	mirror := filepath.Join(base, "mirror")
	archivePath := filepath.Join(base, "notes", "2026-03", "note.md")

	target, err := WriteMirror(mirror, archivePath, "# mirrored\n")
	if err != nil {
		t.Fatalf("WriteMirror failed: %v", err)
	}
	want := filepath.Join(mirror, "2026-03", "note.md")
	if target != want {
		t.Fatalf("mirror path = %q, want %q", target, want)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	if string(content) != "# mirrored\n" {
		t.Fatalf("unexpected mirror content %q", content)
	}
}

func TestWriteMirrorNoopWithoutDirectory(t *testing.T) {
	target, err := WriteMirror("", "/notes/2026-03/note.md", "content")
	if err != nil {
		t.Fatalf("WriteMirror with empty dir: %v", err)
	}
	if target != "" {
		t.Fatalf("expected empty target, got %q", target)
	}
}

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/relscope/internal/apperr"
	"github.com/starford/relscope/internal/checksum"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte("PK\x03\x04 not really a zip")
	if err := s.Write("deck.pptx", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("deck.pptx")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("a/b/c.docx", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.docx")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempWorkspace(t)
	if _, err := s.Read("nope.docx"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("del.xlsx", []byte("bye"))
	if err := s.Delete("del.xlsx"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.xlsx"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if err := s.Delete("del.xlsx"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("b.docx", []byte("b"))
	_ = s.Write("sub/a.pptx", []byte("a"))
	_ = s.Write("sub/~$a.pptx", []byte("lock"))
	_ = s.Write("readme.txt", []byte("not a package"))
	_ = s.Write(".hidden/c.xlsx", []byte("c"))

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2", items)
	}
	if items[0].Path != "b.docx" || items[1].Path != "sub/a.pptx" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[1].Checksum != checksum.Sum([]byte("a")) || items[1].Size != 1 {
		t.Errorf("metadata = %+v", items[1])
	}
}

func TestIsPackageFile(t *testing.T) {
	cases := map[string]bool{
		"deck.pptx":       true,
		"BOOK.XLSX":       true,
		"dir/memo.docm":   true,
		"~$memo.docx":     false,
		"dir/~$memo.docx": false,
		"notes.md":        false,
		"archive.zip":     false,
		"docx":            false,
	}
	for name, want := range cases {
		if got := IsPackageFile(name); got != want {
			t.Errorf("IsPackageFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWorkspace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.docx",
		"/etc/shadow",
		"",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidPath", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("atomic.docx", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.docx", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.docx")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".relscope-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestRel(t *testing.T) {
	s := tempWorkspace(t)
	if rel, ok := s.Rel(filepath.Join(s.Root(), "sub", "a.docx")); !ok || rel != "sub/a.docx" {
		t.Errorf("Rel = %q, %v", rel, ok)
	}
	if _, ok := s.Rel(filepath.Dir(s.Root())); ok {
		t.Error("parent of root should not be relative")
	}
	if _, ok := s.Rel(s.Root()); ok {
		t.Error("root itself is not a file path")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "relscope-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

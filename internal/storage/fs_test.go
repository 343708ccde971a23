package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempInbox(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempInbox(t)
	content := []byte(`{"notebook":"work","tasks":[{"title":"a"}]}`)
	if err := s.Write("batch.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("batch.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox", "nested")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("inbox dir not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "taskwise-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestList_ImportableOnly(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("a.json", []byte("{}"))
	_ = s.Write("sub/b.md", []byte("---\ntitle: b\n---\n"))
	_ = s.Write("readme.txt", []byte("ignored"))
	_ = s.Write(".hidden.json", []byte("{}"))
	_ = s.Write(ArchiveDir+"/old.json", []byte("{}"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("%s has no checksum", it.Path)
		}
	}
}

func TestMoveToArchive(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("a.json", []byte("{}"))
	if err := s.Move("a.json", ArchiveDir+"/a.json"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := s.Read(ArchiveDir + "/a.json"); err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if _, err := s.Read("a.json"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempInbox(t)
	for _, p := range []string{"../../etc/passwd", "../outside.json", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("doc.json", []byte("one"))
	if err := s.Write("doc.json", []byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("doc.json")
	if string(got) != "two" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".taskwise-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestImportable(t *testing.T) {
	for name, want := range map[string]bool{"a.json": true, "b.md": true, "c.txt": false, "dir.json/file": false} {
		if got := Importable(name); got != want {
			t.Errorf("Importable(%q) = %v", name, got)
		}
	}
}

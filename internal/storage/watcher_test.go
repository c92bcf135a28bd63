package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, path string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+path)
	r.mu.Unlock()
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, e)
}

func startWatch(t *testing.T) (*FS, *recorder) {
	t.Helper()
	s := tempWorkspace(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	go Watch(ctx, s, logger, rec.record)
	time.Sleep(100 * time.Millisecond)
	return s, rec
}

func TestWatcher_WrittenPackage(t *testing.T) {
	s, rec := startWatch(t)

	_ = os.WriteFile(filepath.Join(s.Root(), "deck.pptx"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("written:deck.pptx")
	}, "write not reported")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	s, rec := startWatch(t)

	_ = os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(s.Root(), "book.xlsx"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("written:book.xlsx")
	}, "package write not reported")
	if rec.has("written:notes.txt") {
		t.Error("non-package file reported")
	}
}

func TestWatcher_RemovedPackage(t *testing.T) {
	s, rec := startWatch(t)
	path := filepath.Join(s.Root(), "gone.docx")
	_ = os.WriteFile(path, []byte("x"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("written:gone.docx")
	}, "write not reported")

	_ = os.Remove(path)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("removed:gone.docx")
	}, "removal not reported")
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	s, rec := startWatch(t)

	sub := filepath.Join(s.Root(), "sub")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "memo.docx"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("written:sub/memo.docx")
	}, "write in new subdirectory not reported")
}

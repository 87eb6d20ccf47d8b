package janitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestJanitor() *Janitor {
	return NewWithLogger(zerolog.Nop())
}

func TestDeleteIfExists(t *testing.T) {
	j := newTestJanitor()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !j.DeleteIfExists(ctx, path) {
		t.Error("first delete should report removal")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists: %v", err)
	}
	if j.DeleteIfExists(ctx, path) {
		t.Error("second delete should be a no-op")
	}
	if j.DeleteIfExists(ctx, "") {
		t.Error("empty path should be a no-op")
	}
}

func TestDeleteAll(t *testing.T) {
	j := newTestJanitor()
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	os.WriteFile(a, nil, 0644)
	os.WriteFile(b, nil, 0644)

	if n := j.DeleteAll(context.Background(), a, b, filepath.Join(dir, "missing")); n != 2 {
		t.Errorf("DeleteAll removed %d, want 2", n)
	}
}

func TestRemoveDir(t *testing.T) {
	j := newTestJanitor()
	dir := filepath.Join(t.TempDir(), "chunks")
	os.MkdirAll(filepath.Join(dir, "nested"), 0755)
	os.WriteFile(filepath.Join(dir, "nested", "chunk_0000.mp4"), nil, 0644)

	j.RemoveDir(context.Background(), dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("dir still exists: %v", err)
	}
	j.RemoveDir(context.Background(), dir)
}

func TestSweep(t *testing.T) {
	j := newTestJanitor()
	root := t.TempDir()
	now := time.Now()

	stale := filepath.Join(root, "run-old")
	fresh := filepath.Join(root, "run-new")
	os.MkdirAll(stale, 0755)
	os.MkdirAll(fresh, 0755)
	old := now.Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	if n := j.Sweep(context.Background(), root, time.Hour, now); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale dir should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh dir should be kept")
	}
}

func TestSweep_MissingRoot(t *testing.T) {
	j := newTestJanitor()
	if n := j.Sweep(context.Background(), filepath.Join(t.TempDir(), "none"), time.Minute, time.Now()); n != 0 {
		t.Errorf("Sweep on missing root = %d, want 0", n)
	}
}

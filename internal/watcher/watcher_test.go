package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherFiresOnWatchedFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "text.idx")
	if err := os.WriteFile(target, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 1)
	w, err := New([]string{target}, 50*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(target, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback was not invoked")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "text.idx")
	other := filepath.Join(dir, "unrelated.txt")

	fired := make(chan struct{}, 1)
	w, err := New([]string{target}, 20*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(other, []byte("noise"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Fatal("callback fired for an unwatched file")
	case <-time.After(200 * time.Millisecond):
	}
}

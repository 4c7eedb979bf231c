package download

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesIntoRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "downloads")
	d := NewDir(root)

	path, err := d.Save(context.Background(), "cut_clip.mp4", "video/mp4", strings.NewReader("clip"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != filepath.Join(root, "cut_clip.mp4") {
		t.Fatalf("unexpected path: %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "clip" {
		t.Fatalf("unexpected content %q err=%v", b, err)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	root := t.TempDir()
	d := NewDir(root)
	ctx := context.Background()

	if _, err := d.Save(ctx, "cut_a.mp4", "video/mp4", strings.NewReader("old")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	path, err := d.Save(ctx, "cut_a.mp4", "video/mp4", strings.NewReader("new"))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "new" {
		t.Fatalf("expected replaced content, got %q", b)
	}
}

func TestSaveStripsDirectories(t *testing.T) {
	root := t.TempDir()
	path, err := NewDir(root).Save(context.Background(), "../../etc/cut_x.mp4", "video/mp4", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Dir(path) != root {
		t.Fatalf("expected file inside root, got %s", path)
	}
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewDir(root).Save(ctx, "cut_a.mp4", "video/mp4", strings.NewReader("x")); err == nil {
		t.Fatalf("expected cancellation error")
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("expected no leftovers, got %d entries", len(entries))
	}
}

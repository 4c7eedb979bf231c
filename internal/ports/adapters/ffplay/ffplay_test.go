package ffplay

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/forPelevin/mp4trim/internal/types"
)

func TestShowReplacesAndHideStops(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a unix shell")
	}
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	bin := filepath.Join(dir, "ffplay")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755); err != nil {
		t.Fatalf("write fake ffplay: %v", err)
	}

	w := New(bin, zerolog.Nop())
	file := types.MediaFile{Path: filepath.Join(dir, "a.mp4"), Name: "a.mp4"}

	w.Show(file, 1)
	first := w.done
	w.Show(file, 5)
	select {
	case <-first:
	default:
		t.Fatalf("expected the first player to be stopped by the second Show")
	}

	w.Hide()
	if w.cancel != nil || w.done != nil {
		t.Fatalf("expected Hide to clear the running player")
	}
	w.Hide()
}

func TestShowWithMissingBinaryIsQuiet(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing-ffplay"), zerolog.Nop())
	w.Show(types.MediaFile{Path: "x.mp4", Name: "x.mp4"}, 0)
	if w.cancel != nil {
		t.Fatalf("expected no player when the binary is missing")
	}
	w.Hide()
}

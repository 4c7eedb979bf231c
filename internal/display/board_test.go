package display

import (
	"sync"
	"testing"
)

func TestProgressLifecycle(t *testing.T) {
	b := NewBoard()
	b.ShowProgress("Processing video...", 0)

	s := b.Snapshot()
	if !s.Progress.Visible || s.Progress.Label != "Processing video..." || s.Progress.Percent != 0 {
		t.Fatalf("unexpected progress after show: %+v", s.Progress)
	}

	b.UpdateProgress(42)
	s = b.Snapshot()
	if s.Progress.Percent != 42 || s.Progress.Label != "Processing: 42%" {
		t.Fatalf("unexpected progress after update: %+v", s.Progress)
	}

	b.UpdateProgress(140)
	if got := b.Snapshot().Progress.Percent; got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}

	b.HideProgress()
	s = b.Snapshot()
	if s.Progress.Visible || s.Progress.Percent != 0 {
		t.Fatalf("expected hidden progress reset to 0, got %+v", s.Progress)
	}
}

func TestMessagesReachHook(t *testing.T) {
	b := NewBoard()
	var seen []Message
	b.OnMessage(func(m Message) { seen = append(seen, m) })

	b.Alert("Please select a valid MP4 file")
	b.Info("Video cut successfully and downloaded!")

	s := b.Snapshot()
	if s.LastMessage == nil || s.LastMessage.Level != LevelInfo {
		t.Fatalf("unexpected last message: %+v", s.LastMessage)
	}
	if len(seen) != 2 || seen[0].Level != LevelAlert || seen[1].Text != "Video cut successfully and downloaded!" {
		t.Fatalf("unexpected hook calls: %+v", seen)
	}

	b.DismissMessage()
	if b.Snapshot().LastMessage != nil {
		t.Fatalf("expected dismissed banner")
	}
}

func TestConcurrentWrites(t *testing.T) {
	b := NewBoard()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.UpdateProgress(j)
				b.SetElapsed("0:01")
				_ = b.Snapshot()
			}
		}()
	}
	wg.Wait()
}

package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/mp4trim/internal/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingWindow struct {
	shows []float64
	hides int
}

func (w *recordingWindow) Show(_ types.MediaFile, from float64) { w.shows = append(w.shows, from) }
func (w *recordingWindow) Hide()                                { w.hides++ }

func newTestPlayhead() (*Playhead, *fakeClock, *recordingWindow) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	w := &recordingWindow{}
	p := New(WithClock(clk.Now), WithWindow(w))
	p.Load(types.MediaFile{Name: "a.mp4"}, 30)
	return p, clk, w
}

func TestPositionAdvancesOnlyWhilePlaying(t *testing.T) {
	p, clk, _ := newTestPlayhead()

	clk.Advance(5 * time.Second)
	if got := p.Position(); got != 0 {
		t.Fatalf("paused playhead moved to %v", got)
	}

	p.Play()
	clk.Advance(2500 * time.Millisecond)
	if got := p.Position(); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}

	p.Pause()
	clk.Advance(10 * time.Second)
	if got := p.Position(); got != 2.5 {
		t.Fatalf("expected position to hold at 2.5, got %v", got)
	}
}

func TestSeekClampsAndReanchors(t *testing.T) {
	p, clk, _ := newTestPlayhead()

	p.Seek(-3)
	if got := p.Position(); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	p.Seek(99)
	if got := p.Position(); got != 30 {
		t.Fatalf("expected clamp to duration, got %v", got)
	}

	p.Seek(10)
	p.Play()
	clk.Advance(time.Second)
	p.Seek(20)
	clk.Advance(time.Second)
	if got := p.Position(); got != 21 {
		t.Fatalf("expected 21 after seek while playing, got %v", got)
	}
}

func TestPlaybackStopsAtEnd(t *testing.T) {
	p, clk, _ := newTestPlayhead()
	p.Seek(29)
	p.Play()
	clk.Advance(5 * time.Second)

	if got := p.Position(); got != 30 {
		t.Fatalf("expected clamp at 30, got %v", got)
	}
	if p.Playing() {
		t.Fatalf("expected playback to stop at the end")
	}

	// playing again from the end restarts from 0
	p.Play()
	if got := p.Position(); got != 0 {
		t.Fatalf("expected restart at 0, got %v", got)
	}
}

func TestWindowFollowsPlayState(t *testing.T) {
	p, _, w := newTestPlayhead()
	hidesAfterLoad := w.hides

	p.Seek(4)
	if len(w.shows) != 0 {
		t.Fatalf("seek while paused must not open the window")
	}
	p.Play()
	p.Seek(8)
	p.Pause()

	if len(w.shows) != 2 || w.shows[0] != 4 || w.shows[1] != 8 {
		t.Fatalf("unexpected window shows: %v", w.shows)
	}
	if w.hides != hidesAfterLoad+1 {
		t.Fatalf("expected one hide on pause, got %d", w.hides-hidesAfterLoad)
	}
}

func TestPlayWithoutFileIsNoop(t *testing.T) {
	p := New()
	p.Play()
	if p.Playing() {
		t.Fatalf("expected no playback without a bound file")
	}
}

// Package playback is the preview element: a playhead over the bound file whose
// position advances with the clock while playing.
package playback

import (
	"sync"
	"time"

	"github.com/forPelevin/mp4trim/internal/types"
)

// Window mirrors the playhead somewhere the user can watch it.
type Window interface {
	Show(file types.MediaFile, from float64)
	Hide()
}

type Playhead struct {
	mu sync.Mutex

	now    func() time.Time
	window Window

	file     types.MediaFile
	loaded   bool
	duration float64

	// position is the playhead at anchor; while playing the live position is
	// position + elapsed since anchor.
	position float64
	anchor   time.Time
	playing  bool
}

type Option func(*Playhead)

func WithClock(now func() time.Time) Option {
	return func(p *Playhead) { p.now = now }
}

func WithWindow(w Window) Option {
	return func(p *Playhead) { p.window = w }
}

func New(opts ...Option) *Playhead {
	p := &Playhead{now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Load binds a file, revoking the previous binding. Playback starts paused at 0.
func (p *Playhead) Load(file types.MediaFile, duration float64) {
	p.mu.Lock()
	p.file = file
	p.loaded = true
	p.duration = duration
	p.position = 0
	p.playing = false
	w := p.window
	p.mu.Unlock()

	if w != nil {
		w.Hide()
	}
}

func (p *Playhead) Seek(seconds float64) {
	p.mu.Lock()
	p.position = p.clamp(seconds)
	p.anchor = p.now()
	playing := p.playing && p.loaded
	file, pos, w := p.file, p.position, p.window
	p.mu.Unlock()

	if w != nil && playing {
		w.Show(file, pos)
	}
}

func (p *Playhead) Play() {
	p.mu.Lock()
	if !p.loaded || p.playing {
		p.mu.Unlock()
		return
	}
	if p.duration > 0 && p.position >= p.duration {
		p.position = 0
	}
	p.playing = true
	p.anchor = p.now()
	file, pos, w := p.file, p.position, p.window
	p.mu.Unlock()

	if w != nil {
		w.Show(file, pos)
	}
}

func (p *Playhead) Pause() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.position = p.liveLocked()
	p.playing = false
	w := p.window
	p.mu.Unlock()

	if w != nil {
		w.Hide()
	}
}

func (p *Playhead) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := p.liveLocked()
	if p.playing && p.duration > 0 && pos >= p.duration {
		// reached the end: behave like a media element and stop
		p.position = p.duration
		p.playing = false
	}
	return pos
}

func (p *Playhead) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *Playhead) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Playhead) liveLocked() float64 {
	if !p.playing {
		return p.position
	}
	elapsed := p.now().Sub(p.anchor).Seconds()
	return p.clamp(p.position + elapsed)
}

func (p *Playhead) clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if p.duration > 0 && v > p.duration {
		return p.duration
	}
	return v
}

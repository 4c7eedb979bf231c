// Package display holds what the user sees: the state a page would keep in its
// DOM. Loader and trimmer write to a Board, front ends render Snapshot.
package display

import (
	"strconv"
	"sync"
	"time"

	"github.com/forPelevin/mp4trim/internal/types"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelAlert Level = "alert"
)

type Message struct {
	Level Level
	Text  string
	At    time.Time
}

// State is a copy of the board at one instant.
type State struct {
	FileName        string
	PlaybackVisible bool
	DurationText    string
	ElapsedText     string

	StartField string
	EndField   string
	FieldMax   float64

	Progress types.Progress

	LastMessage *Message
}

type Board struct {
	mu        sync.RWMutex
	state     State
	now       func() time.Time
	onMessage func(Message)
}

func NewBoard() *Board {
	return &Board{
		state: State{
			StartField:   "0",
			EndField:     "0",
			DurationText: "0:00",
			ElapsedText:  "0:00",
		},
		now: time.Now,
	}
}

// OnMessage registers a hook that sees every user-facing message. It is called
// outside the board lock.
func (b *Board) OnMessage(fn func(Message)) {
	b.mu.Lock()
	b.onMessage = fn
	b.mu.Unlock()
}

func (b *Board) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state
	if b.state.LastMessage != nil {
		m := *b.state.LastMessage
		s.LastMessage = &m
	}
	return s
}

func (b *Board) Alert(msg string) { b.push(LevelAlert, msg) }
func (b *Board) Info(msg string)  { b.push(LevelInfo, msg) }

func (b *Board) push(level Level, text string) {
	b.mu.Lock()
	m := Message{Level: level, Text: text, At: b.now()}
	last := m
	b.state.LastMessage = &last
	hook := b.onMessage
	b.mu.Unlock()

	if hook != nil {
		hook(m)
	}
}

// DismissMessage clears the banner.
func (b *Board) DismissMessage() {
	b.mu.Lock()
	b.state.LastMessage = nil
	b.mu.Unlock()
}

func (b *Board) ShowPlayback(fileName string) {
	b.mu.Lock()
	b.state.FileName = fileName
	b.state.PlaybackVisible = true
	b.mu.Unlock()
}

func (b *Board) SetDuration(text string) {
	b.mu.Lock()
	b.state.DurationText = text
	b.mu.Unlock()
}

func (b *Board) SetElapsed(text string) {
	b.mu.Lock()
	b.state.ElapsedText = text
	b.mu.Unlock()
}

func (b *Board) StartField() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.StartField
}

func (b *Board) EndField() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.EndField
}

func (b *Board) SetStartField(v string) {
	b.mu.Lock()
	b.state.StartField = v
	b.mu.Unlock()
}

func (b *Board) SetEndField(v string) {
	b.mu.Lock()
	b.state.EndField = v
	b.mu.Unlock()
}

func (b *Board) SetFieldMax(max float64) {
	b.mu.Lock()
	b.state.FieldMax = max
	b.mu.Unlock()
}

func (b *Board) ShowProgress(label string, percent int) {
	b.mu.Lock()
	b.state.Progress = types.Progress{Visible: true, Label: label, Percent: clampPercent(percent)}
	b.mu.Unlock()
}

func (b *Board) UpdateProgress(percent int) {
	p := clampPercent(percent)
	b.mu.Lock()
	b.state.Progress.Percent = p
	b.state.Progress.Label = progressLabel(p)
	b.mu.Unlock()
}

func (b *Board) HideProgress() {
	b.mu.Lock()
	b.state.Progress = types.Progress{}
	b.mu.Unlock()
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func progressLabel(percent int) string {
	return "Processing: " + strconv.Itoa(percent) + "%"
}

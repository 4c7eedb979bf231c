// Package portstest provides in-memory implementations of the ports for tests.
package portstest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/mp4trim/internal/ports"
)

// Engine is an in-memory engine. Exec copies the first -i input to the last
// argument unless ExecErr is set, emitting Progress fractions on the way.
type Engine struct {
	mu sync.Mutex

	LoadErr   error
	WriteErr  error
	ExecErr   error
	ReadErr   error
	DeleteErr error
	// LoadGate, when non-nil, blocks Load until closed.
	LoadGate  chan struct{}
	Progress  []float64

	Calls    []string
	Execs    [][]string
	Files    map[string][]byte
	Loads    int
	Deleted  []string
	loaded   bool
	onLog    func(string)
	onProg   func(float64)
	loadedCh chan struct{}
}

func NewEngine() *Engine {
	return &Engine{Files: map[string][]byte{}, loadedCh: make(chan struct{}, 16)}
}

func (e *Engine) record(call string) {
	e.mu.Lock()
	e.Calls = append(e.Calls, call)
	e.mu.Unlock()
}

// CallLog returns a copy of the operations seen so far, e.g. "load", "write input.mp4".
func (e *Engine) CallLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.Calls...)
}

// LoadStarted is signalled every time Load begins.
func (e *Engine) LoadStarted() <-chan struct{} { return e.loadedCh }

func (e *Engine) Load(_ context.Context, _ ports.LoadOptions) error {
	e.mu.Lock()
	e.Loads++
	gate := e.LoadGate
	e.mu.Unlock()
	e.record("load")
	select {
	case e.loadedCh <- struct{}{}:
	default:
	}

	if gate != nil {
		<-gate
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.LoadErr != nil {
		return e.LoadErr
	}
	e.loaded = true
	return nil
}

func (e *Engine) OnLog(fn func(string)) {
	e.mu.Lock()
	e.onLog = fn
	e.mu.Unlock()
}

func (e *Engine) OnProgress(fn func(float64)) {
	e.mu.Lock()
	e.onProg = fn
	e.mu.Unlock()
}

func (e *Engine) WriteFile(_ context.Context, name string, r io.Reader) error {
	e.record("write " + name)
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.WriteErr != nil {
		return e.WriteErr
	}
	e.Files[name] = b
	return nil
}

func (e *Engine) Exec(_ context.Context, args []string) error {
	e.record("exec")
	e.mu.Lock()
	e.Execs = append(e.Execs, append([]string(nil), args...))
	progress := append([]float64(nil), e.Progress...)
	onProg, onLog := e.onProg, e.onLog
	execErr := e.ExecErr
	e.mu.Unlock()

	if onLog != nil {
		onLog("exec " + strings.Join(args, " "))
	}
	for _, p := range progress {
		if onProg != nil {
			onProg(p)
		}
	}
	if execErr != nil {
		return execErr
	}
	if len(args) == 0 {
		return errors.New("fake engine: empty argv")
	}

	in := ""
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-i" {
			in = args[i+1]
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	src, ok := e.Files[in]
	if !ok {
		return fmt.Errorf("fake engine: no such file %q", in)
	}
	e.Files[args[len(args)-1]] = append([]byte(nil), src...)
	return nil
}

func (e *Engine) ReadFile(_ context.Context, name string) (io.ReadCloser, error) {
	e.record("read " + name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ReadErr != nil {
		return nil, e.ReadErr
	}
	b, ok := e.Files[name]
	if !ok {
		return nil, fmt.Errorf("fake engine: no such file %q", name)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (e *Engine) DeleteFile(_ context.Context, name string) error {
	e.record("delete " + name)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Deleted = append(e.Deleted, name)
	if e.DeleteErr != nil {
		return e.DeleteErr
	}
	if _, ok := e.Files[name]; !ok {
		return fmt.Errorf("fake engine: no such file %q", name)
	}
	delete(e.Files, name)
	return nil
}

// FileNames lists what is currently inside the engine's filesystem.
func (e *Engine) FileNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.Files))
	for k := range e.Files {
		out = append(out, k)
	}
	return out
}

// Prober returns a fixed duration, or Err.
type Prober struct {
	Duration time.Duration
	Err      error
}

func (p Prober) ProbeDuration(context.Context, string) (time.Duration, error) {
	return p.Duration, p.Err
}

// Sink keeps saved clips in memory.
type Sink struct {
	mu    sync.Mutex
	Err   error
	Saves []Saved
}

type Saved struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (s *Sink) Save(_ context.Context, name, mimeType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Saves = append(s.Saves, Saved{Name: name, MIMEType: mimeType, Data: b})
	return "mem://" + name, nil
}

func (s *Sink) Saved() []Saved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Saved(nil), s.Saves...)
}

var (
	_ ports.Engine = (*Engine)(nil)
	_ ports.Prober = Prober{}
	_ ports.Sink   = (*Sink)(nil)
)

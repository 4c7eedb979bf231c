// Package engine owns the lifecycle of the external media engine: it is loaded
// lazily on first use, at most once at a time, and kept for the life of the
// process once ready.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/forPelevin/mp4trim/internal/metrics"
	"github.com/forPelevin/mp4trim/internal/ports"
)

type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var errBadTransition = errors.New("engine: invalid state transition")

var transitions = map[State][]State{
	Uninitialized: {Initializing},
	Initializing:  {Ready, Failed},
	Failed:        {Uninitialized},
}

type Session struct {
	eng  ports.Engine
	opts ports.LoadOptions
	log  zerolog.Logger

	group singleflight.Group

	mu           sync.Mutex
	state        State
	onTransition func(from, to State)
	onProgress   func(float64)
}

func NewSession(eng ports.Engine, opts ports.LoadOptions, log zerolog.Logger) *Session {
	s := &Session{eng: eng, opts: opts, log: log}
	eng.OnLog(func(msg string) {
		s.log.Debug().Str("engine", "log").Msg(msg)
	})
	eng.OnProgress(s.dispatchProgress)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnTransition registers a hook called on every state change, under no lock.
func (s *Session) OnTransition(fn func(from, to State)) {
	s.mu.Lock()
	s.onTransition = fn
	s.mu.Unlock()
}

// Subscribe routes engine progress to fn until the returned func is called.
func (s *Session) Subscribe(fn func(float64)) (unsubscribe func()) {
	s.mu.Lock()
	s.onProgress = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.onProgress = nil
		s.mu.Unlock()
	}
}

// Engine returns the wrapped engine. Only call it after Ensure succeeded.
func (s *Session) Engine() ports.Engine { return s.eng }

// Ensure makes the engine ready. The first caller in Uninitialized starts the
// load; callers arriving while it runs wait for the same outcome. On failure the
// session goes back to Uninitialized so the next call can retry. beforeLoad runs
// only for the caller that actually starts a load.
func (s *Session) Ensure(ctx context.Context, beforeLoad func()) error {
	if s.State() == Ready {
		return nil
	}

	ch := s.group.DoChan("load", func() (any, error) {
		if s.State() == Ready {
			return nil, nil
		}
		if err := s.transition(Initializing); err != nil {
			return nil, err
		}
		if beforeLoad != nil {
			beforeLoad()
		}

		// detached: a caller giving up must not abort the load others wait on
		err := s.eng.Load(context.WithoutCancel(ctx), s.opts)
		if err != nil {
			metrics.EngineInits.WithLabelValues("error").Inc()
			s.log.Error().Err(err).Msg("engine load failed")
			_ = s.transition(Failed)
			_ = s.transition(Uninitialized)
			return nil, err
		}

		metrics.EngineInits.WithLabelValues("ok").Inc()
		s.log.Info().Msg("engine ready")
		return nil, s.transition(Ready)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	allowed := false
	for _, next := range transitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", errBadTransition, from, to)
	}
	s.state = to
	hook := s.onTransition
	s.mu.Unlock()

	s.log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("engine state")
	if hook != nil {
		hook(from, to)
	}
	return nil
}

func (s *Session) dispatchProgress(f float64) {
	s.mu.Lock()
	fn := s.onProgress
	s.mu.Unlock()
	if fn != nil {
		fn(f)
	}
}

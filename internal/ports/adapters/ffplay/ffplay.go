package ffplay

import (
	"context"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/forPelevin/mp4trim/internal/types"
)

// Window mirrors the playhead in an ffplay window. Each Show replaces the
// running player; Hide stops it.
type Window struct {
	bin string
	log zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(ffplayPath string, log zerolog.Logger) *Window {
	if ffplayPath == "" {
		ffplayPath = "ffplay"
	}
	return &Window{bin: ffplayPath, log: log}
}

func (w *Window) Show(file types.MediaFile, from float64) {
	w.Hide()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, w.bin,
		"-hide_banner",
		"-loglevel", "error",
		"-autoexit",
		"-window_title", file.Name,
		"-ss", strconv.FormatFloat(from, 'f', 3, 64),
		file.Path,
	)
	if err := cmd.Start(); err != nil {
		cancel()
		w.log.Warn().Err(err).Str("bin", w.bin).Msg("ffplay start failed")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cmd.Wait()
	}()

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()
}

func (w *Window) Hide() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

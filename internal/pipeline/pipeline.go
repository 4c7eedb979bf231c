// Package pipeline builds the object graph once and hands it to the front ends.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/mp4trim/internal/display"
	"github.com/forPelevin/mp4trim/internal/engine"
	xlog "github.com/forPelevin/mp4trim/internal/log"
	"github.com/forPelevin/mp4trim/internal/loader"
	"github.com/forPelevin/mp4trim/internal/metrics"
	"github.com/forPelevin/mp4trim/internal/playback"
	"github.com/forPelevin/mp4trim/internal/ports"
	"github.com/forPelevin/mp4trim/internal/ports/adapters/download"
	"github.com/forPelevin/mp4trim/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/mp4trim/internal/ports/adapters/ffplay"
	"github.com/forPelevin/mp4trim/internal/trimmer"
	"github.com/forPelevin/mp4trim/internal/types"
)

type Config struct {
	FFmpegPath  string
	FFprobePath string
	FFplayPath  string

	// PreviewWindow opens an ffplay window while the playhead plays.
	PreviewWindow bool

	// DownloadDir receives exported clips. If empty, defaults to ".".
	DownloadDir string
	// WorkDir is where the engine creates its scratch directory. If empty, os.TempDir.
	WorkDir string

	PollInterval time.Duration
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.FFmpegPath) == "" {
		return errors.New("ffmpeg path is empty")
	}
	if strings.TrimSpace(c.FFprobePath) == "" {
		return errors.New("ffprobe path is empty")
	}
	if c.PreviewWindow && strings.TrimSpace(c.FFplayPath) == "" {
		return errors.New("preview window needs an ffplay path")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must be >= 0")
	}
	return nil
}

// Workspace is one user's view: a board, a playhead and the loader and trimmer
// driving them. The engine session behind it may be shared.
type Workspace struct {
	Board   *display.Board
	Player  *playback.Playhead
	Loader  *loader.Loader
	Trimmer *trimmer.Trimmer
}

func (w *Workspace) Close() { w.Trimmer.Close() }

type App struct {
	cfg Config

	adapter *ffmpeg.Adapter
	window  *ffplay.Window
	Session *engine.Session

	// Main is the workspace of the local front ends (cut, ui).
	Main *Workspace
}

func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "."
	}
	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("work dir: %w", err)
		}
	}

	a := &App{cfg: cfg}
	a.adapter = ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, cfg.WorkDir)
	engineLog := xlog.WithComponent("engine")
	a.Session = engine.NewSession(a.adapter, ports.LoadOptions{CorePath: cfg.FFmpegPath}, engineLog)
	a.Session.OnTransition(func(from, to engine.State) {
		metrics.EngineState.Set(float64(to))
		engineLog.Debug().Stringer("from", from).Stringer("to", to).Msg("engine state")
	})
	// win stays a nil interface without a window; a nil *ffplay.Window would not.
	var win playback.Window
	if cfg.PreviewWindow {
		a.window = ffplay.New(cfg.FFplayPath, xlog.WithComponent("ffplay"))
		win = a.window
	}

	a.Main = a.NewWorkspace(download.NewDir(cfg.DownloadDir), win)
	return a, nil
}

// NewWorkspace builds a fresh board, playhead, loader and trimmer on top of the
// shared engine session. window may be nil.
func (a *App) NewWorkspace(sink ports.Sink, window playback.Window) *Workspace {
	board := display.NewBoard()
	surfaceLog := xlog.WithComponent("surface")
	board.OnMessage(func(m display.Message) {
		ev := surfaceLog.Info()
		if m.Level == display.LevelAlert {
			ev = surfaceLog.Warn()
		}
		ev.Msg(m.Text)
	})
	var opts []playback.Option
	if window != nil {
		opts = append(opts, playback.WithWindow(window))
	}
	player := playback.New(opts...)

	ld := loader.New(loader.Deps{
		Surface: board,
		Player:  player,
		Prober:  a.adapter,
		Log:     xlog.WithComponent("loader"),
	})
	tr := trimmer.New(trimmer.Deps{
		Media:        ld,
		Surface:      board,
		Session:      a.Session,
		Sink:         sink,
		Log:          xlog.WithComponent("trimmer"),
		PollInterval: a.cfg.PollInterval,
	})
	// a preview of the previous file must not pause the next one
	ld.OnRebind(tr.StopPreview)
	return &Workspace{Board: board, Player: player, Loader: ld, Trimmer: tr}
}

// Prober exposes the metadata reader for commands that only inspect files.
func (a *App) Prober() ports.Prober { return a.adapter }

// Close stops the preview, closes the window and removes the engine's scratch files.
func (a *App) Close() error {
	a.Main.Close()
	if a.window != nil {
		a.window.Hide()
	}
	return a.adapter.Close()
}

type Input struct {
	Path string
	// Start and End are field text; empty keeps the field's current value
	// (0 and the full duration after loading).
	Start string
	End   string
}

// Run is the headless flow: select the file, fill the fields, cut.
func (a *App) Run(ctx context.Context, in Input) (types.CutResult, error) {
	return runWorkspace(ctx, a.Main, in, xlog.WithComponent("pipeline"))
}

func runWorkspace(ctx context.Context, w *Workspace, in Input, log zerolog.Logger) (types.CutResult, error) {
	if err := w.Loader.SelectFile(ctx, types.FileHandle{Path: in.Path}); err != nil {
		return types.CutResult{}, err
	}
	if in.Start != "" {
		w.Board.SetStartField(in.Start)
	}
	if in.End != "" {
		w.Board.SetEndField(in.End)
	}

	s := w.Board.Snapshot()
	log.Info().Str("input", in.Path).Str("start", s.StartField).Str("end", s.EndField).Msg("cutting")
	return w.Trimmer.Cut(ctx)
}

// Run builds an App, runs one cut and tears it down.
func Run(ctx context.Context, cfg Config, in Input) (types.CutResult, error) {
	app, err := New(cfg)
	if err != nil {
		return types.CutResult{}, err
	}
	defer app.Close()
	return app.Run(ctx, in)
}

// ensure adapters implement ports
var (
	_ ports.Engine    = (*ffmpeg.Adapter)(nil)
	_ ports.Prober    = (*ffmpeg.Adapter)(nil)
	_ ports.Sink      = (*download.Dir)(nil)
	_ ports.Surface   = (*display.Board)(nil)
	_ ports.Player    = (*playback.Playhead)(nil)
	_ playback.Window = (*ffplay.Window)(nil)
)

// Package trimmer turns a marked range of the loaded file into a clip: marks,
// range checks, the preview loop and the cut itself.
package trimmer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forPelevin/mp4trim/internal/domain/timecode"
	"github.com/forPelevin/mp4trim/internal/engine"
	"github.com/forPelevin/mp4trim/internal/metrics"
	"github.com/forPelevin/mp4trim/internal/ports"
	"github.com/forPelevin/mp4trim/internal/types"
)

const (
	DefaultPollInterval = 100 * time.Millisecond

	inputName  = "input.mp4"
	outputName = "output.mp4"
	outPrefix  = "cut_"

	msgLoading    = "Loading FFmpeg..."
	msgLoadFailed = "Failed to load FFmpeg. Please refresh and try again."
	msgProcessing = "Processing video..."
	msgCutFailed  = "Failed to cut video. Please try again."
	msgCutDone    = "Video cut successfully and downloaded!"
)

// Media is the loaded file as the trimmer needs it.
type Media interface {
	CurrentPosition() float64
	Duration() float64
	CurrentFile() (types.MediaFile, bool)
	Player() ports.Player
}

type Deps struct {
	Media   Media
	Surface ports.Surface
	Session *engine.Session
	Sink    ports.Sink
	Log     zerolog.Logger

	PollInterval time.Duration
}

type Trimmer struct {
	d Deps

	// previewMu serializes Preview/StopPreview so at most one task exists.
	previewMu sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(d Deps) *Trimmer {
	if d.PollInterval <= 0 {
		d.PollInterval = DefaultPollInterval
	}
	return &Trimmer{d: d}
}

func (t *Trimmer) MarkStart() {
	t.d.Surface.SetStartField(timecode.Fixed1(t.d.Media.CurrentPosition()))
}

func (t *Trimmer) MarkEnd() {
	t.d.Surface.SetEndField(timecode.Fixed1(t.d.Media.CurrentPosition()))
}

// Range parses both fields. Unparseable text comes back as NaN.
func (t *Trimmer) Range() types.TimeRange {
	return types.TimeRange{
		Start: parseField(t.d.Surface.StartField()),
		End:   parseField(t.d.Surface.EndField()),
	}
}

func parseField(s string) float64 {
	v, err := timecode.Parse(s)
	if err != nil {
		return math.NaN()
	}
	return v
}

// CheckRange returns the first failing rule. The duration rule only applies once
// a duration is known.
func (t *Trimmer) CheckRange(start, end float64) error {
	switch {
	case math.IsNaN(start) || math.IsNaN(end):
		return ErrInvalidTime
	case start < 0 || end < 0:
		return ErrNegativeTime
	case start >= end:
		return ErrStartNotBeforeEnd
	}
	if d := t.d.Media.Duration(); d > 0 && end > d {
		return ErrEndPastDuration
	}
	return nil
}

// ValidateRange alerts the first failing rule and reports whether the range is usable.
func (t *Trimmer) ValidateRange(start, end float64) bool {
	if err := t.CheckRange(start, end); err != nil {
		t.d.Surface.Alert(alerts[err])
		return false
	}
	return true
}

// Preview plays the marked range once: seek to start, play, pause at end. A
// running preview is cancelled first.
func (t *Trimmer) Preview(ctx context.Context) error {
	r := t.Range()
	if err := t.CheckRange(r.Start, r.End); err != nil {
		t.d.Surface.Alert(alerts[err])
		return err
	}

	t.previewMu.Lock()
	defer t.previewMu.Unlock()
	t.stopLocked()

	player := t.d.Media.Player()
	player.Seek(r.Start)
	player.Play()

	pctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go t.runPreview(pctx, player, r.End, done)

	t.d.Log.Debug().Float64("start", r.Start).Float64("end", r.End).Msg("preview started")
	return nil
}

func (t *Trimmer) runPreview(ctx context.Context, player ports.Player, end float64, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			metrics.PreviewsTotal.WithLabelValues("cancelled").Inc()
			return
		case <-ticker.C:
			if player.Position() >= end {
				player.Pause()
				metrics.PreviewsTotal.WithLabelValues("reached_end").Inc()
				return
			}
		}
	}
}

// StopPreview cancels the running preview, if any, and pauses the player.
func (t *Trimmer) StopPreview() {
	t.previewMu.Lock()
	stopped := t.stopLocked()
	t.previewMu.Unlock()
	if stopped {
		t.d.Media.Player().Pause()
	}
}

// Previewing reports whether a preview task is still watching the playhead.
func (t *Trimmer) Previewing() bool {
	t.previewMu.Lock()
	defer t.previewMu.Unlock()
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Trimmer) stopLocked() bool {
	if t.cancel == nil {
		return false
	}
	t.cancel()
	<-t.done
	t.cancel, t.done = nil, nil
	return true
}

// Close stops background work. The trimmer must not be used afterwards.
func (t *Trimmer) Close() {
	t.previewMu.Lock()
	t.stopLocked()
	t.previewMu.Unlock()
}

// Cut exports the marked range of the loaded file through the engine and hands
// it to the sink as cut_<name>. Errors are *CutError.
func (t *Trimmer) Cut(ctx context.Context) (types.CutResult, error) {
	started := time.Now()
	res, err := t.cut(ctx)
	if err != nil {
		metrics.CutsTotal.WithLabelValues(KindOf(err).String()).Inc()
		return types.CutResult{}, err
	}
	res.Took = time.Since(started)
	metrics.CutsTotal.WithLabelValues("ok").Inc()
	metrics.CutDuration.Observe(res.Took.Seconds())
	metrics.CutBytes.Add(float64(res.Bytes))
	return res, nil
}

func (t *Trimmer) cut(ctx context.Context) (types.CutResult, error) {
	r := t.Range()
	if err := t.CheckRange(r.Start, r.End); err != nil {
		t.d.Surface.Alert(alerts[err])
		return types.CutResult{}, &CutError{Kind: KindValidation, Err: err}
	}

	file, ok := t.d.Media.CurrentFile()
	if !ok {
		t.d.Surface.Alert(alerts[ErrNoMedia])
		return types.CutResult{}, &CutError{Kind: KindNoMedia, Err: ErrNoMedia}
	}

	id := uuid.NewString()
	log := t.d.Log.With().Str("cut_id", id).Str("file", file.Name).Logger()

	err := t.d.Session.Ensure(ctx, func() {
		t.d.Surface.ShowProgress(msgLoading, 0)
	})
	if err != nil {
		log.Error().Err(err).Msg("engine initialization failed")
		t.d.Surface.HideProgress()
		t.d.Surface.Alert(msgLoadFailed)
		return types.CutResult{}, &CutError{Kind: KindInitialization, Err: err}
	}

	t.d.Surface.ShowProgress(msgProcessing, 0)
	unsubscribe := t.d.Session.Subscribe(func(frac float64) {
		t.d.Surface.UpdateProgress(int(math.Round(frac * 100)))
	})
	defer unsubscribe()

	res := types.CutResult{
		ID:       id,
		Input:    file.Name,
		Output:   outPrefix + file.Name,
		MIMEType: types.MIMETypeMP4,
		StartSec: r.Start,
		EndSec:   r.End,
	}
	eng := t.d.Session.Engine()

	if err := t.run(ctx, eng, file, r, &res); err != nil {
		log.Error().Err(err).Msg("cut failed")
		cleanup(context.WithoutCancel(ctx), eng, log)
		t.d.Surface.HideProgress()
		t.d.Surface.Alert(msgCutFailed)
		return types.CutResult{}, &CutError{Kind: KindExecution, Err: err}
	}

	t.d.Surface.HideProgress()
	t.d.Surface.Info(msgCutDone)
	log.Info().
		Float64("start", r.Start).
		Float64("end", r.End).
		Int64("bytes", res.Bytes).
		Str("location", res.Location).
		Msg("clip exported")
	return res, nil
}

func (t *Trimmer) run(ctx context.Context, eng ports.Engine, file types.MediaFile, r types.TimeRange, res *types.CutResult) error {
	in, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	err = eng.WriteFile(ctx, inputName, in)
	in.Close()
	if err != nil {
		return fmt.Errorf("write %s: %w", inputName, err)
	}

	if err := eng.Exec(ctx, Args(r)); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	out, err := eng.ReadFile(ctx, outputName)
	if err != nil {
		return fmt.Errorf("read %s: %w", outputName, err)
	}
	cr := &countingReader{r: out}
	loc, err := t.d.Sink.Save(ctx, res.Output, types.MIMETypeMP4, cr)
	out.Close()
	if err != nil {
		return fmt.Errorf("save %s: %w", res.Output, err)
	}
	res.Location = loc
	res.Bytes = cr.n

	for _, name := range []string{inputName, outputName} {
		if err := eng.DeleteFile(ctx, name); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}
	return nil
}

// Args is the stream-copy argv for a range.
func Args(r types.TimeRange) []string {
	return []string{
		"-i", inputName,
		"-ss", timecode.FFmpeg(r.Start),
		"-t", timecode.FFmpeg(r.Length()),
		"-c", "copy",
		outputName,
	}
}

// cleanup removes both working files, ignoring what is already gone.
func cleanup(ctx context.Context, eng ports.Engine, log zerolog.Logger) {
	var errs []error
	for _, name := range []string{inputName, outputName} {
		if err := eng.DeleteFile(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		log.Debug().Err(errors.Join(errs...)).Msg("cleanup after failed cut")
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

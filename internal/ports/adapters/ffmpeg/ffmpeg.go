package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/mp4trim/internal/ports"
)

var ErrNotLoaded = errors.New("ffmpeg engine not loaded")

const stderrTailLines = 20

// Adapter drives ffmpeg as the media engine. Files live in a private scratch
// directory created by Load; names passed to the file operations are plain
// file names inside it.
type Adapter struct {
	ffmpeg   string
	ffprobe  string
	workRoot string

	mu         sync.RWMutex
	bin        string
	dir        string
	onLog      func(string)
	onProgress func(float64)
}

func New(ffmpegPath, ffprobePath, workRoot string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, workRoot: workRoot}
}

func (a *Adapter) OnLog(fn func(string)) {
	a.mu.Lock()
	a.onLog = fn
	a.mu.Unlock()
}

func (a *Adapter) OnProgress(fn func(float64)) {
	a.mu.Lock()
	a.onProgress = fn
	a.mu.Unlock()
}

func (a *Adapter) Load(ctx context.Context, opts ports.LoadOptions) error {
	bin := opts.CorePath
	if bin == "" {
		bin = a.ffmpeg
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("ffmpeg load: %w", err)
	}

	b, err := exec.CommandContext(ctx, resolved, "-hide_banner", "-version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg load: %w\n%s", err, string(b))
	}

	dir, err := os.MkdirTemp(a.workRoot, "mp4trim-engine-")
	if err != nil {
		return fmt.Errorf("ffmpeg load: scratch dir: %w", err)
	}

	a.mu.Lock()
	old := a.dir
	a.bin = resolved
	a.dir = dir
	a.mu.Unlock()
	if old != "" {
		_ = os.RemoveAll(old)
	}

	if line, _, _ := strings.Cut(string(b), "\n"); line != "" {
		a.log(strings.TrimSpace(line))
	}
	return nil
}

// Close removes the scratch directory.
func (a *Adapter) Close() error {
	a.mu.Lock()
	dir := a.dir
	a.dir = ""
	a.mu.Unlock()
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

func (a *Adapter) WriteFile(ctx context.Context, name string, r io.Reader) error {
	path, err := a.resolve(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("ffmpeg write %s: %w", name, err)
	}
	if _, err := io.Copy(f, ctxReader{ctx: ctx, r: r}); err != nil {
		_ = f.Close()
		return fmt.Errorf("ffmpeg write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ffmpeg write %s: %w", name, err)
	}
	return nil
}

func (a *Adapter) ReadFile(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := a.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg read %s: %w", name, err)
	}
	return f, nil
}

func (a *Adapter) DeleteFile(_ context.Context, name string) error {
	path, err := a.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("ffmpeg delete %s: %w", name, err)
	}
	return nil
}

// Exec runs ffmpeg inside the scratch directory. Progress is read from
// -progress on stdout; stderr lines are forwarded as log messages.
func (a *Adapter) Exec(ctx context.Context, args []string) error {
	a.mu.RLock()
	bin, dir := a.bin, a.dir
	a.mu.RUnlock()
	if dir == "" {
		return ErrNotLoaded
	}

	fullArgs := append([]string{"-nostdin", "-hide_banner", "-y", "-progress", "pipe:1", "-nostats"}, args...)
	cmd := exec.CommandContext(ctx, bin, fullArgs...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg exec: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg exec: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg exec: start: %w", err)
	}

	tracker := &progressTracker{total: durationFromArgs(args)}
	tail := &lineTail{max: stderrTailLines}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stderr, func(line string) {
			tail.add(line)
			if d, ok := parseDurationLine(line); ok {
				tracker.inputDuration(d)
			}
			a.log(line)
		})
	}()
	go func() {
		defer wg.Done()
		parseProgress(stdout, tracker, a.progress)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg exec: %w\n%s", err, tail.String())
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (a *Adapter) resolve(name string) (string, error) {
	a.mu.RLock()
	dir := a.dir
	a.mu.RUnlock()
	if dir == "" {
		return "", ErrNotLoaded
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("ffmpeg: invalid file name %q", name)
	}
	return filepath.Join(dir, name), nil
}

func (a *Adapter) log(msg string) {
	a.mu.RLock()
	fn := a.onLog
	a.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

func (a *Adapter) progress(frac float64) {
	a.mu.RLock()
	fn := a.onProgress
	a.mu.RUnlock()
	if fn != nil {
		fn(frac)
	}
}

// ctxReader stops a long copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// progressTracker turns out_time_us into a fraction of the expected output
// length: the -t argument when present, else the input duration from stderr.
type progressTracker struct {
	mu       sync.Mutex
	total    float64
	detected float64
}

func (p *progressTracker) inputDuration(sec float64) {
	p.mu.Lock()
	if p.detected == 0 {
		p.detected = sec
	}
	p.mu.Unlock()
}

func (p *progressTracker) fraction(outSec float64) (float64, bool) {
	p.mu.Lock()
	total := p.total
	if total <= 0 {
		total = p.detected
	}
	p.mu.Unlock()
	if total <= 0 {
		return 0, false
	}
	f := outSec / total
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f, true
}

func parseProgress(r io.Reader, tracker *progressTracker, emit func(float64)) {
	var outUs int64
	scanLines(r, func(line string) {
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "out_time_us":
			if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 {
				outUs = v
			}
		case "progress":
			if val == "end" {
				emit(1)
				return
			}
			if f, ok := tracker.fraction(float64(outUs) / 1e6); ok {
				emit(f)
			}
		}
	})
}

func durationFromArgs(args []string) float64 {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-t" {
			if v, err := strconv.ParseFloat(args[i+1], 64); err == nil && v > 0 {
				return v
			}
		}
	}
	return 0
}

var reDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

func parseDurationLine(line string) (float64, bool) {
	m := reDuration.FindStringSubmatch(line)
	if len(m) != 4 {
		return 0, false
	}
	h, err1 := strconv.ParseFloat(m[1], 64)
	mi, err2 := strconv.ParseFloat(m[2], 64)
	s, err3 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return h*3600 + mi*60 + s, true
}

func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
	// drain so the child never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
	t.mu.Unlock()
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

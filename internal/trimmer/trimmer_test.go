package trimmer

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/forPelevin/mp4trim/internal/display"
	"github.com/forPelevin/mp4trim/internal/engine"
	"github.com/forPelevin/mp4trim/internal/playback"
	"github.com/forPelevin/mp4trim/internal/ports"
	"github.com/forPelevin/mp4trim/internal/ports/portstest"
	"github.com/forPelevin/mp4trim/internal/types"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeMedia struct {
	player *playback.Playhead
	file   types.MediaFile
	has    bool
}

func (m *fakeMedia) CurrentPosition() float64            { return m.player.Position() }
func (m *fakeMedia) Duration() float64                   { return m.player.Duration() }
func (m *fakeMedia) CurrentFile() (types.MediaFile, bool) { return m.file, m.has }
func (m *fakeMedia) Player() ports.Player                { return m.player }

// recordingSurface keeps every progress change the board sees.
type recordingSurface struct {
	*display.Board
	mu       sync.Mutex
	labels   []string
	percents []int
}

func (r *recordingSurface) ShowProgress(label string, pct int) {
	r.mu.Lock()
	r.labels = append(r.labels, label)
	r.mu.Unlock()
	r.Board.ShowProgress(label, pct)
}

func (r *recordingSurface) UpdateProgress(pct int) {
	r.mu.Lock()
	r.percents = append(r.percents, pct)
	r.mu.Unlock()
	r.Board.UpdateProgress(pct)
}

type fixture struct {
	trim    *Trimmer
	media   *fakeMedia
	surface *recordingSurface
	eng     *portstest.Engine
	session *engine.Session
	sink    *portstest.Sink
	clock   *clock
}

func newFixture(t *testing.T, withFile bool, duration float64) *fixture {
	t.Helper()
	c := &clock{t: time.Unix(0, 0)}
	f := &fixture{
		media:   &fakeMedia{player: playback.New(playback.WithClock(c.now))},
		surface: &recordingSurface{Board: display.NewBoard()},
		eng:     portstest.NewEngine(),
		sink:    &portstest.Sink{},
		clock:   c,
	}
	if withFile {
		path := filepath.Join(t.TempDir(), "movie.mp4")
		if err := os.WriteFile(path, []byte("fake mp4 payload"), 0o644); err != nil {
			t.Fatalf("write input: %v", err)
		}
		f.media.file = types.MediaFile{Path: path, Name: "movie.mp4", MIMEType: types.MIMETypeMP4, Size: 16}
		f.media.has = true
		f.media.player.Load(f.media.file, duration)
	}
	f.session = engine.NewSession(f.eng, ports.LoadOptions{}, zerolog.Nop())
	f.trim = New(Deps{
		Media:        f.media,
		Surface:      f.surface,
		Session:      f.session,
		Sink:         f.sink,
		Log:          zerolog.Nop(),
		PollInterval: time.Millisecond,
	})
	t.Cleanup(f.trim.Close)
	return f
}

func lastMessage(t *testing.T, b *display.Board) display.Message {
	t.Helper()
	m := b.Snapshot().LastMessage
	if m == nil {
		t.Fatal("expected a message")
	}
	return *m
}

func TestCutExportsClip(t *testing.T) {
	f := newFixture(t, true, 10)
	f.eng.Progress = []float64{0.256, 1}
	f.surface.SetStartField("1.5")
	f.surface.SetEndField("4")

	res, err := f.trim.Cut(context.Background())
	require.NoError(t, err)

	require.Equal(t, "cut_movie.mp4", res.Output)
	require.Equal(t, types.MIMETypeMP4, res.MIMEType)
	require.Equal(t, int64(16), res.Bytes)
	require.Equal(t, "mem://cut_movie.mp4", res.Location)
	require.NotEmpty(t, res.ID)

	saved := f.sink.Saved()
	require.Len(t, saved, 1)
	require.Equal(t, "cut_movie.mp4", saved[0].Name)
	require.Equal(t, types.MIMETypeMP4, saved[0].MIMEType)
	require.Equal(t, "fake mp4 payload", string(saved[0].Data))

	wantArgs := [][]string{{"-i", "input.mp4", "-ss", "1.5", "-t", "2.5", "-c", "copy", "output.mp4"}}
	if diff := cmp.Diff(wantArgs, f.eng.Execs); diff != "" {
		t.Fatalf("argv mismatch (-want +got):\n%s", diff)
	}
	wantCalls := []string{"load", "write input.mp4", "exec", "read output.mp4", "delete input.mp4", "delete output.mp4"}
	if diff := cmp.Diff(wantCalls, f.eng.CallLog()); diff != "" {
		t.Fatalf("engine calls mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, f.eng.FileNames())

	require.Equal(t, []string{"Loading FFmpeg...", "Processing video..."}, f.surface.labels)
	require.Equal(t, []int{26, 100}, f.surface.percents)
	require.False(t, f.surface.Snapshot().Progress.Visible)
	msg := lastMessage(t, f.surface.Board)
	require.Equal(t, display.LevelInfo, msg.Level)
	require.Equal(t, "Video cut successfully and downloaded!", msg.Text)
	require.Equal(t, engine.Ready, f.session.State())
}

func TestSecondCutSkipsLoading(t *testing.T) {
	f := newFixture(t, true, 10)
	f.surface.SetStartField("0")
	f.surface.SetEndField("2")

	_, err := f.trim.Cut(context.Background())
	require.NoError(t, err)
	_, err = f.trim.Cut(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, f.eng.Loads)
	require.Equal(t, []string{"Loading FFmpeg...", "Processing video...", "Processing video..."}, f.surface.labels)
	require.Len(t, f.sink.Saved(), 2)
}

func TestCutInitializationFailure(t *testing.T) {
	f := newFixture(t, true, 10)
	f.eng.LoadErr = errors.New("no ffmpeg")
	f.surface.SetStartField("0")
	f.surface.SetEndField("5")

	_, err := f.trim.Cut(context.Background())
	require.Error(t, err)
	require.Equal(t, KindInitialization, KindOf(err))
	require.ErrorIs(t, err, f.eng.LoadErr)

	require.Equal(t, []string{"load"}, f.eng.CallLog())
	require.Equal(t, engine.Uninitialized, f.session.State())
	require.Empty(t, f.sink.Saved())
	require.False(t, f.surface.Snapshot().Progress.Visible)
	msg := lastMessage(t, f.surface.Board)
	require.Equal(t, display.LevelAlert, msg.Level)
	require.Equal(t, "Failed to load FFmpeg. Please refresh and try again.", msg.Text)
	require.Equal(t, msg.Text, Message(err))

	// a later attempt initializes again
	f.eng.LoadErr = nil
	_, err = f.trim.Cut(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, f.eng.Loads)
}

func TestCutExecutionFailureCleansUp(t *testing.T) {
	f := newFixture(t, true, 10)
	f.eng.ExecErr = errors.New("invalid data found when processing input")
	f.surface.SetStartField("0")
	f.surface.SetEndField("5")

	_, err := f.trim.Cut(context.Background())
	require.Equal(t, KindExecution, KindOf(err))
	require.ErrorIs(t, err, f.eng.ExecErr)

	require.Contains(t, f.eng.Deleted, "input.mp4")
	require.Contains(t, f.eng.Deleted, "output.mp4")
	require.Empty(t, f.eng.FileNames())
	require.Empty(t, f.sink.Saved())
	require.False(t, f.surface.Snapshot().Progress.Visible)
	require.Equal(t, "Failed to cut video. Please try again.", lastMessage(t, f.surface.Board).Text)
	require.Equal(t, "Failed to cut video. Please try again.", Message(err))
}

func TestCutSinkFailureCleansUp(t *testing.T) {
	f := newFixture(t, true, 10)
	f.sink.Err = errors.New("disk full")
	f.surface.SetStartField("0")
	f.surface.SetEndField("5")

	_, err := f.trim.Cut(context.Background())
	require.Equal(t, KindExecution, KindOf(err))
	require.Empty(t, f.eng.FileNames())
}

func TestCutRejectsRange(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		duration   float64
		want       error
		msg        string
	}{
		{"not a number", "abc", "5", 10, ErrInvalidTime, "Please enter valid time values"},
		{"empty end", "1", "", 10, ErrInvalidTime, "Please enter valid time values"},
		{"negative", "-1", "5", 10, ErrNegativeTime, "Times cannot be negative"},
		{"equal", "5", "5", 10, ErrStartNotBeforeEnd, "Start time must be less than end time"},
		{"reversed", "6", "5", 10, ErrStartNotBeforeEnd, "Start time must be less than end time"},
		{"past duration", "1", "10.1", 10, ErrEndPastDuration, "End time cannot exceed video duration"},
		{"negative wins over order", "-2", "-5", 10, ErrNegativeTime, "Times cannot be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, true, tc.duration)
			f.surface.SetStartField(tc.start)
			f.surface.SetEndField(tc.end)

			_, err := f.trim.Cut(context.Background())
			require.Equal(t, KindValidation, KindOf(err))
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, tc.msg, Message(err))
			require.Equal(t, tc.msg, lastMessage(t, f.surface.Board).Text)
			require.Empty(t, f.eng.CallLog())
		})
	}
}

func TestCheckRangeSkipsUnknownDuration(t *testing.T) {
	f := newFixture(t, false, 0)
	require.NoError(t, f.trim.CheckRange(0, 5000))
	require.ErrorIs(t, f.trim.CheckRange(math.NaN(), 1), ErrInvalidTime)
}

func TestValidateRangeAlerts(t *testing.T) {
	f := newFixture(t, true, 10)
	require.True(t, f.trim.ValidateRange(0, 10))
	require.Nil(t, f.surface.Snapshot().LastMessage)
	require.False(t, f.trim.ValidateRange(3, 2))
	require.Equal(t, "Start time must be less than end time", lastMessage(t, f.surface.Board).Text)
}

func TestCutWithoutMedia(t *testing.T) {
	f := newFixture(t, false, 0)
	f.surface.SetStartField("0")
	f.surface.SetEndField("5")

	_, err := f.trim.Cut(context.Background())
	require.Equal(t, KindNoMedia, KindOf(err))
	require.Equal(t, "Please load a video first", lastMessage(t, f.surface.Board).Text)
	require.Empty(t, f.eng.CallLog())
}

func TestMarks(t *testing.T) {
	f := newFixture(t, true, 60)
	f.media.player.Seek(12.345)
	f.trim.MarkStart()
	f.media.player.Seek(0.25)
	f.trim.MarkEnd()

	s := f.surface.Snapshot()
	require.Equal(t, "12.3", s.StartField)
	require.Equal(t, "0.3", s.EndField)

	// marks do not check ordering
	require.Equal(t, types.TimeRange{Start: 12.3, End: 0.3}, f.trim.Range())
}

func TestRangeAcceptsClockNotation(t *testing.T) {
	f := newFixture(t, true, 4000)
	f.surface.SetStartField("1:02,5")
	f.surface.SetEndField("01:00:00")
	require.Equal(t, types.TimeRange{Start: 62.5, End: 3600}, f.trim.Range())
}

func TestPreviewPausesAtEnd(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, true, 10)
	f.surface.SetStartField("2")
	f.surface.SetEndField("4")

	require.NoError(t, f.trim.Preview(context.Background()))
	require.True(t, f.media.player.Playing())
	require.Equal(t, 2.0, f.media.player.Position())

	f.clock.advance(2500 * time.Millisecond)
	require.Eventually(t, func() bool { return !f.trim.Previewing() }, 2*time.Second, time.Millisecond)
	require.False(t, f.media.player.Playing())
	require.InDelta(t, 4.5, f.media.player.Position(), 1e-9)
}

func TestPreviewReplacesRunningPreview(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, true, 10)
	f.surface.SetStartField("1")
	f.surface.SetEndField("9")
	require.NoError(t, f.trim.Preview(context.Background()))

	f.surface.SetStartField("5")
	f.surface.SetEndField("6")
	require.NoError(t, f.trim.Preview(context.Background()))
	require.Equal(t, 5.0, f.media.player.Position())
	require.True(t, f.trim.Previewing())

	f.trim.StopPreview()
	require.False(t, f.trim.Previewing())
	require.False(t, f.media.player.Playing())
}

func TestPreviewRejectsBadRange(t *testing.T) {
	f := newFixture(t, true, 10)
	f.surface.SetStartField("8")
	f.surface.SetEndField("3")

	err := f.trim.Preview(context.Background())
	require.ErrorIs(t, err, ErrStartNotBeforeEnd)
	require.False(t, f.trim.Previewing())
	require.False(t, f.media.player.Playing())
}

func TestArgs(t *testing.T) {
	got := Args(types.TimeRange{Start: 0.1, End: 0.3})
	want := []string{"-i", "input.mp4", "-ss", "0.1", "-t", "0.19999999999999998", "-c", "copy", "output.mp4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("argv mismatch (-want +got):\n%s", diff)
	}
}

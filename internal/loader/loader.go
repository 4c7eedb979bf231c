// Package loader owns the selected media file and its binding to the player.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/forPelevin/mp4trim/internal/domain/timecode"
	"github.com/forPelevin/mp4trim/internal/ports"
	"github.com/forPelevin/mp4trim/internal/types"
)

const (
	msgInvalidFile  = "Please select a valid MP4 file"
	msgBadMetadata  = "Could not read video metadata"
	sniffLen        = 512
	mimeOctetStream = "application/octet-stream"
)

var (
	ErrNotMP4      = errors.New("not an mp4 file")
	ErrBadMetadata = errors.New("unreadable metadata")
)

// Message is what the user was told when err came out of SelectFile, or "".
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNotMP4):
		return msgInvalidFile
	case errors.Is(err, ErrBadMetadata):
		return msgBadMetadata
	}
	return ""
}

type Deps struct {
	Surface ports.Surface
	Player  ports.Player
	Prober  ports.Prober
	Log     zerolog.Logger
}

type Loader struct {
	d Deps

	mu       sync.Mutex
	file     types.MediaFile
	hasFile  bool
	onRebind func()
}

func New(d Deps) *Loader { return &Loader{d: d} }

// OnRebind registers fn to run after a file is accepted and before the player
// is bound to it. Anything still watching the old binding must stop there.
func (l *Loader) OnRebind(fn func()) {
	l.mu.Lock()
	l.onRebind = fn
	l.mu.Unlock()
}

// SelectFile accepts an MP4 file and binds it to the player. A rejected file
// leaves the previous selection, binding and displays as they were.
func (l *Loader) SelectFile(ctx context.Context, h types.FileHandle) error {
	mime, size, err := detect(h)
	if err != nil {
		l.d.Log.Warn().Err(err).Str("path", h.Path).Msg("cannot inspect file")
		l.d.Surface.Alert(msgInvalidFile)
		return fmt.Errorf("%w: %v", ErrNotMP4, err)
	}
	if mime != types.MIMETypeMP4 {
		l.d.Log.Info().Str("path", h.Path).Str("mime", mime).Msg("rejected file")
		l.d.Surface.Alert(msgInvalidFile)
		return fmt.Errorf("%w: %s", ErrNotMP4, mime)
	}

	name := h.Name
	if name == "" {
		name = filepath.Base(h.Path)
	}
	next := types.MediaFile{Path: h.Path, Name: name, MIMEType: mime, Size: size}

	dur, err := l.d.Prober.ProbeDuration(ctx, h.Path)
	if err != nil || dur <= 0 {
		if err == nil {
			err = fmt.Errorf("duration %s", dur)
		}
		l.d.Log.Error().Err(err).Str("path", h.Path).Msg("probe failed")
		l.d.Surface.Alert(msgBadMetadata)
		return fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	l.mu.Lock()
	l.file = next
	l.hasFile = true
	rebind := l.onRebind
	l.mu.Unlock()

	if rebind != nil {
		rebind()
	}
	l.d.Player.Load(next, dur.Seconds())
	l.d.Surface.ShowPlayback(next.Name)
	l.d.Surface.SetElapsed(timecode.Format(0))
	l.OnMetadataReady()

	l.d.Log.Info().Str("file", next.Name).Int64("size", next.Size).Float64("duration", dur.Seconds()).Msg("file loaded")
	return nil
}

// OnMetadataReady publishes the duration: the display, the end field and the
// upper bound of both fields.
func (l *Loader) OnMetadataReady() {
	d := l.d.Player.Duration()
	l.d.Surface.SetDuration(timecode.Format(d))
	l.d.Surface.SetEndField(timecode.Fixed1(d))
	l.d.Surface.SetFieldMax(d)
}

func (l *Loader) OnPositionChange() {
	l.d.Surface.SetElapsed(timecode.Format(l.d.Player.Position()))
}

func (l *Loader) CurrentPosition() float64 { return l.d.Player.Position() }

func (l *Loader) Duration() float64 { return l.d.Player.Duration() }

func (l *Loader) CurrentFile() (types.MediaFile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file, l.hasFile
}

func (l *Loader) Player() ports.Player { return l.d.Player }

// detect sniffs the content and falls back to the extension when the sniffer
// cannot tell.
func detect(h types.FileHandle) (string, int64, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	if st.IsDir() {
		return "", 0, fmt.Errorf("%s is a directory", h.Path)
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", 0, err
	}
	mime := http.DetectContentType(buf[:n])
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if mime == mimeOctetStream {
		name := h.Name
		if name == "" {
			name = h.Path
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mp4", ".m4v":
			mime = types.MIMETypeMP4
		}
	}
	return mime, st.Size(), nil
}

package ports

import (
	"context"
	"io"
	"time"

	"github.com/forPelevin/mp4trim/internal/types"
)

// LoadOptions tells the engine where its core lives. For the ffmpeg adapter the
// core is the ffmpeg binary; empty means PATH lookup.
type LoadOptions struct {
	CorePath string
}

// Engine is the external media engine. It is used as a black box: load once,
// then move files in and out of its private filesystem and run argv commands
// against them.
type Engine interface {
	Load(ctx context.Context, opts LoadOptions) error
	OnLog(fn func(message string))
	OnProgress(fn func(fraction float64))
	WriteFile(ctx context.Context, name string, r io.Reader) error
	Exec(ctx context.Context, args []string) error
	ReadFile(ctx context.Context, name string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, name string) error
}

type Prober interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// Player is the preview element: a playhead over the bound file.
type Player interface {
	Load(file types.MediaFile, duration float64)
	Seek(seconds float64)
	Play()
	Pause()
	Position() float64
	Duration() float64
	Playing() bool
}

// Surface is everything the user can see or type into.
type Surface interface {
	Alert(msg string)
	Info(msg string)

	ShowPlayback(fileName string)
	SetDuration(text string)
	SetElapsed(text string)

	StartField() string
	EndField() string
	SetStartField(v string)
	SetEndField(v string)
	SetFieldMax(max float64)

	ShowProgress(label string, percent int)
	UpdateProgress(percent int)
	HideProgress()
}

// Sink receives the exported clip. It returns where the clip ended up.
type Sink interface {
	Save(ctx context.Context, name, mimeType string, r io.Reader) (string, error)
}

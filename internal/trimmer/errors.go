package trimmer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTime       = errors.New("invalid time value")
	ErrNegativeTime      = errors.New("negative time")
	ErrStartNotBeforeEnd = errors.New("start not before end")
	ErrEndPastDuration   = errors.New("end past video duration")
	ErrNoMedia           = errors.New("no video loaded")
)

// alerts holds what the user is told for each rejection.
var alerts = map[error]string{
	ErrInvalidTime:       "Please enter valid time values",
	ErrNegativeTime:      "Times cannot be negative",
	ErrStartNotBeforeEnd: "Start time must be less than end time",
	ErrEndPastDuration:   "End time cannot exceed video duration",
	ErrNoMedia:           "Please load a video first",
}

// Kind classifies why a cut did not produce a clip.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNoMedia
	KindInitialization
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNoMedia:
		return "no_media"
	case KindInitialization:
		return "initialization"
	case KindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

type CutError struct {
	Kind Kind
	Err  error
}

func (e *CutError) Error() string {
	return fmt.Sprintf("cut %s: %v", e.Kind, e.Err)
}

func (e *CutError) Unwrap() error { return e.Err }

// KindOf reports the kind of a cut error, or KindUnknown.
func KindOf(err error) Kind {
	var ce *CutError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Message is the text the user was shown when err came out of a cut, or "".
func Message(err error) string {
	for sentinel, msg := range alerts {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	switch KindOf(err) {
	case KindInitialization:
		return msgLoadFailed
	case KindExecution:
		return msgCutFailed
	}
	return ""
}

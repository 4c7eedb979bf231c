// Package timecode formats and parses the time values shown in and typed into
// the trimmer: the elapsed/duration displays and the start/end fields.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid time value")

// Format renders seconds as minutes:seconds. Both parts are floored and the
// seconds are padded to two digits, so 125 becomes "2:05".
func Format(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	mins := math.Floor(seconds / 60)
	secs := math.Floor(math.Mod(seconds, 60))
	return fmt.Sprintf("%d:%02d", int64(mins), int64(secs))
}

// Fixed1 renders v with one decimal. Exact halves round away from zero; every
// other value is rounded from its exact binary value, so 12.345 gives "12.3".
func Fixed1(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	a := math.Abs(v)
	q := a * 4
	if q == math.Trunc(q) && math.Mod(q, 2) == 1 {
		// a is k+0.25 or k+0.75, the only one-decimal ties a float64 can hold
		n := math.Floor(a*10) + 1
		out := strconv.FormatFloat(n/10, 'f', 1, 64)
		if v < 0 {
			return "-" + out
		}
		return out
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Parse reads a field value: plain seconds ("12.5", "-3"), mm:ss or hh:mm:ss
// with optional fractions. A comma works as the decimal separator.
func Parse(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return 0, ErrInvalid
	}

	if !strings.Contains(s, ":") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, ErrInvalid
		}
		return v, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "-") || strings.HasPrefix(p, "+") {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, raw)
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, raw)
		}
		vals[i] = v
	}

	if len(vals) == 2 {
		if vals[1] >= 60 {
			return 0, fmt.Errorf("%w: seconds must be below 60", ErrInvalid)
		}
		return vals[0]*60 + vals[1], nil
	}
	if vals[1] >= 60 || vals[2] >= 60 {
		return 0, fmt.Errorf("%w: minutes and seconds must be below 60", ErrInvalid)
	}
	return vals[0]*3600 + vals[1]*60 + vals[2], nil
}

// FFmpeg renders seconds for an ffmpeg argv: shortest decimal form, no exponent.
func FFmpeg(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

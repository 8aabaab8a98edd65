// Package deltazero compresses a per-frame sequence of output values into a
// signed delta stream plus a table of zero-delta run lengths, the layout the
// generated firmware replays one frame at a time.
package deltazero

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyInput        = errors.New("deltazero: empty frame sequence")
	ErrRange             = errors.New("deltazero: delta out of range")
	ErrMalformedEncoding = errors.New("deltazero: malformed encoding")
)

// RangeError reports a transition whose delta does not fit a signed byte.
type RangeError struct {
	Frame int // 1-indexed frame the transition lands on
	Delta int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("deltazero: delta %d at frame %d outside [%d, %d]", e.Delta, e.Frame, math.MinInt8, math.MaxInt8)
}

func (e *RangeError) Unwrap() error { return ErrRange }

// Encoding is the delta-zero view of a frame sequence.
// Each entry of ZeroRuns is followed by the delta at the same index; the
// last run may stand alone when the sequence ends on unchanged frames.
type Encoding struct {
	Initial  int
	Deltas   []int8
	ZeroRuns []int
}

// FrameCount returns the number of frames the encoding replays to.
func (e Encoding) FrameCount() int {
	n := 1 + len(e.Deltas)
	for _, r := range e.ZeroRuns {
		n += r
	}
	return n
}

// Encode walks frames once and produces its delta-zero encoding.
func Encode(frames []int) (Encoding, error) {
	if len(frames) == 0 {
		return Encoding{}, ErrEmptyInput
	}
	enc := Encoding{Initial: frames[0]}
	zeros := 0
	previous := frames[0]
	for i := 1; i < len(frames); i++ {
		delta := frames[i] - previous
		previous = frames[i]
		if delta == 0 {
			zeros++
			continue
		}
		if delta < math.MinInt8 || delta > math.MaxInt8 {
			return Encoding{}, &RangeError{Frame: i + 1, Delta: delta}
		}
		enc.ZeroRuns = append(enc.ZeroRuns, zeros)
		enc.Deltas = append(enc.Deltas, int8(delta))
		zeros = 0
	}
	if zeros > 0 {
		enc.ZeroRuns = append(enc.ZeroRuns, zeros)
	}
	return enc, nil
}

// Decode replays an encoding back into its frame sequence.
func Decode(enc Encoding) ([]int, error) {
	runs, deltas := len(enc.ZeroRuns), len(enc.Deltas)
	if runs != deltas && runs != deltas+1 {
		return nil, fmt.Errorf("%w: %d zero runs for %d deltas", ErrMalformedEncoding, runs, deltas)
	}
	for i, r := range enc.ZeroRuns {
		if r < 0 {
			return nil, fmt.Errorf("%w: negative zero run %d at %d", ErrMalformedEncoding, r, i)
		}
	}

	frames := make([]int, 0, enc.FrameCount())
	current := enc.Initial
	frames = append(frames, current)
	for i, r := range enc.ZeroRuns {
		for j := 0; j < r; j++ {
			frames = append(frames, current)
		}
		if i < deltas {
			current += int(enc.Deltas[i])
			frames = append(frames, current)
		}
	}
	return frames, nil
}

package deltazero

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		frames   []int
		expected Encoding
	}{
		{
			"LeadingAndTrailingZeros",
			[]int{5, 5, 5, 6, 6, 6},
			Encoding{Initial: 5, Deltas: []int8{1}, ZeroRuns: []int{2, 2}},
		},
		{
			"DeltaOnSecondFrame",
			[]int{10, 12, 12},
			Encoding{Initial: 10, Deltas: []int8{2}, ZeroRuns: []int{0, 1}},
		},
		{
			"NoTrailingRun",
			[]int{0, 1, 2, 0},
			Encoding{Initial: 0, Deltas: []int8{1, 1, -2}, ZeroRuns: []int{0, 0, 0}},
		},
		{
			"SingleFrame",
			[]int{90},
			Encoding{Initial: 90},
		},
		{
			"Constant",
			[]int{3, 3, 3, 3},
			Encoding{Initial: 3, ZeroRuns: []int{3}},
		},
		{
			"RangeLimits",
			[]int{0, 127, -1, -1},
			Encoding{Initial: 0, Deltas: []int8{127, -128}, ZeroRuns: []int{0, 0, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.frames)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(enc, tt.expected) {
				t.Errorf("expected=%+v, got=%+v", tt.expected, enc)
			}
			if enc.FrameCount() != len(tt.frames) {
				t.Errorf("expected frame count %d, got %d", len(tt.frames), enc.FrameCount())
			}

			out, err := Decode(enc)
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(out, tt.frames) {
				t.Errorf("expected=%v, got=%v", tt.frames, out)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}

	_, err = Encode([]int{0, 0, 200})
	if !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected *RangeError, got %T", err)
	}
	if rangeErr.Frame != 3 || rangeErr.Delta != 200 {
		t.Errorf("unexpected range error details: %+v", rangeErr)
	}

	_, err = Encode([]int{0, -129})
	if !errors.Is(err, ErrRange) {
		t.Errorf("expected ErrRange for -129, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		enc  Encoding
	}{
		{"TooManyRuns", Encoding{Deltas: []int8{1}, ZeroRuns: []int{0, 1, 2}}},
		{"TooFewRuns", Encoding{Deltas: []int8{1, 2}, ZeroRuns: []int{0}}},
		{"NegativeRun", Encoding{Deltas: []int8{1}, ZeroRuns: []int{-1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.enc)
			if !errors.Is(err, ErrMalformedEncoding) {
				t.Errorf("expected ErrMalformedEncoding, got %v", err)
			}
		})
	}
}

func TestRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		frames := make([]int, 1+r.Intn(300))
		frames[0] = r.Intn(181)
		for j := 1; j < len(frames); j++ {
			step := 0
			if r.Intn(3) == 0 {
				step = r.Intn(255) - 127
			}
			frames[j] = frames[j-1] + step
		}

		enc, err := Encode(frames)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		nonZero := 0
		for j := 1; j < len(frames); j++ {
			if frames[j] != frames[j-1] {
				nonZero++
			}
		}
		if len(enc.Deltas) != nonZero {
			t.Fatalf("expected %d deltas, got %d", nonZero, len(enc.Deltas))
		}
		total := len(enc.Deltas)
		for _, run := range enc.ZeroRuns {
			total += run
		}
		if total != len(frames)-1 {
			t.Fatalf("runs plus deltas = %d, expected %d", total, len(frames)-1)
		}

		out, err := Decode(enc)
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		if !reflect.DeepEqual(out, frames) {
			t.Fatalf("round trip mismatch for %v", frames)
		}
	}
}

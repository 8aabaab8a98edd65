package sequence

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

const ms1 = time.Millisecond

func TestResolveSingleSweep(t *testing.T) {
	actions := []SweepAction{
		{Scene: 0, Pin: 6, Position: 90},
		{Scene: 1, Pin: 6, Position: 180, Duration: 1000 * ms1, EaseIn: 100 * ms1, EaseOut: 100 * ms1},
	}
	scenes, err := Resolve(actions, map[int]int{6: 90})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected reset scene plus one motion scene, got %d", len(scenes))
	}
	if scenes[0].ID != 0 || scenes[0].Duration != 0 {
		t.Errorf("unexpected reset scene: %+v", scenes[0])
	}

	s := scenes[1]
	if s.ID != 1 || s.Duration != 1000*ms1 {
		t.Errorf("unexpected scene: %+v", s)
	}
	expected := []Sweep{{Pin: 6, Start: 90, End: 180, Duration: 1000 * ms1, EaseIn: 100 * ms1, EaseOut: 100 * ms1}}
	if !reflect.DeepEqual(s.Sweeps, expected) {
		t.Errorf("expected=%+v, got=%+v", expected, s.Sweeps)
	}
}

func TestResolveOrderingAndChaining(t *testing.T) {
	actions := []SweepAction{
		{Scene: 3, Pin: 9, Position: 10, Duration: 300 * ms1},
		{Scene: 1, Pin: 9, Position: 100, Duration: 500 * ms1},
		{Scene: 1, Pin: 10, Position: 40, Duration: 800 * ms1},
		{Scene: 2, Name: "Delay", Pin: NoPin, Duration: 2 * time.Second},
		{Scene: 4, Pin: 10, Position: 0, Duration: 100 * ms1},
		{Scene: 4, Pin: 9, Position: 50, Duration: 200 * ms1},
	}
	scenes, err := Resolve(actions, map[int]int{9: 0, 10: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []int
	for _, s := range scenes {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []int{1, 2, 3, 4}) {
		t.Fatalf("unexpected scene order: %v", ids)
	}

	durations := []time.Duration{800 * ms1, 2 * time.Second, 300 * ms1, 200 * ms1}
	for i, s := range scenes {
		if s.Duration != durations[i] {
			t.Errorf("scene %d: expected duration %v, got %v", s.ID, durations[i], s.Duration)
		}
	}

	// every start equals the previous end for that pin
	last := map[int]int{9: 0, 10: 20}
	for _, s := range scenes {
		for _, sw := range s.Sweeps {
			if sw.Start != last[sw.Pin] {
				t.Errorf("scene %d pin %d: expected start %d, got %d", s.ID, sw.Pin, last[sw.Pin], sw.Start)
			}
			last[sw.Pin] = sw.End
		}
	}
	if len(scenes[1].Sweeps) != 0 {
		t.Errorf("expected delay scene to have no sweeps, got %+v", scenes[1].Sweeps)
	}
	if got := Pins(scenes); !reflect.DeepEqual(got, []int{9, 10}) {
		t.Errorf("unexpected pins: %v", got)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		actions  []SweepAction
		expected error
	}{
		{
			"DuplicatePin",
			[]SweepAction{
				{Scene: 1, Pin: 6, Position: 10, Duration: 100 * ms1},
				{Scene: 1, Pin: 6, Position: 20, Duration: 100 * ms1},
			},
			ErrDuplicatePinInScene,
		},
		{
			"UnknownPin",
			[]SweepAction{{Scene: 1, Pin: 7, Position: 10, Duration: 100 * ms1}},
			ErrUnknownPin,
		},
		{
			"EaseWindow",
			[]SweepAction{{Scene: 1, Pin: 6, Position: 10, Duration: 100 * ms1, EaseIn: 60 * ms1, EaseOut: 60 * ms1}},
			ErrInvalidEaseWindow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenes, err := Resolve(tt.actions, map[int]int{6: 0})
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
			if scenes != nil {
				t.Errorf("expected no partial result, got %+v", scenes)
			}
		})
	}
}

func TestResetPositions(t *testing.T) {
	actions := []SweepAction{
		{Scene: 0, Pin: 6, Position: 45},
		{Scene: 1, Pin: 6, Position: 100},
		{Scene: 1, Pin: 7, Position: 30},
		{Scene: 2, Pin: 7, Position: 60},
		{Scene: 2, Pin: NoPin},
	}
	expected := map[int]int{6: 45, 7: 60}
	if got := ResetPositions(actions); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected=%v, got=%v", expected, got)
	}
}

func TestEvaluateCubicEaseBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		t        time.Duration
		expected float64
	}{
		{"Start", 0, 0},
		{"End", 1000 * ms1, 180},
		{"BeforeStart", -5 * ms1, 0},
		{"AfterEnd", 1500 * ms1, 180},
		{"Midpoint", 500 * ms1, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCubicEase(tt.t, 1000*ms1, 100*ms1, 100*ms1, 0, 180)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvaluateCubicEaseContinuousAndMonotonic(t *testing.T) {
	windows := []struct {
		duration, in, out time.Duration
	}{
		{1000 * ms1, 100 * ms1, 100 * ms1},
		{1000 * ms1, 0, 0},
		{1000 * ms1, 500 * ms1, 500 * ms1},
		{1000 * ms1, 1000 * ms1, 0},
		{1000 * ms1, 0, 1000 * ms1},
		{750 * ms1, 200 * ms1, 50 * ms1},
	}
	for _, w := range windows {
		for _, dir := range [][2]float64{{0, 180}, {200, 20}} {
			prev := dir[0]
			for step := time.Duration(0); step <= w.duration; step += ms1 / 4 {
				got, err := EvaluateCubicEase(step, w.duration, w.in, w.out, dir[0], dir[1])
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dir[1] > dir[0] && got < prev-1e-9 || dir[1] < dir[0] && got > prev+1e-9 {
					t.Fatalf("window %+v: not monotonic at %v (%v after %v)", w, step, got, prev)
				}
				// a quarter millisecond can never move more than the
				// constant-velocity rate allows
				if math.Abs(got-prev) > math.Abs(dir[1]-dir[0])/float64(w.duration/ms1)*0.5 {
					t.Fatalf("window %+v: jump at %v (%v after %v)", w, step, got, prev)
				}
				prev = got
			}
			if prev != dir[1] {
				t.Errorf("window %+v: expected to finish at %v, got %v", w, dir[1], prev)
			}
		}
	}
}

func TestEvaluateCubicEaseInvalidWindow(t *testing.T) {
	_, err := EvaluateCubicEase(0, 100*ms1, 80*ms1, 30*ms1, 0, 10)
	if !errors.Is(err, ErrInvalidEaseWindow) {
		t.Errorf("expected ErrInvalidEaseWindow, got %v", err)
	}
	_, err = EvaluateCubicEase(0, 100*ms1, -1, 0, 0, 10)
	if !errors.Is(err, ErrInvalidEaseWindow) {
		t.Errorf("expected ErrInvalidEaseWindow for negative ease, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	p := DefaultProfile()
	if got := p.Pulse(0); got != 544 {
		t.Errorf("expected 544, got %d", got)
	}
	if got := p.Pulse(270); got != 2400 {
		t.Errorf("expected 2400, got %d", got)
	}
	if got := p.Pulse(135); got != 1472 {
		t.Errorf("expected 1472, got %d", got)
	}
	if got := p.Angle(135); got != 90 {
		t.Errorf("expected 90, got %v", got)
	}
	if got := (Profile{FullSweep: 180}).Angle(300); got != 180 {
		t.Errorf("expected clamp to 180, got %v", got)
	}
}

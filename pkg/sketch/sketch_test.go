package sketch

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Seann-Moser/servoseq/pkg/pin"
	"github.com/Seann-Moser/servoseq/pkg/sequence"
	"github.com/Seann-Moser/servoseq/pkg/table"
)

func TestRenderFrames(t *testing.T) {
	ft := &table.FrameTable{Channels: []table.Channel{
		{Name: "arm-1", Output: pin.Output{Pin: 9, Kind: pin.Servo}, Values: []int{90, 90, 91, 91, 91, 89}},
		{Name: "led", Output: pin.Output{Pin: 3, Kind: pin.AnalogPWM}, Values: []int{0, 0, 0, 0, 0, 0}},
	}}
	s, err := NewFrameSketch(ft, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.FrameCount != 6 || s.FrameInterval != 33 {
		t.Errorf("unexpected timing: %d frames every %dms", s.FrameCount, s.FrameInterval)
	}
	if got := len(s.Servos()); got != 1 {
		t.Errorf("expected 1 servo channel, got %d", got)
	}

	var buf bytes.Buffer
	if err := RenderFrames(&buf, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"const unsigned char initarm_1 = 90;",
		"const signed char deltasarm_1[2] = { 1,-2 };",
		"const unsigned long runsarm_1[2] = { 1,2 };",
		"const signed char deltasled[1] = { 0 };",
		"const unsigned long runsled[1] = { 5 };",
		"Servo servoarm_1;",
		"servoarm_1.attach(9);",
		"pinMode(A3, OUTPUT);",
		"analogWrite(A3, accumled);",
		"const unsigned long frame_count = 6;",
		"const unsigned long target_delta = 33;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered sketch missing %q", want)
		}
	}
}

func TestNewFrameSketchErrors(t *testing.T) {
	ft := &table.FrameTable{Channels: []table.Channel{
		{Name: "A", Output: pin.Output{Pin: 9, Kind: pin.Servo}, Values: []int{0, 180}},
	}}
	if _, err := NewFrameSketch(ft, 30); err == nil {
		t.Error("expected range error for a delta of 180")
	}
	if _, err := NewFrameSketch(ft, 0); err == nil {
		t.Error("expected error for zero fps")
	}

	clash := &table.FrameTable{Channels: []table.Channel{
		{Name: "a-b", Output: pin.Output{Pin: 9, Kind: pin.Servo}, Values: []int{0, 1}},
		{Name: "a_b", Output: pin.Output{Pin: 10, Kind: pin.Servo}, Values: []int{0, 1}},
	}}
	if _, err := NewFrameSketch(clash, 30); !errors.Is(err, ErrNameClash) {
		t.Errorf("expected ErrNameClash, got %v", err)
	}
}

func TestRenderRoutine(t *testing.T) {
	actions := []sequence.SweepAction{
		{Scene: 0, Name: "home", Pin: 6, Position: 135},
		{Scene: 1, Name: "raise", Pin: 6, Position: 270, Duration: time.Second, EaseIn: 200 * time.Millisecond, EaseOut: 200 * time.Millisecond},
		{Scene: 2, Name: "lower", Pin: 6, Position: 0, Duration: 500 * time.Millisecond},
	}
	reset := sequence.ResetPositions(actions)
	scenes, err := sequence.Resolve(actions, reset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := NewRoutineSketch(scenes, reset, func(int) sequence.Profile { return sequence.DefaultProfile() }, RoutineOptions{
		UpdateInterval: 15 * time.Millisecond,
		ResetDuration:  time.Second,
		MotionPin:      2,
		Standby:        func(int) int { return 0 },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Scenes) != 3 || s.Scenes[0].Duration != 1000 || s.Scenes[1].ID != 1 {
		t.Fatalf("unexpected scenes: %+v", s.Scenes)
	}
	if len(s.Servos) != 1 || s.Servos[0].Index != 0 || s.Servos[0].StandbyPulse != 544 {
		t.Errorf("unexpected servos: %+v", s.Servos)
	}

	var buf bytes.Buffer
	if err := RenderRoutine(&buf, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"#define UPDATE_INTERVAL 15",
		"#define MOTION_PIN 2",
		"#define SERVO6_STANDBY 544",
		"// reset servo on pin 6: 544 -> 1472",
		"update_servo(elapsed, SERVO6, 1472, 1000, 1000, 0);",
		"#define SCENE_COUNT 3",
		"// raise: 1472 -> 2400",
		"update_servo(elapsed, SERVO6, 2400, 1000, 200, 200);",
		"// lower: 2400 -> 544",
		"update_servo(elapsed, SERVO6, 544, 500, 0, 0);",
		// every scene eases from where the servos actually are
		"servos[i].start = servos[i].position;",
		"ease_position(elapsed, duration, ease_in, ease_out, s->start, end);",
		"scene_interval = 1000;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered sketch missing %q", want)
		}
	}

	s.MotionPin = -1
	buf.Reset()
	if err := RenderRoutine(&buf, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "MOTION_PIN") {
		t.Error("expected no motion pin in sketch")
	}
}

func TestNewRoutineSketchPositionRange(t *testing.T) {
	scenes := []sequence.ResolvedScene{
		{ID: 1, Duration: time.Second, Sweeps: []sequence.Sweep{{Pin: 6, Start: 90, End: 200, Duration: time.Second}}},
	}
	narrow := func(int) sequence.Profile { return sequence.Profile{FullSweep: 180} }
	_, err := NewRoutineSketch(scenes, map[int]int{6: 90}, narrow, RoutineOptions{MotionPin: -1})
	if !errors.Is(err, ErrPosition) {
		t.Errorf("expected ErrPosition, got %v", err)
	}
}

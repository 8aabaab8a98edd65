// Package sketch renders Arduino sketches from delta-zero encoded frame
// tables and from resolved scene routines.
package sketch

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/Seann-Moser/servoseq/pkg/deltazero"
	"github.com/Seann-Moser/servoseq/pkg/pin"
	"github.com/Seann-Moser/servoseq/pkg/sequence"
	"github.com/Seann-Moser/servoseq/pkg/table"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"int8s": joinInts[int8],
	"ints":  joinInts[int],
	"size":  func(n int) int { return max(n, 1) },
}).ParseFS(templateFS, "templates/*.tmpl"))

var (
	ErrPosition  = errors.New("sketch: position outside servo range")
	ErrNameClash = errors.New("sketch: channel names clash")
)

var identRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// ident turns a channel name into something usable inside a C identifier.
func ident(name string) string {
	return identRe.ReplaceAllString(name, "_")
}

func joinInts[T int8 | int](v []T) string {
	if len(v) == 0 {
		return "0"
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(int(x))
	}
	return strings.Join(parts, ",")
}

type FrameChannel struct {
	Name    string
	Ident   string
	Output  pin.Output
	Initial int
	Deltas  []int8
	Runs    []int
}

// PinExpr is the pin as written in the sketch source.
func (c FrameChannel) PinExpr() string {
	if c.Output.Kind.IsAnalog() {
		return "A" + strconv.Itoa(c.Output.Pin)
	}
	return strconv.Itoa(c.Output.Pin)
}

type FrameSketch struct {
	FrameCount    int
	FrameInterval int // milliseconds
	Channels      []FrameChannel
}

// NewFrameSketch encodes every channel of t for playback at fps.
func NewFrameSketch(t *table.FrameTable, fps int) (*FrameSketch, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("sketch: invalid frame rate %d", fps)
	}
	s := &FrameSketch{FrameCount: t.Frames(), FrameInterval: 1000 / fps}
	idents := make(map[string]string, len(t.Channels))
	for _, ch := range t.Channels {
		id := ident(ch.Name)
		if other, ok := idents[id]; ok {
			return nil, fmt.Errorf("%w: %q and %q both become %q", ErrNameClash, other, ch.Name, id)
		}
		idents[id] = ch.Name
		enc, err := deltazero.Encode(ch.Values)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		s.Channels = append(s.Channels, FrameChannel{
			Name:    ch.Name,
			Ident:   id,
			Output:  ch.Output,
			Initial: enc.Initial,
			Deltas:  enc.Deltas,
			Runs:    enc.ZeroRuns,
		})
	}
	return s, nil
}

// Servos returns the channels driven by the Servo library.
func (s *FrameSketch) Servos() []FrameChannel {
	var out []FrameChannel
	for _, c := range s.Channels {
		if c.Output.Kind == pin.Servo {
			out = append(out, c)
		}
	}
	return out
}

func RenderFrames(w io.Writer, s *FrameSketch) error {
	return templates.ExecuteTemplate(w, "frames.ino.tmpl", s)
}

type RoutineServo struct {
	Pin          int
	Index        int
	Profile      sequence.Profile
	StandbyPulse int
}

type RoutineSweep struct {
	Pin        int
	Name       string
	StartPulse int
	EndPulse   int
	Duration   int64 // milliseconds, as are the ease windows
	EaseIn     int64
	EaseOut    int64
}

type RoutineScene struct {
	Index    int
	ID       int
	Duration int64
	Sweeps   []RoutineSweep
}

type RoutineSketch struct {
	UpdateInterval int64
	MotionPin      int
	Servos         []RoutineServo
	Scenes         []RoutineScene
}

func (s *RoutineSketch) UseMotion() bool { return s.MotionPin >= 0 }

type RoutineOptions struct {
	UpdateInterval time.Duration
	// ResetDuration is how long the reset scene holds before the loop starts.
	ResetDuration time.Duration
	// MotionPin restarts the routine while its input reads low; -1 disables it.
	MotionPin int
	// Standby returns the position a servo rests at on power up, before the
	// reset scene moves it to its reset position. Nil rests at the reset
	// position.
	Standby func(pin int) int
}

// NewRoutineSketch converts resolved scenes into pulse widths for each
// servo. The first sketch scene is always the reset scene, easing every servo
// from standby to its reset position; scenes after it loop forever.
func NewRoutineSketch(scenes []sequence.ResolvedScene, reset map[int]int, profile func(int) sequence.Profile, opts RoutineOptions) (*RoutineSketch, error) {
	s := &RoutineSketch{
		UpdateInterval: opts.UpdateInterval.Milliseconds(),
		MotionPin:      opts.MotionPin,
	}

	pins := make([]int, 0, len(reset))
	for p := range reset {
		pins = append(pins, p)
	}
	sort.Ints(pins)
	pulse := func(p, deg int) (int, error) {
		prof := profile(p).WithDefaults()
		if deg < 0 || deg > prof.FullSweep {
			return 0, fmt.Errorf("%w: pin %d position %d not within [0, %d]", ErrPosition, p, deg, prof.FullSweep)
		}
		return prof.Pulse(deg), nil
	}
	resetScene := RoutineScene{Index: 0, ID: 0, Duration: opts.ResetDuration.Milliseconds()}
	for i, p := range pins {
		target, err := pulse(p, reset[p])
		if err != nil {
			return nil, err
		}
		standby := target
		if opts.Standby != nil {
			if standby, err = pulse(p, opts.Standby(p)); err != nil {
				return nil, fmt.Errorf("standby: %w", err)
			}
		}
		s.Servos = append(s.Servos, RoutineServo{Pin: p, Index: i, Profile: profile(p).WithDefaults(), StandbyPulse: standby})
		resetScene.Sweeps = append(resetScene.Sweeps, RoutineSweep{
			Pin:        p,
			Name:       fmt.Sprintf("reset servo on pin %d", p),
			StartPulse: standby,
			EndPulse:   target,
			Duration:   resetScene.Duration,
			EaseIn:     resetScene.Duration,
		})
	}

	for _, sc := range scenes {
		rs := RoutineScene{ID: sc.ID, Duration: sc.Duration.Milliseconds()}
		for _, sw := range sc.Sweeps {
			start, err := pulse(sw.Pin, sw.Start)
			if err != nil {
				return nil, fmt.Errorf("scene %d: %w", sc.ID, err)
			}
			end, err := pulse(sw.Pin, sw.End)
			if err != nil {
				return nil, fmt.Errorf("scene %d: %w", sc.ID, err)
			}
			rs.Sweeps = append(rs.Sweeps, RoutineSweep{
				Pin:        sw.Pin,
				Name:       sw.Name,
				StartPulse: start,
				EndPulse:   end,
				Duration:   sw.Duration.Milliseconds(),
				EaseIn:     sw.EaseIn.Milliseconds(),
				EaseOut:    sw.EaseOut.Milliseconds(),
			})
		}
		if sc.ID == 0 {
			// scene 0 only fixes reset positions, already covered above
			continue
		}
		rs.Index = len(s.Scenes) + 1
		s.Scenes = append(s.Scenes, rs)
	}
	s.Scenes = append([]RoutineScene{resetScene}, s.Scenes...)
	return s, nil
}

func RenderRoutine(w io.Writer, s *RoutineSketch) error {
	return templates.ExecuteTemplate(w, "routine.ino.tmpl", s)
}

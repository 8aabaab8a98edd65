// Package sequence resolves a routine of per-pin sweep actions into ordered
// scenes with chained start positions, and evaluates the cubic easing used to
// play each sweep.
package sequence

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// NoPin marks an action that only holds its scene open for Duration.
const NoPin = -1

var (
	ErrDuplicatePinInScene = errors.New("sequence: duplicate pin in scene")
	ErrUnknownPin          = errors.New("sequence: unknown pin")
	ErrInvalidEaseWindow   = errors.New("sequence: invalid ease window")
)

type DuplicatePinError struct {
	Scene int
	Pin   int
}

func (e *DuplicatePinError) Error() string {
	return fmt.Sprintf("sequence: scene %d has more than one sweep on pin %d", e.Scene, e.Pin)
}

func (e *DuplicatePinError) Unwrap() error { return ErrDuplicatePinInScene }

type UnknownPinError struct {
	Scene int
	Pin   int
}

func (e *UnknownPinError) Error() string {
	return fmt.Sprintf("sequence: scene %d references pin %d with no reset position", e.Scene, e.Pin)
}

func (e *UnknownPinError) Unwrap() error { return ErrUnknownPin }

// SweepAction is one row of a routine.
type SweepAction struct {
	Scene    int
	Name     string
	Pin      int
	Position int
	Duration time.Duration
	EaseIn   time.Duration
	EaseOut  time.Duration
}

// Sweep is a resolved move of a single pin within a scene.
type Sweep struct {
	Pin      int
	Name     string
	Start    int
	End      int
	Duration time.Duration
	EaseIn   time.Duration
	EaseOut  time.Duration
}

// PositionAt returns the eased position elapsed into the sweep.
// The ease window was validated when the sweep was resolved.
func (s Sweep) PositionAt(elapsed time.Duration) float64 {
	p, err := EvaluateCubicEase(elapsed, s.Duration, s.EaseIn, s.EaseOut, float64(s.Start), float64(s.End))
	if err != nil {
		return float64(s.End)
	}
	return p
}

type ResolvedScene struct {
	ID       int
	Duration time.Duration
	Sweeps   []Sweep
}

// Resolve groups actions into scenes ordered by id and chains each pin's
// start position to its end position in the latest earlier scene, or to its
// reset position. Scene 0 holds starting positions and has zero duration.
func Resolve(actions []SweepAction, reset map[int]int) ([]ResolvedScene, error) {
	byScene := make(map[int][]SweepAction)
	for _, a := range actions {
		byScene[a.Scene] = append(byScene[a.Scene], a)
	}
	ids := make([]int, 0, len(byScene))
	for id := range byScene {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	current := make(map[int]int, len(reset))
	for pin, pos := range reset {
		current[pin] = pos
	}

	scenes := make([]ResolvedScene, 0, len(ids))
	for _, id := range ids {
		scene := ResolvedScene{ID: id}
		seen := make(map[int]bool)
		for _, a := range byScene[id] {
			if err := checkEaseWindow(a.Duration, a.EaseIn, a.EaseOut); err != nil {
				return nil, fmt.Errorf("scene %d %q: %w", id, a.Name, err)
			}
			if id != 0 && a.Duration > scene.Duration {
				scene.Duration = a.Duration
			}
			if a.Pin == NoPin {
				continue
			}
			if seen[a.Pin] {
				return nil, &DuplicatePinError{Scene: id, Pin: a.Pin}
			}
			seen[a.Pin] = true
			start, ok := current[a.Pin]
			if !ok {
				return nil, &UnknownPinError{Scene: id, Pin: a.Pin}
			}
			scene.Sweeps = append(scene.Sweeps, Sweep{
				Pin:      a.Pin,
				Name:     a.Name,
				Start:    start,
				End:      a.Position,
				Duration: a.Duration,
				EaseIn:   a.EaseIn,
				EaseOut:  a.EaseOut,
			})
			current[a.Pin] = a.Position
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

// ResetPositions derives reset positions from a routine. Scene 0 rows win;
// any other pin resets to its final position in the routine so that looping
// from the last scene back to scene 1 is seamless.
func ResetPositions(actions []SweepAction) map[int]int {
	reset := make(map[int]int)
	last := make(map[int]SweepAction)
	for _, a := range actions {
		if a.Pin == NoPin {
			continue
		}
		if a.Scene == 0 {
			reset[a.Pin] = a.Position
			continue
		}
		if prev, ok := last[a.Pin]; !ok || a.Scene >= prev.Scene {
			last[a.Pin] = a
		}
	}
	for pin, a := range last {
		if _, ok := reset[pin]; !ok {
			reset[pin] = a.Position
		}
	}
	return reset
}

// Pins returns the sorted distinct pins swept by scenes.
func Pins(scenes []ResolvedScene) []int {
	seen := make(map[int]bool)
	var pins []int
	for _, s := range scenes {
		for _, sw := range s.Sweeps {
			if !seen[sw.Pin] {
				seen[sw.Pin] = true
				pins = append(pins, sw.Pin)
			}
		}
	}
	sort.Ints(pins)
	return pins
}

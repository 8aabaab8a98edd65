// Package controller plays resolved routines on a board in real time.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/Seann-Moser/servoseq/pkg/board"
	"github.com/Seann-Moser/servoseq/pkg/pin"
	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

// Sensor gates playback. The routine returns to its reset scene whenever the
// sensor is inactive.
type Sensor interface {
	Active() bool
}

var errMotionLost = errors.New("motion lost")

type Options struct {
	UpdateInterval time.Duration
	ResetDuration  time.Duration
	// Profile maps a pin to its servo profile; nil uses the default profile.
	Profile func(int) sequence.Profile
	Sensor  Sensor
	// Once stops after the last scene instead of looping back to scene 1.
	Once bool
	// Hold leaves the servos where they are when Run returns instead of
	// parking them at reset.
	Hold   bool
	Logger *slog.Logger
}

// Performer writes eased servo positions for each scene of a routine.
// Every scene starts from the positions last written, so looping back to
// scene 1 or returning to reset never jumps.
type Performer struct {
	board  board.Board
	scenes []sequence.ResolvedScene
	reset  map[int]int
	pins   []int
	opts   Options
	log    *slog.Logger
	pos    map[int]float64 // last written position per pin
}

func New(b board.Board, scenes []sequence.ResolvedScene, reset map[int]int, opts Options) *Performer {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 15 * time.Millisecond
	}
	if opts.Profile == nil {
		opts.Profile = func(int) sequence.Profile { return sequence.DefaultProfile() }
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	pins := make([]int, 0, len(reset))
	for p := range reset {
		pins = append(pins, p)
	}
	sort.Ints(pins)
	return &Performer{board: b, scenes: scenes, reset: reset, pins: pins, opts: opts, log: log, pos: make(map[int]float64)}
}

// Run plays the routine until ctx is cancelled, or through the last scene
// once when Options.Once is set. Unless Options.Hold is set the reset
// positions are written again before Run returns.
func (p *Performer) Run(ctx context.Context) error {
	if !p.opts.Hold {
		defer func() {
			if err := p.writeReset(); err != nil {
				p.log.Warn("failed to park servos", "error", err)
			}
		}()
	}

	// positions are unknown at power up, so the first reset is written directly
	if err := p.writeReset(); err != nil {
		return err
	}
	p.log.Info("reset", "pins", len(p.pins), "hold", p.opts.ResetDuration)
	if !p.sleep(ctx, p.opts.ResetDuration) {
		return nil
	}
	for {
		if !p.awaitMotion(ctx) {
			return nil
		}

		err := p.playScenes(ctx)
		switch {
		case errors.Is(err, errMotionLost):
			p.log.Info("motion lost, returning to reset")
			if err := p.returnToReset(ctx); err != nil {
				return ignoreCancel(err)
			}
			continue
		case err != nil:
			return ignoreCancel(err)
		}
		if p.opts.Once {
			return nil
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (p *Performer) playScenes(ctx context.Context) error {
	for {
		var total time.Duration
		for _, sc := range p.scenes {
			if sc.ID == 0 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.playScene(ctx, sc, true); err != nil {
				return err
			}
			total += sc.Duration
		}
		if p.opts.Once {
			return nil
		}
		if total == 0 {
			// nothing takes time, so the routine has settled; hold there
			return p.hold(ctx)
		}
	}
}

// returnToReset eases every pin from where it is to its reset position over
// the reset duration, accelerating throughout as the sketch's reset scene
// does.
func (p *Performer) returnToReset(ctx context.Context) error {
	sc := sequence.ResolvedScene{Duration: p.opts.ResetDuration}
	for _, pn := range p.pins {
		sc.Sweeps = append(sc.Sweeps, sequence.Sweep{
			Pin:      pn,
			Start:    p.reset[pn],
			End:      p.reset[pn],
			Duration: p.opts.ResetDuration,
			EaseIn:   p.opts.ResetDuration,
		})
	}
	return p.playScene(ctx, sc, false)
}

// playScene runs sc from the current positions. When gated, it stops with
// errMotionLost as soon as the sensor goes inactive.
func (p *Performer) playScene(ctx context.Context, sc sequence.ResolvedScene, gated bool) error {
	p.log.Debug("scene started", "scene", sc.ID, "duration", sc.Duration, "sweeps", len(sc.Sweeps))
	starts := make([]float64, len(sc.Sweeps))
	for i, sw := range sc.Sweeps {
		starts[i] = float64(sw.Start)
		if pos, ok := p.pos[sw.Pin]; ok {
			starts[i] = pos
		}
	}

	ticker := time.NewTicker(p.opts.UpdateInterval)
	defer ticker.Stop()
	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed >= sc.Duration {
			// exact end positions so the next scene chains cleanly
			return p.writeSweeps(sc, starts, sc.Duration)
		}
		if err := p.writeSweeps(sc, starts, elapsed); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if gated && p.opts.Sensor != nil && !p.opts.Sensor.Active() {
			return errMotionLost
		}
	}
}

func (p *Performer) writeSweeps(sc sequence.ResolvedScene, starts []float64, elapsed time.Duration) error {
	for i, sw := range sc.Sweeps {
		pos, err := sequence.EvaluateCubicEase(min(elapsed, sw.Duration), sw.Duration, sw.EaseIn, sw.EaseOut, starts[i], float64(sw.End))
		if err != nil {
			pos = float64(sw.End)
		}
		if err := p.write(sw.Pin, pos); err != nil {
			return err
		}
	}
	return nil
}

func (p *Performer) writeReset() error {
	for _, pn := range p.pins {
		if err := p.write(pn, float64(p.reset[pn])); err != nil {
			return err
		}
	}
	return nil
}

func (p *Performer) write(pn int, degrees float64) error {
	if err := p.board.SetOutput(pin.Output{Pin: pn, Kind: pin.Servo}, p.opts.Profile(pn).Angle(degrees)); err != nil {
		return err
	}
	p.pos[pn] = degrees
	return nil
}

// hold keeps the current positions until ctx ends or motion is lost.
func (p *Performer) hold(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.opts.Sensor != nil && !p.opts.Sensor.Active() {
				return errMotionLost
			}
		}
	}
}

// awaitMotion holds at reset until the sensor is active. It reports false
// when ctx ends first.
func (p *Performer) awaitMotion(ctx context.Context) bool {
	if p.opts.Sensor == nil || p.opts.Sensor.Active() {
		return true
	}
	p.log.Info("waiting for motion")
	ticker := time.NewTicker(p.opts.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if p.opts.Sensor.Active() {
				return true
			}
		}
	}
}

func (p *Performer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

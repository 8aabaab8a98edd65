package board

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/Seann-Moser/servoseq/pkg/pin"
)

// GPIO drives digital outputs on the lines of a local gpio chip. Output pins
// are line offsets.
type GPIO struct {
	chip   *gpiocdev.Chip
	lines  map[int]*gpiocdev.Line
	mu     sync.Mutex
	closed bool
}

func OpenGPIO(chip string) (*GPIO, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("servoseq"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}
	return &GPIO{chip: c, lines: make(map[int]*gpiocdev.Line)}, nil
}

func (g *GPIO) SetOutput(out pin.Output, value float64) error {
	if out.Kind != pin.Digital {
		return fmt.Errorf("%w: gpio line %d is %s", ErrUnsupported, out.Pin, out.Kind)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	v := int(level(out.Kind, value))
	l, ok := g.lines[out.Pin]
	if !ok {
		var err error
		l, err = g.chip.RequestLine(out.Pin, gpiocdev.AsOutput(v))
		if err != nil {
			return fmt.Errorf("request gpio line %d: %w", out.Pin, err)
		}
		g.lines[out.Pin] = l
		return nil
	}
	return l.SetValue(v)
}

// Close drives every requested line low and returns it to an input.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	for _, l := range g.lines {
		_ = l.SetValue(0)
		_ = l.Reconfigure(gpiocdev.AsInput)
		_ = l.Close()
	}
	return g.chip.Close()
}

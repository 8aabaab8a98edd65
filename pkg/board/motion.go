package board

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const motionDebounce = 10 * time.Millisecond

// Motion watches a motion sensor on a gpio input line. The sensor is active
// while its line reads high.
type Motion struct {
	line *gpiocdev.Line

	mu      sync.Mutex
	active  bool
	changed time.Time
}

// WatchMotion requests offset on chip as a pulled-down input and tracks its
// edges.
func WatchMotion(chip string, offset int) (*Motion, error) {
	m := &Motion{}
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(m.eventHandler),
		gpiocdev.WithConsumer("servoseq-motion"),
	)
	if err != nil {
		return nil, fmt.Errorf("request motion line %d: %w", offset, err)
	}
	v, err := l.Value()
	if err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("read motion line %d: %w", offset, err)
	}
	m.line = l
	m.active = v == 1
	return m, nil
}

func (m *Motion) eventHandler(evt gpiocdev.LineEvent) {
	m.edge(evt.Type == gpiocdev.LineEventRisingEdge, time.Now())
}

// edge records a level change, ignoring a bounce that reverts a change made
// less than motionDebounce earlier.
func (m *Motion) edge(rising bool, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == rising {
		return
	}
	if !m.changed.IsZero() && at.Sub(m.changed) < motionDebounce {
		slog.Debug("motion edge ignored", "rising", rising, "after", at.Sub(m.changed))
		return
	}
	m.active = rising
	m.changed = at
	slog.Debug("motion changed", "active", rising)
}

// Active reports whether motion is currently sensed.
func (m *Motion) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Motion) Close() error {
	if m.line == nil {
		return nil
	}
	return m.line.Close()
}

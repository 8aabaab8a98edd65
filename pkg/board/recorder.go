package board

import (
	"sync"

	"github.com/Seann-Moser/servoseq/pkg/pin"
)

// Write is one output recorded by a Recorder.
type Write struct {
	Output pin.Output
	Value  float64
}

// Recorder is a Board that keeps every write in memory. It backs dry runs.
type Recorder struct {
	mu     sync.Mutex
	writes []Write
	closed bool
	// Err, when set, is returned by every SetOutput call.
	Err error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetOutput(out pin.Output, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.Err != nil {
		return r.Err
	}
	r.writes = append(r.writes, Write{Output: out, Value: out.Kind.Clamp(value)})
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Writes returns a copy of every write so far.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Write(nil), r.writes...)
}

// Pin returns the values written to p in order.
func (r *Recorder) Pin(p int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []float64
	for _, w := range r.writes {
		if w.Output.Pin == p {
			out = append(out, w.Value)
		}
	}
	return out
}

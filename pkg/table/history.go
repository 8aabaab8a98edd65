package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

// RoutineHeader is the column order written by RoutineWriter.
var RoutineHeader = []string{"Scene", "Name", "Pin", "Position", "Time", "Ease In", "Ease Out"}

// FillerDuration is how long the filler scene takes to carry a servo to the
// start of a sweep that does not begin where its previous sweep ended.
const FillerDuration = 2 * time.Second

// RoutineWriter appends single servo sweeps to a routine table readable by
// ReadRoutine, one scene per sweep, so a session of sweeps can be replayed
// or turned into a sketch.
type RoutineWriter struct {
	path string
	mu   sync.Mutex
}

func NewRoutineWriter(path string) *RoutineWriter {
	return &RoutineWriter{path: path}
}

func (w *RoutineWriter) Path() string { return w.path }

// Append adds sw after the last scene in the table. A pin new to the table
// gets a scene 0 row holding sw.Start; a pin last left elsewhere gets a
// filler scene moving it to sw.Start first.
func (w *RoutineWriter) Append(sw sequence.Sweep) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	var actions []sequence.SweepAction
	if len(bytes.TrimSpace(data)) > 0 {
		if err := checkRoutineHeader(data); err != nil {
			return fmt.Errorf("%s: %w", w.path, err)
		}
		if actions, err = ReadRoutine(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%s: %w", w.path, err)
		}
	}

	next := 1
	last := make(map[int]sequence.SweepAction)
	for _, a := range actions {
		next = max(next, a.Scene+1)
		if a.Pin == sequence.NoPin {
			continue
		}
		if prev, ok := last[a.Pin]; !ok || a.Scene >= prev.Scene {
			last[a.Pin] = a
		}
	}

	var rows [][]string
	if len(actions) == 0 {
		rows = append(rows, RoutineHeader)
	}
	prev, ok := last[sw.Pin]
	switch {
	case !ok:
		rows = append(rows, routineRow(sequence.SweepAction{Scene: 0, Name: "start", Pin: sw.Pin, Position: sw.Start}))
	case prev.Position != sw.Start:
		slog.Warn("sweep does not start where the pin was left", "pin", sw.Pin, "from", prev.Position, "to", sw.Start)
		rows = append(rows, routineRow(sequence.SweepAction{
			Scene:    next,
			Name:     "move to start",
			Pin:      sw.Pin,
			Position: sw.Start,
			Duration: FillerDuration,
		}))
		next++
	}
	rows = append(rows, routineRow(sequence.SweepAction{
		Scene:    next,
		Name:     sw.Name,
		Pin:      sw.Pin,
		Position: sw.End,
		Duration: sw.Duration,
		EaseIn:   sw.EaseIn,
		EaseOut:  sw.EaseOut,
	}))

	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func checkRoutineHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	got := make([]string, len(header))
	for i, h := range header {
		got[i] = normaliseColumn(h)
	}
	want := make([]string, len(RoutineHeader))
	for i, h := range RoutineHeader {
		want[i] = normaliseColumn(h)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("columns %v differ from %v", header, RoutineHeader)
	}
	return nil
}

func routineRow(a sequence.SweepAction) []string {
	ms := func(d time.Duration) string {
		if a.Scene == 0 {
			return ""
		}
		return strconv.FormatInt(d.Milliseconds(), 10)
	}
	return []string{
		strconv.Itoa(a.Scene),
		a.Name,
		strconv.Itoa(a.Pin),
		strconv.Itoa(a.Position),
		ms(a.Duration),
		ms(a.EaseIn),
		ms(a.EaseOut),
	}
}

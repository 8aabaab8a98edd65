package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

// routine columns, normalised by normaliseColumn
const (
	colScene    = "scene"
	colName     = "name"
	colPin      = "pin"
	colPosition = "position"
	colTime     = "time"
	colEaseIn   = "easein"
	colEaseOut  = "easeout"
)

func normaliseColumn(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	switch h {
	case "duration":
		return colTime
	case "scenename":
		return colScene
	}
	return h
}

// ReadRoutine reads a routine table with the columns
// Scene,Name,Pin,Position,Time,Ease In,Ease Out. Times are milliseconds.
// A blank or NONE pin makes the row a delay that only extends its scene.
func ReadRoutine(r io.Reader) ([]sequence.SweepAction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("routine: empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[normaliseColumn(h)] = i
	}
	for _, c := range []string{colScene, colPin, colPosition, colTime} {
		if _, ok := cols[c]; !ok {
			return nil, &ParseError{Line: 1, Column: c, Err: errors.New("column missing")}
		}
	}

	var actions []sequence.SweepAction
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read routine: %w", err)
		}
		get := func(c string) string {
			i, ok := cols[c]
			if !ok {
				return ""
			}
			return field(rec, i)
		}
		if get(colScene) == "" {
			continue
		}

		a := sequence.SweepAction{Name: get(colName), Pin: sequence.NoPin}
		if a.Scene, err = strconv.Atoi(get(colScene)); err != nil || a.Scene < 0 {
			return nil, &ParseError{Line: line, Column: colScene, Err: fmt.Errorf("scene %q is not a non-negative integer", get(colScene))}
		}
		if p := get(colPin); p != "" && !strings.EqualFold(p, "none") {
			if a.Pin, err = strconv.Atoi(p); err != nil || a.Pin < 0 {
				return nil, &ParseError{Line: line, Column: colPin, Err: fmt.Errorf("pin %q is not a non-negative integer", p)}
			}
			if a.Position, err = atoi(rec, cols[colPosition]); err != nil {
				return nil, &ParseError{Line: line, Column: colPosition, Err: err}
			}
		}
		for _, d := range []struct {
			col string
			dst *time.Duration
		}{
			{colTime, &a.Duration},
			{colEaseIn, &a.EaseIn},
			{colEaseOut, &a.EaseOut},
		} {
			if *d.dst, err = millis(get(d.col)); err != nil {
				return nil, &ParseError{Line: line, Column: d.col, Err: err}
			}
		}
		actions = append(actions, a)
	}
	return actions, nil
}

type yamlRoutine struct {
	Scenes []struct {
		ID      int `yaml:"id"`
		Actions []struct {
			Name     string `yaml:"name"`
			Pin      *int   `yaml:"pin"`
			Position int    `yaml:"position"`
			Time     int    `yaml:"time"`
			EaseIn   int    `yaml:"ease_in"`
			EaseOut  int    `yaml:"ease_out"`
		} `yaml:"actions"`
	} `yaml:"scenes"`
}

// ReadRoutineYAML reads a routine of scenes each holding a list of actions.
// An action without a pin is a delay.
func ReadRoutineYAML(r io.Reader) ([]sequence.SweepAction, error) {
	var doc yamlRoutine
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode routine: %w", err)
	}
	var actions []sequence.SweepAction
	for _, s := range doc.Scenes {
		if s.ID < 0 {
			return nil, fmt.Errorf("routine: scene %d is negative", s.ID)
		}
		for _, a := range s.Actions {
			if a.Time < 0 || a.EaseIn < 0 || a.EaseOut < 0 {
				return nil, fmt.Errorf("routine: scene %d %q has a negative time", s.ID, a.Name)
			}
			act := sequence.SweepAction{
				Scene:    s.ID,
				Name:     a.Name,
				Pin:      sequence.NoPin,
				Position: a.Position,
				Duration: time.Duration(a.Time) * time.Millisecond,
				EaseIn:   time.Duration(a.EaseIn) * time.Millisecond,
				EaseOut:  time.Duration(a.EaseOut) * time.Millisecond,
			}
			if a.Pin != nil {
				act.Pin = *a.Pin
			}
			actions = append(actions, act)
		}
	}
	return actions, nil
}

// LoadRoutine reads a routine file, choosing the format by extension.
func LoadRoutine(path string) ([]sequence.SweepAction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var actions []sequence.SweepAction
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		actions, err = ReadRoutine(f)
	case ".yaml", ".yml":
		actions, err = ReadRoutineYAML(f)
	default:
		return nil, fmt.Errorf("%s: unsupported routine format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return actions, nil
}

func millis(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%q is not a non-negative number of milliseconds", s)
	}
	return time.Duration(v * float64(time.Millisecond)), nil
}

// Routine is a loaded routine together with its optional servo table.
type Routine struct {
	Actions []sequence.SweepAction
	Servos  map[int]ServoInfo
	// Default is the profile of pins missing from Servos. Unset fields take
	// the package defaults.
	Default sequence.Profile
}

// LoadRoutineFiles loads a routine and an optional servo table.
func LoadRoutineFiles(routinePath, servoPath string) (*Routine, error) {
	actions, err := LoadRoutine(routinePath)
	if err != nil {
		return nil, err
	}
	servos, err := LoadProfiles(servoPath)
	if err != nil {
		return nil, err
	}
	return &Routine{Actions: actions, Servos: servos}, nil
}

// Profile returns the servo profile for p, or the default profile when the
// servo table has no row for it.
func (r *Routine) Profile(p int) sequence.Profile {
	if info, ok := r.Servos[p]; ok {
		return info.Profile
	}
	return r.Default.WithDefaults()
}

// Reset returns the reset position of every pin: its scene 0 position, or
// else its final position in the routine.
func (r *Routine) Reset() map[int]int {
	return sequence.ResetPositions(r.Actions)
}

// Standby returns the power-up position of p from the servo table, or
// fallback when the table leaves it unset. It never exceeds the servo's full
// sweep.
func (r *Routine) Standby(p, fallback int) int {
	if info, ok := r.Servos[p]; ok && info.Standby >= 0 {
		return info.Standby
	}
	return min(fallback, r.Profile(p).FullSweep)
}

// Resolve resolves the routine into scenes along with the reset positions
// used to chain them.
func (r *Routine) Resolve() ([]sequence.ResolvedScene, map[int]int, error) {
	reset := r.Reset()
	scenes, err := sequence.Resolve(r.Actions, reset)
	if err != nil {
		return nil, nil, err
	}
	return scenes, reset, nil
}

// UnusedServos lists servo table pins that the routine never moves.
func (r *Routine) UnusedServos() []int {
	used := make(map[int]bool)
	for _, a := range r.Actions {
		used[a.Pin] = true
	}
	var unused []int
	for p := range r.Servos {
		if !used[p] {
			unused = append(unused, p)
		}
	}
	sort.Ints(unused)
	return unused
}

// Package table reads the CSV and YAML tables the generators consume: per
// frame output values, scene routines and servo profiles.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Seann-Moser/servoseq/pkg/pin"
)

var (
	ErrMissingFrames = errors.New("table: missing frames")
	ErrNoFrames      = errors.New("table: no frames")
)

// ParseError locates a problem in an input table.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Channel is one output's values across every frame.
type Channel struct {
	Name   string
	Output pin.Output
	Values []int
}

type FrameTable struct {
	Channels []Channel
}

// Frames returns the number of frames in the table.
func (t *FrameTable) Frames() int {
	if len(t.Channels) == 0 {
		return 0
	}
	return len(t.Channels[0].Values)
}

// ParseChannelKey splits a column such as "value_A" into its attribute and
// channel name.
func ParseChannelKey(key string) (attrib, name string, ok bool) {
	attrib, name, ok = strings.Cut(key, "_")
	if !ok || name == "" {
		return "", "", false
	}
	switch attrib {
	case "pin", "value", "type":
		return attrib, name, true
	}
	return "", "", false
}

// ReadFrames reads a table with a "frame" column and pin_<name>,
// value_<name>, type_<name> columns per channel. Frames must run from 1 to
// the largest frame number without gaps; the first row seen for a frame wins.
// Pins and types are taken from frame 1.
func ReadFrames(r io.Reader) (*FrameTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoFrames
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	frameCol := -1
	cols := make(map[string]map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "frame" {
			frameCol = i
			continue
		}
		attrib, name, ok := ParseChannelKey(h)
		if !ok {
			continue
		}
		if cols[name] == nil {
			cols[name] = make(map[string]int)
		}
		cols[name][attrib] = i
	}
	if frameCol < 0 {
		return nil, &ParseError{Line: 1, Column: "frame", Err: errors.New("column missing")}
	}
	names := make([]string, 0, len(cols))
	for name, c := range cols {
		for _, attrib := range []string{"pin", "value", "type"} {
			if _, ok := c[attrib]; !ok {
				return nil, &ParseError{Line: 1, Column: attrib + "_" + name, Err: errors.New("column missing")}
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make(map[int][]string)
	lines := make(map[int]int)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read frames: %w", err)
		}
		if frameCol >= len(rec) || strings.TrimSpace(rec[frameCol]) == "" {
			continue
		}
		f, err := strconv.Atoi(strings.TrimSpace(rec[frameCol]))
		if err != nil {
			return nil, &ParseError{Line: line, Column: "frame", Err: err}
		}
		if _, ok := rows[f]; !ok {
			rows[f] = rec
			lines[f] = line
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoFrames
	}
	last := 0
	for f := range rows {
		if f < 1 {
			return nil, &ParseError{Line: lines[f], Column: "frame", Err: fmt.Errorf("frame %d is not 1-indexed", f)}
		}
		if f > last {
			last = f
		}
	}
	if last != len(rows) {
		return nil, fmt.Errorf("%w: %d distinct frames between 1 and %d", ErrMissingFrames, len(rows), last)
	}

	t := &FrameTable{}
	for _, name := range names {
		c := cols[name]
		first := rows[1]
		ch := Channel{Name: name, Values: make([]int, 0, last)}
		ch.Output.Pin, err = atoi(first, c["pin"])
		if err != nil {
			return nil, &ParseError{Line: lines[1], Column: "pin_" + name, Err: err}
		}
		ch.Output.Kind, err = pin.ParseKind(field(first, c["type"]))
		if err != nil {
			return nil, &ParseError{Line: lines[1], Column: "type_" + name, Err: err}
		}
		lo, hi := ch.Output.Kind.Range()
		for f := 1; f <= last; f++ {
			v, err := atoi(rows[f], c["value"])
			if err != nil {
				return nil, &ParseError{Line: lines[f], Column: "value_" + name, Err: err}
			}
			if v < lo || v > hi {
				return nil, &ParseError{Line: lines[f], Column: "value_" + name, Err: fmt.Errorf("%d outside %s range [%d, %d]", v, ch.Output.Kind, lo, hi)}
			}
			ch.Values = append(ch.Values, v)
		}
		t.Channels = append(t.Channels, ch)
	}
	return t, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// atoi accepts integers and floats, truncating the latter.
func atoi(rec []string, i int) (int, error) {
	s := field(rec, i)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return int(f), nil
}

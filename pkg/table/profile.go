package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

// ServoInfo is one row of a servo table.
type ServoInfo struct {
	Pin     int
	Profile sequence.Profile
	// Standby is the position in degrees the servo rests at on power up,
	// or -1 when unset.
	Standby int
}

// ReadProfiles reads a servo table with the columns
// Pin,Full Sweep,Minimum,Maximum and an optional Standby column. Missing or
// blank fields take the defaults of sequence.DefaultProfile.
func ReadProfiles(r io.Reader) (map[int]ServoInfo, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return map[int]ServoInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[normaliseColumn(h)] = i
	}
	if _, ok := cols[colPin]; !ok {
		return nil, &ParseError{Line: 1, Column: colPin, Err: errors.New("column missing")}
	}

	infos := make(map[int]ServoInfo)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read servo table: %w", err)
		}
		p, err := strconv.Atoi(field(rec, cols[colPin]))
		if err != nil {
			// note rows without a numeric pin
			continue
		}
		info := ServoInfo{Pin: p, Standby: -1}
		for _, c := range []struct {
			col string
			dst *int
		}{
			{"fullsweep", &info.Profile.FullSweep},
			{"minimum", &info.Profile.MinPulse},
			{"maximum", &info.Profile.MaxPulse},
			{"standby", &info.Standby},
		} {
			i, ok := cols[c.col]
			if !ok || field(rec, i) == "" {
				continue
			}
			if *c.dst, err = atoi(rec, i); err != nil {
				return nil, &ParseError{Line: line, Column: c.col, Err: err}
			}
		}
		info.Profile = info.Profile.WithDefaults()
		if info.Profile.MinPulse >= info.Profile.MaxPulse {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("pin %d: minimum %d not below maximum %d", p, info.Profile.MinPulse, info.Profile.MaxPulse)}
		}
		infos[p] = info
	}
	return infos, nil
}

// LoadProfiles reads a servo table from path. An empty path yields no rows.
func LoadProfiles(path string) (map[int]ServoInfo, error) {
	if strings.TrimSpace(path) == "" {
		return map[int]ServoInfo{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	infos, err := ReadProfiles(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return infos, nil
}

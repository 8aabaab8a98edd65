package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
)

// FrameWriter appends frames received as key/value messages to a CSV file
// readable by ReadFrames. Frame 1 truncates the file and writes the header.
type FrameWriter struct {
	path string
	mu   sync.Mutex
}

func NewFrameWriter(path string) *FrameWriter {
	return &FrameWriter{path: path}
}

func (w *FrameWriter) Path() string { return w.path }

// Write records one frame message. The "port" key is transport
// configuration and is not recorded.
func (w *FrameWriter) Write(msg map[string]any) error {
	keys := make([]string, 0, len(msg))
	for k := range msg {
		if k == "port" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make([]string, len(keys))
	for i, k := range keys {
		row[i] = formatValue(msg[k])
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	first := formatValue(msg["frame"]) == "1"
	if first {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if first {
		if err := cw.Write(keys); err != nil {
			return err
		}
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.Itoa(int(x))
	case float32:
		return strconv.Itoa(int(x))
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

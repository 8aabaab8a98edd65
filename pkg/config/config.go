// Package config loads the TOML configuration shared by every servoseq
// command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

// DefaultPath is read from the working directory when no --config flag is given.
const DefaultPath = ".servoseq.toml"

// Board kinds accepted by Board.Kind.
const (
	BoardFirmata = "firmata"
	BoardPCA9685 = "pca9685"
	BoardGPIO    = "gpio"
	BoardDryRun  = "dry-run"
)

// Sketch contains settings for generated firmware and live playback timing.
type Sketch struct {
	FPS              int `toml:"fps"`
	UpdateIntervalMS int `toml:"update_interval_ms"`
	ResetDurationMS  int `toml:"reset_duration_ms"`
	MotionPin        int `toml:"motion_pin"` // -1 disables the motion sensor
}

func (s Sketch) UpdateInterval() time.Duration {
	return time.Duration(s.UpdateIntervalMS) * time.Millisecond
}

func (s Sketch) ResetDuration() time.Duration {
	return time.Duration(s.ResetDurationMS) * time.Millisecond
}

// Servo is the profile used for pins missing from a servo table.
type Servo struct {
	FullSweep int `toml:"full_sweep"`
	MinPulse  int `toml:"min_pulse"`
	MaxPulse  int `toml:"max_pulse"`
	Standby   int `toml:"standby"`
}

func (s Servo) Profile() sequence.Profile {
	return sequence.Profile{FullSweep: s.FullSweep, MinPulse: s.MinPulse, MaxPulse: s.MaxPulse}
}

// Board selects and addresses the hardware outputs are written to.
type Board struct {
	Kind       string `toml:"kind"`
	Port       string `toml:"port"`
	Baud       int    `toml:"baud"`
	I2CBus     string `toml:"i2c_bus"`
	I2CAddr    int    `toml:"i2c_addr"`
	Chip       string `toml:"chip"`
	MotionLine int    `toml:"motion_line"` // gpio line of the motion sensor, -1 for none
	LockDir    string `toml:"lock_dir"`
	// AnalogOffset is the digital pin number of A0 on a firmata board.
	AnalogOffset int `toml:"analog_offset"`
}

// Bridge contains the websocket bridge settings.
type Bridge struct {
	Listen string `toml:"listen"`
	Record string `toml:"record"` // csv file for received frames, empty to disable
}

type Config struct {
	Sketch Sketch `toml:"sketch"`
	Servo  Servo  `toml:"servo"`
	Board  Board  `toml:"board"`
	Bridge Bridge `toml:"bridge"`
}

func Default() Config {
	p := sequence.DefaultProfile()
	return Config{
		Sketch: Sketch{
			FPS:              30,
			UpdateIntervalMS: 15,
			ResetDurationMS:  1000,
			MotionPin:        -1,
		},
		Servo: Servo{
			FullSweep: p.FullSweep,
			MinPulse:  p.MinPulse,
			MaxPulse:  p.MaxPulse,
			Standby:   135,
		},
		Board: Board{
			Kind:         BoardFirmata,
			Baud:         57600,
			I2CBus:       "I2C1",
			I2CAddr:      0x40,
			Chip:         "gpiochip0",
			MotionLine:   -1,
			LockDir:      os.TempDir(),
			AnalogOffset: 14,
		},
		Bridge: Bridge{
			Listen: "127.0.0.1:22300",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error and
// yields the defaults.
func Load(path string) (*Config, bool, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, false, nil
		}
		return nil, false, fmt.Errorf("read config: %w", err)
	}
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, true, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, true, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, true, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Sketch.FPS <= 0 || c.Sketch.FPS > 1000 {
		return fmt.Errorf("sketch.fps must be between 1 and 1000, got %d", c.Sketch.FPS)
	}
	if c.Sketch.UpdateIntervalMS <= 0 {
		return errors.New("sketch.update_interval_ms must be positive")
	}
	if c.Sketch.ResetDurationMS < 0 {
		return errors.New("sketch.reset_duration_ms must not be negative")
	}
	if c.Servo.FullSweep <= 0 {
		return errors.New("servo.full_sweep must be positive")
	}
	if c.Servo.MinPulse <= 0 || c.Servo.MinPulse >= c.Servo.MaxPulse {
		return fmt.Errorf("servo.min_pulse (%d) must be positive and below servo.max_pulse (%d)", c.Servo.MinPulse, c.Servo.MaxPulse)
	}
	if c.Servo.Standby < 0 || c.Servo.Standby > c.Servo.FullSweep {
		return fmt.Errorf("servo.standby must be within [0, %d]", c.Servo.FullSweep)
	}
	switch strings.ToLower(c.Board.Kind) {
	case BoardFirmata:
		if c.Board.Baud <= 0 {
			return errors.New("board.baud must be positive")
		}
		if c.Board.AnalogOffset < 0 {
			return errors.New("board.analog_offset must not be negative")
		}
	case BoardPCA9685:
		if c.Board.I2CAddr <= 0 || c.Board.I2CAddr > 0x7f {
			return fmt.Errorf("board.i2c_addr %#x is not a 7-bit address", c.Board.I2CAddr)
		}
	case BoardGPIO:
		if c.Board.Chip == "" {
			return errors.New("board.chip must be set for gpio boards")
		}
	case BoardDryRun:
	default:
		return fmt.Errorf("board.kind %q must be one of %s, %s, %s, %s", c.Board.Kind, BoardFirmata, BoardPCA9685, BoardGPIO, BoardDryRun)
	}
	if strings.TrimSpace(c.Bridge.Listen) == "" {
		return errors.New("bridge.listen must be set")
	}
	return nil
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

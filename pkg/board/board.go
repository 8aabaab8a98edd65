// Package board writes pin outputs to real hardware: a Firmata
// microcontroller on a serial port, a PCA9685 servo hat on I2C, or local
// GPIO lines.
package board

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Seann-Moser/servoseq/pkg/config"
	"github.com/Seann-Moser/servoseq/pkg/pin"
	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

var (
	ErrUnsupported = errors.New("board: output kind not supported")
	ErrClosed      = errors.New("board: closed")
)

// Board drives outputs. Servo values are angles in [0, 180], PWM values are
// duty levels in [0, 255] and digital values are 0 or 1. Values outside a
// kind's range are clamped.
type Board interface {
	SetOutput(out pin.Output, value float64) error
	Close() error
}

// Open connects to the board described by cfg. Servo pulse widths for boards
// that generate them are taken from servo.
func Open(cfg config.Board, servo sequence.Profile) (Board, error) {
	switch strings.ToLower(cfg.Kind) {
	case config.BoardFirmata:
		return OpenFirmata(cfg)
	case config.BoardPCA9685:
		return OpenPCA9685(cfg.I2CBus, uint16(cfg.I2CAddr), servo)
	case config.BoardGPIO:
		return OpenGPIO(cfg.Chip)
	case config.BoardDryRun:
		return NewRecorder(), nil
	}
	return nil, fmt.Errorf("board: unknown kind %q", cfg.Kind)
}

// level converts a clamped output value into the byte written to the pin.
func level(kind pin.Kind, value float64) byte {
	v := kind.Clamp(value)
	if !kind.PWM() && kind != pin.Servo {
		if v >= 0.5 {
			return 1
		}
		return 0
	}
	return byte(math.Round(v))
}

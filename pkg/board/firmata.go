package board

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"gobot.io/x/gobot/platforms/firmata"

	"github.com/Seann-Moser/servoseq/pkg/config"
	"github.com/Seann-Moser/servoseq/pkg/pin"
)

// DefaultAnalogOffset is the digital pin number of A0 on an Uno class board.
const DefaultAnalogOffset = 14

var (
	ErrNoPort   = errors.New("board: no serial port found")
	ErrPortBusy = errors.New("board: serial port in use")
)

// Firmata drives a microcontroller running StandardFirmata.
type Firmata struct {
	port    string
	analog  int // digital pin number of A0
	adaptor *firmata.Adaptor
	lock    *flock.Flock
	mu      sync.Mutex
	closed  bool
}

// OpenFirmata connects to a Firmata board on cfg.Port, or on the first USB
// serial port when it is empty. The port is locked for the lifetime of the
// board so two servoseq processes cannot share it.
func OpenFirmata(cfg config.Board) (*Firmata, error) {
	port, baud := cfg.Port, cfg.Baud
	if port == "" {
		var err error
		if port, err = DetectPort(); err != nil {
			return nil, err
		}
	}
	lock, err := LockPort(cfg.LockDir, port)
	if err != nil {
		return nil, err
	}

	a := firmata.NewAdaptor(port)
	a.PortOpener = func(name string) (io.ReadWriteCloser, error) {
		return serial.Open(name, &serial.Mode{BaudRate: baud})
	}
	slog.Debug("connecting to firmata board", "port", port, "baud", baud)
	if err := a.Connect(); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("connect firmata on %s: %w", port, err)
	}
	slog.Info("firmata board connected", "port", port)
	return &Firmata{port: port, analog: cfg.AnalogOffset, adaptor: a, lock: lock}, nil
}

func (f *Firmata) Port() string { return f.port }

func (f *Firmata) SetOutput(out pin.Output, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	p := firmataPin(out, f.analog)
	v := level(out.Kind, value)
	switch {
	case out.Kind == pin.Servo:
		return f.adaptor.ServoWrite(p, v)
	case out.Kind.PWM():
		return f.adaptor.PwmWrite(p, v)
	default:
		return f.adaptor.DigitalWrite(p, v)
	}
}

func (f *Firmata) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.adaptor.Finalize()
	if uerr := f.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func firmataPin(out pin.Output, analogOffset int) string {
	if out.Kind.IsAnalog() {
		return strconv.Itoa(out.Pin + analogOffset)
	}
	return strconv.Itoa(out.Pin)
}

// LockPort takes an exclusive lock file for port inside dir.
func LockPort(dir, port string) (*flock.Flock, error) {
	name := "servoseq-" + strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(filepath.Base(port)) + ".lock"
	lock := flock.New(filepath.Join(dir, name))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", port, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPortBusy, port)
	}
	return lock, nil
}

// Ports lists the serial ports on this machine.
func Ports() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		names, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("list serial ports: %w", err)
		}
		for _, n := range names {
			ports = append(ports, &enumerator.PortDetails{Name: n})
		}
	}
	return ports, nil
}

// DetectPort returns the first USB serial port, falling back to the first
// port of any kind.
func DetectPort() (string, error) {
	ports, err := Ports()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	if len(ports) > 0 {
		return ports[0].Name, nil
	}
	return "", ErrNoPort
}

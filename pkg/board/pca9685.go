package board

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/Seann-Moser/servoseq/pkg/pin"
	"github.com/Seann-Moser/servoseq/pkg/sequence"
)

const (
	pcaChannels = 16
	pcaTicks    = 4096
	pcaPeriodUS = 20000 // one cycle at 50Hz
)

// PCA9685 drives the 16 channels of a PCA9685 servo hat. Output pins are
// channel numbers.
type PCA9685 struct {
	bus     i2c.BusCloser
	dev     *pca9685.Dev
	profile sequence.Profile
	mu      sync.Mutex
	closed  bool
}

// OpenPCA9685 opens the hat at addr on the named I2C bus and sets it to the
// standard 50Hz servo frequency.
func OpenPCA9685(busName string, addr uint16, profile sequence.Profile) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %s: %w", busName, err)
	}
	dev, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("open pca9685 at %#x: %w", addr, err)
	}
	if err := dev.SetPwmFreq(50 * physic.Hertz); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("set pwm frequency: %w", err)
	}
	return &PCA9685{bus: bus, dev: dev, profile: profile.WithDefaults()}, nil
}

func (p *PCA9685) SetOutput(out pin.Output, value float64) error {
	if out.Pin < 0 || out.Pin >= pcaChannels {
		return fmt.Errorf("board: pca9685 channel %d out of range", out.Pin)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return p.dev.SetPwm(out.Pin, 0, dutyTicks(out.Kind, value, p.profile))
}

// dutyTicks converts an output value into the 12-bit off count of a channel.
func dutyTicks(kind pin.Kind, value float64, profile sequence.Profile) gpio.Duty {
	v := kind.Clamp(value)
	switch {
	case kind == pin.Servo:
		us := float64(profile.MinPulse) + float64(profile.MaxPulse-profile.MinPulse)*v/180
		return gpio.Duty(us * pcaTicks / pcaPeriodUS)
	case kind.PWM():
		return gpio.Duty(v * (pcaTicks - 1) / 255)
	case v >= 0.5:
		return pcaTicks - 1
	default:
		return 0
	}
}

func (p *PCA9685) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.dev.SetAllPwm(0, 0); err != nil {
		_ = p.bus.Close()
		return err
	}
	return p.bus.Close()
}

package pin

import (
	"fmt"
	"strings"
)

// Kind is how a microcontroller pin is driven.
type Kind int

const (
	Servo Kind = iota
	Digital
	Analog
	DigitalPWM
	AnalogPWM
)

func (k Kind) String() string {
	switch k {
	case Servo:
		return "servo"
	case Digital:
		return "digital"
	case Analog:
		return "analog"
	case DigitalPWM:
		return "digital_pwm"
	case AnalogPWM:
		return "analog_pwm"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "servo":
		return Servo, nil
	case "digital":
		return Digital, nil
	case "analog":
		return Analog, nil
	case "digital_pwm":
		return DigitalPWM, nil
	case "analog_pwm":
		return AnalogPWM, nil
	}
	return 0, fmt.Errorf("unknown pin type %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Range returns the valid output values for the kind.
func (k Kind) Range() (int, int) {
	switch k {
	case Servo:
		return 0, 180
	case DigitalPWM, AnalogPWM:
		return 0, 255
	default:
		return 0, 1
	}
}

func (k Kind) PWM() bool { return k == DigitalPWM || k == AnalogPWM }
func (k Kind) IsAnalog() bool { return k == Analog || k == AnalogPWM }

// Clamp limits v to the kind's range.
func (k Kind) Clamp(v float64) float64 {
	lo, hi := k.Range()
	if v < float64(lo) {
		return float64(lo)
	}
	if v > float64(hi) {
		return float64(hi)
	}
	return v
}

// Output addresses a single driven pin.
type Output struct {
	Pin  int
	Kind Kind
}

func (o Output) String() string {
	if o.Kind.IsAnalog() {
		return fmt.Sprintf("A%d(%s)", o.Pin, o.Kind)
	}
	return fmt.Sprintf("%d(%s)", o.Pin, o.Kind)
}

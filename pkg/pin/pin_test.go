package pin

import "testing"

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Servo, Digital, Analog, DigitalPWM, AnalogPWM} {
		got, err := ParseKind(" " + k.String() + " ")
		if err != nil || got != k {
			t.Errorf("ParseKind(%q): expected %v, got %v (%v)", k.String(), k, got, err)
		}
	}
	if _, err := ParseKind("stepper"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		kind  Kind
		value float64
		want  float64
	}{
		{Servo, 181, 180},
		{Servo, -1, 0},
		{AnalogPWM, 256, 255},
		{Digital, 2, 1},
		{DigitalPWM, 12.5, 12.5},
	}
	for _, tt := range tests {
		if got := tt.kind.Clamp(tt.value); got != tt.want {
			t.Errorf("%s.Clamp(%v): expected %v, got %v", tt.kind, tt.value, tt.want, got)
		}
	}
}

func TestOutputString(t *testing.T) {
	if got := (Output{Pin: 2, Kind: AnalogPWM}).String(); got != "A2(analog_pwm)" {
		t.Errorf("unexpected output string %q", got)
	}
	var k Kind
	if err := k.UnmarshalText([]byte("digital")); err != nil || k != Digital {
		t.Errorf("expected digital, got %v (%v)", k, err)
	}
}

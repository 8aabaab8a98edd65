package sequence

const (
	DefaultFullSweep = 270
	DefaultMinPulse  = 544
	DefaultMaxPulse  = 2400
)

// Profile describes the physical range of a servo: FullSweep degrees of
// travel between MinPulse and MaxPulse microseconds.
type Profile struct {
	FullSweep int `json:"full_sweep" yaml:"full_sweep" toml:"full_sweep"`
	MinPulse  int `json:"min_pulse" yaml:"min_pulse" toml:"min_pulse"`
	MaxPulse  int `json:"max_pulse" yaml:"max_pulse" toml:"max_pulse"`
}

func DefaultProfile() Profile {
	return Profile{FullSweep: DefaultFullSweep, MinPulse: DefaultMinPulse, MaxPulse: DefaultMaxPulse}
}

// WithDefaults fills zero fields from DefaultProfile.
func (p Profile) WithDefaults() Profile {
	d := DefaultProfile()
	if p.FullSweep <= 0 {
		p.FullSweep = d.FullSweep
	}
	if p.MinPulse <= 0 {
		p.MinPulse = d.MinPulse
	}
	if p.MaxPulse <= 0 {
		p.MaxPulse = d.MaxPulse
	}
	return p
}

// Pulse maps a position in degrees to a pulse width in microseconds using
// the same integer arithmetic as the Arduino map() call in generated sketches.
func (p Profile) Pulse(degrees int) int {
	p = p.WithDefaults()
	return (degrees*(p.MaxPulse-p.MinPulse))/p.FullSweep + p.MinPulse
}

// Angle maps a position in degrees onto the 0..180 range accepted by a
// standard servo write, clamped.
func (p Profile) Angle(degrees float64) float64 {
	p = p.WithDefaults()
	a := degrees * 180 / float64(p.FullSweep)
	if a < 0 {
		return 0
	}
	if a > 180 {
		return 180
	}
	return a
}

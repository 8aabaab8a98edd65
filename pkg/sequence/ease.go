package sequence

import (
	"fmt"
	"time"
)

// EvaluateCubicEase returns the position of a sweep from start to end at time t.
//
// The sweep's velocity rises from rest along a cubic curve during easeIn,
// holds constant, then falls back to rest along a cubic curve during the
// final easeOut. Position is the integral of that velocity normalised to the
// total displacement, so both position and velocity are continuous where the
// segments meet.
func EvaluateCubicEase(t, duration, easeIn, easeOut time.Duration, start, end float64) (float64, error) {
	if err := checkEaseWindow(duration, easeIn, easeOut); err != nil {
		return 0, err
	}
	if t >= duration {
		return end, nil
	}
	if t <= 0 {
		return start, nil
	}
	a, b, d := ms(easeIn), ms(easeOut), ms(duration)
	return start + (end-start)*travelled(ms(t), d, a, b)/(d-(a+b)/4), nil
}

func checkEaseWindow(duration, easeIn, easeOut time.Duration) error {
	if duration < 0 || easeIn < 0 || easeOut < 0 || easeIn+easeOut > duration {
		return fmt.Errorf("%w: ease in %v + ease out %v over %v", ErrInvalidEaseWindow, easeIn, easeOut, duration)
	}
	return nil
}

// travelled integrates the unit velocity profile over [0, t].
// Inside the ease-in window the velocity is 1-(1-t/a)^3, inside the
// ease-out window 1-(u/b)^3 with u measured from the window start.
func travelled(t, d, a, b float64) float64 {
	switch {
	case t < a:
		r := 1 - t/a
		return t - a/4*(1-r*r*r*r)
	case t < d-b:
		return 3*a/4 + (t - a)
	default:
		u := t - (d - b)
		return 3*a/4 + (d - b - a) + u - u*u*u*u/(4*b*b*b)
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

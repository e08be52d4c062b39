package binding

import (
	"math"

	"github.com/sarchlab/akita/v3/sim"
)

// Clock converts between microseconds and the integer steps of the
// utilization table.
type Clock struct {
	Freq sim.Freq
}

// NewClock returns a clock ticking at mhz.
func NewClock(mhz float64) Clock {
	if mhz <= 0 {
		mhz = 1
	}
	return Clock{Freq: sim.Freq(mhz) * sim.MHz}
}

// StepUS is the length of one step in microseconds.
func (c Clock) StepUS() float64 {
	return float64(c.Freq.Period()) * 1e6
}

// Steps rounds a duration in µs up to whole steps, never below one.
func (c Clock) Steps(us float64) int {
	steps := int(math.Ceil(us/c.StepUS() - 1e-9))
	if steps < 1 {
		return 1
	}
	return steps
}

// Time returns the start of step in simulated seconds.
func (c Clock) Time(step int) sim.VTimeInSec {
	return sim.VTimeInSec(float64(step) * float64(c.Freq.Period()))
}

// US returns the start of step in microseconds.
func (c Clock) US(step int) float64 {
	return float64(step) * c.StepUS()
}

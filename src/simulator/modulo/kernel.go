package modulo

import "golang.org/x/exp/slices"

// Kernel is the steady-state window of a periodic schedule.
type Kernel struct {
	StepStart int
	StepEnd   int
	Stages    int
	// Steps[k] lists the actors starting at StepStart+k, sorted by id.
	Steps [][]int
}

// actorsAt returns the sorted actors starting at step when iterations
// 0..iterations-1 are issued every period steps.
func actorsAt(starts []int, period, iterations, step int) []int {
	actors := make([]int, 0)
	for v, s := range starts {
		d := step - s
		if d < 0 || d%period != 0 {
			continue
		}
		if d/period < iterations {
			actors = append(actors, v)
		}
	}
	slices.Sort(actors)
	return actors
}

func sameActors(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DetectKernel replicates the single-iteration schedule at period-aligned
// offsets and returns the first window [s, s+period) at or after the fill
// whose per-step actor multisets equal those of the following window. Windows
// before (stages-1)*period belong to the prologue even when they happen to
// repeat, as they do when a stage holds no actor.
func DetectKernel(starts []int, period int) Kernel {
	if period <= 0 || len(starts) == 0 {
		return Kernel{}
	}
	stages := 1
	for _, s := range starts {
		if st := s/period + 1; st > stages {
			stages = st
		}
	}
	iterations := stages + 2

	window := func(s int) [][]int {
		steps := make([][]int, period)
		for k := 0; k < period; k++ {
			steps[k] = actorsAt(starts, period, iterations, s+k)
		}
		return steps
	}

	for w := stages - 1; w+2 <= iterations; w++ {
		s := w * period
		cur, next := window(s), window(s+period)
		equal := true
		for k := range cur {
			if !sameActors(cur[k], next[k]) {
				equal = false
				break
			}
		}
		if equal {
			return Kernel{StepStart: s, StepEnd: s + period, Stages: stages, Steps: cur}
		}
	}
	// Unreachable: window stages-1 already holds every actor once.
	s := (stages - 1) * period
	return Kernel{StepStart: s, StepEnd: s + period, Stages: stages, Steps: window(s)}
}

// ActorsAt returns the actors starting at an absolute step of a schedule
// issuing iterations iterations.
func (r *Result) ActorsAt(step, iterations int) []int {
	return actorsAt(r.Start, r.Period, iterations, step)
}

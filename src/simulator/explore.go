package simulator

import (
	"sync"

	"dsesim/src/misc"
	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
)

// Outcome is the result of one mode in Explore.
type Outcome struct {
	Mode   misc.SchedulerMode
	Report *Report
	Err    error
}

// Explore simulates the same binding under every mode, at most threads at a
// time. Each run works on its own copies, so outcomes are independent of
// the order the goroutines finish in.
func Explore(
	a *arch.Architecture,
	g *app.Graph,
	b *binding.Binding,
	config Config,
	modes []misc.SchedulerMode,
	threads int,
) []Outcome {
	if threads <= 0 {
		threads = 1
	}
	outcomes := make([]Outcome, len(modes))
	slots := make(chan struct{}, threads)

	var wg sync.WaitGroup
	for i, mode := range modes {
		wg.Add(1)
		go func(i int, mode misc.SchedulerMode) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			c := config
			c.Mode = mode
			report, err := Run(a, g, b, c)
			outcomes[i] = Outcome{Mode: mode, Report: report, Err: err}
		}(i, mode)
	}
	wg.Wait()
	return outcomes
}

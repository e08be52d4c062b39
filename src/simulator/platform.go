package simulator

import (
	"fmt"

	"dsesim/src/misc"
	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/modulo"
	"dsesim/src/simulator/replay"
)

// Plan is what a planner hands to replay: fifo capacities and release times.
// Schedule is nil for planners without a periodic schedule.
type Plan struct {
	Schedule   *modulo.Result
	Capacities []int
	Release    []float64
	PeriodUS   float64
}

// Planner prepares one attempt on a reset architecture.
type Planner interface {
	Name() string
	Plan(a *arch.Architecture, g *app.Graph, b *binding.Binding, config Config) (*Plan, error)
}

func newPlannerForMode(mode misc.SchedulerMode) Planner {
	switch mode {
	case misc.SchedulerModeBaseline:
		return &moduloPlanner{mode: mode}
	case misc.SchedulerModeComm:
		return &moduloPlanner{mode: mode}
	case misc.SchedulerModeFCFS:
		return new(fcfsPlanner)
	default:
		panic(fmt.Sprintf("unsupported scheduler mode: %s", mode))
	}
}

type moduloPlanner struct {
	mode misc.SchedulerMode
}

func (this *moduloPlanner) Name() string {
	return string(this.mode)
}

func (this *moduloPlanner) scheduler(
	a *arch.Architecture,
	g *app.Graph,
	b *binding.Binding,
	opts modulo.Options,
) (modulo.Scheduler, error) {
	if this.mode == misc.SchedulerModeComm {
		return modulo.NewCommAware(g, a, b, opts)
	}
	return modulo.NewBaseline(g, a, b, opts)
}

func (this *moduloPlanner) Plan(a *arch.Architecture, g *app.Graph, b *binding.Binding, config Config) (*Plan, error) {
	s, err := this.scheduler(a, g, b, config.moduloOptions())
	if err != nil {
		return nil, err
	}
	res, err := s.Schedule()
	if err != nil {
		return nil, err
	}

	clock := config.clock()
	return &Plan{
		Schedule:   res,
		Capacities: replay.SizeFifos(g, res, 0),
		Release:    replay.ReleaseTimes(res, clock),
		PeriodUS:   clock.US(res.Period),
	}, nil
}

// fcfsPlanner keeps the configured capacities and releases nothing, so
// replay fires actors first come first served.
type fcfsPlanner struct{}

func (this *fcfsPlanner) Name() string {
	return string(misc.SchedulerModeFCFS)
}

func (this *fcfsPlanner) Plan(a *arch.Architecture, g *app.Graph, b *binding.Binding, config Config) (*Plan, error) {
	if err := b.Validate(a, g); err != nil {
		return nil, err
	}
	caps := make([]int, len(g.Fifos))
	for _, f := range g.Fifos {
		caps[f.ID] = f.Capacity
	}
	return &Plan{Capacities: caps}, nil
}

package simulator

import (
	"log/slog"

	"github.com/pkg/errors"

	"dsesim/src/misc"
	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
	"dsesim/src/simulator/replay"
)

// Simulator maps one application onto one architecture. Every Cycle is one
// attempt: reset, plan, size, check footprints and replay. An attempt that
// overflows a memory remaps the offending fifo and the next Cycle retries.
type Simulator struct {
	config  Config
	planner Planner
	logger  *slog.Logger

	arch    *arch.Architecture
	graph   *app.Graph
	binding *binding.Binding

	attempts int
	remaps   []Remap
	report   *Report
	err      error
	finished bool
}

// Init takes private copies of the inputs so the caller's objects are never
// mutated.
func (this *Simulator) Init(a *arch.Architecture, g *app.Graph, b *binding.Binding, config Config) {
	if config.Mode == "" {
		config.Mode = misc.DefaultSchedulerMode()
	}
	if config.StepMHz <= 0 {
		config.StepMHz = 1
	}
	if config.MaxRemaps <= 0 {
		config.MaxRemaps = DefaultMaxRemaps
	}
	this.config = config
	this.planner = newPlannerForMode(config.Mode)
	this.logger = config.logger().With("scheduler", this.planner.Name(), "application", g.Name)

	this.arch = a.Clone()
	this.graph = g.Clone()
	this.binding = b.Clone()

	this.attempts = 0
	this.remaps = nil
	this.report = nil
	this.err = nil
	this.finished = false
}

func (this *Simulator) Fini() {
	this.planner = nil
}

func (this *Simulator) IsFinished() bool {
	return this.finished
}

func (this *Simulator) Cycle() {
	if this.finished {
		return
	}
	this.attempts++

	this.arch.Reset()
	this.binding.Quantize(this.config.clock())

	plan, err := this.planner.Plan(this.arch, this.graph, this.binding, this.config)
	if err != nil {
		this.fail(err)
		return
	}
	replay.Apply(this.graph, plan.Capacities)

	if err := binding.CheckFootprints(this.arch, this.graph, this.binding); err != nil {
		this.remapOrFail(err)
		return
	}

	iterations := this.config.Iterations
	if iterations <= 0 {
		iterations = 1
		if plan.Schedule != nil {
			iterations = replay.SizingIterations(plan.Schedule)
		}
	}
	engine := replay.NewEngine(this.arch, this.graph, this.binding, replay.Options{
		Iterations: iterations,
		Release:    plan.Release,
		PeriodUS:   plan.PeriodUS,
		Logger:     this.logger,
	})
	replayed, err := engine.Run()
	if err != nil {
		if fault.Is(err, fault.CapacityViolation) {
			this.remapOrFail(err)
			return
		}
		this.fail(err)
		return
	}

	this.report = newReport(this.arch, this.graph, this.binding.FifoMemory, this.planner.Name(),
		plan.Schedule, plan.PeriodUS, iterations, this.remaps, replayed)
	this.finished = true
	this.logger.Info("simulation finished",
		"attempts", this.attempts,
		"remaps", len(this.remaps),
		"period", this.report.Period,
		"makespan", this.report.Makespan)
}

func (this *Simulator) fail(err error) {
	this.err = err
	this.finished = true
	this.logger.Warn("simulation failed", "attempts", this.attempts, "error", err)
}

// remapOrFail moves the fifo named by a capacity violation one memory tier up.
func (this *Simulator) remapOrFail(err error) {
	e, ok := fault.As(err)
	if !ok || e.Fifo == fault.None {
		this.fail(err)
		return
	}
	if len(this.remaps) >= this.config.MaxRemaps {
		this.fail(errors.Wrapf(err, "giving up after %d remaps", len(this.remaps)))
		return
	}

	from := this.binding.Memory(e.Fifo)
	to, rerr := binding.Remap(this.arch, this.binding, e.Fifo)
	if rerr != nil {
		this.fail(errors.Wrapf(rerr, "remap after %v", err))
		return
	}

	remap := Remap{
		Fifo: this.graph.Fifos[e.Fifo].Name,
		From: this.arch.Memories[from].Name,
		To:   this.arch.Memories[to].Name,
	}
	this.remaps = append(this.remaps, remap)
	this.logger.Info("fifo remapped", "fifo", remap.Fifo, "from", remap.From, "to", remap.To)
}

func (this *Simulator) Err() error {
	return this.err
}

func (this *Simulator) Report() *Report {
	return this.report
}

// Binding returns the binding as remapped so far.
func (this *Simulator) Binding() *binding.Binding {
	return this.binding
}

// Dump writes the report into dirpath.
func (this *Simulator) Dump(dirpath string) error {
	if this.report == nil {
		return errors.New("no report to dump")
	}
	return this.report.Dump(dirpath)
}

// Run drives a Simulator to completion.
func Run(a *arch.Architecture, g *app.Graph, b *binding.Binding, config Config) (*Report, error) {
	simulator_ := new(Simulator)
	simulator_.Init(a, g, b, config)
	defer simulator_.Fini()

	for !simulator_.IsFinished() {
		simulator_.Cycle()
	}
	return simulator_.Report(), simulator_.Err()
}

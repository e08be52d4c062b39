package modulo

import (
	"log/slog"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/utable"
)

// Scheduler computes a periodic schedule for one binding.
type Scheduler interface {
	Name() string
	MII() (Bounds, error)
	Schedule() (*Result, error)
}

// Options tune a scheduler. Zero values select the defaults.
type Options struct {
	// MaxPeriod caps period escalation. Zero means the sum of all spans,
	// which always fits a purely sequential schedule.
	MaxPeriod       int
	RecurrenceCheck bool
	Search          SearchStrategy
	Clock           binding.Clock
	Logger          *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) clock() binding.Clock {
	if o.Clock.Freq <= 0 {
		return binding.NewClock(1)
	}
	return o.Clock
}

// Bounds are the lower bounds on the period.
type Bounds struct {
	ResII int
	RecII int
	MII   int
}

// TaskPlacement is a communication task placed in the table.
type TaskPlacement struct {
	Task  Task
	Start int
	End   int
	Lanes []utable.Lane
}

type taskKey struct {
	kind  app.ActorKind
	actor int
	fifo  int
}

// Result is a periodic schedule. Start holds the absolute start step of each
// actor in the single-iteration schedule; the actor fires at Start + i·Period
// in iteration i.
type Result struct {
	Scheduler string
	Period    int
	Bounds    Bounds
	Start     []int
	Length    []int
	Lane      []utable.Lane
	Tasks     []TaskPlacement
	Kernel    Kernel
	Attempts  int

	tasks map[taskKey]int
}

func newResult(name string, period int, bounds Bounds, actors int) *Result {
	return &Result{
		Scheduler: name,
		Period:    period,
		Bounds:    bounds,
		Start:     make([]int, actors),
		Length:    make([]int, actors),
		Lane:      make([]utable.Lane, actors),
		tasks:     make(map[taskKey]int),
	}
}

func (r *Result) addTask(tp TaskPlacement) {
	r.tasks[taskKey{kind: tp.Task.Kind, actor: tp.Task.Actor, fifo: tp.Task.Fifo}] = len(r.Tasks)
	r.Tasks = append(r.Tasks, tp)
}

// End is the step after the last step of actor.
func (r *Result) End(actor int) int {
	return r.Start[actor] + r.Length[actor]
}

// Stage is the pipeline stage of actor.
func (r *Result) Stage(actor int) int {
	return r.Start[actor] / r.Period
}

// Offset is the phase of actor inside the period.
func (r *Result) Offset(actor int) int {
	return r.Start[actor] % r.Period
}

// Stages is the number of pipeline stages.
func (r *Result) Stages() int {
	stages := 1
	for v := range r.Start {
		if s := r.Stage(v) + 1; s > stages {
			stages = s
		}
	}
	return stages
}

// WriteStart is the step at which actor starts writing fifo. Without
// communication tasks the write is claimed when the actor starts.
func (r *Result) WriteStart(actor, fifo int) int {
	if idx, ok := r.tasks[taskKey{kind: app.ActorWriteTask, actor: actor, fifo: fifo}]; ok {
		return r.Tasks[idx].Start
	}
	return r.Start[actor]
}

// ReadEnd is the step at which actor has finished reading fifo. Without
// communication tasks tokens are released when the actor ends.
func (r *Result) ReadEnd(actor, fifo int) int {
	if idx, ok := r.tasks[taskKey{kind: app.ActorReadTask, actor: actor, fifo: fifo}]; ok {
		return r.Tasks[idx].End
	}
	return r.End(actor)
}

// Package replay executes a schedule against the architecture: actions on
// processor timelines, transfers on interconnect channels and token bytes in
// memory occupancy.
package replay

import (
	"log/slog"
	"math"

	"github.com/pkg/errors"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
	"dsesim/src/simulator/modulo"
	"dsesim/src/simulator/route"
)

// Options tune a replay. Release holds, per actor, the earliest start of its
// first iteration in µs; iteration i is released PeriodUS·i later. A nil
// Release fires every actor as soon as its tokens and processor allow.
type Options struct {
	Iterations int
	Release    []float64
	PeriodUS   float64
	Logger     *slog.Logger
}

// Firing is one executed iteration of an actor.
type Firing struct {
	Actor     int
	Iteration int
	Processor int
	Start     float64
	Due       float64
}

// Trace is the outcome of a replay.
type Trace struct {
	Actions        []arch.Action
	Transfers      []arch.Transfer
	Firings        []Firing
	MaxTokens      []int
	Makespan       float64
	AchievedPeriod float64
}

// FiringsOf returns the firings of actor in iteration order.
func (t *Trace) FiringsOf(actor int) []Firing {
	var out []Firing
	for _, f := range t.Firings {
		if f.Actor == actor {
			out = append(out, f)
		}
	}
	return out
}

// Engine replays iterations of an application self-timed: the actor with the
// earliest feasible start fires next, ties broken by priority then id.
type Engine struct {
	arch    *arch.Architecture
	graph   *app.Graph
	binding *binding.Binding
	opts    Options
	logger  *slog.Logger

	ledgers  []*ledger
	fired    []int
	procFree []float64
	trace    *Trace
}

func NewEngine(a *arch.Architecture, g *app.Graph, b *binding.Binding, opts Options) *Engine {
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{arch: a, graph: g, binding: b, opts: opts, logger: logger}
}

// ReleaseTimes converts a periodic schedule into per-actor release times: the
// start of the actor's first read task, or of the actor itself.
func ReleaseTimes(res *modulo.Result, clock binding.Clock) []float64 {
	first := append([]int(nil), res.Start...)
	for _, tp := range res.Tasks {
		if tp.Task.Kind == app.ActorReadTask && tp.Start < first[tp.Task.Actor] {
			first[tp.Task.Actor] = tp.Start
		}
	}
	release := make([]float64, len(first))
	for v, step := range first {
		release[v] = clock.US(step)
	}
	return release
}

func (e *Engine) reset() {
	e.ledgers = make([]*ledger, len(e.graph.Fifos))
	for _, f := range e.graph.Fifos {
		e.ledgers[f.ID] = newLedger(f)
	}
	e.fired = make([]int, len(e.graph.Actors))
	e.procFree = make([]float64, len(e.arch.Processors))
	e.trace = &Trace{MaxTokens: make([]int, len(e.graph.Fifos))}
}

// Run executes Options.Iterations iterations of every actor. The
// architecture must be reset by the caller; Run only adds to it.
func (e *Engine) Run() (*Trace, error) {
	e.reset()
	if err := e.writeInitialTokens(); err != nil {
		return nil, err
	}

	remaining := len(e.graph.Actors) * e.opts.Iterations
	for remaining > 0 {
		v, est, ok := e.next()
		if !ok {
			return nil, fault.New(fault.InvalidInput,
				"application %s deadlocks after %d firings", e.graph.Name, len(e.trace.Firings))
		}
		if err := e.fire(v, est); err != nil {
			return nil, err
		}
		remaining--
	}

	e.trace.AchievedPeriod = e.achievedPeriod()
	e.logger.Debug("replay finished",
		"application", e.graph.Name,
		"iterations", e.opts.Iterations,
		"makespan", e.trace.Makespan,
		"achievedPeriod", e.trace.AchievedPeriod)
	return e.trace, nil
}

func (e *Engine) writeInitialTokens() error {
	for _, f := range e.graph.Fifos {
		if f.InitialTokens == 0 {
			continue
		}
		m := e.arch.Memory(e.binding.Memory(f.ID))
		if m == nil {
			return fault.New(fault.InvalidInput, "fifo %s is not bound to a memory", f.Name).WithFifo(f.ID)
		}
		if err := m.Write(int64(f.InitialTokens)*f.TokenSize, 0); err != nil {
			return withFifo(err, f.ID)
		}
		e.observe(f.ID)
	}
	return nil
}

// earliest returns the earliest feasible start of the next firing of v, or
// false while a token or free space is still missing.
func (e *Engine) earliest(v int) (float64, bool) {
	if e.fired[v] >= e.opts.Iterations {
		return 0, false
	}
	actor := e.graph.Actors[v]
	est := e.procFree[e.binding.Processor(v)]
	if e.opts.Release != nil {
		est = math.Max(est, e.opts.Release[v]+float64(e.fired[v])*e.opts.PeriodUS)
	}
	for _, fid := range actor.Inputs {
		f := e.graph.Fifos[fid]
		t, ok := e.ledgers[fid].tokenTime(readerIndex(f, v), f.ConsRate)
		if !ok {
			return 0, false
		}
		est = math.Max(est, t)
	}
	for _, fid := range actor.Outputs {
		f := e.graph.Fifos[fid]
		t, ok := e.ledgers[fid].spaceTime(f.ProdRate)
		if !ok {
			return 0, false
		}
		est = math.Max(est, t)
	}
	return est, true
}

func (e *Engine) next() (int, float64, bool) {
	best, bestEST := -1, 0.0
	for _, actor := range e.graph.Actors {
		est, ok := e.earliest(actor.ID)
		if !ok {
			continue
		}
		if best < 0 || est < bestEST ||
			(est == bestEST && actor.Priority > e.graph.Actors[best].Priority) {
			best, bestEST = actor.ID, est
		}
	}
	return best, bestEST, best >= 0
}

func (e *Engine) fire(v int, est float64) error {
	actor := e.graph.Actors[v]
	iteration := e.fired[v]
	proc := e.binding.Processor(v)

	at := est
	for _, fid := range actor.Inputs {
		f := e.graph.Fifos[fid]
		tr := arch.NewTransfer(arch.DirRead, fid, v, f.ReadBytes())
		tr.Iteration = iteration
		c, err := route.Deliver(e.arch, e.binding, tr, at)
		if err != nil {
			return errors.Wrapf(err, "read of fifo %s by actor %s", f.Name, actor.Name)
		}
		at = c.Transfer.Due
		e.trace.Transfers = append(e.trace.Transfers, c.Transfer)
		if err := e.release(f, readerIndex(f, v), c.Transfer.Due); err != nil {
			return err
		}
	}

	action := arch.Action{
		Actor:     v,
		Processor: proc,
		Runtime:   e.binding.Runtime[v],
		Start:     at,
		Due:       at + e.binding.Runtime[v],
		Step:      e.binding.Steps(v),
		Iteration: iteration,
	}
	if err := e.arch.CommitAction(action); err != nil {
		return err
	}
	e.trace.Actions = append(e.trace.Actions, action)
	at = action.Due

	for _, fid := range actor.Outputs {
		f := e.graph.Fifos[fid]
		tr := arch.NewTransfer(arch.DirWrite, fid, v, f.WriteBytes())
		tr.Iteration = iteration
		c, err := route.Deliver(e.arch, e.binding, tr, at)
		if err != nil {
			return errors.Wrapf(err, "write of fifo %s by actor %s", f.Name, actor.Name)
		}
		if err := e.arch.Memory(e.binding.Memory(fid)).Write(f.WriteBytes(), c.Transfer.Start); err != nil {
			return withFifo(err, fid)
		}
		at = c.Transfer.Due
		e.trace.Transfers = append(e.trace.Transfers, c.Transfer)
		e.ledgers[fid].produce(f.ProdRate, c.Transfer.Due)
		e.observe(fid)
	}

	e.procFree[proc] = at
	e.fired[v]++
	e.trace.Firings = append(e.trace.Firings, Firing{
		Actor:     v,
		Iteration: iteration,
		Processor: proc,
		Start:     action.Start,
		Due:       action.Due,
	})
	if at > e.trace.Makespan {
		e.trace.Makespan = at
	}
	return nil
}

// release consumes tokens for reader r and frees the bytes of every token all
// readers are done with, at the time the last of them finished reading it.
func (e *Engine) release(f *app.Fifo, r int, at float64) error {
	l := e.ledgers[f.ID]
	from, to := l.consume(r, f.ConsRate, at)
	if from == to {
		return nil
	}
	m := e.arch.Memory(e.binding.Memory(f.ID))
	for k := from; k < to; {
		t := l.releaseAt[k]
		n := 0
		for k < to && l.releaseAt[k] == t {
			n++
			k++
		}
		if err := m.Read(int64(n)*f.TokenSize, t); err != nil {
			return withFifo(err, f.ID)
		}
	}
	return nil
}

func (e *Engine) observe(fid int) {
	if s := e.ledgers[fid].stored(); s > e.trace.MaxTokens[fid] {
		e.trace.MaxTokens[fid] = s
	}
}

// achievedPeriod is the distance between the last two completions of the
// highest-id sink.
func (e *Engine) achievedPeriod() float64 {
	sinks := e.graph.Sinks()
	if len(sinks) == 0 {
		return 0
	}
	firings := e.trace.FiringsOf(sinks[len(sinks)-1])
	if len(firings) < 2 {
		return 0
	}
	return firings[len(firings)-1].Due - firings[len(firings)-2].Due
}

func readerIndex(f *app.Fifo, actor int) int {
	for i, d := range f.Dsts {
		if d == actor {
			return i
		}
	}
	return 0
}

func withFifo(err error, fifo int) error {
	if e, ok := fault.As(err); ok {
		e.WithFifo(fifo)
	}
	return err
}

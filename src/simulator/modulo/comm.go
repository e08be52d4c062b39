package modulo

import (
	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
	"dsesim/src/simulator/utable"
)

// CommAware schedules every fifo access as its own task on the resources the
// router picks for it. Reads run back to back right before their actor and
// writes right after it, all on the actor's processor.
type CommAware struct {
	graph   *app.Graph
	arch    *arch.Architecture
	binding *binding.Binding
	opts    Options

	table    *utable.Table
	corePool []int
	reads    [][]Task
	writes   [][]Task
}

func NewCommAware(g *app.Graph, a *arch.Architecture, b *binding.Binding, opts Options) (*CommAware, error) {
	if err := b.Validate(a, g); err != nil {
		return nil, err
	}
	s := &CommAware{
		graph:    g,
		arch:     a,
		binding:  b,
		opts:     opts,
		table:    utable.New(0),
		corePool: make([]int, len(g.Actors)),
		reads:    make([][]Task, len(g.Actors)),
		writes:   make([][]Task, len(g.Actors)),
	}
	tb := &taskBuilder{arch: a, binding: b, clock: opts.clock(), table: s.table}
	for _, actor := range g.Actors {
		s.corePool[actor.ID] = tb.corePool(b.Processor(actor.ID))
		for _, fid := range actor.Inputs {
			t, err := tb.build(app.ActorReadTask, actor.ID, g.Fifo(fid))
			if err != nil {
				return nil, err
			}
			s.reads[actor.ID] = append(s.reads[actor.ID], t)
		}
		for _, fid := range actor.Outputs {
			t, err := tb.build(app.ActorWriteTask, actor.ID, g.Fifo(fid))
			if err != nil {
				return nil, err
			}
			s.writes[actor.ID] = append(s.writes[actor.ID], t)
		}
	}
	return s, nil
}

func (s *CommAware) Name() string {
	return "comm"
}

// Tasks returns the read and write tasks of actor.
func (s *CommAware) Tasks(actor int) (reads, writes []Task) {
	return s.reads[actor], s.writes[actor]
}

func (s *CommAware) readLength(v int) int {
	n := 0
	for _, t := range s.reads[v] {
		n += t.Length
	}
	return n
}

func (s *CommAware) span(v int) int {
	n := s.readLength(v) + s.binding.Steps(v)
	for _, t := range s.writes[v] {
		n += t.Length
	}
	return n
}

// MII accounts for core, crossbar, NoC and memory-port demand.
func (s *CommAware) MII() (Bounds, error) {
	demand := make(map[int]int)
	for _, actor := range s.graph.Actors {
		demand[s.corePool[actor.ID]] += s.binding.Steps(actor.ID)
		for _, group := range [][]Task{s.reads[actor.ID], s.writes[actor.ID]} {
			for _, t := range group {
				for _, pid := range t.Pools {
					demand[pid] += t.Length
				}
			}
		}
	}
	bounds := Bounds{
		ResII: resourceBound(demand, s.table.Lanes),
		RecII: recurrenceBound(s.graph, s.span),
	}
	bounds.MII = maxInt(bounds.ResII, bounds.RecII, 1)
	return bounds, nil
}

func (s *CommAware) maxPeriod() int {
	if s.opts.MaxPeriod > 0 {
		return s.opts.MaxPeriod
	}
	total := 0
	for _, actor := range s.graph.Actors {
		total += s.span(actor.ID)
	}
	return maxInt(2*total, 1)
}

func (s *CommAware) Schedule() (*Result, error) {
	bounds, err := s.MII()
	if err != nil {
		return nil, err
	}
	logger := s.opts.logger().With("scheduler", s.Name(), "application", s.graph.Name)
	logger.Debug("bounds computed", "resII", bounds.ResII, "recII", bounds.RecII, "mii", bounds.MII)

	res, err := searchPeriod(s.opts.Search, bounds.MII, s.maxPeriod(), func(p int) (*Result, error) {
		return s.attempt(p, bounds)
	}, logger)
	if err != nil {
		return nil, err
	}
	res.Kernel = DetectKernel(res.Start, res.Period)
	logger.Info("modulo schedule found", "period", res.Period, "mii", bounds.MII,
		"stages", res.Kernel.Stages, "tasks", len(res.Tasks), "attempts", res.Attempts)
	return res, nil
}

// layout lays out reads, the actor and writes back to back from offset o.
func (s *CommAware) layout(v, o int) []utable.Placement {
	placements := make([]utable.Placement, 0, len(s.reads[v])+len(s.writes[v])+1)
	at := o
	for _, t := range s.reads[v] {
		placements = append(placements, utable.Placement{Pools: t.Pools, Start: at, End: at + t.Length, Owner: v})
		at += t.Length
	}
	d := s.binding.Steps(v)
	placements = append(placements, utable.Placement{Pools: []int{s.corePool[v]}, Start: at, End: at + d, Owner: v})
	at += d
	for _, t := range s.writes[v] {
		placements = append(placements, utable.Placement{Pools: t.Pools, Start: at, End: at + t.Length, Owner: v})
		at += t.Length
	}
	return placements
}

func (s *CommAware) attempt(period int, bounds Bounds) (*Result, error) {
	s.table.Reset(period)
	res := newResult(s.Name(), period, bounds, len(s.graph.Actors))
	begin := make([]int, len(s.graph.Actors))
	finish := make([]int, len(s.graph.Actors))
	st := newListState(s.graph)

	for st.remaining > 0 {
		ready, err := st.ready()
		if err != nil {
			return nil, err
		}
		for _, v := range ready {
			o, lanes, ok := s.place(v, st.earliest[v], period)
			if !ok {
				return nil, fault.New(fault.UnschedulableWithinPeriod,
					"actor %s and its transfers do not fit within one period", s.graph.Actors[v].Name).
					WithActor(v).
					WithPeriod(period)
			}
			s.record(res, v, o, lanes)
			begin[v] = o
			finish[v] = o + s.span(v)
			st.done(v, finish[v])
		}
	}

	if s.opts.RecurrenceCheck {
		need := iiPrime(s.graph, func(v int) int { return begin[v] }, func(v int) int { return finish[v] })
		if need > period {
			return nil, fault.New(fault.InfeasibleRecurrence,
				"recurrences need period %d", need).WithPeriod(need)
		}
	}
	return res, nil
}

// place searches offsets in [earliest, earliest+period) for one where the
// whole group fits at once.
func (s *CommAware) place(v, earliest, period int) (int, [][]utable.Lane, bool) {
	for o := earliest; o < earliest+period; o++ {
		if lanes, ok := s.table.InsertAll(s.layout(v, o)); ok {
			return o, lanes, true
		}
	}
	return 0, nil, false
}

func (s *CommAware) record(res *Result, v, o int, lanes [][]utable.Lane) {
	placements := s.layout(v, o)
	idx := 0
	for _, t := range s.reads[v] {
		res.addTask(TaskPlacement{Task: t, Start: placements[idx].Start, End: placements[idx].End, Lanes: lanes[idx]})
		idx++
	}
	res.Start[v] = placements[idx].Start
	res.Length[v] = s.binding.Steps(v)
	res.Lane[v] = lanes[idx][0]
	idx++
	for _, t := range s.writes[v] {
		res.addTask(TaskPlacement{Task: t, Start: placements[idx].Start, End: placements[idx].End, Lanes: lanes[idx]})
		idx++
	}
}

package modulo

import (
	"golang.org/x/exp/slices"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
	"dsesim/src/simulator/utable"
)

// Baseline places actors on core-type pools: every processor of a core type
// is an interchangeable lane. Communication is not modeled.
type Baseline struct {
	graph   *app.Graph
	arch    *arch.Architecture
	binding *binding.Binding
	opts    Options

	table    *utable.Table
	corePool []int
}

func NewBaseline(g *app.Graph, a *arch.Architecture, b *binding.Binding, opts Options) (*Baseline, error) {
	if err := b.Validate(a, g); err != nil {
		return nil, err
	}
	s := &Baseline{
		graph:    g,
		arch:     a,
		binding:  b,
		opts:     opts,
		table:    utable.New(0),
		corePool: make([]int, len(g.Actors)),
	}
	types := a.CoreTypes()
	for i, t := range types {
		s.table.AddPool(utable.Key{Kind: utable.KindCore, Instance: i}, len(a.ProcessorsOfType(t)))
	}
	for _, actor := range g.Actors {
		coreType := a.Processor(b.Processor(actor.ID)).CoreType
		idx, _ := slices.BinarySearch(types, coreType)
		s.corePool[actor.ID], _ = s.table.Pool(utable.Key{Kind: utable.KindCore, Instance: idx})
	}
	return s, nil
}

func (s *Baseline) Name() string {
	return "baseline"
}

// MII computes ResII over core types and RecII over the graph cycles.
func (s *Baseline) MII() (Bounds, error) {
	demand := make(map[int]int)
	for _, actor := range s.graph.Actors {
		demand[s.corePool[actor.ID]] += s.binding.Steps(actor.ID)
	}
	bounds := Bounds{
		ResII: resourceBound(demand, s.table.Lanes),
		RecII: recurrenceBound(s.graph, s.binding.Steps),
	}
	bounds.MII = maxInt(bounds.ResII, bounds.RecII, 1)
	return bounds, nil
}

func (s *Baseline) maxPeriod() int {
	if s.opts.MaxPeriod > 0 {
		return s.opts.MaxPeriod
	}
	total := 0
	for _, actor := range s.graph.Actors {
		total += s.binding.Steps(actor.ID)
	}
	return maxInt(total, 1)
}

// Schedule runs list scheduling at MII and escalates the period with the
// configured search strategy until every actor fits.
func (s *Baseline) Schedule() (*Result, error) {
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
		"stages", res.Kernel.Stages, "attempts", res.Attempts)
	return res, nil
}

// readyOrder sorts ready actors by priority, highest first, then by id.
func readyOrder(g *app.Graph, ready []int) {
	slices.SortFunc(ready, func(a, b int) int {
		pa, pb := g.Actors[a].Priority, g.Actors[b].Priority
		if pa != pb {
			return pb - pa
		}
		return a - b
	})
}

// listState tracks PCOUNT and candidate starts of one list-scheduling pass.
type listState struct {
	graph     *app.Graph
	pcount    []int
	earliest  []int
	scheduled []bool
	remaining int
}

func newListState(g *app.Graph) *listState {
	st := &listState{
		graph:     g,
		pcount:    make([]int, len(g.Actors)),
		earliest:  make([]int, len(g.Actors)),
		scheduled: make([]bool, len(g.Actors)),
		remaining: len(g.Actors),
	}
	for _, actor := range g.Actors {
		st.pcount[actor.ID] = len(g.Predecessors(actor.ID))
	}
	return st
}

// ready returns the unscheduled actors without unscheduled predecessors. An
// empty result with actors remaining means a cycle without initial tokens.
func (st *listState) ready() ([]int, error) {
	ready := make([]int, 0)
	for v, n := range st.pcount {
		if n == 0 && !st.scheduled[v] {
			ready = append(ready, v)
		}
	}
	if len(ready) == 0 && st.remaining > 0 {
		for v, done := range st.scheduled {
			if !done {
				return nil, fault.New(fault.InfeasibleRecurrence,
					"actor %s sits on a cycle without initial tokens", st.graph.Actors[v].Name).
					WithActor(v)
			}
		}
	}
	readyOrder(st.graph, ready)
	return ready, nil
}

// done marks v scheduled and pushes finish as a lower bound to its
// successors.
func (st *listState) done(v, finish int) {
	st.scheduled[v] = true
	st.remaining--
	for _, succ := range st.graph.Successors(v) {
		if finish > st.earliest[succ] {
			st.earliest[succ] = finish
		}
		st.pcount[succ]--
	}
}

func (s *Baseline) attempt(period int, bounds Bounds) (*Result, error) {
	s.table.Reset(period)
	res := newResult(s.Name(), period, bounds, len(s.graph.Actors))
	st := newListState(s.graph)

	for st.remaining > 0 {
		ready, err := st.ready()
		if err != nil {
			return nil, err
		}
		for _, v := range ready {
			start, lane, ok := s.place(v, st.earliest[v], period)
			if !ok {
				return nil, fault.New(fault.UnschedulableWithinPeriod,
					"actor %s does not fit within one period", s.graph.Actors[v].Name).
					WithActor(v).
					WithPeriod(period)
			}
			d := s.binding.Steps(v)
			res.Start[v] = start
			res.Length[v] = d
			res.Lane[v] = lane
			st.done(v, start+d)
		}
	}

	if s.opts.RecurrenceCheck {
		need := iiPrime(s.graph, func(v int) int { return res.Start[v] }, res.End)
		if need > period {
			return nil, fault.New(fault.InfeasibleRecurrence,
				"recurrences need period %d", need).WithPeriod(need)
		}
	}
	return res, nil
}

// place tries l[v], then later candidate starts, for at most one period.
func (s *Baseline) place(v, earliest, period int) (int, utable.Lane, bool) {
	pools := []int{s.corePool[v]}
	d := s.binding.Steps(v)
	start := earliest
	for start < earliest+period {
		if lanes, ok := s.table.Insert(pools, start, start+d, v); ok {
			return start, lanes[0], true
		}
		gaps := s.table.CandidateStarts(pools, start+1, d)
		if len(gaps) == 0 {
			break
		}
		start = gaps[0].Start
	}
	return 0, utable.Lane{}, false
}

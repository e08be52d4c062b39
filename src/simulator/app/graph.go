package app

import (
	"golang.org/x/exp/slices"

	"dsesim/src/simulator/fault"
)

// ActorKind tags the variant of an actor.
type ActorKind int

const (
	ActorPlain ActorKind = iota
	ActorMulticast
	ActorReadTask
	ActorWriteTask
)

func (k ActorKind) String() string {
	switch k {
	case ActorPlain:
		return "plain"
	case ActorMulticast:
		return "multicast"
	case ActorReadTask:
		return "read"
	case ActorWriteTask:
		return "write"
	default:
		return "unknown"
	}
}

// FifoKind tags the variant of a fifo. A plain fifo has exactly one reader,
// a composite fifo fans one writer out to several readers.
type FifoKind int

const (
	FifoPlain FifoKind = iota
	FifoComposite
)

func (k FifoKind) String() string {
	if k == FifoComposite {
		return "composite"
	}
	return "plain"
}

// Actor is a node of the dataflow graph. Inputs and Outputs are fifo ids in
// port order.
type Actor struct {
	ID       int
	Name     string
	Kind     ActorKind
	Inputs   []int
	Outputs  []int
	Priority int
}

// Fifo is a rate-annotated edge. Capacity is in tokens and is filled in by
// fifo sizing.
type Fifo struct {
	ID            int
	Name          string
	Kind          FifoKind
	Src           int
	Dsts          []int
	ProdRate      int
	ConsRate      int
	TokenSize     int64
	Capacity      int
	InitialTokens int
}

// WriteBytes is the number of bytes one firing of the writer produces.
func (f *Fifo) WriteBytes() int64 {
	return int64(f.ProdRate) * f.TokenSize
}

// ReadBytes is the number of bytes one firing of a reader consumes.
func (f *Fifo) ReadBytes() int64 {
	return int64(f.ConsRate) * f.TokenSize
}

// IsRecurrence reports whether the fifo closes a loop through initial tokens.
// Such edges do not constrain list scheduling.
func (f *Fifo) IsRecurrence() bool {
	return f.InitialTokens > 0
}

// Footprint is the byte size of the fifo at its current capacity.
func (f *Fifo) Footprint() int64 {
	return int64(f.Capacity) * f.TokenSize
}

// Graph is an application: actors and fifos in flat arenas indexed by id.
type Graph struct {
	Name   string
	Actors []*Actor
	Fifos  []*Fifo

	adjacency map[int][]int
}

func NewGraph(name string) *Graph {
	return &Graph{
		Name:      name,
		adjacency: make(map[int][]int),
	}
}

// AddActor appends an actor and returns its id.
func (g *Graph) AddActor(name string, kind ActorKind, priority int) int {
	id := len(g.Actors)
	g.Actors = append(g.Actors, &Actor{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Priority: priority,
	})
	return id
}

// Connect adds a plain fifo from src to dst and returns its id.
func (g *Graph) Connect(name string, src, dst int, prod, cons int, tokenSize int64, initial int) int {
	return g.addFifo(&Fifo{
		Name:          name,
		Kind:          FifoPlain,
		Src:           src,
		Dsts:          []int{dst},
		ProdRate:      prod,
		ConsRate:      cons,
		TokenSize:     tokenSize,
		InitialTokens: initial,
	})
}

// Multicast adds a composite fifo from src to every dst and returns its id.
func (g *Graph) Multicast(name string, src int, dsts []int, prod, cons int, tokenSize int64) int {
	return g.addFifo(&Fifo{
		Name:      name,
		Kind:      FifoComposite,
		Src:       src,
		Dsts:      append([]int(nil), dsts...),
		ProdRate:  prod,
		ConsRate:  cons,
		TokenSize: tokenSize,
	})
}

func (g *Graph) addFifo(f *Fifo) int {
	f.ID = len(g.Fifos)
	if f.Capacity == 0 {
		f.Capacity = maxInt(f.ProdRate, f.ConsRate) + f.InitialTokens
	}
	g.Fifos = append(g.Fifos, f)
	if src := g.Actor(f.Src); src != nil {
		src.Outputs = append(src.Outputs, f.ID)
	}
	for _, d := range f.Dsts {
		if dst := g.Actor(d); dst != nil {
			dst.Inputs = append(dst.Inputs, f.ID)
		}
		if !f.IsRecurrence() {
			g.AddEdge(f.Src, d)
		}
	}
	return f.ID
}

// Actor returns the actor with the given id or nil.
func (g *Graph) Actor(id int) *Actor {
	if id < 0 || id >= len(g.Actors) {
		return nil
	}
	return g.Actors[id]
}

// Fifo returns the fifo with the given id or nil.
func (g *Graph) Fifo(id int) *Fifo {
	if id < 0 || id >= len(g.Fifos) {
		return nil
	}
	return g.Fifos[id]
}

// ActorByName looks an actor up by name.
func (g *Graph) ActorByName(name string) (*Actor, bool) {
	for _, a := range g.Actors {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// FifoByName looks a fifo up by name.
func (g *Graph) FifoByName(name string) (*Fifo, bool) {
	for _, f := range g.Fifos {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// AddEdge records a scheduling dependency. Duplicate edges are ignored.
func (g *Graph) AddEdge(from int, to int) {
	if g.adjacency == nil {
		g.adjacency = make(map[int][]int)
	}
	succs := g.adjacency[from]
	for _, existing := range succs {
		if existing == to {
			return
		}
	}
	g.adjacency[from] = append(succs, to)
}

// RemoveEdge drops a scheduling dependency if present.
func (g *Graph) RemoveEdge(from int, to int) {
	succs, exists := g.adjacency[from]
	if !exists || len(succs) == 0 {
		return
	}
	updated := make([]int, 0, len(succs))
	for _, id := range succs {
		if id != to {
			updated = append(updated, id)
		}
	}
	if len(updated) == 0 {
		delete(g.adjacency, from)
	} else {
		g.adjacency[from] = updated
	}
}

// Successors returns the actors that depend on id through non-recurrence
// fifos.
func (g *Graph) Successors(id int) []int {
	return g.adjacency[id]
}

// Predecessors returns the actors id depends on through non-recurrence fifos,
// sorted by id.
func (g *Graph) Predecessors(id int) []int {
	preds := make([]int, 0)
	for from, succs := range g.adjacency {
		for _, s := range succs {
			if s == id {
				preds = append(preds, from)
				break
			}
		}
	}
	slices.Sort(preds)
	return preds
}

// Roots returns the actors without non-recurrence predecessors, sorted by id.
func (g *Graph) Roots() []int {
	incoming := make(map[int]int)
	for _, a := range g.Actors {
		incoming[a.ID] = 0
	}
	for _, targets := range g.adjacency {
		for _, t := range targets {
			incoming[t]++
		}
	}
	roots := make([]int, 0)
	for id, count := range incoming {
		if count == 0 {
			roots = append(roots, id)
		}
	}
	slices.Sort(roots)
	return roots
}

// Sinks returns the actors without outputs, sorted by id.
func (g *Graph) Sinks() []int {
	sinks := make([]int, 0)
	for _, a := range g.Actors {
		if len(a.Outputs) == 0 {
			sinks = append(sinks, a.ID)
		}
	}
	return sinks
}

// Clone returns a deep copy. Fifo capacities are copied so sizing on the clone
// does not leak back.
func (g *Graph) Clone() *Graph {
	c := NewGraph(g.Name)
	for _, a := range g.Actors {
		ac := *a
		ac.Inputs = append([]int(nil), a.Inputs...)
		ac.Outputs = append([]int(nil), a.Outputs...)
		c.Actors = append(c.Actors, &ac)
	}
	for _, f := range g.Fifos {
		fc := *f
		fc.Dsts = append([]int(nil), f.Dsts...)
		c.Fifos = append(c.Fifos, &fc)
	}
	for id, succs := range g.adjacency {
		c.adjacency[id] = append([]int(nil), succs...)
	}
	return c
}

// Validate checks ids, rates and fifo variants.
func (g *Graph) Validate() error {
	if len(g.Actors) == 0 {
		return fault.New(fault.InvalidInput, "application %s has no actors", g.Name)
	}
	for _, f := range g.Fifos {
		if g.Actor(f.Src) == nil {
			return fault.New(fault.InvalidInput, "fifo %s has no writer", f.Name).WithFifo(f.ID)
		}
		if len(f.Dsts) == 0 {
			return fault.New(fault.InvalidInput, "fifo %s has no reader", f.Name).WithFifo(f.ID)
		}
		if f.Kind == FifoPlain && len(f.Dsts) != 1 {
			return fault.New(fault.InvalidInput, "plain fifo %s has %d readers", f.Name, len(f.Dsts)).
				WithFifo(f.ID)
		}
		for _, d := range f.Dsts {
			if g.Actor(d) == nil {
				return fault.New(fault.InvalidInput, "fifo %s reads into unknown actor %d", f.Name, d).
					WithFifo(f.ID)
			}
		}
		if f.ProdRate <= 0 || f.ConsRate <= 0 {
			return fault.New(fault.InvalidInput, "fifo %s has a non-positive rate", f.Name).WithFifo(f.ID)
		}
		if f.ProdRate != f.ConsRate {
			return fault.New(fault.InvalidInput,
				"fifo %s produces %d tokens per firing but consumes %d; only single-rate graphs are supported",
				f.Name, f.ProdRate, f.ConsRate).WithFifo(f.ID)
		}
		if f.TokenSize < 0 || f.InitialTokens < 0 {
			return fault.New(fault.InvalidInput, "fifo %s has a negative size", f.Name).WithFifo(f.ID)
		}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

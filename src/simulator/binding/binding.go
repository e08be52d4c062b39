package binding

import (
	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/fault"
)

// Unbound marks an actor or fifo without an assignment.
const Unbound = -1

// Binding maps actors to processors and fifos to memories. Slices are indexed
// by actor or fifo id. Only the remapping step mutates FifoMemory.
type Binding struct {
	ActorProcessor  []int
	ActorTile       []int
	FifoMemory      []int
	Runtime         []float64
	DiscreteRuntime []int
}

// New returns an empty binding sized for g.
func New(g *app.Graph) *Binding {
	b := &Binding{
		ActorProcessor:  make([]int, len(g.Actors)),
		ActorTile:       make([]int, len(g.Actors)),
		FifoMemory:      make([]int, len(g.Fifos)),
		Runtime:         make([]float64, len(g.Actors)),
		DiscreteRuntime: make([]int, len(g.Actors)),
	}
	for i := range b.ActorProcessor {
		b.ActorProcessor[i] = Unbound
		b.ActorTile[i] = Unbound
	}
	for i := range b.FifoMemory {
		b.FifoMemory[i] = Unbound
	}
	return b
}

// BindActor places actor on processor p with the given runtime in µs.
func (b *Binding) BindActor(a *arch.Architecture, actor int, p int, runtimeUS float64) error {
	if actor < 0 || actor >= len(b.ActorProcessor) {
		return fault.New(fault.InvalidInput, "unknown actor %d", actor).WithActor(actor)
	}
	proc := a.Processor(p)
	if proc == nil {
		return fault.New(fault.InvalidInput, "actor %d bound to unknown processor %d", actor, p).
			WithActor(actor)
	}
	if runtimeUS < 0 {
		return fault.New(fault.InvalidInput, "actor %d has a negative runtime", actor).WithActor(actor)
	}
	b.ActorProcessor[actor] = p
	b.ActorTile[actor] = proc.Tile
	b.Runtime[actor] = runtimeUS
	return nil
}

// BindFifo places fifo in memory m.
func (b *Binding) BindFifo(a *arch.Architecture, fifo int, m int) error {
	if fifo < 0 || fifo >= len(b.FifoMemory) {
		return fault.New(fault.InvalidInput, "unknown fifo %d", fifo).WithFifo(fifo)
	}
	if a.Memory(m) == nil {
		return fault.New(fault.InvalidInput, "fifo %d bound to unknown memory %d", fifo, m).WithFifo(fifo)
	}
	b.FifoMemory[fifo] = m
	return nil
}

// Processor returns the processor bound to actor or Unbound.
func (b *Binding) Processor(actor int) int {
	if actor < 0 || actor >= len(b.ActorProcessor) {
		return Unbound
	}
	return b.ActorProcessor[actor]
}

// Memory returns the memory bound to fifo or Unbound.
func (b *Binding) Memory(fifo int) int {
	if fifo < 0 || fifo >= len(b.FifoMemory) {
		return Unbound
	}
	return b.FifoMemory[fifo]
}

// Steps returns the quantized runtime of actor, at least one step.
func (b *Binding) Steps(actor int) int {
	if actor < 0 || actor >= len(b.DiscreteRuntime) || b.DiscreteRuntime[actor] < 1 {
		return 1
	}
	return b.DiscreteRuntime[actor]
}

// Quantize fills DiscreteRuntime from Runtime with the given clock.
func (b *Binding) Quantize(clock Clock) {
	for i, rt := range b.Runtime {
		b.DiscreteRuntime[i] = clock.Steps(rt)
	}
}

// Clone returns an independent copy.
func (b *Binding) Clone() *Binding {
	return &Binding{
		ActorProcessor:  append([]int(nil), b.ActorProcessor...),
		ActorTile:       append([]int(nil), b.ActorTile...),
		FifoMemory:      append([]int(nil), b.FifoMemory...),
		Runtime:         append([]float64(nil), b.Runtime...),
		DiscreteRuntime: append([]int(nil), b.DiscreteRuntime...),
	}
}

// Validate checks that every actor and fifo of g is bound to an existing
// object of a.
func (b *Binding) Validate(a *arch.Architecture, g *app.Graph) error {
	if len(b.ActorProcessor) != len(g.Actors) || len(b.FifoMemory) != len(g.Fifos) {
		return fault.New(fault.InvalidInput, "binding does not match application %s", g.Name)
	}
	for _, actor := range g.Actors {
		p := a.Processor(b.ActorProcessor[actor.ID])
		if p == nil {
			return fault.New(fault.InvalidInput, "actor %s is not bound", actor.Name).WithActor(actor.ID)
		}
		if b.ActorTile[actor.ID] != p.Tile {
			return fault.New(fault.InvalidInput, "actor %s tile disagrees with its processor", actor.Name).
				WithActor(actor.ID)
		}
	}
	for _, f := range g.Fifos {
		if a.Memory(b.FifoMemory[f.ID]) == nil {
			return fault.New(fault.InvalidInput, "fifo %s is not bound", f.Name).WithFifo(f.ID)
		}
	}
	return nil
}

package modulo

import (
	"github.com/pkg/errors"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/route"
	"dsesim/src/simulator/utable"
)

// Task is one fifo access turned into a schedulable communication task. Its
// Pools are the hop resources plus the core it runs against; a scratchpad
// access uses the memory port instead of hops.
type Task struct {
	ID        int
	Kind      app.ActorKind
	Actor     int
	Fifo      int
	Processor int
	Bytes     int64
	Hops      []route.Hop
	Length    int
	Pools     []int
}

// taskBuilder turns fifo accesses into tasks and registers their pools.
type taskBuilder struct {
	arch    *arch.Architecture
	binding *binding.Binding
	clock   binding.Clock
	table   *utable.Table
	nextID  int
}

func (tb *taskBuilder) corePool(p int) int {
	return tb.table.AddPool(utable.Key{Kind: utable.KindCore, Instance: p}, 1)
}

func (tb *taskBuilder) hopPool(h route.Hop) int {
	kind := utable.KindCrossbar
	if h.Kind == arch.KindNoC {
		kind = utable.KindNoC
	}
	return tb.table.AddPool(utable.Key{Kind: kind, Instance: h.Interconnect},
		tb.arch.Interconnect(h.Interconnect).NumChannels())
}

func (tb *taskBuilder) build(kind app.ActorKind, actor int, f *app.Fifo) (Task, error) {
	dir := arch.DirRead
	bytes := f.ReadBytes()
	if kind == app.ActorWriteTask {
		dir = arch.DirWrite
		bytes = f.WriteBytes()
	}
	tr := arch.NewTransfer(dir, f.ID, actor, bytes)
	tr.Processor = tb.binding.Processor(actor)

	hops, err := route.Route(tb.arch, tb.binding, tr)
	if err != nil {
		return Task{}, errors.Wrapf(err, "%s task of actor %d on fifo %s", kind, actor, f.Name)
	}

	t := Task{
		ID:        tb.nextID,
		Kind:      kind,
		Actor:     actor,
		Fifo:      f.ID,
		Processor: tr.Processor,
		Bytes:     bytes,
		Hops:      hops,
		Length:    1,
	}
	tb.nextID++

	if len(hops) == 0 {
		port := tb.table.AddPool(utable.Key{Kind: utable.KindMemoryPort, Instance: tb.binding.Memory(f.ID)}, 1)
		t.Pools = []int{port, tb.corePool(t.Processor)}
		return t, nil
	}

	longest := 0.0
	for _, h := range hops {
		t.Pools = append(t.Pools, tb.hopPool(h))
		if d := h.Duration(tb.arch, bytes); d > longest {
			longest = d
		}
	}
	t.Pools = append(t.Pools, tb.corePool(t.Processor))
	t.Length = tb.clock.Steps(longest)
	return t, nil
}

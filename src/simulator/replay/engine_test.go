package replay

import (
	"math"
	"testing"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
	"dsesim/src/simulator/modulo"
)

func pipeline() *app.Graph {
	g := app.NewGraph("pipeline")
	src := g.AddActor("src", app.ActorPlain, 0)
	mc := g.AddActor("mc", app.ActorMulticast, 0)
	left := g.AddActor("left", app.ActorPlain, 1)
	right := g.AddActor("right", app.ActorPlain, 0)
	sink := g.AddActor("sink", app.ActorPlain, 0)

	g.Connect("src->mc", src, mc, 1, 1, 64, 0)
	g.Multicast("mc->branches", mc, []int{left, right}, 1, 1, 64)
	g.Connect("left->sink", left, sink, 1, 1, 32, 0)
	g.Connect("right->sink", right, sink, 1, 1, 32, 0)
	return g
}

func twoActors(tokenSize int64) *app.Graph {
	g := app.NewGraph("pair")
	a := g.AddActor("a", app.ActorPlain, 0)
	b := g.AddActor("b", app.ActorPlain, 0)
	g.Connect("a->b", a, b, 1, 1, tokenSize, 0)
	return g
}

// bindAll places actor v on processor v%processors and every fifo in the
// first tile memory.
func bindAll(t *testing.T, a *arch.Architecture, g *app.Graph, runtimes []float64) *binding.Binding {
	b := binding.New(g)
	for v := range g.Actors {
		if err := b.BindActor(a, v, v%len(a.Processors), runtimes[v]); err != nil {
			t.Fatalf("bind actor %d: %v", v, err)
		}
	}
	for _, f := range g.Fifos {
		if err := b.BindFifo(a, f.ID, a.Tiles[0].TileMemory); err != nil {
			t.Fatalf("bind fifo %d: %v", f.ID, err)
		}
	}
	b.Quantize(binding.NewClock(1))
	return b
}

func TestSingleProcessorPipeline(t *testing.T) {
	t.Parallel()

	a := arch.MakeBuilder().Build("single")
	g := pipeline()
	b := bindAll(t, a, g, []float64{1, 0.5, 2, 2, 1})

	trace, err := NewEngine(a, g, b, Options{Iterations: 3}).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := len(trace.FiringsOf(4)); n != 3 {
		t.Fatalf("expected 3 sink firings, got %d", n)
	}
	if len(trace.Actions) != 15 {
		t.Fatalf("expected 15 actions, got %d", len(trace.Actions))
	}

	actions := a.Processors[0].Actions
	for i := 1; i < len(actions); i++ {
		if actions[i].Start < actions[i-1].Due {
			t.Fatalf("action %d starts at %.3f before %d ends at %.3f",
				i, actions[i].Start, i-1, actions[i-1].Due)
		}
	}

	mem := a.Memory(a.Tiles[0].TileMemory)
	if occ := mem.OccupancyAt(trace.Makespan); occ != 0 {
		t.Fatalf("expected every token to be released, %d bytes left", occ)
	}
	if trace.AchievedPeriod <= 0 {
		t.Fatalf("expected a positive achieved period, got %f", trace.AchievedPeriod)
	}
}

func TestCapacityBlocksWriter(t *testing.T) {
	t.Parallel()

	a := arch.MakeBuilder().WithProcessorsPerTile(2).Build("pair")
	g := twoActors(64)
	g.Fifos[0].Capacity = 1
	b := bindAll(t, a, g, []float64{1, 5})

	trace, err := NewEngine(a, g, b, Options{Iterations: 4}).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if trace.MaxTokens[0] != 1 {
		t.Fatalf("expected at most 1 stored token, got %d", trace.MaxTokens[0])
	}
	if peak := a.Memory(a.Tiles[0].TileMemory).Peak(); peak != 64 {
		t.Fatalf("expected peak occupancy of one token, got %d bytes", peak)
	}
}

func TestUnboundedFifoRunsAhead(t *testing.T) {
	t.Parallel()

	a := arch.MakeBuilder().WithProcessorsPerTile(2).Build("pair")
	g := twoActors(64)
	g.Fifos[0].Capacity = 0
	b := bindAll(t, a, g, []float64{1, 5})

	trace, err := NewEngine(a, g, b, Options{Iterations: 4}).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if trace.MaxTokens[0] < 2 {
		t.Fatalf("expected the writer to run ahead, got %d tokens", trace.MaxTokens[0])
	}
}

func TestReleaseTimesDelayFirings(t *testing.T) {
	t.Parallel()

	a := arch.MakeBuilder().Build("single")
	g := twoActors(8)
	b := bindAll(t, a, g, []float64{1, 1})

	opts := Options{Iterations: 2, Release: []float64{0, 5}, PeriodUS: 10}
	trace, err := NewEngine(a, g, b, opts).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, f := range trace.Firings {
		release := opts.Release[f.Actor] + float64(f.Iteration)*opts.PeriodUS
		if f.Start < release {
			t.Fatalf("actor %d iteration %d starts at %.3f before release %.3f",
				f.Actor, f.Iteration, f.Start, release)
		}
	}
	if got := trace.FiringsOf(1); len(got) != 2 || got[1].Start < 15 {
		t.Fatalf("unexpected sink firings %+v", got)
	}
}

func TestMemoryOverflowNamesFifo(t *testing.T) {
	t.Parallel()

	a := arch.MakeBuilder().WithProcessorsPerTile(2).Build("pair")
	g := twoActors(128 << 10)
	b := bindAll(t, a, g, []float64{1, 1})
	local := a.Processors[0].LocalMemory
	if err := b.BindFifo(a, 0, local); err != nil {
		t.Fatalf("bind fifo: %v", err)
	}

	_, err := NewEngine(a, g, b, Options{Iterations: 1}).Run()
	e, ok := fault.As(err)
	if !ok || e.Kind != fault.CapacityViolation {
		t.Fatalf("expected a capacity violation, got %v", err)
	}
	if e.Fifo != 0 || e.Memory != local {
		t.Fatalf("expected fifo 0 in memory %d, got fifo %d memory %d", local, e.Fifo, e.Memory)
	}
}

func TestDeadlockIsReported(t *testing.T) {
	t.Parallel()

	a := arch.MakeBuilder().Build("single")
	g := app.NewGraph("deadlock")
	x := g.AddActor("x", app.ActorPlain, 0)
	y := g.AddActor("y", app.ActorPlain, 0)
	g.Connect("x->y", x, y, 1, 1, 4, 0)
	g.Connect("y->x", y, x, 1, 1, 4, 0)
	b := bindAll(t, a, g, []float64{1, 1})

	_, err := NewEngine(a, g, b, Options{Iterations: 1}).Run()
	if !fault.Is(err, fault.InvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReleaseTimesFromSchedule(t *testing.T) {
	t.Parallel()

	res := &modulo.Result{
		Period: 4,
		Start:  []int{0, 3},
		Length: []int{1, 1},
		Tasks: []modulo.TaskPlacement{
			{Task: modulo.Task{Kind: app.ActorReadTask, Actor: 1}, Start: 2, End: 3},
			{Task: modulo.Task{Kind: app.ActorWriteTask, Actor: 0}, Start: 1, End: 2},
		},
	}
	release := ReleaseTimes(res, binding.NewClock(1))
	if math.Abs(release[0]) > 1e-9 || math.Abs(release[1]-2) > 1e-9 {
		t.Fatalf("expected releases [0 2], got %v", release)
	}
}

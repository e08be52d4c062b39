package route

import (
	"testing"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
)

// fixture: two tiles with two cores each; actor 0 on core 0 (tile 0),
// actor 1 on core 3 (tile 1); one fifo per memory choice.
func fixture() (*arch.Architecture, *binding.Binding) {
	a := arch.MakeBuilder().
		WithNumTiles(2).
		WithProcessorsPerTile(2).
		WithCrossbar(4, 2).
		WithNoC(8, 4).
		Build("A")

	g := app.NewGraph("g")
	w := g.AddActor("w", app.ActorPlain, 0)
	r := g.AddActor("r", app.ActorPlain, 0)
	for i := 0; i < 6; i++ {
		g.Connect("f", w, r, 1, 1, 1024, 0)
	}

	b := binding.New(g)
	_ = b.BindActor(a, w, 0, 1)
	_ = b.BindActor(a, r, 3, 1)
	_ = b.BindFifo(a, 0, a.Processors[0].LocalMemory) // own scratchpad of w
	_ = b.BindFifo(a, 1, a.Processors[1].LocalMemory) // neighbour on tile 0
	_ = b.BindFifo(a, 2, a.Processors[2].LocalMemory) // core on tile 1
	_ = b.BindFifo(a, 3, a.Tiles[0].TileMemory)
	_ = b.BindFifo(a, 4, a.Tiles[1].TileMemory)
	_ = b.BindFifo(a, 5, a.GlobalMemory)
	return a, b
}

func ids(hops []Hop) []int {
	out := make([]int, len(hops))
	for i, h := range hops {
		out[i] = h.Interconnect
	}
	return out
}

func equal(x, y []int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func TestRouteDecisionTable(t *testing.T) {
	t.Parallel()

	a, b := fixture()
	x0, x1, noc := a.Tiles[0].Crossbar, a.Tiles[1].Crossbar, a.NoC

	cases := []struct {
		name  string
		actor int
		fifo  int
		want  []int
	}{
		{"own scratchpad", 0, 0, []int{}},
		{"neighbour scratchpad same tile", 0, 1, []int{x0}},
		{"scratchpad on remote tile", 0, 2, []int{x1, noc, x0}},
		{"tile memory same tile", 0, 3, []int{x0}},
		{"tile memory remote tile", 1, 3, []int{x0, noc, x1}},
		{"tile memory of reader tile", 1, 4, []int{x1}},
		{"global memory", 1, 5, []int{noc, x1}},
	}
	for _, c := range cases {
		hops, err := Route(a, b, arch.NewTransfer(arch.DirRead, c.fifo, c.actor, 1024))
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if !equal(ids(hops), c.want) {
			t.Fatalf("%s: got hops %v, want %v", c.name, ids(hops), c.want)
		}
	}
}

func TestRoutingSymmetry(t *testing.T) {
	t.Parallel()

	a, b := fixture()
	for fifo := 0; fifo < 6; fifo++ {
		for actor := 0; actor < 2; actor++ {
			read, err := Route(a, b, arch.NewTransfer(arch.DirRead, fifo, actor, 64))
			if err != nil {
				t.Fatalf("read route: %v", err)
			}
			write, err := Route(a, b, arch.NewTransfer(arch.DirWrite, fifo, actor, 64))
			if err != nil {
				t.Fatalf("write route: %v", err)
			}
			if len(read) != len(write) {
				t.Fatalf("fifo %d actor %d: %v vs %v", fifo, actor, ids(read), ids(write))
			}
			for i := range read {
				if read[i] != write[len(write)-1-i] {
					t.Fatalf("fifo %d actor %d: write is not the reversed read: %v vs %v",
						fifo, actor, ids(read), ids(write))
				}
			}
		}
	}
}

func TestRouteExplicitDestinationAndErrors(t *testing.T) {
	t.Parallel()

	a, b := fixture()
	tr := arch.NewTransfer(arch.DirRead, 0, 1, 64)
	tr.Processor = 0
	if hops, _ := Route(a, b, tr); len(hops) != 0 {
		t.Fatalf("explicit destination should read its own scratchpad, got %v", ids(hops))
	}

	b.FifoMemory[3] = binding.Unbound
	_, err := Route(a, b, arch.NewTransfer(arch.DirRead, 3, 0, 64))
	if !fault.Is(err, fault.InvalidRouting) {
		t.Fatalf("expected invalid routing, got %v", err)
	}
	if e, _ := fault.As(err); e.Fifo != 3 {
		t.Fatalf("expected fifo 3 named, got %d", e.Fifo)
	}

	a.Memories[a.Processors[2].LocalMemory].Processor = -1
	if _, err := Route(a, b, arch.NewTransfer(arch.DirRead, 2, 0, 64)); !fault.Is(err, fault.InvalidRouting) {
		t.Fatalf("orphan scratchpad should not route, got %v", err)
	}
}

func TestCommitChainsHops(t *testing.T) {
	t.Parallel()

	a, b := fixture()
	c, err := Deliver(a, b, arch.NewTransfer(arch.DirWrite, 2, 0, 1<<20), 5)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(c.PerHop) != 3 {
		t.Fatalf("expected 3 hops, got %d", len(c.PerHop))
	}
	prev := 5.0
	for _, h := range c.PerHop {
		if h.Start < prev {
			t.Fatalf("hop starts at %f before previous end %f", h.Start, prev)
		}
		prev = h.Due
	}
	if c.Transfer.Start != 5 || c.Transfer.Due != prev {
		t.Fatalf("span [%f,%f) does not cover the hops", c.Transfer.Start, c.Transfer.Due)
	}
	if c.Transfer.SrcTile != 0 || c.Transfer.DstTile != 1 || c.Transfer.Processor != 0 {
		t.Fatalf("unexpected endpoints %+v", c.Transfer)
	}

	local, err := Deliver(a, b, arch.NewTransfer(arch.DirWrite, 0, 0, 1<<20), 7)
	if err != nil {
		t.Fatalf("deliver scratchpad: %v", err)
	}
	if local.Transfer.Start != 7 || local.Transfer.Due != 7 || len(local.PerHop) != 0 {
		t.Fatalf("scratchpad write should be zero-duration at 7, got %+v", local.Transfer)
	}
	if transfers, _ := a.Interconnect(a.NoC).Totals(); transfers != 1 {
		t.Fatalf("expected a single NoC transfer, got %d", transfers)
	}
}

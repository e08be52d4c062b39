package app

import (
	"testing"

	"dsesim/src/simulator/fault"
)

// pipeline builds src -> mc -> {left, right} -> sink.
func pipeline() *Graph {
	g := NewGraph("pipeline")
	src := g.AddActor("src", ActorPlain, 0)
	mc := g.AddActor("mc", ActorMulticast, 0)
	left := g.AddActor("left", ActorPlain, 1)
	right := g.AddActor("right", ActorPlain, 0)
	sink := g.AddActor("sink", ActorPlain, 0)

	g.Connect("src->mc", src, mc, 1, 1, 64, 0)
	g.Multicast("mc->branches", mc, []int{left, right}, 1, 1, 64)
	g.Connect("left->sink", left, sink, 1, 1, 32, 0)
	g.Connect("right->sink", right, sink, 1, 1, 32, 0)
	return g
}

func TestGraphWiring(t *testing.T) {
	t.Parallel()

	g := pipeline()
	if err := g.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if roots := g.Roots(); len(roots) != 1 || roots[0] != 0 {
		t.Fatalf("expected root [0], got %v", roots)
	}
	if sinks := g.Sinks(); len(sinks) != 1 || sinks[0] != 4 {
		t.Fatalf("expected sink [4], got %v", sinks)
	}
	if succ := g.Successors(1); len(succ) != 2 {
		t.Fatalf("multicast should have two successors, got %v", succ)
	}
	if preds := g.Predecessors(4); len(preds) != 2 || preds[0] != 2 || preds[1] != 3 {
		t.Fatalf("sink predecessors: %v", preds)
	}

	mc, _ := g.ActorByName("mc")
	if len(mc.Inputs) != 1 || len(mc.Outputs) != 1 {
		t.Fatalf("multicast ports: in %v out %v", mc.Inputs, mc.Outputs)
	}
	f, _ := g.FifoByName("mc->branches")
	if f.Kind != FifoComposite || len(f.Dsts) != 2 {
		t.Fatalf("composite fifo misbuilt: %+v", f)
	}
	if f.WriteBytes() != 64 || f.Footprint() != 64 {
		t.Fatalf("unexpected sizes: write %d footprint %d", f.WriteBytes(), f.Footprint())
	}
}

func TestGraphEdgesAndClone(t *testing.T) {
	t.Parallel()

	g := pipeline()
	g.AddEdge(0, 1)
	if len(g.Successors(0)) != 1 {
		t.Fatalf("duplicate edge should be ignored")
	}

	c := g.Clone()
	c.RemoveEdge(0, 1)
	c.Fifos[0].Capacity = 99
	if len(g.Successors(0)) != 1 || g.Fifos[0].Capacity == 99 {
		t.Fatalf("clone shares state with the original")
	}
	if len(c.Successors(0)) != 0 {
		t.Fatalf("edge not removed from clone")
	}
}

func TestGraphValidateRejectsMalformedFifos(t *testing.T) {
	t.Parallel()

	g := NewGraph("bad")
	a := g.AddActor("a", ActorPlain, 0)
	b := g.AddActor("b", ActorPlain, 0)
	g.Connect("a->b", a, b, 0, 1, 4, 0)
	err := g.Validate()
	if !fault.Is(err, fault.InvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if e, _ := fault.As(err); e.Fifo != 0 {
		t.Fatalf("expected fifo 0 named, got %d", e.Fifo)
	}

	empty := NewGraph("empty")
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected error for empty graph")
	}
}

func TestGraphValidateRejectsMismatchedRates(t *testing.T) {
	t.Parallel()

	g := NewGraph("multirate")
	a := g.AddActor("a", ActorPlain, 0)
	b := g.AddActor("b", ActorPlain, 0)
	c := g.AddActor("c", ActorPlain, 0)
	g.Connect("a->b", a, b, 2, 2, 4, 0)
	g.Multicast("b->c", b, []int{c}, 2, 1, 4)

	err := g.Validate()
	if !fault.Is(err, fault.InvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if e, _ := fault.As(err); e.Fifo != 1 {
		t.Fatalf("expected fifo 1 named, got %d", e.Fifo)
	}

	g.Fifo(1).ConsRate = 2
	if err := g.Validate(); err != nil {
		t.Fatalf("equal rates above one should pass: %v", err)
	}
}

func TestFindCycles(t *testing.T) {
	t.Parallel()

	g := NewGraph("loop")
	a := g.AddActor("a", ActorPlain, 0)
	b := g.AddActor("b", ActorPlain, 0)
	c := g.AddActor("c", ActorPlain, 0)
	g.Connect("a->b", a, b, 1, 1, 4, 0)
	g.Connect("b->c", b, c, 1, 1, 4, 0)
	g.Connect("c->a", c, a, 1, 1, 4, 2)
	g.Connect("b->b", b, b, 1, 1, 4, 1)

	if len(pipeline().FindCycles()) != 0 {
		t.Fatalf("acyclic graph reported cycles")
	}

	cycles := g.FindCycles()
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d: %+v", len(cycles), cycles)
	}
	for _, cyc := range cycles {
		if len(cyc.Actors) != len(cyc.Fifos) {
			t.Fatalf("cycle arity mismatch: %+v", cyc)
		}
		switch len(cyc.Actors) {
		case 3:
			if cyc.Delay(g) != 2 {
				t.Fatalf("expected delay 2 on the long cycle, got %f", cyc.Delay(g))
			}
		case 1:
			if cyc.Actors[0] != b || cyc.Delay(g) != 1 {
				t.Fatalf("unexpected self loop %+v", cyc)
			}
		default:
			t.Fatalf("unexpected cycle %+v", cyc)
		}
	}

	// Recurrence edges are not scheduling dependencies.
	if roots := g.Roots(); len(roots) != 1 || roots[0] != a {
		t.Fatalf("expected a to be the only root, got %v", roots)
	}
}

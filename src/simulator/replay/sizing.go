package replay

import (
	"golang.org/x/exp/slices"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/modulo"
)

// SizingIterations is the number of iterations replayed to observe steady
// state token counts: the prologue, two kernels and the epilogue.
func SizingIterations(res *modulo.Result) int {
	return 2*res.Kernel.Stages + 2
}

type tokenEvent struct {
	step   int
	claim  bool
	reader int
	tokens int
}

// SizeFifos replays token claims (at write start) and releases (at read
// end) of the periodic schedule and returns the peak in-flight token count
// per fifo. A fifo that never holds a token gets max(prod, cons).
func SizeFifos(g *app.Graph, res *modulo.Result, iterations int) []int {
	if iterations <= 0 {
		iterations = SizingIterations(res)
	}
	caps := make([]int, len(g.Fifos))
	for _, f := range g.Fifos {
		events := make([]tokenEvent, 0, iterations*(1+len(f.Dsts)))
		for i := 0; i < iterations; i++ {
			offset := i * res.Period
			events = append(events, tokenEvent{
				step:   res.WriteStart(f.Src, f.ID) + offset,
				claim:  true,
				tokens: f.ProdRate,
			})
			for r, dst := range f.Dsts {
				events = append(events, tokenEvent{
					step:   res.ReadEnd(dst, f.ID) + offset,
					reader: r,
					tokens: f.ConsRate,
				})
			}
		}
		// Claims before releases on the same step.
		slices.SortStableFunc(events, func(a, b tokenEvent) int {
			if a.step != b.step {
				return a.step - b.step
			}
			switch {
			case a.claim && !b.claim:
				return -1
			case !a.claim && b.claim:
				return 1
			}
			return 0
		})

		l := newLedger(f)
		peak := l.stored()
		for _, ev := range events {
			if ev.claim {
				l.produce(ev.tokens, float64(ev.step))
			} else {
				l.consume(ev.reader, ev.tokens, float64(ev.step))
			}
			if s := l.stored(); s > peak {
				peak = s
			}
		}
		if peak <= 0 {
			peak = maxInt(f.ProdRate, f.ConsRate)
		}
		caps[f.ID] = peak
	}
	return caps
}

// Apply writes capacities into the graph's fifos.
func Apply(g *app.Graph, caps []int) {
	for id, c := range caps {
		if f := g.Fifo(id); f != nil {
			f.Capacity = c
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

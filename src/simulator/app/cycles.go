package app

// Cycle is a simple directed cycle. Fifos[i] connects Actors[i] to
// Actors[(i+1)%len(Actors)].
type Cycle struct {
	Actors []int
	Fifos  []int
}

// Delay is the number of iterations the cycle's initial tokens decouple,
// summed over its fifos.
func (c Cycle) Delay(g *Graph) float64 {
	delay := 0.0
	for _, fid := range c.Fifos {
		f := g.Fifo(fid)
		if f == nil || f.ConsRate <= 0 {
			continue
		}
		delay += float64(f.InitialTokens) / float64(f.ConsRate)
	}
	return delay
}

type edge struct {
	fifo int
	to   int
}

// FindCycles enumerates every simple cycle over all fifos, recurrence edges
// included. Each cycle is reported once, rooted at its smallest actor id.
// Parallel fifos yield distinct cycles.
func (g *Graph) FindCycles() []Cycle {
	out := make([][]edge, len(g.Actors))
	for _, f := range g.Fifos {
		if g.Actor(f.Src) == nil {
			continue
		}
		for _, d := range f.Dsts {
			if g.Actor(d) != nil {
				out[f.Src] = append(out[f.Src], edge{fifo: f.ID, to: d})
			}
		}
	}

	cycles := make([]Cycle, 0)
	onPath := make([]bool, len(g.Actors))
	actors := make([]int, 0)
	fifos := make([]int, 0)

	var visit func(start, v int)
	visit = func(start, v int) {
		onPath[v] = true
		actors = append(actors, v)
		for _, e := range out[v] {
			switch {
			case e.to == start:
				cycles = append(cycles, Cycle{
					Actors: append([]int(nil), actors...),
					Fifos:  append(append([]int(nil), fifos...), e.fifo),
				})
			case e.to > start && !onPath[e.to]:
				fifos = append(fifos, e.fifo)
				visit(start, e.to)
				fifos = fifos[:len(fifos)-1]
			}
		}
		actors = actors[:len(actors)-1]
		onPath[v] = false
	}

	for start := range g.Actors {
		visit(start, start)
	}
	return cycles
}

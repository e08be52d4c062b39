package binding

import (
	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/fault"
)

// Footprints sums capacity × token size of the fifos bound to each memory.
// The result is indexed by memory id.
func Footprints(a *arch.Architecture, g *app.Graph, b *Binding) []int64 {
	used := make([]int64, len(a.Memories))
	for _, f := range g.Fifos {
		m := b.Memory(f.ID)
		if m < 0 || m >= len(used) {
			continue
		}
		used[m] += f.Footprint()
	}
	return used
}

// CheckFootprints returns a CapacityViolation naming the first memory whose
// co-resident fifos do not fit, together with the largest fifo on it. Ties
// go to the lowest fifo id.
func CheckFootprints(a *arch.Architecture, g *app.Graph, b *Binding) error {
	used := Footprints(a, g, b)
	for _, m := range a.Memories {
		if used[m.ID] <= m.Capacity {
			continue
		}
		victim := -1
		var largest int64 = -1
		for _, f := range g.Fifos {
			if b.Memory(f.ID) == m.ID && f.Footprint() > largest {
				victim = f.ID
				largest = f.Footprint()
			}
		}
		return fault.New(fault.CapacityViolation, "%s needs %d bytes but holds %d",
			m.Name, used[m.ID], m.Capacity).
			WithMemory(m.ID).
			WithFifo(victim)
	}
	return nil
}

// Remap moves fifo one memory tier up: processor-local to the owning tile's
// memory, anything else to global memory. A fifo already in global memory
// cannot move and yields a CapacityViolation.
func Remap(a *arch.Architecture, b *Binding, fifo int) (int, error) {
	current := a.Memory(b.Memory(fifo))
	if current == nil {
		return Unbound, fault.New(fault.InvalidInput, "fifo %d is not bound", fifo).WithFifo(fifo)
	}

	target := a.GlobalMemory
	switch current.Kind {
	case arch.MemoryLocal:
		tile := a.Tile(current.Tile)
		if tile == nil {
			return Unbound, fault.New(fault.InvalidRouting, "%s has no owning tile", current.Name).
				WithMemory(current.ID).
				WithFifo(fifo)
		}
		target = tile.TileMemory
	case arch.MemoryTileLocal:
	case arch.MemoryGlobal:
		return Unbound, fault.New(fault.CapacityViolation, "fifo %d does not fit in %s", fifo, current.Name).
			WithMemory(current.ID).
			WithFifo(fifo)
	}

	b.FifoMemory[fifo] = target
	return target, nil
}

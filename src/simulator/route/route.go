package route

import (
	"github.com/pkg/errors"

	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
)

// Hop is one interconnect crossing. Distance is the mesh hop count for the
// NoC and zero for crossbars.
type Hop struct {
	Interconnect int
	Kind         arch.InterconnectKind
	Distance     int
}

// Duration is how long bytes occupy a channel of this hop, in µs.
func (h Hop) Duration(a *arch.Architecture, bytes int64) float64 {
	ic := a.Interconnect(h.Interconnect)
	if ic == nil {
		return 0
	}
	return ic.TransferDuration(bytes, h.Distance)
}

// Committed is a transfer resolved over its hops. Transfer spans from the
// first hop's start to the last hop's end; PerHop holds the per-channel
// records.
type Committed struct {
	Transfer arch.Transfer
	PerHop   []arch.Transfer
}

// Processor returns the processor a transfer runs against: the explicit
// destination for composite reads, otherwise the actor's binding.
func Processor(b *binding.Binding, t arch.Transfer) int {
	if t.Processor >= 0 {
		return t.Processor
	}
	return b.Processor(t.Actor)
}

// Route returns the ordered hops t must traverse. Reads flow from the fifo's
// memory to the processor; a write uses the read route of the same placement
// in reverse.
func Route(a *arch.Architecture, b *binding.Binding, t arch.Transfer) ([]Hop, error) {
	proc := a.Processor(Processor(b, t))
	if proc == nil {
		return nil, fault.New(fault.InvalidRouting, "actor %d is not bound to a processor", t.Actor).
			WithActor(t.Actor).
			WithFifo(t.Fifo)
	}
	mem := a.Memory(b.Memory(t.Fifo))
	if mem == nil {
		return nil, fault.New(fault.InvalidRouting, "fifo %d is not bound to a memory", t.Fifo).
			WithActor(t.Actor).
			WithFifo(t.Fifo)
	}

	hops, err := readRoute(a, mem, proc)
	if err != nil {
		if e, ok := fault.As(err); ok {
			e.WithActor(t.Actor).WithFifo(t.Fifo)
		}
		return nil, err
	}
	if t.Direction == arch.DirWrite {
		reverse(hops)
	}
	return hops, nil
}

func readRoute(a *arch.Architecture, mem *arch.Memory, proc *arch.Processor) ([]Hop, error) {
	switch mem.Kind {
	case arch.MemoryLocal:
		if mem.Processor < 0 || a.Tile(mem.Tile) == nil {
			return nil, fault.New(fault.InvalidRouting, "%s has no owning processor", mem.Name).
				WithMemory(mem.ID)
		}
		if mem.Processor == proc.ID {
			return []Hop{}, nil
		}
		return tileToTile(a, mem.Tile, proc.Tile), nil
	case arch.MemoryTileLocal:
		if a.Tile(mem.Tile) == nil {
			return nil, fault.New(fault.InvalidRouting, "%s has no owning tile", mem.Name).
				WithMemory(mem.ID)
		}
		return tileToTile(a, mem.Tile, proc.Tile), nil
	case arch.MemoryGlobal:
		return []Hop{
			{Interconnect: a.NoC, Kind: arch.KindNoC},
			crossbarHop(a, proc.Tile),
		}, nil
	default:
		return nil, fault.New(fault.InvalidRouting, "%s has unknown kind %d", mem.Name, mem.Kind).
			WithMemory(mem.ID)
	}
}

func tileToTile(a *arch.Architecture, src, dst int) []Hop {
	if src == dst {
		return []Hop{crossbarHop(a, dst)}
	}
	return []Hop{
		crossbarHop(a, src),
		{Interconnect: a.NoC, Kind: arch.KindNoC, Distance: a.TileHopDistance(src, dst)},
		crossbarHop(a, dst),
	}
}

func crossbarHop(a *arch.Architecture, tile int) Hop {
	return Hop{Interconnect: a.Tile(tile).Crossbar, Kind: arch.KindCrossbar}
}

func reverse(hops []Hop) {
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
}

// Commit resolves t over hops starting no earlier than requestStart. Each
// hop's committed end is the next hop's requested start. Without hops the
// transfer is a scratchpad access with start = end = requestStart.
func Commit(a *arch.Architecture, t arch.Transfer, hops []Hop, requestStart float64) (Committed, error) {
	result := Committed{Transfer: t}
	result.Transfer.Start = requestStart
	result.Transfer.Due = requestStart
	if len(hops) == 0 {
		return result, nil
	}

	at := requestStart
	for i, h := range hops {
		ic := a.Interconnect(h.Interconnect)
		if ic == nil {
			return Committed{}, fault.New(fault.InvalidRouting, "unknown interconnect %d", h.Interconnect).
				WithActor(t.Actor).
				WithFifo(t.Fifo)
		}
		hopped, err := ic.PutTransfer(t, at, h.Distance)
		if err != nil {
			return Committed{}, errors.Wrapf(err, "hop %d of fifo %d", i, t.Fifo)
		}
		if i == 0 {
			result.Transfer.Start = hopped.Start
		}
		at = hopped.Due
		result.PerHop = append(result.PerHop, hopped)
	}
	result.Transfer.Due = at
	last := result.PerHop[len(result.PerHop)-1]
	result.Transfer.Interconnect = last.Interconnect
	result.Transfer.Channel = last.Channel
	return result, nil
}

// Deliver routes and commits t in one call, filling in the processor and the
// tiles at both ends.
func Deliver(a *arch.Architecture, b *binding.Binding, t arch.Transfer, requestStart float64) (Committed, error) {
	hops, err := Route(a, b, t)
	if err != nil {
		return Committed{}, err
	}
	t.Processor = Processor(b, t)
	memTile := a.Memory(b.Memory(t.Fifo)).Tile
	procTile := a.Processor(t.Processor).Tile
	if t.Direction == arch.DirRead {
		t.SrcTile, t.DstTile = memTile, procTile
	} else {
		t.SrcTile, t.DstTile = procTile, memTile
	}
	return Commit(a, t, hops, requestStart)
}

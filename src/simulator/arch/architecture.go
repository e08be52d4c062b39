package arch

import (
	"golang.org/x/exp/slices"

	"dsesim/src/simulator/fault"
)

// Processor is one core. Actions is its committed firing timeline.
type Processor struct {
	ID          int
	Name        string
	CoreType    string
	Tile        int
	LocalMemory int

	Actions []Action
}

// Tile groups processors around one crossbar and one tile-local memory.
type Tile struct {
	ID         int
	Name       string
	Processors []int
	Crossbar   int
	TileMemory int
	Coord      MeshCoordinate
}

// Architecture owns every hardware object in flat arenas. All cross
// references are ids into these slices.
type Architecture struct {
	Name          string
	Tiles         []*Tile
	Processors    []*Processor
	Memories      []*Memory
	Interconnects []*Interconnect
	NoC           int
	GlobalMemory  int
	MeshRows      int
	MeshCols      int
}

// Tile returns the tile with the given id or nil.
func (a *Architecture) Tile(id int) *Tile {
	if id < 0 || id >= len(a.Tiles) {
		return nil
	}
	return a.Tiles[id]
}

// Processor returns the processor with the given id or nil.
func (a *Architecture) Processor(id int) *Processor {
	if id < 0 || id >= len(a.Processors) {
		return nil
	}
	return a.Processors[id]
}

// Memory returns the memory with the given id or nil.
func (a *Architecture) Memory(id int) *Memory {
	if id < 0 || id >= len(a.Memories) {
		return nil
	}
	return a.Memories[id]
}

// Interconnect returns the crossbar or NoC with the given id or nil.
func (a *Architecture) Interconnect(id int) *Interconnect {
	if id < 0 || id >= len(a.Interconnects) {
		return nil
	}
	return a.Interconnects[id]
}

// Crossbar returns the crossbar of a tile or nil.
func (a *Architecture) Crossbar(tile int) *Interconnect {
	t := a.Tile(tile)
	if t == nil {
		return nil
	}
	return a.Interconnect(t.Crossbar)
}

// ProcessorByName looks a processor up by name.
func (a *Architecture) ProcessorByName(name string) (*Processor, bool) {
	for _, p := range a.Processors {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// MemoryByName looks a memory up by name.
func (a *Architecture) MemoryByName(name string) (*Memory, bool) {
	for _, m := range a.Memories {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// CoreTypes returns the distinct core-type tags, sorted.
func (a *Architecture) CoreTypes() []string {
	seen := make(map[string]bool)
	types := make([]string, 0)
	for _, p := range a.Processors {
		if !seen[p.CoreType] {
			seen[p.CoreType] = true
			types = append(types, p.CoreType)
		}
	}
	slices.Sort(types)
	return types
}

// ProcessorsOfType returns the processor ids carrying the core-type tag.
func (a *Architecture) ProcessorsOfType(coreType string) []int {
	ids := make([]int, 0)
	for _, p := range a.Processors {
		if p.CoreType == coreType {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// CommitAction appends a firing to the processor timeline, keeping it sorted
// by start time.
func (a *Architecture) CommitAction(action Action) error {
	p := a.Processor(action.Processor)
	if p == nil {
		return fault.New(fault.InvalidInput, "unknown processor %d", action.Processor).
			WithActor(action.Actor)
	}
	idx, _ := slices.BinarySearchFunc(p.Actions, action.Start, func(queued Action, start float64) int {
		if queued.Start <= start {
			return -1
		}
		return 1
	})
	p.Actions = slices.Insert(p.Actions, idx, action)
	return nil
}

// Reset empties every memory occupancy map, channel timeline and processor
// action list. It runs before every scheduling attempt.
func (a *Architecture) Reset() {
	for _, m := range a.Memories {
		m.Reset()
	}
	for _, ic := range a.Interconnects {
		ic.Reset()
	}
	for _, p := range a.Processors {
		p.Actions = nil
	}
}

// Clone returns an independent copy so concurrent attempts never share
// mutable state.
func (a *Architecture) Clone() *Architecture {
	c := &Architecture{
		Name:         a.Name,
		NoC:          a.NoC,
		GlobalMemory: a.GlobalMemory,
		MeshRows:     a.MeshRows,
		MeshCols:     a.MeshCols,
	}
	for _, t := range a.Tiles {
		tc := *t
		tc.Processors = append([]int(nil), t.Processors...)
		c.Tiles = append(c.Tiles, &tc)
	}
	for _, p := range a.Processors {
		pc := *p
		pc.Actions = append([]Action(nil), p.Actions...)
		c.Processors = append(c.Processors, &pc)
	}
	for _, m := range a.Memories {
		c.Memories = append(c.Memories, m.clone())
	}
	for _, ic := range a.Interconnects {
		c.Interconnects = append(c.Interconnects, ic.clone())
	}
	return c
}

// Validate checks the arena cross references.
func (a *Architecture) Validate() error {
	if a.Interconnect(a.NoC) == nil || a.Interconnects[a.NoC].Kind != KindNoC {
		return fault.New(fault.InvalidInput, "architecture %s has no NoC", a.Name)
	}
	if m := a.Memory(a.GlobalMemory); m == nil || m.Kind != MemoryGlobal {
		return fault.New(fault.InvalidInput, "architecture %s has no global memory", a.Name)
	}
	for _, t := range a.Tiles {
		if xb := a.Interconnect(t.Crossbar); xb == nil || xb.Kind != KindCrossbar {
			return fault.New(fault.InvalidInput, "tile %s has no crossbar", t.Name)
		}
		if m := a.Memory(t.TileMemory); m == nil || m.Kind != MemoryTileLocal {
			return fault.New(fault.InvalidInput, "tile %s has no tile-local memory", t.Name)
		}
	}
	for _, p := range a.Processors {
		if a.Tile(p.Tile) == nil {
			return fault.New(fault.InvalidInput, "processor %s has no tile", p.Name)
		}
		m := a.Memory(p.LocalMemory)
		if m == nil || m.Kind != MemoryLocal || m.Processor != p.ID {
			return fault.New(fault.InvalidInput, "processor %s has no local memory", p.Name)
		}
	}
	return nil
}

package arch

import "fmt"

// ProcessorSpec describes one core of a tile.
type ProcessorSpec struct {
	Name        string
	CoreType    string
	LocalMemory int64
}

// TileSpec describes one tile. Zero crossbar fields inherit the builder
// defaults.
type TileSpec struct {
	Name              string
	Processors        []ProcessorSpec
	TileMemory        int64
	CrossbarBandwidth float64
	CrossbarChannels  int
}

// Builder can build architectures. Either set a homogeneous shape with
// WithNumTiles/WithProcessorsPerTile or list tiles explicitly with WithTile.
type Builder struct {
	numTiles          int
	processorsPerTile int
	coreType          string
	localMemory       int64
	tileMemory        int64
	globalMemory      int64
	crossbarBW        float64
	crossbarChannels  int
	nocBW             float64
	nocChannels       int
	nocHopLatency     float64
	tiles             []TileSpec
}

// MakeBuilder returns a builder for a single-tile, single-core system.
func MakeBuilder() Builder {
	return Builder{
		numTiles:          1,
		processorsPerTile: 1,
		coreType:          "core",
		localMemory:       64 << 10,
		tileMemory:        1 << 20,
		globalMemory:      1 << 30,
		crossbarBW:        1,
		crossbarChannels:  1,
		nocBW:             1,
		nocChannels:       1,
	}
}

// WithNumTiles sets the number of homogeneous tiles.
func (b Builder) WithNumTiles(n int) Builder {
	b.numTiles = n
	return b
}

// WithProcessorsPerTile sets the number of cores in each homogeneous tile.
func (b Builder) WithProcessorsPerTile(n int) Builder {
	b.processorsPerTile = n
	return b
}

// WithCoreType sets the core-type tag of homogeneous cores.
func (b Builder) WithCoreType(t string) Builder {
	b.coreType = t
	return b
}

// WithLocalMemory sets the per-core scratchpad capacity in bytes.
func (b Builder) WithLocalMemory(bytes int64) Builder {
	b.localMemory = bytes
	return b
}

// WithTileMemory sets the tile-local memory capacity in bytes.
func (b Builder) WithTileMemory(bytes int64) Builder {
	b.tileMemory = bytes
	return b
}

// WithGlobalMemory sets the global memory capacity in bytes.
func (b Builder) WithGlobalMemory(bytes int64) Builder {
	b.globalMemory = bytes
	return b
}

// WithCrossbar sets the default crossbar bandwidth (GB/s) and channel count.
func (b Builder) WithCrossbar(bandwidth float64, channels int) Builder {
	b.crossbarBW = bandwidth
	b.crossbarChannels = channels
	return b
}

// WithNoC sets the NoC bandwidth (GB/s) and channel count.
func (b Builder) WithNoC(bandwidth float64, channels int) Builder {
	b.nocBW = bandwidth
	b.nocChannels = channels
	return b
}

// WithNoCHopLatency adds a per-mesh-hop latency (µs) to NoC transfers.
func (b Builder) WithNoCHopLatency(us float64) Builder {
	b.nocHopLatency = us
	return b
}

// WithTile appends an explicit tile. Once any tile is given the homogeneous
// shape is ignored.
func (b Builder) WithTile(spec TileSpec) Builder {
	b.tiles = append(append([]TileSpec(nil), b.tiles...), spec)
	return b
}

// Build creates the architecture.
func (b Builder) Build(name string) *Architecture {
	ids := NewIDAllocator()
	a := &Architecture{Name: name}

	specs := b.tiles
	if len(specs) == 0 {
		specs = b.homogeneousTiles(name)
	}

	var coords []MeshCoordinate
	a.MeshRows, a.MeshCols, coords = buildMesh(len(specs))

	for i, spec := range specs {
		b.buildTile(a, ids, spec, coords[i])
	}

	a.NoC = ids.Next(ClassInterconnect)
	noc := NewInterconnect(a.NoC, name+".NoC", KindNoC, b.nocBW, b.nocChannels)
	noc.HopLatency = b.nocHopLatency
	a.Interconnects = append(a.Interconnects, noc)

	a.GlobalMemory = ids.Next(ClassMemory)
	a.Memories = append(a.Memories,
		NewMemory(a.GlobalMemory, name+".GlobalMemory", MemoryGlobal, b.globalMemory))

	return a
}

func (b Builder) homogeneousTiles(name string) []TileSpec {
	specs := make([]TileSpec, 0, b.numTiles)
	for t := 0; t < b.numTiles; t++ {
		spec := TileSpec{
			Name:       fmt.Sprintf("%s.Tile[%d]", name, t),
			TileMemory: b.tileMemory,
		}
		for p := 0; p < b.processorsPerTile; p++ {
			spec.Processors = append(spec.Processors, ProcessorSpec{
				Name:        fmt.Sprintf("%s.Core[%d]", spec.Name, p),
				CoreType:    b.coreType,
				LocalMemory: b.localMemory,
			})
		}
		specs = append(specs, spec)
	}
	return specs
}

func (b Builder) buildTile(a *Architecture, ids *IDAllocator, spec TileSpec, coord MeshCoordinate) {
	tile := &Tile{
		ID:    ids.Next(ClassTile),
		Name:  spec.Name,
		Coord: coord,
	}

	bw := spec.CrossbarBandwidth
	if bw <= 0 {
		bw = b.crossbarBW
	}
	channels := spec.CrossbarChannels
	if channels <= 0 {
		channels = b.crossbarChannels
	}
	tile.Crossbar = ids.Next(ClassInterconnect)
	xbar := NewInterconnect(tile.Crossbar, spec.Name+".Crossbar", KindCrossbar, bw, channels)
	xbar.Tile = tile.ID
	a.Interconnects = append(a.Interconnects, xbar)

	tileMem := spec.TileMemory
	if tileMem <= 0 {
		tileMem = b.tileMemory
	}
	tile.TileMemory = ids.Next(ClassMemory)
	mem := NewMemory(tile.TileMemory, spec.Name+".TileMemory", MemoryTileLocal, tileMem)
	mem.Tile = tile.ID
	a.Memories = append(a.Memories, mem)

	for i, ps := range spec.Processors {
		p := &Processor{
			ID:       ids.Next(ClassProcessor),
			Name:     ps.Name,
			CoreType: ps.CoreType,
			Tile:     tile.ID,
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("%s.Core[%d]", spec.Name, i)
		}
		if p.CoreType == "" {
			p.CoreType = b.coreType
		}
		local := ps.LocalMemory
		if local <= 0 {
			local = b.localMemory
		}
		p.LocalMemory = ids.Next(ClassMemory)
		lm := NewMemory(p.LocalMemory, p.Name+".LocalMemory", MemoryLocal, local)
		lm.Processor = p.ID
		lm.Tile = tile.ID
		a.Memories = append(a.Memories, lm)
		a.Processors = append(a.Processors, p)
		tile.Processors = append(tile.Processors, p.ID)
	}

	a.Tiles = append(a.Tiles, tile)
}

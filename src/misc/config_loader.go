package misc

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
)

type InterconnectConfig struct {
	Bandwidth  float64 `yaml:"bandwidth" json:"bandwidth"`
	Channels   int     `yaml:"channels" json:"channels"`
	HopLatency float64 `yaml:"hop_latency" json:"hop_latency"`
}

type ProcessorConfig struct {
	Name        string `yaml:"name" json:"name"`
	CoreType    string `yaml:"core_type" json:"core_type"`
	LocalMemory int64  `yaml:"local_memory" json:"local_memory"`
}

type TileConfig struct {
	Name       string             `yaml:"name" json:"name"`
	Processors []ProcessorConfig  `yaml:"processors" json:"processors"`
	TileMemory int64              `yaml:"tile_memory" json:"tile_memory"`
	Crossbar   InterconnectConfig `yaml:"crossbar" json:"crossbar"`
}

// ArchitectureConfig describes either a homogeneous system (num_tiles,
// processors_per_tile) or explicit tiles.
type ArchitectureConfig struct {
	Name              string             `yaml:"name" json:"name"`
	NumTiles          int                `yaml:"num_tiles" json:"num_tiles"`
	ProcessorsPerTile int                `yaml:"processors_per_tile" json:"processors_per_tile"`
	CoreType          string             `yaml:"core_type" json:"core_type"`
	LocalMemory       int64              `yaml:"local_memory" json:"local_memory"`
	TileMemory        int64              `yaml:"tile_memory" json:"tile_memory"`
	GlobalMemory      int64              `yaml:"global_memory" json:"global_memory"`
	Crossbar          InterconnectConfig `yaml:"crossbar" json:"crossbar"`
	NoC               InterconnectConfig `yaml:"noc" json:"noc"`
	Tiles             []TileConfig       `yaml:"tiles" json:"tiles"`
}

type ActorConfig struct {
	Name     string `yaml:"name" json:"name"`
	Kind     string `yaml:"kind" json:"kind"`
	Priority int    `yaml:"priority" json:"priority"`
}

// FifoConfig is a point-to-point fifo when Dst is set and a multicast fifo
// when Dsts lists several readers.
type FifoConfig struct {
	Name      string   `yaml:"name" json:"name"`
	Src       string   `yaml:"src" json:"src"`
	Dst       string   `yaml:"dst" json:"dst"`
	Dsts      []string `yaml:"dsts" json:"dsts"`
	Prod      int      `yaml:"prod" json:"prod"`
	Cons      int      `yaml:"cons" json:"cons"`
	TokenSize int64    `yaml:"token_size" json:"token_size"`
	Initial   int      `yaml:"initial" json:"initial"`
	Capacity  int      `yaml:"capacity" json:"capacity"`
}

type ApplicationConfig struct {
	Name   string        `yaml:"name" json:"name"`
	Actors []ActorConfig `yaml:"actors" json:"actors"`
	Fifos  []FifoConfig  `yaml:"fifos" json:"fifos"`
}

type ActorBindingConfig struct {
	Actor     string  `yaml:"actor" json:"actor"`
	Processor string  `yaml:"processor" json:"processor"`
	Runtime   float64 `yaml:"runtime" json:"runtime"`
}

// FifoBindingConfig names a memory. "global" selects the global memory; an
// unbound fifo goes to the local memory of its writer.
type FifoBindingConfig struct {
	Fifo   string `yaml:"fifo" json:"fifo"`
	Memory string `yaml:"memory" json:"memory"`
}

type BindingConfig struct {
	Actors []ActorBindingConfig `yaml:"actors" json:"actors"`
	Fifos  []FifoBindingConfig  `yaml:"fifos" json:"fifos"`
}

type SchedulerConfig struct {
	Mode            string  `yaml:"mode" json:"mode"`
	Search          string  `yaml:"search" json:"search"`
	StepMHz         float64 `yaml:"step_mhz" json:"step_mhz"`
	MaxPeriod       int     `yaml:"max_period" json:"max_period"`
	MaxRemaps       int     `yaml:"max_remaps" json:"max_remaps"`
	Iterations      int     `yaml:"iterations" json:"iterations"`
	RecurrenceCheck *bool   `yaml:"recurrence_check" json:"recurrence_check"`
}

// Scenario is one scheduling problem: hardware, application, binding and
// scheduler settings.
type Scenario struct {
	Architecture ArchitectureConfig `yaml:"architecture" json:"architecture"`
	Application  ApplicationConfig  `yaml:"application" json:"application"`
	Binding      BindingConfig      `yaml:"binding" json:"binding"`
	Scheduler    SchedulerConfig    `yaml:"scheduler" json:"scheduler"`
}

func LoadScenario(path string) (*Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open scenario %s", path)
	}
	defer file.Close()

	scenario, err := DecodeScenario(file)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	return scenario, nil
}

// DecodeScenario reads a YAML (or JSON) scenario.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	scenario := &Scenario{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(scenario); err != nil {
		return nil, fault.New(fault.InvalidInput, "malformed scenario: %v", err)
	}
	return scenario, nil
}

func (this *Scenario) BuildArchitecture() *arch.Architecture {
	config := this.Architecture
	builder := arch.MakeBuilder()
	if config.NumTiles > 0 {
		builder = builder.WithNumTiles(config.NumTiles)
	}
	if config.ProcessorsPerTile > 0 {
		builder = builder.WithProcessorsPerTile(config.ProcessorsPerTile)
	}
	if config.CoreType != "" {
		builder = builder.WithCoreType(config.CoreType)
	}
	if config.LocalMemory > 0 {
		builder = builder.WithLocalMemory(config.LocalMemory)
	}
	if config.TileMemory > 0 {
		builder = builder.WithTileMemory(config.TileMemory)
	}
	if config.GlobalMemory > 0 {
		builder = builder.WithGlobalMemory(config.GlobalMemory)
	}
	if config.Crossbar.Bandwidth > 0 && config.Crossbar.Channels > 0 {
		builder = builder.WithCrossbar(config.Crossbar.Bandwidth, config.Crossbar.Channels)
	}
	if config.NoC.Bandwidth > 0 && config.NoC.Channels > 0 {
		builder = builder.WithNoC(config.NoC.Bandwidth, config.NoC.Channels)
	}
	if config.NoC.HopLatency > 0 {
		builder = builder.WithNoCHopLatency(config.NoC.HopLatency)
	}

	for i, tile := range config.Tiles {
		spec := arch.TileSpec{
			Name:              tile.Name,
			TileMemory:        tile.TileMemory,
			CrossbarBandwidth: tile.Crossbar.Bandwidth,
			CrossbarChannels:  tile.Crossbar.Channels,
		}
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("%s.Tile[%d]", this.architectureName(), i)
		}
		for _, p := range tile.Processors {
			spec.Processors = append(spec.Processors, arch.ProcessorSpec{
				Name:        p.Name,
				CoreType:    p.CoreType,
				LocalMemory: p.LocalMemory,
			})
		}
		builder = builder.WithTile(spec)
	}
	return builder.Build(this.architectureName())
}

func (this *Scenario) architectureName() string {
	if this.Architecture.Name == "" {
		return "Arch"
	}
	return this.Architecture.Name
}

func actorKindFromString(value string) (app.ActorKind, bool) {
	switch value {
	case "", "plain":
		return app.ActorPlain, true
	case "multicast":
		return app.ActorMulticast, true
	default:
		return app.ActorPlain, false
	}
}

func (this *Scenario) BuildGraph() (*app.Graph, error) {
	g := app.NewGraph(this.Application.Name)
	for _, actor := range this.Application.Actors {
		kind, ok := actorKindFromString(actor.Kind)
		if !ok {
			return nil, fault.New(fault.InvalidInput, "actor %s has unknown kind %s", actor.Name, actor.Kind)
		}
		if _, dup := g.ActorByName(actor.Name); dup {
			return nil, fault.New(fault.InvalidInput, "actor %s is declared twice", actor.Name)
		}
		g.AddActor(actor.Name, kind, actor.Priority)
	}

	lookup := func(fifo, name string) (int, error) {
		actor, ok := g.ActorByName(name)
		if !ok {
			return 0, fault.New(fault.InvalidInput, "fifo %s references unknown actor %q", fifo, name)
		}
		return actor.ID, nil
	}

	for _, f := range this.Application.Fifos {
		src, err := lookup(f.Name, f.Src)
		if err != nil {
			return nil, err
		}
		prod, cons := f.Prod, f.Cons
		if prod == 0 {
			prod = 1
		}
		if cons == 0 {
			cons = 1
		}

		var id int
		if len(f.Dsts) > 0 {
			dsts := make([]int, 0, len(f.Dsts))
			for _, name := range f.Dsts {
				dst, err := lookup(f.Name, name)
				if err != nil {
					return nil, err
				}
				dsts = append(dsts, dst)
			}
			id = g.Multicast(f.Name, src, dsts, prod, cons, f.TokenSize)
		} else {
			dst, err := lookup(f.Name, f.Dst)
			if err != nil {
				return nil, err
			}
			id = g.Connect(f.Name, src, dst, prod, cons, f.TokenSize, f.Initial)
		}
		if f.Capacity > 0 {
			g.Fifo(id).Capacity = f.Capacity
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (this *Scenario) BuildBinding(a *arch.Architecture, g *app.Graph) (*binding.Binding, error) {
	b := binding.New(g)
	for _, ab := range this.Binding.Actors {
		actor, ok := g.ActorByName(ab.Actor)
		if !ok {
			return nil, fault.New(fault.InvalidInput, "binding references unknown actor %q", ab.Actor)
		}
		p, ok := a.ProcessorByName(ab.Processor)
		if !ok {
			return nil, fault.New(fault.InvalidInput, "actor %s is bound to unknown processor %q",
				ab.Actor, ab.Processor).WithActor(actor.ID)
		}
		if err := b.BindActor(a, actor.ID, p.ID, ab.Runtime); err != nil {
			return nil, err
		}
	}

	for _, fb := range this.Binding.Fifos {
		f, ok := g.FifoByName(fb.Fifo)
		if !ok {
			return nil, fault.New(fault.InvalidInput, "binding references unknown fifo %q", fb.Fifo)
		}
		memory := a.GlobalMemory
		if fb.Memory != "global" {
			m, ok := a.MemoryByName(fb.Memory)
			if !ok {
				return nil, fault.New(fault.InvalidInput, "fifo %s is bound to unknown memory %q",
					fb.Fifo, fb.Memory).WithFifo(f.ID)
			}
			memory = m.ID
		}
		if err := b.BindFifo(a, f.ID, memory); err != nil {
			return nil, err
		}
	}

	for _, f := range g.Fifos {
		if b.FifoMemory[f.ID] != binding.Unbound {
			continue
		}
		p := a.Processor(b.Processor(f.Src))
		if p == nil {
			continue
		}
		if err := b.BindFifo(a, f.ID, p.LocalMemory); err != nil {
			return nil, err
		}
	}

	if err := b.Validate(a, g); err != nil {
		return nil, err
	}
	return b, nil
}

// Build materialises the scenario.
func (this *Scenario) Build() (*arch.Architecture, *app.Graph, *binding.Binding, error) {
	a := this.BuildArchitecture()
	if err := a.Validate(); err != nil {
		return nil, nil, nil, err
	}
	g, err := this.BuildGraph()
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := this.BuildBinding(a, g)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, g, b, nil
}

package simulator

import (
	"fmt"
	"path/filepath"
	"strconv"

	"dsesim/src/misc"
	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/modulo"
	"dsesim/src/simulator/replay"
	"dsesim/src/simulator/trace"
)

// Remap records one fifo moved to a larger memory.
type Remap struct {
	Fifo string `json:"fifo"`
	From string `json:"from"`
	To   string `json:"to"`
}

type FifoReport struct {
	Name      string `json:"name"`
	Memory    string `json:"memory"`
	Capacity  int    `json:"capacity"`
	MaxTokens int    `json:"max_tokens"`
	Footprint int64  `json:"footprint"`
}

type ProcessorReport struct {
	Name        string  `json:"name"`
	Firings     int     `json:"firings"`
	Busy        float64 `json:"busy_us"`
	Utilization float64 `json:"utilization"`
}

type MemoryReport struct {
	Name        string  `json:"name"`
	Capacity    int64   `json:"capacity"`
	Peak        int64   `json:"peak"`
	Utilization float64 `json:"utilization"`
}

type InterconnectReport struct {
	Name      string `json:"name"`
	Transfers int64  `json:"transfers"`
	Bytes     int64  `json:"bytes"`
}

// Report summarises a finished simulation.
type Report struct {
	Application    string  `json:"application"`
	Architecture   string  `json:"architecture"`
	Scheduler      string  `json:"scheduler"`
	Period         int     `json:"period"`
	PeriodUS       float64 `json:"period_us"`
	ResII          int     `json:"res_ii"`
	RecII          int     `json:"rec_ii"`
	MII            int     `json:"mii"`
	Stages         int     `json:"stages"`
	KernelStart    int     `json:"kernel_start"`
	Attempts       int     `json:"attempts"`
	Iterations     int     `json:"iterations"`
	Makespan       float64 `json:"makespan_us"`
	AchievedPeriod float64 `json:"achieved_period_us"`

	Remaps        []Remap              `json:"remaps"`
	Fifos         []FifoReport         `json:"fifos"`
	Processors    []ProcessorReport    `json:"processors"`
	Memories      []MemoryReport       `json:"memories"`
	Interconnects []InterconnectReport `json:"interconnects"`

	Actions   []arch.Action   `json:"-"`
	Transfers []arch.Transfer `json:"-"`
	Trace     *replay.Trace   `json:"-"`

	arch  *arch.Architecture
	graph *app.Graph
}

func newReport(
	a *arch.Architecture,
	g *app.Graph,
	fifoMemory []int,
	planner string,
	res *modulo.Result,
	periodUS float64,
	iterations int,
	remaps []Remap,
	replayed *replay.Trace,
) *Report {
	report := &Report{
		Application:    g.Name,
		Architecture:   a.Name,
		Scheduler:      planner,
		PeriodUS:       periodUS,
		Iterations:     iterations,
		Makespan:       replayed.Makespan,
		AchievedPeriod: replayed.AchievedPeriod,
		Remaps:         append([]Remap{}, remaps...),
		Actions:        replayed.Actions,
		Transfers:      replayed.Transfers,
		Trace:          replayed,

		arch:  a,
		graph: g,
	}
	if res != nil {
		report.Period = res.Period
		report.ResII = res.Bounds.ResII
		report.RecII = res.Bounds.RecII
		report.MII = res.Bounds.MII
		report.Stages = res.Kernel.Stages
		report.KernelStart = res.Kernel.StepStart
		report.Attempts = res.Attempts
	}

	for _, f := range g.Fifos {
		report.Fifos = append(report.Fifos, FifoReport{
			Name:      f.Name,
			Memory:    a.Memories[fifoMemory[f.ID]].Name,
			Capacity:  f.Capacity,
			MaxTokens: replayed.MaxTokens[f.ID],
			Footprint: f.Footprint(),
		})
	}

	for _, p := range a.Processors {
		busy := 0.0
		for _, action := range p.Actions {
			busy += action.Due - action.Start
		}
		pr := ProcessorReport{Name: p.Name, Firings: len(p.Actions), Busy: busy}
		if replayed.Makespan > 0 {
			pr.Utilization = busy / replayed.Makespan
		}
		report.Processors = append(report.Processors, pr)
	}

	for _, m := range a.Memories {
		report.Memories = append(report.Memories, MemoryReport{
			Name:        m.Name,
			Capacity:    m.Capacity,
			Peak:        m.Peak(),
			Utilization: m.Utilization(replayed.Makespan),
		})
	}

	for _, ic := range a.Interconnects {
		transfers, bytes := ic.Totals()
		report.Interconnects = append(report.Interconnects, InterconnectReport{
			Name:      ic.Name,
			Transfers: transfers,
			Bytes:     bytes,
		})
	}
	return report
}

// SummaryLines renders the report header and per-resource statistics.
func (this *Report) SummaryLines() []string {
	lines := []string{
		fmt.Sprintf("application=%s", this.Application),
		fmt.Sprintf("architecture=%s", this.Architecture),
		fmt.Sprintf("scheduler=%s", this.Scheduler),
		fmt.Sprintf("period=%d", this.Period),
		fmt.Sprintf("period_us=%.6f", this.PeriodUS),
		fmt.Sprintf("mii=%d res_ii=%d rec_ii=%d", this.MII, this.ResII, this.RecII),
		fmt.Sprintf("stages=%d kernel_start=%d attempts=%d", this.Stages, this.KernelStart, this.Attempts),
		fmt.Sprintf("iterations=%d", this.Iterations),
		fmt.Sprintf("makespan_us=%.6f", this.Makespan),
		fmt.Sprintf("achieved_period_us=%.6f", this.AchievedPeriod),
		fmt.Sprintf("remaps=%d", len(this.Remaps)),
	}
	for _, r := range this.Remaps {
		lines = append(lines, fmt.Sprintf("remap %s: %s -> %s", r.Fifo, r.From, r.To))
	}
	for _, f := range this.Fifos {
		lines = append(lines, fmt.Sprintf("fifo %s memory=%s capacity=%d max_tokens=%d footprint=%d",
			f.Name, f.Memory, f.Capacity, f.MaxTokens, f.Footprint))
	}
	for _, p := range this.Processors {
		lines = append(lines, fmt.Sprintf("processor %s firings=%d busy_us=%.6f utilization=%.4f",
			p.Name, p.Firings, p.Busy, p.Utilization))
	}
	for _, m := range this.Memories {
		lines = append(lines, fmt.Sprintf("memory %s capacity=%d peak=%d utilization=%.4f",
			m.Name, m.Capacity, m.Peak, m.Utilization))
	}
	for _, ic := range this.Interconnects {
		lines = append(lines, fmt.Sprintf("interconnect %s transfers=%d bytes=%d",
			ic.Name, ic.Transfers, ic.Bytes))
	}
	return lines
}

// ActionLines renders the action timeline as CSV.
func (this *Report) ActionLines() []string {
	records := [][]string{{"actor", "processor", "iteration", "start_us", "due_us"}}
	for _, a := range this.Actions {
		records = append(records, []string{
			strconv.Itoa(a.Actor), strconv.Itoa(a.Processor), strconv.Itoa(a.Iteration),
			trace.Micros(a.Start), trace.Micros(a.Due),
		})
	}
	return trace.CSVLines(records)
}

// TransferLines renders the transfers as CSV.
func (this *Report) TransferLines() []string {
	records := [][]string{{
		"direction", "fifo", "actor", "processor", "iteration", "bytes",
		"interconnect", "channel", "start_us", "due_us",
	}}
	for _, t := range this.Transfers {
		records = append(records, []string{
			t.Direction.String(), strconv.Itoa(t.Fifo), strconv.Itoa(t.Actor),
			strconv.Itoa(t.Processor), strconv.Itoa(t.Iteration),
			strconv.FormatInt(t.Bytes, 10), strconv.Itoa(t.Interconnect),
			strconv.Itoa(t.Channel), trace.Micros(t.Start), trace.Micros(t.Due),
		})
	}
	return trace.CSVLines(records)
}

// TraceLines renders the replay as akita tracing tasks in CSV.
func (this *Report) TraceLines() []string {
	collector := trace.NewCollector()
	if this.Trace != nil && this.arch != nil {
		trace.Export(collector, this.arch, this.graph, this.Trace)
	}
	return collector.Lines()
}

// Dump writes the summary, timelines and trace into dirpath.
func (this *Report) Dump(dirpath string) error {
	files := map[string][]string{
		"summary.txt":   this.SummaryLines(),
		"actions.csv":   this.ActionLines(),
		"transfers.csv": this.TransferLines(),
		"trace.csv":     this.TraceLines(),
	}
	for name, lines := range files {
		file_dumper := new(misc.FileDumper)
		file_dumper.Init(filepath.Join(dirpath, name))
		if err := file_dumper.WriteLines(lines); err != nil {
			return err
		}
	}
	return nil
}

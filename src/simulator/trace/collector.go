package trace

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/sarchlab/akita/v3/sim"
	"github.com/sarchlab/akita/v3/tracing"
	"golang.org/x/exp/slices"
)

// Collector is a tracer that keeps every finished task in memory.
type Collector struct {
	inflight map[string]tracing.Task
	tasks    []tracing.Task
}

func NewCollector() *Collector {
	return &Collector{inflight: make(map[string]tracing.Task)}
}

func (c *Collector) StartTask(task tracing.Task) {
	c.inflight[task.ID] = task
}

func (c *Collector) StepTask(task tracing.Task) {
	orig, ok := c.inflight[task.ID]
	if !ok {
		return
	}
	orig.Steps = append(orig.Steps, task.Steps...)
	c.inflight[task.ID] = orig
}

func (c *Collector) EndTask(task tracing.Task) {
	orig, ok := c.inflight[task.ID]
	if !ok {
		return
	}
	delete(c.inflight, task.ID)
	orig.EndTime = task.EndTime
	c.tasks = append(c.tasks, orig)
}

// Tasks returns finished tasks ordered by start time, then id.
func (c *Collector) Tasks() []tracing.Task {
	out := slices.Clone(c.tasks)
	slices.SortStableFunc(out, func(x, y tracing.Task) int {
		switch {
		case x.StartTime < y.StartTime:
			return -1
		case x.StartTime > y.StartTime:
			return 1
		default:
			return strings.Compare(x.ID, y.ID)
		}
	})
	return out
}

// BusyTime sums the durations of finished tasks of kind at where.
func (c *Collector) BusyTime(kind, where string) sim.VTimeInSec {
	var busy sim.VTimeInSec
	for _, t := range c.tasks {
		if t.Kind == kind && t.Where == where {
			busy += t.EndTime - t.StartTime
		}
	}
	return busy
}

// Lines renders the finished tasks as CSV, start and end in µs.
func (c *Collector) Lines() []string {
	tasks := c.Tasks()
	records := make([][]string, 0, len(tasks)+1)
	records = append(records, []string{"id", "parent", "kind", "what", "where", "start_us", "end_us"})
	for _, t := range tasks {
		records = append(records, []string{
			t.ID, t.ParentID, t.Kind, t.What, t.Where,
			Micros(float64(t.StartTime) * 1e6), Micros(float64(t.EndTime) * 1e6),
		})
	}
	return CSVLines(records)
}

// CSVLines encodes each record as one CSV line. Fields holding commas,
// quotes or newlines are quoted.
func CSVLines(records [][]string) []string {
	lines := make([]string, 0, len(records))
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, record := range records {
		buf.Reset()
		// Writes into a bytes.Buffer cannot fail.
		_ = w.Write(record)
		w.Flush()
		lines = append(lines, strings.TrimSuffix(buf.String(), "\n"))
	}
	return lines
}

// Micros formats a time in µs with fixed precision.
func Micros(us float64) string {
	return strconv.FormatFloat(us, 'f', 6, 64)
}

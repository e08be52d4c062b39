// Package trace exports replayed schedules as akita tracing tasks so they can
// be fed to any akita tracer.
package trace

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v3/sim"
	"github.com/sarchlab/akita/v3/tracing"

	"dsesim/src/simulator/app"
	"dsesim/src/simulator/arch"
	"dsesim/src/simulator/replay"
)

const (
	KindAction   = "action"
	KindTransfer = "transfer"
)

type firingKey struct {
	actor     int
	iteration int
}

func seconds(us float64) sim.VTimeInSec {
	return sim.VTimeInSec(us * 1e-6)
}

// Export emits one task per action and one child task per transfer of the
// same firing.
func Export(tracer tracing.Tracer, a *arch.Architecture, g *app.Graph, t *replay.Trace) {
	parents := make(map[firingKey]string, len(t.Actions))
	for _, action := range t.Actions {
		task := tracing.Task{
			ID:        xid.New().String(),
			Kind:      KindAction,
			What:      g.Actors[action.Actor].Name,
			Where:     a.Processors[action.Processor].Name,
			StartTime: seconds(action.Start),
			EndTime:   seconds(action.Due),
			Detail:    action,
		}
		parents[firingKey{action.Actor, action.Iteration}] = task.ID
		tracer.StartTask(task)
		tracer.EndTask(task)
	}

	for _, tr := range t.Transfers {
		task := tracing.Task{
			ID:        xid.New().String(),
			ParentID:  parents[firingKey{tr.Actor, tr.Iteration}],
			Kind:      KindTransfer,
			What:      fmt.Sprintf("%s %s", tr.Direction, g.Fifos[tr.Fifo].Name),
			Where:     where(a, tr),
			StartTime: seconds(tr.Start),
			EndTime:   seconds(tr.Due),
			Detail:    tr,
		}
		tracer.StartTask(task)
		tracer.EndTask(task)
	}
}

// where names the last interconnect a transfer crossed, or the processor for
// scratchpad accesses.
func where(a *arch.Architecture, tr arch.Transfer) string {
	if ic := a.Interconnect(tr.Interconnect); ic != nil {
		return ic.Name
	}
	if p := a.Processor(tr.Processor); p != nil {
		return p.Name
	}
	return "unknown"
}

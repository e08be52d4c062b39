package misc

// SchedulerMode selects how the simulator plans a binding before replaying
// it.
type SchedulerMode string

const (
	// SchedulerModeBaseline schedules actors only; communication is
	// accounted for during replay.
	SchedulerModeBaseline SchedulerMode = "baseline"
	// SchedulerModeComm schedules every fifo access as its own task on the
	// crossbars, NoC and memory ports it uses.
	SchedulerModeComm SchedulerMode = "comm"
	// SchedulerModeFCFS skips period search and fires actors as soon as
	// tokens and processors allow.
	SchedulerModeFCFS SchedulerMode = "fcfs"
)

func DefaultSchedulerMode() SchedulerMode {
	return SchedulerModeComm
}

func SchedulerModes() []SchedulerMode {
	return []SchedulerMode{SchedulerModeBaseline, SchedulerModeComm, SchedulerModeFCFS}
}

// SchedulerModeFromString converts value into a SchedulerMode. The bool is
// false for unknown values.
func SchedulerModeFromString(value string) (SchedulerMode, bool) {
	for _, mode := range SchedulerModes() {
		if value == string(mode) {
			return mode, true
		}
	}
	return "", false
}

// Package fault defines the error kinds produced by the scheduling engine.
// Callers branch on the kind (remap, escalate, reject) instead of parsing
// messages.
package fault

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a scheduling failure.
type Kind int

const (
	KindUnknown Kind = iota
	// CapacityViolation: a memory write would exceed capacity (or drive the
	// occupancy negative), or a fifo footprint cannot be placed anywhere.
	CapacityViolation
	// UnschedulableWithinPeriod: no conflict-free slot exists for an actor or
	// communication task inside the current period.
	UnschedulableWithinPeriod
	// InfeasibleRecurrence: the recurrence bound exceeds every period tried.
	InfeasibleRecurrence
	// InvalidRouting: a transfer endpoint combination matches no routing rule.
	InvalidRouting
	// InvalidInput: malformed graph, architecture or binding.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case CapacityViolation:
		return "capacity-violation"
	case UnschedulableWithinPeriod:
		return "unschedulable-within-period"
	case InfeasibleRecurrence:
		return "infeasible-recurrence"
	case InvalidRouting:
		return "invalid-routing"
	case InvalidInput:
		return "invalid-input"
	default:
		return "unknown"
	}
}

// None marks an id field that does not apply to an error.
const None = -1

// Error is the concrete error type of the engine. The id fields name the
// offending objects; fields that do not apply hold None.
type Error struct {
	Kind   Kind
	Actor  int
	Fifo   int
	Memory int
	Period int
	Msg    string
}

func (e *Error) Error() string {
	parts := []string{e.Kind.String()}
	if e.Actor != None {
		parts = append(parts, fmt.Sprintf("actor=%d", e.Actor))
	}
	if e.Fifo != None {
		parts = append(parts, fmt.Sprintf("fifo=%d", e.Fifo))
	}
	if e.Memory != None {
		parts = append(parts, fmt.Sprintf("memory=%d", e.Memory))
	}
	if e.Period > 0 {
		parts = append(parts, fmt.Sprintf("period=%d", e.Period))
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	return strings.Join(parts, " ")
}

// New returns an error of the given kind with no object ids attached.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:   kind,
		Actor:  None,
		Fifo:   None,
		Memory: None,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// WithActor attaches the offending actor id.
func (e *Error) WithActor(id int) *Error {
	e.Actor = id
	return e
}

// WithFifo attaches the offending fifo id.
func (e *Error) WithFifo(id int) *Error {
	e.Fifo = id
	return e
}

// WithMemory attaches the offending memory id.
func (e *Error) WithMemory(id int) *Error {
	e.Memory = id
	return e
}

// WithPeriod records the period at which the failure happened.
func (e *Error) WithPeriod(p int) *Error {
	e.Period = p
	return e
}

// As unwraps err (including pkg/errors wrapping) down to an *Error.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

package arch

import (
	"golang.org/x/exp/slices"

	"dsesim/src/simulator/fault"
)

// MemoryKind tells where a memory sits in the hierarchy.
type MemoryKind int

const (
	MemoryLocal MemoryKind = iota
	MemoryTileLocal
	MemoryGlobal
)

func (k MemoryKind) String() string {
	switch k {
	case MemoryLocal:
		return "local"
	case MemoryTileLocal:
		return "tile-local"
	case MemoryGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// breakpoint holds the occupancy valid from Time until the next breakpoint.
type breakpoint struct {
	Time  float64
	Bytes int64
}

// Memory is a storage resource with a time-indexed occupancy step function.
// Processor is set for local memories, Tile for local and tile-local ones;
// unused owner fields hold -1.
type Memory struct {
	ID        int
	Name      string
	Kind      MemoryKind
	Capacity  int64
	Processor int
	Tile      int

	points []breakpoint
}

// NewMemory creates an empty memory with the given capacity in bytes.
func NewMemory(id int, name string, kind MemoryKind, capacity int64) *Memory {
	if capacity < 0 {
		capacity = 0
	}
	return &Memory{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Capacity:  capacity,
		Processor: -1,
		Tile:      -1,
	}
}

// Reset drops every breakpoint.
func (m *Memory) Reset() {
	m.points = nil
}

// CanReserve checks whether bytes more would fit at the peak occupancy.
func (m *Memory) CanReserve(bytes int64) bool {
	if bytes <= 0 {
		return true
	}
	return m.Peak()+bytes <= m.Capacity
}

// Peak returns the highest occupancy over all breakpoints.
func (m *Memory) Peak() int64 {
	var peak int64
	for _, p := range m.points {
		if p.Bytes > peak {
			peak = p.Bytes
		}
	}
	return peak
}

// OccupancyAt returns the bytes held at time t.
func (m *Memory) OccupancyAt(t float64) int64 {
	idx := afterTime(m.points, t)
	if idx == 0 {
		return 0
	}
	return m.points[idx-1].Bytes
}

// afterTime returns the index of the first breakpoint strictly after t.
func afterTime(points []breakpoint, t float64) int {
	idx, _ := slices.BinarySearchFunc(points, t, func(p breakpoint, t float64) int {
		if p.Time <= t {
			return -1
		}
		return 1
	})
	return idx
}

// Write adds bytes from time t on.
func (m *Memory) Write(bytes int64, t float64) error {
	return m.apply(bytes, t)
}

// Read removes bytes from time t on.
func (m *Memory) Read(bytes int64, t float64) error {
	return m.apply(-bytes, t)
}

// apply shifts the step function by delta from t on. The new function is
// validated before it replaces the old one so a fault leaves it untouched.
func (m *Memory) apply(delta int64, t float64) error {
	if delta == 0 {
		return nil
	}

	n := len(m.points)
	if n == 0 || t > m.points[n-1].Time {
		prev := int64(0)
		if n > 0 {
			prev = m.points[n-1].Bytes
		}
		if err := m.check(prev+delta, t); err != nil {
			return err
		}
		m.points = append(m.points, breakpoint{Time: t, Bytes: prev + delta})
		return nil
	}

	idx, _ := slices.BinarySearchFunc(m.points, t, func(p breakpoint, t float64) int {
		if p.Time < t {
			return -1
		}
		if p.Time > t {
			return 1
		}
		return 0
	})
	next := make([]breakpoint, 0, n+1)
	next = append(next, m.points[:idx]...)
	if m.points[idx].Time != t {
		before := int64(0)
		if idx > 0 {
			before = m.points[idx-1].Bytes
		}
		next = append(next, breakpoint{Time: t, Bytes: before})
	}
	next = append(next, m.points[idx:]...)

	for i := idx; i < len(next); i++ {
		next[i].Bytes += delta
		if err := m.check(next[i].Bytes, next[i].Time); err != nil {
			return err
		}
	}
	m.points = next
	return nil
}

func (m *Memory) check(bytes int64, t float64) error {
	if bytes < 0 {
		return fault.New(fault.CapacityViolation,
			"%s occupancy would drop to %d bytes at t=%.3fus", m.Name, bytes, t).
			WithMemory(m.ID)
	}
	if bytes > m.Capacity {
		return fault.New(fault.CapacityViolation,
			"%s needs %d of %d bytes at t=%.3fus", m.Name, bytes, m.Capacity, t).
			WithMemory(m.ID)
	}
	return nil
}

// Utilization integrates the occupancy over [0,end) and normalises it by
// capacity*end.
func (m *Memory) Utilization(end float64) float64 {
	if end <= 0 || m.Capacity <= 0 {
		return 0
	}
	area := 0.0
	for i, p := range m.points {
		if p.Time >= end {
			break
		}
		until := end
		if i+1 < len(m.points) && m.points[i+1].Time < end {
			until = m.points[i+1].Time
		}
		area += (until - p.Time) * float64(p.Bytes)
	}
	return area / (float64(m.Capacity) * end)
}

// Breakpoints returns a copy of the step function as (time, bytes) pairs.
func (m *Memory) Breakpoints() ([]float64, []int64) {
	times := make([]float64, len(m.points))
	bytes := make([]int64, len(m.points))
	for i, p := range m.points {
		times[i] = p.Time
		bytes[i] = p.Bytes
	}
	return times, bytes
}

func (m *Memory) clone() *Memory {
	c := *m
	c.points = append([]breakpoint(nil), m.points...)
	return &c
}

package arch

import (
	"math"
	"testing"

	"dsesim/src/simulator/fault"
)

func TestMemoryAppendAndOccupancy(t *testing.T) {
	t.Parallel()

	m := NewMemory(0, "m", MemoryLocal, 100)
	if err := m.Write(40, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Write(30, 3); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Read(50, 5); err != nil {
		t.Fatalf("read: %v", err)
	}

	cases := []struct {
		at   float64
		want int64
	}{
		{0, 0}, {1, 40}, {2, 40}, {3, 70}, {4.9, 70}, {5, 20}, {100, 20},
	}
	for _, c := range cases {
		if got := m.OccupancyAt(c.at); got != c.want {
			t.Fatalf("occupancy at %.1f: got %d, want %d", c.at, got, c.want)
		}
	}
	if m.Peak() != 70 {
		t.Fatalf("expected peak 70, got %d", m.Peak())
	}
}

func TestMemoryOutOfOrderWriteShiftsLaterBreakpoints(t *testing.T) {
	t.Parallel()

	m := NewMemory(0, "m", MemoryTileLocal, 100)
	_ = m.Write(10, 2)
	_ = m.Write(10, 6)

	if err := m.Write(5, 4); err != nil {
		t.Fatalf("out-of-order write: %v", err)
	}

	times, bytes := m.Breakpoints()
	wantTimes := []float64{2, 4, 6}
	wantBytes := []int64{10, 15, 25}
	if len(times) != len(wantTimes) {
		t.Fatalf("expected %d breakpoints, got %d (%v)", len(wantTimes), len(times), times)
	}
	for i := range wantTimes {
		if times[i] != wantTimes[i] || bytes[i] != wantBytes[i] {
			t.Fatalf("breakpoint %d: got (%.1f,%d), want (%.1f,%d)",
				i, times[i], bytes[i], wantTimes[i], wantBytes[i])
		}
	}

	// Overwriting an existing key keeps the key count.
	if err := m.Read(5, 4); err != nil {
		t.Fatalf("read at existing key: %v", err)
	}
	if got := m.OccupancyAt(4); got != 10 {
		t.Fatalf("expected 10 bytes at t=4, got %d", got)
	}
	if times, _ := m.Breakpoints(); len(times) != 3 {
		t.Fatalf("expected 3 breakpoints after overwrite, got %d", len(times))
	}
}

func TestMemoryCapacityViolationLeavesMapUnchanged(t *testing.T) {
	t.Parallel()

	m := NewMemory(3, "m", MemoryLocal, 100)
	_ = m.Write(60, 1)
	_ = m.Write(30, 5)

	err := m.Write(20, 2)
	if !fault.Is(err, fault.CapacityViolation) {
		t.Fatalf("expected capacity violation, got %v", err)
	}
	if e, _ := fault.As(err); e.Memory != 3 {
		t.Fatalf("expected memory id 3 on fault, got %d", e.Memory)
	}

	times, bytes := m.Breakpoints()
	if len(times) != 2 || bytes[0] != 60 || bytes[1] != 90 {
		t.Fatalf("occupancy map changed after fault: %v %v", times, bytes)
	}

	if err := m.Read(70, 0.5); !fault.Is(err, fault.CapacityViolation) {
		t.Fatalf("expected negative occupancy to fault, got %v", err)
	}
	for _, b := range bytes {
		if b < 0 || b > m.Capacity {
			t.Fatalf("breakpoint outside [0,capacity]: %d", b)
		}
	}
}

func TestMemoryUtilization(t *testing.T) {
	t.Parallel()

	m := NewMemory(0, "m", MemoryGlobal, 100)
	_ = m.Write(50, 0)
	_ = m.Read(50, 5)

	// 50 bytes over [0,5) out of 100 bytes over [0,10).
	if got := m.Utilization(10); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("expected utilization 0.25, got %f", got)
	}
	if got := m.Utilization(0); got != 0 {
		t.Fatalf("expected zero utilization for empty window, got %f", got)
	}
}

func TestMemoryCanReserve(t *testing.T) {
	t.Parallel()

	m := NewMemory(0, "m", MemoryLocal, 1000)
	if !m.CanReserve(1000) {
		t.Fatalf("empty memory should fit its capacity")
	}
	_ = m.Write(600, 0)
	_ = m.Read(600, 1)
	if m.CanReserve(500) {
		t.Fatalf("peak of 600 leaves only 400 bytes")
	}
	m.Reset()
	if !m.CanReserve(1000) {
		t.Fatalf("reset memory should be empty")
	}
}

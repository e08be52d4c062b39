package utable

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Unbounded is the available length of a gap with no reservation after it.
const Unbounded = math.MaxInt32

// Kind is the class of a resource pool.
type Kind int

const (
	KindCore Kind = iota
	KindCrossbar
	KindNoC
	KindMemoryPort
)

func (k Kind) String() string {
	switch k {
	case KindCore:
		return "core"
	case KindCrossbar:
		return "crossbar"
	case KindNoC:
		return "noc"
	case KindMemoryPort:
		return "memport"
	default:
		return "unknown"
	}
}

// Key identifies a pool. Instance is a core-type index, a processor id or an
// interconnect id depending on the scheduler.
type Key struct {
	Kind     Kind
	Instance int
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%d]", k.Kind, k.Instance)
}

// Lane is one resource instance inside a pool.
type Lane struct {
	Pool  int
	Index int
}

// TimeSlot is a reservation on one lane. With a period, Start and End are
// folded into [0, period).
type TimeSlot struct {
	Resource Lane
	Start    int
	End      int
	Owner    int
}

// Gap is a proposed start and the free length available from it.
type Gap struct {
	Start  int
	Length int
}

// Placement is one interval to reserve on one lane of each listed pool.
type Placement struct {
	Pools []int
	Start int
	End   int
	Owner int
}

type pool struct {
	key   Key
	lanes [][]TimeSlot
}

// Table is a conflict table over pools of interchangeable lanes. A positive
// period makes it periodic; zero makes it aperiodic.
type Table struct {
	period int
	pools  []*pool
	index  map[Key]int
}

func New(period int) *Table {
	return &Table{
		period: period,
		index:  make(map[Key]int),
	}
}

// Period returns the folding period, zero when aperiodic.
func (t *Table) Period() int {
	return t.period
}

// AddPool registers a pool with the given lane count and returns its id. An
// already registered key returns the existing id.
func (t *Table) AddPool(key Key, lanes int) int {
	if id, ok := t.index[key]; ok {
		return id
	}
	if lanes < 1 {
		lanes = 1
	}
	id := len(t.pools)
	t.pools = append(t.pools, &pool{key: key, lanes: make([][]TimeSlot, lanes)})
	t.index[key] = id
	return id
}

// Pool looks a pool up by key.
func (t *Table) Pool(key Key) (int, bool) {
	id, ok := t.index[key]
	return id, ok
}

// PoolKey returns the key of pool id.
func (t *Table) PoolKey(id int) Key {
	return t.pools[id].key
}

// Lanes returns the lane count of pool id.
func (t *Table) Lanes(id int) int {
	return len(t.pools[id].lanes)
}

// NumPools returns the number of registered pools.
func (t *Table) NumPools() int {
	return len(t.pools)
}

// Reset drops every reservation and sets a new period.
func (t *Table) Reset(period int) {
	t.period = period
	for _, p := range t.pools {
		for i := range p.lanes {
			p.lanes[i] = nil
		}
	}
}

// fold maps [start, end) onto the period ring. ok is false when the interval
// is longer than the period.
func (t *Table) fold(start, end int) (pieces [][2]int, ok bool) {
	length := end - start
	if length <= 0 {
		return nil, true
	}
	if t.period <= 0 {
		return [][2]int{{start, end}}, true
	}
	if length > t.period {
		return nil, false
	}
	s := ((start % t.period) + t.period) % t.period
	if s+length <= t.period {
		return [][2]int{{s, s + length}}, true
	}
	return [][2]int{{s, t.period}, {0, s + length - t.period}}, true
}

func overlaps(slot TimeSlot, start, end int) bool {
	return slot.Start < end && start < slot.End
}

// fits reports whether every piece is free on lane.
func fits(lane []TimeSlot, pieces [][2]int) bool {
	for _, pc := range pieces {
		idx, _ := slices.BinarySearchFunc(lane, pc[0], func(slot TimeSlot, step int) int {
			if slot.End <= step {
				return -1
			}
			return 1
		})
		if idx < len(lane) && overlaps(lane[idx], pc[0], pc[1]) {
			return false
		}
	}
	return true
}

// insertOrdered places slot into lane keeping it sorted. It appends when the
// slot starts past the last reservation, otherwise it scans for an overlap
// or a gap wide enough.
func insertOrdered(lane []TimeSlot, slot TimeSlot) ([]TimeSlot, bool) {
	if len(lane) == 0 || slot.Start >= lane[len(lane)-1].End {
		return append(lane, slot), true
	}
	for i, existing := range lane {
		if overlaps(existing, slot.Start, slot.End) {
			return lane, false
		}
		if existing.Start >= slot.End && (i == 0 || lane[i-1].End <= slot.Start) {
			return slices.Insert(lane, i, slot), true
		}
	}
	return lane, false
}

// pick chooses one free lane per requirement, lowest index first. Repeated
// pools get distinct lanes. excluded lanes are treated as busy.
func (t *Table) pick(pools []int, pieces [][2]int, excluded []Lane) ([]Lane, bool) {
	chosen := make([]Lane, 0, len(pools))
	for _, pid := range pools {
		if pid < 0 || pid >= len(t.pools) {
			return nil, false
		}
		found := false
		for li, lane := range t.pools[pid].lanes {
			candidate := Lane{Pool: pid, Index: li}
			if slices.Contains(chosen, candidate) || slices.Contains(excluded, candidate) {
				continue
			}
			if fits(lane, pieces) {
				chosen = append(chosen, candidate)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return chosen, true
}

// CanInsert reports whether [start, end) fits on one lane of every pool.
func (t *Table) CanInsert(pools []int, start, end int) bool {
	pieces, ok := t.fold(start, end)
	if !ok {
		return false
	}
	_, ok = t.pick(pools, pieces, nil)
	return ok
}

// Insert reserves [start, end) on one lane of every pool, or on none.
func (t *Table) Insert(pools []int, start, end, owner int) ([]Lane, bool) {
	pieces, ok := t.fold(start, end)
	if !ok {
		return nil, false
	}
	lanes, ok := t.pick(pools, pieces, nil)
	if !ok {
		return nil, false
	}
	t.commit(lanes, pieces, owner)
	return lanes, true
}

func (t *Table) commit(lanes []Lane, pieces [][2]int, owner int) {
	for _, l := range lanes {
		p := t.pools[l.Pool]
		for _, pc := range pieces {
			slot := TimeSlot{Resource: l, Start: pc[0], End: pc[1], Owner: owner}
			// pick already proved the lane free.
			p.lanes[l.Index], _ = insertOrdered(p.lanes[l.Index], slot)
		}
	}
}

// InsertAll reserves a sequence of placements, or none of them.
func (t *Table) InsertAll(placements []Placement) ([][]Lane, bool) {
	saved := t.snapshot(placements)
	result := make([][]Lane, 0, len(placements))
	for _, pl := range placements {
		lanes, ok := t.Insert(pl.Pools, pl.Start, pl.End, pl.Owner)
		if !ok {
			t.restore(saved)
			return nil, false
		}
		result = append(result, lanes)
	}
	return result, true
}

func (t *Table) snapshot(placements []Placement) map[int][][]TimeSlot {
	saved := make(map[int][][]TimeSlot)
	for _, pl := range placements {
		for _, pid := range pl.Pools {
			if _, done := saved[pid]; done || pid < 0 || pid >= len(t.pools) {
				continue
			}
			lanes := make([][]TimeSlot, len(t.pools[pid].lanes))
			for i, lane := range t.pools[pid].lanes {
				lanes[i] = append([]TimeSlot(nil), lane...)
			}
			saved[pid] = lanes
		}
	}
	return saved
}

func (t *Table) restore(saved map[int][][]TimeSlot) {
	for pid, lanes := range saved {
		t.pools[pid].lanes = lanes
	}
}

// CandidateStarts enumerates starts at or after earliest where an interval
// of length fits on every pool, in increasing order. With a period the
// search covers one period.
func (t *Table) CandidateStarts(pools []int, earliest, length int) []Gap {
	starts := []int{earliest}
	for _, pid := range pools {
		if pid < 0 || pid >= len(t.pools) {
			return nil
		}
		for _, lane := range t.pools[pid].lanes {
			for _, slot := range lane {
				starts = append(starts, t.unfold(slot.End, earliest))
			}
		}
	}
	slices.Sort(starts)

	gaps := make([]Gap, 0)
	last := earliest - 1
	for _, s := range starts {
		if s == last || s < earliest {
			continue
		}
		last = s
		if t.period > 0 && s >= earliest+t.period {
			break
		}
		if !t.CanInsert(pools, s, s+length) {
			continue
		}
		gaps = append(gaps, Gap{Start: s, Length: t.available(pools, s)})
	}
	return gaps
}

// unfold maps a folded time to the first absolute time at or after earliest.
func (t *Table) unfold(folded, earliest int) int {
	if t.period <= 0 {
		return folded
	}
	base := earliest - ((earliest%t.period)+t.period)%t.period
	at := base + folded%t.period
	if at < earliest {
		at += t.period
	}
	return at
}

// available is the longest free run starting at s, taken as the minimum over
// pools of the best lane in each.
func (t *Table) available(pools []int, s int) int {
	result := Unbounded
	if t.period > 0 {
		result = t.period
	}
	for _, pid := range pools {
		best := 0
		for _, lane := range t.pools[pid].lanes {
			if run := t.freeRun(lane, s); run > best {
				best = run
			}
		}
		if best < result {
			result = best
		}
	}
	return result
}

func (t *Table) freeRun(lane []TimeSlot, s int) int {
	if t.period <= 0 {
		for _, slot := range lane {
			if overlaps(slot, s, s+1) {
				return 0
			}
			if slot.Start >= s {
				return slot.Start - s
			}
		}
		return Unbounded
	}
	f := ((s % t.period) + t.period) % t.period
	run := t.period
	for _, slot := range lane {
		if overlaps(slot, f, f+1) {
			return 0
		}
		d := slot.Start - f
		if d < 0 {
			d += t.period
		}
		if d < run {
			run = d
		}
	}
	return run
}

// Slots returns the reservations of a lane in order.
func (t *Table) Slots(l Lane) []TimeSlot {
	if l.Pool < 0 || l.Pool >= len(t.pools) || l.Index < 0 || l.Index >= len(t.pools[l.Pool].lanes) {
		return nil
	}
	return t.pools[l.Pool].lanes[l.Index]
}

// Demand returns the reserved steps summed over the lanes of a pool.
func (t *Table) Demand(pid int) int {
	total := 0
	for _, lane := range t.pools[pid].lanes {
		for _, slot := range lane {
			total += slot.End - slot.Start
		}
	}
	return total
}

// Utilization is Demand over lanes × period. Aperiodic tables report zero.
func (t *Table) Utilization(pid int) float64 {
	if t.period <= 0 {
		return 0
	}
	return float64(t.Demand(pid)) / float64(t.period*len(t.pools[pid].lanes))
}

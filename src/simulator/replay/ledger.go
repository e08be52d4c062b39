package replay

import "dsesim/src/simulator/app"

// ledger counts the tokens of one fifo. Tokens are numbered in write order;
// initial tokens come first and are readable at time zero. A token is freed
// once every reader has consumed it.
type ledger struct {
	fifo      *app.Fifo
	total     int
	freed     int
	consumed  []int
	available []float64
	releaseAt []float64
}

func newLedger(f *app.Fifo) *ledger {
	l := &ledger{
		fifo:      f,
		total:     f.InitialTokens,
		consumed:  make([]int, len(f.Dsts)),
		available: make([]float64, f.InitialTokens),
		releaseAt: make([]float64, f.InitialTokens),
	}
	return l
}

func (l *ledger) stored() int {
	return l.total - l.freed
}

// produce appends n tokens readable from at.
func (l *ledger) produce(n int, at float64) {
	for k := 0; k < n; k++ {
		l.available = append(l.available, at)
		l.releaseAt = append(l.releaseAt, 0)
	}
	l.total += n
}

// consume marks n tokens as read by reader r at time at and returns the range
// [from, to) of token indices freed by it.
func (l *ledger) consume(r, n int, at float64) (from, to int) {
	if len(l.consumed) == 0 {
		return l.freed, l.freed
	}
	first := l.consumed[r]
	for k := first; k < first+n; k++ {
		for k >= len(l.releaseAt) {
			l.releaseAt = append(l.releaseAt, 0)
		}
		if at > l.releaseAt[k] {
			l.releaseAt[k] = at
		}
	}
	l.consumed[r] += n

	low := l.consumed[0]
	for _, c := range l.consumed[1:] {
		if c < low {
			low = c
		}
	}
	from = l.freed
	if low > l.freed {
		l.freed = low
	}
	return from, l.freed
}

// tokenTime returns when reader r can read its next n tokens.
func (l *ledger) tokenTime(r, n int) (float64, bool) {
	idx := l.consumed[r] + n - 1
	if idx >= len(l.available) {
		return 0, false
	}
	if idx < 0 {
		return 0, true
	}
	return l.available[idx], true
}

// spaceTime returns when n more tokens fit within the fifo capacity. A
// capacity of zero is unbounded.
func (l *ledger) spaceTime(n int) (float64, bool) {
	capacity := l.fifo.Capacity
	if capacity <= 0 {
		return 0, true
	}
	need := l.total + n - capacity
	if need <= 0 {
		return 0, true
	}
	if need > l.freed {
		return 0, false
	}
	return l.releaseAt[need-1], true
}

package modulo

import (
	"math"

	"dsesim/src/simulator/app"
)

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// resourceBound is max over pools of ⌈demand / lanes⌉.
func resourceBound(demand map[int]int, lanes func(int) int) int {
	res := 0
	for pool, d := range demand {
		if b := ceilDiv(d, lanes(pool)); b > res {
			res = b
		}
	}
	return res
}

// recurrenceBound is max over cycles of ⌈Σ span / delay⌉ where delay is the
// number of iterations the cycle's initial tokens cover, at least one.
// Acyclic graphs yield zero.
func recurrenceBound(g *app.Graph, span func(int) int) int {
	rec := 0
	for _, c := range g.FindCycles() {
		dur := 0
		for _, v := range c.Actors {
			dur += span(v)
		}
		delay := math.Max(1, c.Delay(g))
		if b := int(math.Ceil(float64(dur)/delay - 1e-9)); b > rec {
			rec = b
		}
	}
	return rec
}

// iiPrime is the smallest period the recurrence fifos allow for a placed
// single-iteration schedule. A recurrence u→v carrying d iterations of
// initial tokens requires begin(v) + d·P ≥ finish(u).
func iiPrime(g *app.Graph, begin, finish func(int) int) int {
	need := 0
	for _, f := range g.Fifos {
		if !f.IsRecurrence() {
			continue
		}
		distance := float64(f.InitialTokens) / float64(f.ConsRate)
		for _, dst := range f.Dsts {
			lag := finish(f.Src) - begin(dst)
			if lag <= 0 {
				continue
			}
			if p := int(math.Ceil(float64(lag)/distance - 1e-9)); p > need {
				need = p
			}
		}
	}
	return need
}

func maxInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

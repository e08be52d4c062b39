package modulo

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"dsesim/src/simulator/fault"
)

// SearchStrategy selects how the period escalates after a failed attempt.
type SearchStrategy int

const (
	// LinearSearch tries MII, MII+1, ... in order.
	LinearSearch SearchStrategy = iota
	// BisectSearch doubles the distance from MII until an attempt succeeds,
	// then binary-searches the last failing and first passing period.
	BisectSearch
)

func (s SearchStrategy) String() string {
	if s == BisectSearch {
		return "bisect"
	}
	return "linear"
}

// ParseSearchStrategy converts a name into a SearchStrategy.
func ParseSearchStrategy(name string) (SearchStrategy, bool) {
	switch strings.ToLower(name) {
	case "linear":
		return LinearSearch, true
	case "bisect", "binary":
		return BisectSearch, true
	default:
		return LinearSearch, false
	}
}

type attemptFunc func(period int) (*Result, error)

// escalation classifies a failed attempt. A recurrence failure may name the
// period it needs; anything outside the two recoverable kinds is fatal.
func escalation(err error, period int) (next int, fatal bool) {
	e, ok := fault.As(err)
	if !ok {
		return 0, true
	}
	switch e.Kind {
	case fault.UnschedulableWithinPeriod:
		return period + 1, false
	case fault.InfeasibleRecurrence:
		if e.Period <= period {
			return 0, true
		}
		return e.Period, false
	default:
		return 0, true
	}
}

func searchPeriod(strategy SearchStrategy, mii, maxPeriod int, attempt attemptFunc, logger *slog.Logger) (*Result, error) {
	if mii > maxPeriod {
		return nil, fault.New(fault.UnschedulableWithinPeriod,
			"MII %d exceeds the maximum period %d", mii, maxPeriod).WithPeriod(mii)
	}

	attempts := 0
	try := func(p int) (*Result, error) {
		attempts++
		res, err := attempt(p)
		if err != nil {
			logger.Debug("period rejected", "period", p, "err", err)
		}
		return res, err
	}

	if strategy == BisectSearch {
		res, err := bisect(mii, maxPeriod, try)
		if err == nil {
			res.Attempts = attempts
		}
		return res, err
	}

	var lastErr error
	for p := mii; p <= maxPeriod; {
		res, err := try(p)
		if err == nil {
			res.Attempts = attempts
			return res, nil
		}
		next, fatal := escalation(err, p)
		if fatal {
			return nil, err
		}
		lastErr = err
		p = next
	}
	return nil, errors.Wrapf(lastErr, "no feasible period up to %d", maxPeriod)
}

func bisect(mii, maxPeriod int, try attemptFunc) (*Result, error) {
	res, err := try(mii)
	if err == nil {
		return res, nil
	}
	if _, fatal := escalation(err, mii); fatal {
		return nil, err
	}

	lo := mii
	hi := 0
	var best *Result
	for step := 1; best == nil; step *= 2 {
		cand := mii + step
		if cand > maxPeriod {
			cand = maxPeriod
		}
		if cand <= lo {
			return nil, errors.Wrapf(err, "no feasible period up to %d", maxPeriod)
		}
		res, err = try(cand)
		if err == nil {
			hi, best = cand, res
			break
		}
		if _, fatal := escalation(err, cand); fatal {
			return nil, err
		}
		lo = cand
	}

	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		res, err := try(mid)
		if err == nil {
			hi, best = mid, res
			continue
		}
		if _, fatal := escalation(err, mid); fatal {
			return nil, err
		}
		lo = mid
	}
	return best, nil
}

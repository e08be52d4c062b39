package simulator

import (
	"log/slog"

	"dsesim/src/misc"
	"dsesim/src/simulator/binding"
	"dsesim/src/simulator/fault"
	"dsesim/src/simulator/modulo"
)

// Config drives one simulation. Zero values select defaults.
type Config struct {
	Mode            misc.SchedulerMode
	Search          modulo.SearchStrategy
	SearchSet       bool
	StepMHz         float64
	MaxPeriod       int
	MaxRemaps       int
	Iterations      int
	RecurrenceCheck bool
	Logger          *slog.Logger
}

const DefaultMaxRemaps = 8

func DefaultConfig() Config {
	return Config{
		Mode:            misc.DefaultSchedulerMode(),
		StepMHz:         1,
		MaxRemaps:       DefaultMaxRemaps,
		RecurrenceCheck: true,
	}
}

// ConfigFromScenario overlays the scheduler section of a scenario on the
// defaults.
func ConfigFromScenario(s misc.SchedulerConfig) (Config, error) {
	config := DefaultConfig()
	if s.Mode != "" {
		mode, ok := misc.SchedulerModeFromString(s.Mode)
		if !ok {
			return Config{}, fault.New(fault.InvalidInput, "unknown scheduler mode %q", s.Mode)
		}
		config.Mode = mode
	}
	if s.Search != "" {
		search, ok := modulo.ParseSearchStrategy(s.Search)
		if !ok {
			return Config{}, fault.New(fault.InvalidInput, "unknown search strategy %q", s.Search)
		}
		config.Search = search
		config.SearchSet = true
	}
	if s.StepMHz > 0 {
		config.StepMHz = s.StepMHz
	}
	if s.MaxPeriod > 0 {
		config.MaxPeriod = s.MaxPeriod
	}
	if s.MaxRemaps > 0 {
		config.MaxRemaps = s.MaxRemaps
	}
	if s.Iterations > 0 {
		config.Iterations = s.Iterations
	}
	if s.RecurrenceCheck != nil {
		config.RecurrenceCheck = *s.RecurrenceCheck
	}
	return config, nil
}

func (this Config) clock() binding.Clock {
	return binding.NewClock(this.StepMHz)
}

func (this Config) logger() *slog.Logger {
	if this.Logger == nil {
		return slog.Default()
	}
	return this.Logger
}

// search picks linear search for the baseline scheduler and bisection for the
// communication-aware one unless a strategy was set explicitly.
func (this Config) search() modulo.SearchStrategy {
	if this.SearchSet {
		return this.Search
	}
	if this.Mode == misc.SchedulerModeComm {
		return modulo.BisectSearch
	}
	return modulo.LinearSearch
}

func (this Config) moduloOptions() modulo.Options {
	return modulo.Options{
		MaxPeriod:       this.MaxPeriod,
		RecurrenceCheck: this.RecurrenceCheck,
		Search:          this.search(),
		Clock:           this.clock(),
		Logger:          this.logger(),
	}
}

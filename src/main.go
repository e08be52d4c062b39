package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tebeka/atexit"

	"dsesim/src/api"
	"dsesim/src/misc"
	"dsesim/src/simulator"
	"dsesim/src/simulator/modulo"
	"dsesim/src/store"
)

func main() {
	command_line_parser := InitCommandLineParser()
	command_line_parser.Parse(os.Args)

	if command_line_parser.IsArgSet("help") {
		fmt.Printf("%s", command_line_parser.StringifyHelpMsgs())
		return
	}

	command_line_validator := new(misc.CommandLineValidator)
	command_line_validator.Init(command_line_parser)
	command_line_validator.Validate()

	logger := misc.ConfigureLogger(
		os.Stderr,
		command_line_parser.IntParameter("verbose"),
		command_line_parser.IntParameter("log_json") != 0,
	)

	if addr := command_line_parser.StringParameter("serve"); addr != "" {
		serve(command_line_parser, addr, logger)
		return
	}

	fmt.Println("[dsesim] loading scenario…")
	scenario, err := misc.LoadScenario(command_line_parser.StringParameter("scenario"))
	if err != nil {
		logger.Error("cannot load scenario", "error", err)
		atexit.Exit(1)
	}
	a, g, b, err := scenario.Build()
	if err != nil {
		logger.Error("invalid scenario", "error", err)
		atexit.Exit(1)
	}

	config, err := simulator.ConfigFromScenario(scenario.Scheduler)
	if err != nil {
		logger.Error("invalid scheduler settings", "error", err)
		atexit.Exit(1)
	}
	OverrideConfig(command_line_parser, &config)
	config.Logger = logger

	dump_dirpath := command_line_parser.StringParameter("dump_dirpath")
	if dump_dirpath != "" {
		args_file_dumper := new(misc.FileDumper)
		args_file_dumper.Init(filepath.Join(dump_dirpath, "args.txt"))
		options_file_dumper := new(misc.FileDumper)
		options_file_dumper.Init(filepath.Join(dump_dirpath, "options.txt"))
		if err := args_file_dumper.WriteLines([]string{command_line_parser.StringifyArgs()}); err != nil {
			logger.Warn("cannot dump args", "error", err)
		}
		if err := options_file_dumper.WriteLines([]string{command_line_parser.StringifyOptions()}); err != nil {
			logger.Warn("cannot dump options", "error", err)
		}
	}

	var runs *store.RunRepository
	if db_path := command_line_parser.StringParameter("db_path"); db_path != "" {
		db, err := store.Open(db_path)
		if err != nil {
			logger.Error("cannot open run database", "error", err)
			atexit.Exit(1)
		}
		runs = store.NewRunRepository(db)
	}

	modes := []misc.SchedulerMode{config.Mode}
	if command_line_parser.StringParameter("scheduler") == "all" {
		modes = misc.SchedulerModes()
	}

	fmt.Printf("[dsesim] simulating %s on %s with %d scheduler(s)…\n", g.Name, a.Name, len(modes))
	outcomes := simulator.Explore(a, g, b, config, modes,
		command_line_parser.IntParameter("num_simulation_threads"))

	failed := false
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed = true
			logger.Error("simulation failed", "scheduler", outcome.Mode, "error", outcome.Err)
		} else {
			for _, line := range outcome.Report.SummaryLines() {
				fmt.Println(line)
			}
		}

		if dump_dirpath != "" && outcome.Report != nil {
			if err := outcome.Report.Dump(filepath.Join(dump_dirpath, string(outcome.Mode))); err != nil {
				logger.Warn("cannot dump report", "scheduler", outcome.Mode, "error", err)
			}
		}

		if runs != nil {
			run, err := store.NewRun(g.Name, a.Name, string(outcome.Mode), outcome.Report, outcome.Err)
			if err == nil {
				err = runs.Create(run)
			}
			if err != nil {
				logger.Warn("cannot store run", "scheduler", outcome.Mode, "error", err)
			} else {
				fmt.Printf("[dsesim] stored run %s\n", run.RunID)
			}
		}
	}

	if failed {
		atexit.Exit(1)
	}
	fmt.Println("[dsesim] done.")
	atexit.Exit(0)
}

func serve(command_line_parser *misc.CommandLineParser, addr string, logger *slog.Logger) {
	db_path := command_line_parser.StringParameter("db_path")
	if db_path == "" {
		db_path = "dsesim.db"
	}
	db, err := store.Open(db_path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[dsesim] cannot open %s: %v\n", db_path, err)
		atexit.Exit(1)
	}
	atexit.Register(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	defaults := simulator.DefaultConfig()
	defaults.Logger = logger

	router := api.NewRouter(db, defaults)
	fmt.Printf("[dsesim] serving on %s\n", addr)
	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "[dsesim] server stopped: %v\n", err)
		atexit.Exit(1)
	}
}

// OverrideConfig applies the options given on the command line on top of the
// scenario's scheduler section.
func OverrideConfig(command_line_parser *misc.CommandLineParser, config *simulator.Config) {
	if command_line_parser.IsArgSet("scheduler") {
		if mode, ok := misc.SchedulerModeFromString(command_line_parser.StringParameter("scheduler")); ok {
			config.Mode = mode
		}
	}
	if command_line_parser.IsArgSet("search") {
		search, _ := modulo.ParseSearchStrategy(command_line_parser.StringParameter("search"))
		config.Search = search
		config.SearchSet = true
	}
	if command_line_parser.IsArgSet("step_mhz") {
		config.StepMHz = float64(command_line_parser.IntParameter("step_mhz"))
	}
	if command_line_parser.IsArgSet("max_period") {
		config.MaxPeriod = command_line_parser.IntParameter("max_period")
	}
	if command_line_parser.IsArgSet("max_remaps") {
		config.MaxRemaps = command_line_parser.IntParameter("max_remaps")
	}
	if command_line_parser.IsArgSet("iterations") {
		config.Iterations = command_line_parser.IntParameter("iterations")
	}
	if command_line_parser.IsArgSet("recurrence_check") {
		config.RecurrenceCheck = command_line_parser.IntParameter("recurrence_check") != 0
	}
}

func InitCommandLineParser() *misc.CommandLineParser {
	command_line_parser := new(misc.CommandLineParser)
	command_line_parser.Init()

	// verbose level
	// level 0: warnings and errors
	// level 1: level 0 + one line per attempt, remap and request
	// level 2: level 1 + period search and replay details
	command_line_parser.AddOption(misc.INT, "verbose", "0", "verbosity of the simulation")
	command_line_parser.AddOption(misc.INT, "log_json", "0", "log as JSON lines (0|1)")

	command_line_parser.AddOption(misc.INT, "num_simulation_threads", "4",
		"number of schedulers to run at once when --scheduler all is given")

	command_line_parser.AddOption(misc.STRING, "scenario", "", "path to the scenario YAML file")
	command_line_parser.AddOption(
		misc.STRING,
		"scheduler",
		string(misc.DefaultSchedulerMode()),
		"scheduler mode (baseline|comm|fcfs|all)",
	)
	command_line_parser.AddOption(misc.STRING, "search", "",
		"period search strategy (linear|bisect); defaults per scheduler")
	command_line_parser.AddOption(misc.INT, "step_mhz", "1", "scheduling clock in MHz")
	command_line_parser.AddOption(misc.INT, "max_period", "0",
		"largest period to try in steps (0 derives it from the binding)")
	command_line_parser.AddOption(misc.INT, "max_remaps", "8",
		"number of fifo remaps allowed before giving up")
	command_line_parser.AddOption(misc.INT, "iterations", "0",
		"graph iterations to replay (0 derives it from the schedule)")
	command_line_parser.AddOption(misc.INT, "recurrence_check", "1",
		"bound the period search by the recurrence bound (0|1)")

	command_line_parser.AddOption(misc.STRING, "dump_dirpath", "",
		"directory to write report files into")
	command_line_parser.AddOption(misc.STRING, "db_path", "",
		"sqlite database to store runs in")
	command_line_parser.AddOption(misc.STRING, "serve", "",
		"serve the HTTP API on this address instead of simulating once")

	return command_line_parser
}

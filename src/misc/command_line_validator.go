package misc

import (
	"errors"
	"fmt"
	"os"

	"dsesim/src/simulator/modulo"
)

type CommandLineValidator struct {
	command_line_parser *CommandLineParser
}

func (this *CommandLineValidator) Init(command_line_parser *CommandLineParser) {
	this.command_line_parser = command_line_parser
}

func (this *CommandLineValidator) Validate() {
	if this.command_line_parser.IntParameter("num_simulation_threads") <= 0 {
		err := errors.New("num_simulation_threads <= 0")
		panic(err)
	}

	scheduler := this.command_line_parser.StringParameter("scheduler")
	if _, ok := SchedulerModeFromString(scheduler); !ok && scheduler != "all" {
		err := fmt.Errorf("scheduler %s is not supported", scheduler)
		panic(err)
	}

	search := this.command_line_parser.StringParameter("search")
	if search != "" {
		if _, ok := modulo.ParseSearchStrategy(search); !ok {
			err := fmt.Errorf("search %s is not supported", search)
			panic(err)
		}
	}

	if this.command_line_parser.IntParameter("step_mhz") < 0 {
		err := errors.New("step_mhz < 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("max_period") < 0 {
		err := errors.New("max_period < 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("max_remaps") < 0 {
		err := errors.New("max_remaps < 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("iterations") < 0 {
		err := errors.New("iterations < 0")
		panic(err)
	}

	if this.command_line_parser.IntParameter("verbose") < 0 {
		err := errors.New("verbose < 0")
		panic(err)
	}

	if this.command_line_parser.StringParameter("serve") == "" {
		scenario := this.command_line_parser.StringParameter("scenario")
		if scenario == "" {
			err := errors.New("scenario is required unless serve is set")
			panic(err)
		}
		if _, stat_err := os.Stat(scenario); os.IsNotExist(stat_err) {
			err := fmt.Errorf("scenario %s does not exist", scenario)
			panic(err)
		}
	}
}

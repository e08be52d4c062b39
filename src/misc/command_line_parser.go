package misc

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

type OptionType int

const (
	INT OptionType = iota
	STRING
)

type option struct {
	option_type   OptionType
	name          string
	default_value string
	help_msg      string
}

// CommandLineParser parses "--name value" pairs against registered options.
// "--help" is always accepted.
type CommandLineParser struct {
	options map[string]*option
	order   []string
	args    map[string]string
}

func (this *CommandLineParser) Init() {
	this.options = make(map[string]*option)
	this.order = make([]string, 0)
	this.args = make(map[string]string)
}

func (this *CommandLineParser) AddOption(
	option_type OptionType,
	name string,
	default_value string,
	help_msg string,
) {
	if _, found := this.options[name]; found {
		panic(fmt.Sprintf("option %s is already registered", name))
	}

	if option_type == INT {
		if _, err := strconv.Atoi(default_value); err != nil {
			panic(fmt.Sprintf("default value %s of option %s is not an integer", default_value, name))
		}
	}

	this.options[name] = &option{
		option_type:   option_type,
		name:          name,
		default_value: default_value,
		help_msg:      help_msg,
	}
	this.order = append(this.order, name)
}

// Parse reads os.Args-style arguments; args[0] is the program name.
func (this *CommandLineParser) Parse(args []string) {
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			panic(fmt.Sprintf("unexpected argument %s", arg))
		}

		name := strings.TrimPrefix(arg, "--")
		value := ""
		if eq := strings.Index(name, "="); eq >= 0 {
			name, value = name[:eq], name[eq+1:]
		} else if name != "help" {
			if i+1 >= len(args) {
				panic(fmt.Sprintf("option %s has no value", name))
			}
			i++
			value = args[i]
		}

		if name == "help" {
			this.args[name] = "1"
			continue
		}

		opt, found := this.options[name]
		if !found {
			panic(fmt.Sprintf("option %s is not supported", name))
		}
		if opt.option_type == INT {
			if _, err := strconv.Atoi(value); err != nil {
				panic(fmt.Sprintf("option %s expects an integer, got %s", name, value))
			}
		}
		this.args[name] = value
	}
}

func (this *CommandLineParser) IsArgSet(name string) bool {
	_, found := this.args[name]
	return found
}

func (this *CommandLineParser) value(name string, option_type OptionType) string {
	opt, found := this.options[name]
	if !found {
		panic(fmt.Sprintf("option %s is not registered", name))
	}
	if opt.option_type != option_type {
		panic(fmt.Sprintf("option %s has a different type", name))
	}
	if value, set := this.args[name]; set {
		return value
	}
	return opt.default_value
}

func (this *CommandLineParser) IntParameter(name string) int {
	value, err := strconv.Atoi(this.value(name, INT))
	if err != nil {
		panic(err)
	}
	return value
}

func (this *CommandLineParser) StringParameter(name string) string {
	return this.value(name, STRING)
}

func (this *CommandLineParser) StringifyHelpMsgs() string {
	lines := make([]string, 0, len(this.order)+1)
	lines = append(lines, "usage: dsesim [--option value]...")
	for _, name := range this.order {
		opt := this.options[name]
		type_name := "int"
		if opt.option_type == STRING {
			type_name = "string"
		}
		lines = append(lines,
			fmt.Sprintf("  --%s <%s> (default: %q)\n      %s", name, type_name, opt.default_value, opt.help_msg))
	}
	return strings.Join(lines, "\n") + "\n"
}

// StringifyArgs lists the arguments given on the command line, sorted by
// name.
func (this *CommandLineParser) StringifyArgs() string {
	names := make([]string, 0, len(this.args))
	for name := range this.args {
		names = append(names, name)
	}
	slices.Sort(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("--%s %s", name, this.args[name]))
	}
	return strings.Join(pairs, " ")
}

// StringifyOptions lists the effective value of every option.
func (this *CommandLineParser) StringifyOptions() string {
	pairs := make([]string, 0, len(this.order))
	for _, name := range this.order {
		value := this.options[name].default_value
		if arg, set := this.args[name]; set {
			value = arg
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, value))
	}
	return strings.Join(pairs, "\n")
}

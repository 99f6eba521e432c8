package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/watchgraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("watchgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
watchgraph - Renders declarative components on a reactive watch graph.

Usage:
  watchgraph [options] [COMPONENT_PATH...]

Arguments:
  COMPONENT_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var paths, render, sets stringList
	flagSet.Var(&paths, "components", "Path to a component file or directory. Repeatable.")
	flagSet.Var(&paths, "c", "Path to a component file or directory (shorthand).")
	flagSet.Var(&render, "render", "Component to render. Repeatable. Defaults to every top-level component.")
	flagSet.Var(&sets, "set", "Write Component.property=value after the initial render. Repeatable.")
	dumpFlag := flagSet.String("dump", "none", "Print the graph when done. Options: 'dot', 'yaml', 'json' or 'none'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	inspectPortFlag := flagSet.Int("inspect-port", 0, "Port for the HTTP inspection server (/health, /metrics, /graph). 0 is disabled.")
	livetraceFlag := flagSet.String("livetrace-url", "", "socket.io server URL that receives sort and flush events.")
	waitFlag := flagSet.Duration("wait", 0, "Keep the graph running this long after the writes before reporting.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths = append(paths, flagSet.Args()...)
	if len(paths) == 0 {
		slog.Debug("No component path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ComponentPaths: paths,
		Render:         render,
		Sets:           sets,
		DumpFormat:     strings.ToLower(*dumpFlag),
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		InspectPort:    *inspectPortFlag,
		LivetraceURL:   *livetraceFlag,
		Wait:           *waitFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

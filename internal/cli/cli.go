package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/gofsrs/internal/app"
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

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gofsrs", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
gofsrs - a headless acquisition engine for pump-probe spectroscopy.

Usage:
  gofsrs [options] [RIG_PATH]

Arguments:
  RIG_PATH
    Path to a single .hcl rig file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	rigFlag := flagSet.String("rig", "", "Path to the rig file or directory.")
	rFlag := flagSet.String("r", "", "Path to the rig file or directory (shorthand).")
	experimentFlag := flagSet.String("experiment", "", "Run only the named experiment block. Empty runs all.")
	dataDirFlag := flagSet.String("data-dir", "data", "Directory for output files and the run history index.")
	listenFlag := flagSet.Int("listen", 0, "Port for the status HTTP server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	historyFlag := flagSet.Int("history", 0, "Print the N most recent runs from the history index and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *rigFlag != "" {
		path = *rigFlag
	} else if *rFlag != "" {
		path = *rFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Rig path determined.", "path", path)

	if path == "" && *historyFlag <= 0 {
		slog.Debug("No rig path provided, printing usage and exiting.")
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
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		RigPath:      path,
		Experiment:   *experimentFlag,
		DataDir:      *dataDirFlag,
		ListenPort:   *listenFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		HistoryLimit: *historyFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

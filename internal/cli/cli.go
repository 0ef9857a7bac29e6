package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/spacesd/internal/app"
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
	flagSet := flag.NewFlagSet("spacesd", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
spacesd - a declarative environment provisioning resolver.

Usage:
  spacesd [options] [SPACE_PATH]

Arguments:
  SPACE_PATH
    Path to a space file with bracketed resource definitions.

Options:
`)
		flagSet.PrintDefaults()
	}

	spaceFlag := flagSet.String("space", "", "Path to the space file.")
	sFlag := flagSet.String("s", "", "Path to the space file (shorthand).")
	rootFlag := flagSet.String("root", "", "Root resource to resolve, e.g. 'project test'. Defaults to the single project resource.")
	listenFlag := flagSet.String("listen", "", "TCP address for the session protocol, e.g. ':5007'. Empty runs one resolution and exits.")
	configFlag := flagSet.String("config", "", "Path to a YAML config file supplying defaults for these options.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent workers for the engine. 1 runs strictly sequentially.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Timeout for a single provider invocation.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *spaceFlag != "" {
		path = *spaceFlag
	} else if *sFlag != "" {
		path = *sFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Space path determined.", "path", path)

	cfg := app.Config{
		SpacePath: path,
		Root:      *rootFlag,
		Listen:    *listenFlag,
		LogFormat: strings.ToLower(*logFormatFlag),
		LogLevel:  strings.ToLower(*logLevelFlag),
		Workers:   *workersFlag,
		Timeout:   *timeoutFlag,
	}

	if *configFlag != "" {
		fileCfg, err := app.LoadFileConfig(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if err := cfg.Merge(fileCfg); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}

	if cfg.SpacePath == "" {
		slog.Debug("No space path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if cfg.LogFormat != "" && cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if cfg.Workers < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid workers: must be at least 1"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

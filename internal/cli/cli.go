package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/flowforge/internal/app"
	"github.com/vk/flowforge/internal/compiler"
	"github.com/vk/flowforge/internal/value"
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

// paramFlag collects repeatable "key=value" parameter overrides. Values are
// decoded as JSON when possible, so --param seed=42 yields a number and
// --param greedy=true a bool; anything that is not valid JSON is kept as a
// raw string.
type paramFlag struct {
	params *value.Params
}

func (p *paramFlag) String() string {
	if p.params == nil || p.params.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, p.params.Len())
	for pair := p.params.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, pair.Key+"="+pair.Value.GoString())
	}
	return strings.Join(parts, ",")
}

func (p *paramFlag) Set(raw string) error {
	key, rest, found := strings.Cut(raw, "=")
	if !found || key == "" {
		return fmt.Errorf("invalid parameter %q: expected key=value", raw)
	}
	if p.params == nil {
		p.params = value.NewParams()
	}

	var decoded any
	if err := json.Unmarshal([]byte(rest), &decoded); err == nil {
		v, convErr := value.FromGo(decoded)
		if convErr == nil {
			p.params.Set(key, v)
			return nil
		}
	}
	p.params.Set(key, value.String(rest))
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowforge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
FlowForge - Compile and run optimization workflows defined in HCL.

Usage:
  flowforge [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workflow file or directory (shorthand).")
	exportFlag := flagSet.String("export", "", "Comma-separated list of export backends, or 'all'. Options: "+strings.Join(backendNames(), ", ")+".")
	outFlag := flagSet.String("out", ".", "Directory artifacts are written into.")
	runFlag := flagSet.Bool("run", false, "Execute the workflow on the remote execution service.")
	serverFlag := flagSet.String("server", "", "URL of the remote execution service. Required with --run.")
	namespaceFlag := flagSet.String("namespace", "/", "Socket.IO namespace of the execution service.")
	tokenFlag := flagSet.String("token", "", "Access token passed to the platform services.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	var params paramFlag
	flagSet.Var(&params, "param", "Parameter override as key=value. Repeatable. Values are parsed as JSON when possible.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	backends, err := parseBackends(*exportFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
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
		WorkflowPath:   path,
		ExportBackends: backends,
		OutDir:         *outFlag,
		Run:            *runFlag,
		ServerURL:      *serverFlag,
		Namespace:      *namespaceFlag,
		Token:          *tokenFlag,
		Overrides:      params.params,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func parseBackends(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if raw == "all" {
		return backendNames(), nil
	}
	var names []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := compiler.ByName(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func backendNames() []string {
	backends := compiler.Backends()
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name()
	}
	return names
}

// Package app wires CLI parsing, configuration, logging, and the bridge loop
// into a process exit code.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/docspell-native/internal/bridge"
	"github.com/rbright/docspell-native/internal/cli"
	"github.com/rbright/docspell-native/internal/config"
	"github.com/rbright/docspell-native/internal/doctor"
	"github.com/rbright/docspell-native/internal/logging"
	"github.com/rbright/docspell-native/internal/version"
)

const binaryName = "docspell-native"

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: setup log file: %v; logging to stderr\n", err)
		logRuntime = logging.NewWriter(r.Stderr)
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"external_command", cfgLoaded.Config.Command,
		"launch_args", parsed.LaunchArgs,
		"log", logRuntime.Path,
		version.Attr(),
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		for _, w := range cfgLoaded.Warnings {
			fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		}
		report := doctor.Run(cfgLoaded, logRuntime.Path)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandServe pumps requests until stdin closes. stdout carries only frames.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	out := bufio.NewWriter(r.Stdout)
	b := bridge.New(cfg, logger)

	summary, err := b.Run(ctx, r.Stdin, out)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		logger.Info("serve interrupted", "requests", summary.Requests)
		return 0
	default:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("serve failed", "error", err.Error(), "requests", summary.Requests)
		return 1
	}
}

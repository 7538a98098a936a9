// Command tripcheck verifies and scores generated travel itineraries
// against their queries and a city knowledge base.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-tripcheck/infrastructure/logging"
)

// app holds the dependencies shared by every command.
type app struct {
	logger   *zap.Logger
	closeLog func() error

	logLevel string
	logFile  string
	color    bool

	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:          "tripcheck",
		Short:        "Verify and score travel itineraries",
		Long:         `tripcheck validates generated itineraries against a plan schema, commonsense feasibility rules, per-query hard constraints and preference programs, and reports aggregate pass rates.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				_ = a.closeLog()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", "info", "Console log level (debug, info, warn, error)")
	pf.StringVar(&a.logFile, "log-file", "", "Also write JSON debug logs to this file")
	pf.BoolVar(&a.color, "color", false, "Color console log levels")

	root.AddCommand(evaluateCmd(a))
	root.AddCommand(kbCmd(a))
	root.AddCommand(configCmd(a))
	return root
}

func (a *app) init() error {
	logger, closeFn, err := logging.New(logging.Options{
		Console: a.stderr,
		Level:   a.logLevel,
		File:    a.logFile,
		Color:   a.color,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	a.closeLog = closeFn
	return nil
}

// fail logs err and returns it so a RunE can end with `return a.fail(...)`.
func (a *app) fail(msg string, err error) error {
	a.logger.Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}

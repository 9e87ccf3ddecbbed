// Command docinspect is an interactive debug console for exercising a
// docore Document directly: insert and delete text through a point, walk
// mark groups, and query line/word/char counts, without wiring up a real
// text view or editor frontend.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"docore/logging"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var filePath string
	var logLevel string
	var componentLevels []string

	cmd := &cobra.Command{
		Use:   "docinspect",
		Short: "Interactive console for exercising a docore Document",
		Long:  "docinspect opens a document (empty, or preloaded from --file) and drops into a REPL for inserting, deleting, and inspecting it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, logger, err := buildLogger(logLevel, componentLevels)
			if err != nil {
				return err
			}
			return runREPL(filePath, os.Stdin, os.Stdout, logger, filter)
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "preload document content from file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "default log level (debug, info, warn, error)")
	cmd.Flags().StringArrayVar(&componentLevels, "component-log-level", nil, "per-component log level override, component=level (repeatable)")
	return cmd
}

// buildLogger wires a LevelControl over a stderr text handler: the base
// handler stays open at LevelDebug and the control makes the per-component
// level decisions. The control is also handed to the REPL so its
// "loglevel" command can adjust verbosity at runtime via SetLevel.
func buildLogger(defaultLevel string, componentLevels []string) (*logging.LevelControl, *slog.Logger, error) {
	lvl, err := parseLevel(defaultLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("--log-level: %w", err)
	}

	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filter := logging.NewLevelControl(base, lvl)

	for _, kv := range componentLevels {
		component, levelStr, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, nil, fmt.Errorf("--component-log-level %q: want component=level", kv)
		}
		cl, err := parseLevel(levelStr)
		if err != nil {
			return nil, nil, fmt.Errorf("--component-log-level %q: %w", kv, err)
		}
		filter.SetLevel(component, cl)
	}

	return filter, slog.New(filter), nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return lvl, nil
}

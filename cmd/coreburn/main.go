// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/coreburn/lib/config"
	"github.com/bureau-foundation/coreburn/lib/process"
	"github.com/bureau-foundation/coreburn/lib/runner"
	"github.com/bureau-foundation/coreburn/lib/version"
)

// Exit statuses.
const (
	exitRunFailed = 1
	exitPreRun    = 2
	exitDCLFail   = 3
)

func main() {
	os.Exit(process.Report(os.Stderr, run(os.Args[1:], os.Stdout, os.Stderr)))
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "inspect":
			return inspect(args[1:], stdout)
		case "restore":
			return restore(args[1:], stdout, stderr)
		}
	}

	flags := newFlags()
	if err := flags.set.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flags.set)
			return nil
		}
		return process.Exit(exitPreRun, err)
	}
	if flags.showVersion {
		version.Fprint(stdout, "coreburn")
		return nil
	}
	if extra := flags.set.Args(); len(extra) > 0 {
		return process.Exit(exitPreRun, fmt.Errorf("unexpected argument: %s", extra[0]))
	}

	profile, err := loadProfile(flags)
	if err != nil {
		return process.Exit(exitPreRun, err)
	}

	logger := newLogger(stderr, flags.debug)
	plan, err := runner.Prepare(profile, runner.Host(logger))
	if err != nil {
		return process.Exit(exitPreRun, err)
	}

	if flags.check {
		if flags.jsonOutput {
			return writeJSON(stdout, plan)
		}
		printPlan(stdout, plan)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observer runner.Observer
	if flags.debug {
		observer = runner.ObserverFunc(func(snapshot runner.Snapshot) {
			logger.Debug("interval",
				"sequence", snapshot.Sequence,
				"measured_khz", snapshot.MeasuredKHz,
				"temperature_c", snapshot.TemperatureCelsius,
			)
		})
	}

	result, err := runner.Run(ctx, plan, observer)
	if result != nil {
		if flags.jsonOutput {
			if writeErr := writeJSON(stdout, result); writeErr != nil && err == nil {
				err = writeErr
			}
		} else {
			printResult(stdout, result)
		}
	}
	if err != nil {
		if runner.IsPreRun(err) {
			return process.Exit(exitPreRun, err)
		}
		return process.Exit(exitRunFailed, err)
	}
	if result.Failed() {
		return process.Exit(exitDCLFail, nil)
	}
	return nil
}

// loadProfile applies defaults, then the --config file or
// $COREBURN_CONFIG, then the flags the user set.
func loadProfile(flags *cliFlags) (*config.Profile, error) {
	profile := config.Default()
	switch {
	case flags.configPath != "":
		loaded, err := config.LoadFile(flags.configPath)
		if err != nil {
			return nil, err
		}
		profile = loaded
	case os.Getenv(config.EnvironmentVariable) != "":
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		profile = loaded
	}
	if err := flags.overlay(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("writing JSON output: %w", err)
	}
	return nil
}

func printHelp(w io.Writer, set *pflag.FlagSet) {
	fmt.Fprintf(w, `coreburn: CPU load generator with thermal throttling and frequency validation.

Usage:
  coreburn [flags]
  coreburn inspect LOG
  coreburn restore STATE

Examples:
  # Five minutes of AVX2 on every allowed CPU at 80%% duty cycle
  coreburn --type AVX2 --util 80 --duration 5m

  # Validate the plan and the host without starting workers
  coreburn --config burn.yaml --check

  # Throttle above 85 C and validate against a frequency table
  coreburn --duration 10m --throttle --dcl sku.yaml --log run.cbor.zst --log-compression zstd

  # Throttle, then put the maxima back, even after a crash
  coreburn --duration 1h --throttle --restore-freq --freq-state /run/coreburn/frequency.json

Flags:
`)
	set.SetOutput(w)
	set.PrintDefaults()
}

// newLogger writes text records to a terminal and JSON otherwise.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// restore re-applies the policy recorded by a run that was killed
// before it could restore it.
func restore(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return process.Exit(exitPreRun, errors.New("usage: coreburn restore STATE"))
	}
	recovered, err := runner.RecoverFrequency(args[0], runner.Host(newLogger(stderr, false)))
	if err != nil {
		return process.Exit(exitRunFailed, err)
	}
	if recovered {
		fmt.Fprintf(stdout, "frequency policy from %s re-applied\n", args[0])
	} else {
		fmt.Fprintf(stdout, "no frequency policy from this boot in %s\n", args[0])
	}
	return nil
}

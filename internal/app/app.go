// Package app wires configuration, the single-instance lock, the
// supervisor engine, and a frontend (the full TUI or the --no-ui line
// emitter) into one runnable session — the facade cmd/piperack's
// subcommands call into (spec.md §6).
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"piperack/internal/config"
	"piperack/internal/lineemit"
	"piperack/internal/lock"
	"piperack/internal/supervisor"
	"piperack/internal/tui"
)

// Options configures one supervised run.
type Options struct {
	ConfigPath string
	NoUI       bool
}

// Run loads opts.ConfigPath, acquires the single-instance lock, and drives the
// supervisor to completion, returning the process's exit code.
func Run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piperack: load config: %v\n", err)
		return 1
	}
	if len(cfg.Processes) == 0 {
		fmt.Fprintln(os.Stderr, "piperack: no processes configured")
		return 1
	}

	key := lock.Key(opts.ConfigPath)
	held, err := lock.Acquire(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piperack: %v\n", err)
		return 1
	}
	defer held.Release()

	eng := supervisor.New(cfg)

	if opts.NoUI {
		return runNoUI(eng, cfg)
	}
	if err := tui.Run(eng); err != nil {
		fmt.Fprintf(os.Stderr, "piperack: tui exited with error: %v\n", err)
		return 1
	}
	return eng.ExitCode()
}

// runNoUI drives the engine's own loop, rendering every accepted output
// line and forwarding OS signals into the same graceful-shutdown path the
// TUI's 'q' key uses.
func runNoUI(eng *supervisor.Engine, cfg *config.Config) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		eng.Enqueue(supervisor.Event{Kind: supervisor.EvShutdown})
	}()

	emitter := lineemit.New(cfg, os.Stdout)
	emitter.StartBanner("piperack: starting processes…")
	bannerStopped := false

	eng.Start(ctx)
	for {
		select {
		case ev := <-eng.Events():
			eng.Dispatch(ev)
			emitter.Process(ev, eng)
			if !bannerStopped && anyReadyOrRunning(eng) {
				emitter.StopBanner()
				bannerStopped = true
			}
		case <-eng.Done():
			if !bannerStopped {
				emitter.StopBanner()
			}
			return eng.ExitCode()
		}
	}
}

func anyReadyOrRunning(eng *supervisor.Engine) bool {
	for _, p := range eng.Processes() {
		if p.Phase == supervisor.Ready || p.Phase == supervisor.Running {
			return true
		}
	}
	return false
}

// Validate loads and validates a config without starting anything, for
// the `piperack validate` subcommand.
func Validate(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	log.Info("config valid", "processes", len(cfg.Processes))
	return nil
}

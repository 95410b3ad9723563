package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/soarlink/soarlink/internal/app"
	"github.com/soarlink/soarlink/internal/platform"
	"github.com/soarlink/soarlink/internal/ui"
)

type launchOptions struct {
	StartHidden bool
}

func main() {
	opts, err := parseLaunchOptions(os.Args[1:])
	if err != nil {
		slog.Error("parse launch options", "error", err)
		os.Exit(2)
	}

	lock, err := platform.AcquireInstanceLock(app.Name)
	switch {
	case errors.Is(err, platform.ErrInstanceAlreadyRunning):
		slog.Warn("another instance is already running", "error", err)
		os.Exit(0)
	case errors.Is(err, platform.ErrInstanceLockUnsupported):
		slog.Warn("single instance lock is unavailable", "error", err)
	case err != nil:
		slog.Error("acquire instance lock", "error", err)
		os.Exit(1)
	}
	if lock != nil {
		defer func() {
			if relErr := lock.Release(); relErr != nil {
				slog.Warn("release instance lock", "error", relErr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Initialize(ctx, app.Options{})
	if err != nil {
		slog.Error("initialize app runtime", "error", err)
		os.Exit(1)
	}

	var closeOnce sync.Once
	closeRuntime := func() {
		closeOnce.Do(func() {
			_ = rt.Close()
		})
	}
	defer closeRuntime()

	cfg := rt.CurrentConfig()
	err = ui.Run(ui.RuntimeDependencies{
		Data: ui.DataDependencies{
			Bus:     rt.Bus,
			Version: app.BuildVersionWithDate(),
		},
		Actions: ui.ActionDependencies{
			OnSave:         rt.SaveProfile,
			OnTest:         rt.TestConnection,
			BindForeground: rt.SetForegroundCheck,
			StartHidden:    rt.StartHidden,
			SetStartHidden: rt.SetStartHidden,
			OnQuit: func() {
				stop()
				closeRuntime()
			},
		},
		Launch: ui.LaunchOptions{
			StartHidden: opts.StartHidden || cfg.UI.StartHidden,
		},
	})
	if err != nil {
		slog.Error("run ui", "error", err)
		os.Exit(1)
	}
}

func parseLaunchOptions(args []string) (launchOptions, error) {
	fs := flag.NewFlagSet(app.Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts launchOptions
	fs.BoolVar(&opts.StartHidden, "start-hidden", false, "start with the main window hidden in the tray")
	if err := fs.Parse(args); err != nil {
		return launchOptions{}, err
	}
	if fs.NArg() > 0 {
		return launchOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return opts, nil
}

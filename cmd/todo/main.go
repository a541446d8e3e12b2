package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/idilsaglam/tada/internal/cli"
	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
	"github.com/idilsaglam/tada/internal/store/kv"
	"github.com/idilsaglam/tada/internal/store/watch"
	"github.com/idilsaglam/tada/internal/tasks"
	"github.com/idilsaglam/tada/internal/tui"
	"github.com/idilsaglam/tada/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	// Root flags (apply to every subcommand). Parse errors are reported here,
	// not by the flag package.
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, args, err := config.Load(fs, argv)
	if errors.Is(err, flag.ErrHelp) {
		cli.PrintHelp()
		return 0
	}
	if err != nil {
		ui.Fail(err.Error())
		ui.Hint("run `todo help` for usage")
		return 2
	}
	ui.SetTheme(cfg.Theme)

	if len(args) == 0 {
		cli.PrintHelp()
		return 2
	}

	// The interactive screen owns the terminal, so its logs go to a file.
	logFile := cfg.LogFile
	if logFile == "" && args[0] == "ui" {
		logFile = filepath.Join(cfg.DataDir, config.DefaultUILogName)
	}
	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Path:   logFile,
	})
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := kv.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.Error("open storage", "backend", cfg.Backend, "err", err)
		ui.Fail("open storage: " + err.Error())
		return 1
	}
	defer backend.Close()
	logger.Debug("storage ready", "backend", cfg.Backend, "key", cfg.Key)

	store := tasks.New(
		jsonstore.New(backend, cfg.Key),
		tasks.WithLogger(logger),
	)

	opt := cli.Options{Group: cfg.Group}
	if file, ok := backend.(*kv.File); ok && args[0] == "ui" {
		w, err := watch.File(file.Path(cfg.Key), watch.DefaultDelay, logger)
		if err != nil {
			logger.Warn("live reload disabled", "err", err)
		} else {
			defer w.Close()
			opt.UI = append(opt.UI, tui.WithChanges(w.Changes()))
		}
	}

	code := cli.Run(ctx, args, opt, store)
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	return code
}

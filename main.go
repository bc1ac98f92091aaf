package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"blp-icon-converter/internal/app"
	"blp-icon-converter/internal/blp"
	"blp-icon-converter/internal/config"
	"blp-icon-converter/internal/convert"
	"blp-icon-converter/internal/logging"
	"blp-icon-converter/internal/ui/console"
)

var BuildVersion = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	opts, err := config.ParseOptions(os.Args[1:])
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return app.ExitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return app.ExitUsage
	}
	if err := config.ValidateOptions(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return app.ExitUsage
	}

	color := !opts.NoColor && logging.ShouldPrettyPrint()
	if color {
		enableVirtualTerminal()
	}

	logger := logging.New(opts.Debug)
	logger.SetPretty(color)
	defer func() {
		_ = logger.Close()
	}()

	printer := console.New(os.Stdout, color)

	cfg, err := config.ResolvePaths(opts)
	if err != nil {
		printer.Fatal(err, "")
		return app.ExitFatal
	}
	if opts.LogDir != "" {
		logOpts := logging.FileOptions{Dir: opts.LogDir, RunKey: convert.DestKey(cfg.DestDir)}
		if err := logger.EnableFilePersistence(logOpts); err != nil {
			logger.Warn("failed to enable file log persistence", logging.Field("error", err))
		}
	}
	logger.Debug("iconconv starting", logging.Field("version", BuildVersion))

	tasks, err := config.LoadTasks(opts.TasksFile)
	if err != nil {
		printer.Fatal(err, "Fix the task manifest or drop --tasks to use the built-in list.")
		return app.ExitFatal
	}

	conv := convert.New(cfg, blp.Codec{}, logger)
	return app.New(opts, conv, tasks, logger, printer).Run(rootCtx)
}

package app

import (
	"context"
	"errors"

	"blp-icon-converter/internal/config"
	"blp-icon-converter/internal/convert"
	"blp-icon-converter/internal/logging"
	"blp-icon-converter/internal/ui/console"
	"blp-icon-converter/internal/watch"
)

type IconApp struct {
	opts    config.Options
	conv    *convert.Converter
	tasks   []convert.Task
	logger  *logging.Logger
	printer *console.Printer
}

func New(opts config.Options, conv *convert.Converter, tasks []convert.Task, logger *logging.Logger, printer *console.Printer) *IconApp {
	if conv == nil {
		panic("app.New: converter must not be nil")
	}
	if logger == nil {
		panic("app.New: logger must not be nil")
	}
	if printer == nil {
		panic("app.New: printer must not be nil")
	}
	return &IconApp{opts: opts, conv: conv, tasks: tasks, logger: logger, printer: printer}
}

// Run executes one batch and returns the process exit status. Preconditions
// are checked in order: decoder, then directories, then the destination
// lock. No task runs unless all of them pass.
func (a *IconApp) Run(ctx context.Context) int {
	cfg := a.conv.Config()
	a.logger.Info("icon converter starting",
		logging.Field("source", cfg.SourceRoot),
		logging.Field("dest", cfg.DestDir),
		logging.Field("tasks", len(a.tasks)),
	)

	if err := a.conv.CheckCapability(); err != nil {
		a.logger.Error("decoder check failed", logging.Field("error", err))
		a.printer.Fatal(err, "The BLP decoder is missing or broken; rebuild iconconv.")
		return ExitFatal
	}
	if err := a.conv.CheckDirectories(); err != nil {
		a.logger.Error("directory check failed", logging.Field("error", err))
		a.printer.Fatal(err, directoryHint(err))
		return ExitFatal
	}

	if !cfg.DryRun {
		lock, err := acquireDestLock(ctx, cfg.DestDir, a.opts.LockTimeout, a.logger)
		if err != nil {
			a.logger.Error("destination lock unavailable", logging.Field("error", err))
			a.printer.Fatal(err, "")
			return ExitFatal
		}
		defer func() {
			if err := lock.Release(); err != nil {
				a.logger.Warn("failed to release destination lock", logging.Field("error", err))
			}
		}()
	}

	a.printer.Header(cfg, len(a.tasks))
	stats := a.conv.Run(ctx, a.tasks, nil)

	var watchErr error
	if a.opts.Watch && ctx.Err() == nil {
		w := watch.New(a.conv, cfg, a.tasks, a.opts.Debounce, a.logger, func(r convert.Result) {
			pass := convert.RunStats{Total: 1, DryRun: cfg.DryRun}
			pass.Record(r)
			stats.Merge(pass)
		})
		if watchErr = w.Run(ctx); watchErr != nil {
			a.logger.Error("watch mode stopped", logging.Field("error", watchErr))
			a.printer.Fatal(watchErr, "")
		}
	}

	a.logger.Info("icon converter finished",
		logging.Field("converted", stats.Converted),
		logging.Field("skipped", stats.Skipped),
		logging.Field("not_found", stats.NotFound),
		logging.Field("failed", stats.Failed),
	)
	a.printer.Summary(stats)

	if watchErr != nil {
		return ExitFatal
	}
	if a.opts.Strict && stats.Missed() > 0 {
		return ExitPartial
	}
	return ExitOK
}

func directoryHint(err error) string {
	switch {
	case errors.Is(err, convert.ErrSourceDirMissing):
		return "Check out the map sources next to this repo or pass --source-dir."
	case errors.Is(err, convert.ErrDestDirMissing):
		return "Create the icon directory or pass --dest-dir."
	default:
		return ""
	}
}

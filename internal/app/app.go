package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/dmutils/internal/callfile"
	"github.com/specialistvlad/dmutils/internal/config"
	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/executor"
	"github.com/specialistvlad/dmutils/internal/fsutil"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	ns      *namespace.Namespace
	config  *config.Config
	closers []io.Closer
}

// NewApp builds the logger, registers the modules into a fresh namespace and
// seals it. With no modules given, the core modules enabled by cfg are used.
func NewApp(outW io.Writer, cfg *config.Config, modules ...namespace.Module) (*App, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, logCloser, err := newLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, outW)
	if err != nil {
		return nil, err
	}
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules, err = selectModules(cfg)
		if err != nil {
			logCloser.Close()
			return nil, err
		}
	}

	ns := namespace.New(namespace.WithLogger(logger))
	if err := namespace.RegisterModules(ns, modules...); err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	ns.Seal()
	logger.Debug("All Go modules registered.", "modules", len(modules), "functions", ns.Len())

	a := &App{
		outW:    outW,
		logger:  logger,
		ns:      ns,
		config:  cfg,
		closers: []io.Closer{logCloser},
	}
	for _, m := range modules {
		if c, ok := m.(io.Closer); ok {
			a.closers = append([]io.Closer{c}, a.closers...)
		}
	}
	return a, nil
}

// Namespace returns the sealed namespace.
func (a *App) Namespace() *namespace.Namespace {
	return a.ns
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Context returns ctx carrying the application's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Invoke calls a single function by name.
func (a *App) Invoke(ctx context.Context, name string, call namespace.Call) (cty.Value, error) {
	return a.ns.Invoke(a.Context(ctx), name, call)
}

// RunFile executes a call file. A directory runs every .hcl file below it,
// one after another in path order.
func (a *App) RunFile(ctx context.Context, path string) ([]executor.Result, error) {
	ctx = a.Context(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load call file: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
		if len(files) == 0 {
			a.logger.Warn("No call files found, execution not required.", "path", path)
			return nil, nil
		}
	}

	exec := executor.New(a.ns, executor.WithWorkers(a.config.Workers))
	var results []executor.Result
	for _, file := range files {
		f, diags := callfile.ParseFile(file)
		if diags.HasErrors() {
			return nil, diags
		}
		for _, diag := range diags {
			a.logger.Warn(diag.Error())
		}
		res, err := exec.Execute(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("execution failed: %w", err)
		}
		results = append(results, res...)
	}
	return results, nil
}

// Close releases module resources and the log file.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Package executor runs a loaded call file against a namespace. Calls are
// executed level by level: every call in a level runs concurrently once all
// calls it depends on have finished.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/dmutils/internal/callfile"
	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one finished call.
type Result struct {
	Label    string
	Function string
	Value    cty.Value
}

// CallError reports which call in a file failed. It wraps the error the
// function or argument evaluation returned.
type CallError struct {
	Label string
	Err   error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %q: %v", e.Label, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Executor runs call files against a sealed namespace.
type Executor struct {
	ns      *namespace.Namespace
	workers int
	env     map[string]string
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers caps how many calls of a level run at once. Values below one
// mean no limit.
func WithWorkers(n int) Option {
	return func(e *Executor) { e.workers = n }
}

// WithEnv sets the variables visible as env.<NAME>. By default the process
// environment is used.
func WithEnv(env map[string]string) Option {
	return func(e *Executor) { e.env = env }
}

// New creates an executor for ns.
func New(ns *namespace.Namespace, opts ...Option) *Executor {
	e := &Executor{ns: ns}
	for _, opt := range opts {
		opt(e)
	}
	if e.env == nil {
		e.env = processEnv()
	}
	return e
}

// Execute runs every call in f and returns their results in file order. The
// first failing call cancels the calls still running and stops later levels.
func (e *Executor) Execute(ctx context.Context, f *callfile.File) ([]Result, error) {
	ctx, logger := ctxlog.With(ctx, "file", f.Filename)
	logger.Info("▶️ Running call file", "calls", len(f.Calls), "levels", len(f.Levels))
	start := time.Now()

	var mu sync.Mutex
	values := make(map[string]cty.Value, len(f.Calls))

	for i, level := range f.Levels {
		logger.Debug("Starting level.", "level", i, "calls", level)

		// Every call in this level reads only results from earlier levels.
		mu.Lock()
		ectx := callfile.EvalContext(e.env, values)
		mu.Unlock()

		calls := make([]*callfile.Call, 0, len(level))
		for _, label := range level {
			call, ok := f.Call(label)
			if !ok {
				return nil, fmt.Errorf("call file %s: level %d names unknown call %q", f.Filename, i, label)
			}
			calls = append(calls, call)
		}

		g, gctx := errgroup.WithContext(ctx)
		if e.workers > 0 {
			g.SetLimit(e.workers)
		}
		for _, call := range calls {
			g.Go(func() error {
				val, err := e.run(gctx, call, ectx)
				if err != nil {
					return &CallError{Label: call.Label, Err: err}
				}
				mu.Lock()
				values[call.Label] = val
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			logger.Error("Call file failed.", "error", err, "duration", time.Since(start))
			return nil, err
		}
	}

	results := make([]Result, 0, len(f.Calls))
	for _, c := range f.Calls {
		results = append(results, Result{Label: c.Label, Function: c.Function, Value: values[c.Label]})
	}
	logger.Info("✅ Finished call file", "duration", time.Since(start))
	return results, nil
}

func (e *Executor) run(ctx context.Context, call *callfile.Call, ectx *hcl.EvalContext) (cty.Value, error) {
	ctx, logger := ctxlog.With(ctx, "label", call.Label)
	if err := ctx.Err(); err != nil {
		logger.Debug("Skipping call, context is done.")
		return cty.NilVal, err
	}

	args, diags := call.Evaluate(ectx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}

	logger.Debug("Call started.", "function", call.Function)
	start := time.Now()
	val, err := e.ns.Invoke(ctx, call.Function, args)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Debug("Call cancelled.")
		} else {
			logger.Error("Call failed.", "error", err)
		}
		return cty.NilVal, err
	}
	logger.Info("Call finished.", "function", call.Function, "duration", time.Since(start))
	return val, nil
}

func processEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = v
		}
	}
	return env
}

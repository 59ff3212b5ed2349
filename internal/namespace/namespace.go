package namespace

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Namespace maps function names to registered functions.
type Namespace struct {
	mu     sync.RWMutex
	funcs  map[string]*Function
	sealed bool
	logger *slog.Logger
}

// Option configures a Namespace.
type Option func(*Namespace)

// WithLogger sets the logger used during registration. Invoke logs through
// the logger carried by its context instead.
func WithLogger(logger *slog.Logger) Option {
	return func(ns *Namespace) {
		if logger != nil {
			ns.logger = logger
		}
	}
}

// New creates an empty, unsealed Namespace.
func New(opts ...Option) *Namespace {
	ns := &Namespace{
		funcs:  make(map[string]*Function),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ns)
	}
	return ns
}

// Register adds fn under name. It fails with a DuplicateNameError when the
// name is taken; use Override to replace a function on purpose.
func (ns *Namespace) Register(name string, fn Function) error {
	return ns.put(name, fn, false)
}

// Override registers fn under name, replacing any function already there.
func (ns *Namespace) Override(name string, fn Function) error {
	return ns.put(name, fn, true)
}

func (ns *Namespace) put(name string, fn Function, override bool) error {
	if !hclsyntax.ValidIdentifier(name) {
		return fmt.Errorf("invalid function name %q: must be a valid identifier", name)
	}
	if fn.Impl == nil {
		return fmt.Errorf("function %q has no implementation", name)
	}
	sig, err := fn.Signature.normalize()
	if err != nil {
		return fmt.Errorf("function %q has an invalid signature: %w", name, err)
	}
	fn.Name = name
	fn.Signature = sig

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if ns.sealed {
		return fmt.Errorf("cannot register %q: %w", name, ErrSealed)
	}
	if _, exists := ns.funcs[name]; exists {
		if !override {
			return &DuplicateNameError{Name: name}
		}
		ns.logger.Warn("Overriding registered function.", "name", name)
	}
	ns.logger.Debug("Registering function.", "name", name)
	ns.funcs[name] = &fn
	return nil
}

// Seal ends the registration phase. Every later Register or Override fails
// with ErrSealed. Sealing twice is harmless.
func (ns *Namespace) Seal() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.sealed = true
}

// Sealed reports whether Seal has been called.
func (ns *Namespace) Sealed() bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.sealed
}

// Lookup returns a copy of the function registered under name.
func (ns *Namespace) Lookup(name string) (Function, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	fn, ok := ns.funcs[name]
	if !ok {
		return Function{}, &NotFoundError{Name: name}
	}
	return *fn, nil
}

// Has reports whether a function is registered under name.
func (ns *Namespace) Has(name string) bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	_, ok := ns.funcs[name]
	return ok
}

// Names returns all registered names in sorted order.
func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return slices.Sorted(maps.Keys(ns.funcs))
}

// Functions returns a snapshot of all registered functions sorted by name.
func (ns *Namespace) Functions() []Function {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	out := make([]Function, 0, len(ns.funcs))
	for _, name := range slices.Sorted(maps.Keys(ns.funcs)) {
		out = append(out, *ns.funcs[name])
	}
	return out
}

// Len returns the number of registered functions.
func (ns *Namespace) Len() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.funcs)
}

// Invoke looks up the function registered under name, binds call to its
// signature and runs it. The function's result and error are returned
// exactly as the implementation produced them.
func (ns *Namespace) Invoke(ctx context.Context, name string, call Call) (cty.Value, error) {
	fn, err := ns.Lookup(name)
	if err != nil {
		return cty.NilVal, err
	}

	ctx, logger := ctxlog.With(ctx, "function", name, "call_id", uuid.NewString())

	args, err := bind(name, fn.Signature, call)
	if err != nil {
		logger.Debug("Rejected call arguments.", "error", err)
		return cty.NilVal, err
	}

	logger.Debug("Invoking function.", "positional", len(call.Positional), "named", len(call.Named))
	start := time.Now()
	result, err := fn.Impl(ctx, args)
	elapsed := time.Since(start)

	if err != nil {
		logger.Debug("Function returned an error.", "elapsed", elapsed, "error", err)
		return result, err
	}
	logger.Debug("Function finished.", "elapsed", elapsed)
	return result, nil
}

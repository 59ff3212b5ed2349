// Package testutil holds helpers shared by the test suites: a namespace
// harness, log capture, and mock modules.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Context returns a context carrying a debug-level text logger that writes
// to the returned buffer. Setting DMUTILS_TEST_LOGS=true dumps the captured
// output at the end of the test.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if os.Getenv("DMUTILS_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// NewNamespace registers the given modules into a fresh namespace and seals it.
func NewNamespace(t *testing.T, modules ...namespace.Module) *namespace.Namespace {
	t.Helper()
	ns := namespace.New()
	require.NoError(t, namespace.RegisterModules(ns, modules...))
	ns.Seal()
	return ns
}

// Invoke calls name and fails the test if the call returns an error.
func Invoke(t *testing.T, ns *namespace.Namespace, name string, call namespace.Call) cty.Value {
	t.Helper()
	ctx, _ := Context(t)
	got, err := ns.Invoke(ctx, name, call)
	require.NoError(t, err, "invoking %s", name)
	return got
}

// WriteFiles writes files, keyed by slash-separated relative path, under a
// fresh temporary directory and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

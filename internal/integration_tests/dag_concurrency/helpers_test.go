package integration_tests

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/dmutils/internal/app"
	"github.com/specialistvlad/dmutils/internal/config"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/stretchr/testify/require"
)

// writeCallFile writes src to a call file in a fresh directory.
func writeCallFile(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

// setupApp builds an app with the given modules, or all core modules when
// none are given.
func setupApp(t *testing.T, workers int, modules ...namespace.Module) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.LogLevel = "debug"
	cfg.Workers = workers
	testApp, err := app.NewApp(&bytes.Buffer{}, &cfg, modules...)
	require.NoError(t, err)
	t.Cleanup(func() { testApp.Close() })
	return testApp
}

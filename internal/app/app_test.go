package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/dmutils/internal/config"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/specialistvlad/dmutils/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testConfig(mut func(*config.Config)) *config.Config {
	cfg := config.Default()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	if mut != nil {
		mut(&cfg)
	}
	return &cfg
}

// setupApp creates an app whose logs go to a buffer that is dumped when
// DMUTILS_TEST_LOGS=true.
func setupApp(t *testing.T, cfg *config.Config, modules ...namespace.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()
	logs := &testutil.SafeBuffer{}
	a, err := NewApp(logs, cfg, modules...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, a.Close())
		if os.Getenv("DMUTILS_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, logs
}

func TestNewApp_RegistersAllCoreModules(t *testing.T) {
	a, _ := setupApp(t, testConfig(nil))

	ns := a.Namespace()
	assert.True(t, ns.Sealed())
	for _, name := range []string{
		"get_all_path", "join_path", "dict2json", "merge_all_dicts", "date_trans",
		"current_week", "dedent", "print_k_v_aligned", "sysc", "check_your_system",
		"zip_read", "zip2_read", "http_request", "check_connection", "upload_file", "write_xlsx",
	} {
		assert.True(t, ns.Has(name), "missing %s", name)
	}
}

func TestNewApp_SelectsModulesByName(t *testing.T) {
	a, _ := setupApp(t, testConfig(func(c *config.Config) { c.Modules = []string{"dates", " text"} }))

	ns := a.Namespace()
	assert.True(t, ns.Has("date_trans"))
	assert.True(t, ns.Has("dedent"))
	assert.False(t, ns.Has("join_path"))
	assert.False(t, ns.Has("http_request"))
}

func TestNewApp_Errors(t *testing.T) {
	_, err := NewApp(&bytes.Buffer{}, testConfig(func(c *config.Config) { c.Modules = []string{"nope"} }))
	require.ErrorContains(t, err, `unknown module "nope"`)

	_, err = NewApp(&bytes.Buffer{}, testConfig(func(c *config.Config) { c.LogFormat = "xml" }))
	require.ErrorContains(t, err, "invalid log-format")

	dup := &testutil.NoOpModule{}
	_, err = NewApp(&bytes.Buffer{}, testConfig(nil), dup, dup)
	require.ErrorIs(t, err, namespace.ErrDuplicateName)
}

func TestNewApp_NilConfigUsesDefaults(t *testing.T) {
	a, err := NewApp(&bytes.Buffer{}, nil, &testutil.NoOpModule{})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, []string{"noop"}, a.Namespace().Names())
}

func TestInvoke_PassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	mod := &testutil.SimpleModule{Functions: map[string]namespace.Function{
		"fail": {Impl: func(context.Context, *namespace.Args) (cty.Value, error) { return cty.NilVal, boom }},
	}}
	a, _ := setupApp(t, testConfig(nil), mod)

	_, err := a.Invoke(context.Background(), "fail", namespace.Call{})
	require.Same(t, boom, err)
}

func TestRunFile(t *testing.T) {
	a, logs := setupApp(t, testConfig(nil))
	root := testutil.WriteFiles(t, map[string]string{
		"a/first.hcl": `
call "base" {
  function = "join_path"
  args     = ["/srv", "app"]
}

call "logs" {
  function = "join_path"
  args     = [result.base, "logs"]
}
`,
		"b/second.hcl": `
call "aligned" {
  function = "print_aligned"
  args     = ["key", "value"]
  named    = { align_width = 5 }
}
`,
		"notes.txt": "ignored",
	})

	t.Run("single file", func(t *testing.T) {
		results, err := a.RunFile(context.Background(), filepath.Join(root, "a", "first.hcl"))
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, filepath.Join("/srv", "app", "logs"), results[1].Value.AsString())
		testutil.AssertCallRan(t, logs.String(), "logs")
	})

	t.Run("directory", func(t *testing.T) {
		results, err := a.RunFile(context.Background(), root)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "aligned", results[2].Label)
		assert.Equal(t, "key  value", results[2].Value.AsString())
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := a.RunFile(context.Background(), filepath.Join(root, "missing.hcl"))
		require.ErrorContains(t, err, "failed to load call file")
	})

	t.Run("invalid file", func(t *testing.T) {
		bad := testutil.WriteFiles(t, map[string]string{"bad.hcl": `call "x" { args = [] }`})
		_, err := a.RunFile(context.Background(), filepath.Join(bad, "bad.hcl"))
		require.ErrorContains(t, err, "function")
	})

	t.Run("empty directory", func(t *testing.T) {
		results, err := a.RunFile(context.Background(), t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestNewApp_LogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "dmutils.log")
	console := &testutil.SafeBuffer{}
	a, err := NewApp(console, testConfig(func(c *config.Config) {
		c.LogLevel = "error"
		c.LogFormat = "text"
		c.LogFile = logFile
	}), &testutil.NoOpModule{})
	require.NoError(t, err)

	a.Logger().Debug("only in the file")
	require.NoError(t, a.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "only in the file")
	assert.NotContains(t, console.String(), "only in the file")
}

func TestResultJSON(t *testing.T) {
	s, err := ResultJSON(cty.StringVal("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", s)

	s, err = ResultJSON(cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(1)}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, s)

	s, err = ResultJSON(cty.NullVal(cty.String))
	require.NoError(t, err)
	assert.Equal(t, "null", s)
}

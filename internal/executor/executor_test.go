package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/dmutils/internal/callfile"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/specialistvlad/dmutils/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func load(t *testing.T, src string) *callfile.File {
	t.Helper()
	f, diags := callfile.Parse([]byte(src), "calls.hcl")
	require.False(t, diags.HasErrors(), diags.Error())
	return f
}

func echoModule() *testutil.SimpleModule {
	return &testutil.SimpleModule{Functions: map[string]namespace.Function{
		"concat": {
			Signature: namespace.Signature{
				Variadic: &namespace.Param{Name: "parts", Type: cty.String},
				Returns:  cty.String,
			},
			Impl: func(_ context.Context, args *namespace.Args) (cty.Value, error) {
				out := ""
				for _, v := range args.Rest() {
					out += v.AsString()
				}
				return cty.StringVal(out), nil
			},
		},
	}}
}

func TestExecute_PassesResultsDownstream(t *testing.T) {
	ctx, logs := testutil.Context(t)
	ns := testutil.NewNamespace(t, echoModule())
	f := load(t, `
call "greeting" {
  function = "concat"
  args     = ["hello, ", env.NAME]
}

call "shout" {
  function = "concat"
  args     = [result.greeting, "!"]
}
`)

	results, err := New(ns, WithEnv(map[string]string{"NAME": "world"})).Execute(ctx, f)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "greeting", results[0].Label)
	assert.Equal(t, "hello, world", results[0].Value.AsString())
	assert.Equal(t, "shout", results[1].Label)
	assert.Equal(t, "concat", results[1].Function)
	assert.Equal(t, "hello, world!", results[1].Value.AsString())

	testutil.AssertCallRan(t, logs.String(), "greeting")
	testutil.AssertCallRan(t, logs.String(), "shout")
}

func TestExecute_IndependentCallsRunConcurrently(t *testing.T) {
	ctx, _ := testutil.Context(t)
	done := make(chan string, 3)
	sleeper := testutil.NewMockSleeperModule(done, 100*time.Millisecond)
	ns := testutil.NewNamespace(t, sleeper)
	f := load(t, `
call "a" {
  function = "sleep"
  args     = ["a"]
}

call "b" {
  function = "sleep"
  args     = ["b"]
}

call "c" {
  function   = "sleep"
  args       = ["c"]
  depends_on = [result.a, result.b]
}
`)

	_, err := New(ns).Execute(ctx, f)
	require.NoError(t, err)

	a, ok := sleeper.Record("a")
	require.True(t, ok)
	b, ok := sleeper.Record("b")
	require.True(t, ok)
	c, ok := sleeper.Record("c")
	require.True(t, ok)

	assert.True(t, a.Overlaps(b), "independent calls should overlap")
	assert.False(t, c.Start.Before(a.End), "c must start after a finished")
	assert.False(t, c.Start.Before(b.End), "c must start after b finished")
}

func TestExecute_WorkerLimitSerializesLevel(t *testing.T) {
	ctx, _ := testutil.Context(t)
	sleeper := testutil.NewMockSleeperModule(nil, 50*time.Millisecond)
	ns := testutil.NewNamespace(t, sleeper)
	f := load(t, `
call "a" {
  function = "sleep"
  args     = ["a"]
}

call "b" {
  function = "sleep"
  args     = ["b"]
}
`)

	_, err := New(ns, WithWorkers(1)).Execute(ctx, f)
	require.NoError(t, err)

	a, _ := sleeper.Record("a")
	b, _ := sleeper.Record("b")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.False(t, a.Overlaps(b), "one worker must not run calls in parallel")
}

func TestExecute_FailFast(t *testing.T) {
	ctx, logs := testutil.Context(t)
	boom := errors.New("boom")
	sleeper := testutil.NewMockSleeperModule(nil, 2*time.Second)
	failing := &testutil.SimpleModule{Functions: map[string]namespace.Function{
		"fail": {Impl: func(context.Context, *namespace.Args) (cty.Value, error) { return cty.NilVal, boom }},
	}}
	ns := testutil.NewNamespace(t, sleeper, failing)
	f := load(t, `
call "slow" {
  function = "sleep"
  args     = ["slow"]
}

call "bad" {
  function = "fail"
}

call "after" {
  function = "sleep"
  args     = ["after"]
  depends_on = [result.bad]
}
`)

	start := time.Now()
	results, err := New(ns).Execute(ctx, f)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Less(t, time.Since(start), time.Second, "the slow call should have been cancelled")

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "bad", callErr.Label)
	assert.ErrorIs(t, err, boom)

	_, ran := sleeper.Record("after")
	assert.False(t, ran)
	assert.Contains(t, logs.String(), "Call failed.")
}

func TestExecute_ArgumentErrorsNameTheCall(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ns := testutil.NewNamespace(t, echoModule())
	f := load(t, `
call "x" {
  function = "concat"
  args     = [env.UNSET]
}
`)

	_, err := New(ns, WithEnv(map[string]string{})).Execute(ctx, f)
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "x", callErr.Label)
	assert.Contains(t, err.Error(), `call "x"`)
}

func TestExecute_UnknownFunction(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ns := testutil.NewNamespace(t, echoModule())
	f := load(t, `
call "x" {
  function = "nope"
}
`)

	_, err := New(ns).Execute(ctx, f)
	require.ErrorIs(t, err, namespace.ErrNotFound)
}

func TestNew_DefaultsToProcessEnv(t *testing.T) {
	t.Setenv("DMUTILS_EXECUTOR_TEST", "yes")
	e := New(testutil.NewNamespace(t))
	assert.Equal(t, "yes", e.env["DMUTILS_EXECUTOR_TEST"])
}

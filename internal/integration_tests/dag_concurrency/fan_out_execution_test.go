package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/dmutils/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: Fan-out calls run in parallel once their shared root finishes.
func TestDagConcurrency_FanOutExecution(t *testing.T) {
	// --- Arrange ---
	path := writeCallFile(t, `
		call "root" {
			function = "sleep"
			args     = ["root"]
		}
		call "left" {
			function = "sleep"
			args     = ["${result.root}-left"]
		}
		call "right" {
			function   = "sleep"
			args       = ["right"]
			depends_on = [result.root]
		}
	`)
	sleeper := testutil.NewMockSleeperModule(nil, 150*time.Millisecond)
	testApp := setupApp(t, 0, sleeper)

	// --- Act ---
	results, err := testApp.RunFile(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "root-left", results[1].Value.AsString())

	root, _ := sleeper.Record("root")
	left, _ := sleeper.Record("root-left")
	right, _ := sleeper.Record("right")
	require.NotNil(t, root)
	require.NotNil(t, left)
	require.NotNil(t, right)
	assert.True(t, left.Overlaps(right), "fan-out calls should run in parallel")
	assert.False(t, left.Start.Before(root.End))
	assert.False(t, right.Start.Before(root.End))
}

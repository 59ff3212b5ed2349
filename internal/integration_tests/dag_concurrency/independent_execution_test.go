package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/dmutils/internal/testutil"
	"github.com/stretchr/testify/require"
)

// Test for: Independent calls are limited by the configured worker count.
func TestDagConcurrency_WorkerLimit(t *testing.T) {
	// --- Arrange ---
	path := writeCallFile(t, `
		call "A" {
			function = "sleep"
			args     = ["A"]
		}
		call "B" {
			function = "sleep"
			args     = ["B"]
		}
		call "C" {
			function = "sleep"
			args     = ["C"]
		}
	`)
	sleeper := testutil.NewMockSleeperModule(nil, 100*time.Millisecond)
	testApp := setupApp(t, 1, sleeper)

	// --- Act ---
	start := time.Now()
	_, err := testApp.RunFile(context.Background(), path)
	elapsed := time.Since(start)

	// --- Assert ---
	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, 300*time.Millisecond, "one worker must run the calls one at a time")
}

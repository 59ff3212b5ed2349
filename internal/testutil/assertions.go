package testutil

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const callFinishedMsg = "Call finished."

// AssertCallRan checks captured log output to confirm that the call with the
// given label completed. Both text and JSON log lines are understood.
func AssertCallRan(t *testing.T, logOutput, label string) {
	t.Helper()

	for _, line := range strings.Split(logOutput, "\n") {
		if callFinished(line, label) {
			return
		}
	}
	require.Failf(t, "call did not run", "no %q log line for call '%s' in:\n%s", callFinishedMsg, label, logOutput)
}

func callFinished(line, label string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return false
		}
		return rec["msg"] == callFinishedMsg && rec["label"] == label
	}
	if !strings.Contains(line, callFinishedMsg) {
		return false
	}
	for _, field := range strings.Fields(line) {
		if field == "label="+label {
			return true
		}
	}
	return false
}

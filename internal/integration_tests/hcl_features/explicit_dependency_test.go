package integration_tests

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// Test for: depends_on orders calls that share no data.
func TestHCLFeatures_ExplicitDependency(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	t.Setenv("DMUTILS_IT_ROOT", root)
	path := writeCallFile(t, `
		call "listing" {
			function   = "level_x_path"
			args       = [env.DMUTILS_IT_ROOT]
			named      = { level = 1 }
			depends_on = [result.create]
		}
		call "create" {
			function = "mkdir"
			args     = ["${env.DMUTILS_IT_ROOT}/made"]
		}
	`)
	testApp := setupApp(t, 4)

	// --- Act ---
	results, err := testApp.RunFile(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, results, 2)
	listing := results[0].Value
	assert.True(t, listing.Equals(cty.ListVal([]cty.Value{cty.StringVal(filepath.Join(root, "made"))})).True(),
		"listing ran before mkdir: %#v", listing)
}
